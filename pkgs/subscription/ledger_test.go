package subscription

import (
	"testing"

	"github.com/keskad/z21/pkgs/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstSubscribeSendsMask(t *testing.T) {
	var sent []uint32
	l := NewLedger(func(mask uint32) error {
		sent = append(sent, mask)
		return nil
	})

	require.NoError(t, l.Subscribe(model.CategorySystemState))
	require.Len(t, sent, 1)
	assert.Equal(t, uint32(model.FlagSystemState), sent[0])
}

func TestSecondSubscribeDoesNotResend(t *testing.T) {
	sends := 0
	l := NewLedger(func(mask uint32) error { sends++; return nil })

	require.NoError(t, l.Subscribe(model.CategorySystemState))
	require.NoError(t, l.Subscribe(model.CategorySystemState))
	assert.Equal(t, 1, sends)
}

// Scenario 6: two subscribers then one unsubscribe must not push a second
// time; only dropping to zero does.
func TestUnsubscribeOnlySendsAtZero(t *testing.T) {
	sends := 0
	l := NewLedger(func(mask uint32) error { sends++; return nil })

	require.NoError(t, l.Subscribe(model.CategorySystemState))
	require.NoError(t, l.Subscribe(model.CategorySystemState))
	assert.Equal(t, 1, sends)

	require.NoError(t, l.Unsubscribe(model.CategorySystemState))
	assert.Equal(t, 1, sends, "count still 1, must not resend")

	require.NoError(t, l.Unsubscribe(model.CategorySystemState))
	assert.Equal(t, 2, sends, "count reached zero, must resend to clear the bit")
	assert.Equal(t, uint32(0), l.ActiveMask())
}

func TestGuardBlocksUnmetFirmware(t *testing.T) {
	sends := 0
	l := NewLedger(func(mask uint32) error { sends++; return nil })
	l.SetFirmware(model.FirmwareVersion{Major: 1, Minor: 10})

	require.NoError(t, l.Subscribe(model.CategoryAllLocoInfo))
	assert.Equal(t, 0, sends, "AllLocoInfo requires firmware >= 1.20")
	assert.Equal(t, uint32(0), l.ActiveMask())
}

func TestGuardAllowsMetFirmware(t *testing.T) {
	sends := 0
	l := NewLedger(func(mask uint32) error { sends++; return nil })
	l.SetFirmware(model.FirmwareVersion{Major: 1, Minor: 43})

	require.NoError(t, l.Subscribe(model.CategoryAllLocoInfo))
	assert.Equal(t, 1, sends)
	assert.Equal(t, uint32(model.FlagAllLocoInfo), l.ActiveMask())
}

func TestRailComHooksFireOnBoundaryCrossing(t *testing.T) {
	l := NewLedger(func(uint32) error { return nil })
	firstCount, lastCount := 0, 0
	l.OnRailComFirst = func() { firstCount++ }
	l.OnRailComLast = func() { lastCount++ }

	require.NoError(t, l.Subscribe(model.CategoryAllRailCom))
	require.NoError(t, l.Subscribe(model.CategoryAllRailCom))
	assert.Equal(t, 1, firstCount)

	require.NoError(t, l.Unsubscribe(model.CategoryAllRailCom))
	assert.Equal(t, 0, lastCount)

	require.NoError(t, l.Unsubscribe(model.CategoryAllRailCom))
	assert.Equal(t, 1, lastCount)
}

func TestBasicCategoryNeverContributesBit(t *testing.T) {
	sends := 0
	l := NewLedger(func(uint32) error { sends++; return nil })
	require.NoError(t, l.Subscribe(model.CategoryBasic))
	assert.Equal(t, 0, sends)
	assert.Equal(t, uint32(0), l.ActiveMask())
}

func TestUnknownCategoryErrors(t *testing.T) {
	l := NewLedger(func(uint32) error { return nil })
	err := l.Subscribe(model.EventCategory(999))
	assert.Error(t, err)
}
