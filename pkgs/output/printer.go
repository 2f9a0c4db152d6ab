// Package output isolates every place pkgs/app is allowed to write to the
// terminal, the way the teacher's output package does: a Printer interface
// the app layer depends on, plus a humanize-backed formatting helper for
// the CLI's human-readable tables (uptime, counters).
package output

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Printer is the only channel pkgs/app is allowed to write through.
type Printer interface {
	Printf(format string, a ...any) (n int, err error)
}

// ConsolePrinter writes to stdout.
type ConsolePrinter struct{}

func (c ConsolePrinter) Printf(format string, a ...any) (n int, err error) {
	return fmt.Printf(format, a...)
}

// FormatCount renders a counter with thousands separators, used for the
// system-state currents/voltages printed by `z21cli status --verbose`.
func FormatCount(n uint64) string {
	return humanize.Comma(int64(n))
}

// FormatSince renders a duration as a relative phrase ("3 seconds ago"),
// used for "last message received" in `z21cli status --verbose`.
func FormatSince(t time.Time) string {
	return humanize.Time(t)
}
