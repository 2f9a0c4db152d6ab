// Package config loads the CLI's connection and timeout settings from a
// YAML file, the way the teacher's config package loads its server/loco
// settings: viper defaults plus an optional on-disk override, with
// fsnotify-driven hot reload so a running monitor picks up an edited
// timeout without a restart.
package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Network holds the station's address, overridable by CLI flags.
type Network struct {
	Host string
	Port uint16
}

// Timeouts mirrors session.Timeouts in config-file-friendly units; the
// accessor methods below convert to time.Duration.
type Timeouts struct {
	HandshakeMs      int
	LivenessProbeMs  int
	KeepAlivePeriodS int
	KeepAliveIdleS   int
	WatchdogPeriodS  int
	WatchdogIdleS    int
	WatchdogMaxMiss  int
}

func (t Timeouts) Handshake() time.Duration {
	return time.Duration(t.HandshakeMs) * time.Millisecond
}

func (t Timeouts) LivenessProbe() time.Duration {
	return time.Duration(t.LivenessProbeMs) * time.Millisecond
}

func (t Timeouts) KeepAlivePeriod() time.Duration {
	return time.Duration(t.KeepAlivePeriodS) * time.Second
}

func (t Timeouts) KeepAliveIdle() time.Duration {
	return time.Duration(t.KeepAliveIdleS) * time.Second
}

func (t Timeouts) WatchdogPeriod() time.Duration {
	return time.Duration(t.WatchdogPeriodS) * time.Second
}

func (t Timeouts) WatchdogIdle() time.Duration {
	return time.Duration(t.WatchdogIdleS) * time.Second
}

// Configuration is the complete CLI-facing settings document.
type Configuration struct {
	Network  Network
	Timeouts Timeouts
}

// NewConfig loads settings from ./.z21.yaml or $HOME/.z21.yaml, falling
// back to protocol defaults for anything absent, and starts watching the
// resolved file for edits.
func NewConfig() (*Configuration, error) {
	config := Configuration{}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName(".z21")
	v.AddConfigPath("$HOME/")
	v.AddConfigPath(".")

	v.SetDefault("network.host", "192.168.0.111")
	v.SetDefault("network.port", 21105)

	v.SetDefault("timeouts.handshakems", 3000)
	v.SetDefault("timeouts.livenessprobems", 2000)
	v.SetDefault("timeouts.keepaliveperiods", 45)
	v.SetDefault("timeouts.keepaliveidles", 40)
	v.SetDefault("timeouts.watchdogperiods", 5)
	v.SetDefault("timeouts.watchdogidles", 15)
	v.SetDefault("timeouts.watchdogmaxmiss", 3)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return &Configuration{}, fmt.Errorf("cannot parse config: %w", err)
		}
	}
	if err := v.Unmarshal(&config); err != nil {
		return &config, fmt.Errorf("cannot parse config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logrus.Infof("config: %s changed, reloading", e.Name)
		var reloaded Configuration
		if err := v.Unmarshal(&reloaded); err != nil {
			logrus.Warnf("config: reload failed: %s", err)
			return
		}
		config = reloaded
	})
	v.WatchConfig()

	return &config, nil
}
