package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type CashMonitorLimits struct {
	MaterialityGP int64 `yaml:"materiality_gp"`
	CooldownSec   int   `yaml:"cooldown_sec"`
}

type APILimits struct {
	ReadPerSec  float64 `yaml:"read_per_sec"`
	ReadBurst   int     `yaml:"read_burst"`
	WritePerSec float64 `yaml:"write_per_sec"`
	WriteBurst  int     `yaml:"write_burst"`
}

type JournalLimits struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type Limits struct {
	CashMonitor CashMonitorLimits `yaml:"cash_monitor"`
	API         APILimits         `yaml:"api"`
	Journal     JournalLimits     `yaml:"journal"`
}

// DefaultLimits are used when no limits file is present.
func DefaultLimits() Limits {
	return Limits{
		CashMonitor: CashMonitorLimits{MaterialityGP: 100_000, CooldownSec: 30},
		API:         APILimits{ReadPerSec: 5, ReadBurst: 10, WritePerSec: 2, WriteBurst: 5},
		Journal:     JournalLimits{MaxBytes: 1 << 28},
	}
}

func LoadLimits(path string) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Limits{}, fmt.Errorf("read limits: %w", err)
	}

	limits := DefaultLimits()
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return Limits{}, fmt.Errorf("parse limits: %w", err)
	}

	return limits, nil
}
