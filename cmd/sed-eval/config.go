package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/jamesainslie/go-sed/internal/eval"
)

// Config defines the command's configuration.
type Config struct {
	Collar             float64 `toml:"collar"`
	PercentageOfLength float64 `toml:"percentageOfLength"`
	Resolution         float64 `toml:"resolution"`
	DTC                float64 `toml:"dtc"`
	GTC                float64 `toml:"gtc"`
	CTTC               float64 `toml:"cttc"`
}

// readConfig reads the configuration from a toml file. If the name is
// empty, the protocol defaults are returned.
func readConfig(name string) (*Config, error) {
	config := Config{
		Collar:             eval.DefaultCollar,
		PercentageOfLength: eval.DefaultPercentageOfLength,
		Resolution:         eval.DefaultResolution,
		DTC:                eval.DefaultDTCThreshold,
		GTC:                eval.DefaultGTCThreshold,
		CTTC:               eval.DefaultCTTCThreshold,
	}
	if name == "" {
		return &config, nil
	}
	if _, err := toml.DecodeFile(name, &config); err != nil {
		return nil, fmt.Errorf("readConfig %s: %v", name, err)
	}
	return &config, nil
}

// updateInConfig overwrites dest with val unless val is the zero value.
func updateInConfig(dest *float64, val float64) {
	if val != 0 {
		*dest = val
	}
}
