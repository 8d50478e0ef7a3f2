//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

// Package config holds the explicit configuration record for the
// acoustic model loader. It replaces the string-keyed property sheets
// of older trainers with a typed struct, parsed from yaml when it
// comes from a file.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModelDefinition    = "mdef"
	DefaultVarianceFloor      = 1e-4
	DefaultMixtureWeightFloor = 1e-7
)

// Config enumerates every option the loader recognizes.
type Config struct {
	// Location is the model directory.
	Location string `json:"location" yaml:"location"`
	// ModelDefinition is the mdef file path relative to Location.
	ModelDefinition string `json:"modelDefinition" yaml:"modelDefinition"`
	// DataLocation is the subdirectory holding the binary pools,
	// relative to Location. Empty means the pools sit directly in
	// Location.
	DataLocation string `json:"dataLocation" yaml:"dataLocation"`
	// UseCDUnits controls whether context-dependent units are
	// registered. Triphone rows are parsed either way.
	UseCDUnits *bool `json:"useCDUnits" yaml:"useCDUnits"`
	// MixtureComponentScoreFloor is the lowest linear density a
	// mixture component may report. Zero disables the floor.
	MixtureComponentScoreFloor float32 `json:"mixtureComponentScoreFloor" yaml:"mixtureComponentScoreFloor"`
	VarianceFloor              float32 `json:"varianceFloor" yaml:"varianceFloor"`
	MixtureWeightFloor         float32 `json:"mixtureWeightFloor" yaml:"mixtureWeightFloor"`
}

// FromFile parses a yaml config file.
func FromFile(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config file %s", path)
	}
	return cfg, nil
}

// SetDefaults fills the zero-valued optional fields.
func (c *Config) SetDefaults() {
	if c.ModelDefinition == "" {
		c.ModelDefinition = DefaultModelDefinition
	}
	if c.UseCDUnits == nil {
		t := true
		c.UseCDUnits = &t
	}
	if c.VarianceFloor == 0 {
		c.VarianceFloor = DefaultVarianceFloor
	}
	if c.MixtureWeightFloor == 0 {
		c.MixtureWeightFloor = DefaultMixtureWeightFloor
	}
}

// Validate reports configurations the loader cannot work with.
func (c *Config) Validate() error {
	if c.Location == "" {
		return errors.New("config: location is mandatory")
	}
	if c.VarianceFloor < 0 {
		return errors.New("config: varianceFloor must not be negative")
	}
	if c.MixtureWeightFloor < 0 {
		return errors.New("config: mixtureWeightFloor must not be negative")
	}
	if c.MixtureComponentScoreFloor < 0 {
		return errors.New("config: mixtureComponentScoreFloor must not be negative")
	}
	return nil
}
