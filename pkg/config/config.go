// Package config provides configuration loading and management for ndvi.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"ndvi/pkg/ndvi"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input band selection
	Input struct {
		// NIRBand is the 1-based band of the near-infrared raster to read
		NIRBand int `yaml:"nirBand"`

		// ColourBand is the 1-based band of the colour raster to read
		ColourBand int `yaml:"colourBand"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// Encoding is "byte" (scaled 0-254, nodata 255) or "float" (raw NDVI, nodata -99)
		Encoding string `yaml:"encoding"`

		// Driver selects the raster backend: "gtiff" or, in gdal builds, "gdal"
		Driver string `yaml:"driver"`
	} `yaml:"output"`

	// Report parameters
	Report struct {
		// Stats enables the YAML statistics report next to the output
		Stats bool `yaml:"stats"`

		// VegetationThreshold is the NDVI above which a pixel counts as vegetated
		VegetationThreshold float64 `yaml:"vegetationThreshold"`

		// Preview enables a PNG quicklook next to the output
		Preview bool `yaml:"preview"`

		// Ramp lists hex colour stops from NDVI -1 to 1
		Ramp []string `yaml:"ramp,omitempty"`
	} `yaml:"report"`

	// Log parameters
	Log struct {
		// Level is a logrus level name
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.NIRBand = 1
	cfg.Input.ColourBand = 1

	cfg.Output.Encoding = ndvi.NativeFloat.String()
	cfg.Output.Driver = "gtiff"

	cfg.Report.Stats = false
	cfg.Report.VegetationThreshold = ndvi.DefaultVegetationThreshold
	cfg.Report.Preview = false

	cfg.Log.Level = "info"

	return cfg
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := ndvi.ParseEncoding(c.Output.Encoding); err != nil {
		return err
	}
	if c.Input.NIRBand < 1 || c.Input.ColourBand < 1 {
		return errors.Errorf("band numbers start at 1, got nir=%d colour=%d", c.Input.NIRBand, c.Input.ColourBand)
	}
	if c.Report.VegetationThreshold < -1 || c.Report.VegetationThreshold > 1 {
		return errors.Errorf("vegetation threshold %v outside [-1, 1]", c.Report.VegetationThreshold)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
