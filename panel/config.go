package panel

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the panel configuration, usually loaded from a yaml file
type Config struct {
	// Features declares the controls, in order
	Features []FeatureDescriptor `yaml:"features"`

	// FeaturesLayout arranges feature controls into rows; unmentioned
	// controls trail as single-item rows
	FeaturesLayout [][]string `yaml:"features_layout,omitempty"`

	// ActionsLayout arranges the action controls the same way
	ActionsLayout [][]string `yaml:"actions_layout,omitempty"`

	// DefaultUserSet, when set, switches the camera to that slot at
	// interpretation time and hides the user set selector
	DefaultUserSet string `yaml:"default_user_set,omitempty"`
}

// LoadConfig reads a yaml panel configuration from disk.  Decode errors
// (a feature that is not a mapping, wrong scalar types) surface as
// ValidationError since they are configuration problems, not IO ones.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&cfg)
	if err != nil {
		return cfg, ValidationError{Reason: err.Error()}
	}
	return cfg, nil
}
