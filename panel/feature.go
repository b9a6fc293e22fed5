/*Package panel interprets declarative feature descriptors into a control
panel bound to a camera.

A descriptor names a camera parameter and a widget kind; anything it
does not pin down (value, bounds, step) is resolved from the live
camera at interpretation time.  The interpreted panel owns a dependency
table which keeps dependent controls enabled only while their
controlling control holds the required value.
*/
package panel

import (
	"fmt"

	"github.com/basler-lab/pylonpanel/util"
)

// Kind is the widget kind a feature descriptor maps to
type Kind string

// the recognized widget kinds
const (
	NumericSlider Kind = "numeric-slider"
	NumericText   Kind = "numeric-text"
	Boolean       Kind = "boolean"
	Choice        Kind = "choice"
	Group         Kind = "group"
)

// KnownKind returns true for a recognized widget kind
func KnownKind(k Kind) bool {
	switch k {
	case NumericSlider, NumericText, Boolean, Choice, Group:
		return true
	}
	return false
}

// Numeric returns true for kinds carrying a numeric value
func (k Kind) Numeric() bool {
	return k == NumericSlider || k == NumericText
}

// FeatureDescriptor declares one control.  Name and Kind are required;
// everything else is optional and late-bound from the camera.
type FeatureDescriptor struct {
	// Name is the camera parameter identifier, e.g. "GainRaw"
	Name string `yaml:"name"`

	// Kind selects the widget
	Kind Kind `yaml:"kind"`

	// Value is the initial value; defaults to the camera's current value
	Value interface{} `yaml:"value,omitempty"`

	// Min/Max/Step bound numeric kinds; a user supplied bound can only
	// narrow the camera's own range, never widen it
	Min  *float64 `yaml:"min,omitempty"`
	Max  *float64 `yaml:"max,omitempty"`
	Step *float64 `yaml:"step,omitempty"`

	// Options is the ordered value set for the choice kind (required)
	Options []string `yaml:"options,omitempty"`

	// Unit is appended to the label in square brackets
	Unit string `yaml:"unit,omitempty"`

	// Dependency maps a controlling feature name to the value it must
	// hold for this control to be enabled
	Dependency map[string]interface{} `yaml:"dependency,omitempty"`

	// Style and Layout are presentation hints passed through to the
	// rendering surface untouched
	Style  map[string]string `yaml:"style,omitempty"`
	Layout map[string]string `yaml:"layout,omitempty"`

	// Content holds nested descriptors for the group kind
	Content []FeatureDescriptor `yaml:"content,omitempty"`
}

// Label derives the display label: a space at each lower to upper case
// transition, the unit in brackets, and a trailing colon (omitted for
// the boolean kind)
func (d FeatureDescriptor) Label() string {
	label := util.InsertSpaces(d.Name)
	if d.Unit != "" {
		label += fmt.Sprintf(" [%s]", d.Unit)
	}
	if d.Kind != Boolean {
		label += ":"
	}
	return label
}

// ValidationError is a malformed configuration; it is fatal to panel
// construction
type ValidationError struct {
	// Feature is the descriptor at fault, "" for panel-level problems
	Feature string

	// Reason describes what was wrong
	Reason string
}

func (e ValidationError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("invalid panel configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid feature %q: %s", e.Feature, e.Reason)
}

// validate checks the descriptor-local invariants; cross-descriptor
// checks (dependency targets) happen after all descriptors are processed
func (d FeatureDescriptor) validate() error {
	if d.Name == "" {
		return ValidationError{Reason: "descriptor is missing required key 'name'"}
	}
	if d.Kind == "" {
		return ValidationError{Feature: d.Name, Reason: "descriptor is missing required key 'kind'"}
	}
	if !KnownKind(d.Kind) {
		return ValidationError{Feature: d.Name, Reason: fmt.Sprintf("unknown widget kind %q", d.Kind)}
	}
	if d.Kind == Choice && len(d.Options) == 0 {
		return ValidationError{Feature: d.Name, Reason: "choice kind requires non-empty options"}
	}
	return nil
}

// flatten expands group descriptors depth-first; groups contribute no
// control of their own
func flatten(features []FeatureDescriptor) ([]FeatureDescriptor, error) {
	out := make([]FeatureDescriptor, 0, len(features))
	for _, d := range features {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if d.Kind == Group {
			inner, err := flatten(d.Content)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
