package panel

import (
	"fmt"
	"log"
	"sync"

	"github.com/basler-lab/pylonpanel/pylon"
	"github.com/basler-lab/pylonpanel/util"
)

// warnf is the warning sink; a variable so tests can capture it
var warnf = log.Printf

// Control is one rendered interactive element, bound 1:1 to a feature
// descriptor's name.  Controls live exactly as long as their panel.
type Control struct {
	// Name is the camera parameter this control is bound to
	Name string `json:"name"`

	// Kind is the widget kind
	Kind Kind `json:"kind"`

	// Label is the derived display label
	Label string `json:"label"`

	// Value is float64, bool, or string depending on Kind
	Value interface{} `json:"value"`

	// Min, Max, Step bound numeric kinds
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Step float64 `json:"step,omitempty"`

	// Options is the legal value set for the choice kind
	Options []string `json:"options,omitempty"`

	// Unit is the physical unit, informational only
	Unit string `json:"unit,omitempty"`

	// Enabled is toggled by dependency propagation
	Enabled bool `json:"enabled"`

	// Style and Layout are presentation hints for the renderer
	Style  map[string]string `json:"style,omitempty"`
	Layout map[string]string `json:"layout,omitempty"`

	// pending marks a value change not yet applied to the camera
	pending bool
}

// DependencyTable maps a controlling control name to the dependents
// registered under it and the value each dependent requires
type DependencyTable map[string]map[string]interface{}

// syncState sequences camera reads/writes against control updates so a
// refresh-from-camera never re-applies values back to the camera
type syncState int

const (
	stateIdle syncState = iota
	stateRefreshing
	stateApplying
)

// Panel is an interpreted control set bound to a camera
type Panel struct {
	cam      pylon.Camera
	controls map[string]*Control
	order    []string
	deps     DependencyTable
	state    syncState

	// DefaultUserSet, when non-empty, was applied at interpretation time
	// and suppresses the user set selector action control
	DefaultUserSet pylon.UserSet

	featLayout [][]string
	actLayout  [][]string

	// the status line is read and written across goroutines while a
	// capture loop runs
	statusMu sync.Mutex
	status   string
}

/*Interpret walks the configured feature descriptors and produces the
control set and dependency table.

Resolution order per descriptor: explicit fields win; missing numeric
bounds and step are read from the camera at this moment (late bound);
a user bound looser than the camera's is clamped to the camera's.  The
camera is only read, never written, except when cfg.DefaultUserSet
switches the active slot.
*/
func Interpret(cfg Config, cam pylon.Camera) (*Panel, error) {
	flat, err := flatten(cfg.Features)
	if err != nil {
		return nil, err
	}
	p := &Panel{
		cam:        cam,
		controls:   make(map[string]*Control, len(flat)),
		deps:       DependencyTable{},
		featLayout: cfg.FeaturesLayout,
		actLayout:  cfg.ActionsLayout,
		status:     "ready",
	}
	if cfg.DefaultUserSet != "" {
		slot := pylon.UserSet(cfg.DefaultUserSet)
		if !pylon.ValidUserSet(slot) {
			return nil, ValidationError{Reason: fmt.Sprintf("unknown default_user_set %q", cfg.DefaultUserSet)}
		}
		if err := cam.LoadUserSet(slot); err != nil {
			return nil, err
		}
		p.DefaultUserSet = slot
	}
	for _, d := range flat {
		c, err := resolve(d, cam)
		if err != nil {
			return nil, err
		}
		if _, dup := p.controls[c.Name]; dup {
			return nil, ValidationError{Feature: c.Name, Reason: "duplicate feature name"}
		}
		p.controls[c.Name] = c
		p.order = append(p.order, c.Name)
		for controlling, required := range d.Dependency {
			if p.deps[controlling] == nil {
				p.deps[controlling] = map[string]interface{}{}
			}
			p.deps[controlling][c.Name] = required
		}
	}
	// dependency targets are checked only after every descriptor has
	// been processed, so declaration order does not matter
	for controlling, deps := range p.deps {
		if _, ok := p.controls[controlling]; !ok {
			return nil, ValidationError{Feature: controlling, Reason: "dependency on unknown control"}
		}
		for dependent := range deps {
			if _, ok := p.controls[dependent]; !ok {
				return nil, ValidationError{Feature: dependent, Reason: "dependency target is not a control"}
			}
		}
	}
	// one synthetic propagation so initial enabled state is consistent
	// before any user interaction
	for controlling := range p.deps {
		p.propagate(controlling, p.controls[controlling].Value)
	}
	return p, nil
}

// resolve produces a control from one descriptor, reading the camera for
// anything the descriptor leaves unspecified
func resolve(d FeatureDescriptor, cam pylon.Camera) (*Control, error) {
	param, err := cam.Parameter(d.Name)
	if err != nil {
		// unknown parameter names are configuration errors, not device errors
		return nil, ValidationError{Feature: d.Name, Reason: err.Error()}
	}
	c := &Control{
		Name:    d.Name,
		Kind:    d.Kind,
		Label:   d.Label(),
		Unit:    d.Unit,
		Style:   d.Style,
		Layout:  d.Layout,
		Enabled: true,
	}
	switch {
	case d.Kind.Numeric():
		num, ok := param.(pylon.NumericParameter)
		if !ok {
			return nil, ValidationError{Feature: d.Name, Reason: fmt.Sprintf("parameter is %v, not numeric", param.Kind())}
		}
		return resolveNumeric(d, c, num)
	case d.Kind == Boolean:
		b, ok := param.(pylon.BoolParameter)
		if !ok {
			return nil, ValidationError{Feature: d.Name, Reason: fmt.Sprintf("parameter is %v, not bool", param.Kind())}
		}
		if d.Value != nil {
			v, ok := d.Value.(bool)
			if !ok {
				return nil, ValidationError{Feature: d.Name, Reason: "value for boolean kind must be true or false"}
			}
			c.Value = v
		} else {
			v, err := b.Get()
			if err != nil {
				return nil, err
			}
			c.Value = v
		}
		return c, nil
	default: // Choice
		enum, ok := param.(pylon.EnumParameter)
		if !ok {
			return nil, ValidationError{Feature: d.Name, Reason: fmt.Sprintf("parameter is %v, not enum", param.Kind())}
		}
		c.Options = d.Options
		var value string
		if d.Value != nil {
			s, ok := d.Value.(string)
			if !ok {
				return nil, ValidationError{Feature: d.Name, Reason: "value for choice kind must be a string"}
			}
			value = s
		} else {
			s, err := enum.Get()
			if err != nil {
				return nil, err
			}
			value = s
		}
		if !contains(c.Options, value) {
			warnf("panel: %s value %q is not among options %v, falling back to %q",
				d.Name, value, c.Options, c.Options[0])
			value = c.Options[0]
		}
		c.Value = value
		return c, nil
	}
}

func resolveNumeric(d FeatureDescriptor, c *Control, num pylon.NumericParameter) (*Control, error) {
	devMin, err := num.Min()
	if err != nil {
		return nil, err
	}
	devMax, err := num.Max()
	if err != nil {
		return nil, err
	}
	// the user can only narrow the camera-reported range, never widen it
	c.Min = devMin
	if d.Min != nil {
		c.Min = util.Clamp(*d.Min, devMin, devMax)
	}
	c.Max = devMax
	if d.Max != nil {
		c.Max = util.Clamp(*d.Max, devMin, devMax)
	}
	if d.Step != nil {
		c.Step = *d.Step
	} else if inc, err := num.Increment(); err == nil {
		c.Step = inc
	} else {
		c.Step = 1
	}
	if d.Value != nil {
		v, ok := toFloat(d.Value)
		if !ok {
			return nil, ValidationError{Feature: d.Name, Reason: "value for numeric kind must be a number"}
		}
		c.Value = v
	} else {
		v, err := num.Get()
		if err != nil {
			return nil, err
		}
		c.Value = v
	}
	return c, nil
}

// Control returns the control with the given name, nil if absent
func (p *Panel) Control(name string) *Control {
	return p.controls[name]
}

// Controls returns the control set in interpretation order
func (p *Panel) Controls() []*Control {
	out := make([]*Control, len(p.order))
	for i, name := range p.order {
		out[i] = p.controls[name]
	}
	return out
}

// Dependencies returns the dependency table
func (p *Panel) Dependencies() DependencyTable {
	return p.deps
}

// SetValue records a user value change on a control, marking it pending
// for the next apply and propagating dependency state
func (p *Panel) SetValue(name string, value interface{}) error {
	c, ok := p.controls[name]
	if !ok {
		return fmt.Errorf("no control named %q", name)
	}
	switch {
	case c.Kind.Numeric():
		v, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("%s: value must be a number", name)
		}
		if v < c.Min || v > c.Max {
			return fmt.Errorf("%s: value %v outside [%v, %v]", name, v, c.Min, c.Max)
		}
		value = v
	case c.Kind == Boolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: value must be true or false", name)
		}
	case c.Kind == Choice:
		s, ok := value.(string)
		if !ok || !contains(c.Options, s) {
			return fmt.Errorf("%s: value must be one of %v", name, c.Options)
		}
	}
	c.Value = value
	if p.state == stateIdle {
		c.pending = true
	}
	p.propagate(name, value)
	return nil
}

// propagate toggles the enabled flag of every dependent registered under
// the controlling control.  Propagation is one level deep only: a
// dependent being disabled does not cascade to controls that depend on
// the dependent.
func (p *Panel) propagate(controlling string, value interface{}) {
	for dependent, required := range p.deps[controlling] {
		p.controls[dependent].Enabled = valuesEqual(value, required)
	}
}

// ApplyPending writes every pending control value to the camera.  Called
// before a capture run starts.
func (p *Panel) ApplyPending() error {
	p.state = stateApplying
	defer func() { p.state = stateIdle }()
	for _, name := range p.order {
		c := p.controls[name]
		if !c.pending {
			continue
		}
		if err := p.writeControl(c); err != nil {
			return err
		}
		c.pending = false
	}
	return nil
}

func (p *Panel) writeControl(c *Control) error {
	param, err := p.cam.Parameter(c.Name)
	if err != nil {
		return err
	}
	switch {
	case c.Kind.Numeric():
		return param.(pylon.NumericParameter).Set(c.Value.(float64))
	case c.Kind == Boolean:
		return param.(pylon.BoolParameter).Set(c.Value.(bool))
	default:
		return param.(pylon.EnumParameter).Set(c.Value.(string))
	}
}

// Refresh reloads every control's value from the camera, then re-runs
// dependency propagation.  No camera write happens while refreshing;
// the state machine suppresses the pending flag so the freshly read
// values are not re-applied back to the device.
func (p *Panel) Refresh() error {
	p.state = stateRefreshing
	defer func() { p.state = stateIdle }()
	for _, name := range p.order {
		c := p.controls[name]
		param, err := p.cam.Parameter(name)
		if err != nil {
			return err
		}
		switch {
		case c.Kind.Numeric():
			v, err := param.(pylon.NumericParameter).Get()
			if err != nil {
				return err
			}
			c.Value = v
		case c.Kind == Boolean:
			v, err := param.(pylon.BoolParameter).Get()
			if err != nil {
				return err
			}
			c.Value = v
		default:
			v, err := param.(pylon.EnumParameter).Get()
			if err != nil {
				return err
			}
			if !contains(c.Options, v) {
				warnf("panel: %s refreshed value %q is not among options %v, falling back to %q",
					name, v, c.Options, c.Options[0])
				v = c.Options[0]
			}
			c.Value = v
		}
		c.pending = false
	}
	for controlling := range p.deps {
		p.propagate(controlling, p.controls[controlling].Value)
	}
	return nil
}

// LoadUserSet switches the camera to a stored slot and refreshes every
// control from the freshly loaded device state
func (p *Panel) LoadUserSet(slot pylon.UserSet) error {
	p.SetStatus(fmt.Sprintf("loading user set %s...", slot))
	if err := p.cam.LoadUserSet(slot); err != nil {
		p.SetStatus(fmt.Sprintf("load of user set %s failed: %v", slot, err))
		return err
	}
	if err := p.Refresh(); err != nil {
		return err
	}
	p.SetStatus(fmt.Sprintf("user set %s loaded", slot))
	return nil
}

// SaveUserSet stores the camera's current parameters into a slot,
// applying pending control changes first so what is saved is what the
// panel shows
func (p *Panel) SaveUserSet(slot pylon.UserSet) error {
	p.SetStatus(fmt.Sprintf("saving user set %s...", slot))
	if err := p.ApplyPending(); err != nil {
		p.SetStatus(fmt.Sprintf("save of user set %s failed: %v", slot, err))
		return err
	}
	if err := p.cam.SaveUserSet(slot); err != nil {
		p.SetStatus(fmt.Sprintf("save of user set %s failed: %v", slot, err))
		return err
	}
	p.SetStatus(fmt.Sprintf("user set %s saved", slot))
	return nil
}

// Camera returns the camera this panel drives
func (p *Panel) Camera() pylon.Camera {
	return p.cam
}

// SetStatus updates the status line
func (p *Panel) SetStatus(s string) {
	p.statusMu.Lock()
	p.status = s
	p.statusMu.Unlock()
}

// Status returns the status line text
func (p *Panel) Status() string {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status
}

func contains(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}

// toFloat normalizes the numeric types yaml and json decoders produce
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// valuesEqual compares a control value with a dependency's required
// value, normalizing numeric types across decoders
func valuesEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return a == b
}
