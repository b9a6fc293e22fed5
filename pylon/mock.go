package pylon

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// mockState is a snapshot of one parameter's value
type mockState struct {
	f float64
	b bool
	s string
}

type mockParam struct {
	name    string
	kind    ParamKind
	f       float64
	b       bool
	s       string
	min     float64
	max     float64
	inc     float64
	hasInc  bool
	options []string
}

func (p *mockParam) state() mockState {
	return mockState{f: p.f, b: p.b, s: p.s}
}

// MockCamera is an in-memory camera used for tests and for serving on a
// bench without hardware.  It records every device write so callers can
// verify that an operation did or did not touch the device.
type MockCamera struct {
	sync.Mutex

	params map[string]*mockParam
	sets   map[UserSet]map[string]mockState

	writes    int
	acquiring bool
	strategy  Strategy
	seq       int
	frameRate float64

	// RetrieveShouldTimeout forces RetrieveFrame to fail with
	// ErrAcquisitionTimeout
	RetrieveShouldTimeout bool

	// GrabShouldTimeout forces GrabOne to fail with ErrAcquisitionTimeout
	GrabShouldTimeout bool
}

// NewMockCamera returns a mock with a parameter table resembling a small
// GigE area-scan camera.  The factory state is stored in the Default
// user set slot.
func NewMockCamera() *MockCamera {
	c := &MockCamera{
		params:    map[string]*mockParam{},
		sets:      map[UserSet]map[string]mockState{},
		frameRate: 30,
	}
	add := func(p *mockParam) { c.params[p.name] = p }
	add(&mockParam{name: "Gain", kind: KindInt, f: 20, min: 0, max: 63, inc: 2, hasInc: true})
	add(&mockParam{name: "BlackLevelRaw", kind: KindInt, f: 64, min: 0, max: 1023, inc: 1, hasInc: true})
	add(&mockParam{name: "ExposureTimeAbs", kind: KindFloat, f: 10000, min: 34, max: 1e6})
	add(&mockParam{name: "AcquisitionFrameRateAbs", kind: KindFloat, f: 30, min: 1, max: 120})
	add(&mockParam{name: "AcquisitionFrameRateEnable", kind: KindBool, b: false})
	add(&mockParam{name: "ReverseX", kind: KindBool, b: false})
	add(&mockParam{name: "Width", kind: KindInt, f: 64, min: 16, max: 640, inc: 2, hasInc: true})
	add(&mockParam{name: "Height", kind: KindInt, f: 48, min: 16, max: 480, inc: 2, hasInc: true})
	add(&mockParam{name: "TriggerMode", kind: KindEnum, s: "Off", options: []string{"Off", "On"}})
	add(&mockParam{name: "ExposureAuto", kind: KindEnum, s: "Off", options: []string{"Off", "Once", "Continuous"}})
	add(&mockParam{name: "GainAuto", kind: KindEnum, s: "Off", options: []string{"Off", "Once", "Continuous"}})
	add(&mockParam{name: "PixelFormat", kind: KindEnum, s: "Mono8", options: []string{"Mono8", "RGB8"}})
	add(&mockParam{name: "TimestampReset", kind: KindCommand})
	add(&mockParam{name: "DeviceModelName", kind: KindString, s: "mockCA640-120gm"})
	c.sets[UserSetDefault] = c.snapshot()
	return c
}

// AddParameter installs an extra numeric parameter; handy for tests that
// need specific device-reported bounds
func (c *MockCamera) AddParameter(name string, kind ParamKind, value, min, max, inc float64) {
	c.Lock()
	defer c.Unlock()
	p := &mockParam{name: name, kind: kind, f: value, min: min, max: max}
	if inc != 0 {
		p.inc = inc
		p.hasInc = true
	}
	c.params[name] = p
}

func (c *MockCamera) snapshot() map[string]mockState {
	out := make(map[string]mockState, len(c.params))
	for k, v := range c.params {
		out[k] = v.state()
	}
	return out
}

// WriteCount returns the number of device writes seen so far
func (c *MockCamera) WriteCount() int {
	c.Lock()
	defer c.Unlock()
	return c.writes
}

// ResetWriteCount zeros the device write counter
func (c *MockCamera) ResetWriteCount() {
	c.Lock()
	defer c.Unlock()
	c.writes = 0
}

// Parameter looks up a capability by name
func (c *MockCamera) Parameter(name string) (Parameter, error) {
	c.Lock()
	defer c.Unlock()
	p, ok := c.params[name]
	if !ok {
		return nil, ErrParameterNotFound{Parameter: name}
	}
	switch p.kind {
	case KindInt, KindFloat:
		return &mockNumeric{c: c, p: p}, nil
	case KindBool:
		return &mockBool{c: c, p: p}, nil
	case KindEnum:
		return &mockEnum{c: c, p: p}, nil
	case KindCommand:
		return &mockCommand{c: c, p: p}, nil
	default:
		return &mockString{c: c, p: p}, nil
	}
}

// Parameters lists the capability names in sorted order
func (c *MockCamera) Parameters() []string {
	c.Lock()
	defer c.Unlock()
	out := make([]string, 0, len(c.params))
	for k := range c.params {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadUserSet restores the snapshot in the given slot
func (c *MockCamera) LoadUserSet(s UserSet) error {
	if !ValidUserSet(s) {
		return fmt.Errorf("unknown user set %q", s)
	}
	c.Lock()
	defer c.Unlock()
	snap, ok := c.sets[s]
	if !ok {
		return fmt.Errorf("user set %q has never been saved", s)
	}
	for name, st := range snap {
		if p, ok := c.params[name]; ok {
			p.f, p.b, p.s = st.f, st.b, st.s
		}
	}
	return nil
}

// SaveUserSet stores the current parameters into the given slot
func (c *MockCamera) SaveUserSet(s UserSet) error {
	if !ValidUserSet(s) {
		return fmt.Errorf("unknown user set %q", s)
	}
	if s == UserSetDefault {
		return fmt.Errorf("user set %q is read-only", s)
	}
	c.Lock()
	defer c.Unlock()
	c.sets[s] = c.snapshot()
	return nil
}

// StartAcquisition begins the synthetic frame stream
func (c *MockCamera) StartAcquisition(s Strategy) error {
	c.Lock()
	defer c.Unlock()
	c.acquiring = true
	c.strategy = s
	return nil
}

// StopAcquisition ends the synthetic frame stream
func (c *MockCamera) StopAcquisition() error {
	c.Lock()
	defer c.Unlock()
	c.acquiring = false
	return nil
}

// Acquiring reports whether the stream is active
func (c *MockCamera) Acquiring() bool {
	c.Lock()
	defer c.Unlock()
	return c.acquiring
}

// RetrieveFrame returns the next synthetic frame
func (c *MockCamera) RetrieveFrame(timeout time.Duration) (Frame, error) {
	c.Lock()
	defer c.Unlock()
	if !c.acquiring {
		return Frame{}, fmt.Errorf("camera is not acquiring")
	}
	if c.RetrieveShouldTimeout {
		return Frame{}, ErrAcquisitionTimeout{Timeout: timeout}
	}
	return c.genFrame(), nil
}

// GrabOne captures a single synthetic frame
func (c *MockCamera) GrabOne(timeout time.Duration) (Frame, error) {
	c.Lock()
	defer c.Unlock()
	if c.GrabShouldTimeout {
		return Frame{}, ErrAcquisitionTimeout{Timeout: timeout}
	}
	return c.genFrame(), nil
}

// genFrame fabricates a gradient frame from the Width/Height/PixelFormat
// parameters.  Callers hold the lock.
func (c *MockCamera) genFrame() Frame {
	w := int(c.params["Width"].f)
	h := int(c.params["Height"].f)
	format := Mono8
	bpp := 1
	if c.params["PixelFormat"].s == "RGB8" {
		format = RGB8
		bpp = 3
	}
	data := make([]byte, w*h*bpp)
	for i := range data {
		data[i] = byte((i + c.seq) % 256)
	}
	c.seq++
	return Frame{Width: w, Height: h, Format: format, Data: data}
}

// ResultingFrameRate is the frame rate the device reports, in fps
func (c *MockCamera) ResultingFrameRate() (float64, error) {
	c.Lock()
	defer c.Unlock()
	return c.frameRate, nil
}

// Close releases the device
func (c *MockCamera) Close() error {
	return c.StopAcquisition()
}

type mockNumeric struct {
	c *MockCamera
	p *mockParam
}

func (m *mockNumeric) Name() string    { return m.p.name }
func (m *mockNumeric) Kind() ParamKind { return m.p.kind }

func (m *mockNumeric) Get() (float64, error) {
	m.c.Lock()
	defer m.c.Unlock()
	return m.p.f, nil
}

func (m *mockNumeric) Set(v float64) error {
	m.c.Lock()
	defer m.c.Unlock()
	if v < m.p.min || v > m.p.max {
		return fmt.Errorf("%s: value %v outside range [%v, %v]", m.p.name, v, m.p.min, m.p.max)
	}
	m.p.f = v
	m.c.writes++
	return nil
}

func (m *mockNumeric) Min() (float64, error) { return m.p.min, nil }
func (m *mockNumeric) Max() (float64, error) { return m.p.max, nil }

func (m *mockNumeric) Increment() (float64, error) {
	if !m.p.hasInc {
		return 0, ErrNoIncrement
	}
	return m.p.inc, nil
}

type mockBool struct {
	c *MockCamera
	p *mockParam
}

func (m *mockBool) Name() string    { return m.p.name }
func (m *mockBool) Kind() ParamKind { return m.p.kind }

func (m *mockBool) Get() (bool, error) {
	m.c.Lock()
	defer m.c.Unlock()
	return m.p.b, nil
}

func (m *mockBool) Set(v bool) error {
	m.c.Lock()
	defer m.c.Unlock()
	m.p.b = v
	m.c.writes++
	return nil
}

type mockEnum struct {
	c *MockCamera
	p *mockParam
}

func (m *mockEnum) Name() string    { return m.p.name }
func (m *mockEnum) Kind() ParamKind { return m.p.kind }

func (m *mockEnum) Get() (string, error) {
	m.c.Lock()
	defer m.c.Unlock()
	return m.p.s, nil
}

func (m *mockEnum) Set(v string) error {
	m.c.Lock()
	defer m.c.Unlock()
	for _, opt := range m.p.options {
		if opt == v {
			m.p.s = v
			m.c.writes++
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %v", m.p.name, v, m.p.options)
}

func (m *mockEnum) Options() ([]string, error) { return m.p.options, nil }

type mockCommand struct {
	c *MockCamera
	p *mockParam
}

func (m *mockCommand) Name() string    { return m.p.name }
func (m *mockCommand) Kind() ParamKind { return m.p.kind }

func (m *mockCommand) Execute() error {
	m.c.Lock()
	defer m.c.Unlock()
	m.c.writes++
	return nil
}

type mockString struct {
	c *MockCamera
	p *mockParam
}

func (m *mockString) Name() string    { return m.p.name }
func (m *mockString) Kind() ParamKind { return m.p.kind }

func (m *mockString) Get() (string, error) {
	m.c.Lock()
	defer m.c.Unlock()
	return m.p.s, nil
}
