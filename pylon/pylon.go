/*Package pylon exposes control of Basler-style industrial cameras.

Cameras are modeled as a capability map: each named parameter is looked
up explicitly and returns a typed accessor with get/set and, for numeric
parameters, bounds and increment.  This replaces the dynamic attribute
access of vendor SDK bindings with an indexed property table.
*/
package pylon

import (
	"errors"
	"fmt"
	"time"
)

// ParamKind enumerates the types a camera parameter can take
type ParamKind int

// the parameter kinds
const (
	KindInt ParamKind = iota
	KindFloat
	KindBool
	KindEnum
	KindCommand
	KindString
)

func (k ParamKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindCommand:
		return "command"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Strategy is a frame buffering policy used during continuous acquisition
type Strategy int

const (
	// LatestImageOnly discards all but the most recently captured frame
	// when the consumer cannot keep pace.  Latency is favored over
	// completeness.
	LatestImageOnly Strategy = iota

	// OneByOne queues frames in capture order
	OneByOne
)

// UserSet is a named slot on the camera storing a full parameter snapshot
type UserSet string

// the fixed set of user set slots
const (
	UserSetDefault UserSet = "Default"
	UserSet1       UserSet = "UserSet1"
	UserSet2       UserSet = "UserSet2"
	UserSet3       UserSet = "UserSet3"
)

// UserSets returns the slots a camera exposes, in selector order
func UserSets() []UserSet {
	return []UserSet{UserSetDefault, UserSet1, UserSet2, UserSet3}
}

// ValidUserSet returns true if s names a real slot
func ValidUserSet(s UserSet) bool {
	switch s {
	case UserSetDefault, UserSet1, UserSet2, UserSet3:
		return true
	}
	return false
}

// PixelFormat tags the layout of the raw bytes in a Frame
type PixelFormat string

// the pixel formats emitted by cameras in this module
const (
	Mono8  PixelFormat = "Mono8"
	Mono16 PixelFormat = "Mono16"
	RGB8   PixelFormat = "RGB8"
	BGR8   PixelFormat = "BGR8"
)

// Frame is one raw image readout from a camera
type Frame struct {
	// Width is the frame width in pixels
	Width int

	// Height is the frame height in pixels
	Height int

	// Format describes the layout of Data
	Format PixelFormat

	// Data is the strided pixel buffer
	Data []byte
}

// Parameter is a named, typed camera capability
type Parameter interface {
	// Name is the parameter identifier, e.g. "GainRaw"
	Name() string

	// Kind is the type of the parameter
	Kind() ParamKind
}

// NumericParameter is a parameter with a numeric value and device bounds
type NumericParameter interface {
	Parameter

	Get() (float64, error)
	Set(float64) error

	// Min is the device-reported lower bound
	Min() (float64, error)

	// Max is the device-reported upper bound
	Max() (float64, error)

	// Increment is the device-reported step; ErrNoIncrement if none
	Increment() (float64, error)
}

// BoolParameter is a parameter with an on/off value
type BoolParameter interface {
	Parameter

	Get() (bool, error)
	Set(bool) error
}

// EnumParameter is a parameter whose value is one of a fixed option set
type EnumParameter interface {
	Parameter

	Get() (string, error)
	Set(string) error

	// Options returns the legal values in device order
	Options() ([]string, error)
}

// StringParameter is a read-mostly text parameter, e.g. a model name
type StringParameter interface {
	Parameter

	Get() (string, error)
}

// CommandParameter is a parameter which triggers an action when executed
type CommandParameter interface {
	Parameter

	Execute() error
}

// Camera is the full surface a control panel needs from a device
type Camera interface {
	// Parameter looks up a capability by name
	Parameter(name string) (Parameter, error)

	// Parameters lists the known capability names
	Parameters() []string

	// LoadUserSet restores the parameter snapshot in the given slot
	LoadUserSet(UserSet) error

	// SaveUserSet stores the current parameters into the given slot
	SaveUserSet(UserSet) error

	// StartAcquisition begins streaming frames under the given strategy
	StartAcquisition(Strategy) error

	// StopAcquisition ends streaming.  It must be safe to call when
	// acquisition is not running.
	StopAcquisition() error

	// Acquiring reports whether a stream is active
	Acquiring() bool

	// RetrieveFrame returns the next frame, waiting up to timeout
	RetrieveFrame(timeout time.Duration) (Frame, error)

	// GrabOne captures a single frame outside of streaming
	GrabOne(timeout time.Duration) (Frame, error)

	// ResultingFrameRate is the frame rate the device is achieving, in fps
	ResultingFrameRate() (float64, error)

	// Close releases the device
	Close() error
}

// ErrNoIncrement is returned by Increment for parameters without a step
var ErrNoIncrement = errors.New("parameter does not define an increment")

// ErrParameterNotFound is generated when a parameter is looked up on a
// camera but does not exist there
type ErrParameterNotFound struct {
	// Parameter is the specific parameter not found
	Parameter string
}

func (e ErrParameterNotFound) Error() string {
	return fmt.Sprintf("parameter %s not found on camera", e.Parameter)
}

// ErrAcquisitionTimeout is generated when no frame arrives within the
// wait bound
type ErrAcquisitionTimeout struct {
	// Timeout is the bound that elapsed
	Timeout time.Duration
}

func (e ErrAcquisitionTimeout) Error() string {
	return fmt.Sprintf("no frame received within %v", e.Timeout)
}

// IsTimeout returns true if err is an acquisition timeout
func IsTimeout(err error) bool {
	var t ErrAcquisitionTimeout
	return errors.As(err, &t)
}

// ErrWrongKind is generated when a parameter exists but is not of the
// kind the caller needs
type ErrWrongKind struct {
	Parameter string
	Want      ParamKind
	Have      ParamKind
}

func (e ErrWrongKind) Error() string {
	return fmt.Sprintf("parameter %s is %v, not %v", e.Parameter, e.Have, e.Want)
}
