// Package display abstracts the window a capture loop shows frames in.
package display

import (
	"image"
	"time"
)

// key codes reported by WaitKey
const (
	// KeyNone is returned when no key was pressed within the polling tick
	KeyNone = -1

	// KeyQuit ends a capture loop
	KeyQuit = 'q'

	// KeySave writes the current frame to disk
	KeySave = 's'
)

// Surface is a window frames can be shown in, with keyboard polling.
// Implementations are not safe for concurrent use; the capture loop owns
// the surface for its whole run.
type Surface interface {
	// Open creates the window.  Width/height of 0 leaves sizing to the
	// implementation.
	Open(name string, width, height int) error

	// Show displays an image in the window
	Show(image.Image) error

	// WaitKey polls the keyboard for up to the given duration, returning
	// the key code or KeyNone.  A zero duration blocks until a key is
	// pressed.
	WaitKey(time.Duration) int

	// Close destroys the window.  Safe to call when never opened.
	Close() error
}
