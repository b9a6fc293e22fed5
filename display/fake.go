package display

import (
	"image"
	"time"
)

// FakeSurface is a scripted Surface for tests.  Each WaitKey call pops
// the next key from Keys; when the script is exhausted KeyQuit is
// returned so loops under test always terminate.
type FakeSurface struct {
	// Keys is the script of key codes to report, in order
	Keys []int

	// Opened tracks whether Open was called
	Opened bool

	// Closed tracks whether Close was called
	Closed bool

	// Shown holds every image passed to Show
	Shown []image.Image

	// OpenName, OpenWidth, OpenHeight record the Open arguments
	OpenName  string
	OpenWidth int

	OpenHeight int

	cursor int
}

// Open records the window geometry
func (f *FakeSurface) Open(name string, width, height int) error {
	f.Opened = true
	f.OpenName = name
	f.OpenWidth = width
	f.OpenHeight = height
	return nil
}

// Show records the image
func (f *FakeSurface) Show(img image.Image) error {
	f.Shown = append(f.Shown, img)
	return nil
}

// WaitKey pops the next scripted key
func (f *FakeSurface) WaitKey(time.Duration) int {
	if f.cursor >= len(f.Keys) {
		return KeyQuit
	}
	k := f.Keys[f.cursor]
	f.cursor++
	return k
}

// Close records teardown
func (f *FakeSurface) Close() error {
	f.Closed = true
	return nil
}
