package display

import (
	"errors"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Window is an OpenCV (highgui) backed Surface
type Window struct {
	win *gocv.Window
}

// NewWindow returns an unopened Window
func NewWindow() *Window {
	return &Window{}
}

// Open creates the window, resizing it if width and height are nonzero
func (w *Window) Open(name string, width, height int) error {
	w.win = gocv.NewWindow(name)
	if width > 0 && height > 0 {
		w.win.ResizeWindow(width, height)
	}
	return nil
}

// Show displays an image in the window
func (w *Window) Show(img image.Image) error {
	if w.win == nil {
		return errors.New("window is not open")
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()
	w.win.IMShow(mat)
	return nil
}

// WaitKey polls the keyboard, pumping the window event loop.  A zero
// duration blocks until a key is pressed.  When this Window was never
// opened (a processor owns its own window) the global highgui queue is
// pumped instead, so quit and save keys still arrive.
func (w *Window) WaitKey(d time.Duration) int {
	ms := int(d / time.Millisecond)
	if d > 0 && ms < 1 {
		ms = 1
	}
	var k int
	if w.win != nil {
		k = w.win.WaitKey(ms)
	} else {
		k = gocv.WaitKey(ms)
	}
	if k < 0 {
		return KeyNone
	}
	// mask to ascii, highgui returns platform dependent high bits
	return k & 0xFF
}

// Close destroys the window
func (w *Window) Close() error {
	if w.win == nil {
		return nil
	}
	err := w.win.Close()
	w.win = nil
	return err
}
