// Package capture runs single-shot and continuous acquisition against a
// panel-managed camera, displaying and optionally recording frames.
package capture

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/brandondube/ringo"
	"golang.org/x/time/rate"

	"github.com/basler-lab/pylonpanel/display"
	"github.com/basler-lab/pylonpanel/frame"
	"github.com/basler-lab/pylonpanel/imgrec"
	"github.com/basler-lab/pylonpanel/improc"
	"github.com/basler-lab/pylonpanel/panel"
	"github.com/basler-lab/pylonpanel/pylon"
)

// fpsWindow is the number of frame timestamps averaged for the status
// line frame rate
const fpsWindow = 16

// InvalidCallbackResult indicates a processing callback returned nil
// while the capture loop was responsible for displaying its output
type InvalidCallbackResult struct {
	// Stage names the operation the callback ran under
	Stage string
}

func (e InvalidCallbackResult) Error() string {
	return fmt.Sprintf("%s: processing callback returned nil but does not own the display", e.Stage)
}

// Session owns a camera for the duration of a capture run.  Zero values
// are usable: no recorder means no saving, no processor means frames are
// shown as captured.
type Session struct {
	// Cam is the camera frames come from
	Cam pylon.Camera

	// Panel, when non-nil, has its pending values applied before a run
	// starts and receives status line updates
	Panel *panel.Panel

	// Surface is the window frames are shown in
	Surface display.Surface

	// Recorder, when non-nil and enabled, saves frames on demand
	Recorder *imgrec.Recorder

	// Processor transforms frames before display
	Processor improc.Processor

	// WindowName titles the display window
	WindowName string

	// WindowWidth and WindowHeight size the display window explicitly;
	// zero leaves sizing to the surface (single shot sizes to the frame)
	WindowWidth  int
	WindowHeight int

	// MaxDisplayFPS throttles how often frames are pushed to the window;
	// zero means every frame is shown
	MaxDisplayFPS float64

	// Timeout bounds each frame retrieval; zero means 5s
	Timeout time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func (s *Session) timeout() time.Duration {
	if s.Timeout == 0 {
		return 5 * time.Second
	}
	return s.Timeout
}

func (s *Session) status(format string, args ...interface{}) {
	if s.Panel != nil {
		s.Panel.SetStatus(fmt.Sprintf(format, args...))
	}
}

// Running reports whether a continuous run is in progress
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop ends a continuous run from another goroutine.  A run started
// after this call is unaffected.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stop)
		s.running = false
	}
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("a capture run is already in progress")
	}
	s.running = true
	s.stop = make(chan struct{})
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *Session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// process runs the frame through the processor, enforcing the display
// ownership contract
func (s *Session) process(img image.Image, stage string) (image.Image, error) {
	if s.Processor.Fn == nil {
		return img, nil
	}
	out := s.Processor.Fn(img)
	if out == nil && !s.Processor.OwnsDisplay {
		return nil, InvalidCallbackResult{Stage: stage}
	}
	return out, nil
}

func (s *Session) save(img image.Image) {
	if s.Recorder == nil || !s.Recorder.Enabled {
		s.status("no recorder configured, frame not saved")
		return
	}
	path, err := s.Recorder.Save(img)
	if err != nil {
		s.status("save failed: %v", err)
		return
	}
	s.status("saved %s", path)
}

// openSize picks the window geometry: an explicit size wins, otherwise
// the frame's own dimensions
func (s *Session) openSize(f pylon.Frame) (int, int) {
	if s.WindowWidth > 0 && s.WindowHeight > 0 {
		return s.WindowWidth, s.WindowHeight
	}
	return f.Width, f.Height
}

/*SingleShot applies pending panel values, grabs one frame, and shows it
until the quit key dismisses it.  The save key writes the frame through
the recorder; any other key is ignored.

An acquisition timeout is reported on the status line and is not an
error; the bench stays usable.  The window and the camera are released
on every path.
*/
func (s *Session) SingleShot() error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()
	if s.Panel != nil {
		if err := s.Panel.ApplyPending(); err != nil {
			return err
		}
	}
	f, err := s.Cam.GrabOne(s.timeout())
	if err != nil {
		if pylon.IsTimeout(err) {
			s.status("acquisition timed out after %v", s.timeout())
			return nil
		}
		return err
	}
	img, err := frame.ToImage(f)
	if err != nil {
		return err
	}
	img, err = s.process(img, "single shot")
	if err != nil {
		return err
	}
	if !s.Processor.OwnsDisplay {
		w, h := s.openSize(f)
		if err := s.Surface.Open(s.WindowName, w, h); err != nil {
			return err
		}
		defer s.Surface.Close()
		if err := s.Surface.Show(img); err != nil {
			return err
		}
	}
	s.status("single shot complete")
	// the frame stays up until dismissed, even when the processor owns
	// the display
	for {
		switch s.Surface.WaitKey(0) {
		case display.KeySave:
			// img is nil when an owning processor consumed the frame;
			// there is nothing of ours to save then
			if img != nil {
				s.save(img)
			}
		case display.KeyQuit:
			return nil
		}
	}
}

/*Continuous streams frames until the quit key is pressed or Stop is
called.  The save key writes the frame on screen through the recorder.

Acquisition timeouts are reported on the status line and the loop keeps
going.  StopAcquisition and window teardown run on every exit path.
*/
func (s *Session) Continuous(strategy pylon.Strategy) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()
	if s.Panel != nil {
		if err := s.Panel.ApplyPending(); err != nil {
			return err
		}
	}
	if err := s.Cam.StartAcquisition(strategy); err != nil {
		return err
	}
	defer s.Cam.StopAcquisition()

	if !s.Processor.OwnsDisplay {
		if err := s.Surface.Open(s.WindowName, s.WindowWidth, s.WindowHeight); err != nil {
			return err
		}
		defer s.Surface.Close()
	}

	var limiter *rate.Limiter
	if s.MaxDisplayFPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.MaxDisplayFPS), 1)
	}
	times := ringo.CircleTime{}
	times.Init(fpsWindow)

	for !s.stopped() {
		f, err := s.Cam.RetrieveFrame(s.timeout())
		if err != nil {
			if pylon.IsTimeout(err) {
				s.status("acquisition timed out after %v", s.timeout())
				continue
			}
			return err
		}
		times.Append(time.Now())
		img, err := frame.ToImage(f)
		if err != nil {
			return err
		}
		img, err = s.process(img, "continuous shot")
		if err != nil {
			return err
		}
		if !s.Processor.OwnsDisplay && (limiter == nil || limiter.Allow()) {
			if err := s.Surface.Show(img); err != nil {
				return err
			}
		}
		s.status("streaming at %.1f fps", measureFPS(&times))
		switch s.Surface.WaitKey(time.Millisecond) {
		case display.KeyQuit:
			s.status("streaming stopped")
			return nil
		case display.KeySave:
			s.save(img)
		}
	}
	s.status("streaming stopped")
	return nil
}

// measureFPS averages the frame rate over the timestamp window
func measureFPS(times *ringo.CircleTime) float64 {
	stamps := times.Contiguous()
	if len(stamps) < 2 {
		return 0
	}
	span := stamps[len(stamps)-1].Sub(stamps[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(stamps)-1) / span
}
