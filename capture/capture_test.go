package capture

import (
	"image"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/basler-lab/pylonpanel/display"
	"github.com/basler-lab/pylonpanel/imgrec"
	"github.com/basler-lab/pylonpanel/improc"
	"github.com/basler-lab/pylonpanel/panel"
	"github.com/basler-lab/pylonpanel/pylon"
)

func testPanel(t *testing.T, cam pylon.Camera) *panel.Panel {
	t.Helper()
	cfg := panel.Config{Features: []panel.FeatureDescriptor{
		{Name: "Gain", Kind: panel.NumericSlider},
	}}
	p, err := panel.Interpret(cfg, cam)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func testRecorder(t *testing.T) *imgrec.Recorder {
	t.Helper()
	return &imgrec.Recorder{Root: t.TempDir(), Prefix: "cap", Format: "png", Enabled: true}
}

func TestSingleShot(t *testing.T) {
	cam := pylon.NewMockCamera()
	surf := &display.FakeSurface{}
	p := testPanel(t, cam)
	p.SetValue("Gain", 8)
	s := Session{Cam: cam, Panel: p, Surface: surf, Recorder: testRecorder(t), WindowName: "bench"}
	cam.ResetWriteCount()
	if err := s.SingleShot(); err != nil {
		t.Fatalf("SingleShot: %v", err)
	}
	if n := cam.WriteCount(); n != 1 {
		t.Errorf("pending gain change should be applied once before grab, got %d writes", n)
	}
	if !surf.Opened || !surf.Closed {
		t.Error("window should be opened and closed")
	}
	if len(surf.Shown) != 1 {
		t.Fatalf("expected one displayed frame, got %d", len(surf.Shown))
	}
	if !strings.Contains(p.Status(), "single shot complete") {
		t.Errorf("status = %q", p.Status())
	}
}

// the save key records the displayed frame; the quit key then dismisses
// it
func TestSingleShotSaveThenQuit(t *testing.T) {
	cam := pylon.NewMockCamera()
	surf := &display.FakeSurface{Keys: []int{display.KeySave, display.KeyQuit}}
	p := testPanel(t, cam)
	rec := testRecorder(t)
	s := Session{Cam: cam, Panel: p, Surface: surf, Recorder: rec}
	if err := s.SingleShot(); err != nil {
		t.Fatalf("SingleShot: %v", err)
	}
	if !strings.Contains(p.Status(), "saved") {
		t.Errorf("status = %q, expected a saved path", p.Status())
	}
	entries, err := os.ReadDir(rec.Root)
	if err != nil || len(entries) == 0 {
		t.Errorf("recorder root should hold a dated folder, err %v", err)
	}
}

// a plain dismissal must not write a file; only the save key does
func TestSingleShotQuitDoesNotSave(t *testing.T) {
	cam := pylon.NewMockCamera()
	p := testPanel(t, cam)
	rec := testRecorder(t)
	s := Session{Cam: cam, Panel: p, Surface: &display.FakeSurface{}, Recorder: rec}
	if err := s.SingleShot(); err != nil {
		t.Fatalf("SingleShot: %v", err)
	}
	if strings.Contains(p.Status(), "saved") {
		t.Errorf("status = %q, nothing should have been saved", p.Status())
	}
	entries, err := os.ReadDir(rec.Root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("recorder root should be empty, holds %d entries", len(entries))
	}
}

// keys the loop does not understand are ignored, not treated as quit
func TestSingleShotIgnoresOtherKeys(t *testing.T) {
	cam := pylon.NewMockCamera()
	surf := &display.FakeSurface{Keys: []int{'x', display.KeyNone, display.KeySave, display.KeyQuit}}
	p := testPanel(t, cam)
	s := Session{Cam: cam, Panel: p, Surface: surf, Recorder: testRecorder(t)}
	if err := s.SingleShot(); err != nil {
		t.Fatalf("SingleShot: %v", err)
	}
	if !strings.Contains(p.Status(), "saved") {
		t.Errorf("status = %q, save key after stray keys should still record", p.Status())
	}
}

// an owning processor suppresses the window but the key wait still runs
// until quit
func TestSingleShotOwnsDisplay(t *testing.T) {
	cam := pylon.NewMockCamera()
	surf := &display.FakeSurface{Keys: []int{display.KeySave, display.KeyQuit}}
	var got int
	proc := improc.Processor{
		OwnsDisplay: true,
		Fn: func(img image.Image) image.Image {
			got++
			return nil
		},
	}
	p := testPanel(t, cam)
	s := Session{Cam: cam, Panel: p, Surface: surf, Processor: proc, Recorder: testRecorder(t)}
	if err := s.SingleShot(); err != nil {
		t.Fatalf("SingleShot: %v", err)
	}
	if surf.Opened {
		t.Error("no window should be opened when the processor owns the display")
	}
	if got != 1 {
		t.Errorf("processor should have seen 1 frame, saw %d", got)
	}
	// the save key has nothing of ours to write when the processor kept
	// the frame
	if strings.Contains(p.Status(), "saved") {
		t.Errorf("status = %q", p.Status())
	}
}

func TestWindowSizeExplicit(t *testing.T) {
	cam := pylon.NewMockCamera()
	surf := &display.FakeSurface{}
	s := Session{Cam: cam, Surface: surf, WindowWidth: 800, WindowHeight: 600}
	if err := s.SingleShot(); err != nil {
		t.Fatalf("SingleShot: %v", err)
	}
	if surf.OpenWidth != 800 || surf.OpenHeight != 600 {
		t.Errorf("window opened %dx%d, expected 800x600", surf.OpenWidth, surf.OpenHeight)
	}
}

func TestWindowSizeDefaultsToFrame(t *testing.T) {
	cam := pylon.NewMockCamera() // frames are 64x48
	surf := &display.FakeSurface{}
	s := Session{Cam: cam, Surface: surf}
	if err := s.SingleShot(); err != nil {
		t.Fatalf("SingleShot: %v", err)
	}
	if surf.OpenWidth != 64 || surf.OpenHeight != 48 {
		t.Errorf("window opened %dx%d, expected the frame's 64x48", surf.OpenWidth, surf.OpenHeight)
	}
}

func TestSingleShotTimeoutIsNotFatal(t *testing.T) {
	cam := pylon.NewMockCamera()
	cam.GrabShouldTimeout = true
	p := testPanel(t, cam)
	s := Session{Cam: cam, Panel: p, Surface: &display.FakeSurface{}}
	if err := s.SingleShot(); err != nil {
		t.Fatalf("timeout should be reported, not returned: %v", err)
	}
	if !strings.Contains(p.Status(), "timed out") {
		t.Errorf("status = %q", p.Status())
	}
}

func TestContinuous(t *testing.T) {
	cam := pylon.NewMockCamera()
	surf := &display.FakeSurface{Keys: []int{display.KeyNone, display.KeySave, display.KeyQuit}}
	p := testPanel(t, cam)
	rec := testRecorder(t)
	s := Session{Cam: cam, Panel: p, Surface: surf, Recorder: rec, WindowName: "bench"}
	if err := s.Continuous(pylon.LatestImageOnly); err != nil {
		t.Fatalf("Continuous: %v", err)
	}
	if cam.Acquiring() {
		t.Error("acquisition should be stopped after the loop exits")
	}
	if !surf.Closed {
		t.Error("window should be torn down after the loop exits")
	}
	if len(surf.Shown) != 3 {
		t.Errorf("expected 3 displayed frames, got %d", len(surf.Shown))
	}
	if !strings.Contains(p.Status(), "stopped") {
		t.Errorf("status = %q", p.Status())
	}
}

func TestContinuousTimeoutKeepsStreaming(t *testing.T) {
	cam := pylon.NewMockCamera()
	cam.RetrieveShouldTimeout = true
	p := testPanel(t, cam)
	surf := &display.FakeSurface{}
	s := Session{Cam: cam, Panel: p, Surface: surf}
	done := make(chan error, 1)
	go func() { done <- s.Continuous(pylon.LatestImageOnly) }()
	time.Sleep(20 * time.Millisecond)
	if !strings.Contains(p.Status(), "timed out") {
		t.Errorf("status = %q", p.Status())
	}
	s.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Continuous: %v", err)
	}
	if len(surf.Shown) != 0 {
		t.Errorf("no frame should have been shown, got %d", len(surf.Shown))
	}
}

func TestContinuousNilCallbackResult(t *testing.T) {
	cam := pylon.NewMockCamera()
	surf := &display.FakeSurface{Keys: []int{display.KeyNone}}
	proc := improc.Processor{Fn: func(image.Image) image.Image { return nil }}
	s := Session{Cam: cam, Surface: surf, Processor: proc}
	err := s.Continuous(pylon.LatestImageOnly)
	if _, ok := err.(InvalidCallbackResult); !ok {
		t.Fatalf("expected InvalidCallbackResult, got %v", err)
	}
	if cam.Acquiring() {
		t.Error("acquisition should be stopped even on callback error")
	}
	if !surf.Closed {
		t.Error("window should be torn down even on callback error")
	}
}

// a processor that owns the display suppresses the loop's own window
func TestContinuousProcessorOwnsDisplay(t *testing.T) {
	cam := pylon.NewMockCamera()
	surf := &display.FakeSurface{Keys: []int{display.KeyQuit}}
	var got int
	proc := improc.Processor{
		OwnsDisplay: true,
		Fn: func(img image.Image) image.Image {
			got++
			return nil
		},
	}
	s := Session{Cam: cam, Surface: surf, Processor: proc}
	if err := s.Continuous(pylon.LatestImageOnly); err != nil {
		t.Fatalf("Continuous: %v", err)
	}
	if surf.Opened {
		t.Error("loop should not open a window when the processor owns the display")
	}
	if len(surf.Shown) != 0 {
		t.Errorf("loop should not show frames itself, got %d", len(surf.Shown))
	}
	if got != 1 {
		t.Errorf("processor should have seen 1 frame, saw %d", got)
	}
}

func TestContinuousRejectsOverlap(t *testing.T) {
	cam := pylon.NewMockCamera()
	cam.RetrieveShouldTimeout = true
	s := Session{Cam: cam, Surface: &display.FakeSurface{}}
	done := make(chan error, 1)
	go func() { done <- s.Continuous(pylon.LatestImageOnly) }()
	for !s.Running() {
		time.Sleep(time.Millisecond)
	}
	if err := s.SingleShot(); err == nil {
		t.Error("overlapping run should be rejected")
	}
	s.Stop()
	<-done
}

func TestSingleShotNoRecorder(t *testing.T) {
	cam := pylon.NewMockCamera()
	p := testPanel(t, cam)
	s := Session{Cam: cam, Panel: p, Surface: &display.FakeSurface{}}
	if err := s.SingleShot(); err != nil {
		t.Fatalf("SingleShot: %v", err)
	}
}
