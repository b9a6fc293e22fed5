package pylon

import (
	"testing"
	"time"
)

func TestMockParameterLookup(t *testing.T) {
	c := NewMockCamera()
	p, err := c.Parameter("Gain")
	if err != nil {
		t.Fatalf("Parameter(Gain): %v", err)
	}
	n, ok := p.(NumericParameter)
	if !ok {
		t.Fatalf("Gain is not numeric")
	}
	v, _ := n.Get()
	if v != 20 {
		t.Errorf("Gain = %f, expected 20", v)
	}
	min, _ := n.Min()
	max, _ := n.Max()
	inc, _ := n.Increment()
	if min != 0 || max != 63 || inc != 2 {
		t.Errorf("Gain bounds [%f, %f] step %f, expected [0, 63] step 2", min, max, inc)
	}
}

func TestMockUnknownParameter(t *testing.T) {
	c := NewMockCamera()
	_, err := c.Parameter("NotAThing")
	if _, ok := err.(ErrParameterNotFound); !ok {
		t.Errorf("expected ErrParameterNotFound, got %v", err)
	}
}

func TestMockNoIncrement(t *testing.T) {
	c := NewMockCamera()
	p, _ := c.Parameter("ExposureTimeAbs")
	n := p.(NumericParameter)
	_, err := n.Increment()
	if err != ErrNoIncrement {
		t.Errorf("expected ErrNoIncrement, got %v", err)
	}
}

func TestMockWriteCounter(t *testing.T) {
	c := NewMockCamera()
	p, _ := c.Parameter("Gain")
	n := p.(NumericParameter)
	if err := n.Set(30); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if c.WriteCount() != 1 {
		t.Errorf("write count = %d, expected 1", c.WriteCount())
	}
	// reads must not count as writes
	n.Get()
	if c.WriteCount() != 1 {
		t.Errorf("write count after read = %d, expected 1", c.WriteCount())
	}
}

func TestMockEnumRejectsUnknownOption(t *testing.T) {
	c := NewMockCamera()
	p, _ := c.Parameter("TriggerMode")
	e := p.(EnumParameter)
	if err := e.Set("Sideways"); err == nil {
		t.Error("expected error setting TriggerMode to an unknown option")
	}
}

func TestMockUserSetRoundTrip(t *testing.T) {
	c := NewMockCamera()
	gain, _ := c.Parameter("Gain")
	n := gain.(NumericParameter)
	n.Set(44)
	if err := c.SaveUserSet(UserSet1); err != nil {
		t.Fatalf("SaveUserSet: %v", err)
	}
	n.Set(10)
	if err := c.LoadUserSet(UserSet1); err != nil {
		t.Fatalf("LoadUserSet: %v", err)
	}
	v, _ := n.Get()
	if v != 44 {
		t.Errorf("Gain after load = %f, expected 44", v)
	}
}

func TestMockLoadDefaultRestoresFactory(t *testing.T) {
	c := NewMockCamera()
	p, _ := c.Parameter("Gain")
	n := p.(NumericParameter)
	n.Set(60)
	if err := c.LoadUserSet(UserSetDefault); err != nil {
		t.Fatalf("LoadUserSet(Default): %v", err)
	}
	v, _ := n.Get()
	if v != 20 {
		t.Errorf("Gain after factory load = %f, expected 20", v)
	}
}

func TestMockSaveDefaultRejected(t *testing.T) {
	c := NewMockCamera()
	if err := c.SaveUserSet(UserSetDefault); err == nil {
		t.Error("expected saving the Default slot to be rejected")
	}
}

func TestMockRetrieveRequiresAcquisition(t *testing.T) {
	c := NewMockCamera()
	_, err := c.RetrieveFrame(time.Millisecond)
	if err == nil {
		t.Error("expected error retrieving without acquisition running")
	}
}

func TestMockRetrieveTimeout(t *testing.T) {
	c := NewMockCamera()
	c.StartAcquisition(LatestImageOnly)
	defer c.StopAcquisition()
	c.RetrieveShouldTimeout = true
	_, err := c.RetrieveFrame(50 * time.Millisecond)
	if !IsTimeout(err) {
		t.Errorf("expected acquisition timeout, got %v", err)
	}
}

func TestMockFrameShape(t *testing.T) {
	c := NewMockCamera()
	f, err := c.GrabOne(time.Second)
	if err != nil {
		t.Fatalf("GrabOne: %v", err)
	}
	if f.Format != Mono8 {
		t.Errorf("format = %s, expected Mono8", f.Format)
	}
	if len(f.Data) != f.Width*f.Height {
		t.Errorf("data length %d does not match %dx%d", len(f.Data), f.Width, f.Height)
	}
}

func TestFrameBufferLatestImageOnly(t *testing.T) {
	fb := newFrameBuffer(LatestImageOnly)
	fb.write(Frame{Width: 1})
	fb.write(Frame{Width: 2})
	fb.write(Frame{Width: 3})
	f, err := fb.next(time.Millisecond)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if f.Width != 3 {
		t.Errorf("delivered frame %d, expected the newest (3)", f.Width)
	}
	if fb.Dropped() != 2 {
		t.Errorf("dropped = %d, expected 2", fb.Dropped())
	}
	_, err = fb.next(time.Millisecond)
	if !IsTimeout(err) {
		t.Errorf("expected timeout on drained buffer, got %v", err)
	}
}

func TestFrameBufferOneByOne(t *testing.T) {
	fb := newFrameBuffer(OneByOne)
	for i := 1; i <= 3; i++ {
		fb.write(Frame{Width: i})
	}
	for i := 1; i <= 3; i++ {
		f, err := fb.next(time.Millisecond)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if f.Width != i {
			t.Errorf("frame %d delivered out of order as %d", i, f.Width)
		}
	}
	if fb.Dropped() != 0 {
		t.Errorf("dropped = %d, expected 0", fb.Dropped())
	}
}
