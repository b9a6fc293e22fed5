package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/basler-lab/pylonpanel/util"
)

func ExampleInsertSpaces() {
	fmt.Println(util.InsertSpaces("ExposureTimeAbs"))
	// Output: Exposure Time Abs
}

func ExampleInsertSpaces_acronym() {
	fmt.Println(util.InsertSpaces("AOIWidth"))
	// Output: AOIWidth
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != low {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampPassthrough(t *testing.T) {
	if out := util.Clamp(5, 0, 10); out != 5 {
		t.Errorf("in-range value should be unmodified, got %f", out)
	}
}

func TestAllElementsNumbers(t *testing.T) {
	cases := []struct {
		inp      string
		expected bool
	}{
		{"123", true},
		{"1.5", true},
		{"25ms", false},
		{"", true},
	}
	for _, tc := range cases {
		if out := util.AllElementsNumbers(tc.inp); out != tc.expected {
			t.Errorf("AllElementsNumbers(%q) = %v, expected %v", tc.inp, out, tc.expected)
		}
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
