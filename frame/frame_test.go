package frame

import (
	"image"
	"testing"

	"github.com/basler-lab/pylonpanel/pylon"
)

func TestMono8(t *testing.T) {
	f := pylon.Frame{Width: 2, Height: 2, Format: pylon.Mono8, Data: []byte{0, 85, 170, 255}}
	img, err := ToImage(f)
	if err != nil {
		t.Fatalf("ToImage: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("expected *image.Gray, got %T", img)
	}
	if gray.GrayAt(1, 1).Y != 255 {
		t.Errorf("pixel (1,1) = %d, expected 255", gray.GrayAt(1, 1).Y)
	}
}

func TestMono16Scaling(t *testing.T) {
	// one pixel at full scale, one at half, little endian
	f := pylon.Frame{Width: 2, Height: 1, Format: pylon.Mono16,
		Data: []byte{0xFF, 0xFF, 0x00, 0x80}}
	img, err := ToImage(f)
	if err != nil {
		t.Fatalf("ToImage: %v", err)
	}
	gray := img.(*image.Gray)
	if gray.GrayAt(0, 0).Y != 255 {
		t.Errorf("full scale pixel = %d, expected 255", gray.GrayAt(0, 0).Y)
	}
	if gray.GrayAt(1, 0).Y != 128 {
		t.Errorf("half scale pixel = %d, expected 128", gray.GrayAt(1, 0).Y)
	}
}

func TestBGRSwapsChannels(t *testing.T) {
	// a single pure-red pixel stored BGR
	f := pylon.Frame{Width: 1, Height: 1, Format: pylon.BGR8, Data: []byte{0, 0, 255}}
	img, err := ToImage(f)
	if err != nil {
		t.Fatalf("ToImage: %v", err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 {
		t.Errorf("pixel = (%d, %d, %d), expected pure red", r>>8, g>>8, b>>8)
	}
}

func TestRGBPassthrough(t *testing.T) {
	f := pylon.Frame{Width: 1, Height: 1, Format: pylon.RGB8, Data: []byte{255, 0, 0}}
	img, err := ToImage(f)
	if err != nil {
		t.Fatalf("ToImage: %v", err)
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 {
		t.Errorf("red = %d, expected 255", r>>8)
	}
}

func TestShortBuffer(t *testing.T) {
	f := pylon.Frame{Width: 4, Height: 4, Format: pylon.Mono8, Data: []byte{1, 2, 3}}
	_, err := ToImage(f)
	if _, ok := err.(ErrShortBuffer); !ok {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
}

func TestUnknownFormat(t *testing.T) {
	f := pylon.Frame{Width: 1, Height: 1, Format: "BayerGR12", Data: []byte{0}}
	_, err := ToImage(f)
	if err == nil {
		t.Error("expected error for unknown pixel format")
	}
}
