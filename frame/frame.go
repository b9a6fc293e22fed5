// Package frame converts raw camera readouts into displayable images.
package frame

import (
	"fmt"
	"image"
	"image/color"

	"github.com/basler-lab/pylonpanel/pylon"
)

// ErrShortBuffer is generated when a frame's pixel buffer does not match
// its stated geometry
type ErrShortBuffer struct {
	Want int
	Have int
}

func (e ErrShortBuffer) Error() string {
	return fmt.Sprintf("pixel buffer holds %d bytes, geometry requires %d", e.Have, e.Want)
}

// ToImage converts a raw frame to an image.Image suitable for display
// or encoding.  Mono16 data is assumed MSB aligned and is scaled down
// to 8 bits.
func ToImage(f pylon.Frame) (image.Image, error) {
	switch f.Format {
	case pylon.Mono8:
		return mono8(f)
	case pylon.Mono16:
		return mono16(f)
	case pylon.RGB8:
		return rgb8(f, 0, 2)
	case pylon.BGR8:
		return rgb8(f, 2, 0)
	default:
		return nil, fmt.Errorf("unknown pixel format %q", f.Format)
	}
}

func checkLen(f pylon.Frame, bpp int) error {
	want := f.Width * f.Height * bpp
	if len(f.Data) < want {
		return ErrShortBuffer{Want: want, Have: len(f.Data)}
	}
	return nil
}

func mono8(f pylon.Frame) (image.Image, error) {
	if err := checkLen(f, 1); err != nil {
		return nil, err
	}
	return &image.Gray{
		Pix:    f.Data,
		Stride: f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}, nil
}

func mono16(f pylon.Frame) (image.Image, error) {
	if err := checkLen(f, 2); err != nil {
		return nil, err
	}
	buf := make([]byte, f.Width*f.Height)
	for idx := 0; idx < len(buf); idx++ {
		// little endian 16-bit sample, scale 16 to 8 bits
		v := uint16(f.Data[2*idx]) | uint16(f.Data[2*idx+1])<<8
		buf[idx] = byte(v / 256)
	}
	return &image.Gray{
		Pix:    buf,
		Stride: f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}, nil
}

// rgb8 handles both RGB and BGR packed data; rOff and bOff give the
// offsets of the red and blue samples within each pixel triple
func rgb8(f pylon.Frame, rOff, bOff int) (image.Image, error) {
	if err := checkLen(f, 3); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			base := (y*f.Width + x) * 3
			img.SetRGBA(x, y, color.RGBA{
				R: f.Data[base+rOff],
				G: f.Data[base+1],
				B: f.Data[base+bOff],
				A: 255,
			})
		}
	}
	return img, nil
}
