// Package improc holds the image processing callback type for capture
// loops and a few ready-made processors.
package improc

import (
	"image"

	"github.com/disintegration/gift"
)

// Func transforms a frame.  Returning nil is an error unless the
// processor owns its own display.
type Func func(image.Image) image.Image

// Processor is a user supplied transform applied to every captured frame
type Processor struct {
	// Fn is the transform
	Fn Func

	// OwnsDisplay is true when the processor displays frames itself; the
	// capture loop then opens no window and ignores Fn's return value
	OwnsDisplay bool
}

// apply a gift filter list to an image
func filtered(g *gift.GIFT, src image.Image) image.Image {
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

// Grayscale returns a processor converting frames to grayscale
func Grayscale() Processor {
	g := gift.New(gift.Grayscale())
	return Processor{Fn: func(img image.Image) image.Image {
		return filtered(g, img)
	}}
}

// Resize returns a processor scaling frames to the given size
func Resize(width, height int) Processor {
	g := gift.New(gift.Resize(width, height, gift.LanczosResampling))
	return Processor{Fn: func(img image.Image) image.Image {
		return filtered(g, img)
	}}
}

// Edges returns a processor running a Sobel edge detector
func Edges() Processor {
	g := gift.New(gift.Grayscale(), gift.Sobel())
	return Processor{Fn: func(img image.Image) image.Image {
		return filtered(g, img)
	}}
}
