// Package imgrec contains an image recorder used to save captured frames
// to disk.
package imgrec

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path"
	"strings"
	"time"

	"github.com/astrogo/fitsio"
)

// Recorder writes frames as <prefix>-<unix timestamp>.<ext> files in
// yyyy-mm-dd subfolders of its root.  It is not thread safe.
type Recorder struct {
	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// Format selects the output encoding: png, jpg, or fits.  Empty
	// means png.
	Format string

	// Enabled is a flag unused by this struct that allows consumers to
	// disable its use in their code
	Enabled bool
}

// timeFldr returns the dated subfolder name for the current time
func timeFldr() string {
	now := time.Now()
	return fmt.Sprintf("%04d-%02d-%02d", now.Year(), now.Month(), now.Day())
}

// mkDir makes the dated folder and returns it
func (r *Recorder) mkDir() (string, error) {
	fldr := path.Join(r.Root, timeFldr())
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

// ext returns the filename extension for the configured format
func (r *Recorder) ext() string {
	f := strings.ToLower(r.Format)
	switch f {
	case "", "png":
		return "png"
	case "jpg", "jpeg":
		return "jpg"
	case "fits":
		return "fits"
	}
	return f
}

// Save writes an image to disk and returns the path written
func (r *Recorder) Save(img image.Image) (string, error) {
	fldr, err := r.mkDir()
	if err != nil {
		return "", err
	}
	fn := fmt.Sprintf("%s-%d.%s", r.Prefix, time.Now().Unix(), r.ext())
	fn = path.Join(fldr, fn)
	fid, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	defer fid.Close()
	switch r.ext() {
	case "png":
		err = png.Encode(fid, img)
	case "jpg":
		err = jpeg.Encode(fid, img, nil)
	case "fits":
		err = writeFits(fid, img)
	default:
		err = fmt.Errorf("unknown image format %q", r.Format)
	}
	if err != nil {
		return "", err
	}
	return fn, nil
}

// writeFits streams a 16-bit fits rendering of img to fid
func writeFits(fid *os.File, img image.Image) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	fits, err := fitsio.Create(fid)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(16, []int{width, height})
	defer im.Close()
	err = im.Header().Append(
		fitsio.Card{Name: "BZERO", Value: 32768},
		fitsio.Card{Name: "BSCALE", Value: 1.0},
	)
	if err != nil {
		return err
	}
	ints := make([]int16, width*height)
	gray := image.NewGray16(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			ints[idx] = int16(int(gray.Gray16At(x, y).Y) - 32768)
			idx++
		}
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
