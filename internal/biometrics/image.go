// Package biometrics holds the image math around the external face models:
// decoding, cropping, resizing, focus scoring, liveness screening and face
// identity matching.
package biometrics

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNoFaceDetected means the image holds no locatable face. Callers must ask
// for a new capture; it is not a liveness verdict.
var ErrNoFaceDetected = errors.New("no face detected")

// ErrImageTooLarge is returned when the declared dimensions exceed the pixel budget.
var ErrImageTooLarge = errors.New("image exceeds pixel budget")

// DefaultMaxPixels bounds decoding when no budget is configured.
const DefaultMaxPixels = 25_000_000

// Tensor is an HWC RGB float buffer fed to the external models.
type Tensor struct {
	Width  int
	Height int
	Data   []float32
}

// CheckSize reads only the image header and rejects images whose width times
// height exceeds maxPixels. A non-positive budget means DefaultMaxPixels.
func CheckSize(data []byte, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("decode image header: empty %dx%d image", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return nil
}

// Decoder returns a decode func that checks the header against maxPixels
// before allocating the full bitmap.
func Decoder(maxPixels int) func([]byte) (image.Image, error) {
	return func(data []byte) (image.Image, error) {
		if err := CheckSize(data, maxPixels); err != nil {
			return nil, err
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return img, nil
	}
}

// Decode decodes any registered image format within DefaultMaxPixels.
func Decode(data []byte) (image.Image, error) {
	return Decoder(DefaultMaxPixels)(data)
}

// LargestFace picks the face box with the biggest area.
func LargestFace(faces []image.Rectangle) (image.Rectangle, bool) {
	var best image.Rectangle
	bestArea := 0
	for _, f := range faces {
		if area := f.Dx() * f.Dy(); area > bestArea {
			best, bestArea = f, area
		}
	}
	return best, bestArea > 0
}

// ExpandRect grows r by ratio*min(width, height) on every side, clamped to bounds.
func ExpandRect(r image.Rectangle, ratio float64, bounds image.Rectangle) image.Rectangle {
	margin := int(float64(min(r.Dx(), r.Dy())) * ratio)
	grown := image.Rect(r.Min.X-margin, r.Min.Y-margin, r.Max.X+margin, r.Max.Y+margin)
	return grown.Intersect(bounds)
}

// Crop copies the region r of img into a new image anchored at (0,0).
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// Resize scales img to size x size with bilinear interpolation.
func Resize(img image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ZeroCentered maps 8-bit channels to [-1, 1].
func ZeroCentered(v uint8) float32 { return (float32(v) - 127.5) / 127.5 }

// UnitRange maps 8-bit channels to [0, 1].
func UnitRange(v uint8) float32 { return float32(v) / 255 }

// ToTensor flattens img into RGB floats using norm per channel.
func ToTensor(img image.Image, norm func(uint8) float32) Tensor {
	b := img.Bounds()
	t := Tensor{Width: b.Dx(), Height: b.Dy(), Data: make([]float32, 0, b.Dx()*b.Dy()*3)}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			t.Data = append(t.Data, norm(c.R), norm(c.G), norm(c.B))
		}
	}
	return t
}

// grayscale returns luminance values row-major using BT.601 weights.
func grayscale(img image.Image) ([]float64, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			out[y*w+x] = float64(g.Y)
		}
	}
	return out, w, h
}
