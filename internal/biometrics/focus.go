package biometrics

import "image"

// FocusMeasure scores image sharpness; higher is sharper.
type FocusMeasure func(image.Image) float64

// LaplacianVariance is the variance of the 4-neighbour Laplacian of the
// grayscale image. Borders are mirrored without repeating the edge pixel.
func LaplacianVariance(img image.Image) float64 {
	gray, w, h := grayscale(img)
	n := w * h
	if n == 0 {
		return 0
	}
	at := func(x, y int) float64 {
		return gray[reflect101(y, h)*w+reflect101(x, w)]
	}

	lap := make([]float64, n)
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			lap[y*w+x] = v
			sum += v
		}
	}
	mean := sum / float64(n)
	var ss float64
	for _, v := range lap {
		d := v - mean
		ss += d * d
	}
	return ss / float64(n)
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - i - 2
	}
	return i
}

// Frame is one candidate capture.
type Frame struct {
	Ref  string
	Data []byte
}

// Selection is the frame chosen by a FrameSelector.
type Selection struct {
	Frame    Frame
	Image    image.Image
	Variance float64
}

// FrameSelector picks the sharpest decodable frame.
type FrameSelector struct {
	decode  func([]byte) (image.Image, error)
	measure FocusMeasure
}

// NewFrameSelector uses Decode and LaplacianVariance when arguments are nil.
func NewFrameSelector(decode func([]byte) (image.Image, error), measure FocusMeasure) *FrameSelector {
	if decode == nil {
		decode = Decode
	}
	if measure == nil {
		measure = LaplacianVariance
	}
	return &FrameSelector{decode: decode, measure: measure}
}

// Select returns the frame with the highest focus score. Frames that fail to
// decode are skipped; ok is false when none decode.
func (s *FrameSelector) Select(frames []Frame) (Selection, bool) {
	var best Selection
	found := false
	for _, f := range frames {
		img, err := s.decode(f.Data)
		if err != nil {
			continue
		}
		v := s.measure(img)
		if !found || v > best.Variance {
			best = Selection{Frame: f, Image: img, Variance: v}
			found = true
		}
	}
	return best, found
}
