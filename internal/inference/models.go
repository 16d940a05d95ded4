package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/Jlndre/Capstone-eLife/internal/biometrics"
)

type tensorPayload struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Data   []float32 `json:"data"`
}

func encodeTensor(t biometrics.Tensor) ([]byte, error) {
	return json.Marshal(tensorPayload{Width: t.Width, Height: t.Height, Data: t.Data})
}

// DeepfakeClassifier calls the binary deepfake model.
type DeepfakeClassifier struct {
	url string
	t   *transport
}

func NewDeepfakeClassifier(baseURL string, opts Options) *DeepfakeClassifier {
	return &DeepfakeClassifier{url: endpoint(baseURL, "/v1/deepfake"), t: newTransport(opts)}
}

// Score returns the synthetic probability in [0,1].
func (c *DeepfakeClassifier) Score(ctx context.Context, face biometrics.Tensor) (float64, error) {
	body, err := encodeTensor(face)
	if err != nil {
		return 0, err
	}
	var out struct {
		Score *float64 `json:"score"`
	}
	if err := c.t.post(ctx, CapabilityDeepfake, c.url, "application/json", body, &out); err != nil {
		return 0, err
	}
	if out.Score == nil || *out.Score < 0 || *out.Score > 1 {
		return 0, fmt.Errorf("%w: %s: score missing or outside [0,1]", ErrUnavailable, CapabilityDeepfake)
	}
	return *out.Score, nil
}

// FaceEmbedder calls the embedding model.
type FaceEmbedder struct {
	url string
	t   *transport
}

func NewFaceEmbedder(baseURL string, opts Options) *FaceEmbedder {
	return &FaceEmbedder{url: endpoint(baseURL, "/v1/embed"), t: newTransport(opts)}
}

func (e *FaceEmbedder) Embed(ctx context.Context, face biometrics.Tensor) ([]float64, error) {
	body, err := encodeTensor(face)
	if err != nil {
		return nil, err
	}
	var out struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := e.t.post(ctx, CapabilityEmbedder, e.url, "application/json", body, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: %s: empty embedding", ErrUnavailable, CapabilityEmbedder)
	}
	return out.Embedding, nil
}

// FaceDetector calls the face detection model with a JPEG rendition of the image.
type FaceDetector struct {
	url string
	t   *transport
}

func NewFaceDetector(baseURL string, opts Options) *FaceDetector {
	return &FaceDetector{url: endpoint(baseURL, "/v1/faces"), t: newTransport(opts)}
}

type faceBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detect returns face boxes in img's coordinate space.
func (d *FaceDetector) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	var out struct {
		Faces []faceBox `json:"faces"`
	}
	if err := d.t.post(ctx, CapabilityDetector, d.url, "image/jpeg", buf.Bytes(), &out); err != nil {
		return nil, err
	}

	origin := img.Bounds().Min
	rects := make([]image.Rectangle, 0, len(out.Faces))
	for _, f := range out.Faces {
		if f.Width <= 0 || f.Height <= 0 {
			continue
		}
		r := image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height).Add(origin).Intersect(img.Bounds())
		if !r.Empty() {
			rects = append(rects, r)
		}
	}
	return rects, nil
}

var (
	_ biometrics.DeepfakeClassifier = (*DeepfakeClassifier)(nil)
	_ biometrics.FaceEmbedder       = (*FaceEmbedder)(nil)
	_ biometrics.FaceDetector       = (*FaceDetector)(nil)
)
