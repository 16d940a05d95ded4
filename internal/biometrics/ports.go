package biometrics

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"image"
)

// The model capabilities below are bound to external inference services.

// FaceDetector locates face bounding boxes.
type FaceDetector interface {
	Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error)
}

// DeepfakeClassifier scores a face tensor; 1 means certainly synthetic.
type DeepfakeClassifier interface {
	Score(ctx context.Context, face Tensor) (float64, error)
}

// FaceEmbedder maps a face tensor to a fixed-length identity vector.
type FaceEmbedder interface {
	Embed(ctx context.Context, face Tensor) ([]float64, error)
}
