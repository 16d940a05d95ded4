package biometrics

import (
	"context"
	"fmt"
	"image"
)

// LivenessResult is the screener verdict. Synthetic is score >= threshold at
// every call site.
type LivenessResult struct {
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Synthetic bool    `json:"synthetic"`
}

// Screener wraps the deepfake classifier with face localisation.
type Screener struct {
	classifier DeepfakeClassifier
	detector   FaceDetector
	inputSize  int
}

func NewScreener(classifier DeepfakeClassifier, detector FaceDetector, inputSize int) *Screener {
	return &Screener{classifier: classifier, detector: detector, inputSize: inputSize}
}

// Screen scores an already cropped face.
func (s *Screener) Screen(ctx context.Context, face image.Image, threshold float64) (LivenessResult, error) {
	tensor := ToTensor(Resize(face, s.inputSize), UnitRange)
	score, err := s.classifier.Score(ctx, tensor)
	if err != nil {
		return LivenessResult{}, fmt.Errorf("deepfake score: %w", err)
	}
	return LivenessResult{Score: score, Threshold: threshold, Synthetic: score >= threshold}, nil
}

// ScreenImage locates the largest face, crops it tightly and screens it. The
// returned image is the crop. ErrNoFaceDetected is returned before any scoring.
func (s *Screener) ScreenImage(ctx context.Context, img image.Image, threshold float64) (LivenessResult, image.Image, error) {
	faces, err := s.detector.Detect(ctx, img)
	if err != nil {
		return LivenessResult{}, nil, fmt.Errorf("detect faces: %w", err)
	}
	box, ok := LargestFace(faces)
	if !ok {
		return LivenessResult{}, nil, ErrNoFaceDetected
	}
	face := Crop(img, box)
	res, err := s.Screen(ctx, face, threshold)
	if err != nil {
		return LivenessResult{}, nil, err
	}
	return res, face, nil
}
