package biometrics

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrEmbeddingMismatch is returned when the two embeddings cannot be compared.
var ErrEmbeddingMismatch = errors.New("embeddings have different or zero length")

// MatchPolicy decides a match when AdjustedSimilarity > SimilarityFloor or
// Distance < DistanceCeiling.
type MatchPolicy struct {
	SimilarityFloor float64
	DistanceCeiling float64
}

// Decide applies the policy.
func (p MatchPolicy) Decide(adjusted, distance float64) bool {
	return adjusted > p.SimilarityFloor || distance < p.DistanceCeiling
}

type MatchResult struct {
	RawSimilarity      float64 `json:"raw_similarity"`
	AdjustedSimilarity float64 `json:"adjusted_similarity"`
	Distance           float64 `json:"euclidean_distance"`
	IsMatch            bool    `json:"is_match"`
}

// FaceMatcher compares the document face against a live capture.
type FaceMatcher struct {
	embedder    FaceEmbedder
	detector    FaceDetector
	policy      MatchPolicy
	marginRatio float64
	inputSize   int
}

func NewFaceMatcher(embedder FaceEmbedder, detector FaceDetector, policy MatchPolicy, marginRatio float64, inputSize int) *FaceMatcher {
	return &FaceMatcher{
		embedder:    embedder,
		detector:    detector,
		policy:      policy,
		marginRatio: marginRatio,
		inputSize:   inputSize,
	}
}

// Compare embeds both faces and scores them.
func (m *FaceMatcher) Compare(ctx context.Context, document, live image.Image) (MatchResult, error) {
	a, err := m.embedFace(ctx, document)
	if err != nil {
		return MatchResult{}, fmt.Errorf("document face: %w", err)
	}
	b, err := m.embedFace(ctx, live)
	if err != nil {
		return MatchResult{}, fmt.Errorf("live face: %w", err)
	}
	return Score(a, b, m.policy)
}

// FaceRegion crops the largest detected face with the configured margin, or
// returns img unchanged when no face is found.
func (m *FaceMatcher) FaceRegion(ctx context.Context, img image.Image) (image.Image, error) {
	faces, err := m.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	box, ok := LargestFace(faces)
	if !ok {
		return img, nil
	}
	return Crop(img, ExpandRect(box, m.marginRatio, img.Bounds())), nil
}

func (m *FaceMatcher) embedFace(ctx context.Context, img image.Image) ([]float64, error) {
	face, err := m.FaceRegion(ctx, img)
	if err != nil {
		return nil, err
	}
	return m.embedder.Embed(ctx, ToTensor(Resize(face, m.inputSize), ZeroCentered))
}

// Score computes cosine and L2-normalised euclidean distance between two
// embeddings and applies the policy.
func Score(a, b []float64, policy MatchPolicy) (MatchResult, error) {
	if len(a) == 0 || len(a) != len(b) {
		return MatchResult{}, ErrEmbeddingMismatch
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return MatchResult{}, ErrEmbeddingMismatch
	}

	var dot, dist float64
	for i := range a {
		dot += a[i] * b[i]
		d := a[i]/na - b[i]/nb
		dist += d * d
	}
	cos := dot / (na * nb)
	res := MatchResult{
		RawSimilarity:      cos,
		AdjustedSimilarity: (cos + 1) / 2,
		Distance:           math.Sqrt(dist),
	}
	res.IsMatch = policy.Decide(res.AdjustedSimilarity, res.Distance)
	return res, nil
}

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
