package biometrics_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Jlndre/Capstone-eLife/internal/biometrics"
	"github.com/Jlndre/Capstone-eLife/internal/biometrics/mocks"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func checkerboard(n int) *image.RGBA {
	img := solid(n, n, color.Black)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLaplacianVariance(t *testing.T) {
	assert.Zero(t, biometrics.LaplacianVariance(solid(8, 8, color.Gray{Y: 120})))
	assert.Greater(t, biometrics.LaplacianVariance(checkerboard(8)), 0.0)
	assert.Zero(t, biometrics.LaplacianVariance(solid(1, 1, color.White)))
}

func TestFrameSelectorPicksHighestVariance(t *testing.T) {
	// frame width doubles as a key into the known variances
	variances := map[int]float64{1: 12.3, 2: 87.9, 3: 4.1}
	measure := func(img image.Image) float64 { return variances[img.Bounds().Dx()] }
	sel := biometrics.NewFrameSelector(nil, measure)

	frames := []biometrics.Frame{
		{Ref: "frame-0", Data: encodePNG(t, solid(1, 1, color.White))},
		{Ref: "broken", Data: []byte("not an image")},
		{Ref: "frame-1", Data: encodePNG(t, solid(2, 1, color.White))},
		{Ref: "frame-2", Data: encodePNG(t, solid(3, 1, color.White))},
	}

	best, ok := sel.Select(frames)
	require.True(t, ok)
	assert.Equal(t, "frame-1", best.Frame.Ref)
	assert.Equal(t, 87.9, best.Variance)
	assert.NotNil(t, best.Image)
}

func TestFrameSelectorAllUndecodable(t *testing.T) {
	sel := biometrics.NewFrameSelector(nil, nil)
	_, ok := sel.Select([]biometrics.Frame{{Ref: "a", Data: []byte{0x1}}, {Ref: "b"}})
	assert.False(t, ok)

	_, ok = sel.Select(nil)
	assert.False(t, ok)
}

// pngHeader returns a grayscale PNG holding only its IHDR chunk. Enough for
// DecodeConfig, never decodable in full.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.WriteString("IHDR")
	buf.Write(ihdr)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(append([]byte("IHDR"), ihdr...)))
	return buf.Bytes()
}

func TestCheckSize(t *testing.T) {
	assert.NoError(t, biometrics.CheckSize(encodePNG(t, solid(4, 4, color.White)), 16))
	assert.ErrorIs(t, biometrics.CheckSize(encodePNG(t, solid(4, 5, color.White)), 16), biometrics.ErrImageTooLarge)

	huge := pngHeader(8000, 8000)
	assert.ErrorIs(t, biometrics.CheckSize(huge, 0), biometrics.ErrImageTooLarge, "default budget applies")
	assert.NoError(t, biometrics.CheckSize(pngHeader(4000, 3000), 0))

	err := biometrics.CheckSize([]byte("not an image"), 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, biometrics.ErrImageTooLarge)
}

func TestDecoderRefusesBeforeAllocating(t *testing.T) {
	decode := biometrics.Decoder(100)

	_, err := decode(pngHeader(8000, 8000))
	assert.ErrorIs(t, err, biometrics.ErrImageTooLarge)

	img, err := decode(encodePNG(t, solid(10, 10, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestFrameSelectorSkipsOversizedFrames(t *testing.T) {
	sel := biometrics.NewFrameSelector(biometrics.Decoder(64), nil)

	best, ok := sel.Select([]biometrics.Frame{
		{Ref: "bomb", Data: pngHeader(8000, 8000)},
		{Ref: "small", Data: encodePNG(t, checkerboard(8))},
	})
	require.True(t, ok)
	assert.Equal(t, "small", best.Frame.Ref)
}

func TestLargestFace(t *testing.T) {
	_, ok := biometrics.LargestFace(nil)
	assert.False(t, ok)

	box, ok := biometrics.LargestFace([]image.Rectangle{
		image.Rect(0, 0, 10, 10),
		image.Rect(20, 20, 60, 50),
		image.Rect(5, 5, 25, 25),
	})
	require.True(t, ok)
	assert.Equal(t, image.Rect(20, 20, 60, 50), box)
}

func TestExpandRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	// 20% of min(50, 30) = 6 pixels on every side
	assert.Equal(t, image.Rect(4, 4, 66, 46), biometrics.ExpandRect(image.Rect(10, 10, 60, 40), 0.2, bounds))
	// clamped at the image edge
	assert.Equal(t, image.Rect(0, 0, 60, 60), biometrics.ExpandRect(image.Rect(0, 0, 50, 50), 0.2, bounds))
	assert.Equal(t, image.Rect(40, 40, 100, 100), biometrics.ExpandRect(image.Rect(50, 50, 100, 100), 0.2, bounds))
}

func TestCropAndResize(t *testing.T) {
	src := solid(40, 20, color.White)
	crop := biometrics.Crop(src, image.Rect(10, 5, 30, 15))
	assert.Equal(t, image.Rect(0, 0, 20, 10), crop.Bounds())

	resized := biometrics.Resize(crop, 16)
	assert.Equal(t, image.Rect(0, 0, 16, 16), resized.Bounds())

	tensor := biometrics.ToTensor(resized, biometrics.ZeroCentered)
	assert.Len(t, tensor.Data, 16*16*3)
	assert.InDelta(t, 1.0, tensor.Data[0], 0.02)
}

func TestNormalisation(t *testing.T) {
	assert.InDelta(t, -1.0, biometrics.ZeroCentered(0), 1e-6)
	assert.InDelta(t, 1.0, biometrics.ZeroCentered(255), 1e-6)
	assert.InDelta(t, 0.0, biometrics.UnitRange(0), 1e-6)
	assert.InDelta(t, 1.0, biometrics.UnitRange(255), 1e-6)
}

func TestScreener(t *testing.T) {
	ctx := context.Background()
	img := solid(64, 64, color.White)

	t.Run("no face is reported before scoring", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		detector := mocks.NewMockFaceDetector(ctrl)
		classifier := mocks.NewMockDeepfakeClassifier(ctrl)
		detector.EXPECT().Detect(gomock.Any(), img).Return(nil, nil)

		_, _, err := biometrics.NewScreener(classifier, detector, 32).ScreenImage(ctx, img, 0.2)
		assert.ErrorIs(t, err, biometrics.ErrNoFaceDetected)
	})

	t.Run("score at the threshold is synthetic", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		detector := mocks.NewMockFaceDetector(ctrl)
		classifier := mocks.NewMockDeepfakeClassifier(ctrl)
		detector.EXPECT().Detect(gomock.Any(), img).Return([]image.Rectangle{image.Rect(8, 8, 40, 40)}, nil)
		classifier.EXPECT().Score(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, face biometrics.Tensor) (float64, error) {
				assert.Equal(t, 32, face.Width)
				assert.Equal(t, 32, face.Height)
				return 0.2, nil
			})

		res, face, err := biometrics.NewScreener(classifier, detector, 32).ScreenImage(ctx, img, 0.2)
		require.NoError(t, err)
		assert.True(t, res.Synthetic)
		assert.Equal(t, image.Rect(0, 0, 32, 32), face.Bounds())
	})

	t.Run("score below the threshold is genuine", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		classifier := mocks.NewMockDeepfakeClassifier(ctrl)
		classifier.EXPECT().Score(gomock.Any(), gomock.Any()).Return(0.49, nil)

		res, err := biometrics.NewScreener(classifier, nil, 32).Screen(ctx, img, 0.5)
		require.NoError(t, err)
		assert.False(t, res.Synthetic)
		assert.Equal(t, 0.49, res.Score)
	})

	t.Run("classifier failure propagates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		classifier := mocks.NewMockDeepfakeClassifier(ctrl)
		boom := errors.New("model down")
		classifier.EXPECT().Score(gomock.Any(), gomock.Any()).Return(0.0, boom)

		_, err := biometrics.NewScreener(classifier, nil, 32).Screen(ctx, img, 0.5)
		assert.ErrorIs(t, err, boom)
	})
}

func TestScore(t *testing.T) {
	policy := biometrics.MatchPolicy{SimilarityFloor: 0.1, DistanceCeiling: 1.5}

	same, err := biometrics.Score([]float64{1, 2, 3}, []float64{2, 4, 6}, policy)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same.RawSimilarity, 1e-9)
	assert.InDelta(t, 1.0, same.AdjustedSimilarity, 1e-9)
	assert.InDelta(t, 0.0, same.Distance, 1e-9)
	assert.True(t, same.IsMatch)

	opposite, err := biometrics.Score([]float64{1, 0}, []float64{-1, 0}, policy)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, opposite.RawSimilarity, 1e-9)
	assert.InDelta(t, 0.0, opposite.AdjustedSimilarity, 1e-9)
	assert.InDelta(t, 2.0, opposite.Distance, 1e-9)
	assert.False(t, opposite.IsMatch)

	_, err = biometrics.Score([]float64{1, 2}, []float64{1}, policy)
	assert.ErrorIs(t, err, biometrics.ErrEmbeddingMismatch)
	_, err = biometrics.Score([]float64{0, 0}, []float64{1, 1}, policy)
	assert.ErrorIs(t, err, biometrics.ErrEmbeddingMismatch)
}

func TestMatchPolicyIsMonotonicInSimilarity(t *testing.T) {
	policy := biometrics.MatchPolicy{SimilarityFloor: 0.6, DistanceCeiling: 0.5}
	const distance = 1.0

	flips := 0
	prev := policy.Decide(0, distance)
	require.False(t, prev)
	for i := 1; i <= 100; i++ {
		adjusted := float64(i) / 100
		cur := policy.Decide(adjusted, distance)
		if cur != prev {
			flips++
			assert.Greater(t, adjusted, 0.6)
		}
		prev = cur
	}
	assert.Equal(t, 1, flips)
	assert.True(t, prev)
}

func TestFaceMatcherCompare(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	detector := mocks.NewMockFaceDetector(ctrl)
	embedder := mocks.NewMockFaceEmbedder(ctrl)

	doc := solid(100, 100, color.White)
	live := solid(50, 50, color.Black)

	detector.EXPECT().Detect(gomock.Any(), doc).Return([]image.Rectangle{image.Rect(20, 20, 70, 70)}, nil)
	detector.EXPECT().Detect(gomock.Any(), live).Return(nil, nil)
	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, face biometrics.Tensor) ([]float64, error) {
			assert.Equal(t, 16, face.Width)
			return []float64{0.3, 0.4}, nil
		}).Times(2)

	matcher := biometrics.NewFaceMatcher(embedder, detector, biometrics.MatchPolicy{SimilarityFloor: 0.9, DistanceCeiling: 0.1}, 0.2, 16)
	res, err := matcher.Compare(ctx, doc, live)
	require.NoError(t, err)
	assert.True(t, res.IsMatch)
	assert.InDelta(t, 1.0, res.AdjustedSimilarity, 1e-9)
}

func TestFaceRegionFallsBackToWholeImage(t *testing.T) {
	ctrl := gomock.NewController(t)
	detector := mocks.NewMockFaceDetector(ctrl)
	img := solid(30, 20, color.White)
	detector.EXPECT().Detect(gomock.Any(), img).Return(nil, nil)

	matcher := biometrics.NewFaceMatcher(nil, detector, biometrics.MatchPolicy{}, 0.2, 16)
	region, err := matcher.FaceRegion(context.Background(), img)
	require.NoError(t, err)
	assert.Same(t, img, region)
}
