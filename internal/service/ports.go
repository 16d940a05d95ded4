package service

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import "context"

// TextExtractor returns the text fragments OCR finds in an image.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) ([]string, error)
}
