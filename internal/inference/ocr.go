package inference

import (
	"context"
	"net/http"
)

// TextExtractor calls the OCR service. The image is posted as-is; the reply
// is {"fragments": ["..."]}.
type TextExtractor struct {
	url string
	t   *transport
}

func NewTextExtractor(baseURL string, opts Options) *TextExtractor {
	return &TextExtractor{url: endpoint(baseURL, "/v1/ocr"), t: newTransport(opts)}
}

// ExtractText returns the recognised fragments in no particular order.
func (e *TextExtractor) ExtractText(ctx context.Context, image []byte) ([]string, error) {
	var out struct {
		Fragments []string `json:"fragments"`
	}
	if err := e.t.post(ctx, CapabilityOCR, e.url, http.DetectContentType(image), image, &out); err != nil {
		return nil, err
	}
	return out.Fragments, nil
}
