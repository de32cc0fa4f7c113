package imaging

import (
	"context"
	"io"
)

// ImageGenerator turns a text prompt into raw image bytes.
type ImageGenerator interface {
	TextToImage(ctx context.Context, prompt string) ([]byte, error)
}

// BackgroundRemover strips the background from an uploaded image and
// returns the processed image bytes.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, r io.Reader, filename string) ([]byte, error)
}

// ObjectRemover removes a named object from an uploaded image. The provider
// hosts the result itself, so the returned value is the final artifact URL.
type ObjectRemover interface {
	RemoveObject(ctx context.Context, r io.Reader, filename, object string) (string, error)
}
