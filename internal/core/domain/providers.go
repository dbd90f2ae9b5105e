package domain

import "context"

// ContentProvider abstracts the text-generation backend (Ollama, OpenAI, ...)
type ContentProvider interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// CoverImage is the result of a cover generation. Providers return either
// a short-lived remote URL or the raw image bytes, depending on what the
// backing API produces.
type CoverImage struct {
	URL  string
	Data []byte
}

// ImageProvider abstracts cover-image generation.
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string) (CoverImage, error)
}
