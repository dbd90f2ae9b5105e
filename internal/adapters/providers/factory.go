package providers

import (
	"fmt"
	"os"
	"strings"

	"github.com/openpulse/pulse/internal/adapters/imagegen"
	"github.com/openpulse/pulse/internal/adapters/llm"
	"github.com/openpulse/pulse/internal/core/domain"
)

// Build creates the content and image providers from configuration. It
// hides local/remote selection from callers. The image provider is nil
// when covers are disabled.
func Build(cfg domain.ProviderConfig) (domain.ContentProvider, domain.ImageProvider, error) {
	content, err := buildContentProvider(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}

	image, err := buildImageProvider(cfg.Image)
	if err != nil {
		return nil, nil, err
	}

	return content, image, nil
}

func buildContentProvider(cfg domain.LLMProviderConfig) (domain.ContentProvider, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch mode {
	case "", "local":
		baseURL := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
		if baseURL == "" {
			baseURL = strings.TrimSpace(cfg.LocalURL)
		}
		return llm.NewOllamaProvider(normalizeOllamaBaseURL(baseURL), cfg.DefaultModel), nil
	case "remote":
		if strings.TrimSpace(cfg.RemoteURL) == "" {
			return nil, fmt.Errorf("llm remote_url is required when mode=remote")
		}
		return llm.NewOpenAIProvider(
			strings.TrimSpace(cfg.RemoteURL),
			strings.TrimSpace(cfg.APIKey),
			strings.TrimSpace(cfg.DefaultModel),
		), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider mode: %s", cfg.Mode)
	}
}

func buildImageProvider(cfg domain.ImageProviderConfig) (domain.ImageProvider, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch mode {
	case "", "none":
		return nil, nil
	case "remote":
		if strings.TrimSpace(cfg.RemoteURL) == "" {
			return nil, fmt.Errorf("image remote_url is required when mode=remote")
		}
		return imagegen.NewOpenAIImageProvider(
			strings.TrimSpace(cfg.RemoteURL),
			strings.TrimSpace(cfg.APIKey),
			strings.TrimSpace(cfg.DefaultModel),
			strings.TrimSpace(cfg.Size),
		), nil
	default:
		return nil, fmt.Errorf("unsupported image provider mode: %s", cfg.Mode)
	}
}

func normalizeOllamaBaseURL(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return strings.TrimSuffix(trimmed, "/v1")
	}
	return trimmed
}
