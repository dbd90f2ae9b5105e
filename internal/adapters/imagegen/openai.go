package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openpulse/pulse/internal/core/domain"
)

// defaultCoverSize is landscape, matching the newsletter header layout.
const defaultCoverSize = "1536x1024"

// OpenAIImageProvider generates newsletter cover images via an
// OpenAI-compatible images API (POST {baseURL}/images/generations).
// Depending on the model, the API answers with a short-lived URL or with
// the image inline as b64_json; gpt-image-1 only ever returns the latter,
// so both shapes are handled.
type OpenAIImageProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	size    string
}

func NewOpenAIImageProvider(baseURL, apiKey, model, size string) *OpenAIImageProvider {
	if model == "" {
		model = "gpt-image-1"
	}
	if size == "" {
		size = defaultCoverSize
	}
	return &OpenAIImageProvider{
		client:  &http.Client{Timeout: 120 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		size:    size,
	}
}

func (p *OpenAIImageProvider) GenerateImage(ctx context.Context, prompt string) (domain.CoverImage, error) {
	url := fmt.Sprintf("%s/images/generations", p.baseURL)

	payload := map[string]interface{}{
		"model":  p.model,
		"prompt": prompt,
		"size":   p.size,
		"n":      1,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return domain.CoverImage{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return domain.CoverImage{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.CoverImage{}, fmt.Errorf("failed to call image API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.CoverImage{}, fmt.Errorf("image API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.CoverImage{}, fmt.Errorf("failed to decode image API response: %w", err)
	}
	if len(result.Data) == 0 {
		return domain.CoverImage{}, fmt.Errorf("image API returned no image")
	}

	first := result.Data[0]
	if u := strings.TrimSpace(first.URL); u != "" {
		return domain.CoverImage{URL: u}, nil
	}
	if first.B64JSON != "" {
		raw, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return domain.CoverImage{}, fmt.Errorf("failed to decode inline image: %w", err)
		}
		return domain.CoverImage{Data: raw}, nil
	}
	return domain.CoverImage{}, fmt.Errorf("image API returned neither url nor b64_json")
}
