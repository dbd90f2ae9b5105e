package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIImageProvider_URLResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "dall-e-3", payload["model"])
		assert.Equal(t, "1024x1024", payload["size"])

		fmt.Fprint(w, `{"data":[{"url":"https://images.example.com/cover.png"}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIImageProvider(srv.URL, "", "dall-e-3", "1024x1024")
	cover, err := p.GenerateImage(context.Background(), "a cover")
	require.NoError(t, err)
	assert.Equal(t, "https://images.example.com/cover.png", cover.URL)
	assert.Empty(t, cover.Data)
}

func TestOpenAIImageProvider_InlineResponse(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		// Defaults apply when model and size are left empty.
		assert.Equal(t, "gpt-image-1", payload["model"])
		assert.Equal(t, defaultCoverSize, payload["size"])

		fmt.Fprintf(w, `{"data":[{"b64_json":%q}]}`, base64.StdEncoding.EncodeToString(png))
	}))
	defer srv.Close()

	p := NewOpenAIImageProvider(srv.URL, "", "", "")
	cover, err := p.GenerateImage(context.Background(), "a cover")
	require.NoError(t, err)
	assert.Empty(t, cover.URL)
	assert.Equal(t, png, cover.Data)
}

func TestOpenAIImageProvider_ErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusBadRequest, `{"error":{"message":"bad prompt"}}`},
		{"empty data", http.StatusOK, `{"data":[]}`},
		{"no url or bytes", http.StatusOK, `{"data":[{}]}`},
		{"bad base64", http.StatusOK, `{"data":[{"b64_json":"%%%"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			p := NewOpenAIImageProvider(srv.URL, "", "", "")
			_, err := p.GenerateImage(context.Background(), "a cover")
			assert.Error(t, err)
		})
	}
}
