package email

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpulse/pulse/internal/core/domain"
)

func testSender(cfg Config) *Sender {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return NewSender(logger, cfg)
}

func TestSender_Enabled(t *testing.T) {
	assert.False(t, testSender(Config{}).Enabled())
	assert.False(t, testSender(Config{Host: "smtp.example.com"}).Enabled())
	assert.True(t, testSender(Config{Host: "smtp.example.com", To: "reader@example.com"}).Enabled())
}

func TestSender_ComposePlainAndHTML(t *testing.T) {
	s := testSender(Config{
		Host: "smtp.example.com",
		Port: 587,
		From: "pulse@example.com",
		To:   "reader@example.com",
	})

	n := domain.Newsletter{
		ID:      "nl-1",
		Title:   "Weekly Go Digest",
		Content: "# Weekly Go Digest\n\nGoroutines & channels.",
	}

	msg, err := s.compose(n, "")
	require.NoError(t, err)

	raw := string(msg)
	assert.Contains(t, raw, "Subject: Weekly Go Digest")
	assert.Contains(t, raw, "From: <pulse@example.com>")
	assert.Contains(t, raw, "To: <reader@example.com>")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
	assert.NotContains(t, raw, "cid:newsletter-cover")
}

func TestSender_ComposeWithCover(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.png")
	require.NoError(t, os.WriteFile(cover, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	s := testSender(Config{
		Host: "smtp.example.com",
		From: "pulse@example.com",
		To:   "reader@example.com",
	})

	n := domain.Newsletter{ID: "nl-1", Title: "With Cover", Content: "body"}

	msg, err := s.compose(n, cover)
	require.NoError(t, err)

	raw := string(msg)
	assert.Contains(t, raw, "cid:newsletter-cover")
	assert.Contains(t, raw, "Content-Id: <newsletter-cover>")
	assert.Contains(t, raw, "image/png")
}

func TestSender_HTMLEscapesContent(t *testing.T) {
	n := domain.Newsletter{Title: "A <b> Title", Content: "1 < 2 & 3 > 2"}
	html := renderHTML(n, false)

	assert.Contains(t, html, "A &lt;b&gt; Title")
	assert.Contains(t, html, "1 &lt; 2 &amp; 3 &gt; 2")
	assert.False(t, strings.Contains(html, "<b> Title"))

	s := testSender(Config{Host: "h", From: "f@example.com", To: "t@example.com"})
	msg, err := s.compose(n, "")
	require.NoError(t, err)
	assert.Contains(t, string(msg), "A &lt;b&gt; Title")
}

func TestSender_SendDisabledErrors(t *testing.T) {
	s := testSender(Config{})
	err := s.Send(context.Background(), domain.Newsletter{Title: "x"}, "")
	assert.Error(t, err)
}
