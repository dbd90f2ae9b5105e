package domain

import (
	"errors"
	"strings"
	"time"
)

type NewsletterID string

// Newsletter is the stored artifact of a completed generation run.
type Newsletter struct {
	ID            NewsletterID `json:"id"`
	RunID         RunID        `json:"run_id"`
	UserID        string       `json:"user_id"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	CoverImageURL string       `json:"cover_image_url,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

var ErrNewsletterNotFound = errors.New("newsletter not found")

// TitleFromContent derives a display title from the first non-empty line.
func TitleFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line != "" {
			return line
		}
	}
	return "Newsletter"
}
