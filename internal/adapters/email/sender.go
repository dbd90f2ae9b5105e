package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/openpulse/pulse/internal/core/domain"
)

// Config holds SMTP delivery settings. An empty Host or To disables email.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Sender composes a multipart email for a finished newsletter (plain text
// plus HTML with the cover inlined) and delivers it over SMTP.
type Sender struct {
	logger *slog.Logger
	cfg    Config
}

func NewSender(logger *slog.Logger, cfg Config) *Sender {
	return &Sender{logger: logger, cfg: cfg}
}

func (s *Sender) Enabled() bool {
	return s.cfg.Host != "" && s.cfg.To != ""
}

// Send builds and delivers the newsletter email. coverPath may be empty or
// point to a local image file embedded inline via a cid reference.
func (s *Sender) Send(ctx context.Context, n domain.Newsletter, coverPath string) error {
	if !s.Enabled() {
		return fmt.Errorf("email delivery is not configured")
	}

	msg, err := s.compose(n, coverPath)
	if err != nil {
		return fmt.Errorf("failed to compose email: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{s.cfg.To}, msg); err != nil {
		return fmt.Errorf("smtp delivery failed: %w", err)
	}

	s.logger.Info("newsletter emailed", "newsletter_id", n.ID, "to", s.cfg.To)
	return nil
}

func (s *Sender) compose(n domain.Newsletter, coverPath string) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: s.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Address: s.cfg.To}})
	h.SetSubject(n.Title)

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := iw.CreatePart(th)
	if err != nil {
		return nil, err
	}
	io.WriteString(tw, n.Content)
	tw.Close()

	var hh mail.InlineHeader
	hh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	hw, err := iw.CreatePart(hh)
	if err != nil {
		return nil, err
	}
	io.WriteString(hw, renderHTML(n, coverPath != ""))
	hw.Close()
	iw.Close()

	if coverPath != "" {
		if err := attachCover(mw, coverPath); err != nil {
			// A missing cover file degrades to a text-only email.
			s.logger.Warn("failed to attach cover image", "path", coverPath, "error", err)
		}
	}

	mw.Close()
	return buf.Bytes(), nil
}

func attachCover(mw *mail.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var ah mail.AttachmentHeader
	ah.SetFilename("cover.png")
	ah.SetContentType("image/png", nil)
	ah.Set("Content-ID", "<newsletter-cover>")
	ah.Set("Content-Disposition", "inline")

	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return err
	}
	defer aw.Close()

	_, err = aw.Write(data)
	return err
}

// renderHTML produces a minimal HTML body for mail clients. The markdown
// content is shown preformatted, which renders acceptably everywhere.
func renderHTML(n domain.Newsletter, withCover bool) string {
	var b strings.Builder
	b.WriteString("<html><body style=\"font-family: sans-serif; max-width: 680px; margin: 0 auto;\">")
	if withCover {
		b.WriteString("<img src=\"cid:newsletter-cover\" alt=\"cover\" style=\"width: 100%; border-radius: 8px;\"/>")
	}
	b.WriteString("<h1>")
	b.WriteString(htmlEscape(n.Title))
	b.WriteString("</h1><pre style=\"white-space: pre-wrap; font-family: inherit;\">")
	b.WriteString(htmlEscape(n.Content))
	b.WriteString("</pre></body></html>")
	return b.String()
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
