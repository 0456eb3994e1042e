// Package upload submits a video file to the processing backend.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"vidtrack/internal/logger"
	"vidtrack/internal/model"
	"vidtrack/internal/util/format"
)

// DefaultField is the multipart field the backend reads the file from.
const DefaultField = "video"

// maxBody bounds how much of a response body is read for its message.
const maxBody = 1 << 20

// Error is a rejected submission. Message is the cause reported by the
// backend, or a generic fallback.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Client posts files as multipart/form-data.
type Client struct {
	url        string
	field      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithField overrides the multipart field name.
func WithField(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.field = name
		}
	}
}

// WithTimeout bounds the whole request, body upload included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient injects the HTTP client (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient returns a Client posting to url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		field:      DefaultField,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = logger.Logger()
	}
	return c
}

type responseBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Submit uploads in and returns the backend's acknowledgement message,
// which may be empty. Non-2xx responses return *Error.
func (c *Client) Submit(ctx context.Context, in model.VideoInput) (string, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", in.Path, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, c.field, in, f))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	c.logger.Info("submitting video", "url", c.url, "file", in.Name, "bytes", in.Size)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	var body responseBody
	parseErr := json.Unmarshal(raw, &body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := body.Message
		if msg == "" {
			msg = body.Error
		}
		switch {
		case parseErr != nil:
			msg = "Unknown upload error"
		case msg == "":
			msg = fmt.Sprintf("Upload failed with status: %d", resp.StatusCode)
		}
		c.logger.Warn("submission rejected", "status", resp.StatusCode, "message", msg)
		return "", &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	elapsed := time.Since(start)
	c.logger.Info("submission accepted", "status", resp.StatusCode, "elapsed", elapsed,
		"size", format.HumanizeBytes(in.Size), "rate", format.HumanizeRate(in.Size, elapsed))
	return body.Message, nil
}

func writeForm(mw *multipart.Writer, field string, in model.VideoInput, r io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, in.Name))
	ct := in.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

// IsRejected reports whether err is a non-2xx response from the backend.
func IsRejected(err error) bool {
	var ue *Error
	return errors.As(err, &ue)
}

// Probe checks that the upload endpoint answers HTTP at all. Any status,
// including 405 for a HEAD on a POST-only route, counts as reachable.
func (c *Client) Probe(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", c.url, err)
	}
	resp.Body.Close()
	c.logger.Debug("upload endpoint probed", "url", c.url, "status", resp.StatusCode)
	return resp.StatusCode, nil
}
