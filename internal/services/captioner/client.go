package captioner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 90 * time.Second

	// MaxInlineImageBytes is the ceiling for inlining a local file in
	// direct upload mode. Larger files fall back to URL mode.
	MaxInlineImageBytes = 10 << 20
)

// Client calls the external captioning endpoint. It is the only component
// in the system that makes outbound network calls.
type Client struct {
	endpoint     string
	token        string
	directUpload bool
	httpClient   *http.Client
}

// Option customizes the captioning client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithDirectUpload toggles inline-bytes mode for images with a readable
// local file.
func WithDirectUpload(enabled bool) Option {
	return func(c *Client) {
		c.directUpload = enabled
	}
}

// NewClient constructs a captioning client for the given endpoint. An empty
// token sends unauthenticated requests.
func NewClient(endpoint, token string, opts ...Option) *Client {
	client := &Client{
		endpoint:   strings.TrimSpace(endpoint),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Request identifies the image to caption plus the contextual hints the
// provider sees.
type Request struct {
	ImageURL string
	// FilePath is the local file used for direct upload mode; ignored
	// when direct upload is off or the file cannot be inlined.
	FilePath        string
	MimeType        string
	AttachmentTitle string
	PostTitle       string
}

// Result is a successful caption generation.
type Result struct {
	Caption    string
	Confidence float64
	// Raw preserves the decoded provider payload for auditing.
	Raw string
}

type requestPayload struct {
	ImageURL        string         `json:"image_url"`
	ImageSource     string         `json:"image_source,omitempty"`
	ImageDataBase64 string         `json:"image_data_base64,omitempty"`
	ImageMimeType   string         `json:"image_mime_type,omitempty"`
	ImageFilename   string         `json:"image_filename,omitempty"`
	Context         contextPayload `json:"context"`
	Rules           rulesPayload   `json:"rules"`
}

type contextPayload struct {
	AttachmentTitle string `json:"attachment_title"`
	PostTitle       string `json:"post_title"`
}

type rulesPayload struct {
	Concise     bool `json:"concise"`
	NoGuessing  bool `json:"no_guessing"`
	MaxWords    int  `json:"max_words"`
	NoImageOf   bool `json:"no_image_of"`
	AltTextMode bool `json:"alt_text_mode"`
}

// GenerateCaption sends one captioning request and parses the result.
// Expected failure modes come back as *Error values rather than being
// raised; see the package error codes.
func (c *Client) GenerateCaption(ctx context.Context, req Request) (Result, error) {
	var empty Result
	if c.endpoint == "" {
		return empty, &Error{Code: CodeMissingEndpoint, Message: "captioning endpoint is not configured"}
	}

	payload := requestPayload{
		ImageURL: strings.TrimSpace(req.ImageURL),
		Context: contextPayload{
			AttachmentTitle: strings.TrimSpace(req.AttachmentTitle),
			PostTitle:       strings.TrimSpace(req.PostTitle),
		},
		Rules: rulesPayload{
			Concise:     true,
			NoGuessing:  true,
			MaxWords:    18,
			NoImageOf:   true,
			AltTextMode: true,
		},
	}

	mode := ModeURL
	if c.directUpload && strings.TrimSpace(req.FilePath) != "" {
		// Inline failures are silent; the request proceeds in URL mode.
		if inline, err := buildInlinePayload(req.FilePath, req.MimeType); err == nil {
			payload.ImageSource = inline.ImageSource
			payload.ImageDataBase64 = inline.ImageDataBase64
			payload.ImageMimeType = inline.ImageMimeType
			payload.ImageFilename = inline.ImageFilename
			mode = ModeBytes
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return empty, fmt.Errorf("captioner: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("captioner: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return empty, &Error{
			Code:    CodeNetworkError,
			Message: fmt.Sprintf("%s; request mode: %s", err.Error(), mode),
			Mode:    mode,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, &Error{
			Code:    CodeNetworkError,
			Message: fmt.Sprintf("read response body: %s; request mode: %s", err.Error(), mode),
			Mode:    mode,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return empty, httpError(resp.StatusCode, body, payload.ImageURL, mode)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, &Error{Code: CodeParseError, Message: "provider returned invalid JSON", Mode: mode}
	}

	caption := stringField(decoded, "alt_text")
	if caption == "" {
		caption = stringField(decoded, "caption")
	}
	confidence := 0.0
	if value, ok := decoded["confidence"].(float64); ok {
		confidence = value
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Result{Caption: caption, Confidence: confidence, Raw: string(body)}, nil
}

type inlinePayload struct {
	ImageSource     string
	ImageDataBase64 string
	ImageMimeType   string
	ImageFilename   string
}

func buildInlinePayload(path, mimeType string) (inlinePayload, error) {
	var empty inlinePayload
	info, err := os.Stat(path)
	if err != nil {
		return empty, fmt.Errorf("stat image file: %w", err)
	}
	if info.Size() > MaxInlineImageBytes {
		return empty, fmt.Errorf("image file exceeds %d bytes", MaxInlineImageBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return empty, fmt.Errorf("read image file: %w", err)
	}
	if len(data) == 0 {
		return empty, fmt.Errorf("image file %s is empty", path)
	}
	mimeType = strings.TrimSpace(mimeType)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "application/octet-stream"
	}
	return inlinePayload{
		ImageSource:     "bytes",
		ImageDataBase64: base64.StdEncoding.EncodeToString(data),
		ImageMimeType:   mimeType,
		ImageFilename:   filepath.Base(path),
	}, nil
}

func stringField(data map[string]any, key string) string {
	if value, ok := data[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
