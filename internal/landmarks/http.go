package landmarks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kozaktomas/sunglasses/internal/readiness"
)

const (
	defaultLandmarkURL    = "http://localhost:8000"
	defaultHealthInterval = 500 * time.Millisecond
	defaultRequestTimeout = 60 * time.Second
)

// HTTPProvider talks to a landmark detection server over HTTP.
type HTTPProvider struct {
	baseURL        string
	client         *http.Client
	healthInterval time.Duration
	ready          *readiness.Signal
}

// NewHTTPProvider creates a provider for the server at cfg.URL
func NewHTTPProvider(cfg Config) *HTTPProvider {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultLandmarkURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	interval := cfg.HealthInterval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HTTPProvider{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		client:         &http.Client{Timeout: timeout},
		healthInterval: interval,
		ready:          readiness.New("landmark model"),
	}
}

// landmarkResponse represents the response from the landmark endpoint
type landmarkResponse struct {
	FacesCount int        `json:"faces_count"`
	Faces      []faceJSON `json:"faces"`
	Model      string     `json:"model"`
}

// Load waits until the server reports healthy, retrying until ctx is done.
func (p *HTTPProvider) Load(ctx context.Context) error {
	ticker := time.NewTicker(p.healthInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = p.checkHealth(ctx); lastErr == nil {
			p.ready.Resolve(nil)
			return nil
		}
		select {
		case <-ctx.Done():
			err := fmt.Errorf("landmark server not healthy: %w", lastErr)
			p.ready.Resolve(err)
			return err
		case <-ticker.C:
		}
	}
}

func (p *HTTPProvider) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Ready returns the readiness signal resolved by Load.
func (p *HTTPProvider) Ready() *readiness.Signal {
	return p.ready
}

// postMultipartImage posts PNG image data as the "file" form field.
func (p *HTTPProvider) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.png"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Detect sends the image to the server and returns the faces it found.
func (p *HTTPProvider) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	body, err := p.postMultipartImage(ctx, "/landmarks", buf.Bytes())
	if err != nil {
		return nil, err
	}

	var lmResp landmarkResponse
	if err := json.Unmarshal(body, &lmResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return decodeFaces(lmResp.Faces)
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
