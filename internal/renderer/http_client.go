package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultRenderTimeout = 10 * time.Minute

// HTTPConfig holds configuration for the HTTP render backend client.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPRenderer calls a render backend over HTTP: it POSTs the scene
// configuration to /render and expects the output path of the produced
// artifact in the response body.
type HTTPRenderer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRenderer creates an HTTP renderer client.
func NewHTTPRenderer(cfg *HTTPConfig) *HTTPRenderer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &HTTPRenderer{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type renderRequest struct {
	SceneConfig map[string]any `json:"scene_config"`
}

type renderResponse struct {
	OutputPath string `json:"output_path"`
	Error      string `json:"error"`
}

// Render implements SceneRenderer.
func (r *HTTPRenderer) Render(ctx context.Context, sceneConfig map[string]any) (string, error) {
	body, err := json.Marshal(renderRequest{SceneConfig: sceneConfig})
	if err != nil {
		return "", fmt.Errorf("failed to encode scene config: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("render request failed: %w", err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read render response: %w", err)
	}

	var decoded renderResponse
	if len(payload) > 0 {
		// Best effort: a failing backend may not answer with JSON.
		_ = json.Unmarshal(payload, &decoded)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		if decoded.Error != "" {
			return "", fmt.Errorf("renderer http %d: %s", res.StatusCode, decoded.Error)
		}
		return "", fmt.Errorf("renderer http %d", res.StatusCode)
	}

	if decoded.OutputPath == "" {
		return "", fmt.Errorf("renderer returned no output path")
	}

	return decoded.OutputPath, nil
}
