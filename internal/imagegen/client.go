// Package imagegen turns a prompt into sticker artwork through an
// image-generation HTTP API. Thin glue; the printer core never
// depends on it.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stickerbooth/sticker-daemon/internal/httputil"
)

// Client calls the image-generation endpoint.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	size       string
}

// NewClient creates an image-generation client.
func NewClient(apiKey, baseURL, model, size string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
		model:      model,
		size:       size,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type generateResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate renders the prompt and returns the decoded PNG bytes.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	var image []byte

	retryErr := httputil.WithRetry(ctx, httputil.DefaultRetryConfig(), func() error {
		payload, err := json.Marshal(generateRequest{
			Model:  c.model,
			Prompt: prompt,
			N:      1,
			Size:   c.size,
		})
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("image API error %d: %s", resp.StatusCode, string(respBody))
		}

		var result generateResponse
		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		if result.Error != nil {
			return fmt.Errorf("image API: %s", result.Error.Message)
		}
		if len(result.Data) == 0 || result.Data[0].B64JSON == "" {
			return fmt.Errorf("image API returned no image data")
		}

		image, err = base64.StdEncoding.DecodeString(result.Data[0].B64JSON)
		if err != nil {
			return fmt.Errorf("decoding image payload: %w", err)
		}
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return image, nil
}
