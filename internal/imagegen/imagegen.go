package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/DoyleJ11/car-build-backend/internal/catalog"
)

var ErrDisabled = errors.New("image generation disabled")
var ErrUpstream = errors.New("image service error")
var ErrEmptyPrompt = errors.New("nothing to draw")

const DefaultTimeout = 20 * time.Second

// Generator turns a prompt into an image URL.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type request struct {
	Prompt string `json:"prompt"`
}

type response struct {
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     *fasthttp.Client
}

// New returns a client posting to endpoint. An empty endpoint yields a client
// whose Generate always fails with ErrDisabled.
func New(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		timeout:  timeout,
		http: &fasthttp.Client{
			Name:                "car-build-backend",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

func (c *Client) Enabled() bool { return c != nil && c.endpoint != "" }

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	body, err := json.Marshal(request{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.SetBody(body)

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return "", fmt.Errorf("image request: %w", err)
	}

	status := resp.StatusCode()
	var out response
	_ = json.Unmarshal(resp.Body(), &out)

	if status < 200 || status >= 300 {
		if out.Error != "" {
			return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, status, out.Error)
		}
		return "", fmt.Errorf("%w: status %d", ErrUpstream, status)
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: response has no url", ErrUpstream)
	}
	return out.URL, nil
}

// Prompt describes a finished build from its chosen labels. Unanswered
// categories are skipped.
func Prompt(c *catalog.Catalog, labels []string) (string, error) {
	var parts []string
	for i, label := range labels {
		if label == "" || i >= c.Len() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", c.Categories[i].Name, label))
	}
	if len(parts) == 0 {
		return "", ErrEmptyPrompt
	}
	return "A detailed illustration of a custom car built from these parts. " + strings.Join(parts, "; ") + ".", nil
}
