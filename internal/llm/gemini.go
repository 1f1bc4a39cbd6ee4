package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const baseURL = "https://generativelanguage.googleapis.com/v1beta"

// Turn roles accepted by the generateContent API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one message in the conversation sent to the model.
type Turn struct {
	Role string
	Text string
}

// Reply is the model's answer. When Text is empty, BlockReason and
// FinishReason carry whatever the API reported, verbatim.
type Reply struct {
	Text         string
	BlockReason  string
	FinishReason string
}

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=llm_test -destination=mock_http_client_test.go -source=gemini.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// GeminiClient is a client for the Gemini generateContent API.
type GeminiClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// apiKey authenticates every request.
	apiKey string
	// model is the model identifier, e.g. gemini-2.0-flash.
	model string
	// httpClient is the HTTP client used for requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// timeout bounds each generateContent call.
	timeout time.Duration
}

// GeminiClientOption is a configuration option for the Gemini client.
type GeminiClientOption func(*GeminiClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) GeminiClientOption {
	return func(c *GeminiClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) GeminiClientOption {
	return func(c *GeminiClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) GeminiClientOption {
	return func(c *GeminiClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithTimeout bounds each generateContent call.
func WithTimeout(timeout time.Duration) GeminiClientOption {
	return func(c *GeminiClient) {
		c.timeout = timeout
	}
}

// NewGeminiClient creates a new Gemini client. An empty key is refused so a
// misconfigured process fails at startup rather than on the first request.
func NewGeminiClient(key, model string, options ...GeminiClientOption) (*GeminiClient, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	var client = &GeminiClient{
		baseURL:    baseURL,
		apiKey:     key,
		model:      model,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		timeout:    30 * time.Second,
	}
	if client.model == "" {
		client.model = "gemini-2.0-flash"
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GenerateContent sends the turn sequence to the model and returns its reply.
func (c *GeminiClient) GenerateContent(ctx context.Context, turns []Turn) (Reply, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqBody := generateRequest{Contents: make([]generateContent, 0, len(turns))}
	for _, t := range turns {
		reqBody.Contents = append(reqBody.Contents, generateContent{
			Role:  t.Role,
			Parts: []generatePart{{Text: t.Text}},
		})
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Reply{}, fmt.Errorf("encoding request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusBadRequest:
		return Reply{}, fmt.Errorf("bad request")

	case http.StatusForbidden, http.StatusUnauthorized:
		return Reply{}, fmt.Errorf("unauthorized")

	case http.StatusTooManyRequests:
		return Reply{}, fmt.Errorf("rate limited")

	default:
		return Reply{}, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body generateResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return Reply{}, fmt.Errorf("decoding response: %w", err)
	}

	var reply Reply
	if body.PromptFeedback != nil {
		reply.BlockReason = body.PromptFeedback.BlockReason
	}
	if len(body.Candidates) > 0 {
		cand := body.Candidates[0]
		reply.FinishReason = cand.FinishReason
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		reply.Text = b.String()
	}
	return reply, nil
}
