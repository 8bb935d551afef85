package nlu

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const defaultTimeout = 15 * time.Second

//go:embed schema.json
var responseSchemaJSON string

// responseSchema validates the raw service payload before decoding so shape
// drift in the external service is caught at the boundary.
var responseSchema = jsonschema.MustCompileString("nlu/schema.json", responseSchemaJSON)

// Config configures the HTTP NLU provider.
type Config struct {
	// Endpoint is the base URL of the NLU service, e.g.
	// https://westus.api.cognitive.microsoft.com.
	Endpoint string

	// AppID identifies the trained NLU application.
	AppID string

	// Key is the subscription key sent with every query.
	Key string

	// Timeout is the HTTP request timeout. Defaults to 15 s.
	Timeout time.Duration
}

// httpProvider implements Provider against a LUIS-compatible query endpoint.
type httpProvider struct {
	cfg    Config
	client *http.Client
}

// New returns a Provider backed by the configured NLU service endpoint.
// The returned provider is safe for concurrent use.
func New(cfg Config) Provider {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &httpProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- wire types ---

type wireIntent struct {
	Intent string  `json:"intent"`
	Score  float64 `json:"score"`
}

type wireEntity struct {
	Entity string  `json:"entity"`
	Type   string  `json:"type"`
	Score  float64 `json:"score"`
}

type wireResponse struct {
	Query    string       `json:"query"`
	Intents  []wireIntent `json:"intents"`
	Entities []wireEntity `json:"entities"`
}

// Analyze sends text to the NLU service and returns the parsed Result.
func (p *httpProvider) Analyze(ctx context.Context, text string) (*Result, error) {
	endpoint := fmt.Sprintf("%s/luis/v2.0/apps/%s?verbose=true&q=%s",
		p.cfg.Endpoint, p.cfg.AppID, url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("nlu: create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.Key)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlu: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nlu: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nlu: service returned HTTP %d", resp.StatusCode)
	}

	// Schema-validate the raw payload before trusting its shape.
	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if err := responseSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}

	result := &Result{Query: wire.Query}
	for _, in := range wire.Intents {
		result.Intents = append(result.Intents, Intent{Name: in.Intent, Score: in.Score})
	}
	for _, en := range wire.Entities {
		result.Entities = append(result.Entities, Entity{Type: en.Type, Value: en.Entity})
	}
	sortIntents(result.Intents)

	return result, nil
}
