// Package remote talks to a masked language model served over HTTP.
//
// The server exposes POST /tokenize, /ids, /tokens, /predict and GET /info,
// all exchanging JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/pkg/logger"
)

// ErrEndpoint is returned for an empty endpoint.
var ErrEndpoint = errors.New("remote oracle endpoint must not be empty")

// Client implements oracle.Oracle over HTTP.
type Client struct {
	endpoint string
	model    string
	client   *http.Client
	log      logger.Logger

	mu       sync.RWMutex
	specials oracle.Specials
}

// New creates a client for the server at endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, ErrEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		specials: oracle.DefaultSpecials(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Info describes the model behind the server.
type Info struct {
	Model     string `json:"model"`
	VocabSize int    `json:"vocab_size"`
	Start     string `json:"start_token"`
	End       string `json:"end_token"`
	Mask      string `json:"mask_token"`
}

// Info fetches the model description and adopts the special tokens it reports.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info
	if err := c.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return Info{}, oracle.Wrap("info", err)
	}

	c.mu.Lock()
	if info.Start != "" {
		c.specials.Start = info.Start
	}
	if info.End != "" {
		c.specials.End = info.End
	}
	if info.Mask != "" {
		c.specials.Mask = info.Mask
	}
	c.mu.Unlock()

	if c.log != nil {
		c.log.Info(ctx, "using model",
			logger.String("model", info.Model),
			logger.Int("vocab_size", info.VocabSize),
			logger.String("endpoint", c.endpoint),
		)
	}
	return info, nil
}

// Specials implements oracle.Oracle.
func (c *Client) Specials() oracle.Specials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.specials
}

type tokenizeRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
}

type tokensBody struct {
	Model  string   `json:"model,omitempty"`
	Tokens []string `json:"tokens"`
}

type idsBody struct {
	Model string `json:"model,omitempty"`
	IDs   []int  `json:"ids"`
}

type predictRequest struct {
	Model     string `json:"model,omitempty"`
	IDs       []int  `json:"ids"`
	Positions []int  `json:"positions"`
}

type predictResponse struct {
	Distributions map[int][]float64 `json:"distributions"`
}

// Tokenize implements oracle.Oracle.
func (c *Client) Tokenize(ctx context.Context, text string) ([]string, error) {
	var out tokensBody
	if err := c.do(ctx, http.MethodPost, "/tokenize", tokenizeRequest{Model: c.model, Text: text}, &out); err != nil {
		return nil, oracle.Wrap("tokenize", err)
	}
	return out.Tokens, nil
}

// IDs implements oracle.Oracle.
func (c *Client) IDs(ctx context.Context, tokens []string) ([]int, error) {
	var out idsBody
	if err := c.do(ctx, http.MethodPost, "/ids", tokensBody{Model: c.model, Tokens: tokens}, &out); err != nil {
		return nil, oracle.Wrap("ids", err)
	}
	if len(out.IDs) != len(tokens) {
		return nil, fmt.Errorf("%w: ids: got %d ids for %d tokens", oracle.ErrOracle, len(out.IDs), len(tokens))
	}
	return out.IDs, nil
}

// Tokens implements oracle.Oracle.
func (c *Client) Tokens(ctx context.Context, ids []int) ([]string, error) {
	var out tokensBody
	if err := c.do(ctx, http.MethodPost, "/tokens", idsBody{Model: c.model, IDs: ids}, &out); err != nil {
		return nil, oracle.Wrap("tokens", err)
	}
	if len(out.Tokens) != len(ids) {
		return nil, fmt.Errorf("%w: tokens: got %d tokens for %d ids", oracle.ErrOracle, len(out.Tokens), len(ids))
	}
	return out.Tokens, nil
}

// Predict implements oracle.Oracle.
func (c *Client) Predict(ctx context.Context, ids []int, positions []int) (map[int][]float64, error) {
	var out predictResponse
	req := predictRequest{Model: c.model, IDs: ids, Positions: positions}
	if err := c.do(ctx, http.MethodPost, "/predict", req, &out); err != nil {
		return nil, oracle.Wrap("predict", err)
	}
	for _, p := range positions {
		if _, ok := out.Distributions[p]; !ok {
			return nil, fmt.Errorf("%w: predict: missing distribution for position %d", oracle.ErrOracle, p)
		}
	}
	return out.Distributions, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var _ oracle.Oracle = (*Client)(nil)
