package model

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// serverClient implements Tokenizer and LM against llama-server's native API.
type serverClient struct {
	http    *resty.Client
	special map[int]struct{}
}

func newServerClient(baseURL, apiKey string) *serverClient {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &serverClient{http: c, special: map[int]struct{}{}}
}

type tokenizeRequest struct {
	Content      string `json:"content"`
	AddSpecial   bool   `json:"add_special"`
	ParseSpecial bool   `json:"parse_special"`
}

type tokenizeResponse struct {
	Tokens []int `json:"tokens"`
}

type detokenizeRequest struct {
	Tokens []int `json:"tokens"`
}

type detokenizeResponse struct {
	Content string `json:"content"`
}

// completionRequest is the subset of /completion used here. Prompt carries
// token ids so the server evaluates exactly what Encode produced.
type completionRequest struct {
	Prompt       []int   `json:"prompt"`
	NPredict     int     `json:"n_predict"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	Seed         int     `json:"seed,omitempty"`
	CachePrompt  bool    `json:"cache_prompt"`
	ReturnTokens bool    `json:"return_tokens"`
	Stream       bool    `json:"stream"`
}

type completionResponse struct {
	Content         string `json:"content"`
	Tokens          []int  `json:"tokens"`
	StopType        string `json:"stop_type"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
}

type serverProps struct {
	ModelPath string `json:"model_path"`
	Settings  struct {
		NCtx int `json:"n_ctx"`
	} `json:"default_generation_settings"`
}

// post sends body to path and decodes a 2xx answer into out.
func (c *serverClient) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(out).Post(path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("llama-server %s: %w", path, err)
	}
	if resp.IsError() {
		return backendError{path: path, status: resp.StatusCode(), body: tail(resp.String(), 512)}
	}
	return nil
}

func (c *serverClient) Encode(ctx context.Context, text string) ([]int, error) {
	var out tokenizeResponse
	if err := c.post(ctx, "/tokenize", tokenizeRequest{Content: text, ParseSpecial: true}, &out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

func (c *serverClient) Decode(ctx context.Context, ids []int, skipSpecial bool) (string, error) {
	if skipSpecial && len(c.special) > 0 {
		kept := make([]int, 0, len(ids))
		for _, id := range ids {
			if _, ok := c.special[id]; !ok {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	if len(ids) == 0 {
		return "", nil
	}
	var out detokenizeResponse
	if err := c.post(ctx, "/detokenize", detokenizeRequest{Tokens: ids}, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *serverClient) Generate(ctx context.Context, input []int, cfg GenerationConfig) ([]int, error) {
	req := completionRequest{
		Prompt:       input,
		NPredict:     cfg.MaxNewTokens,
		Temperature:  cfg.Temperature,
		TopP:         cfg.TopP,
		Seed:         cfg.Seed,
		CachePrompt:  true,
		ReturnTokens: true,
	}
	if !cfg.DoSample {
		// llama.cpp samples greedily at temperature <= 0
		req.Temperature = 0
	}
	var out completionResponse
	if err := c.post(ctx, "/completion", req, &out); err != nil {
		return nil, err
	}
	gen := out.Tokens
	if gen == nil && out.Content != "" {
		// servers predating return_tokens only send text
		ids, err := c.Encode(ctx, out.Content)
		if err != nil {
			return nil, err
		}
		gen = ids
	}
	full := make([]int, 0, len(input)+len(gen))
	full = append(full, input...)
	return append(full, gen...), nil
}

// learnSpecials records the ids of markers that tokenize to a single token.
func (c *serverClient) learnSpecials(ctx context.Context, markers []string) error {
	for _, m := range markers {
		ids, err := c.Encode(ctx, m)
		if err != nil {
			return err
		}
		if len(ids) == 1 {
			c.special[ids[0]] = struct{}{}
		}
	}
	return nil
}

func (c *serverClient) props(ctx context.Context) (serverProps, error) {
	var p serverProps
	resp, err := c.http.R().SetContext(ctx).SetResult(&p).Get("/props")
	if err != nil {
		return p, err
	}
	if resp.IsError() {
		return p, backendError{path: "/props", status: resp.StatusCode(), body: tail(resp.String(), 256)}
	}
	return p, nil
}

// healthy reports whether /health answers 2xx. llama-server answers 503 while loading.
func (c *serverClient) healthy(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode())
	}
	return nil
}

func (c *serverClient) waitHealthy(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		err := c.healthy(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("llama-server not healthy: %v: %w", err, ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func tail(s string, n int) string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
