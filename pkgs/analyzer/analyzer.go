// Package analyzer wraps the content-analysis sidecar. The analyzer itself
// is a black box: given normalized text it returns a token relevance map and
// a sentiment scalar. Grading only depends on this contract.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/models"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/normalize"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/utils"
)

// Analyzer produces an independent content analysis for normalized text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*models.AnalysisResult, error)
}

// Client is an HTTP Analyzer talking to the analysis sidecar.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	log         *logrus.Entry
}

// NewClient creates an analyzer client with a per-call timeout and bounded
// retries.
func NewClient(baseURL string, timeout time.Duration, maxAttempts int) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		log:         logrus.WithField("component", "analyzer"),
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// analyzeResponse mirrors the sidecar's wire shape: a relevance entry per
// token plus an overall sentiment.
type analyzeResponse struct {
	Relevance map[string]struct {
		Relevance float64 `json:"relevance"`
	} `json:"subnet_relevance"`
	Sentiment float64 `json:"sentiment"`
}

// Analyze runs the sidecar on the given text. Token keys in the result are
// normalized (trimmed, lowercased) so later comparisons are deterministic.
func (c *Client) Analyze(ctx context.Context, text string) (*models.AnalysisResult, error) {
	var result *models.AnalysisResult

	operation := func() error {
		res, err := c.analyzeOnce(ctx, text)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	schedule := utils.NewRetryBackOff(500*time.Millisecond, c.maxAttempts, 0)
	if err := backoff.Retry(operation, backoff.WithContext(schedule, ctx)); err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	return result, nil
}

func (c *Client) analyzeOnce(ctx context.Context, text string) (*models.AnalysisResult, error) {
	payload, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		c.log.Debugf("Transient analyzer status %d", resp.StatusCode)
		return nil, fmt.Errorf("analyzer status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("analyzer status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var wire analyzeResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("malformed analyzer response: %w", err))
	}

	tokens := make(map[string]float64, len(wire.Relevance))
	for name, entry := range wire.Relevance {
		tokens[normalize.TokenKey(name)] = entry.Relevance
	}
	return &models.AnalysisResult{Tokens: tokens, Sentiment: wire.Sentiment}, nil
}
