// Package protocol implements the client for the coordination service: work
// unit intake, result reporting, and the aggregate score feed.
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/models"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/utils"
)

// Client talks HTTP+JSON to the coordination service. All calls carry auth
// headers from the configured signer and are retried on transient failure
// with a bounded, fixed backoff schedule.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	signer      Signer
	maxAttempts int
	retryBase   time.Duration
	log         *logrus.Entry
}

// Config holds client construction parameters.
type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
	MaxAttempts int
	RetryBase   time.Duration
}

// NewClient creates a coordination service client.
func NewClient(cfg Config, signer Signer) *Client {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 3 * time.Second
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		signer:      signer,
		maxAttempts: cfg.MaxAttempts,
		retryBase:   cfg.RetryBase,
		log:         logrus.WithField("component", "protocol"),
	}
}

type validationsResponse struct {
	Available bool                        `json:"available"`
	Payloads  []*models.ValidationPayload `json:"payloads"`
}

// FetchValidations pulls pending per-submission work units. An empty slice
// means no new work.
func (c *Client) FetchValidations(ctx context.Context) ([]*models.ValidationPayload, error) {
	var out validationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v2/validation", nil, &out); err != nil {
		return nil, err
	}
	if !out.Available {
		return nil, nil
	}
	return out.Payloads, nil
}

// FetchBatch pulls the next batch work unit, or nil when no new work.
func (c *Client) FetchBatch(ctx context.Context) (*models.ValidationBatch, error) {
	var out models.ValidationBatch
	if err := c.doJSON(ctx, http.MethodGet, "/v2/batch", nil, &out); err != nil {
		return nil, err
	}
	if out.BatchID == "" {
		return nil, nil
	}
	return &out, nil
}

type resultsRequest struct {
	ValidatorHotkey string                     `json:"validator_hotkey"`
	Results         []*models.ValidationResult `json:"results"`
}

// SubmitResults reports graded per-submission results. The request carries a
// uuid request id so the service can deduplicate redelivered submissions.
func (c *Client) SubmitResults(ctx context.Context, results []*models.ValidationResult) error {
	body := resultsRequest{
		ValidatorHotkey: c.signer.Hotkey(),
		Results:         results,
	}
	return c.doJSON(ctx, http.MethodPost, "/v2/validation_result", body, nil)
}

type batchVerdictRequest struct {
	ValidatorHotkey string          `json:"validator_hotkey"`
	BatchID         string          `json:"batch_id"`
	MinerHotkey     string          `json:"miner_hotkey"`
	Verdict         *models.Verdict `json:"verdict"`
}

// SubmitBatchVerdict reports a whole-batch verdict (batch-vote protocol).
func (c *Client) SubmitBatchVerdict(ctx context.Context, batchID, minerHotkey string, verdict *models.Verdict) error {
	body := batchVerdictRequest{
		ValidatorHotkey: c.signer.Hotkey(),
		BatchID:         batchID,
		MinerHotkey:     minerHotkey,
		Verdict:         verdict,
	}
	return c.doJSON(ctx, http.MethodPost, "/v2/validate_hotkeys", body, nil)
}

// FetchScores pulls the current aggregate score snapshot.
func (c *Client) FetchScores(ctx context.Context) (*models.ScoresSnapshot, error) {
	var out models.ScoresSnapshot
	if err := c.doJSON(ctx, http.MethodGet, "/v2/scores", nil, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

type blockResponse struct {
	CurrentBlock uint64 `json:"current_block"`
}

// CurrentBlock returns the coordination service's view of the chain height,
// used to pace score pulls by block window rather than wall clock.
func (c *Client) CurrentBlock(ctx context.Context) (uint64, error) {
	var out blockResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v2/block", nil, &out); err != nil {
		return 0, err
	}
	return out.CurrentBlock, nil
}

// doJSON performs one logical request with bounded retries. 404 on a GET
// maps to an empty response rather than an error, matching the service's
// "no work available" behavior.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}
	requestID := uuid.NewString()

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if err := c.signer.Authenticate(req); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to sign request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound && method == http.MethodGet:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			c.log.Debugf("Transient status %d from %s %s", resp.StatusCode, method, path)
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
		}

		if respBody == nil {
			return nil
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, respBody); err != nil {
			return backoff.Permanent(fmt.Errorf("%s %s: malformed response: %w", method, path, err))
		}
		return nil
	}

	schedule := utils.NewRetryBackOff(c.retryBase, c.maxAttempts, 0)
	return backoff.Retry(operation, backoff.WithContext(schedule, ctx))
}
