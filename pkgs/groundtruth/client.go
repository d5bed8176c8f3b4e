// Package groundtruth fetches the authoritative view of a post from the
// upstream data source. The grader compares miner claims against this data,
// so results are always fetched fresh per validation and never cached.
package groundtruth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/models"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/utils"
)

// ErrNotFound indicates the upstream source has no record of the post.
var ErrNotFound = errors.New("post not found")

// Provider is the minimal interface the grader needs from any post data
// source. Implementations must distinguish a missing post (ErrNotFound) from
// a transient upstream failure (any other error).
type Provider interface {
	FetchPost(ctx context.Context, postID string) (*models.GroundTruth, error)
}

// Client is an HTTP Provider with bounded, deterministically-jittered
// retries.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	retryBase   time.Duration
	log         *logrus.Entry
}

// NewClient creates a ground-truth client. maxAttempts bounds retries per
// fetch; timeout bounds each individual HTTP call.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxAttempts int) *Client {
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		retryBase:   500 * time.Millisecond,
		log:         logrus.WithField("component", "groundtruth"),
	}
}

// FetchPost fetches a post by id, retrying transient failures with jitter
// seeded from the post id so retry timing is stable across replays.
func (c *Client) FetchPost(ctx context.Context, postID string) (*models.GroundTruth, error) {
	var result *models.GroundTruth

	operation := func() error {
		gt, err := c.fetchOnce(ctx, postID)
		if err != nil {
			return err
		}
		result = gt
		return nil
	}

	schedule := utils.NewRetryBackOff(c.retryBase, c.maxAttempts, utils.DeterministicJitter(postID))
	if err := backoff.Retry(operation, backoff.WithContext(schedule, ctx)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ground truth fetch failed for post %s: %w", postID, err)
	}
	return result, nil
}

func (c *Client) fetchOnce(ctx context.Context, postID string) (*models.GroundTruth, error) {
	url := fmt.Sprintf("%s/posts/%s", c.baseURL, postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failures are retryable.
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.log.Debugf("Transient upstream status %d for post %s", resp.StatusCode, postID)
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var gt models.GroundTruth
	if err := json.Unmarshal(body, &gt); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("malformed ground truth response: %w", err))
	}
	if gt.PostID == "" {
		gt.PostID = postID
	}
	return &gt, nil
}
