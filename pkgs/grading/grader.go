// Package grading implements the deterministic three-stage validation state
// machine applied to miner post submissions.
//
// Every post walks Stage 1 (ground-truth reconciliation), Stage 2 (content
// analysis reconciliation), and Stage 3 (score reconciliation) in order, and
// the first failing check short-circuits to an Invalid verdict. A verdict is
// a pure function of (submission, ground truth, analysis, tolerances): two
// validators given identical inputs must reach identical verdicts, since
// disagreement directly affects reward distribution.
package grading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/analyzer"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/groundtruth"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/models"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/normalize"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/scoring"
)

// Grader runs the three-stage validation per submission. The ground-truth
// provider may be nil when the grader only runs in reduced mode (ground truth
// pre-checked upstream).
type Grader struct {
	provider groundtruth.Provider
	analyzer analyzer.Analyzer
	tol      ToleranceConfig
	now      func() time.Time
	log      *logrus.Entry
}

// Option customizes a Grader.
type Option func(*Grader)

// WithTolerances overrides the default tolerance constants. Intended for
// tests; production validators must all run the defaults.
func WithTolerances(tol ToleranceConfig) Option {
	return func(g *Grader) { g.tol = tol }
}

// WithClock overrides the time source used for recency scoring, making
// grading reproducible under test.
func WithClock(now func() time.Time) Option {
	return func(g *Grader) { g.now = now }
}

// New creates a Grader.
func New(provider groundtruth.Provider, an analyzer.Analyzer, opts ...Option) *Grader {
	g := &Grader{
		provider: provider,
		analyzer: an,
		tol:      DefaultTolerances(),
		now:      time.Now,
		log:      logrus.WithField("component", "grader"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// QuantityModifier discounts the average score by submission volume,
// discouraging high-volume low-effort submission.
func QuantityModifier(n int) float64 {
	switch {
	case n <= 5:
		return 1.00
	case n <= 20:
		return 0.95
	default:
		return 0.90
	}
}

// GradeBatch grades a batch of posts sequentially with fail-fast semantics:
// the whole batch is Invalid the instant any member post fails, carrying the
// failing post's 0-based index, and later posts are never evaluated.
func (g *Grader) GradeBatch(ctx context.Context, posts []*models.PostSubmission) *models.Verdict {
	if len(posts) == 0 {
		return models.Invalid(models.NewGradeError(models.ErrNoPosts, "no posts submitted", "", 0))
	}
	if g.analyzer == nil {
		return models.Invalid(models.NewGradeError(models.ErrAnalyzerUnavailable, "analyzer not initialized", "", 0))
	}

	var total float64
	for i, post := range posts {
		score, gerr := g.gradePost(ctx, i, post)
		if gerr != nil {
			g.log.WithFields(logrus.Fields{
				"post_id":    gerr.PostID,
				"post_index": gerr.PostIndex,
				"code":       gerr.Code,
			}).Debug("Batch failed validation")
			return models.Invalid(gerr)
		}
		total += score
	}

	n := len(posts)
	avg := total / float64(n)
	modifier := QuantityModifier(n)
	return &models.Verdict{
		Valid:            true,
		NPosts:           n,
		AvgScore:         avg,
		QuantityModifier: modifier,
		FinalScore:       math.Min(1.0, math.Max(0.0, avg*modifier)),
	}
}

// GradeValidation grades a single pre-validated work unit in reduced mode:
// Stage 1 is skipped because the coordination service has already reconciled
// the post against ground truth, and Stage 3 inflation checks run only when
// trusted metrics accompany the payload. The returned result is terminal for
// this unit.
func (g *Grader) GradeValidation(ctx context.Context, p *models.ValidationPayload) *models.ValidationResult {
	result := &models.ValidationResult{
		ValidationID: p.ValidationID,
		MinerHotkey:  p.MinerHotkey,
	}

	if err := p.Validate(); err != nil {
		result.FailureReason = models.NewGradeError(models.ErrComputeError, err.Error(), "", 0)
		return result
	}

	score, gerr := g.gradeReduced(ctx, p)
	if gerr != nil {
		result.FailureReason = gerr
		return result
	}
	result.Success = true
	result.Score = score
	return result
}

// gradePost runs all three stages for one post in batch mode. A panic while
// grading is converted to a compute_error so one bad submission cannot take
// down the batch loop.
func (g *Grader) gradePost(ctx context.Context, i int, post *models.PostSubmission) (score float64, gerr *models.GradeError) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Errorf("Panic while grading post %s: %v", post.PostID, r)
			gerr = models.NewGradeError(models.ErrComputeError, fmt.Sprintf("internal grading failure: %v", r), post.PostID, i)
		}
	}()

	if post.PostID == "" {
		return 0, models.NewGradeError(models.ErrMissingPostID, "post_id is required", "", i)
	}
	content := normalize.Text(post.Content)
	if content == "" {
		return 0, models.NewGradeError(models.ErrEmptyContent, "post content is empty", post.PostID, i)
	}

	// The ground-truth fetch and the content re-analysis are independent
	// reads; they overlap, but both must complete before Stage 3.
	type analysisOut struct {
		res *models.AnalysisResult
		err error
	}
	analysisCh := make(chan analysisOut, 1)
	go func() {
		res, err := g.analyzer.Analyze(ctx, content)
		analysisCh <- analysisOut{res, err}
	}()

	gt, gerr := g.stage1(ctx, i, post, content)
	an := <-analysisCh
	if gerr != nil {
		return 0, gerr
	}
	if an.err != nil {
		return 0, models.NewGradeError(models.ErrAnalyzerUnavailable, an.err.Error(), post.PostID, i)
	}

	if gerr := g.stage2(i, post, an.res); gerr != nil {
		return 0, gerr
	}
	return g.stage3(i, post, gt, an.res)
}

// gradeReduced runs Stage 2 plus the Stage-3-equivalent scoring for one
// pre-validated submission.
func (g *Grader) gradeReduced(ctx context.Context, p *models.ValidationPayload) (score float64, gerr *models.GradeError) {
	post := p.Post
	defer func() {
		if r := recover(); r != nil {
			g.log.Errorf("Panic while grading validation %s: %v", p.ValidationID, r)
			gerr = models.NewGradeError(models.ErrComputeError, fmt.Sprintf("internal grading failure: %v", r), post.PostID, 0)
		}
	}()

	if g.analyzer == nil {
		return 0, models.NewGradeError(models.ErrAnalyzerUnavailable, "analyzer not initialized", post.PostID, 0)
	}
	if post.PostID == "" {
		return 0, models.NewGradeError(models.ErrMissingPostID, "post_id is required", "", 0)
	}
	content := normalize.Text(post.Content)
	if content == "" {
		return 0, models.NewGradeError(models.ErrEmptyContent, "post content is empty", post.PostID, 0)
	}

	res, err := g.analyzer.Analyze(ctx, content)
	if err != nil {
		return 0, models.NewGradeError(models.ErrAnalyzerUnavailable, err.Error(), post.PostID, 0)
	}
	if gerr := g.stage2(0, post, res); gerr != nil {
		return 0, gerr
	}

	// Trusted metrics when supplied, already-reconciled claimed metrics
	// otherwise.
	gt := p.GroundTruth
	enforceInflation := gt != nil
	if gt == nil {
		gt = metricsFromClaims(post)
	}
	comps := scoring.ScorePost(res, gt, g.now())
	if enforceInflation && post.Score > comps.Score+g.tol.ScoreTolerance {
		e := models.NewGradeError(models.ErrScoreInflation, "claimed score exceeds validator score beyond tolerance", post.PostID, 0)
		e.Details["miner"] = post.Score
		e.Details["validator"] = comps.Score
		e.Details["allowed"] = g.tol.ScoreTolerance
		return 0, e
	}
	return comps.Score, nil
}

// stage1 reconciles the claimed post against the upstream ground truth.
func (g *Grader) stage1(ctx context.Context, i int, post *models.PostSubmission, normContent string) (*models.GroundTruth, *models.GradeError) {
	if g.provider == nil {
		return nil, models.NewGradeError(models.ErrXAPINoResponse, "ground truth provider not configured", post.PostID, i)
	}

	gt, err := g.provider.FetchPost(ctx, post.PostID)
	if err != nil {
		if errors.Is(err, groundtruth.ErrNotFound) {
			return nil, models.NewGradeError(models.ErrPostNotFound, "post not found on upstream source", post.PostID, i)
		}
		e := models.NewGradeError(models.ErrXAPINoResponse, "upstream source unreachable after retries", post.PostID, i)
		e.Details["error"] = err.Error()
		return nil, e
	}

	if truth := normalize.Text(gt.Content); truth != normContent {
		e := models.NewGradeError(models.ErrTextMismatch, "post content does not match upstream source", post.PostID, i)
		e.Details["miner"] = normContent
		e.Details["validator"] = truth
		return nil, e
	}
	if normalize.Author(post.Author) != normalize.Author(gt.Author) {
		e := models.NewGradeError(models.ErrAuthorMismatch, "post author does not match upstream source", post.PostID, i)
		e.Details["miner"] = normalize.Author(post.Author)
		e.Details["validator"] = normalize.Author(gt.Author)
		return nil, e
	}
	if post.Timestamp != gt.Timestamp {
		e := models.NewGradeError(models.ErrTimestampMismatch, "post timestamp does not match upstream source", post.PostID, i)
		e.Details["miner"] = post.Timestamp
		e.Details["validator"] = gt.Timestamp
		return nil, e
	}

	// Understatement is always allowed; overstatement beyond tolerance
	// fails.
	checks := []struct {
		code    models.ErrorCode
		name    string
		claimed int
		truth   int
	}{
		{models.ErrMetricInflationLikes, "likes", post.Likes, gt.Likes},
		{models.ErrMetricInflationRetweets, "retweets", post.Retweets, gt.Retweets},
		{models.ErrMetricInflationReplies, "replies", post.Replies, gt.Replies},
		{models.ErrMetricInflationFollowers, "followers", post.Followers, gt.Followers},
	}
	for _, c := range checks {
		allowed := g.tol.MetricAllowance(c.truth)
		if c.claimed > allowed {
			e := models.NewGradeError(c.code, fmt.Sprintf("%s overstated beyond tolerance", c.name), post.PostID, i)
			e.Details["miner"] = c.claimed
			e.Details["validator"] = c.truth
			e.Details["allowed"] = allowed
			return nil, e
		}
	}
	return gt, nil
}

// stage2 reconciles the claimed analysis against an independent recompute.
func (g *Grader) stage2(i int, post *models.PostSubmission, res *models.AnalysisResult) *models.GradeError {
	miner, ref := selectTokens(post.Tokens, res.Tokens, g.tol.TokenCap, g.tol.TokenNoiseFloor)
	diffs := compareTokens(miner, ref, g.tol.TokenTolerance, g.tol.TokenNoiseFloor)
	if len(diffs) > 0 {
		top := diffs
		if len(top) > 5 {
			top = top[:5]
		}
		e := models.NewGradeError(models.ErrTokensMismatch, "token relevance differs beyond tolerance", post.PostID, i)
		e.Details["mismatches"] = top
		e.Details["total_mismatches"] = len(diffs)
		return e
	}

	if d := math.Abs(post.Sentiment - res.Sentiment); d > g.tol.SentimentTolerance {
		e := models.NewGradeError(models.ErrSentimentMismatch, "sentiment differs beyond tolerance", post.PostID, i)
		e.Details["miner"] = post.Sentiment
		e.Details["validator"] = res.Sentiment
		e.Details["allowed"] = g.tol.SentimentTolerance
		e.Details["diff"] = d
		return e
	}
	return nil
}

// stage3 recomputes the score from ground-truth metrics and rejects inflated
// claims. Underclaiming is never penalized.
func (g *Grader) stage3(i int, post *models.PostSubmission, gt *models.GroundTruth, res *models.AnalysisResult) (float64, *models.GradeError) {
	if res == nil || gt == nil {
		return 0, models.NewGradeError(models.ErrScoreComputeError, "score recomputation inputs unavailable", post.PostID, i)
	}
	comps := scoring.ScorePost(res, gt, g.now())
	if post.Score > comps.Score+g.tol.ScoreTolerance {
		e := models.NewGradeError(models.ErrScoreInflation, "claimed score exceeds validator score beyond tolerance", post.PostID, i)
		e.Details["miner"] = post.Score
		e.Details["validator"] = comps.Score
		e.Details["allowed"] = g.tol.ScoreTolerance
		return 0, e
	}
	return comps.Score, nil
}

// metricsFromClaims builds a metric view from the submission's own fields,
// used in reduced mode when no trusted metrics accompany the payload. The
// claimed metrics were reconciled upstream before the unit reached us.
func metricsFromClaims(post *models.PostSubmission) *models.GroundTruth {
	return &models.GroundTruth{
		PostID:         post.PostID,
		Content:        post.Content,
		Author:         post.Author,
		Timestamp:      post.Timestamp,
		Likes:          post.Likes,
		Retweets:       post.Retweets,
		Quotes:         post.Quotes,
		Replies:        post.Replies,
		Followers:      post.Followers,
		AccountAgeDays: post.AccountAgeDays,
	}
}
