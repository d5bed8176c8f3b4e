package models

import "fmt"

// ErrorCode is the closed enumeration of grading failure codes. Codes are
// stable wire values consumed by the coordination service and by miners
// debugging their submissions.
type ErrorCode string

const (
	ErrNoPosts                  ErrorCode = "no_posts"
	ErrMissingPostID            ErrorCode = "missing_post_id"
	ErrEmptyContent             ErrorCode = "empty_content"
	ErrPostNotFound             ErrorCode = "post_not_found"
	ErrXAPINoResponse           ErrorCode = "x_api_no_response"
	ErrTextMismatch             ErrorCode = "text_mismatch"
	ErrAuthorMismatch           ErrorCode = "author_mismatch"
	ErrTimestampMismatch        ErrorCode = "timestamp_mismatch"
	ErrMetricInflationLikes     ErrorCode = "metric_inflation_likes"
	ErrMetricInflationRetweets  ErrorCode = "metric_inflation_retweets"
	ErrMetricInflationReplies   ErrorCode = "metric_inflation_replies"
	ErrMetricInflationFollowers ErrorCode = "metric_inflation_followers"
	ErrTokensMismatch           ErrorCode = "tokens_mismatch"
	ErrSentimentMismatch        ErrorCode = "sentiment_mismatch"
	ErrScoreInflation           ErrorCode = "score_inflation"
	ErrScoreComputeError        ErrorCode = "score_compute_error"
	ErrAnalyzerUnavailable      ErrorCode = "analyzer_unavailable"
	ErrComputeError             ErrorCode = "compute_error"
)

// ErrorKind groups codes by the class of failure they represent.
type ErrorKind string

const (
	KindEmptyInput          ErrorKind = "empty_input"
	KindNotFound            ErrorKind = "not_found"
	KindMismatch            ErrorKind = "mismatch"
	KindInflation           ErrorKind = "inflation"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindComputeError        ErrorKind = "compute_error"
)

// Kind returns the failure class for a code.
func (c ErrorCode) Kind() ErrorKind {
	switch c {
	case ErrNoPosts, ErrMissingPostID, ErrEmptyContent:
		return KindEmptyInput
	case ErrPostNotFound:
		return KindNotFound
	case ErrTextMismatch, ErrAuthorMismatch, ErrTimestampMismatch,
		ErrTokensMismatch, ErrSentimentMismatch:
		return KindMismatch
	case ErrMetricInflationLikes, ErrMetricInflationRetweets,
		ErrMetricInflationReplies, ErrMetricInflationFollowers,
		ErrScoreInflation:
		return KindInflation
	case ErrXAPINoResponse, ErrAnalyzerUnavailable:
		return KindUpstreamUnavailable
	default:
		return KindComputeError
	}
}

// GradeError is the structured payload attached to an Invalid verdict.
// PostIndex is the 0-based position of the failing post within its batch.
type GradeError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	PostID    string                 `json:"post_id,omitempty"`
	PostIndex int                    `json:"post_index"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func (e *GradeError) Error() string {
	if e.PostID != "" {
		return fmt.Sprintf("%s: %s (post %s, index %d)", e.Code, e.Message, e.PostID, e.PostIndex)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewGradeError builds a GradeError with an empty details map so callers can
// attach fields without nil checks.
func NewGradeError(code ErrorCode, message string, postID string, index int) *GradeError {
	return &GradeError{
		Code:      code,
		Message:   message,
		PostID:    postID,
		PostIndex: index,
		Details:   make(map[string]interface{}),
	}
}

// Invalid wraps a GradeError into a terminal Invalid verdict with zero score.
func Invalid(err *GradeError) *Verdict {
	return &Verdict{Valid: false, FinalScore: 0.0, Err: err}
}
