package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeKind(t *testing.T) {
	tests := []struct {
		code ErrorCode
		kind ErrorKind
	}{
		{ErrNoPosts, KindEmptyInput},
		{ErrMissingPostID, KindEmptyInput},
		{ErrEmptyContent, KindEmptyInput},
		{ErrPostNotFound, KindNotFound},
		{ErrTextMismatch, KindMismatch},
		{ErrAuthorMismatch, KindMismatch},
		{ErrTimestampMismatch, KindMismatch},
		{ErrTokensMismatch, KindMismatch},
		{ErrSentimentMismatch, KindMismatch},
		{ErrMetricInflationLikes, KindInflation},
		{ErrMetricInflationRetweets, KindInflation},
		{ErrMetricInflationReplies, KindInflation},
		{ErrMetricInflationFollowers, KindInflation},
		{ErrScoreInflation, KindInflation},
		{ErrXAPINoResponse, KindUpstreamUnavailable},
		{ErrAnalyzerUnavailable, KindUpstreamUnavailable},
		{ErrScoreComputeError, KindComputeError},
		{ErrComputeError, KindComputeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.code.Kind(), "code %s", tt.code)
	}
}

func TestGradeErrorMessage(t *testing.T) {
	e := NewGradeError(ErrTextMismatch, "content differs", "p42", 3)
	assert.Contains(t, e.Error(), "text_mismatch")
	assert.Contains(t, e.Error(), "p42")
	assert.Contains(t, e.Error(), "index 3")

	bare := NewGradeError(ErrNoPosts, "no posts submitted", "", 0)
	assert.Equal(t, "no_posts: no posts submitted", bare.Error())
}

func TestNewGradeErrorDetailsUsable(t *testing.T) {
	e := NewGradeError(ErrScoreInflation, "too high", "p1", 0)
	require.NotNil(t, e.Details)
	e.Details["miner"] = 0.9 // must not panic on a fresh error
}

func TestInvalidVerdict(t *testing.T) {
	e := NewGradeError(ErrEmptyContent, "empty", "p1", 2)
	v := Invalid(e)
	assert.False(t, v.Valid)
	assert.Equal(t, 0.0, v.FinalScore)
	assert.Equal(t, e, v.Err)
}

func TestValidationPayloadValidate(t *testing.T) {
	post := &PostSubmission{PostID: "p1"}
	valid := &ValidationPayload{ValidationID: "v1", MinerHotkey: "hk", Post: post}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&ValidationPayload{MinerHotkey: "hk", Post: post}).Validate())
	assert.Error(t, (&ValidationPayload{ValidationID: "v1", Post: post}).Validate())
	assert.Error(t, (&ValidationPayload{ValidationID: "v1", MinerHotkey: "hk"}).Validate())
}

func TestValidationBatchValidate(t *testing.T) {
	assert.NoError(t, (&ValidationBatch{BatchID: "b1", Hotkey: "hk"}).Validate())
	assert.Error(t, (&ValidationBatch{Hotkey: "hk"}).Validate())
	assert.Error(t, (&ValidationBatch{BatchID: "b1"}).Validate())
}

func TestScoresSnapshotValidate(t *testing.T) {
	assert.NoError(t, (&ScoresSnapshot{
		Scores:           map[string]float64{},
		BlockWindowStart: 100,
		BlockWindowEnd:   200,
	}).Validate())
	assert.Error(t, (&ScoresSnapshot{BlockWindowStart: 0, BlockWindowEnd: 1}).Validate())
	assert.Error(t, (&ScoresSnapshot{
		Scores:           map[string]float64{},
		BlockWindowStart: 200,
		BlockWindowEnd:   100,
	}).Validate())
}
