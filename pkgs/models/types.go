package models

// PostSubmission is a single post as claimed by a miner. It is immutable once
// received; the grader owns it for the duration of one validation call.
type PostSubmission struct {
	PostID         string             `json:"post_id"`
	MinerHotkey    string             `json:"miner_hotkey,omitempty"`
	Content        string             `json:"content"`
	Author         string             `json:"author"`
	Timestamp      int64              `json:"date"` // unix seconds
	AccountAgeDays int                `json:"account_age_days"`
	Likes          int                `json:"likes"`
	Retweets       int                `json:"retweets"`
	Quotes         int                `json:"quotes,omitempty"`
	Replies        int                `json:"replies"`
	Followers      int                `json:"followers"`
	Tokens         map[string]float64 `json:"tokens"`
	Sentiment      float64            `json:"sentiment"`
	Score          float64            `json:"score"`
}

// GroundTruth holds the authoritative view of a post, fetched fresh per
// validation. Never cached across validation cycles.
type GroundTruth struct {
	PostID         string `json:"post_id"`
	Content        string `json:"content"`
	Author         string `json:"author"`
	Timestamp      int64  `json:"date"`
	Likes          int    `json:"likes"`
	Retweets       int    `json:"retweets"`
	Quotes         int    `json:"quotes"`
	Replies        int    `json:"replies"`
	Followers      int    `json:"followers"`
	AccountAgeDays int    `json:"account_age_days"`
}

// AnalysisResult is the analyzer's view of a post's content: a token
// relevance map with values in [0,1] and a sentiment scalar in [-1,1].
type AnalysisResult struct {
	Tokens    map[string]float64 `json:"tokens"`
	Sentiment float64            `json:"sentiment"`
}

// Verdict is the terminal outcome of grading one work unit. Exactly one of
// the two shapes applies: Valid carries the batch scoring summary, otherwise
// Err describes the first failing check.
type Verdict struct {
	Valid            bool        `json:"valid"`
	NPosts           int         `json:"n_posts,omitempty"`
	AvgScore         float64     `json:"avg_score,omitempty"`
	QuantityModifier float64     `json:"quantity_modifier,omitempty"`
	FinalScore       float64     `json:"final_score"`
	Err              *GradeError `json:"error,omitempty"`
}

// ValidationPayload is one per-submission work unit from the coordination
// service. GroundTruth is present when the service has already reconciled the
// post against the upstream source (reduced grading mode).
type ValidationPayload struct {
	ValidationID string          `json:"validation_id"`
	MinerHotkey  string          `json:"miner_hotkey"`
	Post         *PostSubmission `json:"post"`
	GroundTruth  *GroundTruth    `json:"ground_truth,omitempty"`
	SelectedAt   int64           `json:"selected_at,omitempty"`
}

// ValidationBatch is a batch-mode work unit: all posts claimed by one miner,
// graded fail-fast as a whole.
type ValidationBatch struct {
	BatchID string            `json:"batch_id"`
	Hotkey  string            `json:"hotkey"`
	Posts   []*PostSubmission `json:"posts"`
}

// ValidationResult is one graded outcome reported back to the coordination
// service. FailureReason is present iff Success is false.
type ValidationResult struct {
	ValidationID  string      `json:"validation_id"`
	MinerHotkey   string      `json:"miner_hotkey"`
	Success       bool        `json:"success"`
	Score         float64     `json:"score"`
	FailureReason *GradeError `json:"failure_reason,omitempty"`
}

// ScoresSnapshot is the aggregate score feed pulled from the coordination
// service once per block window.
type ScoresSnapshot struct {
	Scores           map[string]float64 `json:"scores"`
	CurrentBlock     uint64             `json:"current_block"`
	BlockWindowStart uint64             `json:"block_window_start"`
	BlockWindowEnd   uint64             `json:"block_window_end"`
}
