// Package models defines the data structures shared across pipeline stages.
package models

// QueryPair is one accepted question/query training example.
type QueryPair struct {
	Question       string  `json:"question"`
	Query          string  `json:"mongodb_query"`
	ResultCount    int     `json:"result_count"`
	SampleResults  []any   `json:"sample_results,omitempty"`
	Substitutions  int     `json:"substitutions,omitempty"`
	ExecutionSecs  float64 `json:"execution_seconds,omitempty"`
	GeneratedBy    string  `json:"generated_by,omitempty"`
	SourceLineHint int     `json:"source_line,omitempty"`
}

// FailedQuestion records a question that produced no usable query.
type FailedQuestion struct {
	Question   string   `json:"question"`
	SourceLine int      `json:"source_line,omitempty"`
	Stage      string   `json:"stage"`            // generation, parsing, validation, execution
	Reason     string   `json:"reason"`           // human-readable failure summary
	Rejections []string `json:"rejections,omitempty"`
	RawOutput  string   `json:"raw_output,omitempty"`
}

// RunSummary aggregates one dataset generation run.
type RunSummary struct {
	BatchID            string  `json:"batch_id"`
	Questions          int     `json:"questions"`
	Accepted           int     `json:"accepted"`
	Failed             int     `json:"failed"`
	ValidationPassRate float64 `json:"validation_pass_rate"`
	ExecutionPassRate  float64 `json:"execution_pass_rate"`
	StartedAt          string  `json:"started_at"`
	FinishedAt         string  `json:"finished_at"`
}

// PairAccepted is the event emitted when a pair enters the dataset.
type PairAccepted struct {
	EventType     string `json:"eventType"`
	BatchID       string `json:"batchId"`
	Timestamp     int64  `json:"timestamp"`
	Question      string `json:"question"`
	Query         string `json:"query"`
	ResultCount   int    `json:"resultCount"`
	Substitutions int    `json:"substitutions"`
}

// PairRejected is the event emitted when a pair is discarded.
type PairRejected struct {
	EventType  string   `json:"eventType"`
	BatchID    string   `json:"batchId"`
	Timestamp  int64    `json:"timestamp"`
	Question   string   `json:"question"`
	Stage      string   `json:"stage"`
	Reason     string   `json:"reason"`
	Rejections []string `json:"rejections,omitempty"`
}

// ChatMessage is one turn in a chat-format training example.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatExample is one JSONL line in the fine-tuning dataset.
type ChatExample struct {
	Messages []ChatMessage `json:"messages"`
}

// JudgeScores holds the per-dimension semantic scores from the judge model.
type JudgeScores struct {
	Syntax       int    `json:"syntax_correctness"`
	SchemaUsage  int    `json:"schema_usage"`
	QueryLogic   int    `json:"query_logic"`
	Completeness int    `json:"completeness"`
	Efficiency   int    `json:"efficiency"`
	Explanation  string `json:"explanation,omitempty"`
}

// Average returns the mean of the five dimension scores.
func (s JudgeScores) Average() float64 {
	return float64(s.Syntax+s.SchemaUsage+s.QueryLogic+s.Completeness+s.Efficiency) / 5.0
}

// EvaluationRecord is one evaluated question with all scoring detail.
type EvaluationRecord struct {
	Question         string      `json:"question"`
	GeneratedQuery   string      `json:"generated_query"`
	ValidationPassed bool        `json:"validation_passed"`
	Rejections       []string    `json:"rejections,omitempty"`
	ExecutionSuccess bool        `json:"execution_success"`
	FailureReason    string      `json:"failure_reason,omitempty"`
	ResultCount      int         `json:"result_count"`
	ExecutionScore   float64     `json:"execution_score"` // 5 or 0
	Judge            JudgeScores `json:"judge_scores"`
	SemanticScore    float64     `json:"semantic_score"` // judge average, out of 5
	TotalScore       float64     `json:"total_score"`    // execution + semantic, out of 10
}

// EvaluationReport aggregates an evaluation run over a test set.
type EvaluationReport struct {
	Model                string             `json:"model"`
	Questions            int                `json:"questions"`
	ValidationPassRate   float64            `json:"validation_pass_rate"`
	ExecutionSuccessRate float64            `json:"execution_success_rate"`
	AverageTotalScore    float64            `json:"average_total_score"`
	Records              []EvaluationRecord `json:"records"`
	GeneratedAt          string             `json:"generated_at"`
}
