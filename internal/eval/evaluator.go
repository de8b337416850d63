// Package eval scores a fine-tuned query generation model against a test
// question set: each generated query is executed against the database and
// judged by a second model, and both outcomes feed the total score.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"procurement-query-pipeline/internal/executor"
	"procurement-query-pipeline/internal/generator"
	"procurement-query-pipeline/internal/llm"
	"procurement-query-pipeline/internal/models"
	"procurement-query-pipeline/internal/observability/logging"
	"procurement-query-pipeline/internal/observability/metrics"
	"procurement-query-pipeline/internal/prompts"
	"procurement-query-pipeline/internal/query"
	"procurement-query-pipeline/internal/retry"
)

// executionScore is awarded when the query runs without error.
const executionScore = 5.0

// Evaluator runs the generate / execute / judge cycle.
type Evaluator struct {
	candidate llm.Client // model under evaluation
	judge     llm.Client // scoring model
	validator *query.Validator
	runner    generator.Runner
	retry     retry.Config
	metrics   *metrics.Metrics
}

// New creates an evaluator. The candidate generates queries; the judge
// scores them.
func New(candidate, judge llm.Client, validator *query.Validator, runner generator.Runner, retryCfg retry.Config) *Evaluator {
	return &Evaluator{
		candidate: candidate,
		judge:     judge,
		validator: validator,
		runner:    runner,
		retry:     retryCfg,
		metrics:   metrics.DefaultMetrics,
	}
}

// judgeResponse mirrors the scoring format the judge is prompted to return.
type judgeResponse struct {
	SyntaxScore          int    `json:"syntax_score"`
	SyntaxComments       string `json:"syntax_comments"`
	SchemaScore          int    `json:"schema_score"`
	SchemaComments       string `json:"schema_comments"`
	LogicScore           int    `json:"logic_score"`
	LogicComments        string `json:"logic_comments"`
	CompletenessScore    int    `json:"completeness_score"`
	CompletenessComments string `json:"completeness_comments"`
	EfficiencyScore      int    `json:"efficiency_score"`
	EfficiencyComments   string `json:"efficiency_comments"`
	Suggestions          string `json:"suggestions"`
}

// Evaluate scores one question end to end. Failures at any step degrade the
// score rather than aborting: a question that produces no query scores zero.
func (e *Evaluator) Evaluate(ctx context.Context, question string) models.EvaluationRecord {
	record := models.EvaluationRecord{Question: question}

	raw, err := e.complete(ctx, e.candidate, "evaluation-generation", llm.Request{
		System:    prompts.FineTunedSystem,
		User:      question,
		MaxTokens: 4096,
	})
	if err != nil {
		record.FailureReason = fmt.Sprintf("query generation failed: %v", err)
		e.metrics.RecordEvaluation(0)
		return record
	}

	doc, err := query.Parse(raw)
	if err != nil {
		record.GeneratedQuery = raw
		record.FailureReason = fmt.Sprintf("unparseable query: %v", err)
		e.metrics.RecordEvaluation(0)
		return record
	}

	res := e.validator.Validate(doc)
	record.ValidationPassed = res.Pass
	for _, r := range res.Rejections {
		record.Rejections = append(record.Rejections, r.Reason)
	}

	queryJSON, err := json.Marshal(res.Normalized)
	if err != nil {
		record.FailureReason = fmt.Sprintf("marshal query: %v", err)
		e.metrics.RecordEvaluation(0)
		return record
	}
	record.GeneratedQuery = string(queryJSON)

	// The query runs even with rejected clauses; a wrong field name that
	// still executes is the judge's problem to score, not a hard failure.
	execStart := time.Now()
	execRes := e.runner.Execute(ctx, res.Normalized)
	e.metrics.RecordExecution(string(execRes.FailureReason), execRes.ResultCount, time.Since(execStart).Seconds())

	record.ExecutionSuccess = execRes.Success
	record.ResultCount = execRes.ResultCount
	if execRes.Success {
		record.ExecutionScore = executionScore
	} else {
		record.FailureReason = string(execRes.FailureReason)
	}

	record.Judge = e.judgeScores(ctx, question, record.GeneratedQuery, execRes)
	record.SemanticScore = record.Judge.Average()
	record.TotalScore = record.ExecutionScore + record.SemanticScore

	e.metrics.RecordEvaluation(record.TotalScore)
	return record
}

// judgeScores asks the judge model to score the query. A judge failure
// scores zero rather than failing the evaluation.
func (e *Evaluator) judgeScores(ctx context.Context, question, queryJSON string, execRes executor.Result) models.JudgeScores {
	message := "Query executed successfully."
	if !execRes.Success {
		message = execRes.Error
	}

	raw, err := e.complete(ctx, e.judge, "evaluation-judge", llm.Request{
		User:      prompts.BuildJudge(question, queryJSON, execRes.Success, message, execRes.ResultCount),
		MaxTokens: 1000,
	})
	if err != nil {
		logger := logging.WithComponent("eval")
		logger.Warn().Err(err).Msg("Judge call failed")
		return models.JudgeScores{}
	}

	payload, err := query.ExtractJSON(raw)
	if err != nil {
		logger := logging.WithComponent("eval")
		logger.Warn().Err(err).Msg("Judge returned no JSON")
		return models.JudgeScores{}
	}

	var resp judgeResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		logger := logging.WithComponent("eval")
		logger.Warn().Err(err).Msg("Judge response did not match scoring format")
		return models.JudgeScores{}
	}

	return models.JudgeScores{
		Syntax:       resp.SyntaxScore,
		SchemaUsage:  resp.SchemaScore,
		QueryLogic:   resp.LogicScore,
		Completeness: resp.CompletenessScore,
		Efficiency:   resp.EfficiencyScore,
		Explanation:  resp.Suggestions,
	}
}

func (e *Evaluator) complete(ctx context.Context, client llm.Client, purpose string, req llm.Request) (string, error) {
	var raw string
	err := retry.Do(ctx, e.retry, purpose, func() error {
		start := time.Now()
		var callErr error
		raw, callErr = client.Complete(ctx, req)
		e.metrics.RecordModelCall(client.Model(), purpose, callErr, time.Since(start).Seconds())
		return callErr
	})
	return raw, err
}

// Run evaluates up to limit questions (all when limit <= 0) and writes the
// aggregate report to outDir.
func (e *Evaluator) Run(ctx context.Context, questions []string, limit int, outDir string) (*models.EvaluationReport, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if limit > 0 && limit < len(questions) {
		questions = questions[:limit]
	}

	logger := logging.WithComponent("eval")
	report := &models.EvaluationReport{
		Model:       e.candidate.Model(),
		Questions:   len(questions),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	var validationPasses, executionSuccesses int
	var totalScore float64
	for i, question := range questions {
		logger.Info().Int("n", i+1).Int("of", len(questions)).Str("question", question).Msg("Evaluating question")

		record := e.Evaluate(ctx, question)
		report.Records = append(report.Records, record)

		if record.ValidationPassed {
			validationPasses++
		}
		if record.ExecutionSuccess {
			executionSuccesses++
		}
		totalScore += record.TotalScore

		if ctx.Err() != nil {
			break
		}
	}

	if n := len(report.Records); n > 0 {
		report.Questions = n
		report.ValidationPassRate = float64(validationPasses) / float64(n)
		report.ExecutionSuccessRate = float64(executionSuccesses) / float64(n)
		report.AverageTotalScore = totalScore / float64(n)
	}

	path := filepath.Join(outDir, fmt.Sprintf("evaluation_results_%s.json", time.Now().Format("20060102_150405")))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return report, fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return report, fmt.Errorf("write report: %w", err)
	}

	logger.Info().
		Int("questions", report.Questions).
		Float64("executionSuccessRate", report.ExecutionSuccessRate).
		Float64("averageTotalScore", report.AverageTotalScore).
		Str("resultsFile", path).
		Msg("Evaluation complete")
	return report, nil
}
