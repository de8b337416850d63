// Package generator turns natural language questions into validated,
// executed MongoDB queries and collects the surviving pairs as training data.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"procurement-query-pipeline/internal/events"
	"procurement-query-pipeline/internal/executor"
	"procurement-query-pipeline/internal/llm"
	"procurement-query-pipeline/internal/models"
	"procurement-query-pipeline/internal/observability/logging"
	"procurement-query-pipeline/internal/observability/metrics"
	"procurement-query-pipeline/internal/prompts"
	"procurement-query-pipeline/internal/query"
	"procurement-query-pipeline/internal/retry"
)

// Runner executes a validated query document. Satisfied by executor.Executor.
type Runner interface {
	Execute(ctx context.Context, doc *query.Document) executor.Result
}

// Pipeline drives question -> query -> validation -> execution for a batch
// of questions and writes the accepted pairs and the error log to disk.
type Pipeline struct {
	client    llm.Client
	validator *query.Validator
	runner    Runner
	publisher *events.Publisher
	retry     retry.Config
	metrics   *metrics.Metrics
}

// New creates a generation pipeline. The publisher may be a disabled
// log-only publisher; the runner must not be nil.
func New(client llm.Client, validator *query.Validator, runner Runner, publisher *events.Publisher, retryCfg retry.Config) *Pipeline {
	return &Pipeline{
		client:    client,
		validator: validator,
		runner:    runner,
		publisher: publisher,
		retry:     retryCfg,
		metrics:   metrics.DefaultMetrics,
	}
}

// GenerateQuery asks the model to translate one question, then parses,
// repairs, and validates the response. The raw model output is returned for
// error logging even when parsing fails.
func (p *Pipeline) GenerateQuery(ctx context.Context, question string) (*query.Document, query.Result, string, error) {
	var raw string
	err := retry.Do(ctx, p.retry, "query generation", func() error {
		start := time.Now()
		var callErr error
		raw, callErr = p.client.Complete(ctx, llm.Request{
			System:    prompts.QuerySystem,
			User:      prompts.BuildQueryUser(question),
			MaxTokens: 4096,
		})
		p.metrics.RecordModelCall("anthropic", "query-generation", callErr, time.Since(start).Seconds())
		return callErr
	})
	if err != nil {
		return nil, query.Result{}, raw, fmt.Errorf("model call: %w", err)
	}

	doc, err := query.Parse(raw)
	if err != nil {
		return nil, query.Result{}, raw, fmt.Errorf("parse response: %w", err)
	}

	res := p.validator.Validate(doc)
	p.metrics.RecordValidation(res.Pass, rejectionReasons(res.Rejections), len(res.Substitutions))
	return doc, res, raw, nil
}

// Run processes every question and writes three artifacts to outDir: the
// accepted pairs, the error log, and the run summary. Only questions whose
// query validates with zero rejections and executes successfully become
// training pairs; everything else is logged with its failure stage.
func (p *Pipeline) Run(ctx context.Context, qs []string, outDir string) (*models.RunSummary, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	batchID := time.Now().Format("20060102_150405")
	startedAt := time.Now().UTC().Format(time.RFC3339)
	logger := logging.WithComponent("generator")

	var (
		pairs     []models.QueryPair
		failures  []models.FailedQuestion
		validated int
		executed  int
	)

	for i, question := range qs {
		lineNumber := i + 1
		qlog := logging.WithQuestion(batchID, lineNumber)
		qlog.Info().Str("question", question).Msg("Processing question")

		_, res, raw, err := p.GenerateQuery(ctx, question)
		if err != nil {
			p.fail(ctx, &failures, batchID, qlog, models.FailedQuestion{
				Question:   question,
				SourceLine: lineNumber,
				Stage:      stageOf(err),
				Reason:     err.Error(),
				RawOutput:  raw,
			})
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if !res.Pass {
			p.fail(ctx, &failures, batchID, qlog, models.FailedQuestion{
				Question:   question,
				SourceLine: lineNumber,
				Stage:      "validation",
				Reason:     fmt.Sprintf("%d clauses rejected", len(res.Rejections)),
				Rejections: rejectionReasons(res.Rejections),
				RawOutput:  raw,
			})
			continue
		}
		validated++

		queryJSON, err := json.Marshal(res.Normalized)
		if err != nil {
			p.fail(ctx, &failures, batchID, qlog, models.FailedQuestion{
				Question:   question,
				SourceLine: lineNumber,
				Stage:      "parsing",
				Reason:     fmt.Sprintf("marshal normalized query: %v", err),
			})
			continue
		}

		execStart := time.Now()
		execRes := p.runner.Execute(ctx, res.Normalized)
		p.metrics.RecordExecution(string(execRes.FailureReason), execRes.ResultCount, time.Since(execStart).Seconds())

		if !execRes.Success {
			p.metrics.RecordQueryGenerated(false)
			p.fail(ctx, &failures, batchID, qlog, models.FailedQuestion{
				Question:   question,
				SourceLine: lineNumber,
				Stage:      "execution",
				Reason:     fmt.Sprintf("%s: %s", execRes.FailureReason, execRes.Error),
			})
			continue
		}
		executed++
		p.metrics.RecordQueryGenerated(true)

		pair := models.QueryPair{
			Question:       question,
			Query:          string(queryJSON),
			ResultCount:    execRes.ResultCount,
			Substitutions:  len(res.Substitutions),
			ExecutionSecs:  time.Since(execStart).Seconds(),
			GeneratedBy:    p.client.Model(),
			SourceLineHint: lineNumber,
		}
		if len(execRes.Sample) > 0 {
			pair.SampleResults = make([]any, 0, len(execRes.Sample))
			for _, s := range execRes.Sample {
				pair.SampleResults = append(pair.SampleResults, s)
			}
		}
		pairs = append(pairs, pair)

		p.publishAccepted(ctx, batchID, pair)
		qlog.Info().Int("resultCount", execRes.ResultCount).Msg("Query accepted")
	}

	summary := &models.RunSummary{
		BatchID:    batchID,
		Questions:  len(qs),
		Accepted:   len(pairs),
		Failed:     len(failures),
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if len(qs) > 0 {
		summary.ValidationPassRate = float64(validated) / float64(len(qs))
		summary.ExecutionPassRate = float64(executed) / float64(len(qs))
	}

	pairsFile := filepath.Join(outDir, fmt.Sprintf("successful_queries_%s.json", batchID))
	errorFile := filepath.Join(outDir, fmt.Sprintf("error_log_%s.json", batchID))
	if err := writeJSON(pairsFile, orEmptyPairs(pairs)); err != nil {
		return summary, err
	}
	if err := writeJSON(errorFile, orEmptyFailures(failures)); err != nil {
		return summary, err
	}
	if err := writeJSON(filepath.Join(outDir, fmt.Sprintf("summary_%s.json", batchID)), summary); err != nil {
		return summary, err
	}

	logger.Info().
		Int("questions", summary.Questions).
		Int("accepted", summary.Accepted).
		Int("failed", summary.Failed).
		Float64("validationPassRate", summary.ValidationPassRate).
		Float64("executionPassRate", summary.ExecutionPassRate).
		Str("pairsFile", pairsFile).
		Str("errorFile", errorFile).
		Msg("Generation run complete")

	return summary, nil
}

func (p *Pipeline) fail(ctx context.Context, failures *[]models.FailedQuestion, batchID string, qlog zerolog.Logger, f models.FailedQuestion) {
	qlog.Warn().Str("stage", f.Stage).Str("reason", f.Reason).Msg("Question failed")
	*failures = append(*failures, f)

	event := models.PairRejected{
		EventType:  "dataset.pair.rejected",
		BatchID:    batchID,
		Timestamp:  time.Now().UnixMilli(),
		Question:   f.Question,
		Stage:      f.Stage,
		Reason:     f.Reason,
		Rejections: f.Rejections,
	}
	if err := p.publisher.PublishRejected(ctx, batchID, event); err != nil {
		qlog.Warn().Err(err).Msg("Failed to publish rejection event")
	}
}

func (p *Pipeline) publishAccepted(ctx context.Context, batchID string, pair models.QueryPair) {
	event := models.PairAccepted{
		EventType:     "dataset.pair.accepted",
		BatchID:       batchID,
		Timestamp:     time.Now().UnixMilli(),
		Question:      pair.Question,
		Query:         pair.Query,
		ResultCount:   pair.ResultCount,
		Substitutions: pair.Substitutions,
	}
	if err := p.publisher.PublishAccepted(ctx, batchID, event); err != nil {
		logger := logging.WithComponent("generator")
		logger.Warn().Err(err).Msg("Failed to publish acceptance event")
	}
}

// stageOf maps a GenerateQuery error onto a failure stage.
func stageOf(err error) string {
	if err == nil {
		return ""
	}
	if strings.HasPrefix(err.Error(), "model call") {
		return "generation"
	}
	return "parsing"
}

func rejectionReasons(rejections []query.Rejection) []string {
	if len(rejections) == 0 {
		return nil
	}
	out := make([]string, 0, len(rejections))
	for _, r := range rejections {
		out = append(out, r.Reason)
	}
	return out
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func orEmptyPairs(pairs []models.QueryPair) []models.QueryPair {
	if pairs == nil {
		return []models.QueryPair{}
	}
	return pairs
}

func orEmptyFailures(failures []models.FailedQuestion) []models.FailedQuestion {
	if failures == nil {
		return []models.FailedQuestion{}
	}
	return failures
}
