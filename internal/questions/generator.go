// Package questions generates natural language procurement questions and
// manages the question files used by the downstream pipeline stages.
package questions

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"procurement-query-pipeline/internal/llm"
	"procurement-query-pipeline/internal/observability/logging"
	"procurement-query-pipeline/internal/observability/metrics"
	"procurement-query-pipeline/internal/prompts"
	"procurement-query-pipeline/internal/retry"
)

// maxEmptyBatches bounds generation when the model keeps answering with no
// usable questions, so a degenerate model cannot spin API calls forever.
const maxEmptyBatches = 3

// Generator produces batches of questions from a chat model.
type Generator struct {
	client  llm.Client
	retry   retry.Config
	metrics *metrics.Metrics
	rng     *rand.Rand
}

// NewGenerator creates a question generator backed by the given model client.
func NewGenerator(client llm.Client, retryCfg retry.Config) *Generator {
	return &Generator{
		client:  client,
		retry:   retryCfg,
		metrics: metrics.DefaultMetrics,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate produces exactly n questions, requesting them in small batches of
// one or two with a short pause between batches.
func (g *Generator) Generate(ctx context.Context, n int) ([]string, error) {
	logger := logging.WithComponent("questions")
	questions := make([]string, 0, n)

	emptyStreak := 0
	for len(questions) < n {
		batchSize := 1 + g.rng.Intn(2)
		if remaining := n - len(questions); batchSize > remaining {
			batchSize = remaining
		}

		var content string
		err := retry.Do(ctx, g.retry, "question batch", func() error {
			start := time.Now()
			var callErr error
			content, callErr = g.client.Complete(ctx, llm.Request{
				System:    prompts.QuestionContext,
				User:      prompts.BuildQuestionBatch(batchSize),
				MaxTokens: 150 * batchSize,
			})
			g.metrics.RecordModelCall("openai", "question-generation", callErr, time.Since(start).Seconds())
			return callErr
		})
		if err != nil {
			return questions, err
		}

		batch := splitQuestions(content)
		if len(batch) > batchSize {
			batch = batch[:batchSize]
		}
		if len(batch) == 0 {
			emptyStreak++
			logger.Warn().Int("emptyStreak", emptyStreak).Msg("Model returned no questions")
			if emptyStreak >= maxEmptyBatches {
				return questions, fmt.Errorf("no questions in %d consecutive batches", emptyStreak)
			}
			continue
		}
		emptyStreak = 0
		for range batch {
			g.metrics.RecordQuestionGenerated()
		}
		questions = append(questions, batch...)

		logger.Info().
			Int("batch", len(batch)).
			Int("total", len(questions)).
			Int("target", n).
			Msg("Generated question batch")

		// Pause between batches to avoid hammering the API
		if len(questions) < n {
			if err := sleep(ctx, time.Duration(1000+g.rng.Intn(1000))*time.Millisecond); err != nil {
				return questions, err
			}
		}
	}

	return questions[:n], nil
}

// splitQuestions extracts one question per non-empty line, stripping any list
// numbering the model added.
func splitQuestions(content string) []string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		q := stripListPrefix(strings.TrimSpace(line))
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

// stripListPrefix removes leading "1." / "2)" / "-" style markers.
func stripListPrefix(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return strings.TrimSpace(s[i+1:])
	}
	if strings.HasPrefix(s, "- ") {
		return strings.TrimSpace(s[2:])
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
