package dataset

import (
	"encoding/json"
	"strings"

	"github.com/montanaflynn/stats"

	"procurement-query-pipeline/internal/models"
)

// maxExampleTokens is the per-example billable cap applied by the
// fine-tuning service.
const maxExampleTokens = 16385

// Distribution summarizes a list of sample values.
type Distribution struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P5     float64 `json:"p5"`
	P95    float64 `json:"p95"`
}

// Analysis holds the statistics for one dataset file.
type Analysis struct {
	Examples          int            `json:"examples"`
	PromptTokens      Distribution   `json:"prompt_tokens"`
	ResponseTokens    Distribution   `json:"response_tokens"`
	TotalTokens       Distribution   `json:"total_tokens"`
	QueryTypes        map[string]int `json:"query_types"`
	PipelineStages    *Distribution  `json:"pipeline_stages,omitempty"`
	BillableTokens    int            `json:"billable_tokens"`
	RecommendedEpochs int            `json:"recommended_epochs"`
	TrainingTokens    int            `json:"training_tokens"`
}

// Analyze computes token and query-type statistics over a dataset. Token
// counts are estimated at four characters per token.
func Analyze(examples []models.ChatExample) Analysis {
	a := Analysis{
		Examples:   len(examples),
		QueryTypes: map[string]int{},
	}

	var promptLens, responseLens, totalLens, stageCounts []float64
	for _, ex := range examples {
		prompt := estimateTokens(userContent(ex))
		response := estimateTokens(assistantContent(ex))
		promptLens = append(promptLens, float64(prompt))
		responseLens = append(responseLens, float64(response))
		totalLens = append(totalLens, float64(prompt+response))

		queryType, stages := classifyResponse(assistantContent(ex))
		a.QueryTypes[queryType]++
		if stages > 0 {
			stageCounts = append(stageCounts, float64(stages))
		}

		billable := prompt + response
		if billable > maxExampleTokens {
			billable = maxExampleTokens
		}
		a.BillableTokens += billable
	}

	a.PromptTokens = distribution(promptLens)
	a.ResponseTokens = distribution(responseLens)
	a.TotalTokens = distribution(totalLens)
	if len(stageCounts) > 0 {
		d := distribution(stageCounts)
		a.PipelineStages = &d
	}

	a.RecommendedEpochs = recommendEpochs(len(examples))
	a.TrainingTokens = a.RecommendedEpochs * a.BillableTokens
	return a
}

// recommendEpochs targets 3 epochs, stretching small datasets and
// compressing very large ones.
func recommendEpochs(n int) int {
	if n == 0 {
		return 0
	}
	epochs := 3
	if n < 100 {
		epochs = 100 / n
		if epochs > 25 {
			epochs = 25
		}
	} else if n > 25000 {
		epochs = 25000 / n
		if epochs < 1 {
			epochs = 1
		}
	}
	return epochs
}

func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// classifyResponse reports the query type of an assistant turn and, for
// aggregations, the number of pipeline stages.
func classifyResponse(content string) (string, int) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		if strings.Contains(content, "\"aggregate\"") {
			return "aggregate", 0
		}
		return "other", 0
	}

	if _, ok := parsed["aggregate"]; ok {
		stages := 0
		if pipeline, ok := parsed["pipeline"].([]any); ok {
			stages = len(pipeline)
		}
		return "aggregate", stages
	}
	if len(parsed) > 0 {
		return "find", 0
	}
	return "other", 0
}

func distribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	p5, _ := stats.Percentile(values, 5)
	p95, _ := stats.Percentile(values, 95)
	return Distribution{Min: min, Max: max, Mean: mean, Median: median, P5: p5, P95: p95}
}

func userContent(ex models.ChatExample) string {
	for _, m := range ex.Messages {
		if m.Role == "user" {
			return m.Content
		}
	}
	return ""
}

func assistantContent(ex models.ChatExample) string {
	for _, m := range ex.Messages {
		if m.Role == "assistant" {
			return m.Content
		}
	}
	return ""
}
