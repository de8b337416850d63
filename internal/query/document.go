// Package query parses model output into MongoDB query documents and
// validates them against the procurement schema.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Errors returned while parsing model output into a query document.
var (
	ErrNoJSON           = errors.New("no JSON value found in model output")
	ErrUnrecognized     = errors.New("query format not recognized")
	ErrAggregateFlag    = errors.New(`"aggregate" must be true when present`)
	ErrMissingPipeline  = errors.New(`aggregate query is missing a "pipeline" array`)
	ErrPipelineNotArray = errors.New(`"pipeline" must be an array of stage documents`)
)

// Document is a MongoDB query in the pipeline's native shape: either a find
// filter or an aggregation pipeline. Exactly one of Filter and Pipeline is
// set.
type Document struct {
	Aggregate bool
	Filter    map[string]any
	Pipeline  []map[string]any
}

// MarshalJSON renders the document in the wire format the dataset stores:
// aggregations as {"aggregate": true, "pipeline": [...]}, find queries as
// the bare filter object.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d.Aggregate {
		return json.Marshal(map[string]any{
			"aggregate": true,
			"pipeline":  d.Pipeline,
		})
	}
	return json.Marshal(d.Filter)
}

// ExtractJSON finds the first balanced top-level JSON object or array in
// arbitrary model output, after stripping markdown code fences.
func ExtractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	inString, escaped := false, false
	depth := 0
	start := -1

	for i := 0; i < len(content); i++ {
		c := content[i]

		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			if depth == 0 {
				start = i
			}
			depth++
		case '}', ']':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start != -1 {
				raw := strings.TrimSpace(content[start : i+1])
				if json.Valid([]byte(raw)) {
					return raw, nil
				}
				start = -1
			}
		}
	}

	return "", ErrNoJSON
}

// Parse extracts the JSON query from raw model output and fixes it into a
// Document. Structural problems are returned as errors; content problems
// (unknown fields, bad types) are the validator's job.
func Parse(raw string) (*Document, error) {
	text, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, fmt.Errorf("invalid JSON in model output: %w", err)
	}
	return FixStructure(value)
}

// FixStructure coerces the shapes models actually produce into a Document:
// a bare stage array becomes an aggregation, a lone stage object is wrapped
// into a one-stage pipeline, and anything else that is an object is a find
// filter. {"aggregate": false} is rejected outright rather than silently
// executed as a filter that can never match.
func FixStructure(value any) (*Document, error) {
	switch v := value.(type) {
	case []any:
		stages, err := toStages(v)
		if err != nil {
			return nil, err
		}
		return &Document{Aggregate: true, Pipeline: stages}, nil

	case map[string]any:
		if flag, ok := v["aggregate"]; ok {
			b, isBool := flag.(bool)
			if !isBool || !b {
				return nil, ErrAggregateFlag
			}
			rawPipeline, ok := v["pipeline"]
			if !ok {
				return nil, ErrMissingPipeline
			}
			arr, ok := rawPipeline.([]any)
			if !ok {
				return nil, ErrPipelineNotArray
			}
			stages, err := toStages(arr)
			if err != nil {
				return nil, err
			}
			return &Document{Aggregate: true, Pipeline: stages}, nil
		}

		if hasStageKey(v) {
			return &Document{Aggregate: true, Pipeline: []map[string]any{v}}, nil
		}
		return &Document{Filter: v}, nil
	}

	return nil, ErrUnrecognized
}

func toStages(arr []any) ([]map[string]any, error) {
	stages := make([]map[string]any, 0, len(arr))
	for i, s := range arr {
		stage, ok := s.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("pipeline stage %d is not an object", i)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func hasStageKey(m map[string]any) bool {
	for _, key := range []string{"$match", "$group", "$sort", "$limit", "$skip", "$project", "$unwind", "$count"} {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}
