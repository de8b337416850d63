package query

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"bare object", `{"fiscal_year": "2014-2015"}`, `{"fiscal_year": "2014-2015"}`, false},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"fence without language", "```\n[1, 2]\n```", `[1, 2]`, false},
		{"surrounding prose", `Here is the query: {"a": {"b": "}"}} done`, `{"a": {"b": "}"}}`, false},
		{"escaped quote in string", `{"re": "a\"b"}`, `{"re": "a\"b"}`, false},
		{"no json", "I cannot answer that.", "", true},
		{"unbalanced", `{"a": 1`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParse_FindQuery(t *testing.T) {
	doc, err := Parse(`{"department_name": "Water Resources"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Aggregate {
		t.Error("expected a find query")
	}
	if doc.Filter["department_name"] != "Water Resources" {
		t.Errorf("unexpected filter: %v", doc.Filter)
	}
}

func TestParse_WrappedAggregation(t *testing.T) {
	raw := `{"aggregate": true, "pipeline": [{"$match": {"fiscal_year": "2013-2014"}}, {"$limit": 5}]}`

	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Aggregate {
		t.Error("expected an aggregation")
	}
	if len(doc.Pipeline) != 2 {
		t.Errorf("expected 2 stages, got %d", len(doc.Pipeline))
	}
}

func TestParse_BareStageArrayWrapped(t *testing.T) {
	doc, err := Parse(`[{"$match": {"fiscal_year": "2012-2013"}}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Aggregate || len(doc.Pipeline) != 1 {
		t.Errorf("expected a one-stage aggregation, got %+v", doc)
	}
}

func TestParse_LoneStageObjectWrapped(t *testing.T) {
	doc, err := Parse(`{"$group": {"_id": "$department_name"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Aggregate || len(doc.Pipeline) != 1 {
		t.Errorf("expected a one-stage aggregation, got %+v", doc)
	}
}

func TestParse_AggregateFalseRejected(t *testing.T) {
	_, err := Parse(`{"aggregate": false, "pipeline": []}`)
	if !errors.Is(err, ErrAggregateFlag) {
		t.Errorf("expected ErrAggregateFlag, got %v", err)
	}
}

func TestParse_MissingPipelineRejected(t *testing.T) {
	_, err := Parse(`{"aggregate": true}`)
	if !errors.Is(err, ErrMissingPipeline) {
		t.Errorf("expected ErrMissingPipeline, got %v", err)
	}
}

func TestParse_NonObjectStageRejected(t *testing.T) {
	_, err := Parse(`{"aggregate": true, "pipeline": [42]}`)
	if err == nil {
		t.Error("expected error for non-object stage")
	}
}

func TestDocument_MarshalJSON(t *testing.T) {
	agg := &Document{Aggregate: true, Pipeline: []map[string]any{{"$limit": 5}}}
	data, err := json.Marshal(agg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if round["aggregate"] != true {
		t.Error("expected aggregate wrapper in wire format")
	}

	find := &Document{Filter: map[string]any{"location": "Sacramento"}}
	data, err = json.Marshal(find)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"location":"Sacramento"}` {
		t.Errorf("expected bare filter object, got %s", data)
	}
}
