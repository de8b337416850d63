package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"procurement-query-pipeline/internal/models"
)

func writePairsFile(t *testing.T, pairs string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "successful_queries.json")
	if err := os.WriteFile(path, []byte(pairs), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const samplePairs = `[
  {"question": "How many purchases in 2014?", "mongodb_query": "{\"fiscal_year\": \"2013-2014\"}", "result_count": 10},
  {"question": "Top suppliers?", "mongodb_query": "{\"aggregate\": true, \"pipeline\": [{\"$group\": {\"_id\": \"$supplier_name\"}}, {\"$limit\": 5}]}", "result_count": 5},
  {"question": "IT Goods over 5000?", "mongodb_query": "{\"acquisition_type\": \"IT Goods\", \"total_price\": {\"$gt\": 5000}}", "result_count": 7},
  {"question": "Spend by department?", "mongodb_query": "{\"aggregate\": true, \"pipeline\": [{\"$group\": {\"_id\": \"$department_name\"}}]}", "result_count": 3},
  {"question": "Calcard purchases?", "mongodb_query": "{\"calcard\": \"YES\"}", "result_count": 2}
]`

func TestFormat_ChatStructure(t *testing.T) {
	pairs := []models.QueryPair{
		{Question: "How many purchases in 2014?", Query: `{"fiscal_year": "2013-2014"}`},
	}

	examples := Format(pairs)
	if len(examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(examples))
	}

	msgs := examples[0].Messages
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != TrainingSystem {
		t.Error("expected system message with training instructions")
	}
	if msgs[1].Role != "user" || msgs[1].Content != "How many purchases in 2014?" {
		t.Errorf("unexpected user message: %+v", msgs[1])
	}
	if msgs[2].Role != "assistant" {
		t.Errorf("expected assistant role, got %s", msgs[2].Role)
	}
	if !strings.Contains(msgs[2].Content, "fiscal_year") {
		t.Errorf("expected query in assistant message, got %s", msgs[2].Content)
	}
	// Assistant content is re-indented
	if !strings.Contains(msgs[2].Content, "\n") {
		t.Error("expected indented query in assistant message")
	}
}

func TestConvert_SplitCounts(t *testing.T) {
	pairsFile := writePairsFile(t, samplePairs)
	dir := t.TempDir()
	trainFile := filepath.Join(dir, "train.jsonl")
	valFile := filepath.Join(dir, "val.jsonl")

	trainN, valN, err := Convert(pairsFile, trainFile, valFile, 0.8, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trainN != 4 || valN != 1 {
		t.Errorf("expected 4/1 split, got %d/%d", trainN, valN)
	}

	train, err := ReadJSONL(trainFile)
	if err != nil {
		t.Fatalf("read train: %v", err)
	}
	val, err := ReadJSONL(valFile)
	if err != nil {
		t.Fatalf("read val: %v", err)
	}
	if len(train) != 4 || len(val) != 1 {
		t.Errorf("expected 4 train / 1 val on disk, got %d / %d", len(train), len(val))
	}
}

func TestConvert_Deterministic(t *testing.T) {
	run := func() []models.ChatExample {
		pairsFile := writePairsFile(t, samplePairs)
		dir := t.TempDir()
		trainFile := filepath.Join(dir, "train.jsonl")
		valFile := filepath.Join(dir, "val.jsonl")
		if _, _, err := Convert(pairsFile, trainFile, valFile, 0.8, 7); err != nil {
			t.Fatal(err)
		}
		train, err := ReadJSONL(trainFile)
		if err != nil {
			t.Fatal(err)
		}
		return train
	}

	first := run()
	second := run()
	for i := range first {
		if first[i].Messages[1].Content != second[i].Messages[1].Content {
			t.Fatal("expected identical order for identical seeds")
		}
	}
}

func TestReadJSONL_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.jsonl")
	content := `{"messages":[{"role":"user","content":"q"}]}` + "\n\n" +
		`{"messages":[{"role":"user","content":"q2"}]}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	examples, err := ReadJSONL(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(examples) != 2 {
		t.Errorf("expected 2 examples, got %d", len(examples))
	}
}

func TestLoadPairs_InvalidJSON(t *testing.T) {
	path := writePairsFile(t, "not json")
	if _, err := LoadPairs(path); err == nil {
		t.Error("expected error for invalid pairs file")
	}
}

func TestIndentJSON_InvalidInputUnchanged(t *testing.T) {
	if got := indentJSON("not json"); got != "not json" {
		t.Errorf("expected invalid JSON returned unchanged, got %s", got)
	}
}
