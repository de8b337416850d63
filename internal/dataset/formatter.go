// Package dataset converts accepted query pairs into the chat-format JSONL
// files used for fine-tuning, and analyzes the resulting datasets.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"procurement-query-pipeline/internal/models"
)

// TrainingSystem is the system message embedded in every training example.
const TrainingSystem = "You are an assistant that converts natural language questions into MongoDB queries. Ensure the query is properly formatted and uses the correct MongoDB operators. Return only the query without any explanations."

// LoadPairs reads an accepted-pairs JSON file produced by a generation run.
func LoadPairs(path string) ([]models.QueryPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pairs file: %w", err)
	}
	var pairs []models.QueryPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse pairs file: %w", err)
	}
	return pairs, nil
}

// Format converts pairs into chat-format examples. The assistant turn holds
// the query re-indented for readability, matching the format the fine-tuned
// model is expected to emit.
func Format(pairs []models.QueryPair) []models.ChatExample {
	examples := make([]models.ChatExample, 0, len(pairs))
	for _, pair := range pairs {
		examples = append(examples, models.ChatExample{
			Messages: []models.ChatMessage{
				{Role: "system", Content: TrainingSystem},
				{Role: "user", Content: pair.Question},
				{Role: "assistant", Content: indentJSON(pair.Query)},
			},
		})
	}
	return examples
}

// Convert loads pairs, shuffles them with the given seed, splits them by
// trainRatio, and writes the two JSONL files. Returns train and val counts.
func Convert(pairsFile, trainFile, valFile string, trainRatio float64, seed int64) (int, int, error) {
	pairs, err := LoadPairs(pairsFile)
	if err != nil {
		return 0, 0, err
	}

	examples := Format(pairs)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(examples), func(i, j int) {
		examples[i], examples[j] = examples[j], examples[i]
	})

	splitIdx := int(float64(len(examples)) * trainRatio)
	if err := WriteJSONL(trainFile, examples[:splitIdx]); err != nil {
		return 0, 0, err
	}
	if err := WriteJSONL(valFile, examples[splitIdx:]); err != nil {
		return 0, 0, err
	}
	return splitIdx, len(examples) - splitIdx, nil
}

// WriteJSONL writes one example per line.
func WriteJSONL(path string, examples []models.ChatExample) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create jsonl file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return fmt.Errorf("encode example: %w", err)
		}
	}
	return w.Flush()
}

// ReadJSONL loads chat examples from a JSONL file.
func ReadJSONL(path string) ([]models.ChatExample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jsonl file: %w", err)
	}
	defer f.Close()

	var examples []models.ChatExample
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ex models.ChatExample
		if err := json.Unmarshal(line, &ex); err != nil {
			return nil, fmt.Errorf("parse jsonl line %d: %w", len(examples)+1, err)
		}
		examples = append(examples, ex)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl file: %w", err)
	}
	return examples, nil
}

// indentJSON pretty-prints a compact JSON string, returning the input
// unchanged if it is not valid JSON.
func indentJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return s
	}
	return buf.String()
}
