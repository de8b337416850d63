package events

import (
	"context"
	"testing"

	"procurement-query-pipeline/internal/models"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"nil brokers", &Config{Enabled: true, Brokers: nil}},
		{"nil config", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerAccepted != nil {
				t.Error("expected nil accepted writer when disabled")
			}
			if p.writerRejected != nil {
				t.Error("expected nil rejected writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:       false,
		Brokers:       []string{"localhost:9092"},
		TopicAccepted: "test.accepted",
		TopicRejected: "test.rejected",
		Principal:     "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicAccepted != "test.accepted" {
		t.Errorf("expected topic accepted 'test.accepted', got %s", p.topicAccepted)
	}
	if p.topicRejected != "test.rejected" {
		t.Errorf("expected topic rejected 'test.rejected', got %s", p.topicRejected)
	}
}

func TestPublisher_PublishAccepted_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := models.PairAccepted{
		EventType: "dataset.pair.accepted",
		BatchID:   "batch-1",
		Question:  "How many contracts were awarded in 2014?",
	}
	if err := p.PublishAccepted(context.Background(), "batch-1", event); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishRejected_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := models.PairRejected{
		EventType: "dataset.pair.rejected",
		BatchID:   "batch-1",
		Stage:     "validation",
		Reason:    "unknown field",
	}
	if err := p.PublishRejected(context.Background(), "batch-1", event); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_Publish_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := make(chan int)
	if err := p.PublishAccepted(context.Background(), "key", event); err == nil {
		t.Error("expected error for unmarshalable event")
	}
	if err := p.PublishRejected(context.Background(), "key", event); err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilWriters(t *testing.T) {
	p := &Publisher{}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}
