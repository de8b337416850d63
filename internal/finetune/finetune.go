// Package finetune uploads training files and manages fine-tuning jobs.
package finetune

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"procurement-query-pipeline/internal/observability/logging"
)

// DefaultBaseModel is the model fine-tuned when none is configured.
const DefaultBaseModel = "gpt-4o-mini-2024-07-18"

// defaultEpochs matches the target recommended for mid-sized datasets.
const defaultEpochs = 3

// api is the slice of the OpenAI client the trainer uses.
type api interface {
	CreateFile(ctx context.Context, request openai.FileRequest) (openai.File, error)
	CreateFineTuningJob(ctx context.Context, request openai.FineTuningJobRequest) (openai.FineTuningJob, error)
	RetrieveFineTuningJob(ctx context.Context, fineTuningJobID string) (openai.FineTuningJob, error)
}

// Trainer drives the upload / create / poll cycle for one fine-tuning run.
type Trainer struct {
	client    api
	baseModel string
	epochs    int
}

// New creates a trainer using the given API key.
func New(apiKey, baseModel string) *Trainer {
	return newWithClient(openai.NewClient(apiKey), baseModel)
}

func newWithClient(client api, baseModel string) *Trainer {
	if baseModel == "" {
		baseModel = DefaultBaseModel
	}
	return &Trainer{client: client, baseModel: baseModel, epochs: defaultEpochs}
}

// Upload sends a JSONL file to the API for fine-tuning and returns its file ID.
func (t *Trainer) Upload(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("training file: %w", err)
	}

	file, err := t.client.CreateFile(ctx, openai.FileRequest{
		FilePath: path,
		Purpose:  "fine-tune",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}

	logger := logging.WithComponent("finetune")
	logger.Info().
		Str("path", path).
		Str("fileId", file.ID).
		Msg("Uploaded training file")
	return file.ID, nil
}

// Start creates the fine-tuning job from uploaded file IDs and returns the
// job ID.
func (t *Trainer) Start(ctx context.Context, trainFileID, valFileID string) (string, error) {
	job, err := t.client.CreateFineTuningJob(ctx, openai.FineTuningJobRequest{
		TrainingFile:   trainFileID,
		ValidationFile: valFileID,
		Model:          t.baseModel,
		Hyperparameters: &openai.Hyperparameters{
			Epochs: t.epochs,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create fine-tuning job: %w", err)
	}

	logger := logging.WithComponent("finetune")
	logger.Info().
		Str("jobId", job.ID).
		Str("status", job.Status).
		Str("baseModel", t.baseModel).
		Msg("Fine-tuning job created")
	return job.ID, nil
}

// Status retrieves the current state of a fine-tuning job.
func (t *Trainer) Status(ctx context.Context, jobID string) (openai.FineTuningJob, error) {
	job, err := t.client.RetrieveFineTuningJob(ctx, jobID)
	if err != nil {
		return openai.FineTuningJob{}, fmt.Errorf("retrieve job %s: %w", jobID, err)
	}
	return job, nil
}

// Run uploads both files, starts the job, and reports its initial status.
func (t *Trainer) Run(ctx context.Context, trainFile, valFile string) (openai.FineTuningJob, error) {
	trainID, err := t.Upload(ctx, trainFile)
	if err != nil {
		return openai.FineTuningJob{}, err
	}
	valID, err := t.Upload(ctx, valFile)
	if err != nil {
		return openai.FineTuningJob{}, err
	}

	jobID, err := t.Start(ctx, trainID, valID)
	if err != nil {
		return openai.FineTuningJob{}, err
	}
	return t.Status(ctx, jobID)
}
