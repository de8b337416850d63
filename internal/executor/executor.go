// Package executor runs validated query documents against the procurement
// collection with a bounded result cap and a fixed per-call timeout.
package executor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"procurement-query-pipeline/internal/query"
)

// FailureReason classifies why a query execution failed.
type FailureReason string

const (
	// ReasonNone - the query succeeded.
	ReasonNone FailureReason = ""
	// ReasonTimeout - the call exceeded its deadline.
	ReasonTimeout FailureReason = "timeout"
	// ReasonMalformedQuery - the server rejected the query document.
	ReasonMalformedQuery FailureReason = "malformed-query"
	// ReasonConnectionError - the database could not be reached.
	ReasonConnectionError FailureReason = "connection-error"
)

// Config holds executor configuration.
type Config struct {
	URI        string
	Database   string
	Collection string
	ResultCap  int           // max documents drained per query
	Timeout    time.Duration // per-call deadline
	SampleSize int           // first-N records returned in Result.Sample
}

// DefaultConfig returns sensible executor defaults.
func DefaultConfig() Config {
	return Config{
		Database:   "procurement_db",
		Collection: "procurement_data",
		ResultCap:  1000,
		Timeout:    30 * time.Second,
		SampleSize: 5,
	}
}

// Result is the outcome of executing one query document.
type Result struct {
	Success       bool          `json:"success"`
	ResultCount   int           `json:"result_count"`
	Sample        []bson.M      `json:"sample,omitempty"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// Executor executes find and aggregate queries against a single collection.
type Executor struct {
	client *mongo.Client
	coll   *mongo.Collection
	cfg    Config
}

// Connect establishes the MongoDB connection and returns an executor over
// the configured collection.
func Connect(ctx context.Context, cfg Config) (*Executor, error) {
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = DefaultConfig().ResultCap
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultConfig().SampleSize
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Msg("Connected to MongoDB")

	return &Executor{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		cfg:    cfg,
	}, nil
}

// NewWithCollection wraps an existing collection handle. Used by tests and
// by callers that manage the client themselves.
func NewWithCollection(coll *mongo.Collection, cfg Config) *Executor {
	return &Executor{coll: coll, cfg: cfg}
}

// Ping warms up the connection by fetching a single _id, matching the
// behavior of a fresh Atlas connection before the first real query.
func (e *Executor) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	res := e.coll.FindOne(ctx, bson.M{}, options.FindOne().SetProjection(bson.M{"_id": 1}))
	if err := res.Err(); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	return nil
}

// Execute runs the query document and drains up to ResultCap documents.
// Failures are reported in the Result, never as a panic; the error return
// path is reserved for the caller's retry decision.
func (e *Executor) Execute(ctx context.Context, doc *query.Document) Result {
	if doc == nil {
		return Result{FailureReason: ReasonMalformedQuery, Error: "nil query document"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	var (
		cursor *mongo.Cursor
		err    error
	)
	if doc.Aggregate {
		cursor, err = e.coll.Aggregate(ctx, e.boundedPipeline(doc.Pipeline))
	} else {
		findOpts := options.Find().SetLimit(int64(e.cfg.ResultCap))
		cursor, err = e.coll.Find(ctx, filterOf(doc.Filter), findOpts)
	}
	if err != nil {
		return e.failure(err)
	}
	defer cursor.Close(ctx)

	count := 0
	sample := make([]bson.M, 0, e.cfg.SampleSize)
	for cursor.Next(ctx) {
		if count < e.cfg.SampleSize {
			var record bson.M
			if decodeErr := cursor.Decode(&record); decodeErr == nil {
				sample = append(sample, record)
			}
		}
		count++
		if count >= e.cfg.ResultCap {
			break
		}
	}
	if err := cursor.Err(); err != nil {
		return e.failure(err)
	}

	return Result{Success: true, ResultCount: count, Sample: sample}
}

// Close disconnects the underlying client.
func (e *Executor) Close(ctx context.Context) error {
	if e.client == nil {
		return nil
	}
	return e.client.Disconnect(ctx)
}

func (e *Executor) failure(err error) Result {
	reason := Classify(err)
	log.Warn().
		Err(err).
		Str("reason", string(reason)).
		Msg("Query execution failed")
	return Result{FailureReason: reason, Error: err.Error()}
}

// Classify maps a driver error onto the pipeline's failure taxonomy.
func Classify(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonNone
	case mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case mongo.IsNetworkError(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		strings.Contains(err.Error(), "server selection"):
		return ReasonConnectionError
	default:
		return ReasonMalformedQuery
	}
}

// filterOf returns an executable filter, treating nil as match-all.
func filterOf(filter map[string]any) any {
	if filter == nil {
		return bson.M{}
	}
	return filter
}

// boundedPipeline appends a $limit stage when the pipeline carries none, so
// the server stops producing documents at the result cap instead of relying
// on the client-side cursor drain alone.
func (e *Executor) boundedPipeline(stages []map[string]any) mongo.Pipeline {
	pipeline := pipelineOf(stages)
	for _, stage := range stages {
		if _, ok := stage["$limit"]; ok {
			return pipeline
		}
	}
	return append(pipeline, bson.D{{Key: "$limit", Value: e.cfg.ResultCap}})
}

// pipelineOf converts the parsed stages into the driver's pipeline type.
func pipelineOf(stages []map[string]any) mongo.Pipeline {
	pipeline := make(mongo.Pipeline, 0, len(stages))
	for _, stage := range stages {
		d := make(bson.D, 0, len(stage))
		for k, v := range stage {
			d = append(d, bson.E{Key: k, Value: v})
		}
		pipeline = append(pipeline, d)
	}
	return pipeline
}
