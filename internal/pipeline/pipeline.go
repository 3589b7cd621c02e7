package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mlutsenko/askpage/internal/embedder"
	"github.com/mlutsenko/askpage/internal/generator"
	"github.com/mlutsenko/askpage/internal/mongostore"
	"github.com/mlutsenko/askpage/internal/reader"
	"github.com/mlutsenko/askpage/internal/segmenter"
	"github.com/mlutsenko/askpage/pkg/models"
)

// State is the orchestrator's position in the run. Transitions move
// strictly forward; StateFailed is absorbing.
type State int

const (
	StateStart State = iota
	StateContentFetched
	StateSegmented
	StateEmbedded
	StateAnswered
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateContentFetched:
		return "content_fetched"
	case StateSegmented:
		return "segmented"
	case StateEmbedded:
		return "embedded"
	case StateAnswered:
		return "answered"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage display names, used in terminal summaries.
const (
	stageContent = "Content acquisition"
	stageSegment = "Text segmentation"
	stageEmbed   = "Embedding generation"
	stageAnswer  = "Answer generation"
)

// contentFetcher, textSegmenter, vectorEmbedder, answerGenerator and
// embeddingSink are the seams the orchestrator drives; satisfied by
// the concrete clients and by test fakes.
type contentFetcher interface {
	Fetch(ctx context.Context, url string) (*models.Document, error)
}

type textSegmenter interface {
	Segment(ctx context.Context, content string) (*models.Segmentation, error)
}

type vectorEmbedder interface {
	Embed(ctx context.Context, inputs []any) (*models.EmbeddingResult, error)
}

type answerGenerator interface {
	Answer(ctx context.Context, document any, question string) (string, error)
}

type embeddingSink interface {
	SaveEmbeddings(ctx context.Context, doc *models.Document, chunks []models.Chunk, result *models.EmbeddingResult) (int, error)
}

// Config holds pipeline configuration.
type Config struct {
	Reader    reader.Config
	Segmenter segmenter.Config
	Embedder  embedder.Config
	Generator generator.Config
	// StageTimeout bounds each stage's external call. Zero means
	// the default of 60s; a hung call never blocks the run forever.
	StageTimeout time.Duration
}

// Result holds the terminal outcome of one pipeline run.
type Result struct {
	State          State
	FailedStage    string
	Answer         string
	ChunkCount     int
	EmbeddingCount int
	SavedRecords   int
	Duration       time.Duration
	Warnings       []error
}

// Summary produces the human-readable terminal report.
func (r *Result) Summary() string {
	if r.State == StateFailed {
		return fmt.Sprintf("%s failed. Exiting.\nThe workflow encountered an error.", r.FailedStage)
	}
	return fmt.Sprintf("Workflow complete: %d chunks, %d embeddings, answer ready in %s.",
		r.ChunkCount, r.EmbeddingCount, r.Duration.Round(time.Millisecond))
}

// Pipeline drives the four stages in fixed order: acquire, segment,
// embed, answer. Stages never run concurrently and each owns its
// inputs; values only flow forward.
type Pipeline struct {
	fetcher      contentFetcher
	segmenter    textSegmenter
	embedder     vectorEmbedder
	generator    answerGenerator
	sink         embeddingSink // nil if persistence disabled
	stageTimeout time.Duration
}

// New creates a Pipeline with clients built from the configuration.
func New(config Config) *Pipeline {
	timeout := config.StageTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Pipeline{
		fetcher:      reader.New(config.Reader),
		segmenter:    segmenter.New(config.Segmenter),
		embedder:     embedder.New(config.Embedder),
		generator:    generator.New(config.Generator),
		stageTimeout: timeout,
	}
}

// WithSink attaches an embeddings store. Persistence is a side
// artifact: sink failures never fail the run.
func (p *Pipeline) WithSink(sink *mongostore.Store) *Pipeline {
	if sink != nil {
		p.sink = sink
	}
	return p
}

// Run executes the pipeline for one URL and question. A failure in
// acquisition, segmentation, or generation short-circuits the run;
// the remaining stages do not execute. Embedding failure is
// non-fatal: embeddings are a side artifact, not a prerequisite for
// answering.
func (p *Pipeline) Run(ctx context.Context, url, question string) (*Result, error) {
	start := time.Now()
	result := &Result{State: StateStart}

	fail := func(stage string, err error) (*Result, error) {
		result.State = StateFailed
		result.FailedStage = stage
		result.Duration = time.Since(start)
		slog.Error("pipeline failed", "stage", stage, "state", result.State, "error", err)
		return result, err
	}

	// Stage 1: content acquisition.
	doc, err := p.fetchContent(ctx, url)
	if err != nil {
		return fail(stageContent, err)
	}
	result.State = StateContentFetched

	// Stage 2: segmentation.
	seg, err := p.segmentText(ctx, doc.Text)
	if err != nil {
		return fail(stageSegment, err)
	}
	result.State = StateSegmented
	result.ChunkCount = len(seg.Chunks)

	// Stage 3: embeddings. Failure is logged and the run continues.
	embeddings, err := p.embedChunks(ctx, seg.Chunks)
	if err != nil {
		slog.Warn("embedding generation failed, continuing without embeddings", "error", err)
		result.Warnings = append(result.Warnings, fmt.Errorf("%s: %w", stageEmbed, err))
	} else {
		result.State = StateEmbedded
		result.EmbeddingCount = len(embeddings.Vectors)
		p.persistEmbeddings(ctx, result, doc, seg.Chunks, embeddings)
	}

	// Stage 4: answer generation over the original document text.
	answer, err := p.generateAnswer(ctx, doc, question)
	if err != nil {
		return fail(stageAnswer, err)
	}
	result.State = StateAnswered
	result.Answer = answer

	result.State = StateDone
	result.Duration = time.Since(start)
	slog.Info("pipeline done",
		"url", url,
		"chunks", result.ChunkCount,
		"embeddings", result.EmbeddingCount,
		"duration", result.Duration)
	return result, nil
}

func (p *Pipeline) fetchContent(ctx context.Context, url string) (*models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.fetcher.Fetch(ctx, url)
}

func (p *Pipeline) segmentText(ctx context.Context, content string) (*models.Segmentation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.segmenter.Segment(ctx, content)
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []models.Chunk) (*models.EmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	inputs := make([]any, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = chunk
	}
	return p.embedder.Embed(ctx, inputs)
}

func (p *Pipeline) generateAnswer(ctx context.Context, doc *models.Document, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return p.generator.Answer(ctx, doc, question)
}

// persistEmbeddings writes vectors to the sink when one is attached.
func (p *Pipeline) persistEmbeddings(ctx context.Context, result *Result, doc *models.Document, chunks []models.Chunk, embeddings *models.EmbeddingResult) {
	if p.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	saved, err := p.sink.SaveEmbeddings(ctx, doc, chunks, embeddings)
	if err != nil {
		slog.Warn("failed to persist embeddings", "error", err)
		result.Warnings = append(result.Warnings, fmt.Errorf("embedding persistence: %w", err))
		return
	}
	result.SavedRecords = saved
}

// FailureKind classifies a run's terminal error for reporting.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, models.ErrAborted):
		return "aborted"
	case models.IsUpstream(err):
		return "upstream_failure"
	default:
		return "unknown"
	}
}
