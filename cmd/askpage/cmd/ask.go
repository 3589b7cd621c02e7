package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mlutsenko/askpage/internal/embedder"
	"github.com/mlutsenko/askpage/internal/generator"
	"github.com/mlutsenko/askpage/internal/mongostore"
	"github.com/mlutsenko/askpage/internal/pipeline"
	"github.com/mlutsenko/askpage/internal/reader"
	"github.com/mlutsenko/askpage/internal/segmenter"
	"github.com/spf13/cobra"
)

var (
	askURL      string
	askQuestion string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question about a web page",
	Long: `Run the single-shot pipeline: fetch the page, segment it,
embed the chunks, and answer the question from the page content.

Examples:
  # Fully specified
  askpage ask --url https://example.com/article --question "What is this about?"

  # Prompt interactively for whatever is missing
  askpage ask`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askURL, "url", "", "URL of the page to ask about")
	askCmd.Flags().StringVar(&askQuestion, "question", "", "Question to answer from the page")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	// Missing values come from the interactive surface. Empty input
	// passes through unchanged; the owning stage validates it.
	stdin := bufio.NewReader(cmd.InOrStdin())
	if askURL == "" {
		askURL = promptLine(stdin, "Enter URL: ")
	}
	if askQuestion == "" {
		askQuestion = promptLine(stdin, "Enter your question: ")
	}

	p := pipeline.New(pipeline.Config{
		Reader: reader.Config{
			Endpoint: cfg.Reader.Endpoint,
			APIKey:   cfg.Reader.APIKey,
			Timeout:  cfg.Reader.Timeout,
		},
		Segmenter: segmenter.Config{
			Endpoint: cfg.Segmenter.Endpoint,
			APIKey:   cfg.Segmenter.APIKey,
			Timeout:  cfg.Segmenter.Timeout,
		},
		Embedder: embedder.Config{
			Endpoint: cfg.Embedder.Endpoint,
			APIKey:   cfg.Embedder.APIKey,
			Model:    cfg.Embedder.Model,
			Timeout:  cfg.Embedder.Timeout,
		},
		Generator: generator.Config{
			BaseURL: cfg.Generator.BaseURL,
			APIKey:  cfg.Generator.APIKey,
			Model:   cfg.Generator.Model,
			Timeout: cfg.Generator.Timeout,
		},
		StageTimeout: cfg.Pipeline.StageTimeout,
	})

	// The embeddings collection is optional; the run proceeds
	// without persistence when Mongo is not configured.
	if cfg.Mongo.URI != "" {
		store, err := mongostore.Connect(ctx, mongostore.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			Timeout:    cfg.Mongo.Timeout,
		})
		if err != nil {
			slog.Warn("embeddings store unavailable, continuing without persistence", "error", err)
		} else {
			defer store.Close(context.Background())
			p.WithSink(store)
		}
	}

	result, err := p.Run(ctx, askURL, askQuestion)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Summary())
	if err != nil {
		slog.Debug("run failed", "kind", pipeline.FailureKind(err))
		return fmt.Errorf("pipeline failed at %s: %w", result.FailedStage, err)
	}

	fmt.Fprintf(out, "\nAnswer:\n%s\n", result.Answer)
	if result.SavedRecords > 0 {
		fmt.Fprintf(out, "\nStored %d chunk embeddings.\n", result.SavedRecords)
	}
	return nil
}

// promptLine reads one line from in, returning it trimmed. EOF or
// a read error yields an empty string, passed through unchanged.
func promptLine(in *bufio.Reader, prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}
