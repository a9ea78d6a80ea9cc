package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/policyscout/internal/crawl"
	"github.com/ppiankov/policyscout/internal/model"
	"github.com/ppiankov/policyscout/internal/research"
	"github.com/ppiankov/policyscout/internal/verify"
)

var (
	verifyJSON    string
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <url>",
	Short: "Cross-reference the claims on one policy page",
	Long: `Verify fetches one page and estimates how reliable it is:
- Extract the key claims about AI policy from the page
- Ask the model to rate each claim and cite supporting sources
- Combine claim confidence with the reputation of the page's domain
- Suggest which low-confidence claims need re-checking

Example:
  policyscout verify https://provost.mit.edu/ai-guidance
  policyscout verify https://uni.edu/ai-policy --json verify.json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyJSON, "json", "", "output JSON path (- for stdout)")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 5*time.Minute, "overall timeout")
	verifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the completion cache")
	verifyCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	verifyCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runVerify(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}

	fetcher := crawl.NewFetcherFromConfig(cfg, logger)
	doc, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	source := model.SourceRecord{
		URL:           doc.URL,
		Title:         doc.Title,
		Type:          model.SourceWebpage,
		RetrievalDate: time.Now().UTC(),
		Content:       doc.Content,
		Metadata:      model.SourceMetadata{Description: "Policy document from " + doc.URL},
	}

	verifier := verify.New(provider,
		verify.WithScoring(cfg.Scoring),
		verify.WithMaxContentChars(cfg.Verify.MaxContentChars),
		verify.WithMaxTokens(cfg.LLM.MaxTokens),
		verify.WithConcurrency(cfg.Verify.Concurrency),
		verify.WithLogger(logger))

	if verbose {
		fmt.Fprintf(os.Stderr, "Fetched %s (%d chars)\n", doc.URL, len(doc.Content))
	}

	result, err := verifier.CrossReference(ctx, source)
	if err != nil {
		return fmt.Errorf("cross-reference failed: %w", err)
	}

	renderer := research.NewRenderer(false)
	if verifyJSON != "" {
		return renderer.RenderJSON(result, verifyJSON)
	}
	renderer.WriteCrossReferenceMarkdown(os.Stdout, source.URL, result)
	return nil
}
