package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ppiankov/policyscout/internal/model"
	"github.com/ppiankov/policyscout/internal/research"
	"github.com/ppiankov/policyscout/internal/resolve"
	"github.com/ppiankov/policyscout/internal/store/sqlite"
)

var (
	website     string
	outJSON     string
	outMD       string
	saveResult  bool
	timeout     time.Duration
	noCache     bool
	maxPages    int
	llmProvider string
	llmModel    string
)

// researchCmd represents the research command
var researchCmd = &cobra.Command{
	Use:   "research <institution>",
	Short: "Research the AI policies of one institution",
	Long: `Research discovers and analyzes the AI policies of one institution:
- Resolve the official domain (unless --website is given)
- Search the web for AI policy pages on that domain
- Crawl each result for related policy pages
- Categorize and summarize every document with a language model
- Summarize the institution's overall AI strategy

Example:
  policyscout research "Stanford University"
  policyscout research MIT --website mit.edu --json mit.json --md mit.md
  policyscout research "University of Hawaii" --save`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	rootCmd.AddCommand(researchCmd)

	researchCmd.Flags().StringVar(&website, "website", "", "institution website or domain (skips domain resolution)")
	researchCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (- for stdout)")
	researchCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (- for stdout)")
	researchCmd.Flags().BoolVar(&saveResult, "save", false, "store the result in the local database")
	addPipelineFlags(researchCmd)
}

// addPipelineFlags registers the flags shared by commands that run research
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall timeout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the completion cache")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page budget per crawl (default from config)")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// pipelineConfig loads the config and applies the shared pipeline flags
func pipelineConfig() (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if maxPages > 0 {
		cfg.Crawl.MaxPages = maxPages
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	return cfg, nil
}

func runResearch(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Researching: %s\n", name)
		fmt.Fprintf(os.Stderr, "LLM: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Page budget: %d\n", cfg.Crawl.MaxPages)
		fmt.Fprintln(os.Stderr)
	}

	orch, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := orch.ResearchUniversity(ctx, name, website)
	if err != nil {
		return fmt.Errorf("research failed: %w", err)
	}

	renderer := research.NewRenderer(false)
	if outJSON != "" {
		if err := renderer.RenderJSON(result, outJSON); err != nil {
			return err
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(name, result, outMD); err != nil {
			return err
		}
	}
	if outJSON == "" && outMD == "" {
		renderer.WriteResearchMarkdown(os.Stdout, name, result)
	}

	if saveResult {
		if err := saveResearch(ctx, cfg, name, website, result); err != nil {
			return err
		}
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s %s: %d policies from %d sources in %s\n",
		green("✓"), name, len(result.Policies), len(result.Sources), time.Since(start).Round(time.Second))
	return nil
}

func saveResearch(ctx context.Context, cfg *model.Config, name, site string, result *model.ResearchResult) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	inst, err := store.FindInstitution(ctx, name)
	if errors.Is(err, sqlite.ErrNotFound) {
		inst, err = store.CreateInstitution(ctx, model.Institution{
			Name:    name,
			Website: site,
			Domain:  resolve.NormalizeWebsite(site),
		})
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}

	if err := store.SaveResearch(ctx, inst.ID, result); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	fmt.Fprintf(os.Stderr, "Saved to %s (institution #%d)\n", store.Path(), inst.ID)
	return nil
}
