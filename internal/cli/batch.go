package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ppiankov/policyscout/internal/research"
	"github.com/ppiankov/policyscout/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchSave    bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Research many institutions from a file",
	Long: `Batch researches every institution listed in a file:
- One institution per line as "name" or "name,website"
- Lines starting with # are ignored, duplicate names are skipped
- Institutions are processed by a bounded worker pool
- A JSON and Markdown report is written per institution

Example:
  policyscout batch universities.txt
  policyscout batch universities.txt --concurrency 4 --output-dir ./reports --save`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 2, "number of institutions researched at once")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./policyscout-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", time.Hour, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "store every result in the local database")
	addPipelineFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	jobs, err := worker.ReadJobsFromFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  PolicyScout Batch Research\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:     %s\n", file)
	fmt.Fprintf(os.Stderr, "  Institutions:   %d\n", len(jobs))
	fmt.Fprintf(os.Stderr, "  Workers:        %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:     %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:        %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Researching"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	results := worker.NewBatchProcessor(orch, concurrency).
		OnProgress(func(worker.BatchResult) { _ = bar.Add(1) }).
		Process(ctx, jobs)
	_ = bar.Finish()

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	renderer := research.NewRenderer(false)

	successCount := 0
	failureCount := 0
	for _, r := range results {
		name := r.Job.Name
		if r.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", red("✗"), name, r.Error)
			continue
		}

		slug := sanitizeFilename(name)
		if err := renderer.RenderJSON(r.Result, filepath.Join(outputDir, slug+".json")); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "%s %s: failed to write JSON: %v\n", red("✗"), name, err)
			continue
		}
		if err := renderer.RenderMarkdown(name, r.Result, filepath.Join(outputDir, slug+".md")); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "%s %s: failed to write Markdown: %v\n", red("✗"), name, err)
			continue
		}
		if batchSave {
			if err := saveResearch(ctx, cfg, name, r.Job.Website, r.Result); err != nil {
				failureCount++
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", red("✗"), name, err)
				continue
			}
		}

		successCount++
		fmt.Fprintf(os.Stderr, "%s %s (%d policies)\n", green("✓"), name, len(r.Result.Policies))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d institutions\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// sanitizeFilename turns an institution name into a safe file stem
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		s = "institution"
	}

	if len(s) > 100 {
		s = s[:100]
	}
	return strings.ToLower(s)
}
