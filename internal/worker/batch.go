package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/policyscout/internal/model"
)

// Researcher runs one research pass for an institution
type Researcher interface {
	ResearchUniversity(ctx context.Context, name, website string) (*model.ResearchResult, error)
}

// BatchJob names one institution to research
type BatchJob struct {
	Name    string
	Website string
}

// BatchResult is the outcome of one BatchJob
type BatchResult struct {
	Job    BatchJob
	Result *model.ResearchResult
	Error  error
}

// BatchProcessor researches many institutions concurrently
type BatchProcessor struct {
	researcher  Researcher
	concurrency int
	progress    func(BatchResult)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(researcher Researcher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		researcher:  researcher,
		concurrency: concurrency,
	}
}

// OnProgress registers a callback invoked as each job finishes
func (b *BatchProcessor) OnProgress(fn func(BatchResult)) *BatchProcessor {
	b.progress = fn
	return b
}

// Process researches every job; one failure never stops the others.
// Results are returned in job order.
func (b *BatchProcessor) Process(ctx context.Context, jobs []BatchJob) []BatchResult {
	tasks := make([]Task[*model.ResearchResult], len(jobs))
	for i, job := range jobs {
		tasks[i] = func(ctx context.Context) (*model.ResearchResult, error) {
			return b.researcher.ResearchUniversity(ctx, job.Name, job.Website)
		}
	}

	pool := NewPool[*model.ResearchResult](b.concurrency)
	if b.progress != nil {
		pool.OnDone(func(o Outcome[*model.ResearchResult]) {
			b.progress(BatchResult{Job: jobs[o.Index], Result: o.Value, Error: o.Err})
		})
	}

	outcomes := pool.Run(ctx, tasks)
	results := make([]BatchResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = BatchResult{Job: jobs[i], Result: o.Value, Error: o.Err}
	}
	return results
}

// ProcessFile reads jobs from a file and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]BatchResult, error) {
	jobs, err := ReadJobsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read jobs: %w", err)
	}
	return b.Process(ctx, jobs), nil
}

// ReadJobsFromFile reads one institution per line as "name" or
// "name,website". Blank lines and # comments are skipped and repeated
// names (case-insensitive) are kept once.
func ReadJobsFromFile(filePath string) ([]BatchJob, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var jobs []BatchJob
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, website, _ := strings.Cut(line, ",")
		job := BatchJob{
			Name:    strings.TrimSpace(name),
			Website: strings.TrimSpace(website),
		}
		if job.Name == "" {
			continue
		}

		key := strings.ToLower(job.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		jobs = append(jobs, job)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return jobs, nil
}
