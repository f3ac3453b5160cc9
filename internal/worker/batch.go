package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/verbatim/internal/model"
)

// Processor creates and runs submissions
type Processor interface {
	Submit(ctx context.Context, text string) (*model.Submission, error)
	Process(ctx context.Context, submissionID string) (*model.Results, error)
}

// Input is one text to process, named for reporting
type Input struct {
	Name string
	Text string
}

// textJob processes one input end to end
type textJob struct {
	index     int
	input     Input
	processor Processor
}

// Execute submits the text and runs the pipeline on it
func (j *textJob) Execute(ctx context.Context) Result {
	res := &BatchResult{Index: j.index, Name: j.input.Name}

	sub, err := j.processor.Submit(ctx, j.input.Text)
	if err != nil {
		res.Error = fmt.Errorf("submit: %w", err)
		return res
	}
	res.SubmissionID = sub.ID

	results, err := j.processor.Process(ctx, sub.ID)
	if err != nil {
		res.Error = err
		return res
	}
	res.Results = results
	return res
}

// BatchResult is the outcome for one input
type BatchResult struct {
	Index        int
	Name         string
	SubmissionID string // Empty when the text failed validation
	Results      *model.Results
	Error        error
}

// GetError returns the error from the batch result
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor runs many submissions concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessTexts processes inputs concurrently; results keep input order
func (b *BatchProcessor) ProcessTexts(ctx context.Context, inputs []Input) []*BatchResult {
	if len(inputs) == 0 {
		return []*BatchResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	out := make([]*BatchResult, len(inputs))
	for i, in := range inputs {
		if !pool.Submit(&textJob{index: i, input: in, processor: b.processor}) {
			out[i] = &BatchResult{Index: i, Name: in.Name, Error: ctx.Err()}
		}
	}

	for _, r := range pool.Wait() {
		br := r.(*BatchResult)
		out[br.Index] = br
	}

	for i := range out {
		if out[i] == nil {
			out[i] = &BatchResult{Index: i, Name: inputs[i].Name, Error: context.Canceled}
		}
	}

	return out
}

// ReadList reads one entry per line, skipping blanks and # comments, deduplicated
func ReadList(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			entries = append(entries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return entries, nil
}
