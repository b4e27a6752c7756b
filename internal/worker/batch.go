package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Verifier verifies one batch input, a claim text or a URL
type Verifier interface {
	VerifyInput(ctx context.Context, input string) (*model.VerdictRecord, error)
}

// VerifyJob represents one line of a batch
type VerifyJob struct {
	Index    int
	Input    string
	Verifier Verifier
}

// Execute executes the verification
func (j *VerifyJob) Execute(ctx context.Context) *BatchResult {
	record, err := j.Verifier.VerifyInput(ctx, j.Input)
	return &BatchResult{
		Index:  j.Index,
		Input:  j.Input,
		Record: record,
		Error:  err,
	}
}

// BatchResult represents the outcome of one batch input
type BatchResult struct {
	Index  int
	Input  string
	Record *model.VerdictRecord
	Error  error
}

// GetError returns the error from the batch result
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many inputs concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(verifier Verifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// ProcessInputs verifies inputs concurrently and returns results in input order
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*BatchResult {
	if len(inputs) == 0 {
		return []*BatchResult{}
	}

	pool := NewPool[*BatchResult](ctx, b.concurrency)
	pool.Start()

	for i, input := range inputs {
		if !pool.Submit(&VerifyJob{Index: i, Input: input, Verifier: b.verifier}) {
			break
		}
	}

	results := pool.Wait()

	// Inputs never dispatched because ctx ended still get a result
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		seen[r.Index] = true
	}
	for i, input := range inputs {
		if !seen[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results = append(results, &BatchResult{Index: i, Input: input, Error: err})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})
	return results
}

// ProcessFile reads inputs from a file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	return b.ProcessInputs(ctx, inputs), nil
}

// ReadInputsFromFile reads claims or URLs from a file (one per line)
func ReadInputsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var inputs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return inputs, nil
}
