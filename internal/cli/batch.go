package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/claimcheck/internal/httpapi"
	"github.com/ppiankov/claimcheck/internal/worker"
)

var (
	concurrency  int
	batchOutput  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify many claims or URLs from a file in parallel",
	Long: `Batch verifies every line of a file concurrently:
- One claim or http(s) URL per line
- Empty lines and lines starting with # are skipped
- Each verification is recorded like a single verify call
- Results are written as JSON lines, in input order

Example:
  claimcheck batch claims.txt
  claimcheck batch claims.txt --concurrency 8 --output results.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.batch_workers)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results as JSON lines to this file (default: stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	_ = viper.BindPFlag("concurrency.batch_workers", batchCmd.Flags().Lookup("concurrency"))
}

// batchLine is one JSON line of batch output
type batchLine struct {
	Index int    `json:"index"`
	Input string `json:"input"`
	Error string `json:"error,omitempty"`
	*httpapi.VerifyResponse
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	inputs, err := worker.ReadInputsFromFile(file)
	if err != nil {
		return fmt.Errorf("read inputs: %w", err)
	}

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	workers := a.config.Concurrency.BatchWorkers

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  claimcheck batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Inputs:       %d\n", len(inputs))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Model:        %s\n", a.config.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	out := cmd.OutOrStdout()
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	processor := worker.NewBatchProcessor(a.pipeline, workers)
	results := processor.ProcessInputs(ctx, inputs)

	enc := json.NewEncoder(out)
	successCount := 0
	failureCount := 0
	for _, result := range results {
		line := batchLine{Index: result.Index, Input: result.Input}
		if err := result.GetError(); err != nil {
			failureCount++
			line.Error = err.Error()
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", truncateInput(result.Input), err)
		} else {
			successCount++
			resp := httpapi.NewVerifyResponse(result.Record)
			line.VerifyResponse = &resp
			fmt.Fprintf(os.Stderr, "%s %s (%s, %.2f)\n", verdictMark(result.Record.Verdict), truncateInput(result.Input), result.Record.Verdict, result.Record.Confidence)
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	if batchOutput != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", batchOutput)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// truncateInput shortens an input line for progress output
func truncateInput(s string) string {
	runes := []rune(s)
	if len(runes) <= 60 {
		return s
	}
	return string(runes[:57]) + "..."
}
