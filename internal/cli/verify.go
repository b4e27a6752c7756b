package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/httpapi"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/validate"
)

var (
	verifyURL     string
	verifyID      string
	verifyJSON    bool
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [claim text]",
	Short: "Verify one claim or web page against the trusted sources",
	Long: `Verify gathers evidence from the trusted sources, asks the model for a
verdict and records the result.

Example:
  claimcheck verify "Central bank raised interest rates by 25 basis points"
  claimcheck verify --url https://example.com/news/story
  echo "Inflation fell to 2 percent" | claimcheck verify --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyURL, "url", "", "verify the text of this page instead of a claim")
	verifyCmd.Flags().StringVar(&verifyID, "id", "", "record id (generated when empty)")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the response as JSON")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 3*time.Minute, "overall verification timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	text := ""
	if len(args) == 1 {
		text = args[0]
	} else if verifyURL == "" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
		if err != nil {
			return fmt.Errorf("read claim from stdin: %w", err)
		}
		text = string(data)
	}

	if err := validate.Request(text, verifyURL, verifyID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Verifying against %d sources with %s...\n", len(a.config.Sources), a.config.LLM.Model)
	}

	rec, err := a.pipeline.Verify(ctx, pipeline.Request{Text: text, URL: verifyURL, ID: verifyID})
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	if verifyJSON {
		return printJSON(cmd.OutOrStdout(), httpapi.NewVerifyResponse(rec))
	}
	printRecord(cmd.OutOrStdout(), rec)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func verdictMark(v model.Verdict) string {
	switch v {
	case model.VerdictSupported:
		return "✓"
	case model.VerdictRefuted:
		return "✗"
	default:
		return "?"
	}
}

// printRecord renders a verdict for a terminal
func printRecord(w io.Writer, rec *model.VerdictRecord) {
	fmt.Fprintf(w, "%s %s (confidence %.0f%%)\n", verdictMark(rec.Verdict), rec.Verdict, rec.Confidence*100)
	fmt.Fprintf(w, "  Claim:  %s\n", rec.Claim)
	if rec.Explanation != "" {
		fmt.Fprintf(w, "  Why:    %s\n", rec.Explanation)
	}
	fmt.Fprintf(w, "  ID:     %s\n", rec.ID)

	if len(rec.Evidence) == 0 {
		fmt.Fprintf(w, "  Evidence: none\n")
		return
	}
	fmt.Fprintf(w, "  Evidence:\n")
	used := make(map[int]bool, len(rec.Used))
	for _, n := range rec.Used {
		used[n] = true
	}
	for i, ev := range rec.Evidence {
		marker := " "
		if used[i+1] {
			marker = "*"
		}
		title := strings.TrimSpace(ev.Title)
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "   %s[%d] %s\n        %s\n", marker, i+1, title, ev.URL)
	}
}
