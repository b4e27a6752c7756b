package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// mockVerifier implements Verifier
type mockVerifier struct {
	failOn string
}

func (m *mockVerifier) VerifyInput(ctx context.Context, input string) (*model.VerdictRecord, error) {
	// Earlier inputs take longer so completion order differs from input order
	time.Sleep(time.Duration(10-len(input)%10) * time.Millisecond)
	if m.failOn != "" && strings.Contains(input, m.failOn) {
		return nil, errors.New("verify error")
	}
	return &model.VerdictRecord{
		ID:         "id-" + input,
		Claim:      input,
		Verdict:    model.VerdictUnclear,
		Confidence: model.DefaultConfidence,
	}, nil
}

func writeInputFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inputs.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessInputs(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{}, 2)

	inputs := []string{
		"Central bank raised rates",
		"https://www.bnm.gov.my/-/opr-2024",
		"Ringgit hit a record low",
	}

	results := processor.ProcessInputs(context.Background(), inputs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Index != i || res.Input != inputs[i] {
			t.Errorf("result %d out of order: %+v", i, res)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Input, res.Error)
		}
		if res.Record == nil || res.Record.Claim != inputs[i] {
			t.Errorf("expected record for %s", res.Input)
		}
	}
}

func TestBatchProcessor_ProcessInputs_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{failOn: "bad"}, 2)

	results := processor.ProcessInputs(context.Background(), []string{"good claim", "bad claim"})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].GetError() != nil {
		t.Errorf("expected first input to succeed, got %v", results[0].Error)
	}
	if results[1].GetError() == nil {
		t.Error("expected second input to fail")
	}
}

func TestBatchProcessor_ProcessInputs_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{}, 2)
	results := processor.ProcessInputs(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessInputs_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := []string{"one", "two", "three"}
	results := processor.ProcessInputs(ctx, inputs)

	if len(results) != len(inputs) {
		t.Fatalf("expected a result per input, got %d", len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("expected index %d, got %d", i, res.Index)
		}
	}
}

func TestReadInputsFromFile(t *testing.T) {
	path := writeInputFile(t, `Central bank raised rates
# comment
https://www.imf.org/en/News

   Ringgit hit a record low   
Central bank raised rates`)

	inputs, err := ReadInputsFromFile(path)
	if err != nil {
		t.Fatalf("ReadInputsFromFile failed: %v", err)
	}

	expected := []string{"Central bank raised rates", "https://www.imf.org/en/News", "Ringgit hit a record low"}
	if len(inputs) != len(expected) {
		t.Fatalf("expected %d inputs, got %d", len(expected), len(inputs))
	}
	for i, in := range inputs {
		if in != expected[i] {
			t.Errorf("expected %q at index %d, got %q", expected[i], i, in)
		}
	}
}

func TestReadInputsFromFile_NonExistent(t *testing.T) {
	_, err := ReadInputsFromFile(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeInputFile(t, "claim one\nclaim two\n# comment\n\nclaim three\n")

	processor := NewBatchProcessor(&mockVerifier{}, 2)
	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{}, 2)

	_, err := processor.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	path := writeInputFile(t, "")

	processor := NewBatchProcessor(&mockVerifier{}, 2)
	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}
