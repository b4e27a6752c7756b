package llm

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
)

// Result is the normalized classifier outcome
type Result struct {
	Verdict     model.Verdict
	Confidence  float64 // Canonical [0,1]
	Used        []int   // 1-based evidence indices, validated against the evidence count
	Explanation string
	Raw         string // Model free-text output
	Parsed      bool   // False when the output held no JSON object
}

// Classifier invokes a provider and normalizes its output into a verdict
type Classifier struct {
	provider Provider
	logger   *zap.Logger
}

// NewClassifier creates a classifier over provider
func NewClassifier(provider Provider, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{provider: provider, logger: logger}
}

// ProviderName returns the underlying provider kind
func (c *Classifier) ProviderName() string {
	return c.provider.Name()
}

// Classify sends prompt to the provider and normalizes the answer.
// Provider failures are returned; malformed output is not an error.
func (c *Classifier) Classify(ctx context.Context, prompt string, evidenceCount int) (*Result, error) {
	start := time.Now()
	resp, err := c.provider.Generate(ctx, GenerateRequest{
		Prompt: prompt,
		System: SystemPrompt,
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ModelLatency.WithLabelValues(c.provider.Name(), status).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	result := ParseOutput(resp.Text, evidenceCount)
	if !result.Parsed {
		metrics.ClassifierParseFailures.Inc()
		c.logger.Warn("model output had no JSON object",
			zap.String("provider", c.provider.Name()),
			zap.Error(model.ErrClassificationParse),
			zap.String("output", truncateForLog(resp.Text)))
	}
	return &result, nil
}

// ParseOutput normalizes free-text model output.
// The first JSON object in text is used; when there is none the defaults apply
// (Unclear, 0.5, no used documents, empty explanation).
func ParseOutput(text string, evidenceCount int) Result {
	obj, ok := ExtractJSONObject(text)
	if !ok {
		obj = map[string]any{}
	}

	verdict := model.VerdictUnclear
	if s, isStr := field(obj, "verdict").(string); isStr {
		verdict = model.ParseVerdict(s)
	}

	explanation, _ := field(obj, "explanation").(string)

	return Result{
		Verdict:     verdict,
		Confidence:  NormalizeConfidence(field(obj, "confidence")),
		Used:        normalizeUsed(field(obj, "used"), evidenceCount),
		Explanation: strings.TrimSpace(explanation),
		Raw:         text,
		Parsed:      ok,
	}
}

// ExtractJSONObject finds the first balanced brace-delimited JSON object in text,
// tolerating commentary before and after it.
func ExtractJSONObject(text string) (map[string]any, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchingBrace(text, start); end > start {
			var obj map[string]any
			if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err == nil {
				return obj, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	// Greedy first-to-last brace span
	first, last := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}')
	if first >= 0 && last > first {
		var obj map[string]any
		if err := json.Unmarshal([]byte(text[first:last+1]), &obj); err == nil {
			return obj, true
		}
	}
	return nil, false
}

// matchingBrace returns the index of the brace closing text[start], or -1
func matchingBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// NormalizeConfidence converts a raw confidence onto [0,1].
// The prompt asks for 0-100, so values of 1 or more are read as percentages;
// missing or non-numeric values give 0.5.
func NormalizeConfidence(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(x), "%"), 64)
		if err != nil {
			return model.DefaultConfidence
		}
		f = parsed
	default:
		return model.DefaultConfidence
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return model.DefaultConfidence
	}
	if f >= 1 {
		f /= 100
	}
	return math.Min(1, math.Max(0, f))
}

// normalizeUsed keeps valid 1-based document numbers in first-seen order
func normalizeUsed(v any, evidenceCount int) []int {
	items, ok := v.([]any)
	if !ok {
		return []int{}
	}
	used := lo.FilterMap(items, func(item any, _ int) (int, bool) {
		n, ok := docNumber(item)
		return n, ok && n >= 1 && n <= evidenceCount
	})
	return lo.Uniq(used)
}

func docNumber(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		s := strings.TrimSpace(strings.ToLower(x))
		s = strings.TrimSpace(strings.TrimPrefix(s, "doc"))
		n, err := strconv.Atoi(s)
		return n, err == nil
	}
	return 0, false
}

// field looks a key up case-insensitively
func field(obj map[string]any, key string) any {
	if v, ok := obj[key]; ok {
		return v
	}
	for k, v := range obj {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func truncateForLog(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
