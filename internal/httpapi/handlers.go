package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/store"
	"github.com/ppiankov/claimcheck/internal/validate"
)

// EvidenceLink is the evidence shape returned to callers
type EvidenceLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// VerifyResponse is the body of a successful POST /verify
type VerifyResponse struct {
	ID          string         `json:"id"`
	Claim       string         `json:"claim"`
	Verdict     model.Verdict  `json:"verdict"`
	Confidence  float64        `json:"confidence"`
	Used        []int          `json:"used"`
	Explanation string         `json:"explanation"`
	Evidence    []EvidenceLink `json:"evidence"`
}

// RecentItem is one row of GET /recent
type RecentItem struct {
	ID         string         `json:"id"`
	Claim      string         `json:"claim"`
	Verdict    model.Verdict  `json:"verdict"`
	Confidence float64        `json:"confidence"`
	Evidence   []EvidenceLink `json:"evidence"`
	URL        string         `json:"url"`
	Source     string         `json:"source"`
	CreatedAt  string         `json:"created_at,omitempty"`
}

func links(refs []model.EvidenceRef) []EvidenceLink {
	return lo.Map(refs, func(r model.EvidenceRef, _ int) EvidenceLink {
		return EvidenceLink{Title: r.Title, URL: r.URL}
	})
}

// NewVerifyResponse projects a record onto the response contract
func NewVerifyResponse(rec *model.VerdictRecord) VerifyResponse {
	used := rec.Used
	if used == nil {
		used = []int{}
	}
	return VerifyResponse{
		ID:          rec.ID,
		Claim:       rec.Claim,
		Verdict:     rec.Verdict,
		Confidence:  rec.Confidence,
		Used:        used,
		Explanation: rec.Explanation,
		Evidence:    links(rec.Evidence),
	}
}

// NewRecentItem projects a record onto the listing contract
func NewRecentItem(rec model.VerdictRecord) RecentItem {
	item := RecentItem{
		ID:         rec.ID,
		Claim:      rec.Claim,
		Verdict:    rec.Verdict,
		Confidence: rec.Confidence,
		Evidence:   links(rec.Evidence),
		URL:        rec.URL,
		Source:     rec.SourceLabel(),
	}
	if !rec.CreatedAt.IsZero() {
		item.CreatedAt = rec.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	return item
}

// handleVerify: POST /verify {"text"|"url", "id"?}
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req pipeline.Request
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := validate.Request(req.Text, req.URL, req.ID); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.verifier.Verify(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("verification failed", zap.Error(err))
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, NewVerifyResponse(rec))
}

// handleRecent: GET /recent?limit=20
func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := DefaultRecentLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxRecentLimit)
	}

	records, err := h.records.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list recent failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, lo.Map(records, func(rec model.VerdictRecord, _ int) RecentItem {
		return NewRecentItem(rec)
	}))
}

// handleSearch: GET /search?q=...
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" || h.searcher == nil {
		h.writeJSON(w, http.StatusOK, []model.VerdictRecord{})
		return
	}

	// The index is best-effort: an unreachable backend answers like an empty one.
	hits, err := h.searcher.Search(r.Context(), q, DefaultSearchLimit)
	if err != nil {
		h.logger.Warn("search failed", zap.String("q", q), zap.Error(err))
		hits = nil
	}
	if hits == nil {
		hits = []model.VerdictRecord{}
	}
	h.writeJSON(w, http.StatusOK, hits)
}

// handleHealth reports whether the durable store answers.
// The search index is reported but never makes the service unhealthy.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok", "search": "disabled"}
	if h.searcher != nil {
		body["search"] = "ok"
		if err := h.searcher.Ping(r.Context()); err != nil {
			h.logger.Warn("search index unreachable", zap.Error(err))
			body["search"] = "unavailable"
		}
	}

	if err := h.records.Ping(r.Context()); err != nil {
		body["status"] = "unavailable"
		body["error"] = err.Error()
		h.writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	h.writeJSON(w, http.StatusOK, body)
}

// statusFor maps the error taxonomy onto HTTP statuses
func statusFor(err error) int {
	switch {
	case model.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
