package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack-sync/internal/model"
	"fintrack-sync/internal/service"
	"fintrack-sync/pkg/apierror"
	"fintrack-sync/pkg/response"
)

// FinanceHandler serves cached financial data for a user.
type FinanceHandler struct {
	coordinator *service.Coordinator
}

// NewFinanceHandler creates a new finance handler.
func NewFinanceHandler(coordinator *service.Coordinator) *FinanceHandler {
	return &FinanceHandler{coordinator: coordinator}
}

// RecordsResponse is the body of the records endpoint.
type RecordsResponse struct {
	Income   model.RecordList   `json:"income"`
	Expenses model.RecordList   `json:"expenses"`
	Summary  model.RangeSummary `json:"summary"`
}

// RangeMeta echoes the resolved range in milliseconds.
type RangeMeta struct {
	StartMS int64 `json:"start_ms"`
	EndMS   int64 `json:"end_ms"`
}

// GetUser handles GET /api/v1/users/{user_id}
func (h *FinanceHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	req := model.UserDocumentRequest{UserID: chi.URLParam(r, "user_id")}

	v, err := h.coordinator.ResolveSync(r.Context(), req, refresh(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, v)
}

// GetRecords handles GET /api/v1/users/{user_id}/records?start=&end=
func (h *FinanceHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	start, err := parseInstant(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, r, &model.ValidationError{Field: "start", Reason: err.Error()})
		return
	}
	end, err := parseInstant(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, r, &model.ValidationError{Field: "end", Reason: err.Error()})
		return
	}

	req := model.FinancialRangeRequest{
		UserID: chi.URLParam(r, "user_id"),
		Start:  start,
		End:    end,
	}

	v, err := h.coordinator.ResolveSync(r.Context(), req, refresh(r))
	pair, _ := v.(model.RecordListPair)

	if err != nil {
		if errors.Is(err, service.ErrPartialJoin) {
			writeError(w, r, apierror.PartialFetch(err.Error(), recordsResponse(pair)))
			return
		}
		writeError(w, r, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, recordsResponse(pair), RangeMeta{
		StartMS: start.UnixMilli(),
		EndMS:   end.UnixMilli(),
	})
}

// GetGoal handles GET /api/v1/users/{user_id}/goals/{timeframe}?category=
// A missing goal is a 200 with null data.
func (h *FinanceHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	tf, err := model.ParseTimeframe(chi.URLParam(r, "timeframe"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := model.BudgetGoalRequest{
		UserID:    chi.URLParam(r, "user_id"),
		Timeframe: tf,
		Category:  r.URL.Query().Get("category"),
	}

	v, err := h.coordinator.ResolveSync(r.Context(), req, refresh(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, v)
}

// GetCategories handles GET /api/v1/users/{user_id}/categories
func (h *FinanceHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	req := model.CategoryListRequest{UserID: chi.URLParam(r, "user_id")}

	v, err := h.coordinator.ResolveSync(r.Context(), req, refresh(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, v)
}

// InvalidateUser handles DELETE /api/v1/users/{user_id}/cache
func (h *FinanceHandler) InvalidateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if err := (model.UserDocumentRequest{UserID: userID}).Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	removed := h.coordinator.InvalidateUser(r.Context(), userID)
	response.OK(w, map[string]int{"removed": removed})
}

func recordsResponse(pair model.RecordListPair) RecordsResponse {
	income, expenses := pair.Income, pair.Expenses
	if income == nil {
		income = model.RecordList{}
	}
	if expenses == nil {
		expenses = model.RecordList{}
	}
	return RecordsResponse{
		Income:   income,
		Expenses: expenses,
		Summary:  model.Summarize(pair),
	}
}

func refresh(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return err == nil && v
}

// parseInstant accepts Unix milliseconds or RFC3339.
func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("is required")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("must be Unix milliseconds or RFC3339")
	}
	return t, nil
}
