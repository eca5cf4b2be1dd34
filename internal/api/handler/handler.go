package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"attendance.tracker/internal/core"
	"attendance.tracker/internal/core/model"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Session is the punch session the handler drives.
type Session interface {
	State() model.SessionState
	Punch(ctx context.Context) (core.PunchOutcome, error)
	PunchIn(ctx context.Context) (core.PunchOutcome, error)
	PunchOut(ctx context.Context) (core.PunchOutcome, error)
	Refresh(ctx context.Context) error
}

// Calendar is the attendance calendar the handler reads.
type Calendar interface {
	View() model.MonthView
	LoadMonth(ctx context.Context, month, year int) (model.MonthView, error)
	Refresh(ctx context.Context) (model.MonthView, error)
	SelectDay(ctx context.Context, date string) (model.DayDetail, error)
	CloseDay()
	Performance(ctx context.Context, month, year int) (*model.Performance, error)
}

// Snapshots reads stored month snapshots.
type Snapshots interface {
	GetMonth(ctx context.Context, employeeID string, year, month int) (*model.MonthView, error)
}

// PunchLog reads the punch journal.
type PunchLog interface {
	ListPunches(ctx context.Context, employeeID string, limit int) ([]model.PunchLogEntry, error)
}

type AttendanceHandler struct {
	EmployeeID string
	Session    Session
	Calendar   Calendar
	// Snapshots and Punches are nil when no database is configured.
	Snapshots Snapshots
	Punches   PunchLog
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type punchResponse struct {
	Message string             `json:"message"`
	State   model.SessionState `json:"state"`
}

type dayResponse struct {
	Detail model.DayDetail `json:"detail"`
	Error  string          `json:"error,omitempty"`
}

func (h *AttendanceHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.State())
}

func (h *AttendanceHandler) Punch(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, h.Session.Punch)
}

func (h *AttendanceHandler) PunchIn(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, h.Session.PunchIn)
}

func (h *AttendanceHandler) PunchOut(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, h.Session.PunchOut)
}

func (h *AttendanceHandler) punch(w http.ResponseWriter, r *http.Request, do func(context.Context) (core.PunchOutcome, error)) {
	outcome, err := do(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, punchResponse{Message: outcome.Message, State: outcome.State})
}

func (h *AttendanceHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Refresh(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Session.State())
}

func (h *AttendanceHandler) GetCurrentMonth(w http.ResponseWriter, r *http.Request) {
	view := h.Calendar.View()
	if view.Month == 0 {
		var err error
		if view, err = h.Calendar.Refresh(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttendanceHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	year, month, ok := monthVars(w, r)
	if !ok {
		return
	}
	view, err := h.Calendar.LoadMonth(r.Context(), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttendanceHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.Snapshots == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "snapshot store not configured"})
		return
	}
	year, month, ok := monthVars(w, r)
	if !ok {
		return
	}
	view, err := h.Snapshots.GetMonth(r.Context(), h.EmployeeID, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if view == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot for this month"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttendanceHandler) RefreshCalendar(w http.ResponseWriter, r *http.Request) {
	view, err := h.Calendar.Refresh(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AttendanceHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Calendar.SelectDay(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		if detail.Kind == "" {
			writeError(w, r, err)
			return
		}
		// The detail view opened but its record could not be fetched.
		writeJSON(w, http.StatusOK, dayResponse{Detail: detail, Error: model.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, dayResponse{Detail: detail})
}

func (h *AttendanceHandler) CloseDay(w http.ResponseWriter, r *http.Request) {
	h.Calendar.CloseDay()
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttendanceHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	month, err1 := strconv.Atoi(r.URL.Query().Get("month"))
	year, err2 := strconv.Atoi(r.URL.Query().Get("year"))
	if err1 != nil || err2 != nil {
		writeError(w, r, model.ErrInvalidMonth)
		return
	}
	perf, err := h.Calendar.Performance(r.Context(), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if perf == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no performance data for this month"})
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

func (h *AttendanceHandler) ListPunches(w http.ResponseWriter, r *http.Request) {
	if h.Punches == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "punch journal not configured"})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.Punches.ListPunches(r.Context(), h.EmployeeID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.PunchLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func monthVars(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	vars := mux.Vars(r)
	year, err1 := strconv.Atoi(vars["year"])
	month, err2 := strconv.Atoi(vars["month"])
	if err1 != nil || err2 != nil {
		writeError(w, r, model.ErrInvalidMonth)
		return 0, 0, false
	}
	return year, month, true
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidMonth), errors.Is(err, model.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidTransition), errors.Is(err, model.ErrPunchInProgress), errors.Is(err, model.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, model.ErrLocationUnavailable), errors.Is(err, model.ErrNetworkFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrRemoteRejected), errors.Is(err, model.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrMissingCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Message: model.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
