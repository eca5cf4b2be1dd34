package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"attendance.tracker/internal/api/handler"
)

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(h *handler.AttendanceHandler) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/session", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/session/punch", h.Punch).Methods(http.MethodPost)
	api.HandleFunc("/session/punch-in", h.PunchIn).Methods(http.MethodPost)
	api.HandleFunc("/session/punch-out", h.PunchOut).Methods(http.MethodPost)
	api.HandleFunc("/session/refresh", h.RefreshSession).Methods(http.MethodPost)

	api.HandleFunc("/calendar", h.GetCurrentMonth).Methods(http.MethodGet)
	api.HandleFunc("/calendar/refresh", h.RefreshCalendar).Methods(http.MethodPost)
	api.HandleFunc("/calendar/performance", h.GetPerformance).Methods(http.MethodGet)
	api.HandleFunc("/calendar/days/selected", h.CloseDay).Methods(http.MethodDelete)
	api.HandleFunc("/calendar/days/{date}", h.GetDay).Methods(http.MethodGet)
	api.HandleFunc("/calendar/{year:[0-9]{4}}/{month:[0-9]{1,2}}", h.GetMonth).Methods(http.MethodGet)
	api.HandleFunc("/calendar/{year:[0-9]{4}}/{month:[0-9]{1,2}}/snapshot", h.GetSnapshot).Methods(http.MethodGet)

	api.HandleFunc("/punches", h.ListPunches).Methods(http.MethodGet)

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	return r
}
