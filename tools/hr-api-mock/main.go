// Command hr-api-mock serves an in-memory HR backend for local development.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type day struct {
	In, Out    time.Time
	InLat      float64
	InLon      float64
	OutLat     float64
	OutLon     float64
	HasOut     bool
	TotalHours float64
}

type server struct {
	loc         *time.Location
	companyCode string

	mu   sync.Mutex
	days map[string]map[string]*day // employee -> YYYY-MM-DD -> day
}

type coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func main() {
	port := flag.Int("port", 8081, "listen port")
	company := flag.String("company", "ACME", "company code of every employee")
	tz := flag.String("tz", "Asia/Kolkata", "time zone of the backend")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid time zone")
	}
	s := &server{loc: loc, companyCode: *company, days: make(map[string]map[string]*day)}

	r := mux.NewRouter()
	r.Use(s.requireCookie)
	r.HandleFunc("/attendance/daily_attendance", s.dailyAttendance).Methods(http.MethodGet)
	r.HandleFunc("/attendance/punch_in", s.punchIn).Methods(http.MethodPost)
	r.HandleFunc("/attendance/punch_out", s.punchOut).Methods(http.MethodPut)
	r.HandleFunc("/attendance/daily_working_hours", s.workingHours).Methods(http.MethodGet)
	r.HandleFunc("/attendance/user_attendance_performance", s.performance).Methods(http.MethodGet)
	r.HandleFunc("/company/employee-details", s.employeeDetails).Methods(http.MethodGet)
	r.HandleFunc("/get-all-policies", s.policies).Methods(http.MethodGet)
	r.HandleFunc("/general-holidays/get-holiday-groups", s.holidayGroups).Methods(http.MethodGet)

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("addr", addr).Msg("HR API mock server starting")
	log.Fatal().Err(http.ListenAndServe(addr, r)).Msg("listen")
}

func (s *server) requireCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("employee_id")
		if err != nil || c.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Missing credentials"})
			return
		}
		log.Info().Str("method", r.Method).Str("path", r.URL.Path).Str("employee_id", c.Value).
			Str("request_id", r.Header.Get("X-Request-ID")).Msg("request")
		next.ServeHTTP(w, r)
	})
}

func employee(r *http.Request) string {
	c, _ := r.Cookie("employee_id")
	return c.Value
}

func (s *server) today() (time.Time, string) {
	now := time.Now().In(s.loc)
	return now, now.Format("2006-01-02")
}

func (s *server) dailyAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	s.mu.Lock()
	d := s.days[employee(r)][date]
	s.mu.Unlock()
	if d == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	item := map[string]any{
		"punch_in_time":                       d.In.Format(time.RFC3339),
		"punch_in_time_latitude_coordinates":  d.InLat,
		"punch_in_time_longitude_coordinates": d.InLon,
		"status":                              "Present",
		"working_hours":                       math.Round(d.TotalHours*100) / 100,
	}
	if d.HasOut {
		item["punch_out_time"] = d.Out.Format(time.RFC3339)
		item["punch_out_time_latitude_coordinates"] = d.OutLat
		item["punch_out_time_longitude_coordinates"] = d.OutLon
	}
	writeJSON(w, http.StatusOK, []any{item})
}

func decodePunch(r *http.Request) (coordinates, error) {
	var body struct {
		Data coordinates `json:"data"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	return body.Data, err
}

func (s *server) punchIn(w http.ResponseWriter, r *http.Request) {
	at, err := decodePunch(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid location"})
		return
	}
	now, key := s.today()
	emp := employee(r)

	s.mu.Lock()
	if s.days[emp] == nil {
		s.days[emp] = make(map[string]*day)
	}
	d := s.days[emp][key]
	if d == nil {
		d = &day{}
		s.days[emp][key] = d
	}
	d.In, d.InLat, d.InLon = now, at.Latitude, at.Longitude
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Punched in successfully", "punchInTime": now.Format(time.RFC3339)})
}

func (s *server) punchOut(w http.ResponseWriter, r *http.Request) {
	at, err := decodePunch(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid location"})
		return
	}
	now, key := s.today()
	emp := employee(r)

	s.mu.Lock()
	d := s.days[emp][key]
	if d == nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "You have not punched in today"})
		return
	}
	if !d.HasOut || d.Out.Before(d.In) {
		d.TotalHours += now.Sub(d.In).Hours()
	} else {
		d.TotalHours += now.Sub(d.Out).Hours()
	}
	d.Out, d.OutLat, d.OutLon, d.HasOut = now, at.Latitude, at.Longitude, true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Punched out successfully", "punch_out_time": now.Format(time.RFC3339)})
}

func monthParams(r *http.Request) (int, int, bool) {
	month, err1 := strconv.Atoi(r.URL.Query().Get("month"))
	year, err2 := strconv.Atoi(r.URL.Query().Get("year"))
	return month, year, err1 == nil && err2 == nil && month >= 1 && month <= 12
}

func (s *server) workingHours(w http.ResponseWriter, r *http.Request) {
	month, year, ok := monthParams(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "month and year are required"})
		return
	}
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	items := []map[string]any{}
	s.mu.Lock()
	for key, d := range s.days[employee(r)] {
		if len(key) != 10 || key[:8] != prefix {
			continue
		}
		dayNum, _ := strconv.Atoi(key[8:])
		items = append(items, map[string]any{"date": dayNum, "decimal_hours": math.Round(d.TotalHours*100) / 100})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"workingHoursPerDay": items})
}

func (s *server) performance(w http.ResponseWriter, r *http.Request) {
	month, year, ok := monthParams(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "month and year are required"})
		return
	}
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	var worked, missed, late int
	s.mu.Lock()
	for key, d := range s.days[employee(r)] {
		if len(key) != 10 || key[:8] != prefix {
			continue
		}
		worked++
		if !d.HasOut {
			missed++
		}
		if d.In.Hour() >= 10 {
			late++
		}
	}
	s.mu.Unlock()
	resp := map[string]any{"success": true, "totalWorkingDays": worked, "missPunch": missed, "onTimePercentage": 0, "latePercentage": 0}
	if worked > 0 {
		resp["latePercentage"] = math.Round(float64(late)*10000/float64(worked)) / 100
		resp["onTimePercentage"] = math.Round(float64(worked-late)*10000/float64(worked)) / 100
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) employeeDetails(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"weekly_off": []map[string]string{{"day_off": "Sunday"}},
			"company":    map[string]any{"company_code": s.companyCode},
		},
	})
}

func (s *server) policies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"company_code": "OTHER", "holiday_template": "hg-other"},
		{"company_code": s.companyCode, "holiday_template": "hg-main"},
	})
}

func (s *server) holidayGroups(w http.ResponseWriter, r *http.Request) {
	year := time.Now().In(s.loc).Year()
	writeJSON(w, http.StatusOK, []map[string]any{
		{"_id": "hg-other", "leaves": []map[string]string{}},
		{"_id": "hg-main", "leaves": []map[string]string{
			{"holiday_date": fmt.Sprintf("%d-01-26T00:00:00.000Z", year), "holiday_name": "Republic Day"},
			{"holiday_date": fmt.Sprintf("%d-08-15T00:00:00.000Z", year), "holiday_name": "Independence Day"},
			{"holiday_date": fmt.Sprintf("%d-10-02T00:00:00.000Z", year), "holiday_name": "Gandhi Jayanti"},
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
