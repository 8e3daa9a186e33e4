package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"schedcal/internal/availability"
	"schedcal/internal/models"
	"schedcal/internal/scheduler"

	"github.com/gorilla/mux"
)

func (s *Server) availability(w http.ResponseWriter, r *http.Request) {
	var req models.ScheduleRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Availability(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) storeForm(w http.ResponseWriter, r *http.Request) {
	var form models.FormData
	if !s.decode(w, r, &form) {
		return
	}
	id, err := s.svc.StoreForm(r.Context(), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": id})
}

func (s *Server) retrieveForm(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("token")
	if id == "" {
		s.fail(w, r, fmt.Errorf("%w: token is required", scheduler.ErrInvalidRequest))
		return
	}
	form, err := s.svc.RetrieveForm(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) rescheduleData(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.fail(w, r, fmt.Errorf("%w: id is required", scheduler.ErrInvalidRequest))
		return
	}
	form, err := s.svc.RescheduleData(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) appointment(w http.ResponseWriter, r *http.Request) {
	var req models.AppointmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Book(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) reschedule(w http.ResponseWriter, r *http.Request) {
	var req models.RescheduleRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Reschedule(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type candidatesBody struct {
	Candidates       [][2]string         `json:"schedule_interview_datetimes"`
	SlotAttendeesMap map[string][]string `json:"slot_attendees_map"`
}

func (s *Server) updateCandidates(w http.ResponseWriter, r *http.Request) {
	var body candidatesBody
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.svc.UpdateCandidates(r.Context(), mux.Vars(r)["id"], body.Candidates, body.SlotAttendeesMap); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteForm(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteForm(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) employees(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Employees(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.fail(w, r, fmt.Errorf("%w: malformed JSON body: %w", scheduler.ErrInvalidRequest, err))
		return false
	}
	return true
}

// fail maps err onto a status code and writes it as {"error": "..."}.
// Internal details of provider and server errors stay in the log.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := classify(err)
	attrs := []any{"request_id", RequestIDFromContext(r.Context()), "status", code, "error", err}
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", attrs...)
	} else {
		s.logger.Warn("Request rejected", attrs...)
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, scheduler.ErrInvalidRequest), errors.Is(err, availability.ErrConfiguration):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, availability.ErrFormat), errors.Is(err, availability.ErrDataShape):
		return http.StatusUnprocessableEntity, "could not compute availability"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, scheduler.ErrConflict), errors.Is(err, models.ErrDuplicate):
		return http.StatusConflict, err.Error()
	case errors.Is(err, scheduler.ErrProvider):
		return http.StatusBadGateway, "calendar provider unavailable"
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
