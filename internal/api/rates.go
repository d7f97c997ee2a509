package api

import (
	"encoding/json"
	"net/http"

	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

func (s *Server) goldToday(w http.ResponseWriter, r *http.Request) {
	rate, err := s.rates.GetToday(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (s *Server) goldTodayManual(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	rate, err := s.rates.SetTodayManual(r.Context(), payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (s *Server) goldHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.rates.History(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []models.DailyRate{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) goldLatest(w http.ResponseWriter, r *http.Request) {
	rate, err := s.rates.Latest(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}
