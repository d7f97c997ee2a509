package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"gitlab.com/yelinaung/jewellery-tracker/internal/investments"
	"gitlab.com/yelinaung/jewellery-tracker/internal/logger"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
	"gitlab.com/yelinaung/jewellery-tracker/internal/portfolio"
)

const maxJSONBody = 1 << 20

func (s *Server) listInvestments(w http.ResponseWriter, r *http.Request) {
	list, err := s.investments.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Investment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createInvestment(w http.ResponseWriter, r *http.Request) {
	var in investments.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	inv, err := s.investments.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) getInvestment(w http.ResponseWriter, r *http.Request) {
	inv, found, err := s.investments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Investment not found")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) deleteInvestment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	deleted, err := s.investments.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Investment not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (s *Server) investmentSummary(w http.ResponseWriter, r *http.Request) {
	list, err := s.investments.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio.Valuate(list, s.valuationRate(r), s.now()))
}

// valuationRate prefers today's snapshot and falls back to the latest stored
// one. It returns nil when neither is available.
func (s *Server) valuationRate(r *http.Request) *models.DailyRate {
	rate, err := s.rates.GetToday(r.Context())
	if err == nil {
		return rate
	}
	logger.Log.Warn().Err(err).Msg("Today's gold rate unavailable, valuing with latest snapshot")

	rate, err = s.rates.Latest(r.Context())
	if err != nil {
		return nil
	}
	return rate
}

func (s *Server) investmentChart(w http.ResponseWriter, r *http.Request) {
	list, err := s.investments.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	png, err := portfolio.CategoryChart(list)
	if errors.Is(err, portfolio.ErrNoInvestments) {
		writeError(w, http.StatusNotFound, "No investments to chart")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
