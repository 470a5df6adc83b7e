package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ipormac/internal/app"
	"ipormac/internal/domain"
	"ipormac/internal/logger"
)

// API serves the drill over plain JSON for clients that do not hold a websocket.
type API struct {
	service *app.DrillService
}

func NewAPI(service *app.DrillService) *API {
	return &API{service: service}
}

// Routes mounts the handlers on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/hints", a.handleHints)
	r.Get("/choices", a.handleChoices)
	r.Route("/sites/{siteKey}", func(r chi.Router) {
		r.Get("/", a.handleSite)
		r.Get("/stats", a.handleStats)
		r.Delete("/scores", a.handleReset)
		r.Post("/questions", a.handleNextQuestion)
		r.Post("/answers", a.handleAnswer)
	})
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Choice     int    `json:"choice"`
}

func (a *API) handleHints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.Hints())
}

func (a *API) handleChoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.AnswerChoices())
}

func (a *API) handleSite(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Site(chi.URLParam(r, "siteKey")))
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.service.Stats(r.Context(), chi.URLParam(r, "siteKey"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Reset(r.Context(), chi.URLParam(r, "siteKey")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := a.service.NextQuestion(r.Context(), chi.URLParam(r, "siteKey"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (a *API) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer payload")
		return
	}
	result, err := a.service.SubmitAnswer(r.Context(), chi.URLParam(r, "siteKey"), req.QuestionID, req.Choice)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidChoice),
		errors.Is(err, domain.ErrScoreOutOfRange),
		errors.Is(err, domain.ErrInvalidMaxScore),
		errors.Is(err, domain.ErrUnknownAddressType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
