package api

import (
	"net/http"
)

// RankHandler serves the synchronous engine operations.
type RankHandler struct {
	deps Ranker
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Ranker) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleRank handles POST /rank requests.
func (h *RankHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.rank"
	req, ok := readRankRequest(w, r, op)
	if !ok {
		return
	}
	res, err := h.deps.Rank(r.Context(), req.Sentence, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRankResponse(res))
}

// HandleFitb handles POST /fitb requests.
func (h *RankHandler) HandleFitb(w http.ResponseWriter, r *http.Request) {
	const op = "api.fitb"
	req, ok := readRankRequest(w, r, op)
	if !ok {
		return
	}
	filled, err := h.deps.Fitb(r.Context(), req.Sentence, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fitbResponse{Sentence: filled})
}

// HandleGuess handles POST /guess requests.
func (h *RankHandler) HandleGuess(w http.ResponseWriter, r *http.Request) {
	const op = "api.guess"
	req, ok := readRankRequest(w, r, op)
	if !ok {
		return
	}
	token, err := h.deps.Guess(r.Context(), req.Sentence)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guessResponse{Token: token})
}

func readRankRequest(w http.ResponseWriter, r *http.Request, op string) (rankRequest, bool) {
	var req rankRequest
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return req, false
	}
	if err := decode(w, r, op, &req); err != nil {
		writeError(w, err)
		return req, false
	}
	if err := req.validate(); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return req, false
	}
	return req, true
}
