package handlers

import (
	"net/http"

	"github.com/Dosada05/matchday/services"
)

type MvpHandler struct {
	mvpService services.MvpService
}

func NewMvpHandler(ms services.MvpService) *MvpHandler {
	return &MvpHandler{
		mvpService: ms,
	}
}

func (h *MvpHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.VoteInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	vote, err := h.mvpService.CastVote(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusCreated, vote)
}

// RetractVote: DELETE /matches/{matchID}/mvp/vote?voter_id=
func (h *MvpHandler) RetractVote(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	voterID := r.URL.Query().Get("voter_id")
	if err := h.mvpService.RetractVote(r.Context(), matchID, voterID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"match_id": matchID, "voter_id": voterID})
}

func (h *MvpHandler) GetVoteStatus(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	status, err := h.mvpService.VoteStatus(r.Context(), matchID, r.URL.Query().Get("voter_id"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, status)
}

func (h *MvpHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tally, err := h.mvpService.MatchTally(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, tally)
}

func (h *MvpHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.mvpService.Leaderboard(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, board)
}
