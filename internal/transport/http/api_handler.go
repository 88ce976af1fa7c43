package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"pubquiz-hub/internal/app"
	"pubquiz-hub/internal/domain"
)

// APIHandler serves leaderboard reads and marking roster changes as JSON.
type APIHandler struct {
	leaderboard *app.LeaderboardService
	marking     *app.MarkingService
	minQuizzes  int
	validate    *validator.Validate
}

func NewAPIHandler(leaderboard *app.LeaderboardService, marking *app.MarkingService, minQuizzes int) *APIHandler {
	return &APIHandler{
		leaderboard: leaderboard,
		marking:     marking,
		minQuizzes:  minQuizzes,
		validate:    validator.New(),
	}
}

type joinRequest struct {
	UID      string `json:"uid" validate:"required"`
	Username string `json:"username" validate:"required,max=64"`
	CanMark  *bool  `json:"canMark"`
}

type sheetRequest struct {
	UID         string `json:"uid" validate:"required"`
	AnswerDocID string `json:"answerDocId" validate:"omitempty,max=128"`
}

type sheetResponse struct {
	Sheet domain.AnswerSheet    `json:"sheet"`
	Set   domain.MarkingTaskSet `json:"set"`
}

type rankResponse struct {
	UserID string `json:"userId"`
	Rank   int    `json:"rank"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	window, minQuizzes, err := h.parseBoardQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
		return
	}
	standings, err := h.leaderboard.Standings(r.Context(), window, minQuizzes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (h *APIHandler) Rank(w http.ResponseWriter, r *http.Request) {
	window, minQuizzes, err := h.parseBoardQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
		return
	}
	uid := mux.Vars(r)["uid"]
	rank, err := h.leaderboard.Rank(r.Context(), window, minQuizzes, uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{UserID: uid, Rank: rank})
}

func (h *APIHandler) UserStanding(w http.ResponseWriter, r *http.Request) {
	standing, err := h.leaderboard.UserStanding(r.Context(), mux.Vars(r)["uid"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standing)
}

func (h *APIHandler) StartPart(w http.ResponseWriter, r *http.Request) {
	quizID, part := partVars(r)
	set, err := h.marking.StartPart(r.Context(), quizID, part)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *APIHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	quizID, part := partVars(r)
	set, err := h.marking.Current(r.Context(), quizID, part)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *APIHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !h.decode(w, r, &req) {
		return
	}
	quizID, part := partVars(r)
	canMark := true
	if req.CanMark != nil {
		canMark = *req.CanMark
	}
	set, err := h.marking.Join(r.Context(), quizID, part, mux.Vars(r)["pubId"], domain.Participant{
		UID:      req.UID,
		Username: req.Username,
		CanMark:  canMark,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *APIHandler) Leave(w http.ResponseWriter, r *http.Request) {
	quizID, part := partVars(r)
	set, err := h.marking.Leave(r.Context(), quizID, part, mux.Vars(r)["uid"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *APIHandler) SubmitSheet(w http.ResponseWriter, r *http.Request) {
	var req sheetRequest
	if !h.decode(w, r, &req) {
		return
	}
	quizID, part := partVars(r)
	sheet, set, err := h.marking.SubmitSheet(r.Context(), quizID, part, req.UID, req.AnswerDocID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheetResponse{Sheet: sheet, Set: set})
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
		return false
	}
	return true
}

// parseBoardQuery reads ?from=YYYY-MM-DD&to=YYYY-MM-DD&min=N.
func (h *APIHandler) parseBoardQuery(r *http.Request) (domain.Window, int, error) {
	q := r.URL.Query()
	var window domain.Window
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return window, 0, errors.New("from must be YYYY-MM-DD")
		}
		window.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return window, 0, errors.New("to must be YYYY-MM-DD")
		}
		window.To = to
	}
	minQuizzes := h.minQuizzes
	if raw := q.Get("min"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return window, 0, errors.New("min must be a positive integer")
		}
		minQuizzes = n
	}
	return window, minQuizzes, nil
}

func partVars(r *http.Request) (string, int) {
	vars := mux.Vars(r)
	// the route pattern only admits digits
	part, _ := strconv.Atoi(vars["part"])
	return vars["quizId"], part
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientParticipants):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidPart):
		status = http.StatusBadRequest
	default:
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
