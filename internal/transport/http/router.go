package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"pubquiz-hub/internal/app"
)

// NewRouter wires the REST and WebSocket handlers behind CORS.
func NewRouter(leaderboard *app.LeaderboardService, marking *app.MarkingService, minQuizzes int, allowedOrigins []string) http.Handler {
	api := NewAPIHandler(leaderboard, marking, minQuizzes)
	ws := NewWSHandler(marking)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws/marking", ws.ServeWS)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/leaderboard", api.Leaderboard).Methods(http.MethodGet)
	v1.HandleFunc("/leaderboard/rank/{uid}", api.Rank).Methods(http.MethodGet)
	v1.HandleFunc("/users/{uid}/standing", api.UserStanding).Methods(http.MethodGet)

	part := v1.PathPrefix("/quizzes/{quizId}/parts/{part:[0-9]+}").Subrouter()
	part.HandleFunc("/start", api.StartPart).Methods(http.MethodPost)
	part.HandleFunc("/tasks", api.Tasks).Methods(http.MethodGet)
	part.HandleFunc("/pubs/{pubId}/participants", api.Join).Methods(http.MethodPost)
	part.HandleFunc("/participants/{uid}", api.Leave).Methods(http.MethodDelete)
	part.HandleFunc("/sheets", api.SubmitSheet).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}
