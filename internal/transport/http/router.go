package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// NewRouter mounts the websocket endpoint and the read-only REST surface,
// wrapped in CORS for the given origins (all origins when empty).
func NewRouter(service *app.QuizService, hub *Hub, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	ws := NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := service.Stats()
		stats.ActiveConnections = hub.Count()
		writeJSON(w, http.StatusOK, stats)
	})
	mux.HandleFunc("GET /api/rooms/{code}", func(w http.ResponseWriter, r *http.Request) {
		snap, err := service.RoomSnapshot(r.Context(), r.PathValue("code"))
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, domain.ErrorPayload{Code: domain.Code(err), Message: err.Error()})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, domain.ErrorPayload{Code: domain.Code(err), Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write json response")
	}
}
