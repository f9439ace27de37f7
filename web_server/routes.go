package web_server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lefinal/plague-server/errors"
	"github.com/lefinal/plague-server/logging"
	"github.com/lefinal/plague-server/plague"
	"github.com/lefinal/plague-server/stores"
	"github.com/lefinal/plague-server/ws"
)

// recentKicksLimit caps the kick audit entries served via the API.
const recentKicksLimit = 64

// StatusSource provides the current match status for the API.
type StatusSource interface {
	Status() plague.MatchStatus
}

// PopulateRoutes populates the WebServer with the routes. The mall may be nil
// when the server runs without a database, which disables the history routes.
func (server *WebServer) PopulateRoutes(hub *ws.Hub, wsCtx context.Context, status StatusSource, mall *stores.Mall) {
	// Websocket stuff.
	server.router.HandleFunc("/ws", ws.HandleWS(hub, wsCtx))
	// API stuff.
	apiRouter := server.router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/status", handleGetStatus(status)).Methods(http.MethodGet)
	if mall != nil {
		apiRouter.HandleFunc("/players", handleGetPlayers(mall)).Methods(http.MethodGet)
		apiRouter.HandleFunc("/kicks", handleGetRecentKicks(mall)).Methods(http.MethodGet)
	}
}

// respondJSON writes the given payload as JSON response.
func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		errors.Log(logging.WebServerLogger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "encode response",
		})
	}
}

// respondError writes an error response, hiding internals from the caller.
func respondError(w http.ResponseWriter, err error) {
	errors.Log(logging.WebServerLogger, err)
	status := http.StatusInternalServerError
	if errors.BlameUser(err) {
		status = http.StatusBadRequest
	}
	http.Error(w, http.StatusText(status), status)
}

func handleGetStatus(status StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, status.Status())
	}
}

// playerResponse is the API representation of a stores.PlayerRecord.
type playerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

func handleGetPlayers(mall *stores.Mall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := mall.GetPlayers()
		if err != nil {
			respondError(w, errors.Wrap(err, "get players", nil))
			return
		}
		response := make([]playerResponse, 0, len(players))
		for _, player := range players {
			response = append(response, playerResponse{
				ID:        player.ID,
				Name:      player.Name,
				FirstSeen: player.FirstSeen,
				LastSeen:  player.LastSeen,
			})
		}
		respondJSON(w, response)
	}
}

// kickResponse is the API representation of a stores.KickRecord.
type kickResponse struct {
	ID         string    `json:"id"`
	Team       int       `json:"team"`
	Target     string    `json:"target"`
	KickedBy   string    `json:"kicked_by"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func handleGetRecentKicks(mall *stores.Mall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kicks, err := mall.GetRecentKicks(recentKicksLimit)
		if err != nil {
			respondError(w, errors.Wrap(err, "get recent kicks", nil))
			return
		}
		response := make([]kickResponse, 0, len(kicks))
		for _, kick := range kicks {
			response = append(response, kickResponse{
				ID:         kick.ID,
				Team:       kick.Team,
				Target:     kick.Target,
				KickedBy:   kick.KickedBy,
				Reason:     kick.Reason.String,
				OccurredAt: kick.OccurredAt,
			})
		}
		respondJSON(w, response)
	}
}
