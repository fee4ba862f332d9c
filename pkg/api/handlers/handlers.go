package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	gametypes "github.com/cbodonnell/buddybeacon/pkg/game/types"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/version"
	"github.com/gorilla/mux"
)

// QueryTimeout bounds how long a request waits for the game loop.
const QueryTimeout = 2 * time.Second

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, healthResponse{Status: "ok", Version: version.Get()})
	}
}

func HandleListPlayers(querier Querier) http.HandlerFunc {
	return handleQuery(querier, func(r *http.Request) *gametypes.AdminQuery {
		return gametypes.NewAdminQuery(gametypes.AdminQueryPlayers)
	}, func(resp gametypes.AdminResponse) interface{} {
		return nonNil(resp.Players)
	})
}

func HandleListParties(querier Querier) http.HandlerFunc {
	return handleQuery(querier, func(r *http.Request) *gametypes.AdminQuery {
		return gametypes.NewAdminQuery(gametypes.AdminQueryParties)
	}, func(resp gametypes.AdminResponse) interface{} {
		return nonNil(resp.Parties)
	})
}

func HandleListGroups(querier Querier) http.HandlerFunc {
	return handleQuery(querier, func(r *http.Request) *gametypes.AdminQuery {
		return gametypes.NewAdminQuery(gametypes.AdminQueryGroups)
	}, func(resp gametypes.AdminResponse) interface{} {
		return nonNil(resp.Groups)
	})
}

// HandleGiveItem grants one token item to a player, online or not.
func HandleGiveItem(querier Querier) http.HandlerFunc {
	return handleQuery(querier, func(r *http.Request) *gametypes.AdminQuery {
		vars := mux.Vars(r)
		q := gametypes.NewAdminQuery(gametypes.AdminGiveItem)
		q.UID = vars["uid"]
		q.Item = vars["item"]
		return q
	}, func(resp gametypes.AdminResponse) interface{} {
		return resp.Items
	})
}

func handleQuery(querier Querier, build func(r *http.Request) *gametypes.AdminQuery, body func(gametypes.AdminResponse) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), QueryTimeout)
		defer cancel()

		resp, err := querier.Query(ctx, build(r))
		if err != nil {
			switch {
			case errors.Is(err, gametypes.ErrUnknownItem):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrQueryTimeout):
				log.Warn("admin query timed out: %s %s", r.Method, r.URL.Path)
				http.Error(w, "game loop busy", http.StatusGatewayTimeout)
			default:
				log.Error("admin query failed: %v", err)
				http.Error(w, "query failed", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, body(resp))
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
