// Package handlers provides the localhost REST API the desktop UI talks to.
// Every endpoint is a thin adapter over the client core; all state lives in
// the core's queue and caches.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bestlist/vitara-core/internal/cache"
	"github.com/bestlist/vitara-core/internal/core"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// HandleDomainRead serves GET /api/domains/read?key=<domain>&revalidate=1.
// A warm domain answers from cache immediately; revalidation happens in the
// background and is pushed over the WebSocket bridge.
func HandleDomainRead(app *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		key := r.URL.Query().Get("key")
		if key == "" {
			writeError(w, http.StatusBadRequest, "missing domain key")
			return
		}
		revalidate := r.URL.Query().Get("revalidate") == "1"

		entry, err := app.Caches().Domain(key).Read(r.Context(), cache.ReadOptions{Revalidate: revalidate})
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"domain": key,
			"entry":  entry,
		})
	}
}

// HandleDomainLoadMore serves POST /api/domains/load-more?key=<domain>.
func HandleDomainLoadMore(app *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		key := r.URL.Query().Get("key")
		if key == "" {
			writeError(w, http.StatusBadRequest, "missing domain key")
			return
		}

		entry, err := app.Caches().Domain(key).LoadMore(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"domain": key,
			"entry":  entry,
		})
	}
}

// HandleRecordCreate serves POST /api/records. The response carries the
// optimistic placeholder; the authoritative record follows over WebSocket
// once the queue syncs.
func HandleRecordCreate(app *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var input core.RecordInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid record input")
			return
		}
		if input.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		rec, err := app.CreateRecord(input)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusAccepted, rec)
	}
}

// HandleRecordDelete serves DELETE /api/records?id=<id>.
func HandleRecordDelete(app *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing record id")
			return
		}

		if err := app.DeleteRecord(id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

// HandleSyncNow serves POST /api/sync. A pass already in flight reports
// 409 with the single-flight flag set.
func HandleSyncNow(app *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		result, err := app.SyncNow(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		status := http.StatusOK
		if result.AlreadyInProgress {
			status = http.StatusConflict
		}
		writeJSON(w, status, result)
	}
}

// HandleQueueStatus serves GET /api/queue/status.
func HandleQueueStatus(app *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		writeJSON(w, http.StatusOK, app.QueueStatus())
	}
}

// HandleConnectivity serves POST /api/connectivity?online=0|1&active=0|1.
// The desktop shell pushes OS-level state here.
func HandleConnectivity(app *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if v := r.URL.Query().Get("online"); v != "" {
			online, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid online flag")
				return
			}
			app.Monitor().SetOnline(online)
		}
		if v := r.URL.Query().Get("active"); v != "" {
			active, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid active flag")
				return
			}
			app.Monitor().SetAppActive(active)
		}

		writeJSON(w, http.StatusOK, map[string]bool{
			"online": app.Monitor().IsOnline(),
			"active": app.Monitor().IsAppActive(),
		})
	}
}
