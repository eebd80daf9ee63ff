// Package main provides the local daemon for desktop platforms. Desktop UI
// shells talk REST on localhost:8090 and receive core events over WebSocket.
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/bestlist/vitara-core/cmd/desktop/handlers"
	"github.com/bestlist/vitara-core/internal/core"
	"github.com/bestlist/vitara-core/internal/remote"
)

func main() {
	dataDir := os.Getenv("VITARA_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	client := remote.NewRESTClient(&remote.RESTConfig{
		BaseURL: os.Getenv("VITARA_API_URL"),
		APIKey:  os.Getenv("VITARA_API_KEY"),
		Token:   os.Getenv("VITARA_TOKEN"),
	})

	app, err := core.New(core.Config{
		DataDir: dataDir,
		Backend: core.BackendBadger,
		UserID:  os.Getenv("VITARA_USER_ID"),
	}, client)
	if err != nil {
		log.Fatalf("Failed to initialize core: %v", err)
	}
	app.Start()
	defer app.Close()

	hub := NewWSHub()
	unbridge := hub.BridgeBus(app.Bus())
	defer unbridge()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"vitara-desktop"}`))
	})
	mux.HandleFunc("/api/domains/read", handlers.HandleDomainRead(app))
	mux.HandleFunc("/api/domains/load-more", handlers.HandleDomainLoadMore(app))
	mux.HandleFunc("/api/records", recordsRouter(app))
	mux.HandleFunc("/api/sync", handlers.HandleSyncNow(app))
	mux.HandleFunc("/api/queue/status", handlers.HandleQueueStatus(app))
	mux.HandleFunc("/api/connectivity", handlers.HandleConnectivity(app))
	mux.HandleFunc("/ws", HandleWebSocket(hub))

	port := os.Getenv("VITARA_PORT")
	if port == "" {
		port = "8090"
	}
	log.Printf("Vitara desktop daemon starting on port %s...", port)
	log.Fatal(http.ListenAndServe("localhost:"+port, mux))
}

// recordsRouter dispatches /api/records by method.
func recordsRouter(app *core.Core) http.HandlerFunc {
	create := handlers.HandleRecordCreate(app)
	remove := handlers.HandleRecordDelete(app)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			create(w, r)
		case http.MethodDelete:
			remove(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
