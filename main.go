package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"realtime-chat-server/config"
	"realtime-chat-server/domain"
	"realtime-chat-server/hub"
	"realtime-chat-server/metrics"
	"realtime-chat-server/protocol"
	"realtime-chat-server/registry"
	ws "realtime-chat-server/websocket"
)

const version = "1.0.0"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	cfg := config.Load()
	setupLogger(cfg.LogLevel)

	reg := registry.New()
	m := metrics.New()
	engine := hub.New(reg, slog.Default(), m, cfg.LeaveQueue)
	handler := protocol.NewHandler(engine, slog.Default(), cfg.MaxMessageLength)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	r := mux.NewRouter()
	r.HandleFunc("/ws", wsHandler(engine, handler, cfg)).Methods("GET")
	r.HandleFunc("/health", healthHandler(engine)).Methods("GET")
	r.HandleFunc("/stats", statsHandler(engine)).Methods("GET")
	r.HandleFunc("/rooms/{room}/stats", roomStatsHandler(engine)).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	c := cors.New(cors.Options{AllowedOrigins: cfg.CORSAllow})
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: c.Handler(r),
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(lvl string) {
	level := slog.LevelInfo
	switch lvl {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func wsHandler(engine *hub.Hub, handler *protocol.Handler, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("username"))
		if name == "" {
			http.Error(w, "username required", http.StatusBadRequest)
			return
		}
		if utf8.RuneCountInString(name) > cfg.MaxUsernameLength {
			http.Error(w, "username too long", http.StatusBadRequest)
			return
		}

		room := r.URL.Query().Get("room")
		if room == "" {
			room = domain.DefaultRoom
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "error", err)
			return
		}

		wsConn := ws.NewConn(uuid.NewString(), room, conn, engine, handler, cfg.SendBuffer)
		if err := wsConn.Start(name); err != nil {
			slog.Warn("admission rejected", "user", name, "room", room, "error", err)
		}
	}
}

func healthHandler(engine *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := engine.GlobalStats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":             "healthy",
			"active_connections": stats.ActiveUsers,
			"version":            version,
			"timestamp":          domain.Epoch(time.Now()),
		})
	}
}

func statsHandler(engine *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(engine.GlobalStats())
	}
}

func roomStatsHandler(engine *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := mux.Vars(r)["room"]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(engine.RoomStats(room))
	}
}
