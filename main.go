// Command rulegrid starts the rulegrid puzzle server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, level and session storage, debug logging, version
// output, and optional ngrok tunneling for easy external access during
// development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/rulegrid/api"
	"github.com/wricardo/rulegrid/game/config"
	"github.com/wricardo/rulegrid/game/service"
	"github.com/wricardo/rulegrid/game/session"
	"github.com/wricardo/rulegrid/transport/mcp"
	"github.com/wricardo/rulegrid/transport/websocket"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Rulegrid Server"
)

const (
	sessionRetention = 24 * time.Hour
	cleanupInterval  = time.Hour
	syncInterval     = 5 * time.Second
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", envDefault("CONFIG_DIR", "configs"), "Directory containing level files")
	sessionsDir  = flag.String("sessions-dir", envDefault("SESSIONS_DIR", "sessions"), "Directory for persisted sessions and save slots")
	storeKind    = flag.String("store", envDefault("SESSION_STORE", "file"), "Session store: file or sqlite")
	defaultLevel = flag.String("default-level", "", "Level used when a session names none")
	watch        = flag.Bool("watch", true, "Reload level files when they change on disk")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// envDefault returns the environment value for key, or fallback when unset
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -store sqlite      # Keep sessions in sessions/rulegrid.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s mcp -port 9090     # Run MCP stdio server with internal HTTP on port 9090\n", os.Args[0])
	}
}

// newLogger builds the process logger. Output goes to stderr so stdio MCP
// keeps stdout to itself.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch {
	case envErr == nil:
		logger.Info("loaded environment variables from .env file")
	case !os.IsNotExist(envErr):
		logger.Warn("error loading .env file", zap.Error(envErr))
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}
	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", mode))

	svc, err := initializeServices(logger)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		err = runStdioMCPWithInternalServer(ctx, svc, logger)
	case "server", "http":
		err = runHTTPServer(ctx, svc, logger)
	default:
		logger.Fatal("unknown mode; use 'server' (default) or 'stdio-mcp'", zap.String("mode", mode))
	}
	if err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

// sessionStore is what both persistence backends provide
type sessionStore interface {
	session.SessionPersistence
	service.SlotStore
}

// services bundles everything main wires together
type services struct {
	game     service.GameService
	sessions *session.Manager
	levels   *config.Manager
	store    sessionStore
	logger   *zap.Logger
}

// Close flushes sessions to the store and releases it
func (s *services) Close() error {
	if err := s.sessions.SaveAllSessions(); err != nil {
		s.logger.Warn("failed to save sessions on shutdown", zap.Error(err))
	}
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// openStore opens the session store selected by kind
func openStore(kind, dir string, levels service.LevelManager, logger *zap.Logger) (sessionStore, error) {
	switch kind {
	case "file", "":
		return session.NewFilePersistence(dir, levels, logger)
	case "sqlite":
		return session.NewSQLitePersistence(filepath.Join(dir, "rulegrid.db"), levels, logger)
	default:
		return nil, fmt.Errorf("unknown session store %q (want file or sqlite)", kind)
	}
}

// initializeServices wires session/level managers and the game service.
func initializeServices(logger *zap.Logger) (*services, error) {
	levels, err := config.NewManager(*configDir, config.WithLogger(logger.Named("levels")))
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}
	if *defaultLevel != "" {
		if err := levels.SetDefault(*defaultLevel); err != nil {
			return nil, fmt.Errorf("failed to set default level: %w", err)
		}
	}

	store, err := openStore(*storeKind, *sessionsDir, levels, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessions := session.NewManager(
		session.WithPersistence(store),
		session.WithLogger(logger.Named("sessions")),
	)
	if err := sessions.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	game := service.NewGameService(sessions, levels,
		service.WithSlotStore(store),
		service.WithLogger(logger.Named("service")),
	)

	return &services{
		game:     game,
		sessions: sessions,
		levels:   levels,
		store:    store,
		logger:   logger,
	}, nil
}

// mcpHandler serves JSON-RPC MCP messages over plain HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}

		response := client.GetMCPServer().HandleMessage(r.Context(), body)
		if response == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		data, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

// newRouter mounts the REST API and the /mcp endpoint
func newRouter(apiServer http.Handler, client *mcp.Client) *http.ServeMux {
	router := http.NewServeMux()
	router.Handle("/", apiServer)
	router.HandleFunc("/mcp", mcpHandler(client))
	return router
}

// runHTTPServer serves the REST API, WebSocket hub, and /mcp endpoint
// until ctx is cancelled. Background routines share the same lifetime.
func runHTTPServer(ctx context.Context, svc *services, logger *zap.Logger) error {
	addr := fmt.Sprintf("%s:%d", *host, *port)
	hub := websocket.NewHub(logger.Named("ws"))
	router := newRouter(
		api.NewServer(svc.game, hub, logger.Named("api")),
		mcp.NewClient(fmt.Sprintf("http://%s", addr)),
	)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/api/sessions/<id>/ws", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if *watch {
		g.Go(func() error {
			if err := svc.levels.Watch(gctx); err != nil {
				logger.Warn("level watcher stopped", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		sessionCleanupRoutine(gctx, svc.sessions, logger)
		return nil
	})
	g.Go(func() error {
		filesystemSyncRoutine(gctx, svc.sessions, svc.store, logger)
		return nil
	})

	if ngrokShouldRun() {
		g.Go(func() error {
			runNgrok(gctx, router, logger.Named("ngrok"))
			return nil
		})
	}

	err := g.Wait()
	logger.Info("server stopped")
	return err
}

// ngrokShouldRun reports whether ngrok is enabled by flag or NGROK_ENABLED
func ngrokShouldRun() bool {
	if *ngrokEnabled {
		return true
	}
	env := os.Getenv("NGROK_ENABLED")
	return env == "true" || env == "1"
}

// ngrokToken returns the auth token from the flag or either env spelling
func ngrokToken() string {
	if *ngrokAuth != "" {
		return *ngrokAuth
	}
	if token := os.Getenv("NGROK_AUTHTOKEN"); token != "" {
		return token
	}
	return os.Getenv("NGROK_AUTH_TOKEN")
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, handler http.Handler, logger *zap.Logger) {
	authToken := ngrokToken()
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("api", url+"/api"),
		zap.String("mcp", url+"/mcp"),
	)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically evicts sessions that have not been
// accessed within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, logger *zap.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(sessionRetention); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("count", removed))
			}
		}
	}
}

// filesystemSyncRoutine periodically drops in-memory sessions whose stored
// copy was deleted out from under the server.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, store session.SessionPersistence, logger *zap.Logger) {
	if store == nil {
		return
	}
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphans(manager, store, logger)
		}
	}
}

// pruneOrphans removes sessions missing from store and returns how many
func pruneOrphans(manager *session.Manager, store session.SessionPersistence, logger *zap.Logger) int {
	pruned := 0
	for _, s := range manager.List() {
		if store.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			logger.Debug("pruned session from memory", zap.String("session", s.ID))
		}
	}
	if pruned > 0 {
		logger.Info("store sync pruned orphaned sessions", zap.Int("count", pruned))
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:<port>; if unavailable,
// it starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, svc *services, logger *zap.Logger) error {
	externalURL := fmt.Sprintf("http://localhost:%d", *port)
	baseURL := externalURL

	logger.Info("checking for external API server", zap.String("url", externalURL))
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil {
		resp.Body.Close()
	}

	if err == nil && resp.StatusCode < 500 {
		logger.Info("external API server found, using it for MCP", zap.String("url", externalURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		logger.Info("starting internal HTTP server for MCP stdio", zap.String("url", baseURL))

		hub := websocket.NewHub(logger.Named("ws"))
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svc.game, hub, logger.Named("api"))}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		go sessionCleanupRoutine(ctx, svc.sessions, logger)
	}

	logger.Info("MCP stdio server ready", zap.String("api", baseURL))
	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
