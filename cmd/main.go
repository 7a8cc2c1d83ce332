package main

import (
	"chat-gate/auth"
	"chat-gate/clock"
	"chat-gate/contract"
	"chat-gate/infrastructure/grpc/server"
	"chat-gate/infrastructure/media"
	"chat-gate/infrastructure/realtime"
	"chat-gate/infrastructure/search"
	"chat-gate/infrastructure/ws"
	"chat-gate/internal"
	"chat-gate/moderation"
	"chat-gate/repositories"
	"chat-gate/runtime"
	"chat-gate/runtime/workers"
	"chat-gate/services"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal or a server failure.
// Returning instead of exiting lets the deferred closes run.
func run() error {
	// 1. Configuration & Logger
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage: badger is the source of truth, bluge only indexes emails
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.OpenUserIndex(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("user index opening failed: %w", err)
	}
	defer func() { _ = index.Close() }()

	uploader, err := media.NewDiskUploader(config.MediaDir, config.MediaBaseURL, config.MaxMediaBytes, log)
	if err != nil {
		return fmt.Errorf("media directory: %w", err)
	}

	filter, err := contentFilter(config, log)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	// 3. Services
	store := repositories.NewStore(db, log)
	registry := runtime.NewRegistry(log, config.PresenceTimeout)
	notifier := runtime.NewNotifier(log, config.DeliveryBufferSize)
	clk := clock.Real()

	admission := services.NewAdmissionService(store, notifier, clk, log, config.RequestTTL)
	groups := services.NewGroupService(store, registry, notifier, uploader, clk, log)
	messages := services.NewMessageService(store, admission, notifier, uploader, filter, clk, log,
		services.MessageConfig{MaxContentLength: config.MaxContentLength, HistoryLimit: config.HistoryLimit})
	users := services.NewUserService(store, index, clk, log)
	sessions := services.NewSessionService(store, registry, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexed, err := users.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("user index rebuild failed: %w", err)
	}
	log.Info("User index rebuilt", "users", indexed)

	// 4. Supervised workers
	heartbeat := workers.NewHeartbeatWorker(log, registry, notifier, config.MetricInterval, config.LowCapacityThreshold)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewEventFanout(log, notifier.Deliveries(), registry, config.DeliveryTimeout),
		heartbeat,
	)
	go sup.Run(ctx)

	// 5. Transports
	verifier := auth.NewTokenVerifier(config.JWTSecret, config.JWTIssuer)
	rt := realtime.NewServer(sessions, config.ConnectionBufferSize, log)

	healthService := "/" + healthpb.Health_ServiceDesc.ServiceName
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(auth.UnaryInterceptor(verifier, healthService+"/Check")),
		grpc.StreamInterceptor(auth.StreamInterceptor(verifier, healthService+"/Watch")),
	)
	grpcServer.RegisterService(&server.ServiceDesc,
		server.NewChatServer(log, users, admission, groups, messages, rt))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}

	mux := http.NewServeMux()
	if config.DebugEnabled {
		mux = internal.NewDebugMux(db, repositories.Prefixes, nil, func() map[string]any {
			return heartbeat.Latest().Map()
		}, log)
	}
	mux.Handle("/ws", ws.NewHandler(verifier, rt, config.Origins(), config.WriteTimeout, log))
	mux.Handle(config.MediaBaseURL+"/", http.StripPrefix(config.MediaBaseURL, http.FileServer(http.Dir(uploader.Dir()))))

	httpAddress := fmt.Sprintf("%s:%d", config.Host, config.HttpPort)
	httpServer := &http.Server{
		Addr:              httpAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting gRPC server", "address", grpcAddress)
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		log.Info("Starting HTTP server", "address", httpAddress, "debug", config.DebugEnabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

// contentFilter returns nil when moderation is off, so messages go through untouched.
func contentFilter(config internal.Config, log *slog.Logger) (contract.ContentFilter, error) {
	if !config.ModerationEnabled {
		return nil, nil
	}
	char, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}

	var fsys fs.FS = moderation.DefaultDictionaries
	dir := moderation.DefaultDictionaryDir
	if config.ModerationDir != "" {
		fsys, dir = os.DirFS(config.ModerationDir), "."
	}
	dictionaries, err := moderation.LoadDictionaries(fsys, dir)
	if err != nil {
		return nil, err
	}
	return moderation.NewFilter(dictionaries, char, log)
}
