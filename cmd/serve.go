package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/realtime"
	"github.com/kozaktomas/face-attendance/internal/scheduler"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/spf13/cobra"
)

// refreshTimeout bounds one scheduled descriptor refresh.
const refreshTimeout = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attendance web server.
The server exposes the enrollment, check-in and dashboard API under /api/v1
and streams recorded attendance to websocket clients.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// sessionRepository persists operator sessions when the backend can store them.
func sessionRepository(backend database.Backend) middleware.SessionRepository {
	if store, ok := backend.(*postgres.Store); ok {
		fmt.Printf("Session persistence enabled (PostgreSQL)\n")
		return postgres.NewSessionRepository(store.Pool())
	}
	return nil
}

// operatorRepository stores registered operator accounts on either SQL backend.
func operatorRepository(backend database.Backend) middleware.OperatorRepository {
	switch store := backend.(type) {
	case *postgres.Store:
		return postgres.NewOperatorRepository(store.Pool())
	case *mariadb.Store:
		return mariadb.NewOperatorRepository(store.Pool())
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	port, host := resolveServeHostPort(cmd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Attendance.Location()
	if err != nil {
		return err
	}
	hub := realtime.NewHub(middleware.OriginChecker(), loc)

	fmt.Printf("Connecting to %s record store...\n", cfg.Database.Driver)
	svc, backend, err := openService(ctx, cfg, attendance.WithPublisher(hub))
	if err != nil {
		return err
	}
	defer backend.Close()

	snap := svc.Snapshot()
	fmt.Printf("Loaded %d identities with %d descriptors\n", snap.Len(), snap.DescriptorCount())
	if !cfg.Auth.Enabled() {
		fmt.Println("Warning: OPERATOR_USERNAME/OPERATOR_PASSWORD_HASH not set, the API stays open until an operator registers")
	}

	go hub.Run(ctx)

	sched := scheduler.New()
	if cfg.Database.RefreshSchedule != "" {
		if err := sched.AddRefresh(cfg.Database.RefreshSchedule, svc, refreshTimeout); err != nil {
			return err
		}
		sched.Start()
		fmt.Printf("Descriptor refresh scheduled (%s)\n", cfg.Database.RefreshSchedule)
	}

	server := web.NewServer(cfg, port, host, svc, hub, sessionRepository(backend), operatorRepository(backend))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		sched.Stop(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
