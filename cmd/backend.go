package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"

	// Record store backends register themselves with the database package.
	_ "github.com/kozaktomas/face-attendance/internal/database/mariadb"
	_ "github.com/kozaktomas/face-attendance/internal/database/postgres"
)

// loadConfig reads the environment and rejects unusable settings.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	return cfg, nil
}

// openService connects the record store and loads the descriptor cache.
// The caller closes the returned backend.
func openService(ctx context.Context, cfg *config.Config, opts ...attendance.Option) (*attendance.Service, database.Backend, error) {
	backend, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s record store: %w", cfg.Database.Driver, err)
	}

	detector := capture.NewEmbeddingClient(cfg.Detection.URL, cfg.Detection.Timeout())
	svc, err := attendance.NewService(backend, detector, cfg, opts...)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	if err := svc.Refresh(ctx); err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("failed to load descriptors: %w", err)
	}
	return svc, backend, nil
}

// connect loads the configuration and opens the service in one step.
func connect(ctx context.Context) (*attendance.Service, database.Backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return openService(ctx, cfg)
}

// addCaptureFlags registers the --image and --descriptor flags shared by capture commands.
func addCaptureFlags(cmd *cobra.Command) {
	cmd.Flags().String("image", "", "Path to a captured image (JPEG, PNG or WebP)")
	cmd.Flags().Float32Slice("descriptor", nil, "Precomputed face descriptor, comma-separated")
}

// captureFromFlags builds a capture from --image or --descriptor.
func captureFromFlags(cmd *cobra.Command) (attendance.Capture, error) {
	imagePath := mustGetString(cmd, "image")
	descriptor := mustGetFloat32Slice(cmd, "descriptor")

	if imagePath != "" && len(descriptor) > 0 {
		return attendance.Capture{}, errors.New("use either --image or --descriptor, not both")
	}
	if len(descriptor) > 0 {
		return attendance.Capture{Descriptor: descriptor}, nil
	}
	if imagePath == "" {
		return attendance.Capture{}, errors.New("--image or --descriptor is required")
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return attendance.Capture{}, fmt.Errorf("reading image: %w", err)
	}
	return attendance.Capture{Image: data}, nil
}

// localTime renders t in the service's display timezone.
func localTime(svc *attendance.Service, t time.Time) string {
	return t.In(svc.Classifier().Location()).Format("2006-01-02 15:04:05 MST")
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
