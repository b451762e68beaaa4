package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jitenkr2030/VisualVerse-sub004/internal/engine"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Config holds PostgreSQL connection settings for the job history archive.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store archives terminal render jobs to PostgreSQL. The archive is a
// best-effort history of finished work; the engine's in-memory tables remain
// the source of truth for live jobs.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Connect opens and verifies the database connection.
func Connect(cfg *Config, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	logger.Info("Connecting to job history database",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database),
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// JobFinished implements engine.Sink: it upserts one terminal job record.
func (s *Store) JobFinished(ctx context.Context, snap engine.Snapshot) error {
	sceneJSON, err := json.Marshal(snap.SceneConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal scene config: %w", err)
	}

	query := `
		INSERT INTO render_jobs (
			job_id, scene_config, priority, estimated_duration,
			status, result_path, error_message, created_at, finished_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, NOW()
		)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			result_path = EXCLUDED.result_path,
			error_message = EXCLUDED.error_message,
			finished_at = NOW()
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		snap.JobID,
		sceneJSON,
		snap.Priority,
		snap.EstimatedDuration,
		string(snap.Status),
		snap.ResultPath,
		snap.ErrorMessage,
		snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive render job: %w", err)
	}

	s.logger.Debug("Render job archived",
		slog.String("job_id", snap.JobID),
		slog.String("status", string(snap.Status)),
	)
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("Closing job history database connection")
	return s.db.Close()
}
