package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the pending schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// goose works on database/sql
	var db *sql.DB = stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// PostgresStore is a Recorder backed by the verification_runs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const insertRun = `
INSERT INTO verification_runs (id, certificate_id, run_generation, status, final_label, final_description, final_link_text, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (p *PostgresStore) Record(ctx context.Context, run Run) (Run, error) {
	if err := validate(&run); err != nil {
		return Run{}, err
	}
	_, err := p.pool.Exec(ctx, insertRun,
		run.ID,
		run.CertificateID,
		int64(run.Generation), // #nosec G115 -- generations are small counters
		string(run.Status),
		run.FinalStep.Label,
		run.FinalStep.Description,
		run.FinalStep.LinkText,
		run.CompletedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert verification run: %w", err)
	}
	return run, nil
}

const listRuns = `
SELECT id, certificate_id, run_generation, status, final_label, final_description, final_link_text, completed_at
FROM verification_runs
WHERE certificate_id = $1
ORDER BY completed_at DESC, recorded_at DESC
LIMIT $2`

func (p *PostgresStore) ListByCertificate(ctx context.Context, certificateID string, limit int) ([]Run, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := p.pool.Query(ctx, listRuns, certificateID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var (
			r          Run
			generation int64
			status     string
		)
		err := row.Scan(&r.ID, &r.CertificateID, &generation, &status,
			&r.FinalStep.Label, &r.FinalStep.Description, &r.FinalStep.LinkText, &r.CompletedAt)
		r.Generation = uint64(generation) // #nosec G115 -- written from a uint64
		r.Status = verification.Status(status)
		r.CompletedAt = r.CompletedAt.UTC()
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan verification runs: %w", err)
	}
	return runs, nil
}
