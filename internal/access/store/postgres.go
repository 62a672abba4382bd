package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"idregistry/internal/access/models"
	id "idregistry/pkg/domain"
	"idregistry/pkg/platform/sentinel"
	txcontext "idregistry/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const (
	defaultTxTimeout  = 5 * time.Second
	uniqueViolation   = "23505"
	selectStateColumn = `registry_id, owner, pending_owner, trusted_caller, gate_open, paused, version, created_at, updated_at`
)

// PostgresStore persists registry state in one row per registry. Execute locks
// the row with SELECT ... FOR UPDATE so concurrent writers across processes are
// serialized by the database.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTxTimeout bounds Execute transactions that arrive without a deadline.
func WithTxTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the registry_access table if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply registry schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, state *models.State) error {
	snap := state.Snapshot()
	query := `
		INSERT INTO registry_access (` + selectStateColumn + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(snap.RegistryID),
		string(snap.Owner),
		nullableIdentity(snap.PendingOwner),
		string(snap.TrustedCaller),
		snap.GateOpen,
		snap.Paused,
		snap.Version,
		snap.CreatedAt,
		snap.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registry state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, registryID models.RegistryID) (*models.State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectStateColumn+` FROM registry_access WHERE registry_id = $1`,
		string(registryID),
	)
	return scanState(row)
}

// Execute runs fn inside a transaction holding the registry row lock. The
// transaction travels in ctx so stores fn touches (audit) join it; any error
// rolls everything back.
func (s *PostgresStore) Execute(ctx context.Context, registryID models.RegistryID, fn func(ctx context.Context, state *models.State) error) (*models.State, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registry tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+selectStateColumn+` FROM registry_access WHERE registry_id = $1 FOR UPDATE`,
		string(registryID),
	)
	working, err := scanState(row)
	if err != nil {
		return nil, err
	}
	previousVersion := working.Version

	if err := fn(txcontext.WithTx(ctx, tx), working); err != nil {
		return nil, err
	}

	snap := working.Snapshot()
	// gate_open is OR-ed so the column itself can never go back to false.
	query := `
		UPDATE registry_access SET
			owner = $2,
			pending_owner = $3,
			trusted_caller = $4,
			gate_open = gate_open OR $5,
			paused = $6,
			version = $7,
			updated_at = $8
		WHERE registry_id = $1 AND version = $9
	`
	res, err := tx.ExecContext(ctx, query,
		string(snap.RegistryID),
		string(snap.Owner),
		nullableIdentity(snap.PendingOwner),
		string(snap.TrustedCaller),
		snap.GateOpen,
		snap.Paused,
		snap.Version,
		snap.UpdatedAt,
		previousVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update registry state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return nil, fmt.Errorf("%w: registry %s changed concurrently", sentinel.ErrConflict, registryID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registry tx: %w", err)
	}
	return working, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*models.State, error) {
	var (
		registryID, owner, trusted string
		pending                    sql.NullString
		snap                       models.Snapshot
	)
	err := row.Scan(&registryID, &owner, &pending, &trusted, &snap.GateOpen, &snap.Paused, &snap.Version, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan registry state: %w", err)
	}
	snap.RegistryID = models.RegistryID(registryID)
	snap.Owner = id.Identity(owner)
	snap.TrustedCaller = id.Identity(trusted)
	if pending.Valid {
		snap.PendingOwner = id.Identity(pending.String)
	}
	snap.GatePhase = models.GatePhaseGated
	if snap.GateOpen {
		snap.GatePhase = models.GatePhaseOpen
	}

	state, err := snap.Restore()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrInvalidState, err)
	}
	return state, nil
}

func nullableIdentity(i id.Identity) sql.NullString {
	if i.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: string(i), Valid: true}
}
