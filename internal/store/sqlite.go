package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"vpass/internal/logger"
	"vpass/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS passports (
	vin        TEXT PRIMARY KEY,
	lot_id     TEXT NOT NULL,
	draft      TEXT NOT NULL,
	sealed     TEXT,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passports_lot ON passports(lot_id);
`

// SQLiteStore implements Store on a single SQLite file. Records are stored
// as JSON columns; the VIN and lot identifier are lifted into their own
// columns for keying and conflict checks.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStore opens (creating if needed) the passport database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	const op = "NewSQLiteStore"

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: open %s: %w", op, path, err)
	}
	// SQLite handles one writer at a time; serialize through a single
	// connection instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", op, err)
	}

	s := &SQLiteStore{
		db:  db,
		log: logger.WithComponent("store"),
	}
	s.log.Debug().Str("path", path).Msg("Passport store opened")
	return s, nil
}

// PutDraft stores or replaces the draft for its VIN. Any stored sealed
// record for the VIN is cleared, since the seal no longer matches the
// draft content.
func (s *SQLiteStore) PutDraft(ctx context.Context, draft *models.PassportDraft) error {
	const op = "PutDraft"

	var existingLot string
	err := s.db.QueryRowContext(ctx,
		`SELECT lot_id FROM passports WHERE vin = ?`, draft.VIN).Scan(&existingLot)
	switch {
	case err == nil:
		if existingLot != draft.LotID {
			return fmt.Errorf("%s: vin %s holds lot %s, got %s: %w",
				op, draft.VIN, existingLot, draft.LotID, ErrLotConflict)
		}
	case errors.Is(err, sql.ErrNoRows):
		// first write for this VIN
	default:
		return fmt.Errorf("%s: %w", op, err)
	}

	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO passports (vin, lot_id, draft, sealed, updated_at)
		VALUES (?, ?, ?, NULL, ?)
		ON CONFLICT(vin) DO UPDATE SET
			draft = excluded.draft,
			sealed = NULL,
			updated_at = excluded.updated_at`,
		draft.VIN, draft.LotID, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug().Str("vin", draft.VIN).Str("lot_id", draft.LotID).Msg("Draft stored")
	return nil
}

// GetDraft returns the stored draft for the VIN.
func (s *SQLiteStore) GetDraft(ctx context.Context, vin string) (*models.PassportDraft, error) {
	const op = "GetDraft"

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT draft FROM passports WHERE vin = ?`, vin).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: vin %s: %w", op, vin, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var draft models.PassportDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return &draft, nil
}

// PutSealed stores the sealed record for its VIN.
func (s *SQLiteStore) PutSealed(ctx context.Context, sealed *models.PassportSealed) error {
	const op = "PutSealed"

	raw, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE passports SET sealed = ?, updated_at = ? WHERE vin = ?`,
		string(raw), time.Now().UTC().Format(time.RFC3339), sealed.VIN)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: vin %s: %w", op, sealed.VIN, ErrNotFound)
	}

	s.log.Debug().Str("vin", sealed.VIN).Msg("Sealed passport stored")
	return nil
}

// GetSealed returns the stored sealed record for the VIN. A VIN whose
// draft was rewritten after sealing has no sealed record.
func (s *SQLiteStore) GetSealed(ctx context.Context, vin string) (*models.PassportSealed, error) {
	const op = "GetSealed"

	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT sealed FROM passports WHERE vin = ?`, vin).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: vin %s: %w", op, vin, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !raw.Valid {
		return nil, fmt.Errorf("%s: vin %s has no sealed record: %w", op, vin, ErrNotFound)
	}

	var sealed models.PassportSealed
	if err := json.Unmarshal([]byte(raw.String), &sealed); err != nil {
		return nil, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return &sealed, nil
}

// ListVINs returns every VIN with a stored draft, sorted ascending.
func (s *SQLiteStore) ListVINs(ctx context.Context) ([]string, error) {
	const op = "ListVINs"

	rows, err := s.db.QueryContext(ctx, `SELECT vin FROM passports ORDER BY vin`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var vins []string
	for rows.Next() {
		var vin string
		if err := rows.Scan(&vin); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		vins = append(vins, vin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return vins, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
