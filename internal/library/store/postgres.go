package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"libregistry/internal/geo"
	"libregistry/internal/library/models"
	"libregistry/pkg/platform/sentinel"
)

// Postgres persists libraries in PostgreSQL. Reconcile takes a row lock on
// the library's row (SELECT ... FOR UPDATE) so the read-verify-write sequence
// of a handshake is exclusive per OPDS URL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed library store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const libraryColumns = `
	id, opds_url, authentication_url, name, description, web_url, logo,
	contact_email, help_email, shared_secret, latitude, longitude,
	place_name, aliases, stage, created_at, updated_at`

func (s *Postgres) FindByOPDSURL(ctx context.Context, opdsURL string) (*models.Library, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT`+libraryColumns+` FROM libraries WHERE opds_url = $1`, opdsURL)
	lib, err := scanLibrary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find library by opds_url: %w", err)
	}
	return lib, nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Library, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+libraryColumns+` FROM libraries ORDER BY lower(name), opds_url`)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	defer rows.Close()

	var out []*models.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		out = append(out, lib)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	return out, nil
}

func (s *Postgres) Reconcile(ctx context.Context, opdsURL string, fn ReconcileFunc) (*models.Library, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin reconcile: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT`+libraryColumns+` FROM libraries WHERE opds_url = $1 FOR UPDATE`, opdsURL)
	existing, err := scanLibrary(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("lock library row: %w", err)
	}
	created := existing == nil

	result, err := fn(existing)
	if err != nil {
		return nil, false, err
	}

	if created {
		err = insertLibrary(ctx, tx, result)
	} else {
		err = updateLibrary(ctx, tx, result)
	}
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit reconcile: %w", err)
	}
	return result, created, nil
}

func insertLibrary(ctx context.Context, tx *sql.Tx, lib *models.Library) error {
	lat, lon := locationColumns(lib.Location)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO libraries (
			id, opds_url, authentication_url, name, description, web_url,
			logo, contact_email, help_email, shared_secret, latitude,
			longitude, place_name, aliases, stage, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		lib.ID, lib.OPDSURL,
		nullString(lib.AuthenticationURL), nullString(lib.Name),
		nullString(lib.Description), nullString(lib.WebURL),
		nullString(lib.Logo), nullString(lib.ContactEmail),
		nullString(lib.HelpEmail), nullString(lib.SharedSecret),
		lat, lon, nullString(lib.PlaceName), pq.Array(lib.Aliases),
		string(lib.Stage), lib.CreatedAt, lib.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert library: %w", err)
	}
	return nil
}

func updateLibrary(ctx context.Context, tx *sql.Tx, lib *models.Library) error {
	lat, lon := locationColumns(lib.Location)
	_, err := tx.ExecContext(ctx, `
		UPDATE libraries SET
			opds_url = $2, authentication_url = $3, name = $4,
			description = $5, web_url = $6, logo = $7, contact_email = $8,
			help_email = $9, shared_secret = $10, latitude = $11,
			longitude = $12, place_name = $13, aliases = $14, stage = $15,
			updated_at = $16
		WHERE id = $1`,
		lib.ID, lib.OPDSURL,
		nullString(lib.AuthenticationURL), nullString(lib.Name),
		nullString(lib.Description), nullString(lib.WebURL),
		nullString(lib.Logo), nullString(lib.ContactEmail),
		nullString(lib.HelpEmail), nullString(lib.SharedSecret),
		lat, lon, nullString(lib.PlaceName), pq.Array(lib.Aliases),
		string(lib.Stage), lib.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update library: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLibrary(row rowScanner) (*models.Library, error) {
	var (
		lib       models.Library
		id        uuid.UUID
		authURL   sql.NullString
		name      sql.NullString
		desc      sql.NullString
		webURL    sql.NullString
		logo      sql.NullString
		contact   sql.NullString
		help      sql.NullString
		secret    sql.NullString
		lat, lon  sql.NullFloat64
		placeName sql.NullString
		aliases   pq.StringArray
		stage     string
	)
	err := row.Scan(
		&id, &lib.OPDSURL, &authURL, &name, &desc, &webURL, &logo,
		&contact, &help, &secret, &lat, &lon, &placeName, &aliases,
		&stage, &lib.CreatedAt, &lib.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lib.ID = id
	lib.AuthenticationURL = authURL.String
	lib.Name = name.String
	lib.Description = desc.String
	lib.WebURL = webURL.String
	lib.Logo = logo.String
	lib.ContactEmail = contact.String
	lib.HelpEmail = help.String
	lib.SharedSecret = secret.String
	lib.PlaceName = placeName.String
	lib.Aliases = []string(aliases)
	lib.Stage = models.Stage(stage)
	if lat.Valid && lon.Valid {
		lib.Location = &geo.Point{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return &lib, nil
}

func locationColumns(p *geo.Point) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Latitude, Valid: true},
		sql.NullFloat64{Float64: p.Longitude, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
