// Package catalog mirrors the photo locations into a Postgres table so other
// services can query them without reading the artifact.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"photomap/internal/models"
)

// DB is the part of *pgx.Conn the catalog uses.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Catalog writes records into one table.
type Catalog struct {
	db     DB
	table  string
	logger log.Interface
}

// Connect opens a connection to dsn. The caller closes it.
func Connect(ctx context.Context, dsn string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return conn, nil
}

// New returns a Catalog for table, which may be schema-qualified.
func New(db DB, table string, logger log.Interface) *Catalog {
	return &Catalog{
		db:     db,
		table:  pgx.Identifier(strings.Split(table, ".")).Sanitize(),
		logger: logger,
	}
}

// EnsureTable creates the table when it does not exist yet.
func (c *Catalog) EnsureTable(ctx context.Context) error {
	sql := `CREATE TABLE IF NOT EXISTS ` + c.table + ` (
	path        TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	name        TEXT,
	description TEXT,
	source      TEXT,
	position    INTEGER NOT NULL
)`
	if _, err := c.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create table %s: %w", c.table, err)
	}
	return nil
}

// Replace swaps the table contents for records in one batch. The batch runs
// as a single implicit transaction, so readers see either the old rows or
// the new ones.
func (c *Catalog) Replace(ctx context.Context, records []models.PhotoLocation) error {
	b := &pgx.Batch{}
	b.Queue(`DELETE FROM ` + c.table)
	insert := `INSERT INTO ` + c.table +
		` (path, filename, latitude, longitude, name, description, source, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, r := range records {
		b.Queue(insert, r.Path, r.Filename, r.Latitude, r.Longitude,
			nullable(r.Name), nullable(r.Description), nullable(string(r.Source)), i)
	}

	br := c.db.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("replace rows in %s (statement %d): %w", c.table, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("replace rows in %s: %w", c.table, err)
	}
	c.logger.WithFields(log.Fields{"table": c.table, "rows": len(records)}).Info("catalog updated")
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
