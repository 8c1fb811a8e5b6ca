package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// DocumentRecord is one uploaded document; passages and vectors live in the vector database
type DocumentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string    `bun:"id,pk"`
	Filename      string    `bun:"filename,notnull"`
	Format        string    `bun:"format,notnull"`
	PassageCount  int       `bun:"passage_count,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*DocumentRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

func InsertDocument(ctx context.Context, db *bun.DB, record *DocumentRecord) error {
	_, err := db.NewInsert().Model(record).Exec(ctx)
	return err
}

func ListDocuments(ctx context.Context, db *bun.DB) ([]DocumentRecord, error) {
	var records []DocumentRecord
	err := db.NewSelect().
		Model(&records).
		OrderExpr("created_at ASC").
		Scan(ctx)
	return records, err
}

// Registry keeps a row per uploaded document in Postgres
type Registry struct {
	db *bun.DB
}

func NewRegistry(db *bun.DB) *Registry {
	return &Registry{db: db}
}

func (r *Registry) RecordDocument(ctx context.Context, info models.DocumentInfo) error {
	record := &DocumentRecord{
		ID:           info.DocumentID,
		Filename:     info.Filename,
		Format:       info.Format,
		PassageCount: info.PassageCount,
		CreatedAt:    time.Now().UTC(),
	}
	if err := InsertDocument(ctx, r.db, record); err != nil {
		return fmt.Errorf("failed to insert document %s: %w", info.DocumentID, err)
	}
	log.Debug().Str("document_id", info.DocumentID).Msg("Recorded document")
	return nil
}

func (r *Registry) Documents(ctx context.Context) ([]models.DocumentInfo, error) {
	records, err := ListDocuments(ctx, r.db)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	out := make([]models.DocumentInfo, len(records))
	for i, rec := range records {
		out[i] = models.DocumentInfo{
			DocumentID:   rec.ID,
			Filename:     rec.Filename,
			Format:       rec.Format,
			PassageCount: rec.PassageCount,
		}
	}
	return out, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}
