package indexer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/rs/zerolog"
)

// PostgresIndexer upserts posts into a PostgreSQL table
type PostgresIndexer struct {
	db        *sql.DB
	tableName string
	logger    zerolog.Logger
}

// NewPostgresIndexer creates a new PostgreSQL indexer and ensures its table exists
func NewPostgresIndexer(ctx context.Context, connStr string, tableName string, logger zerolog.Logger) (*PostgresIndexer, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	indexer := &PostgresIndexer{
		db:        db,
		tableName: tableName,
		logger:    logger,
	}

	if err := indexer.ensureTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure table: %w", err)
	}

	return indexer, nil
}

func (i *PostgresIndexer) Name() string {
	return "postgres"
}

func (i *PostgresIndexer) ensureTable(ctx context.Context) error {
	_, err := i.db.ExecContext(ctx, createTableQuery(i.tableName))
	return err
}

func createTableQuery(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			uri TEXT NOT NULL,
			author TEXT NOT NULL,
			rank INTEGER NOT NULL,
			points INTEGER NOT NULL,
			comments INTEGER NOT NULL,
			source TEXT NOT NULL,
			collected_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, pq.QuoteIdentifier(table))
}

func upsertQuery(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (
			id, title, uri, author, rank, points, comments, source, collected_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			rank = EXCLUDED.rank,
			points = EXCLUDED.points,
			comments = EXCLUDED.comments,
			collected_at = EXCLUDED.collected_at,
			updated_at = NOW()
	`, pq.QuoteIdentifier(table))
}

// BulkIndex upserts posts in a single transaction
func (i *PostgresIndexer) BulkIndex(ctx context.Context, posts []*domain.CollectedPost) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertQuery(i.tableName))
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, post := range posts {
		_, err := stmt.ExecContext(ctx,
			post.ID, post.Title, post.URI, post.Author,
			post.Rank, post.Points, post.Comments,
			string(post.Source), post.CollectedAt,
		)
		if err != nil {
			// A failed statement aborts the transaction, so the batch fails as a whole
			return fmt.Errorf("upsert post %s: %w", post.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	i.logger.Debug().Int("count", len(posts)).Str("table", i.tableName).Msg("Batch committed")
	return nil
}

// Close closes the database connection
func (i *PostgresIndexer) Close() error {
	return i.db.Close()
}
