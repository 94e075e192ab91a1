package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scraper/internal/domain"
)

// PostgresSink mirrors the CSV output into a PostgreSQL table so results
// survive beyond the last run's file. Optional; wired only when a connection
// string is configured.
type PostgresSink struct {
	db *pgxpool.Pool
}

func NewPostgresSink(connStr string) (*PostgresSink, error) {
	db, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresSink) Close() {
	s.db.Close()
}

// Save upserts the run's records in a single transaction, keyed by detail URL.
func (s *PostgresSink) Save(ctx context.Context, records []domain.ArticleRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		var statusCode *int
		if rec.StatusCode != 0 {
			statusCode = &rec.StatusCode
		}
		batch.Queue(
			`INSERT INTO articles (title, author, publish_time, read_count, like_count, collect_count,
			                       summary, content, detail_url, is_bestseller, status_code, error)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (detail_url) DO UPDATE SET
			   title = EXCLUDED.title, author = EXCLUDED.author, publish_time = EXCLUDED.publish_time,
			   read_count = EXCLUDED.read_count, like_count = EXCLUDED.like_count,
			   collect_count = EXCLUDED.collect_count, summary = EXCLUDED.summary,
			   content = EXCLUDED.content, is_bestseller = EXCLUDED.is_bestseller,
			   status_code = EXCLUDED.status_code, error = EXCLUDED.error, updated_at = NOW()`,
			rec.Title, rec.Author, rec.PublishTime, rec.ReadCount, rec.LikeCount, rec.CollectCount,
			rec.Summary, rec.Content, rec.DetailURL, rec.IsBestseller, statusCode, rec.Error,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
