package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"scraper/internal/domain"
)

// Column order is part of the output contract; spreadsheet tooling on the
// consumer side depends on it.
var csvColumns = []string{
	"title", "author", "publish_time", "read_count", "like_count", "collect_count",
	"summary", "content", "detail_url", "is_bestseller", "status_code", "error",
}

// CSVSink writes collected records to a CSV file, rewriting it per run.
// The header row is always written, even for an empty run.
type CSVSink struct {
	filename string
	encoding string
	logger   *zap.Logger
}

func NewCSVSink(filename, encoding string, logger *zap.Logger) *CSVSink {
	return &CSVSink{filename: filename, encoding: encoding, logger: logger}
}

func (s *CSVSink) Save(ctx context.Context, records []domain.ArticleRecord) error {
	if dir := filepath.Dir(s.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(s.filename)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	out, err := encodeWriter(f, s.encoding)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	if err := w.Write(csvColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if c, ok := out.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("finish csv encoding: %w", err)
		}
	}

	s.logger.Info("records saved", zap.Int("count", len(records)), zap.String("file", s.filename))
	return nil
}

// encodeWriter wraps the file for the configured text encoding. utf-8-sig
// prepends a BOM so spreadsheet software detects UTF-8.
func encodeWriter(f *os.File, encoding string) (io.Writer, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return f, nil
	case "utf-8-sig":
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return nil, fmt.Errorf("write BOM: %w", err)
		}
		return f, nil
	case "gbk", "gb2312":
		return transform.NewWriter(f, simplifiedchinese.GBK.NewEncoder()), nil
	case "gb18030":
		return transform.NewWriter(f, simplifiedchinese.GB18030.NewEncoder()), nil
	default:
		return nil, fmt.Errorf("unsupported csv encoding: %s", encoding)
	}
}

func csvRow(rec domain.ArticleRecord) []string {
	statusCode := ""
	if rec.StatusCode != 0 {
		statusCode = strconv.Itoa(rec.StatusCode)
	}
	return []string{
		rec.Title,
		rec.Author,
		rec.PublishTime,
		strconv.Itoa(rec.ReadCount),
		strconv.Itoa(rec.LikeCount),
		strconv.Itoa(rec.CollectCount),
		rec.Summary,
		rec.Content,
		rec.DetailURL,
		strconv.FormatBool(rec.IsBestseller),
		statusCode,
		rec.Error,
	}
}
