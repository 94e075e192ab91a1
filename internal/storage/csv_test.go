package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"scraper/internal/domain"
)

func TestCSVSinkWritesHeaderForEmptyRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink := NewCSVSink(path, "utf-8", zap.NewNop())

	require.NoError(t, sink.Save(context.Background(), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"title,author,publish_time,read_count,like_count,collect_count,summary,content,detail_url,is_bestseller,status_code,error\n",
		string(raw))
}

func TestCSVSinkRowShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink := NewCSVSink(path, "utf-8", zap.NewNop())

	records := []domain.ArticleRecord{
		{
			Title:        "合同纠纷案例",
			Author:       "王律师",
			PublishTime:  "2024-01-15",
			ReadCount:    12345,
			LikeCount:    678,
			CollectCount: 90,
			Summary:      "摘要",
			Content:      "正文",
			DetailURL:    "https://example.com/a/1",
			IsBestseller: true,
			StatusCode:   200,
		},
		{
			Title:     "https://example.com/a/2",
			DetailURL: "https://example.com/a/2",
			Error:     "request_failed",
		},
	}
	require.NoError(t, sink.Save(context.Background(), records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"合同纠纷案例", "王律师", "2024-01-15", "12345", "678", "90",
		"摘要", "正文", "https://example.com/a/1", "true", "200", "",
	}, rows[1])
	assert.Equal(t, []string{
		"https://example.com/a/2", "", "", "0", "0", "0",
		"", "", "https://example.com/a/2", "false", "", "request_failed",
	}, rows[2])
}

func TestCSVSinkUTF8SigWritesBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink := NewCSVSink(path, "utf-8-sig", zap.NewNop())

	require.NoError(t, sink.Save(context.Background(), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, len(raw) > 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, raw[:3])
	assert.True(t, strings.HasPrefix(string(raw[3:]), "title,"))
}

func TestCSVSinkGBKEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink := NewCSVSink(path, "gbk", zap.NewNop())

	records := []domain.ArticleRecord{{Title: "民商法", DetailURL: "https://example.com/a/1"}}
	require.NoError(t, sink.Save(context.Background(), records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "民商法")
}

func TestCSVSinkCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.csv")
	sink := NewCSVSink(path, "utf-8", zap.NewNop())

	require.NoError(t, sink.Save(context.Background(), nil))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestCSVSinkRejectsUnknownEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink := NewCSVSink(path, "ebcdic", zap.NewNop())

	err := sink.Save(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported csv encoding")
}
