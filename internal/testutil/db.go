// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"novelhub/pkg/database"
	"novelhub/pkg/models"
)

// NewDB opens a migrated SQLite database in a temp directory. It is closed
// when the test finishes.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	cfg := database.Config{Path: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SeedWebsite inserts a website row.
func SeedWebsite(t testing.TB, db *sqlx.DB, name, url string) models.Website {
	t.Helper()

	res, err := db.ExecContext(context.Background(),
		`INSERT INTO websites (name, url) VALUES (?, ?)`, name, url)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return models.Website{ID: id, Name: name, URL: url}
}

// SeedNovel inserts a stub novel row for the given website.
func SeedNovel(t testing.TB, db *sqlx.DB, websiteID int64, sourceURL string) models.Novel {
	t.Helper()

	res, err := db.ExecContext(context.Background(),
		`INSERT INTO novels (title, source_url, source_website_id) VALUES (?, ?, ?)`,
		models.StubTitle, sourceURL, websiteID)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return models.Novel{ID: id, Title: models.StubTitle, SourceURL: sourceURL, SourceWebsiteID: websiteID}
}

// SeedChapter inserts a chapter row. A zero number is stored as NULL.
func SeedChapter(t testing.TB, db *sqlx.DB, novelID int64, number int, url string) {
	t.Helper()

	var n any
	if number > 0 {
		n = number
	}
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO chapters (novel_id, title, chapter_number, url) VALUES (?, ?, ?, ?)`,
		novelID, "seeded", n, url)
	require.NoError(t, err)
}

// CountRows returns SELECT COUNT(*) for the query.
func CountRows(t testing.TB, db *sqlx.DB, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, db.GetContext(context.Background(), &n, query, args...))
	return n
}
