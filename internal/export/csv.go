// Package export writes the catalogue as CSV files.
package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	NovelsFile   = "novels.csv"
	ChaptersFile = "chapters.csv"
)

// ToDir writes NovelsFile and ChaptersFile into dir and returns the row
// counts.
func ToDir(ctx context.Context, db *sqlx.DB, dir string) (novels, chapters int, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("create export dir: %w", err)
	}

	novels, err = toFile(ctx, db, filepath.Join(dir, NovelsFile), Novels)
	if err != nil {
		return 0, 0, err
	}
	chapters, err = toFile(ctx, db, filepath.Join(dir, ChaptersFile), Chapters)
	if err != nil {
		return novels, 0, err
	}
	return novels, chapters, nil
}

func toFile(ctx context.Context, db *sqlx.DB, path string, write func(context.Context, *sqlx.DB, io.Writer) (int, error)) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := write(ctx, db, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	return n, err
}

// Novels writes one row per novel with its genres joined by "|".
func Novels(ctx context.Context, db *sqlx.DB, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{
		"id", "title", "author", "source_url", "website", "is_completed", "avg_rating",
		"genres", "latest_chapter_number", "current_last_chapter_number", "last_scraped_at",
	}); err != nil {
		return 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT n.id, n.title, n.author, n.source_url, w.name, n.is_completed, n.avg_rating,
		  COALESCE((SELECT GROUP_CONCAT(name, '|') FROM (
		    SELECT g.name FROM novel_genres ng JOIN genres g ON g.id = ng.genre_id
		    WHERE ng.novel_id = n.id ORDER BY g.name)), ''),
		  n.latest_chapter_number, n.current_last_chapter_number, n.last_scraped_at
		FROM novels n
		JOIN websites w ON w.id = n.source_website_id
		ORDER BY n.id
	`)
	if err != nil {
		return 0, fmt.Errorf("query novels: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			id, latest, current   int64
			title, author, srcURL string
			website, genres       string
			completed             bool
			rating                float64
			scrapedAt             sql.NullTime
		)
		if err := rows.Scan(&id, &title, &author, &srcURL, &website, &completed, &rating,
			&genres, &latest, &current, &scrapedAt); err != nil {
			return count, fmt.Errorf("scan novel: %w", err)
		}

		scraped := ""
		if scrapedAt.Valid {
			scraped = scrapedAt.Time.UTC().Format(time.RFC3339)
		}

		if err := w.Write([]string{
			strconv.FormatInt(id, 10),
			title,
			author,
			srcURL,
			website,
			strconv.FormatBool(completed),
			strconv.FormatFloat(rating, 'f', -1, 64),
			genres,
			strconv.FormatInt(latest, 10),
			strconv.FormatInt(current, 10),
			scraped,
		}); err != nil {
			return count, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, err
	}

	w.Flush()
	return count, w.Error()
}

// Chapters writes the chapter index without content.
func Chapters(ctx context.Context, db *sqlx.DB, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"id", "novel_id", "chapter_number", "title", "url", "has_content"}); err != nil {
		return 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, novel_id, chapter_number, title, url, content <> ''
		FROM chapters
		ORDER BY novel_id, chapter_number IS NULL, chapter_number, id
	`)
	if err != nil {
		return 0, fmt.Errorf("query chapters: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			id, novelID int64
			number      sql.NullInt64
			title, url  string
			hasContent  bool
		)
		if err := rows.Scan(&id, &novelID, &number, &title, &url, &hasContent); err != nil {
			return count, fmt.Errorf("scan chapter: %w", err)
		}

		num := ""
		if number.Valid {
			num = strconv.FormatInt(number.Int64, 10)
		}
		if err := w.Write([]string{
			strconv.FormatInt(id, 10),
			strconv.FormatInt(novelID, 10),
			num,
			title,
			url,
			strconv.FormatBool(hasContent),
		}); err != nil {
			return count, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, err
	}

	w.Flush()
	return count, w.Error()
}
