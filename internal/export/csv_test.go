package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novelhub/internal/testutil"
)

func TestNovelsAndChapters(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	n := testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/b")
	testutil.SeedChapter(t, db, n.ID, 1, "https://x/c1")
	testutil.SeedChapter(t, db, n.ID, 0, "https://x/prologue")

	_, err := db.Exec(`INSERT INTO genres (name, name_key) VALUES ('Fantasy', 'fantasy'), ('Action', 'action')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO novel_genres (novel_id, genre_id) VALUES (?, 1), (?, 2)`, n.ID, n.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	count, err := Novels(ctx, db, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "genres", rows[0][7])
	assert.Equal(t, "NovLove", rows[1][4])
	assert.Equal(t, "Action|Fantasy", rows[1][7])
	assert.Equal(t, "", rows[2][7])

	buf.Reset()
	count, err = Chapters(ctx, db, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1"}, []string{rows[1][2], rows[1][1]})
	assert.Equal(t, "", rows[2][2], "unnumbered chapters sort last with an empty number")
	assert.Equal(t, "false", rows[2][5])
}

func TestToDir(t *testing.T) {
	db := testutil.NewDB(t)
	w := testutil.SeedWebsite(t, db, "NovLove", "https://novlove.com")
	testutil.SeedNovel(t, db, w.ID, "https://novlove.com/novel/a")
	dir := filepath.Join(t.TempDir(), "out")

	novels, chapters, err := ToDir(context.Background(), db, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, novels)
	assert.Equal(t, 0, chapters)

	for _, name := range []string{NovelsFile, ChaptersFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestReadNovelURLs(t *testing.T) {
	in := strings.NewReader("id,Source_URL,title\n1,https://novlove.com/novel/a,A\n2,,B\n3, https://novlove.com/novel/c ,C\n4\n")

	urls, err := ReadNovelURLs(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://novlove.com/novel/a", "https://novlove.com/novel/c"}, urls)

	_, err = ReadNovelURLs(strings.NewReader("id,title\n1,A\n"))
	assert.Error(t, err)

	_, err = ReadNovelURLs(strings.NewReader(""))
	assert.Error(t, err)
}
