package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadNovelURLs reads the source_url column of a CSV with a header row,
// such as NovelsFile or a hand-made list. Blank cells are skipped.
func ReadNovelURLs(in io.Reader) ([]string, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	col, ok := header["source_url"]
	if !ok {
		return nil, errors.New("read novel urls: no source_url column")
	}

	var urls []string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read novel urls: %w", err)
		}
		if col >= len(row) {
			continue
		}
		if u := strings.TrimSpace(row[col]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}
