package models

import "strings"

// Genre is a novel category. NameKey is the case-insensitive identity
// of Name and carries the uniqueness constraint.
type Genre struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	NameKey string `db:"name_key" json:"-"`
}

// ScrapedGenres distinguishes "the page had no readable genre field"
// (Found == false) from "the page listed these genres" (Found == true,
// possibly with zero names). Only a found list may change a novel's genres.
type ScrapedGenres struct {
	Names []string
	Found bool
}

// GenresFound returns a confirmed genre list.
func GenresFound(names ...string) ScrapedGenres {
	if names == nil {
		names = []string{}
	}
	return ScrapedGenres{Names: names, Found: true}
}

// GenreKey is the identity of a genre name: trimmed, inner whitespace
// collapsed, lower-cased. "Fantasy" and " fantasy " share a key.
func GenreKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// GenreDisplayName tidies a scraped genre name for storage without
// changing its casing.
func GenreDisplayName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
