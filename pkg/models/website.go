package models

// Website is a content source novels are harvested from. Name is the
// natural key.
type Website struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	URL  string `db:"url" json:"url"`
}
