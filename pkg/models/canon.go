package models

// CanonEntry is a world fact. Only entries with LockedAt set are canon.
// Edits overwrite Content and bump Version; there is no history.
type CanonEntry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Version   int    `json:"version"`
	LockedAt  *int64 `json:"locked_at,omitempty"`
	UpdatedAt int64  `json:"updated_at"`
}

func (c CanonEntry) IsCanon() bool {
	return c.LockedAt != nil
}
