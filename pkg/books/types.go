package books

import "time"

// Health status values reported by a storage backend.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Bounds enforced at the API boundary for book fields and paging.
const (
	MaxTitleLength  = 255
	MaxAuthorLength = 255
	MinYear         = 0
	MaxYear         = 9999
	MaxListLimit    = 1000
)

// Book is the normalized record shape returned by every storage backend.
// ID is the canonical textual form of the backend's identifier; CreatedOn is
// set once at insertion and never mutated.
type Book struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Year      int        `json:"year"`
	CreatedOn *time.Time `json:"created_on"`
}

// BookUpdate carries the fields of a partial update. A nil field means
// "leave unchanged" — omitted is not the same as cleared.
type BookUpdate struct {
	Title  *string `json:"title,omitempty"`
	Author *string `json:"author,omitempty"`
	Year   *int    `json:"year,omitempty"`
}

// IsEmpty reports whether no fields were provided.
func (u BookUpdate) IsEmpty() bool {
	return u.Title == nil && u.Author == nil && u.Year == nil
}

// BookFilter narrows a search. Title and Author match case-insensitively as
// substrings, Year matches exactly; provided fields compose with AND. A zero
// filter matches everything.
type BookFilter struct {
	Title  *string
	Author *string
	Year   *int
}

// IsEmpty reports whether no filters were provided.
func (f BookFilter) IsEmpty() bool {
	return f.Title == nil && f.Author == nil && f.Year == nil
}

// HealthStatus is the result of a backend health probe. Failures are carried
// in Error rather than returned as Go errors so liveness callers always get a
// response.
type HealthStatus struct {
	Adapter   string    `json:"adapter"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Healthy reports whether the probe succeeded.
func (h HealthStatus) Healthy() bool {
	return h.Status == StatusHealthy
}
