package entities

import (
	"time"
)

type ReadingStatus string

const (
	StatusUnread    ReadingStatus = "unread"
	StatusReading   ReadingStatus = "reading"
	StatusCompleted ReadingStatus = "completed"
)

// Valid reports whether s is one of the three known reading states.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusUnread, StatusReading, StatusCompleted:
		return true
	}
	return false
}

// Book is the shared, de-duplicated record for one catalog edition.
// Rows are created lazily on first add-to-shelf and never updated afterwards.
type Book struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OLEditionKey  string    `gorm:"uniqueIndex;size:64;not null" json:"ol_edition_key"`
	Title         string    `gorm:"index;size:512" json:"title"`
	Author        string    `gorm:"size:512" json:"author"`
	Publisher     *string   `gorm:"size:256" json:"publisher"`
	PublishedYear *int      `json:"published_year"`
	ISBN13        *string   `gorm:"column:isbn_13;size:20" json:"isbn_13"`
	CoverURL      *string   `gorm:"size:2048" json:"cover_url"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Book) TableName() string {
	return "books"
}

// ReadInterval is one re-read pass. End is nil while the pass is in progress.
type ReadInterval struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end"`
}

// Open reports whether the interval has not been completed yet.
func (r ReadInterval) Open() bool {
	return r.End == nil
}

// ShelfEntry links one user to one Book. The (user_id, book_id) pair is unique.
//
// Status, FinishedAt and ReReadLogs always change together in one versioned
// UPDATE, see entries.Repository.Save.
type ShelfEntry struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"uniqueIndex:idx_shelf_user_book;not null" json:"user_id"`
	BookID     uint           `gorm:"uniqueIndex:idx_shelf_user_book;not null" json:"book_id"`
	Status     ReadingStatus  `gorm:"size:20;default:'unread';index" json:"status"`
	FinishedAt *time.Time     `json:"finished_at"`
	ReReadLogs []ReadInterval `gorm:"serializer:json;type:text" json:"re_read_logs"`
	Tags       []string       `gorm:"serializer:json;type:text" json:"tags"`
	Version    int            `gorm:"not null;default:1" json:"version"`
	Book       Book           `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (ShelfEntry) TableName() string {
	return "shelf_entries"
}

// RereadCount is the number of re-read passes ever started.
func (e *ShelfEntry) RereadCount() int {
	return len(e.ReReadLogs)
}

// HasActiveReread reports whether any interval in the log is still open.
func (e *ShelfEntry) HasActiveReread() bool {
	for _, r := range e.ReReadLogs {
		if r.Open() {
			return true
		}
	}
	return false
}

// ShelfFilter narrows a shelf listing.
type ShelfFilter struct {
	Status ReadingStatus
	Recent bool // order by updated_at instead of created_at
	Limit  int
	Offset int
}

// ShelfStats summarizes one user's shelf.
type ShelfStats struct {
	Total     int64 `json:"total"`
	Unread    int64 `json:"unread"`
	Reading   int64 `json:"reading"`
	Completed int64 `json:"completed"`
	Rereads   int64 `json:"rereads"`
}
