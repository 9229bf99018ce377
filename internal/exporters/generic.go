package exporters

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts csv, json, markdown and md, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ShelfExporter writes a user's shelf entries in one format.
type ShelfExporter interface {
	Export(w io.Writer, entries []entities.ShelfEntry) (ExportResult, error)
	ContentType() string
	Extension() string
}

type ExportResult struct {
	EntriesProcessed int `json:"entries_processed"`
	RereadsProcessed int `json:"rereads_processed"`
}

// New returns the exporter for format. now stamps generated documents.
func New(format Format, now func() time.Time) (ShelfExporter, error) {
	now = clock(now)
	switch format {
	case FormatCSV:
		return &CSVExporter{}, nil
	case FormatJSON:
		return &JSONExporter{now: now}, nil
	case FormatMarkdown:
		return &MarkdownExporter{now: now}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Filename suggests a download name such as bookshelf-2024-05-01.csv.
func Filename(e ShelfExporter, at time.Time) string {
	return fmt.Sprintf("bookshelf-%s.%s", at.Format("2006-01-02"), e.Extension())
}

func countRereads(entries []entities.ShelfEntry) int {
	n := 0
	for i := range entries {
		n += entries[i].RereadCount()
	}
	return n
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func clock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
