package exporters

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
)

var csvHeader = []string{
	"title", "author", "publisher", "published_year", "isbn_13", "ol_edition_key",
	"status", "finished_at", "rereads", "tags", "added_at",
}

// CSVExporter writes one row per shelf entry.
type CSVExporter struct{}

func (e *CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }
func (e *CSVExporter) Extension() string   { return "csv" }

func (e *CSVExporter) Export(w io.Writer, entries []entities.ShelfEntry) (ExportResult, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return ExportResult{}, err
	}

	for _, entry := range entries {
		year := ""
		if entry.Book.PublishedYear != nil {
			year = strconv.Itoa(*entry.Book.PublishedYear)
		}
		record := []string{
			entry.Book.Title,
			entry.Book.Author,
			deref(entry.Book.Publisher),
			year,
			deref(entry.Book.ISBN13),
			entry.Book.OLEditionKey,
			string(entry.Status),
			formatTime(entry.FinishedAt),
			strconv.Itoa(entry.RereadCount()),
			strings.Join(entry.Tags, ";"),
			formatTime(&entry.CreatedAt),
		}
		if err := cw.Write(record); err != nil {
			return ExportResult{}, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{EntriesProcessed: len(entries), RereadsProcessed: countRereads(entries)}, nil
}
