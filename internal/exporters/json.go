package exporters

import (
	"encoding/json"
	"io"
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type jsonDocument struct {
	ExportedAt time.Time             `json:"exported_at"`
	Count      int                   `json:"count"`
	Entries    []entities.ShelfEntry `json:"entries"`
}

// JSONExporter writes the full entries, book and re-read log included.
type JSONExporter struct {
	now func() time.Time
}

func (e *JSONExporter) ContentType() string { return "application/json; charset=utf-8" }
func (e *JSONExporter) Extension() string   { return "json" }

func (e *JSONExporter) Export(w io.Writer, entries []entities.ShelfEntry) (ExportResult, error) {
	if entries == nil {
		entries = []entities.ShelfEntry{}
	}
	doc := jsonDocument{
		ExportedAt: clock(e.now)().UTC(),
		Count:      len(entries),
		Entries:    entries,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{EntriesProcessed: len(entries), RereadsProcessed: countRereads(entries)}, nil
}
