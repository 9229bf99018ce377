package exporters

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

// MarkdownExporter writes an Obsidian-friendly note grouped by reading status.
type MarkdownExporter struct {
	now func() time.Time
}

func (e *MarkdownExporter) ContentType() string { return "text/markdown; charset=utf-8" }
func (e *MarkdownExporter) Extension() string   { return "md" }

func (e *MarkdownExporter) Export(w io.Writer, entries []entities.ShelfEntry) (ExportResult, error) {
	if _, err := io.WriteString(w, GenerateMarkdown(entries, clock(e.now)())); err != nil {
		return ExportResult{}, err
	}
	return ExportResult{EntriesProcessed: len(entries), RereadsProcessed: countRereads(entries)}, nil
}

var sectionOrder = []struct {
	status entities.ReadingStatus
	title  string
}{
	{entities.StatusReading, "Reading"},
	{entities.StatusCompleted, "Completed"},
	{entities.StatusUnread, "Want to read"},
}

// GenerateMarkdown renders the shelf with YAML frontmatter.
func GenerateMarkdown(entries []entities.ShelfEntry, now time.Time) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "---\n")
	fmt.Fprintf(&builder, "content_type: bookshelf\n")
	fmt.Fprintf(&builder, "created_at: %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&builder, "books: %d\n", len(entries))
	fmt.Fprintf(&builder, "tags: [books, bookshelf]\n")
	fmt.Fprintf(&builder, "---\n\n")
	fmt.Fprintf(&builder, "# Bookshelf\n")

	for _, section := range sectionOrder {
		var group []entities.ShelfEntry
		for _, entry := range entries {
			if entry.Status == section.status {
				group = append(group, entry)
			}
		}
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(&builder, "\n## %s (%d)\n\n", section.title, len(group))
		for _, entry := range group {
			writeEntry(&builder, entry)
		}
	}

	return builder.String()
}

func writeEntry(builder *strings.Builder, entry entities.ShelfEntry) {
	fmt.Fprintf(builder, "### %s\n\n", escapeMarkdown(entry.Book.Title))
	fmt.Fprintf(builder, "- **Author:** %s\n", escapeMarkdown(entry.Book.Author))
	if entry.Book.PublishedYear != nil {
		fmt.Fprintf(builder, "- **Published:** %d\n", *entry.Book.PublishedYear)
	}
	if entry.Book.ISBN13 != nil && *entry.Book.ISBN13 != "" {
		fmt.Fprintf(builder, "- **ISBN:** %s\n", *entry.Book.ISBN13)
	}
	if entry.FinishedAt != nil {
		fmt.Fprintf(builder, "- **Finished:** %s\n", entry.FinishedAt.Format("2006-01-02"))
	}
	if len(entry.Tags) > 0 {
		tags := make([]string, len(entry.Tags))
		for i, t := range entry.Tags {
			tags[i] = "#" + strings.ReplaceAll(t, " ", "-")
		}
		fmt.Fprintf(builder, "- **Tags:** %s\n", strings.Join(tags, " "))
	}

	if views := shelf.DescribeRereads(entry.ReReadLogs); len(views) > 0 {
		fmt.Fprintf(builder, "- **Re-reads:**\n")
		for _, v := range views {
			fmt.Fprintf(builder, "  - Pass %d: %s\n", v.Pass, v.Label)
		}
	}
	builder.WriteString("\n")
}

// escapeMarkdown neutralizes characters that would start markup in a heading or list item.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("*", `\*`, "_", `\_`, "#", `\#`, "[", `\[`, "]", `\]`)
	return replacer.Replace(s)
}
