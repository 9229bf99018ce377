package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
)

// CatalogSearcher is the subset of the Open Library client the command needs.
type CatalogSearcher interface {
	Search(ctx context.Context, query string) ([]catalog.Work, error)
	ListEditions(ctx context.Context, workKey string) ([]catalog.Edition, error)
}

// SearchCommand queries the Open Library catalog from the terminal.
type SearchCommand struct {
	Query   string
	WorkKey string
	BaseURL string
	Timeout time.Duration

	Out     io.Writer
	catalog CatalogSearcher
}

// NewSearchCommand creates a new SearchCommand
func NewSearchCommand() *SearchCommand {
	return &SearchCommand{Out: os.Stdout}
}

// ParseFlags parses command line flags. Remaining arguments form the query.
func (cmd *SearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)

	fs.StringVar(&cmd.WorkKey, "editions", "", "List editions of a work key (e.g. OL45883W) instead of searching")
	fs.StringVar(&cmd.BaseURL, "base-url", config.DefaultCatalogBaseURL, "Open Library API root")
	fs.DurationVar(&cmd.Timeout, "timeout", 10*time.Second, "Request timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s search [options] <query>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Search the Open Library catalog for works, or list the editions of one work.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s search frank herbert dune\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s search -editions OL45883W\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.Query = strings.Join(fs.Args(), " ")
	if strings.TrimSpace(cmd.Query) == "" && strings.TrimSpace(cmd.WorkKey) == "" {
		return errors.New("a search query or -editions work key is required")
	}
	return nil
}

// Run executes the search
func (cmd *SearchCommand) Run(ctx context.Context) error {
	if cmd.catalog == nil {
		cmd.catalog = catalog.NewClient(config.Catalog{
			BaseURL: cmd.BaseURL,
			Timeout: cmd.Timeout,
		})
	}

	if cmd.WorkKey != "" {
		return cmd.listEditions(ctx)
	}

	works, err := cmd.catalog.Search(ctx, cmd.Query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(works) == 0 {
		fmt.Fprintf(cmd.Out, "No works found for %q\n", cmd.Query)
		return nil
	}

	for i, w := range works {
		author := catalog.UnknownAuthor
		if len(w.AuthorName) > 0 {
			author = strings.Join(w.AuthorName, ", ")
		}
		fmt.Fprintf(cmd.Out, "%2d. %s by %s", i+1, w.Title, author)
		if w.FirstPublishYear > 0 {
			fmt.Fprintf(cmd.Out, " (%d)", w.FirstPublishYear)
		}
		fmt.Fprintf(cmd.Out, "\n    %s, %d editions\n", catalog.NormalizeWorkKey(w.Key), w.EditionCount)
	}
	return nil
}

func (cmd *SearchCommand) listEditions(ctx context.Context) error {
	editions, err := cmd.catalog.ListEditions(ctx, cmd.WorkKey)
	if err != nil {
		return fmt.Errorf("listing editions failed: %w", err)
	}
	if len(editions) == 0 {
		fmt.Fprintf(cmd.Out, "No editions found for %s\n", cmd.WorkKey)
		return nil
	}

	for i, e := range editions {
		fmt.Fprintf(cmd.Out, "%2d. %s", i+1, e.Title)
		if len(e.Publishers) > 0 {
			fmt.Fprintf(cmd.Out, ", %s", e.Publishers[0])
		}
		if e.PublishDate != "" {
			fmt.Fprintf(cmd.Out, " (%s)", e.PublishDate)
		}
		fmt.Fprintf(cmd.Out, "\n    %s", e.Key)
		if len(e.ISBN13) > 0 {
			fmt.Fprintf(cmd.Out, ", ISBN %s", e.ISBN13[0])
		}
		fmt.Fprintln(cmd.Out)
	}
	return nil
}
