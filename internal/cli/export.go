package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/entries"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/exporters"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

// ExportCommand writes one user's shelf to a file or stdout.
type ExportCommand struct {
	DatabasePath string
	Format       string
	Output       string // file or directory; empty means stdout
	User         string // username or email; empty means the local owner
	Owner        string

	Out io.Writer
	now func() time.Time
}

// NewExportCommand creates a new ExportCommand
func NewExportCommand() *ExportCommand {
	return &ExportCommand{Out: os.Stdout, now: time.Now}
}

// ParseFlags parses command line flags
func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the bookshelf database")
	fs.StringVar(&cmd.Format, "format", string(exporters.FormatMarkdown), "Export format: csv, json or markdown")
	fs.StringVar(&cmd.Output, "output", "", "Output file or directory (stdout if not specified)")
	fs.StringVar(&cmd.User, "user", "", "Username or email whose shelf is exported (local owner if not specified)")
	fs.StringVar(&cmd.Owner, "owner", "owner", "Local owner account name used when AUTH_MODE=none")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s export [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Export a shelf with reading status and re-read history.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export -output ~/Obsidian/Books\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -format csv -user alice > shelf.csv\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := exporters.ParseFormat(cmd.Format); err != nil {
		return err
	}
	return nil
}

// Run executes the export
func (cmd *ExportCommand) Run(ctx context.Context) error {
	format, err := exporters.ParseFormat(cmd.Format)
	if err != nil {
		return err
	}

	db, err := database.NewDatabase(cmd.DatabasePath, "warn")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	session, err := cmd.resolveSession(ctx, users.NewRepository(db.DB))
	if err != nil {
		return err
	}

	bookRepo := books.NewRepository(db.DB)
	shelfService := shelf.NewService(bookRepo, entries.NewRepository(db.DB), shelf.NewResolver(bookRepo, config.DefaultCoverURLTemplate))
	exportService := exporters.NewService(shelfService)

	exporter, err := exportService.Exporter(format)
	if err != nil {
		return err
	}

	out, path, closeOut, err := cmd.openOutput(exporter)
	if err != nil {
		return err
	}
	defer closeOut()

	result, err := exportService.Export(ctx, session, exporter, out)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if path != "" {
		fmt.Fprintf(cmd.Out, "Exported %d books (%d re-reads) to %s\n", result.EntriesProcessed, result.RereadsProcessed, path)
	}
	return nil
}

func (cmd *ExportCommand) resolveSession(ctx context.Context, repo *users.Repository) (*shelf.Session, error) {
	if cmd.User == "" {
		owner, err := repo.GetOrCreateOwner(ctx, cmd.Owner)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve owner account: %w", err)
		}
		return shelf.NewSession(owner.ID, owner.Username), nil
	}

	user, err := repo.GetByLogin(ctx, cmd.User)
	if database.IsNotFound(err) {
		return nil, fmt.Errorf("user %q not found", cmd.User)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return shelf.NewSession(user.ID, user.Username), nil
}

// openOutput picks stdout, a named file, or a dated file inside a directory.
func (cmd *ExportCommand) openOutput(exporter exporters.ShelfExporter) (io.Writer, string, func(), error) {
	if cmd.Output == "" {
		return cmd.Out, "", func() {}, nil
	}

	path := cmd.Output
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, exporters.Filename(exporter, cmd.now()))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, "", nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, path, func() { f.Close() }, nil
}
