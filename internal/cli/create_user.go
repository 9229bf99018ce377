package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// CreateUserCommand provisions a local account without going through the API,
// e.g. the first administrator of an AUTH_MODE=local installation.
type CreateUserCommand struct {
	DatabasePath string
	Username     string
	Email        string
	Password     string
	Admin        bool
	BcryptCost   int

	Out io.Writer
}

// NewCreateUserCommand creates a new CreateUserCommand
func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{Out: os.Stdout}
}

// ParseFlags parses command line flags
func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the bookshelf database")
	fs.StringVar(&cmd.Username, "username", "", "Username (3-64 characters)")
	fs.StringVar(&cmd.Email, "email", "", "Email address")
	fs.StringVar(&cmd.Password, "password", "", "Password (or set BOOKSHELF_PASSWORD)")
	fs.BoolVar(&cmd.Admin, "admin", false, "Grant the admin role")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", 12, "bcrypt cost factor")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a local user account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Password == "" {
		cmd.Password = os.Getenv("BOOKSHELF_PASSWORD")
	}
	if cmd.Username == "" || cmd.Email == "" || cmd.Password == "" {
		return errors.New("-username, -email and -password are required")
	}
	return nil
}

// Run executes the command
func (cmd *CreateUserCommand) Run(ctx context.Context) error {
	db, err := database.NewDatabase(cmd.DatabasePath, "warn")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	svc := auth.NewService(users.NewRepository(db.DB), config.Auth{
		Mode:       config.AuthModeLocal,
		BcryptCost: cmd.BcryptCost,
	})

	role := entities.UserRoleReader
	if cmd.Admin {
		role = entities.UserRoleAdmin
	}

	user, err := svc.CreateUser(ctx, cmd.Username, cmd.Email, cmd.Password, role)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(cmd.Out, "Created %s user %s (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}
