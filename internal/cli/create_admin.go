package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/ebooklib/internal/audit"
	"github.com/mrlokans/ebooklib/internal/auth"
	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/database"
	auditrepo "github.com/mrlokans/ebooklib/internal/database/audit"
	"github.com/mrlokans/ebooklib/internal/database/users"
)

// CreateAdminCommand creates an administrator account, or promotes the
// account that already uses the email.
type CreateAdminCommand struct {
	Config   *config.Config
	Name     string
	Email    string
	Password string

	out io.Writer
}

func NewCreateAdminCommand(cfg *config.Config) *CreateAdminCommand {
	return &CreateAdminCommand{Config: cfg, out: os.Stdout}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)

	fs.StringVar(&cmd.Name, "name", "Administrator", "Display name for a new account")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", os.Getenv("ADMIN_PASSWORD"), "Password for a new account (default $ADMIN_PASSWORD)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin -email EMAIL [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an admin account, or promote an existing user to admin.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Email == "" {
		fs.Usage()
		return fmt.Errorf("email is required")
	}

	return nil
}

func (cmd *CreateAdminCommand) Run() error {
	db, err := database.NewDatabase(cmd.Config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens := auth.NewTokenIssuer([]byte(cmd.Config.Auth.SecretKey), cmd.Config.Auth.TokenExpiry)
	service := auth.NewService(users.NewRepository(db.DB), tokens, cmd.Config.Auth)

	user, created, err := service.EnsureAdmin(cmd.Name, cmd.Email, cmd.Password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	if created {
		auditService.LogAccount(user.ID, "admin_created", user.Email)
		fmt.Fprintf(cmd.out, "Created admin %s (id %d)\n", user.Email, user.ID)
	} else {
		auditService.LogAccount(user.ID, "admin_promoted", user.Email)
		fmt.Fprintf(cmd.out, "Promoted %s (id %d) to admin\n", user.Email, user.ID)
	}
	auditService.Wait()

	return nil
}
