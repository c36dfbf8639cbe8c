package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/ebooklib/internal/audit"
	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/database"
	"github.com/mrlokans/ebooklib/internal/database/activity"
	auditrepo "github.com/mrlokans/ebooklib/internal/database/audit"
	"github.com/mrlokans/ebooklib/internal/tasks"
)

// CleanupActivityCommand deletes activity-log entries older than the
// retention window without going through the task queue.
type CleanupActivityCommand struct {
	Config *config.Config
	Days   int

	now func() time.Time
	out io.Writer
}

func NewCleanupActivityCommand(cfg *config.Config) *CleanupActivityCommand {
	return &CleanupActivityCommand{Config: cfg, now: time.Now, out: os.Stdout}
}

func (cmd *CleanupActivityCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("cleanup-activity", flag.ContinueOnError)

	fs.IntVar(&cmd.Days, "days", cmd.Config.Activity.RetentionDays, "Delete entries older than this many days")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s cleanup-activity [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete download and read history older than the retention window.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Days <= 0 {
		fs.Usage()
		return fmt.Errorf("days must be positive")
	}

	return nil
}

func (cmd *CleanupActivityCommand) Run() error {
	db, err := database.NewDatabase(cmd.Config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	removed, err := tasks.CleanupActivity(activity.NewRepository(db.DB), cmd.Days, cmd.now())

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	auditService.LogMaintenance("cleanup_activity", removed, err)
	auditService.Wait()

	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "Removed %d activity entries older than %d days\n", removed, cmd.Days)
	return nil
}
