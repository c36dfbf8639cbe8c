package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/ebooklib/internal/cli"
	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/entrypoint"
	"github.com/mrlokans/ebooklib/internal/logging"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type subcommand interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	cfg := config.NewConfig()

	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	var cmd subcommand
	switch command {
	case "create-admin":
		cmd = cli.NewCreateAdminCommand(cfg)
	case "cleanup-activity":
		cmd = cli.NewCleanupActivityCommand(cfg)
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	logging.Init("ebooklib", cfg.Log.Level, cfg.Log.Format)
	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve              Start the HTTP API (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  create-admin       Create an admin account or promote an existing user\n")
	fmt.Fprintf(os.Stderr, "  cleanup-activity   Delete activity history older than the retention window\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Version %s (%s)\n", Version, Commit)
}
