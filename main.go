// ABOUTME: Entry point for the lodgekit replication engine
// ABOUTME: Routes to serve, status, export, and import commands
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lodgekit/lodgekit/cli"
	"github.com/lodgekit/lodgekit/config"
)

const version = "0.2.0"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	dataDir := flag.String("data-dir", "", "Data directory (default: ~/.local/share/lodgekit)")
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("lodgekit version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	log := cli.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	app, err := cli.NewApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}
	defer app.Close()

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "serve":
		if err := cli.ServeCommand(app); err != nil {
			log.Fatal().Err(err).Msg("serve failed")
		}

	case "status":
		if err := cli.StatusCommand(app); err != nil {
			log.Fatal().Err(err).Msg("status failed")
		}

	case "export":
		path := ""
		if len(commandArgs) > 0 {
			path = commandArgs[0]
		}
		if err := cli.ExportCommand(app, path); err != nil {
			log.Fatal().Err(err).Msg("export failed")
		}

	case "import":
		path := ""
		if len(commandArgs) > 0 {
			path = commandArgs[0]
		}
		if err := cli.ImportCommand(app, path); err != nil {
			log.Fatal().Err(err).Msg("import failed")
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`lodgekit v%s - local-first replication engine for hotel property data

USAGE:
  lodgekit [global flags] <command> [args]

GLOBAL FLAGS:
  --version              Show version and exit
  --data-dir <path>      Data directory (default: ~/.local/share/lodgekit)

COMMANDS:
  serve                  Bootstrap the engine and run the REST facade
  status                 Show cloud connectivity and local store counts
  export [file]          Write all collections to a JSON backup (stdout if omitted)
  import <file>          Restore collections from a JSON backup

CONFIGURATION:
  Config file at ~/.local/share/lodgekit/config.json, overridable via .env or
  environment: LODGEKIT_CLOUD_URL, LODGEKIT_CLOUD_ANON_KEY, LODGEKIT_DATA_DIR,
  LODGEKIT_LISTEN_ADDR, LODGEKIT_HEALTH_INTERVAL. Missing or placeholder cloud
  values run the engine local-only.

EXAMPLES:
  # Run local-only
  lodgekit serve

  # Mirror to a cloud backend
  LODGEKIT_CLOUD_URL=https://demo.example.co LODGEKIT_CLOUD_ANON_KEY=anon lodgekit serve

  # Nightly backup
  lodgekit export backup.json
`, version)
}
