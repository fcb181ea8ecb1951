// Command keyscan enrolls and verifies physical keys from recorded
// point-cloud frames and manages the enrolled-key database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/keyscan/internal/config"
	"github.com/banshee-data/keyscan/internal/db"
	"github.com/banshee-data/keyscan/internal/monitoring"
	"github.com/banshee-data/keyscan/internal/session"
	"github.com/banshee-data/keyscan/internal/version"
)

var (
	dbPath      = flag.String("db", "keyscan.db", "path to sqlite db")
	configPath  = flag.String("config", "", "path to tuning config JSON (defaults to config/tuning.defaults.json)")
	debugLogs   = flag.Bool("debug", false, "enable diagnostic logging")
	traceLogs   = flag.Bool("trace", false, "enable per-frame trace logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, `Usage: keyscan [flags] <command> [args]

Commands:
  migrate <action>                         manage the database schema
  list                                     list enrolled keys
  show <id>                                print an enrolled key as JSON
  delete <id>                              remove an enrolled key
  enroll -frames file.jsonl                enroll a key from a recording
  verify -key <id> -frames file.jsonl      verify a recording against a key
         [-all] [-plot scores.png] [-chart scores.html]
  serve [-listen localhost:8081]           serve the key API, /metrics and /debug/

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	configureLogging(os.Stderr, *debugLogs, *traceLogs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func configureLogging(w io.Writer, debug, trace bool) {
	streams := monitoring.LogWriters{Ops: w}
	if debug || trace {
		streams.Diag = w
	}
	if trace {
		streams.Trace = w
	}
	session.SetLogWriters(streams)
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	if cmd == "migrate" {
		return db.RunMigrateCommand(args, *dbPath, out)
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		return err
	}
	cfg := session.ConfigFromTuning(tuning)

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer database.Close()

	app, err := newApp(ctx, cfg, database, out)
	if err != nil {
		return err
	}

	switch cmd {
	case "list":
		return app.list()
	case "show":
		return app.show(args)
	case "delete":
		return app.remove(ctx, args)
	case "enroll":
		return app.enroll(ctx, args)
	case "verify":
		return app.verify(ctx, args)
	case "serve":
		return app.serve(ctx, database, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		cfg, err := config.LoadTuningConfig(config.DefaultConfigPath)
		if err != nil {
			monitoring.Logf("no tuning config at %s, using built-in defaults", config.DefaultConfigPath)
			return config.DefaultTuningConfig(), nil
		}
		return cfg, nil
	}
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	monitoring.Logf("loaded tuning config from %s", path)
	return cfg, nil
}
