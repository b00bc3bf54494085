// Package main is the casebrief CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/casebrief/internal/config"
	"github.com/Epistemic-Technology/casebrief/internal/logger"
	"github.com/Epistemic-Technology/casebrief/internal/operations"
	"github.com/Epistemic-Technology/casebrief/internal/storage"
	"github.com/Epistemic-Technology/casebrief/internal/watcher"
	"github.com/Epistemic-Technology/casebrief/models"
	"github.com/Epistemic-Technology/casebrief/server"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch command := os.Args[1]; command {
	case "run":
		runDocuments(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "list":
		runList(os.Args[2:])
	case "init":
		runInit(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("casebrief version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: casebrief <command> [flags]

Commands:
  run [-kind brief|timeline|comprehensive] [-out file] <file or dir>...
                 Summarize OCR JSON or PDF documents and print the records as JSON
  watch          Watch the configured inbox directories and summarize new documents
  serve          Run the MCP server on stdio
  list           List stored runs
  init           Write a default config file
  version        Print the version

Every command accepts -config (default $CASEBRIEF_CONFIG or ~/.casebrief/config.yaml).`)
}

// setup loads config and opens the logger and store shared by every command.
func setup(configPath string) (*config.Config, logger.Logger, storage.Store) {
	log, err := logger.NewLogger(logger.LogConfig{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	store, err := server.InitializeStorage(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	return cfg, log, store
}

func buildDeps(cfg *config.Config, sink storage.Sink, log logger.Logger) operations.Deps {
	deps, err := operations.NewDeps(cfg, config.OpenAIFactory, sink, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize models: %v\n", err)
		os.Exit(1)
	}
	return deps
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runDocuments(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	kindName := fs.String("kind", "brief", "output kind: brief, timeline or comprehensive")
	instructions := fs.String("instructions", "", "extra guidance for comprehensive page summaries")
	outPath := fs.String("out", "", "write JSON output to this file instead of stdout")
	_ = fs.Parse(args)

	kind, err := operations.ParseKind(*kindName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "run: at least one file or directory is required")
		os.Exit(1)
	}

	cfg, log, store := setup(*configPath)
	defer store.Close()

	files, err := expandInputs(fs.Args(), cfg.Watch.Extensions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read inputs: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()
	deps := buildDeps(cfg, store, log)

	runs, failed := summarizeAll(ctx, files, kind, *instructions, deps)

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *outPath, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := storage.WriteFileOutputs(out, runs); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d documents failed; see the log for details\n", failed, len(files))
		os.Exit(1)
	}
}

// summarizeAll processes files one at a time. A failed document is logged
// and skipped.
func summarizeAll(ctx context.Context, files []string, kind models.RunKind, instructions string, deps operations.Deps) ([]*models.Run, int) {
	var runs []*models.Run
	failed := 0
	for _, file := range files {
		if ctx.Err() != nil {
			failed = len(files) - len(runs)
			break
		}
		run, err := operations.SummarizeFile(ctx, file, kind, instructions, deps)
		if err != nil {
			deps.Log.Error("Failed to process %s: %v", file, err)
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed++
			continue
		}
		runs = append(runs, run)
	}
	return runs, failed
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)

	cfg, log, store := setup(*configPath)
	defer store.Close()
	if len(cfg.Watch.Directories) == 0 {
		fmt.Fprintln(os.Stderr, "watch: no directories configured under watch.directories")
		os.Exit(1)
	}
	kind, err := operations.ParseKind(cfg.Watch.Kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	jsonSink := storage.NewJSONSink(cfg.Watch.OutputDir)
	deps := buildDeps(cfg, storage.MultiSink{store, jsonSink}, log)

	ctx, cancel := signalContext()
	defer cancel()

	inbox := newInbox(ctx, kind, cfg.Watch.Instructions, jsonSink, deps)
	w := watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(), inbox.enqueue, watcher.WithLogger(log.With("watcher")))
	if err := w.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start watcher: %v\n", err)
		os.Exit(1)
	}
	defer w.Stop()
	w.SyncExisting()

	log.Info("Watching %v for %s runs, writing to %s", w.Directories(), kind, cfg.Watch.OutputDir)
	fmt.Printf("Watching %v (Ctrl+C to stop)\n", w.Directories())
	<-ctx.Done()
	inbox.wait()
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)

	cfg, log, store := setup(*configPath)
	defer store.Close()

	log.Info("Starting casebrief MCP server")
	srv := server.CreateServer(buildDeps(cfg, store, log), store, log)
	if err := srv.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatal("Server failed: %v", err)
	}
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	_ = fs.Parse(args)

	_, _, store := setup(*configPath)
	defer store.Close()

	runs, err := store.ListRuns(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list runs: %v\n", err)
		os.Exit(1)
	}
	for _, run := range runs {
		fmt.Printf("%s  %-13s  %4d pages  %s  %s\n", run.RunID, run.Kind, run.PageCount, run.CreatedAt, run.Filename)
	}
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(args)

	if _, err := os.Stat(*configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s already exists (use -force to overwrite)\n", *configPath)
		os.Exit(1)
	}
	if err := config.Save(*configPath, config.Default()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *configPath)
}
