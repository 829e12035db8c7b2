package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"yashubustudio/agreement/agreement"
	"yashubustudio/agreement/internal/config"
	"yashubustudio/agreement/internal/logger"
	"yashubustudio/agreement/internal/store"
)

// globalOptions are accepted by every subcommand.
type globalOptions struct {
	configPath string
	annotators string
	categories string
	itemColumn string
	outputDir  string
	archive    string
	logLevel   string
	logFormat  string
	stdout     bool
}

func (g *globalOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "Path to agreement.yaml or .json (default: ./agreement.yaml)")
	fs.StringVar(&g.annotators, "annotators", "", "Comma separated annotator roster, e.g. A,B,C")
	fs.StringVar(&g.categories, "categories", "", "Comma separated category codes")
	fs.StringVar(&g.itemColumn, "item-column", "", "Column identifying the unit of agreement")
	fs.StringVar(&g.outputDir, "output-dir", "", "Directory where results are written when --output is omitted")
	fs.StringVar(&g.archive, "archive", "", "sqlite file recording every run")
	fs.StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&g.logFormat, "log-format", "console", "Log format on STDERR: console or json")
	fs.BoolVar(&g.stdout, "stdout", false, "Print results to STDOUT")
}

func (g globalOptions) overrides() agreement.Config {
	return agreement.Config{
		Annotators: splitList(g.annotators),
		Categories: splitList(g.categories),
		ItemColumn: strings.TrimSpace(g.itemColumn),
		OutputDir:  strings.TrimSpace(g.outputDir),
		Archive:    agreement.ArchiveConfig{DSN: strings.TrimSpace(g.archive)},
	}
}

// cliEnv is what a subcommand runs against.
type cliEnv struct {
	service *agreement.Service
	archive *store.Archive
	log     *logger.Logger
	opts    globalOptions
	out     io.Writer
}

type runner func(ctx context.Context, env *cliEnv, args []string) error

type command struct {
	name    string
	summary string
	setup   func(fs *flag.FlagSet) runner
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("agreement-cli: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		return flag.ErrHelp
	}
	cmd, ok := lookupCommand(args[0])
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts globalOptions
	opts.register(fs)
	runCmd := cmd.setup(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s %s [options]\n\n%s\n\n", filepath.Base(os.Args[0]), cmd.name, cmd.summary)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	lg, err := newLogger(opts.logFormat, stderr)
	if err != nil {
		return err
	}
	if err := lg.SetLevel(opts.logLevel); err != nil {
		return err
	}
	ctx = lg.WithContext(ctx)

	cfg, err := config.Load(config.Options{ConfigPath: strings.TrimSpace(opts.configPath), Overrides: opts.overrides()})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := &cliEnv{log: lg, opts: opts, out: stdout}
	var serviceOpts []agreement.ServiceOption
	if cfg.Archive.DSN != "" {
		archive, err := store.Open(ctx, cfg.Archive.DSN, lg)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer archive.Close()
		env.archive = archive
		serviceOpts = append(serviceOpts, agreement.WithRecorder(archive))
	}

	env.service, err = agreement.NewService(cfg, lg, serviceOpts...)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	return runCmd(ctx, env, fs.Args())
}

// newLogger builds the STDERR logger for format.
func newLogger(format string, stderr io.Writer) (*logger.Logger, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return logger.NewConsoleLogger("agreement-cli", stderr), nil
	case "json":
		return logger.New("agreement-cli", stderr), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [options]\n\nCommands:\n", filepath.Base(os.Args[0]))
	cmds := commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })
	for _, c := range cmds {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.summary)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required --%s", name)
	}
	return nil
}
