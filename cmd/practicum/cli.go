package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
)

const dateLayout = "2006-01-02"

var errHelp = errors.New("help provided")

type assignOptions struct {
	PracticeID string
	Seed       *int64
	At         time.Time
}

type runner interface {
	Assign(ctx context.Context, opts assignOptions) error
	Serve(ctx context.Context) error
	Seed(ctx context.Context, file string) error
	Roster(ctx context.Context, practiceID, format string) error
	Migrate(ctx context.Context) error
}

type commandLine struct {
	runner runner
	out    io.Writer
	now    func() time.Time
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  assign [-practice ID] [-seed N] [-at YYYY-MM-DD] - assign students to projects; without -practice every current practice runs")
	fmt.Fprintln(cli.out, "  serve                                              - start the ops HTTP server and scheduled runs")
	fmt.Fprintln(cli.out, "  seed -file PATH                                    - load a YAML/JSON fixture")
	fmt.Fprintln(cli.out, "  roster -practice ID [-format csv|pdf]              - export the participation roster")
	fmt.Fprintln(cli.out, "  migrate                                            - apply database migrations")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "assign":
		fs := cli.flagSet("assign")
		practiceID := fs.String("practice", "", "Practice id. Empty runs every practice current at -at.")
		seed := fs.Int64("seed", 0, "Shuffle seed for this run. Overrides ASSIGNMENT_SEED.")
		at := fs.String("at", "", "Date used to resolve current practices (YYYY-MM-DD). Defaults to today.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		opts := assignOptions{PracticeID: *practiceID, At: cli.now()}
		if *at != "" {
			parsed, err := time.Parse(dateLayout, *at)
			if err != nil {
				return fmt.Errorf("invalid -at %q: %w", *at, err)
			}
			opts.At = parsed
		}
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "seed" {
				opts.Seed = seed
			}
		})
		return cli.runner.Assign(ctx, opts)
	case "serve":
		if err := cli.flagSet("serve").Parse(args[2:]); err != nil {
			return err
		}
		return cli.runner.Serve(ctx)
	case "seed":
		fs := cli.flagSet("seed")
		file := fs.String("file", "", "Fixture file (yaml, json or toml).")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *file == "" {
			fs.Usage()
			return errHelp
		}
		return cli.runner.Seed(ctx, *file)
	case "roster":
		fs := cli.flagSet("roster")
		practiceID := fs.String("practice", "", "Practice id.")
		format := fs.String("format", "", "Output format: csv or pdf. Defaults to ROSTER_FORMAT.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *practiceID == "" {
			fs.Usage()
			return errHelp
		}
		return cli.runner.Roster(ctx, *practiceID, *format)
	case "migrate":
		if err := cli.flagSet("migrate").Parse(args[2:]); err != nil {
			return err
		}
		return cli.runner.Migrate(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}
