// Command scenetool converts scene files to XML and back.
//
// Usage:
//
//	scenetool [--config FILE] [--log-level LEVEL] COMMAND [flags] ARGS...
//
// Commands:
//
//	decode   write IN.xml next to each scene file, exporting textures
//	encode   build a scene file from XML
//	verify   check that scene files re-encode byte for byte
//	dump     print a YAML or XML view of a scene file
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/pflag"

	"github.com/meigma/scenekit/internal/config"
)

type command struct {
	summary string
	run     func(a *app, args []string) error
}

var commands = map[string]command{
	"decode": {"write IN.xml next to each scene file, exporting textures", runDecode},
	"encode": {"build a scene file from XML", runEncode},
	"verify": {"check that scene files re-encode byte for byte", runVerify},
	"dump":   {"print a YAML or XML view of a scene file", runDump},
}

// app carries the state shared by all commands.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
	status *status
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("scenetool", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.SetOutput(stderr)
	configPath := flags.String("config", os.Getenv("SCENETOOL_CONFIG"), "YAML configuration file")
	logLevel := flags.String("log-level", "", "log level: debug, info, warn, error")
	noColor := flags.Bool("no-color", false, "disable colored status output")
	flags.Usage = func() { printUsage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(stderr, flags)
		return errors.New("missing command")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	a := &app{
		cfg:    cfg,
		log:    slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		stdout: stdout,
		stderr: stderr,
		status: newStatus(stdout, *noColor),
	}
	return cmd.run(a, rest[1:])
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: scenetool [flags] COMMAND [command flags] ARGS...\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", flags.FlagUsages())
}

// newFlagSet returns a flag set for a command writing errors to a.stderr.
func (a *app) newFlagSet(name, usage string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(a.stderr)
	flags.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: scenetool %s %s\n\nFlags:\n%s", name, usage, flags.FlagUsages())
	}
	return flags
}

// parse parses command flags, mapping --help to a nil error with done set.
func parse(flags *pflag.FlagSet, args []string) (done bool, err error) {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return true, err
	}
	return false, nil
}
