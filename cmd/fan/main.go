// Command fan drives the language runtime: eval a one-off expression, run
// a source file or directory, load-test or single-run a suite's tests, or
// drop into a line-accumulating REPL when no subcommand is given.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/basjoofan-go/fan/internal/driver"
)

func main() {
	if len(os.Args) < 2 {
		driver.New().REPL(os.Stdin)
		return
	}

	switch os.Args[1] {
	case "eval":
		cmdEval(os.Args[2:])
	case "run":
		cmdRun(os.Args[2:])
	case "test":
		cmdTest(os.Args[2:])
	default:
		driver.New().REPL(os.Stdin)
	}
}

func cmdEval(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: fan eval <source-text>")
		os.Exit(1)
	}
	driver.New().Eval(args[0])
}

func cmdRun(args []string) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	driver.New().Run(path, driver.DefaultExt)
}

func cmdTest(args []string) {
	name, rest := popName(args)

	opts := driver.TestOptions{
		Path: ".",
		Ext:  driver.DefaultExt,
		Name: name,
	}

	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--threads":
			i++
			opts.Threads = mustAtoi(rest, i, "--threads")
		case "--number":
			i++
			opts.Number = mustAtoi(rest, i, "--number")
		case "--duration":
			i++
			d, err := parseDuration(argAt(rest, i, "--duration"))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			opts.Duration = d
		case "--path":
			i++
			opts.Path = argAt(rest, i, "--path")
		case "--record":
			i++
			opts.RecordDir = argAt(rest, i, "--record")
		case "--stat":
			opts.Stat = true
		default:
			fmt.Fprintf(os.Stderr, "unknown flag: %s\n", rest[i])
			os.Exit(1)
		}
	}
	if opts.Threads == 0 {
		opts.Threads = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := driver.New().Test(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// popName takes the optional positional test name preceding any --flag,
// matching spec §6's "test [name] [--threads N] ...".
func popName(args []string) (string, []string) {
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		return args[0], args[1:]
	}
	return "", args
}

func argAt(args []string, i int, flagName string) string {
	if i >= len(args) {
		fmt.Fprintf(os.Stderr, "%s requires a value\n", flagName)
		os.Exit(1)
	}
	return args[i]
}

func mustAtoi(args []string, i int, flagName string) int {
	v, err := strconv.Atoi(argAt(args, i, flagName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flagName, err)
		os.Exit(1)
	}
	return v
}

// parseDuration accepts spec §6's "<n>{s,m,h}" suffix grammar, e.g. "30s",
// "5m", "1h" — deliberately narrower than time.ParseDuration's full syntax.
func parseDuration(text string) (time.Duration, error) {
	if len(text) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", text)
	}
	unit := text[len(text)-1]
	n, err := strconv.Atoi(text[:len(text)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", text)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid duration unit in %q: want s, m, or h", text)
	}
}
