// sevenzip is a small inspection tool for 7z archives built on the
// sevenzip library. It lists archive contents and extracts single
// files to stdout:
//
//	sevenzip list archive.7z
//	sevenzip cat archive.7z path/inside/archive
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	sevenzip "github.com/meigma/sevenzip"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sevenzip: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var verbose bool

	flagSet := pflag.NewFlagSet("sevenzip", pflag.ContinueOnError)
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log parse diagnostics to stderr")
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) < 2 {
		printUsage(flagSet)
		return fmt.Errorf("expected a command and an archive path")
	}

	var opts []sevenzip.Option
	if verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, sevenzip.WithLogger(logger))
	}

	command, path := rest[0], rest[1]
	switch command {
	case "list":
		if len(rest) != 2 {
			return fmt.Errorf("list takes exactly one archive path")
		}
		return list(path, opts)
	case "cat":
		if len(rest) != 3 {
			return fmt.Errorf("cat takes an archive path and a file name")
		}
		return cat(path, rest[2], opts)
	default:
		printUsage(flagSet)
		return fmt.Errorf("unknown command %q", command)
	}
}

func list(path string, opts []sevenzip.Option) error {
	archive, err := sevenzip.OpenFile(path, opts...)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, entry := range archive.Files() {
		kind := "-"
		if entry.IsDir {
			kind = "d"
		}
		mtime := ""
		if !entry.ModTime.IsZero() {
			mtime = entry.ModTime.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s %12d  %-19s  %s\n", kind, entry.Size, mtime, entry.Name)
	}
	return nil
}

func cat(path, name string, opts []sevenzip.Option) error {
	archive, err := sevenzip.OpenFile(path, opts...)
	if err != nil {
		return err
	}
	defer archive.Close()

	data, err := archive.ExtractName(name)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  sevenzip list <archive.7z>")
	fmt.Fprintln(os.Stderr, "  sevenzip cat <archive.7z> <name>")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprint(os.Stderr, flagSet.FlagUsages())
}
