// Package main is the operator CLI for the battlewatch subscriber
// directory. It provides subcommands:
//
//   - migrate: apply pending schema migrations
//   - add:     register a handle under a display name
//   - remove:  delete a handle's registration
//   - find:    list handles registered under a display name
//   - watch:   print automatic unsubscriptions published on NATS
//
// Usage:
//
//	subscribers <command> [options] [args]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/whisper/battlewatch/internal/directory"
	"github.com/whisper/battlewatch/internal/messaging"
)

const dsnEnv = "BATTLEWATCH_DIRECTORY_DSN"

var errUsage = errors.New("usage error")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1], os.Args[2:], os.Stdout)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		printUsage(os.Stderr)
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, out io.Writer) error {
	switch command {
	case "migrate":
		return runMigrate(args, out)
	case "add":
		return runAdd(ctx, args, out)
	case "remove":
		return runRemove(ctx, args, out)
	case "find":
		return runFind(ctx, args, out)
	case "watch":
		return runWatch(ctx, args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: subscribers <command> [options] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  migrate                    Apply pending schema migrations")
	fmt.Fprintln(w, "  add <handle> <name>        Register a handle under a display name")
	fmt.Fprintln(w, "  remove <handle>            Delete a handle's registration")
	fmt.Fprintln(w, "  find <name>                List handles registered under a display name")
	fmt.Fprintln(w, "  watch                      Print automatic unsubscriptions from NATS")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "The directory DSN defaults to $%s.\n", dsnEnv)
	fmt.Fprintln(w, "Run 'subscribers <command> -h' for command-specific options.")
}

// newFlagSet returns a flag set with the shared -dsn flag.
func newFlagSet(name string, out io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	dsn := fs.String("dsn", os.Getenv(dsnEnv), "directory DSN (postgres:// or sqlite://)")
	return fs, dsn
}

func parse(fs *flag.FlagSet, args []string, dsn *string, nargs int) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *dsn == "" {
		return fmt.Errorf("%w: -dsn or $%s is required", errUsage, dsnEnv)
	}
	if fs.NArg() != nargs {
		return fmt.Errorf("%w: %s expects %d argument(s), got %d", errUsage, fs.Name(), nargs, fs.NArg())
	}
	return nil
}

func runMigrate(args []string, out io.Writer) error {
	fs, dsn := newFlagSet("migrate", out)
	if err := parse(fs, args, dsn, 0); err != nil {
		return err
	}
	if err := directory.Migrate(*dsn); err != nil {
		return err
	}
	fmt.Fprintln(out, "schema is up to date")
	return nil
}

func runAdd(ctx context.Context, args []string, out io.Writer) error {
	fs, dsn := newFlagSet("add", out)
	if err := parse(fs, args, dsn, 2); err != nil {
		return err
	}
	store, err := directory.Open(ctx, *dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	handle, name := fs.Arg(0), fs.Arg(1)
	if err := store.Upsert(ctx, handle, name); err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s as %q\n", handle, name)
	return nil
}

func runRemove(ctx context.Context, args []string, out io.Writer) error {
	fs, dsn := newFlagSet("remove", out)
	if err := parse(fs, args, dsn, 1); err != nil {
		return err
	}
	store, err := directory.Open(ctx, *dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(ctx, fs.Arg(0)); err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %s\n", fs.Arg(0))
	return nil
}

func runFind(ctx context.Context, args []string, out io.Writer) error {
	fs, dsn := newFlagSet("find", out)
	if err := parse(fs, args, dsn, 1); err != nil {
		return err
	}
	store, err := directory.Open(ctx, *dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	subs, err := store.FindByDisplayName(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintf(out, "no subscribers named %q\n", fs.Arg(0))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tNAME\tREGISTERED")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Handle, s.DisplayName, s.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func runWatch(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(out)
	url := fs.String("nats-url", envOr("BATTLEWATCH_NATS_URL", messaging.DefaultNATSConfig().URL), "NATS server URL")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg := messaging.DefaultNATSConfig()
	cfg.URL = *url
	cfg.Name = "battlewatch-subscribers"
	nc, err := messaging.NewNATSClient(cfg, nil)
	if err != nil {
		return err
	}
	defer nc.Close()

	if err := nc.Subscribe(messaging.SubjectSubscriberRemoved, func(data []byte) {
		fmt.Fprintln(out, formatRemoval(data))
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "watching %s on %s\n", messaging.SubjectSubscriberRemoved, *url)

	<-ctx.Done()
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
