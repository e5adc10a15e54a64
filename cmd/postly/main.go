package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"postly/internal/client"
	"postly/internal/config"
)

type app struct {
	api     *client.Client
	session *client.Session
	out     io.Writer
	in      io.Reader
	logger  *logrus.Logger
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"signup":     {"signup --email E --first F --last L --birthday YYYY-MM-DD", runSignup},
	"login":      {"login --email E [--password P]", runLogin},
	"logout":     {"logout", runLogout},
	"whoami":     {"whoami", runWhoami},
	"feed":       {"feed [--skip N] [--limit N]", runFeed},
	"user-posts": {"user-posts [--skip N] [--limit N] [USER_ID]", runUserPosts},
	"show":       {"show POST_ID", runShow},
	"post":       {"post TEXT", runPost},
	"edit":       {"edit POST_ID TEXT", runEdit},
	"delete":     {"delete POST_ID", runDelete},
	"upload":     {"upload POST_ID FILE", runUpload},
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	global := pflag.NewFlagSet("postly", pflag.ContinueOnError)
	global.SetInterspersed(false)
	config.ClientFlags(global)
	global.Usage = func() { usage(global) }
	if err := global.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if global.NArg() == 0 {
		usage(global)
		os.Exit(2)
	}

	defaultTokenFile, err := client.DefaultTokenPath()
	if err != nil {
		logger.Fatalf("resolve token path: %v", err)
	}
	cfg, err := config.LoadClient(global, defaultTokenFile)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	name, args := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage(global)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, logger, os.Stdin, os.Stdout)
	if err := a.session.Refresh(ctx); err != nil {
		logger.Debugf("stored session rejected: %v", err)
	}

	if err := cmd.run(ctx, a, args); err != nil {
		fmt.Fprintf(os.Stderr, "postly %s: %v\n", name, err)
		stop()
		os.Exit(1)
	}
}

func newApp(cfg config.ClientConfig, logger *logrus.Logger, in io.Reader, out io.Writer) *app {
	tokens := client.NewFileTokenStore(cfg.TokenFile)
	a := &app{in: in, out: out, logger: logger}
	a.api = client.New(client.Options{
		BaseURL: cfg.APIURL,
		Tokens:  tokens,
		Logger:  logger,
		OnUnauthorized: func() {
			if a.session != nil && a.session.Snapshot().State == client.StateAuthenticated {
				a.session.Logout()
			}
			fmt.Fprintln(os.Stderr, "Session expired or invalid. Run `postly login` to sign in again.")
		},
	})
	a.session = client.NewSession(a.api, tokens, logger)
	return a
}

func usage(global *pflag.FlagSet) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "usage: postly [flags] <command> [args]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nflags:")
	fmt.Fprint(os.Stderr, global.FlagUsages())
}
