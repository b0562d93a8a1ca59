// Command shopdesk is a smoke CLI for the session core: sign in, inspect the
// restored session, check the subscription gate, and sign out again, all
// against a real backend. Dashboard hosts embed internal/bootstrap directly;
// this binary exists to exercise the same wiring from a shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/shopdesk/shopdesk-go/internal/apperrors"
	"github.com/shopdesk/shopdesk-go/internal/bootstrap"
	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	App    *bootstrap.App
}

func main() {
	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if err := printUsage(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(cfg.IsDev)

	app, err := bootstrap.BuildApp(bootstrap.AppDeps{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error("build session core", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal wiring failure to shell scripts
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Error("close session core", "error", cerr)
		}
	}()

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		App:    app,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in with a username and password and persist the session",
			run:         runLogin,
		},
		"status": {
			name:        "status",
			description: "Restore the persisted session and print who is signed in",
			run:         runStatus,
		},
		"check": {
			name:        "check",
			description: "Restore the session and report whether mutating actions are allowed",
			run:         runCheck,
		},
		"logout": {
			name:        "logout",
			description: "Invalidate the session on the backend and locally",
			run:         runLogout,
		},
	}
}

func runLogin(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("login requires -u and -p")
	}

	profile, err := ctx.App.Session.Login(ctx.Ctx, *username, *password)
	if err != nil {
		if apperrors.IsInvalidCredentials(err) {
			return fmt.Errorf("username or password rejected")
		}
		return err
	}

	return writef(os.Stdout, "signed in as %s (%s %s)\n", profile.Username, profile.FirstName, profile.LastName)
}

func runStatus(ctx *commandContext, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("status takes no arguments")
	}

	session := ctx.App.Session.Bootstrap(ctx.Ctx)
	if session.Status != domainauth.StatusAuthenticated {
		return writef(os.Stdout, "not signed in\n")
	}
	return writef(os.Stdout, "signed in as %s (%s)\n", session.User.Username, session.User.Email)
}

func runCheck(ctx *commandContext, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("check takes no arguments")
	}

	session := ctx.App.Session.Bootstrap(ctx.Ctx)
	if session.Status != domainauth.StatusAuthenticated {
		return fmt.Errorf("not signed in")
	}

	if err := ctx.App.Gate.Check(ctx.Ctx); err != nil {
		if apperrors.IsSubscriptionRequired(err) {
			return writef(os.Stdout, "denied: an active subscription is required\n")
		}
		return err
	}
	return writef(os.Stdout, "allowed\n")
}

func runLogout(ctx *commandContext, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("logout takes no arguments")
	}

	ctx.App.Session.Bootstrap(ctx.Ctx)
	ctx.App.Session.Logout(ctx.Ctx)
	return writef(os.Stdout, "signed out\n")
}

func printUsage() error {
	if err := writef(os.Stderr, "usage: shopdesk <command> [flags]\n\ncommands:\n"); err != nil {
		return err
	}

	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	for _, name := range names {
		if err := writef(tw, "  %s\t%s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
