package main

import (
	"context"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/eyecare/internal/cli"
	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/config"
	"github.com/julianstephens/eyecare/internal/constants"
	apperrors "github.com/julianstephens/eyecare/internal/errors"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/storage"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"${config_path}"`
	Store   string `help:"Store location: sqlite path, json:<path>, or a PostgreSQL URL/DSN without a password. Overrides the config file." type:"string"`
	Socket  string `help:"Agent socket path. Overrides the config file." type:"string"`
	Verbose bool   `name:"debug" help:"Enable debug logging to stderr."`

	Init     cli.InitCmd     `cmd:"" help:"Initialize eyecare storage."`
	Serve    cli.ServeCmd    `cmd:"" help:"Run the agent in the foreground."`
	Bridge   cli.BridgeCmd   `cmd:"" hidden:"" help:"Run the agent as a browser native messaging host."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Focus    cli.FocusCmd    `cmd:"" help:"Start, end and inspect focus sessions."`
	Stats    cli.StatsCmd    `cmd:"" help:"Show time spent per domain, breaks and sessions."`
	Settings cli.SettingsCmd `cmd:"" help:"Manage application settings."`
	Block    cli.BlockCmd    `cmd:"" help:"Add a domain to the blocklist."`
	Allow    cli.AllowCmd    `cmd:"" help:"Add a domain to the allowlist."`
	Remove   cli.RemoveCmd   `cmd:"" help:"Remove a domain from a list."`
	Move     cli.MoveCmd     `cmd:"" help:"Move a domain to the other list."`
	Edit     cli.EditCmd     `cmd:"" help:"Replace a list entry."`
	Lists    cli.ListsCmd    `cmd:"" help:"Show, export and import the lists."`
	Notes    cli.NotesCmd    `cmd:"" help:"Manage per-domain notes."`
	Backup   cli.BackupCmd   `cmd:"" help:"Manage database backups."`
	Keyring  cli.KeyringCmd  `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Debug    cli.DebugCmd    `cmd:"" help:"Debug commands for troubleshooting."`
	Notify   cli.NotifyCmd   `cmd:"" help:"Send a test notification."`
}

// Commands that open the store themselves or do not use it.
var noPreload = map[string]bool{
	"init":    true,
	"serve":   true,
	"bridge":  true,
	"doctor":  true,
	"focus":   true,
	"keyring": true,
}

func main() {
	vars := kong.Vars{
		"version":     constants.Version,
		"config_path": config.DefaultPath(),
	}
	for k, v := range cli.NotifyVars() {
		vars[k] = v
	}

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Attention tracking, eye-rest reminders and focus sessions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		vars,
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.Store != "" {
		cfg.Store = CLI.Store
	}
	if CLI.Socket != "" {
		cfg.Socket = CLI.Socket
	}
	cfg.Debug = cfg.Debug || CLI.Verbose

	command := strings.Fields(ctx.Command())[0]
	configDir, err := config.ExpandPath(constants.DefaultConfigDir)
	if err != nil {
		apperrors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: configDir, Component: command}); err != nil {
		apperrors.Fatalf("failed to initialize logger: %v", err)
	}

	socket, err := cfg.SocketPath()
	if err != nil {
		apperrors.Fatal(err)
	}
	target := storage.Resolve(cfg.Store)
	store, err := storage.Open(target)
	if err != nil {
		apperrors.Fatal(err)
	}
	logger.Debug("Resolved store", "kind", target.Kind(), "source", target.Source)

	appCtx := &cli.Context{
		Store:  store,
		Target: target,
		Config: cfg,
		Socket: socket,
		Clock:  clock.SystemClock{},
	}

	if !noPreload[command] {
		if err := store.Load(context.Background()); err != nil {
			apperrors.Fatal(err)
		}
	}

	err = ctx.Run(appCtx)
	store.Close()
	if err != nil {
		apperrors.Fatal(err)
	}
}
