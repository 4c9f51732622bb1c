package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terraincognita07/lua/internal/api"
	"github.com/terraincognita07/lua/internal/backup"
	"github.com/terraincognita07/lua/internal/cli"
	"github.com/terraincognita07/lua/internal/config"
	"github.com/terraincognita07/lua/internal/db"
	"github.com/terraincognita07/lua/internal/i18n"
	"github.com/terraincognita07/lua/internal/logging"
	"github.com/terraincognita07/lua/internal/services"
	"go.uber.org/zap"
)

const (
	commandServe  = "serve"
	commandStatus = "status"
	commandImport = "import"
	commandExport = "export"

	startupSyncTimeout = 30 * time.Second
)

type command struct {
	name string
	path string
}

func main() {
	cmd, err := parseCommand(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(cmd, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

const usage = "usage: lua [serve | status | import FILE | export [FILE]]"

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: commandServe}, nil
	}

	switch args[0] {
	case commandServe, commandStatus:
		if len(args) > 1 {
			return command{}, fmt.Errorf("%s takes no arguments", args[0])
		}
		return command{name: args[0]}, nil
	case commandImport:
		if len(args) != 2 {
			return command{}, errors.New("import requires exactly one FILE")
		}
		return command{name: commandImport, path: args[1]}, nil
	case commandExport:
		if len(args) > 2 {
			return command{}, errors.New("export takes at most one FILE")
		}
		cmd := command{name: commandExport}
		if len(args) == 2 {
			cmd.path = args[1]
		}
		return cmd, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", args[0])
	}
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	periods  *services.PeriodService
	i18n     *i18n.Manager
	closeDB  func() error
	location *time.Location
}

func run(cmd command, out io.Writer) error {
	cfg, err := config.Load(os.Getenv("LUA_CONFIG_DIR"))
	if err != nil {
		return err
	}
	deps, err := wire(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.closeDB(); err != nil {
			deps.logger.Warn("close database", zap.Error(err))
		}
		_ = deps.logger.Sync()
	}()

	lang := deps.i18n.DefaultLanguage()
	switch cmd.name {
	case commandStatus:
		return cli.RunStatusCommand(out, deps.periods, deps.i18n, lang)
	case commandImport:
		return cli.RunImportCommand(out, deps.periods, deps.i18n, lang, cmd.path)
	case commandExport:
		return cli.RunExportCommand(out, deps.periods, cmd.path)
	default:
		return serve(deps)
	}
}

func wire(cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	database, err := db.OpenSQLite(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	manager, err := i18n.NewManager(cfg.Server.DefaultLanguage)
	if err != nil {
		_ = db.CloseSQLite(database)
		return nil, fmt.Errorf("i18n init failed: %w", err)
	}

	repositories := db.NewRepositories(database)
	periods := services.NewPeriodService(repositories.Periods, repositories.Meta, services.PeriodServiceConfig{
		PredictionWindow: cfg.Engine.PredictionWindow,
		ForecastCycles:   cfg.Engine.ForecastCycles,
		Location:         location,
		Logger:           logger.Named("periods"),
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		periods:  periods,
		i18n:     manager,
		closeDB:  func() error { return db.CloseSQLite(database) },
		location: location,
	}, nil
}

func serve(deps *app) error {
	session, err := newBackupSession(deps.cfg, deps.periods, deps.logger.Named("backup"))
	if err != nil {
		return fmt.Errorf("backup init failed: %w", err)
	}
	if session != nil {
		defer session.Close()
		deps.periods.OnMutation(session.ScheduleUpload)
		go startupSync(session, deps.logger)
	}

	handler, err := api.NewHandler(api.HandlerConfig{
		Periods:   deps.periods,
		Sync:      session,
		I18n:      deps.i18n,
		SecretKey: deps.cfg.Server.SecretKey,
		PublicURL: deps.cfg.Server.PublicURL,
		Logger:    deps.logger.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}
	server := api.NewApp(handler)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			deps.logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	deps.logger.Info("lua listening",
		zap.String("port", deps.cfg.Server.Port),
		zap.String("db", deps.cfg.Database.Path),
		zap.String("tz", deps.location.String()),
		zap.String("backup", deps.cfg.Backup.Provider),
	)
	if err := server.Listen(":" + deps.cfg.Server.Port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

// startupSync pulls a newer remote backup, then runs the weekly heartbeat.
func startupSync(session *backup.Session, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), startupSyncTimeout)
	defer cancel()

	if err := session.DownloadOnStart(ctx); err != nil {
		logger.Warn("startup download failed", zap.Error(err))
		return
	}
	if err := session.WeeklyBackupIfNeeded(ctx); err != nil {
		logger.Warn("weekly backup failed", zap.Error(err))
	}
}

func newBackupSession(cfg *config.Config, store backup.Store, logger *zap.Logger) (*backup.Session, error) {
	sessionConfig := backup.SessionConfig{
		Debounce: cfg.Backup.Debounce,
		Sealer:   backup.NewSealer(cfg.Backup.Passphrase),
		Logger:   logger,
	}

	switch cfg.Backup.Provider {
	case config.BackupDrive:
		credentials := backup.NewKeyringCredentialStore(cfg.Backup.KeyringUser)
		tokens := backup.NewOAuthTokenSource(cfg.Backup.Google.ClientID, cfg.Backup.Google.ClientSecret, credentials)
		return backup.NewSession(backup.NewDriveRemote(), tokens, store, sessionConfig), nil
	case config.BackupAzure:
		remote, err := backup.NewAzureRemote(backup.AzureConfig{
			ConnectionString: cfg.Backup.Azure.ConnectionString,
			AccountName:      cfg.Backup.Azure.AccountName,
			AccountKey:       cfg.Backup.Azure.AccountKey,
			ContainerName:    cfg.Backup.Azure.Container,
		}, logger)
		if err != nil {
			return nil, err
		}
		return backup.NewSession(remote, nil, store, sessionConfig), nil
	default:
		return nil, nil
	}
}
