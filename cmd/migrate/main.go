package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands:
  up                 apply all pending migrations
  down               roll back the latest migration
  status             print applied and pending migrations
  version <version>  migrate up or down to YYYYMMDDHHMMSS
  create <name>      write a new timestamped SQL migration
  validate           check filenames and goose annotations
`

var errUsage = errors.New("invalid usage")

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	dir := flags.String("dir", "", "migrations directory (defaults to the embedded set; create writes to "+migrate.DefaultDir+")")
	flags.Usage = func() { fmt.Fprint(flags.Output(), usage) }
	_ = flags.Parse(os.Args[1:])

	err := run(context.Background(), logg, *dir, flags.Args())
	if errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		os.Exit(2)
	}
	if err != nil {
		logg.Error(context.Background(), "migrate failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, dir string, args []string) (err error) {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	command, arg := args[0], ""
	if len(args) > 1 {
		arg = args[1]
	}

	var source fs.FS
	if dir != "" {
		source = os.DirFS(dir)
	}

	// offline commands need neither config nor a database
	switch command {
	case "create":
		if arg == "" {
			return fmt.Errorf("%w: create needs a name", errUsage)
		}
		target := dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, arg)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if source == nil {
			source = migrate.Embedded()
		}
		versions, err := migrate.Validate(source)
		if err != nil {
			return err
		}
		fmt.Printf("migration validation passed (%d migrations)\n", len(versions))
		return nil
	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	if command == "version" && arg == "" {
		return fmt.Errorf("%w: version needs a target", errUsage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": command})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	if err != nil {
		return err
	}

	if command == "version" {
		return runner.MigrateTo(ctx, arg)
	}
	if err := runner.Run(ctx, command); err != nil {
		return err
	}
	if v, err := runner.Version(); err == nil {
		logg.Info(logg.WithField(ctx, "version", v), "migrate finished")
	}
	return nil
}
