// Command claimctl runs administrative tasks against the claims database:
// seeding the people directory, creating accounts, batch migrations and
// housekeeping.
//
//	claimctl [--env .env] directory import --file people.yaml
//	claimctl [--env .env] user create --email a@b.c --password secret --role hr
//	claimctl [--env .env] migrate approvers|backfill [--dry-run]
//	claimctl [--env .env] tokens sweep
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/config"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/notify"
	"github.com/tbourn/go-claims-backend/internal/repo"
	"github.com/tbourn/go-claims-backend/internal/services"
	"github.com/tbourn/go-claims-backend/internal/sysutil"
	"github.com/tbourn/go-claims-backend/internal/tokens"
)

// cliActor is recorded in the audit log for CLI-driven migrations.
const cliActor = "claimctl"

var errUsage = errors.New("usage: claimctl [--env FILE] <directory import|user create|migrate approvers|migrate backfill|tokens sweep> [flags]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "claimctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := pflag.NewFlagSet("claimctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	envFile := global.String("env", ".env", "dotenv file to load before reading the environment")
	if err := global.Parse(args); err != nil {
		return err
	}
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, true, nil)

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return newApp(db, cfg, logger).dispatch(ctx, global.Args(), out)
}

// app holds the services commands operate on.
type app struct {
	dir        *services.DirectoryService
	auth       *services.AuthService
	migrations *services.MigrationService
}

func newApp(db *gorm.DB, cfg config.Config, logger zerolog.Logger) *app {
	dir := services.NewDirectoryService(db)
	signer := tokens.NewSigner(cfg.Tokens.Secret, cfg.Tokens.OneClickTTL, cfg.Tokens.SessionTTL)
	auth := services.NewAuthService(db, signer, notify.LogMailer{Log: logger}, dir, cfg.Tokens.OTPTTL)
	return &app{
		dir:        dir,
		auth:       auth,
		migrations: services.NewMigrationService(db, dir, cfg.Chain, auth),
	}
}

func (a *app) dispatch(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}
	cmd, rest := args[0]+" "+args[1], args[2:]
	switch cmd {
	case "directory import":
		return a.importDirectory(ctx, rest, out)
	case "user create":
		return a.createUser(ctx, rest, out)
	case "migrate approvers":
		return a.migrate(ctx, rest, out, a.migrations.MigrateApproversToEmail)
	case "migrate backfill":
		return a.migrate(ctx, rest, out, a.migrations.BackfillFixedChain)
	case "tokens sweep":
		return a.sweep(ctx, out)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// directoryFile is the YAML seed format.
type directoryFile struct {
	People []struct {
		Email      string `yaml:"email"`
		Name       string `yaml:"name"`
		Department string `yaml:"department"`
		Title      string `yaml:"title"`
	} `yaml:"people"`
}

func (a *app) importDirectory(ctx context.Context, args []string, out io.Writer) error {
	fl := pflag.NewFlagSet("directory import", pflag.ContinueOnError)
	path := fl.String("file", "", "YAML file with a people list")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("--file is required")
	}
	raw, err := os.ReadFile(*path)
	if err != nil {
		return err
	}
	var f directoryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse %s: %w", *path, err)
	}
	entries := make([]domain.DirectoryEntry, 0, len(f.People))
	for _, p := range f.People {
		entries = append(entries, domain.DirectoryEntry{
			Email:      p.Email,
			Name:       p.Name,
			Department: p.Department,
			Title:      p.Title,
		})
	}
	n, err := a.dir.Upsert(ctx, entries)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d of %d directory entries\n", n, len(entries))
	return nil
}

func (a *app) createUser(ctx context.Context, args []string, out io.Writer) error {
	fl := pflag.NewFlagSet("user create", pflag.ContinueOnError)
	email := fl.String("email", "", "account email")
	password := fl.String("password", "", "initial password")
	role := fl.String("role", domain.RoleUser, "user|approver|hr|master")
	if err := fl.Parse(args); err != nil {
		return err
	}
	u, err := a.auth.CreateUser(ctx, *email, *password, strings.ToLower(strings.TrimSpace(*role)))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s (%s)\n", u.Email, u.Role)
	return nil
}

type migrateFunc func(ctx context.Context, actor string, dryRun bool) (services.MigrationReport, error)

func (a *app) migrate(ctx context.Context, args []string, out io.Writer, fn migrateFunc) error {
	fl := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	dry := fl.Bool("dry-run", false, "report without writing")
	if err := fl.Parse(args); err != nil {
		return err
	}
	rep, err := fn(ctx, cliActor, *dry)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "inspected=%d changed=%d dry_run=%t\n", rep.Inspected, rep.Changed, rep.DryRun)
	return nil
}

func (a *app) sweep(ctx context.Context, out io.Writer) error {
	rep, err := a.migrations.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "used_tokens=%d idempotency=%d pending_signups=%d\n", rep.UsedTokens, rep.Idempotency, rep.PendingSignups)
	return nil
}
