// Package vaultctl implements the operator command line: scoring a password
// the way the server scores vault entries, and applying database migrations.
package vaultctl

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/server/breach"
	"github.com/dmitrijs2005/tresorly/internal/server/config"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/repomanager"
)

var ErrUsage = errors.New("usage: vaultctl <check-password|migrate|help> [flags]")

// Analyzer is implemented by *breach.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, password string) breach.Report
}

type App struct {
	config   *config.Config
	in       *bufio.Reader
	out      io.Writer
	analyzer Analyzer
	manager  repomanager.RepositoryManager
	openDB   func(dsn string) (*sql.DB, error)
}

func NewApp(c *config.Config, in io.Reader, out io.Writer, analyzer Analyzer) *App {
	return &App{
		config:   c,
		in:       bufio.NewReader(in),
		out:      out,
		analyzer: analyzer,
		manager:  repomanager.NewPostgresRepositoryManager(),
		openDB: func(dsn string) (*sql.DB, error) {
			return sql.Open("pgx", dsn)
		},
	}
}

// Run executes the named command.
func (a *App) Run(ctx context.Context, cmd string) error {
	switch cmd {
	case "check-password":
		return a.checkPassword(ctx)
	case "migrate":
		return a.migrate(ctx)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, ErrUsage.Error())
		fmt.Fprintln(a.out, "  check-password  score a password and look it up in the breach corpus")
		fmt.Fprintln(a.out, "  migrate         apply database migrations (-d DSN)")
		return nil
	default:
		return ErrUsage
	}
}

func (a *App) checkPassword(ctx context.Context) error {
	pw, err := GetPassword(a.in, a.out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)

	if len(pw) == 0 {
		return errors.New("empty password")
	}

	r := a.analyzer.Analyze(ctx, string(pw))

	fmt.Fprintf(a.out, "strength: %s\n", r.Strength)
	fmt.Fprintf(a.out, "health:   %d/100\n", r.HealthScore)
	if r.Degraded {
		fmt.Fprintln(a.out, "breach:   unknown (lookup unavailable)")
	} else {
		fmt.Fprintf(a.out, "breach:   %s\n", r.Breach)
	}
	return nil
}

func (a *App) migrate(ctx context.Context) error {
	db, err := a.openDB(a.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	if err := a.manager.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	fmt.Fprintln(a.out, "migrations applied")
	return nil
}
