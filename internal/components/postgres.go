// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
)

// DumpFileName is the logical dump written by the database component.
const DumpFileName = "database.sql"

// CommandRunner runs an external program. stdin may be nil.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run captures stderr into the returned error.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: binary paths come from configuration
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return faults.FromContext(name, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[:512]
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && msg != "" {
			return fmt.Errorf("%s exited with code %d: %s", filepath.Base(name), exitErr.ExitCode(), msg)
		}
		return fmt.Errorf("%s: %w", filepath.Base(name), err)
	}
	return nil
}

// PostgresConfig configures the database component.
type PostgresConfig struct {
	DSN        string
	PgDumpPath string
	PsqlPath   string
}

// Postgres dumps a PostgreSQL database with pg_dump and restores it with psql.
type Postgres struct {
	cfg    PostgresConfig
	runner CommandRunner
}

// NewPostgres returns the database component. A nil runner uses ExecRunner.
func NewPostgres(cfg PostgresConfig, runner CommandRunner) *Postgres {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.PgDumpPath == "" {
		cfg.PgDumpPath = "pg_dump"
	}
	if cfg.PsqlPath == "" {
		cfg.PsqlPath = "psql"
	}
	return &Postgres{cfg: cfg, runner: runner}
}

func (p *Postgres) Name() string { return models.ComponentDatabase }

// Dump writes a plain SQL dump to dir/database.sql.
func (p *Postgres) Dump(ctx context.Context, dir string) error {
	path := filepath.Join(dir, DumpFileName)
	out, err := os.Create(path) //nolint:gosec // G304: dir is the staging directory
	if err != nil {
		return fmt.Errorf("create dump file: %w", err)
	}

	args := []string{
		"--dbname=" + p.cfg.DSN,
		"--format=plain",
		"--clean",
		"--if-exists",
		"--no-owner",
		"--no-privileges",
	}
	runErr := p.runner.Run(ctx, p.cfg.PgDumpPath, args, nil, out)
	closeErr := out.Close()
	if runErr != nil {
		return fmt.Errorf("pg_dump: %w", runErr)
	}
	return closeErr
}

// Restore replays dir/database.sql through psql in a single transaction.
func (p *Postgres) Restore(ctx context.Context, dir string) error {
	in, err := os.Open(filepath.Join(dir, DumpFileName)) //nolint:gosec // G304: dir is a scratch directory
	if err != nil {
		return fmt.Errorf("open dump file: %w", err)
	}
	defer in.Close() //nolint:errcheck // Best effort cleanup

	args := []string{
		"--dbname=" + p.cfg.DSN,
		"--single-transaction",
		"--set", "ON_ERROR_STOP=1",
		"--quiet",
		"--no-psqlrc",
	}
	if err := p.runner.Run(ctx, p.cfg.PsqlPath, args, in, io.Discard); err != nil {
		return fmt.Errorf("psql: %w", err)
	}
	return nil
}

// Version asks the server for server_version.
func (p *Postgres) Version(ctx context.Context) (string, error) {
	conn, err := pgx.Connect(ctx, p.cfg.DSN)
	if err != nil {
		return "", faults.Transport("postgres connect", err)
	}
	defer conn.Close(ctx) //nolint:errcheck // Best effort cleanup

	var version string
	if err := conn.QueryRow(ctx, "SHOW server_version").Scan(&version); err != nil {
		return "", fmt.Errorf("query server_version: %w", err)
	}
	return version, nil
}

// PostgresProber checks that the relational store accepts connections.
type PostgresProber struct {
	DSN string
}

func (PostgresProber) Name() string { return "database_connectivity" }

func (p PostgresProber) Probe(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, p.DSN)
	if err != nil {
		return faults.Transport("postgres connect", err)
	}
	defer conn.Close(ctx) //nolint:errcheck // Best effort cleanup

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres probe query: %w", err)
	}
	return nil
}
