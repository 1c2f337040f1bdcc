package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/executor"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/export"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/session"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/snapshot"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
	"github.com/takeuchi-shogo/go-example-rowstore/pkg/repl"
)

// ReplCmd runs the interactive shell
type ReplCmd struct {
	Path string `arg:"" optional:"" type:"path" help:"Table file (default: database from config)"`
}

func (c *ReplCmd) Run(a *app) error {
	path := c.Path
	if path == "" {
		path = a.cfg.Database
	}

	// SIGINT / SIGTERM でもテーブルを閉じてから終了する
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := storage.Open(path, storage.WithLogger(a.logger))
	if err != nil {
		return err
	}
	sess := session.NewSession(table, executor.NewExecutor(table), a.logger)
	return repl.NewRepl(os.Stdin, os.Stdout, sess, repl.WithBanner(a.cfg.Banner)).Run(ctx)
}

// withExistingTable はファイルを作成せずにテーブルを開き、fn の後で閉じる。
// Close の失敗も fn のエラーと合わせて返す。
func withExistingTable(path string, a *app, fn func(*storage.Table) error) (err error) {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	table, err := storage.Open(path, storage.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, table.Close())
	}()
	return fn(table)
}

// StatsCmd prints table statistics
type StatsCmd struct {
	Path string `arg:"" type:"existingfile" help:"Table file"`
}

func (c *StatsCmd) Run(a *app) error {
	return withExistingTable(c.Path, a, c.print)
}

func (c *StatsCmd) print(table *storage.Table) error {
	stats := table.Stats()
	pages := (stats.Rows + storage.RowsPerPage - 1) / storage.RowsPerPage
	fmt.Printf("path:       %s\n", table.Path())
	fmt.Printf("rows:       %d / %d\n", stats.Rows, storage.TableMaxRows)
	fmt.Printf("pages:      %d / %d\n", pages, storage.TableMaxPages)
	fmt.Printf("file size:  %s (%d bytes)\n", humanize.IBytes(uint64(stats.FileLength)), stats.FileLength)
	if rest := stats.FileLength % storage.RowSize; rest != 0 {
		fmt.Printf("warning:    %d trailing bytes do not form a row\n", rest)
	}
	return nil
}

// DumpCmd prints every row
type DumpCmd struct {
	Path string `arg:"" type:"existingfile" help:"Table file"`
}

func (c *DumpCmd) Run(a *app) error {
	return withExistingTable(c.Path, a, func(table *storage.Table) error {
		for row, err := range table.Scan() {
			if err != nil {
				return err
			}
			fmt.Println(row)
		}
		return nil
	})
}

// ChecksumCmd prints a file digest
type ChecksumCmd struct {
	Path string `arg:"" type:"existingfile" help:"Table file"`
}

func (c *ChecksumCmd) Run() error {
	sum, err := snapshot.ChecksumFile(c.Path)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", sum, c.Path)
	return nil
}

// BackupCmd writes a compressed backup
type BackupCmd struct {
	Path string `arg:"" type:"existingfile" help:"Table file"`
	Out  string `name:"out" short:"o" required:"" type:"path" help:"Archive to write (.xz)"`
}

func (c *BackupCmd) Run(a *app) error {
	m, err := snapshot.Backup(c.Path, c.Out)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	a.logger.Info("backup written", "archive", c.Out, "rows", m.Rows, "blake3", m.BLAKE3)
	fmt.Printf("Backed up %d rows (%s) to %s\n", m.Rows, humanize.IBytes(uint64(m.Size)), c.Out)
	fmt.Printf("Manifest: %s\n", snapshot.ManifestPath(c.Out))
	return nil
}

// RestoreCmd restores a backup
type RestoreCmd struct {
	Archive string `arg:"" type:"existingfile" help:"Archive written by backup"`
	Out     string `name:"out" short:"o" required:"" type:"path" help:"Table file to create"`
}

func (c *RestoreCmd) Run(a *app) error {
	m, err := snapshot.Restore(c.Archive, c.Out)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	a.logger.Info("backup restored", "archive", c.Archive, "rows", m.Rows, "blake3", m.BLAKE3)
	fmt.Printf("Restored %d rows to %s\n", m.Rows, c.Out)
	return nil
}

// ExportCmd copies rows into SQLite
type ExportCmd struct {
	Path   string `arg:"" type:"existingfile" help:"Table file"`
	SQLite string `name:"sqlite" required:"" type:"path" help:"SQLite database to write"`
	Table  string `name:"table" default:"users" help:"SQLite table name"`
}

func (c *ExportCmd) Run(a *app) error {
	return withExistingTable(c.Path, a, func(table *storage.Table) error {
		n, err := export.ToSQLite(context.Background(), table, c.SQLite, c.Table)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		a.logger.Info("rows exported", "sqlite", c.SQLite, "table", c.Table, "rows", n, "driver", export.DriverType())
		fmt.Printf("Exported %d rows to %s (table %s)\n", n, c.SQLite, c.Table)
		return nil
	})
}

// VersionCmd prints the version
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("godb version %s\n", version)
	return nil
}
