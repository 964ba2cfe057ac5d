// Command sqldialect renders statements for a SQL dialect and runs them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqldialect/config"
	"github.com/syssam/sqldialect/dialect"
	"github.com/syssam/sqldialect/dialect/sql"
)

// Context is shared by all commands.
type Context struct {
	context.Context
	Config  string
	Dialect string
	Out     io.Writer
	Logger  *slog.Logger
}

// load reads the configuration with the command line overrides.
func (c *Context) load() (*config.Config, error) {
	var opts []config.Option
	if c.Dialect != "" {
		opts = append(opts, config.WithDialect(c.Dialect))
	}
	cfg, err := config.Load(c.Config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// RenderCmd prints the statements of a configuration.
type RenderCmd struct {
	Watch bool `help:"Render again whenever the configuration file changes" short:"w"`
}

// Run executes the render command.
func (cmd *RenderCmd) Run(app *Context) error {
	if err := cmd.render(app); err != nil {
		if !cmd.Watch {
			return err
		}
		app.Logger.Error("render failed", "error", err)
	}
	if !cmd.Watch {
		return nil
	}
	return cmd.watch(app)
}

func (cmd *RenderCmd) render(app *Context) error {
	cfg, err := app.load()
	if err != nil {
		return err
	}
	s, err := cfg.Selector()
	if err != nil {
		return err
	}
	query, args := s.Query()
	if err := s.Err(); err != nil {
		return err
	}
	printStatement(app.Out, "select", query, args)
	insert, err := cfg.Insert()
	if err != nil || insert == nil {
		return err
	}
	query, args = insert.Query()
	if err := insert.Err(); err != nil {
		return err
	}
	printStatement(app.Out, "insert", query, args)
	return nil
}

// watch re-renders on changes of the configuration file until interrupted.
func (cmd *RenderCmd) watch(app *Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	// Editors often replace the file on save, so the directory is watched.
	path := filepath.Clean(app.Config)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	app.Logger.Info("watching configuration", "path", path)
	for {
		select {
		case <-app.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			app.Logger.Debug("configuration changed", "op", ev.Op.String())
			if err := cmd.render(app); err != nil {
				app.Logger.Error("render failed", "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			app.Logger.Warn("watch error", "error", err)
		}
	}
}

func printStatement(w io.Writer, kind, query string, args []any) {
	fmt.Fprintf(w, "-- %s\n%s\n", kind, query)
	for i, arg := range args {
		if named, ok := arg.(sql.NamedArg); ok {
			fmt.Fprintf(w, "--   @%s = %#v\n", named.Name, named.Value)
			continue
		}
		fmt.Fprintf(w, "--   %d = %#v\n", i+1, arg)
	}
}

// DialectsCmd lists the known dialects and their capabilities.
type DialectsCmd struct{}

// Run executes the dialects command.
func (cmd *DialectsCmd) Run(app *Context) error {
	tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMARKERS\tLIMIT\tPOSITION\tARRAYS\tNATIVE TYPES")
	for _, d := range dialect.Dialects() {
		m := d.BindMarkersFactory().Create()
		markers := []string{m.NextHint("user_name").Placeholder(), m.NextHint("id").Placeholder()}
		native := make([]string, 0)
		for _, t := range d.SimpleTypes() {
			native = append(native, t.String())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			d.Name(),
			strings.Join(markers, ", "),
			d.Limit().ClauseOffset(10, 20),
			d.Limit().Position(),
			d.ArraySupport().Supported(),
			strings.Join(native, ", "),
		)
	}
	return tw.Flush()
}

// ExecCmd runs the configured SELECT statement against the configured DSN.
type ExecCmd struct {
	DSN string `help:"Data source name, overrides the configuration"`
}

// Run executes the exec command.
func (cmd *ExecCmd) Run(app *Context) error {
	cfg, err := app.load()
	if err != nil {
		return err
	}
	dsn := cfg.DSN
	if cmd.DSN != "" {
		dsn = cmd.DSN
	}
	if dsn == "" {
		return config.NewError("dsn", nil, "required to execute statements")
	}
	driverName, err := cfg.DriverName()
	if err != nil {
		return err
	}
	opts := []sql.StatsOption{sql.WithStatsLogger(app.Logger)}
	if cfg.SlowThreshold > 0 {
		opts = append(opts, sql.WithSlowThreshold(cfg.SlowThreshold))
	}
	drv, stats, err := sql.OpenWithStats(driverName, dsn, opts...)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer drv.Close()

	s, err := cfg.Selector()
	if err != nil {
		return err
	}
	query, args := s.Query()
	if err := s.Err(); err != nil {
		return err
	}
	var rows sql.Rows
	if err := drv.Query(app, query, args, &rows); err != nil {
		return err
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return err
	}
	records, err := sql.ScanMaps(rows)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, r := range records {
		values := make([]string, len(columns))
		for i, c := range columns {
			values[i] = formatValue(r[c])
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	app.Logger.Debug("query stats", "stats", stats.Snapshot().String())
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// loadEnvFile loads the environment file if it exists. Variables already set
// in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// CLI represents the command-line interface
var CLI struct {
	Config   string      `help:"Configuration file path" default:"sqldialect.yaml" short:"c"`
	EnvFile  string      `help:"Environment file loaded before the configuration" default:".env" name:"env-file"`
	Dialect  string      `help:"Dialect or driver name, overrides the configuration" short:"d"`
	LogLevel string      `help:"Log level" enum:"debug,info,warn,error" default:"info"`
	Render   RenderCmd   `cmd:"" help:"Render the configured statements"`
	Dialects DialectsCmd `cmd:"" help:"List the supported dialects"`
	Exec     ExecCmd     `cmd:"" help:"Execute the configured SELECT statement"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("sqldialect"),
		kong.Description("Render and run SQL statements for a database dialect."),
	)

	var level slog.Level
	if err := level.UnmarshalText([]byte(CLI.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := loadEnvFile(CLI.EnvFile); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &Context{
		Context: ctx,
		Config:  CLI.Config,
		Dialect: CLI.Dialect,
		Out:     os.Stdout,
		Logger:  logger,
	}
	if err := kctx.Run(app); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
