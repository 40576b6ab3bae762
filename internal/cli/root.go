// Package cli implements the dbscope command line.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/koustreak/dbscope/internal/app"
	"github.com/koustreak/dbscope/internal/config"
	"github.com/koustreak/dbscope/internal/logger"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var heading = color.New(color.FgCyan, color.Bold)

type rootFlags struct {
	configFile string
	envFiles   []string
	schemas    []string
	logLevel   string
}

// runtime is what every subcommand receives once configuration is loaded.
type runtime struct {
	cfg *config.Config
	log *logger.Logger
	out io.Writer
}

// session opens the configured database; the caller must Close it.
func (rt *runtime) session(ctx context.Context) (*app.Session, error) {
	return app.Open(ctx, rt.cfg, rt.log)
}

// NewRootCommand builds the command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	if out == nil {
		out = os.Stdout
	}
	flags := &rootFlags{}
	rt := &runtime{out: out}

	root := &cobra.Command{
		Use:   "dbscope",
		Short: "Inspect database catalogs across PostgreSQL, MySQL, Oracle and SQLite",
		Long: `dbscope reads a live database's catalog (schemas, tables, columns,
foreign keys and indexes) and maps column types onto a portable set of
field kinds.

Connection settings come from dbscope.yaml, DBSCOPE_* environment
variables and .env files.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configFile, flags.envFiles...)
			if err != nil {
				return err
			}
			if len(flags.schemas) > 0 {
				cfg.Database.SearchPath = flags.schemas
			}
			if flags.logLevel != "" {
				cfg.Log.Level = flags.logLevel
			}
			rt.cfg = cfg
			rt.log = logger.New(cfg.LoggerConfig())
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default ./dbscope.yaml)")
	pf.StringSliceVar(&flags.envFiles, "env-file", nil, "env files to load (default .env)")
	pf.StringSliceVarP(&flags.schemas, "schema", "s", nil, "schemas to search, in order")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newSchemasCommand(rt),
		newTablesCommand(rt),
		newDescribeCommand(rt),
		newRelationsCommand(rt),
		newIndexesCommand(rt),
		newSnapshotCommand(rt),
		newServeCommand(rt),
	)
	return root
}

// Execute runs the CLI against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout).ExecuteContext(ctx)
}
