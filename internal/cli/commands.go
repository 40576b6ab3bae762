package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/schema"
	"github.com/koustreak/dbscope/internal/server"
	"github.com/koustreak/dbscope/internal/snapshot"
	"github.com/spf13/cobra"
)

func newSchemasCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List the schemas visible to the connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			schemas, err := s.Introspector.ListSchemas(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range schemas {
				fmt.Fprintln(rt.out, name)
			}
			return nil
		},
	}
}

func newTablesCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables in the search path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			tables, err := s.Introspector.ListVisibleTables(cmd.Context(), s.SearchPath...)
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Fprintln(rt.out, t.String())
			}
			return nil
		},
	}
}

func newDescribeCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "describe TABLE",
		Short: "Show columns, field types, keys and relations of a table",
		Long: `Show columns, field types, keys and relations of a table.

TABLE may be qualified as schema.table; an unqualified name resolves to the
configured default schema.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			info, err := schema.InspectTable(cmd.Context(), s.Introspector, database.ParseQName(args[0]))
			if err != nil {
				return err
			}
			printTable(rt, info)
			return nil
		},
	}
}

func printTable(rt *runtime, info *schema.TableInfo) {
	heading.Fprintln(rt.out, info.Name.String())

	w := tabwriter.NewWriter(rt.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tTYPE\tFIELD\tNULL\tKEY")
	for _, c := range info.Columns {
		field := "?"
		if c.Field != nil {
			field = c.Field.String()
			if c.Field.MaxLength > 0 {
				field += fmt.Sprintf("(%d)", c.Field.MaxLength)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.TypeName, field, yesNo(c.Nullable), keyFlags(c))
	}
	w.Flush()

	if len(info.ForeignKeys) > 0 {
		fmt.Fprintln(rt.out)
		heading.Fprintln(rt.out, "Foreign keys")
		for _, fk := range info.ForeignKeys {
			fmt.Fprintf(rt.out, "  %s -> %s.%s\n", fk.Column, fk.Target, fk.TargetColumn)
		}
	}
	if len(info.UnmappedTypes) > 0 {
		fmt.Fprintln(rt.out)
		heading.Fprintln(rt.out, "Unmapped types")
		fmt.Fprintf(rt.out, "  %s\n", strings.Join(info.UnmappedTypes, ", "))
	}
}

func keyFlags(c schema.ColumnInfo) string {
	switch {
	case c.PrimaryKey:
		return "PK"
	case c.Unique:
		return "UNIQUE"
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newRelationsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "relations TABLE",
		Short: "Resolve foreign-key columns to referenced column ordinals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rel, err := schema.ResolveRelations(cmd.Context(), s.Introspector, database.ParseQName(args[0]))
			if err != nil {
				return err
			}
			ordinals := make([]int, 0, len(rel))
			for n := range rel {
				ordinals = append(ordinals, n)
			}
			sort.Ints(ordinals)

			w := tabwriter.NewWriter(rt.out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ORDINAL\tTARGET\tTARGET ORDINAL")
			for _, n := range ordinals {
				fmt.Fprintf(w, "%d\t%s\t%d\n", n, rel[n].Target, rel[n].TargetOrdinal)
			}
			return w.Flush()
		},
	}
}

func newIndexesCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes TABLE",
		Short: "List single-column primary-key and unique indexes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.session(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			idx, err := s.Introspector.ListIndexes(cmd.Context(), database.ParseQName(args[0]))
			if err != nil {
				return err
			}
			columns := make([]string, 0, len(idx))
			for c := range idx {
				columns = append(columns, c)
			}
			sort.Strings(columns)

			w := tabwriter.NewWriter(rt.out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tPRIMARY KEY\tUNIQUE")
			for _, c := range columns {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c, yesNo(idx[c].PrimaryKey), yesNo(idx[c].Unique))
			}
			return w.Flush()
		},
	}
}

func newSnapshotCommand(rt *runtime) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture every visible table as YAML",
		Long: `Capture every visible table as YAML.

With --out the snapshot is written to a local file ("-" for stdout);
otherwise it is uploaded to the configured snapshot store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rt.session(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if out == "" {
				e, err := s.Exporter(ctx)
				if err != nil {
					return err
				}
				info, err := e.Capture(ctx, s.Introspector, s.SearchPath...)
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.out, "%s (%s bytes)\n", info.Key, s.Formats.NumberFormat(info.Size, 0))
				return nil
			}

			snap, err := schema.InspectSchema(ctx, s.Introspector, s.SearchPath...)
			if err != nil {
				return err
			}
			if out == "-" {
				return snapshot.Encode(rt.out, snap)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := snapshot.Encode(f, snap); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `write to a file instead of the store ("-" for stdout)`)

	cmd.AddCommand(newSnapshotListCommand(rt), newSnapshotURLCommand(rt))
	return cmd
}

func newSnapshotListCommand(rt *runtime) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rt.session(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.Exporter(ctx)
			if err != nil {
				return err
			}
			objs, err := e.List(ctx, backend)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(rt.out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
			for _, o := range objs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", o.Key,
					s.Formats.NumberFormat(o.Size, 0), s.Formats.Localize(o.LastModified))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "only snapshots of this backend")
	return cmd
}

func newSnapshotURLCommand(rt *runtime) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "url KEY",
		Short: "Print a time-limited download URL for a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rt.session(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.Exporter(ctx)
			if err != nil {
				return err
			}
			u, err := e.URL(ctx, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, u)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "how long the URL stays valid")
	return cmd
}

func newServeCommand(rt *runtime) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := rt.session(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := []server.Option{
				server.WithLogger(rt.log),
				server.WithSearchPath(s.SearchPath),
				server.WithTimeout(rt.cfg.Database.QueryTimeout),
			}
			if e, err := s.Exporter(ctx); err != nil {
				rt.log.WarnErr("snapshot endpoints disabled", err)
			} else {
				opts = append(opts, server.WithExporter(e))
			}

			if addr == "" {
				addr = rt.cfg.Server.Addr
			}
			return server.New(s.DB, s.Introspector, opts...).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}
