package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joeydtaylor/steeze-kv/pkg/codec"
	"github.com/joeydtaylor/steeze-kv/pkg/store"
	"github.com/spf13/cobra"
)

type loadFlags struct {
	db     string
	table  string
	values string
	format string
}

func newLoadCmd() *cobra.Command {
	f := &loadFlags{}
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Import a JSON or YAML map of records into a sqlite store",
		Long: `load reads a file whose top level is a map from key to record and writes
every record, encoded with the configured value codec, into the store table.
Existing keys are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db := first(f.db, cfg.Store.Path)
			table := first(f.table, cfg.Store.Table)
			values, err := codec.ByName(first(f.values, cfg.Store.ValueCodec))
			if err != nil {
				return err
			}

			records, err := readRecords(args[0], f.format)
			if err != nil {
				return err
			}

			l, err := store.CreateSQLite(cmd.Context(), db, store.WithTable(table))
			if err != nil {
				return err
			}
			for _, k := range slices.Sorted(maps.Keys(records)) {
				b, err := values.Marshal(records[k])
				if err == nil {
					err = l.Put(cmd.Context(), k, b)
				}
				if err != nil {
					_ = l.Abort()
					return fmt.Errorf("record %q: %w", k, err)
				}
			}
			n := l.Written()
			if err := l.Commit(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d records into %s (table %s, %s values)\n",
				n, db, table, values.ContentType())
			return nil
		},
	}
	cmd.Flags().StringVar(&f.db, "db", "", "sqlite file (default store.path)")
	cmd.Flags().StringVar(&f.table, "table", "", "table name (default store.table)")
	cmd.Flags().StringVar(&f.values, "codec", "", "value codec: json, cbor or yaml (default store.value_codec)")
	cmd.Flags().StringVar(&f.format, "format", "", "input format: json or yaml (default by extension)")
	return cmd
}

// readRecords decodes a key -> record map from path.
func readRecords(path, format string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	c, err := codec.ByName(format)
	if err != nil {
		return nil, err
	}
	var records map[string]any
	if err := c.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func first(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
