package main

import (
	"fmt"

	"github.com/joeydtaylor/steeze-kv/pkg/codec"
	"github.com/joeydtaylor/steeze-kv/pkg/dispatch"
	"github.com/joeydtaylor/steeze-kv/pkg/negotiate"
	"github.com/joeydtaylor/steeze-kv/pkg/pool"
	"github.com/joeydtaylor/steeze-kv/pkg/store"
	"github.com/spf13/cobra"
)

type getFlags struct {
	accept string
	db     string
	from   string
}

func newGetCmd(root *rootFlags) *cobra.Command {
	f := &getFlags{}
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Look up one key through the worker pool and print the negotiated body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := cliLogger(root.verbose)
			defer func() { _ = log.Sync() }()

			values, err := codec.ByName(cfg.Store.ValueCodec)
			if err != nil {
				return err
			}

			var h store.Handle
			if f.from != "" {
				h, err = memoryFrom(f.from, values)
			} else {
				h, err = store.OpenSQLite(cmd.Context(), first(f.db, cfg.Store.Path),
					store.WithTable(cfg.Store.Table),
					store.WithMaxConns(cfg.Pool.Workers),
				)
			}
			if err != nil {
				return err
			}
			defer h.Close()

			p := pool.New(h, pool.WithWorkers(cfg.Pool.Workers), pool.WithLogger(log))
			if err := p.Start(); err != nil {
				return err
			}
			defer p.Stop()

			n, err := negotiate.New(negotiateOptions(cfg.Render.TemplateGlob, cfg.Render.Template)...)
			if err != nil {
				return err
			}

			d := dispatch.New(p, dispatch.WithTimeout(cfg.Pool.DispatchTimeout()), dispatch.WithLogger(log))
			res := d.Lookup(cmd.Context(), args[0])
			switch res.Status {
			case pool.StatusNotFound:
				return fmt.Errorf("%q: %w", args[0], pool.ErrNotFound)
			case pool.StatusFailed:
				return res.Err
			}

			var v any
			if err := values.Unmarshal(res.Value, &v); err != nil {
				return fmt.Errorf("%w: %w", pool.ErrStoreFault, err)
			}
			out, err := n.Negotiate(f.accept, v)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if _, err := w.Write(out.Body); err != nil {
				return err
			}
			if len(out.Body) > 0 && out.Body[len(out.Body)-1] != '\n' {
				_, _ = fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.accept, "accept", "application/json", "preference (Accept header value)")
	cmd.Flags().StringVar(&f.db, "db", "", "sqlite file (default store.path)")
	cmd.Flags().StringVar(&f.from, "from", "", "serve from a JSON/YAML records file instead of sqlite")
	return cmd
}

func negotiateOptions(glob, name string) []negotiate.Option {
	var opts []negotiate.Option
	if glob != "" {
		opts = append(opts, negotiate.WithTemplateGlob(glob))
	}
	return append(opts, negotiate.WithTemplateName(name))
}

// memoryFrom builds an in-memory handle from a records file, encoding each
// record with values the same way load does.
func memoryFrom(path string, values codec.Codec) (*store.Memory, error) {
	records, err := readRecords(path, "")
	if err != nil {
		return nil, err
	}
	seed := make(map[string][]byte, len(records))
	for k, v := range records {
		b, err := values.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", k, err)
		}
		seed[k] = b
	}
	return store.NewMemory(seed), nil
}
