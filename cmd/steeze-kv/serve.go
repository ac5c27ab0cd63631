package main

import (
	"github.com/joeydtaylor/steeze-kv/pkg/serverfx"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := fx.New(serverfx.Module(serverfx.DefaultOptions()))
			if err := app.Err(); err != nil {
				return err
			}
			// Run blocks until SIGINT/SIGTERM and returns after OnStop hooks.
			app.Run()
			return nil
		},
	}
}
