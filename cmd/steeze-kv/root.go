package main

import (
	"os"

	"github.com/joeydtaylor/steeze-kv/pkg/core"
	"github.com/joeydtaylor/steeze-kv/pkg/manifest"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type rootFlags struct {
	manifest string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "steeze-kv",
		Short:         "Serve key-value records as YAML, JSON or HTML",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loadEnvFiles()
			if f.manifest != "" {
				return os.Setenv("KV_MANIFEST", f.manifest)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&f.manifest, "manifest", "", "manifest path (default $KV_MANIFEST or manifest.toml)")
	cmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "log worker activity to stderr")

	cmd.AddCommand(
		newServeCmd(),
		newLoadCmd(),
		newGetCmd(f),
		newVersionCmd(),
	)
	return cmd
}

// loadEnvFiles loads .env then .env.local; already-set variables win.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Load(name)
	}
}

func loadConfig() (manifest.Config, error) {
	return core.LoadConfig(core.ManifestPath())
}

// cliLogger writes to stderr so stdout stays clean for command output.
func cliLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
