package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/continuum/internal/config"
	"github.com/aretw0/continuum/internal/logging"
	"github.com/aretw0/continuum/internal/platform"
)

// cli carries the state shared by every command of one invocation.
type cli struct {
	verbose    bool
	jsonOut    bool
	configPath string
	docsPath   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "continuum",
		Short: "Governance core for canonical documents and AI operating modes",
		Long: `Continuum resolves canonical documents by key, derives each workspace's
AI operating mode (GUARDED, ADVISORY, OPERATIONAL) from readiness and the
governance document, and loads the model registry.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print results as JSON")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default ./"+config.DefaultFile+" if present)")
	root.PersistentFlags().StringVarP(&c.docsPath, "docs", "d", "", "Document directory (overrides config)")

	root.AddCommand(
		newResolveCmd(c),
		newModeCmd(c),
		newCheckCmd(c),
		newModelsCmd(c),
		newGovernCmd(c),
		newServeCmd(c),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	switch {
	case c.docsPath != "":
		cfg.Documents.Path = c.docsPath
		cfg.Documents.URL = ""
	case cfg.Documents.URL == "" && cfg.Documents.Path == ".":
		if wd, err := os.Getwd(); err == nil {
			if root, err := platform.FindRoot(wd); err == nil {
				cfg.Documents.Path = root
			}
		}
	}

	level := cfg.Log.Level
	if c.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	c.cfg = cfg
	c.logger = logger
	return nil
}

func (c *cli) engine(extra ...platform.Option) (*platform.Engine, error) {
	opts := append([]platform.Option{platform.WithLogger(c.logger)}, extra...)
	engine, err := platform.FromConfig(c.cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	return engine, nil
}
