package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"novac/internal/bootstrap"
	"novac/internal/config"
)

var Version = "dev"

// env is what every subcommand needs to reach the wired service.
type env struct {
	configPath string
	out        io.Writer
	loadConfig func(path string) (*config.Config, error)
	openApp    func(cfg *config.Config) (*bootstrap.App, func(), error)
}

func main() {
	root := newRootCmd(&env{out: os.Stdout, loadConfig: config.LoadFile, openApp: openApp})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "novacctl",
		Short:         "Operator tooling for the Novac payment service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "YAML config file (defaults to $"+config.EnvFileKey+")")

	rootCmd.AddCommand(migrateCmd(e))
	rootCmd.AddCommand(verifyCmd(e))
	rootCmd.AddCommand(sweepCmd(e))
	rootCmd.AddCommand(tokenCmd(e))
	rootCmd.SetOut(e.out)
	return rootCmd
}

func openApp(cfg *config.Config) (*bootstrap.App, func(), error) {
	logger, logFile, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, nil, err
	}
	return app, func() {
		_ = app.Close()
		if logFile != nil {
			_ = logFile.Close()
		}
	}, nil
}

func (e *env) app() (*bootstrap.App, func(), error) {
	cfg, err := e.loadConfig(e.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	app, closeFn, err := e.openApp(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open service: %w", err)
	}
	return app, closeFn, nil
}

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
