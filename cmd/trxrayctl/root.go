package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/robotomize/go-testrail-xray/internal/config"
	"github.com/robotomize/go-testrail-xray/internal/ctxlog"
	"github.com/robotomize/go-testrail-xray/internal/fs"
	"github.com/robotomize/go-testrail-xray/internal/source"
)

var (
	configFlag    string
	envFileFlag   string
	logLevelFlag  string
	logFormatFlag string
	dumpDirFlag   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFlag,
		"config",
		"c",
		"",
		"path to the config file: -c ~/.testrail_exporter/config.yaml",
	)
	rootCmd.PersistentFlags().StringVarP(
		&envFileFlag,
		"env-file",
		"",
		"",
		"path to a .env file, ./.env by default",
	)
	rootCmd.PersistentFlags().StringVarP(
		&logLevelFlag,
		"log-level",
		"",
		"info",
		"log level: debug, info, warn, error",
	)
	rootCmd.PersistentFlags().StringVarP(
		&logFormatFlag,
		"log-format",
		"",
		ctxlog.FormatText,
		"log format: text, json",
	)
	rootCmd.PersistentFlags().StringVarP(
		&dumpDirFlag,
		"dump-dir",
		"",
		"",
		"read TestRail data from a JSON dump instead of the API: --dump-dir ./export",
	)
}

var rootCmd = &cobra.Command{
	Use:          "trxrayctl",
	Long:         "Export TestRail test cases to XML and Xray CSV",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SetContext(withLogger(cmd.Context(), os.Stderr))
	},
}

func withLogger(ctx context.Context, outW ...io.Writer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return ctxlog.WithLogger(ctx, ctxlog.New(logLevelFlag, logFormatFlag, outW...))
}

func loadConfig() (*config.Config, error) {
	pth := configFlag
	if pth == "" {
		defaultPth, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		pth = defaultPth
	}

	var envFiles []string
	if envFileFlag != "" {
		envFiles = append(envFiles, envFileFlag)
	}

	cfg, err := config.Load(pth, envFiles...)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// openSource returns the dump reader when --dump-dir is set and the REST client otherwise.
func openSource(ctx context.Context, cfg *config.Config) (source.Source, error) {
	if dumpDirFlag != "" {
		reader, err := source.OpenDump(ctx, fs.New(dumpDirFlag))
		if err != nil {
			return nil, fmt.Errorf("source.OpenDump: %w", err)
		}

		return reader, nil
	}

	return newClient(cfg)
}

func newClient(cfg *config.Config) (*source.Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, fmt.Errorf(
			"%w: set them in %s or via %s, %s and %s",
			err, config.FileName, config.EnvURL, config.EnvUser, config.EnvKey,
		)
	}

	return source.NewClient(cfg.TestRail.URL, cfg.TestRail.Username, cfg.TestRail.APIKey), nil
}
