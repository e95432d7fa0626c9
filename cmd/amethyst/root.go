package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "AMETHYST"

// newRootCmd builds the command tree. Every flag can also be set as AMETHYST_<FLAG>,
// with dashes written as underscores.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "amethyst",
		Short: "Resolve image build configurations and pull their base images",
		Long: `amethyst reads an amethyst.yaml build configuration, expands every module
into a flat list of scriptlets and optionally pulls the base images from Docker Hub
into a local content store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	mustBindFlags(v, rootCmd.PersistentFlags())

	rootCmd.AddCommand(newBuildCmd(v))
	return rootCmd
}

// mustBindFlags binds flags to v. A failure is a programming error in the command setup.
func mustBindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	if err := v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("bind flags: %v", err))
	}
}

// newLogger writes to w, which is stderr outside of tests; stdout carries the result.
func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}
