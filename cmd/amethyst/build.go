package main

import (
	"fmt"

	"github.com/maxdollinger/amethyst/internal/builder"
	"github.com/maxdollinger/amethyst/internal/db"
	"github.com/maxdollinger/amethyst/pkg/lock"
	"github.com/maxdollinger/amethyst/pkg/registry"
	"github.com/maxdollinger/amethyst/pkg/storage"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBuildCmd(v *viper.Viper) *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build <config-directory>",
		Short: "Resolve the configuration in a directory and print it as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, v, args[0])
		},
	}

	buildCmd.Flags().String("storage", storage.DefaultRoot, "root of the local image store")
	buildCmd.Flags().Bool("pull", false, "pull every non-scratch base image")
	buildCmd.Flags().Bool("verify-digests", false, "verify pulled blobs against their digests")
	buildCmd.Flags().String("journal", "", "sqlite database recording build jobs (disabled when empty)")
	buildCmd.Flags().String("token", "", `registry token, "Bearer <token>" or "JWT <token>"`)
	mustBindFlags(v, buildCmd.Flags())

	return buildCmd
}

func runBuild(cmd *cobra.Command, v *viper.Viper, configDir string) error {
	ctx := cmd.Context()

	logger, err := newLogger(v.GetString("log-level"), v.GetString("log-format"), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var token *registry.Token
	if raw := v.GetString("token"); raw != "" {
		parsed, err := registry.ParseToken(raw)
		if err != nil {
			return fmt.Errorf("invalid token: %w", err)
		}
		token = &parsed
	}

	var journal builder.Journal
	if path := v.GetString("journal"); path != "" {
		amethystDB, err := db.Open(ctx, path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer amethystDB.Close()
		journal = db.NewJournal(amethystDB)
	}

	// images are built one at a time, nothing pulls concurrently
	hub := registry.NewDockerHub(registry.DockerHubOptions{
		Layout:        storage.NewLayout(v.GetString("storage")),
		Logger:        logger,
		Locker:        lock.NewNoOpLocker(),
		VerifyDigests: v.GetBool("verify-digests"),
	})

	result, err := builder.NewBuilder(hub, journal, logger).Build(ctx, builder.BuildOptions{
		ConfigDir: configDir,
		Pull:      v.GetBool("pull"),
		Token:     token,
	})
	if err != nil {
		return err
	}

	return result.Config().Encode(cmd.OutOrStdout())
}
