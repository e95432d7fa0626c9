// Package builder resolves a build configuration into flat instruction lists and
// fetches the base images it names.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maxdollinger/amethyst/pkg/config"
	"github.com/maxdollinger/amethyst/pkg/registry"
	"github.com/maxdollinger/amethyst/pkg/scriptlet"

	"github.com/google/uuid"
)

type Builder interface {
	Build(ctx context.Context, opts BuildOptions) (*BuildResult, error)
}

type BuildOptions struct {
	ConfigDir string          // directory holding amethyst.yaml
	Pull      bool            // fetch every non-scratch base image
	Token     *registry.Token // nil = ask the registry's token provider
}

// BuildResult contains the resolved images in configuration order
type BuildResult struct {
	BuildID   string
	Images    []ImageResult
	BuildTime time.Duration
}

type ImageResult struct {
	Spec        config.ImageSpec
	Scriptlets  []scriptlet.Scriptlet
	ManifestDir string // empty unless the base image was fetched
}

// Config returns the resolved configuration with every module expanded inline.
func (r *BuildResult) Config() *config.Config {
	cfg := &config.Config{Images: make([]config.ImageSpec, 0, len(r.Images))}
	for _, image := range r.Images {
		spec := image.Spec
		spec.Modules = make([]config.Module, 0, len(image.Scriptlets))
		for _, s := range image.Scriptlets {
			spec.Modules = append(spec.Modules, config.InlineModule(s))
		}
		cfg.Images = append(cfg.Images, spec)
	}
	return cfg
}

type builder struct {
	registry registry.Registry
	journal  Journal
	logger   *slog.Logger
}

// NewBuilder wires a builder. registry may be nil when nothing is pulled;
// journal and logger default to a no-op journal and slog.Default().
func NewBuilder(reg registry.Registry, journal Journal, logger *slog.Logger) Builder {
	if journal == nil {
		journal = NewNoOpJournal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &builder{
		registry: reg,
		journal:  journal,
		logger:   logger,
	}
}

func (b *builder) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	startTime := time.Now()

	if opts.Pull && b.registry == nil {
		return nil, errors.New("pull requested without a registry")
	}

	buildID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("error generating build uuid: %w", err)
	}
	logger := b.logger.With("build_id", buildID.String())
	logger.InfoContext(ctx, "starting build", "config_dir", opts.ConfigDir, "pull", opts.Pull)

	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	result := &BuildResult{
		BuildID: buildID.String(),
		Images:  make([]ImageResult, 0, len(cfg.Images)),
	}
	for _, spec := range cfg.Images {
		image, err := b.buildImage(ctx, logger, buildID.String(), spec, opts)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", spec.Reference(), err)
		}
		result.Images = append(result.Images, *image)
	}

	result.BuildTime = time.Since(startTime)
	logger.InfoContext(ctx, "build completed",
		"images", len(result.Images),
		"duration", result.BuildTime)

	return result, nil
}

func (b *builder) buildImage(ctx context.Context, logger *slog.Logger, buildID string, spec config.ImageSpec, opts BuildOptions) (*ImageResult, error) {
	jobID, err := b.journal.Begin(ctx, buildID, spec.Name, spec.Tag, spec.BaseImage.String())
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	image, buildErr := b.resolveImage(ctx, logger, spec, opts)

	manifestDir := ""
	if image != nil {
		manifestDir = image.ManifestDir
	}
	if err := b.journal.End(ctx, jobID, manifestDir, buildErr); err != nil {
		return nil, errors.Join(buildErr, fmt.Errorf("journal: %w", err))
	}
	if buildErr != nil {
		return nil, buildErr
	}
	return image, nil
}

func (b *builder) resolveImage(ctx context.Context, logger *slog.Logger, spec config.ImageSpec, opts BuildOptions) (*ImageResult, error) {
	scriptlets, err := spec.Scriptlets(opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "image resolved",
		"image", spec.Reference(),
		"base_image", spec.BaseImage.String(),
		"scriptlets", len(scriptlets))

	image := &ImageResult{Spec: spec, Scriptlets: scriptlets}
	if !opts.Pull || spec.BaseImage.IsScratch() {
		return image, nil
	}

	image.ManifestDir, err = b.registry.FetchBaseImage(ctx, spec.BaseImage.Name(), spec.BaseImage.Tag(), opts.Token)
	if err != nil {
		return nil, fmt.Errorf("fetch base image %s: %w", spec.BaseImage, err)
	}
	logger.InfoContext(ctx, "base image fetched",
		"base_image", spec.BaseImage.String(),
		"manifest_dir", image.ManifestDir)

	return image, nil
}
