package main

import (
	"context"
	"io"

	"github.com/apex/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"photomap/internal/config"
	"photomap/internal/env"
	"photomap/internal/logging"
	"photomap/internal/publish"
	"photomap/internal/service"
	"photomap/pkg/exifgps"
	"photomap/pkg/graceful"
)

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "photomap",
		Short: "Extract photo locations for the travel map",
		Long: `photomap walks the travel photo directory, reads the GPS position embedded
in each image (falling back to metadata.json next to the photos) and writes
the photo-locations JSON used by the map. Configured sinks then receive the
artifact.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configFile, cmd.Flags(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default ./photomap.yaml if present)")
	flags.String("photos-dir", "", "directory holding the photos")
	flags.String("output", "", "path of the photo-locations JSON")
	flags.String("public-prefix", "", "URL prefix of the photo paths")
	flags.Bool("with-source", false, "emit the source (EXIF or manual) of each location")
	flags.String("log-level", "", "debug, info, warn or error")
	return cmd
}

func run(ctx context.Context, configFile string, flags *pflag.FlagSet, console io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dotenv, err := env.LoadEnv()
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.Options{File: configFile, Flags: flags})
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log, console)
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Log = logger
	if !dotenv {
		logger.Debug("no .env file found, using the environment as is")
	}

	ctx, cancel := graceful.Context(ctx, logger)
	defer cancel()

	extractor, err := exifgps.New(cfg.EXIF.BruteForce)
	if err != nil {
		return err
	}
	fs := afero.NewOsFs()

	sum, err := service.Extract(ctx, service.Deps{Fs: fs, Extractor: extractor, Logger: logger}, service.Settings{
		PhotosDir:     cfg.Photos.Dir,
		MetadataFile:  cfg.Photos.MetadataFile,
		PublicPrefix:  cfg.Photos.PublicPrefix,
		OutputPath:    cfg.Output.Path,
		IncludeSource: cfg.Output.IncludeSource,
	})
	if err != nil {
		return err
	}

	pub, err := publish.Open(ctx, cfg, fs, logger)
	if err != nil {
		return err
	}
	defer pub.Close()
	return pub.Publish(ctx, publish.Artifact{Path: cfg.Output.Path, Data: sum.Artifact, Records: sum.Records})
}
