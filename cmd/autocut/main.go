// Package main provides the autocut command-line tool. It analyses a media
// file for silence and writes editor timelines without running the server.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maauso/autocut/internal/bootstrap"
	"github.com/maauso/autocut/internal/config"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/preset"
	"github.com/maauso/autocut/internal/silence"
)

// app holds the collaborators shared by the commands.
type app struct {
	prober        media.Prober
	analyzer      silence.Analyzer
	renderer      media.Renderer
	presets       *preset.Resolver
	defaultPreset string
	logger        *slog.Logger
	out           io.Writer
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Logs go to stderr so stdout carries only command output
	logger := config.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	presets, err := bootstrap.NewPresets(cfg, logger)
	if err != nil {
		return err
	}

	a := &app{
		prober:        media.NewFFprobeProber(cfg.FFprobePath),
		analyzer:      silence.NewFFmpegAnalyzer(cfg.FFmpegPath),
		renderer:      media.NewFFmpegRenderer(cfg.FFmpegPath),
		presets:       presets,
		defaultPreset: cfg.DefaultPreset,
		logger:        logger,
		out:           os.Stdout,
	}
	return newRootCmd(a).Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "autocut",
		Short: "Find silences in recordings and export edit timelines",
		Long: `autocut detects silent stretches in an audio or video file, turns them
into a list of cuts and exports the edited timeline for Final Cut Pro (FCPXML),
Premiere Pro (XMEML) or Resolve and Avid (CMX3600 EDL).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)

	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newPresetsCmd(a))
	return root
}
