package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/autocut/internal/cutlist"
	"github.com/maauso/autocut/internal/export"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/preset"
	"github.com/maauso/autocut/internal/project"
	"github.com/maauso/autocut/internal/silence"
	"github.com/maauso/autocut/internal/storage"
)

type analyzeOptions struct {
	preset  string
	formats []string
	outDir  string
	title   string
	render  string

	thresholdDb      float64
	minDurationMs    int
	prePaddingMs     int
	postPaddingMs    int
	mergeGapMs       int
	keepShortPauseMs int

	levels        bool
	levelWindowMs int
	hysteresisDb  float64
}

func newAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <media>",
		Short: "Detect silences and export the edited timeline",
		Long: `Analyze probes the media, detects silences with the chosen preset and
writes one timeline per requested format. Individual settings override the
preset when given.

Formats: fcpxml, premiere, edl, or all.`,
		Example: `  autocut analyze interview.mp4 --preset podcast --format fcpxml,edl
  autocut analyze lecture.wav --threshold-db -40 --min-duration-ms 800 --out ./timelines`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.analyze(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.preset, "preset", "p", "", "detection preset (default from DEFAULT_PRESET)")
	f.StringSliceVarP(&opts.formats, "format", "f", []string{string(export.FormatFCPXML)}, "export formats")
	f.StringVarP(&opts.outDir, "out", "o", "", "output directory (default: next to the media)")
	f.StringVar(&opts.title, "title", "", "timeline title (default: media file name)")
	f.StringVar(&opts.render, "render", "", "also render the edited media to this path")

	f.Float64Var(&opts.thresholdDb, "threshold-db", 0, "silence threshold in dBFS")
	f.IntVar(&opts.minDurationMs, "min-duration-ms", 0, "shortest silence to detect")
	f.IntVar(&opts.prePaddingMs, "pre-padding-ms", 0, "padding before each silence")
	f.IntVar(&opts.postPaddingMs, "post-padding-ms", 0, "padding after each silence")
	f.IntVar(&opts.mergeGapMs, "merge-gap-ms", 0, "merge silences separated by at most this much speech")
	f.IntVar(&opts.keepShortPauseMs, "keep-short-pause-ms", 0, "keep pauses up to this length")

	f.BoolVar(&opts.levels, "levels", false, "detect from RMS level series instead of silencedetect")
	f.IntVar(&opts.levelWindowMs, "level-window-ms", 50, "level measurement window")
	f.Float64Var(&opts.hysteresisDb, "hysteresis-db", 0, "extra dB above threshold needed to end a silence")

	return cmd
}

func (a *app) analyze(cmd *cobra.Command, mediaPath string, opts *analyzeOptions) error {
	ctx := cmd.Context()

	cfg, presetName, err := a.detectionConfig(cmd, opts)
	if err != nil {
		return err
	}

	formats, err := parseFormats(opts.formats)
	if err != nil {
		return err
	}

	pipeline := project.Pipeline{Prober: a.prober, Analyzer: a.analyzer}
	if opts.levels {
		if opts.levelWindowMs <= 0 {
			return errors.New("--level-window-ms must be positive")
		}
		pipeline.LevelFrame = time.Duration(opts.levelWindowMs) * time.Millisecond
		pipeline.HysteresisDb = opts.hysteresisDb
	}

	a.logger.Info("analysis started",
		slog.String("media_path", mediaPath),
		slog.String("preset", presetName),
		slog.Bool("levels", opts.levels),
	)
	start := time.Now()

	res, err := pipeline.Run(ctx, mediaPath, cfg)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", mediaPath, err)
	}

	a.logger.Info("analysis completed",
		slog.Int("candidates", len(res.Candidates)),
		slog.Int("cuts", res.CutList.Len()),
		slog.Duration("elapsed", time.Since(start)),
	)

	out := cmd.OutOrStdout()
	printSummary(out, res.Media, res.CutList)

	outDir := opts.outDir
	if outDir == "" {
		outDir = filepath.Dir(mediaPath)
	}
	store, err := storage.NewLocalStorage(outDir)
	if err != nil {
		return err
	}

	var exportOpts []export.Option
	if opts.title != "" {
		exportOpts = append(exportOpts, export.WithTitle(opts.title))
	}
	for _, format := range formats {
		doc, err := export.Serialize(format, res.CutList, res.Media, exportOpts...)
		if err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
		path, err := store.Save(ctx, doc.Filename(), bytes.NewReader(doc.Content))
		if err != nil {
			return fmt.Errorf("write %s: %w", format, err)
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}

	if opts.render != "" {
		if err := a.renderer.Render(ctx, mediaPath, res.CutList.KeptSegments(), opts.render); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		fmt.Fprintf(out, "rendered %s\n", opts.render)
	}
	return nil
}

// detectionConfig starts from the preset and applies the flags the user set.
func (a *app) detectionConfig(cmd *cobra.Command, opts *analyzeOptions) (silence.Config, string, error) {
	name := opts.preset
	if name == "" {
		name = a.defaultPreset
	}
	parsed, err := preset.ParseName(name)
	if err != nil {
		return silence.Config{}, "", err
	}
	cfg, err := a.presets.Resolve(parsed)
	if err != nil {
		return silence.Config{}, "", err
	}

	f := cmd.Flags()
	if f.Changed("threshold-db") {
		cfg.ThresholdDb = opts.thresholdDb
	}
	if f.Changed("min-duration-ms") {
		cfg.MinDurationMs = opts.minDurationMs
	}
	if f.Changed("pre-padding-ms") {
		cfg.PrePaddingMs = opts.prePaddingMs
	}
	if f.Changed("post-padding-ms") {
		cfg.PostPaddingMs = opts.postPaddingMs
	}
	if f.Changed("merge-gap-ms") {
		cfg.MergeGapMs = opts.mergeGapMs
	}
	if f.Changed("keep-short-pause-ms") {
		cfg.KeepShortPauseMs = opts.keepShortPauseMs
	}

	if err := cfg.Validate(); err != nil {
		return silence.Config{}, "", err
	}
	return cfg, string(parsed), nil
}

func parseFormats(names []string) ([]export.Format, error) {
	seen := make(map[export.Format]bool)
	var formats []export.Format
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), "all") {
			return export.Formats(), nil
		}
		f, err := export.ParseFormat(n)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: no format given", export.ErrUnknownFormat)
	}
	return formats, nil
}

func printSummary(w io.Writer, md media.Metadata, cl *cutlist.CutList) {
	fmt.Fprintf(w, "%s: %.3fs at %.3f fps\n", filepath.Base(md.Source), md.Duration, md.FrameRate.Float())
	fmt.Fprintf(w, "%d cuts, removing %.3fs, keeping %.3fs\n", cl.Len(), cl.RemovedDuration(), cl.KeptDuration())

	if cl.Len() == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tLENGTH\tID")
	for i, c := range cl.Cuts() {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.3f\t%s\n", i+1, c.Start, c.End, c.Duration(), c.ID)
	}
	_ = tw.Flush()
}
