// Package export serializes a cut list into documents that non-linear
// editors import: FCPXML for Final Cut Pro, XMEML for Premiere Pro and
// CMX3600 EDL for Resolve and Avid.
package export

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/maauso/autocut/internal/cutlist"
	"github.com/maauso/autocut/internal/media"
	"github.com/maauso/autocut/internal/timeline"
)

// Static errors for export.
var (
	// ErrExportEncoding is returned when the inputs cannot produce a valid document.
	ErrExportEncoding = errors.New("export: cannot encode timeline")
	// ErrUnknownFormat is returned for a format outside the supported set.
	ErrUnknownFormat = errors.New("export: unknown format")
)

// Format is a supported export format.
type Format string

// Supported formats.
const (
	FormatFCPXML   Format = "fcpxml"
	FormatPremiere Format = "premiere"
	FormatEDL      Format = "edl"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatFCPXML, FormatPremiere, FormatEDL}
}

// ParseFormat accepts a format name or a common alias such as "xmeml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fcpxml", "fcp", "finalcut", "final_cut":
		return FormatFCPXML, nil
	case "premiere", "premiere_xml", "xmeml", "xml":
		return FormatPremiere, nil
	case "edl", "cmx3600", "resolve":
		return FormatEDL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatFCPXML:
		return ".fcpxml"
	case FormatPremiere:
		return ".xml"
	case FormatEDL:
		return ".edl"
	}
	return ""
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatFCPXML, FormatPremiere:
		return "application/xml"
	case FormatEDL:
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}

// Document is a serialized export.
type Document struct {
	Format  Format
	Title   string
	Content []byte
}

// Filename returns the title with the format's extension.
func (d Document) Filename() string {
	name := sanitizeName(d.Title, 0)
	if name == "" {
		name = "autocut"
	}
	return name + d.Format.Extension()
}

// Option configures Serialize.
type Option func(*options)

type options struct {
	title string
}

// WithTitle sets the project/sequence title. It defaults to the source file
// name without extension.
func WithTitle(title string) Option {
	return func(o *options) {
		o.title = title
	}
}

// Serialize encodes the kept segments of cl in the given format. The cut list
// is read but never modified.
func Serialize(format Format, cl *cutlist.CutList, md media.Metadata, opts ...Option) (Document, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	p, err := newPlan(cl, md, o)
	if err != nil {
		return Document{}, err
	}

	var content []byte
	switch format {
	case FormatFCPXML:
		content, err = encodeFCPXML(p)
	case FormatPremiere:
		content, err = encodePremiere(p)
	case FormatEDL:
		content, err = encodeEDL(p)
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrExportEncoding, err)
	}

	return Document{Format: format, Title: p.title, Content: content}, nil
}

// plan is the frame-quantized timeline shared by every encoder.
type plan struct {
	media media.Metadata
	rate  timeline.FrameRate
	title string
	// sourceFrames is the length of the whole source media in frames.
	sourceFrames int64
	spans        []timeline.FrameSpan
}

func newPlan(cl *cutlist.CutList, md media.Metadata, o options) (*plan, error) {
	if !(md.Duration > 0) || math.IsInf(md.Duration, 0) {
		return nil, fmt.Errorf("%w: media duration %v", ErrExportEncoding, md.Duration)
	}
	if !md.FrameRate.Valid() {
		return nil, fmt.Errorf("%w: frame rate %s", ErrExportEncoding, md.FrameRate)
	}

	kept := []timeline.Interval{{Start: 0, End: md.Duration}}
	if cl != nil {
		if math.Abs(cl.Duration()-md.Duration) > timeline.Epsilon {
			return nil, fmt.Errorf("%w: cut list duration %.6f does not match media duration %.6f",
				ErrExportEncoding, cl.Duration(), md.Duration)
		}
		kept = cl.KeptSegments()
	}

	spans := timeline.Quantize(kept, md.FrameRate)
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: no kept segments", ErrExportEncoding)
	}

	title := o.title
	if title == "" {
		base := filepath.Base(md.Source)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if title == "" || title == "." {
		title = "AutoCut"
	}

	return &plan{
		media:        md,
		rate:         md.FrameRate,
		title:        title,
		sourceFrames: md.FrameRate.Frames(md.Duration),
		spans:        spans,
	}, nil
}

// totalFrames returns the edited timeline length.
func (p *plan) totalFrames() int64 {
	return timeline.TotalFrames(p.spans)
}

// sourceName returns the source file name with extension.
func (p *plan) sourceName() string {
	if p.media.Source == "" {
		return p.title
	}
	return filepath.Base(p.media.Source)
}
