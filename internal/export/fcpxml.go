package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// FCPXMLVersion is the FCPXML document version emitted.
const FCPXMLVersion = "1.10"

const (
	fcpFormatID = "r1"
	fcpAssetID  = "r2"
	fcpEvent    = "AutoCut Export"
)

type fcpxml struct {
	XMLName   xml.Name     `xml:"fcpxml"`
	Version   string       `xml:"version,attr"`
	Resources fcpResources `xml:"resources"`
	Library   fcpLibrary   `xml:"library"`
}

type fcpResources struct {
	Formats []fcpFormat `xml:"format"`
	Assets  []fcpAsset  `xml:"asset"`
}

type fcpFormat struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr,omitempty"`
	FrameDuration string `xml:"frameDuration,attr"`
	Width         string `xml:"width,attr,omitempty"`
	Height        string `xml:"height,attr,omitempty"`
}

type fcpAsset struct {
	ID           string      `xml:"id,attr"`
	Name         string      `xml:"name,attr"`
	UID          string      `xml:"uid,attr"`
	Start        string      `xml:"start,attr"`
	Duration     string      `xml:"duration,attr"`
	HasVideo     string      `xml:"hasVideo,attr"`
	HasAudio     string      `xml:"hasAudio,attr"`
	Format       string      `xml:"format,attr"`
	AudioSources string      `xml:"audioSources,attr,omitempty"`
	AudioRate    string      `xml:"audioRate,attr,omitempty"`
	MediaRep     fcpMediaRep `xml:"media-rep"`
}

type fcpMediaRep struct {
	Kind string `xml:"kind,attr"`
	Src  string `xml:"src,attr"`
}

type fcpLibrary struct {
	Events []fcpEventElem `xml:"event"`
}

type fcpEventElem struct {
	Name     string       `xml:"name,attr"`
	Projects []fcpProject `xml:"project"`
}

type fcpProject struct {
	Name     string      `xml:"name,attr"`
	Sequence fcpSequence `xml:"sequence"`
}

type fcpSequence struct {
	Format    string   `xml:"format,attr"`
	Duration  string   `xml:"duration,attr"`
	TCStart   string   `xml:"tcStart,attr"`
	TCFormat  string   `xml:"tcFormat,attr"`
	AudioRate string   `xml:"audioRate,attr,omitempty"`
	Spine     fcpSpine `xml:"spine"`
}

type fcpSpine struct {
	AssetClips []fcpAssetClip `xml:"asset-clip"`
}

type fcpAssetClip struct {
	Name      string `xml:"name,attr"`
	Ref       string `xml:"ref,attr"`
	Offset    string `xml:"offset,attr"`
	Duration  string `xml:"duration,attr"`
	Start     string `xml:"start,attr"`
	TCFormat  string `xml:"tcFormat,attr"`
	VideoRole string `xml:"videoRole,attr,omitempty"`
	AudioRole string `xml:"audioRole,attr,omitempty"`
}

// encodeFCPXML builds an FCPXML 1.10 document with one asset-clip per kept
// segment laid end to end on the primary storyline.
func encodeFCPXML(p *plan) ([]byte, error) {
	md := p.media
	tcFormat := "NDF"
	if p.rate.DropFrame() {
		tcFormat = "DF"
	}

	width, height := md.Width, md.Height
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}

	asset := fcpAsset{
		ID:       fcpAssetID,
		Name:     sanitizeName(p.title, 0),
		UID:      fcpUID(p.sourceName()),
		Start:    "0s",
		Duration: p.rationalTime(p.sourceFrames),
		HasVideo: boolFlag(md.HasVideo),
		HasAudio: boolFlag(md.HasAudio),
		Format:   fcpFormatID,
		MediaRep: fcpMediaRep{Kind: "original-media", Src: fileURL(md.Source, "")},
	}
	if md.HasAudio {
		asset.AudioSources = "1"
		if md.AudioSampleRate > 0 {
			asset.AudioRate = strconv.Itoa(md.AudioSampleRate)
		}
	}

	clips := make([]fcpAssetClip, 0, len(p.spans))
	for i, s := range p.spans {
		clip := fcpAssetClip{
			Name:     fmt.Sprintf("Clip %d", i+1),
			Ref:      fcpAssetID,
			Offset:   p.rationalTime(s.RecordIn),
			Duration: p.rationalTime(s.Length()),
			Start:    p.rationalTime(s.SourceIn),
			TCFormat: tcFormat,
		}
		if md.HasVideo {
			clip.VideoRole = "video"
		}
		if md.HasAudio {
			clip.AudioRole = "dialogue"
		}
		clips = append(clips, clip)
	}

	doc := fcpxml{
		Version: FCPXMLVersion,
		Resources: fcpResources{
			Formats: []fcpFormat{{
				ID:            fcpFormatID,
				Name:          fcpFormatName(p, height),
				FrameDuration: p.rationalTime(1),
				Width:         strconv.Itoa(width),
				Height:        strconv.Itoa(height),
			}},
			Assets: []fcpAsset{asset},
		},
		Library: fcpLibrary{Events: []fcpEventElem{{
			Name: fcpEvent,
			Projects: []fcpProject{{
				Name: sanitizeName(p.title, 0),
				Sequence: fcpSequence{
					Format:    fcpFormatID,
					Duration:  p.rationalTime(p.totalFrames()),
					TCStart:   "0s",
					TCFormat:  tcFormat,
					AudioRate: fcpAudioRate(md.AudioSampleRate),
					Spine:     fcpSpine{AssetClips: clips},
				},
			}},
		}}},
	}

	body, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal fcpxml: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<!DOCTYPE fcpxml>\n\n")
	buf.Write(body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// rationalTime renders a frame count as an FCPXML rational time in seconds,
// frames*den/num, e.g. "1001/30000s", or "10s" when it divides evenly.
func (p *plan) rationalTime(frames int64) string {
	if frames == 0 {
		return "0s"
	}
	n := frames * p.rate.Den
	if n%p.rate.Num == 0 {
		return strconv.FormatInt(n/p.rate.Num, 10) + "s"
	}
	return strconv.FormatInt(n, 10) + "/" + strconv.FormatInt(p.rate.Num, 10) + "s"
}

// fcpFormatName follows Final Cut's naming, e.g. FFVideoFormat1080p2997.
func fcpFormatName(p *plan, height int) string {
	rate := strconv.FormatInt(p.rate.Nominal(), 10)
	if !p.rate.IsInteger() {
		rate = strconv.FormatInt(int64(math.Round(p.rate.Float()*100)), 10)
	}
	return fmt.Sprintf("FFVideoFormat%dp%s", height, rate)
}

// fcpAudioRate maps a sample rate to FCPXML's sequence audioRate enumeration.
func fcpAudioRate(hz int) string {
	switch hz {
	case 32000:
		return "32k"
	case 44100:
		return "44.1k"
	case 48000:
		return "48k"
	case 88200:
		return "88.2k"
	case 96000:
		return "96k"
	case 176400:
		return "176.4k"
	case 192000:
		return "192k"
	}
	return ""
}

// fcpUID derives a stable asset UID from the file name so re-imports of the
// same media are recognized by Final Cut.
func fcpUID(name string) string {
	return strings.ToUpper(uuid.NewMD5(uuid.NameSpaceURL, []byte("autocut_media_"+name)).String())
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
