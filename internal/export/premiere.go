package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// XMEMLVersion is the Final Cut Pro 7 interchange version emitted.
const XMEMLVersion = "4"

const xmemlFileID = "file-1"

type xmeml struct {
	XMLName  xml.Name      `xml:"xmeml"`
	Version  string        `xml:"version,attr"`
	Sequence xmemlSequence `xml:"sequence"`
}

type xmemlRate struct {
	Timebase int64  `xml:"timebase"`
	NTSC     string `xml:"ntsc"`
}

type xmemlTimecode struct {
	Rate          xmemlRate `xml:"rate"`
	String        string    `xml:"string"`
	Frame         int64     `xml:"frame"`
	DisplayFormat string    `xml:"displayformat"`
}

type xmemlSequence struct {
	ID       string        `xml:"id,attr"`
	Name     string        `xml:"name"`
	Duration int64         `xml:"duration"`
	Rate     xmemlRate     `xml:"rate"`
	Timecode xmemlTimecode `xml:"timecode"`
	Media    xmemlMedia    `xml:"media"`
}

type xmemlMedia struct {
	Video *xmemlVideo `xml:"video,omitempty"`
	Audio *xmemlAudio `xml:"audio,omitempty"`
}

type xmemlVideo struct {
	Format xmemlVideoFormat `xml:"format"`
	Tracks []xmemlTrack     `xml:"track"`
}

type xmemlAudio struct {
	Format xmemlAudioFormat `xml:"format"`
	Tracks []xmemlTrack     `xml:"track"`
}

type xmemlVideoFormat struct {
	Sample xmemlVideoSample `xml:"samplecharacteristics"`
}

type xmemlVideoSample struct {
	Rate   xmemlRate `xml:"rate"`
	Width  int       `xml:"width"`
	Height int       `xml:"height"`
}

type xmemlAudioFormat struct {
	Sample xmemlAudioSample `xml:"samplecharacteristics"`
}

type xmemlAudioSample struct {
	Depth      int `xml:"depth"`
	SampleRate int `xml:"samplerate"`
}

type xmemlTrack struct {
	ClipItems []xmemlClipItem `xml:"clipitem"`
}

type xmemlClipItem struct {
	ID          string            `xml:"id,attr"`
	Name        string            `xml:"name"`
	Enabled     string            `xml:"enabled"`
	Duration    int64             `xml:"duration"`
	Rate        xmemlRate         `xml:"rate"`
	Start       int64             `xml:"start"`
	End         int64             `xml:"end"`
	In          int64             `xml:"in"`
	Out         int64             `xml:"out"`
	File        xmemlFile         `xml:"file"`
	SourceTrack *xmemlSourceTrack `xml:"sourcetrack,omitempty"`
}

type xmemlSourceTrack struct {
	MediaType  string `xml:"mediatype"`
	TrackIndex int    `xml:"trackindex"`
}

// xmemlFile is written in full the first time and as a bare id reference
// afterwards.
type xmemlFile struct {
	ID       string          `xml:"id,attr"`
	Name     string          `xml:"name,omitempty"`
	PathURL  string          `xml:"pathurl,omitempty"`
	Rate     *xmemlRate      `xml:"rate,omitempty"`
	Duration int64           `xml:"duration,omitempty"`
	Media    *xmemlFileMedia `xml:"media,omitempty"`
}

type xmemlFileMedia struct {
	Video *xmemlFileVideo `xml:"video,omitempty"`
	Audio *xmemlFileAudio `xml:"audio,omitempty"`
}

type xmemlFileVideo struct {
	Sample xmemlVideoSample `xml:"samplecharacteristics"`
}

type xmemlFileAudio struct {
	Sample       xmemlAudioSample `xml:"samplecharacteristics"`
	ChannelCount int              `xml:"channelcount"`
}

// encodePremiere builds an XMEML sequence with one clipitem per kept segment
// on each of the video and audio tracks the media has.
func encodePremiere(p *plan) ([]byte, error) {
	md := p.media
	rate := xmemlRate{Timebase: p.rate.Nominal(), NTSC: xmemlBool(p.rate.NTSC())}
	displayFormat := "NDF"
	if p.rate.DropFrame() {
		displayFormat = "DF"
	}
	sampleRate := md.AudioSampleRate
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	videoSample := xmemlVideoSample{Rate: rate, Width: md.Width, Height: md.Height}
	audioSample := xmemlAudioSample{Depth: 16, SampleRate: sampleRate}

	fullFile := xmemlFile{
		ID:       xmemlFileID,
		Name:     p.sourceName(),
		PathURL:  fileURL(md.Source, "localhost"),
		Rate:     &rate,
		Duration: p.sourceFrames,
		Media:    &xmemlFileMedia{},
	}
	if md.HasVideo {
		fullFile.Media.Video = &xmemlFileVideo{Sample: videoSample}
	}
	if md.HasAudio {
		fullFile.Media.Audio = &xmemlFileAudio{Sample: audioSample, ChannelCount: 2}
	}

	fileWritten := false
	nextFile := func() xmemlFile {
		if fileWritten {
			return xmemlFile{ID: xmemlFileID}
		}
		fileWritten = true
		return fullFile
	}

	clipItems := func(prefix string, sourceTrack *xmemlSourceTrack) []xmemlClipItem {
		items := make([]xmemlClipItem, 0, len(p.spans))
		for i, s := range p.spans {
			items = append(items, xmemlClipItem{
				ID:          fmt.Sprintf("%s-clipitem-%d", prefix, i+1),
				Name:        fmt.Sprintf("Clip %d", i+1),
				Enabled:     "TRUE",
				Duration:    p.sourceFrames,
				Rate:        rate,
				Start:       s.RecordIn,
				End:         s.RecordOut,
				In:          s.SourceIn,
				Out:         s.SourceOut,
				File:        nextFile(),
				SourceTrack: sourceTrack,
			})
		}
		return items
	}

	seq := xmemlSequence{
		ID:       "sequence-1",
		Name:     sanitizeName(p.title, 0) + " - Edited",
		Duration: p.totalFrames(),
		Rate:     rate,
		Timecode: xmemlTimecode{
			Rate:          rate,
			String:        FormatTimecode(0, p.rate),
			Frame:         0,
			DisplayFormat: displayFormat,
		},
	}
	if md.HasVideo {
		seq.Media.Video = &xmemlVideo{
			Format: xmemlVideoFormat{Sample: videoSample},
			Tracks: []xmemlTrack{{ClipItems: clipItems("v", nil)}},
		}
	}
	if md.HasAudio || !md.HasVideo {
		seq.Media.Audio = &xmemlAudio{
			Format: xmemlAudioFormat{Sample: audioSample},
			Tracks: []xmemlTrack{{ClipItems: clipItems("a", &xmemlSourceTrack{MediaType: "audio", TrackIndex: 1})}},
		}
	}

	body, err := xml.MarshalIndent(xmeml{Version: XMEMLVersion, Sequence: seq}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal xmeml: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<!DOCTYPE xmeml>\n")
	buf.Write(body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func xmemlBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
