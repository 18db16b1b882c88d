package export

import (
	"fmt"
	"strings"
)

// edlTitleMax is the longest title CMX3600 readers accept.
const edlTitleMax = 70

// encodeEDL builds a CMX3600 edit list with one cut event per kept segment.
func encodeEDL(p *plan) ([]byte, error) {
	fcm := "NON-DROP FRAME"
	if p.rate.DropFrame() {
		fcm = "DROP FRAME"
	}
	track := "A"
	if p.media.HasVideo {
		track = "V"
	}

	lines := []string{
		fmt.Sprintf("TITLE: %s", sanitizeName(p.title, edlTitleMax)),
		fmt.Sprintf("FCM: %s", fcm),
		"",
	}

	clipName := sanitizeName(p.sourceName(), 0)
	for i, s := range p.spans {
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s",
				i+1, "AX", track,
				FormatTimecode(s.SourceIn, p.rate),
				FormatTimecode(s.SourceOut, p.rate),
				FormatTimecode(s.RecordIn, p.rate),
				FormatTimecode(s.RecordOut, p.rate),
			),
			fmt.Sprintf("* FROM CLIP NAME: %s", clipName),
			"",
		)
	}

	return []byte(strings.Join(lines, "\n")), nil
}
