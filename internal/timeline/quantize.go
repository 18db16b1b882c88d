package timeline

// FrameSpan is a kept segment expressed in whole frames, both on the source
// media (In/Out) and on the edited record timeline (RecordIn/RecordOut).
type FrameSpan struct {
	SourceIn  int64
	SourceOut int64
	RecordIn  int64
	RecordOut int64
}

// Length returns the number of frames in the span.
func (fs FrameSpan) Length() int64 {
	return fs.SourceOut - fs.SourceIn
}

// Quantize converts kept segments to frame spans. Every source boundary is
// rounded exactly once; each record in-point is the previous record
// out-point, so the record timeline has no gaps or overlaps. Segments that
// collapse to zero frames are dropped.
func Quantize(kept []Interval, rate FrameRate) []FrameSpan {
	spans := make([]FrameSpan, 0, len(kept))
	var record int64
	var lastOut int64
	for _, iv := range kept {
		in := rate.Frames(iv.Start)
		out := rate.Frames(iv.End)
		if in < lastOut {
			in = lastOut
		}
		if out <= in {
			continue
		}
		spans = append(spans, FrameSpan{
			SourceIn:  in,
			SourceOut: out,
			RecordIn:  record,
			RecordOut: record + (out - in),
		})
		record += out - in
		lastOut = out
	}
	return spans
}

// TotalFrames returns the record length of the quantized timeline.
func TotalFrames(spans []FrameSpan) int64 {
	if len(spans) == 0 {
		return 0
	}
	return spans[len(spans)-1].RecordOut
}
