package plan

import "sort"

const (
	// Segments shorter than this are dropped as noise.
	minSegmentSeconds = 0.05
	// Segments separated by a gap at most this wide are merged.
	segmentMergeGapSeconds = 0.01
)

// VideoSegment is a half-open {start, end} range on the source timeline in
// seconds.
type VideoSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s VideoSegment) Duration() float64 {
	return s.End - s.Start
}

// NormalizeSegments sorts the list, clamps ranges to [0, duration] when the
// source duration is known, merges overlapping or adjacent segments, and drops
// degenerate ones. The result is disjoint and ascending.
func NormalizeSegments(segments []VideoSegment, duration float64) []VideoSegment {
	if len(segments) == 0 {
		return nil
	}

	clamped := make([]VideoSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.Start < 0 {
			seg.Start = 0
		}
		if duration > 0 && seg.End > duration {
			seg.End = duration
		}
		if seg.End-seg.Start < minSegmentSeconds {
			continue
		}
		clamped = append(clamped, seg)
	}
	if len(clamped) == 0 {
		return nil
	}

	sort.Slice(clamped, func(i, j int) bool { return clamped[i].Start < clamped[j].Start })

	merged := clamped[:1]
	for _, seg := range clamped[1:] {
		last := &merged[len(merged)-1]
		if seg.Start <= last.End+segmentMergeGapSeconds {
			if seg.End > last.End {
				last.End = seg.End
			}
			continue
		}
		merged = append(merged, seg)
	}

	out := make([]VideoSegment, 0, len(merged))
	for _, seg := range merged {
		if seg.Duration() >= minSegmentSeconds {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SegmentsDuration returns the combined duration of a normalized segment list.
func SegmentsDuration(segments []VideoSegment) float64 {
	var total float64
	for _, seg := range segments {
		total += seg.Duration()
	}
	return total
}

// SegmentsCoverSource reports whether the segments span the whole source
// within the merge tolerance, meaning trimming would be a no-op.
func SegmentsCoverSource(segments []VideoSegment, duration float64) bool {
	if len(segments) == 0 {
		return true
	}
	if len(segments) != 1 || duration <= 0 {
		return false
	}
	seg := segments[0]
	return seg.Start <= segmentMergeGapSeconds && seg.End >= duration-segmentMergeGapSeconds
}
