package pipeline

import (
	"fmt"
	"strings"

	"squeeze/internal/plan"
)

// degradeLevel tracks how far the recovery protocol has walked.
type degradeLevel int

const (
	degradeNone degradeLevel = iota
	degradeCapped
	degradeDropped
)

// CRF used when no bitrate target exists; tuned per codec family.
var defaultCRF = map[plan.Codec]int{
	plan.CodecH264: 23,
	plan.CodecH265: 28,
	plan.CodecVP9:  31,
	plan.CodecAV1:  32,
}

// EncodeSpec describes one encode attempt for one job.
type EncodeSpec struct {
	InputPath  string
	OutputPath string

	Codec     plan.Codec
	Encoder   string
	Container string

	VideoKbps  *int
	AudioKbps  int
	AudioCodec string
	MuteAudio  bool

	FilterChain string
	Params      *Params

	DurationSeconds float64
	TwoPass         bool
}

// UseTwoPass reports whether an encode should run two passes: a hard bitrate
// target on a software encoder. Hardware encoders have no pass-log support
// worth using, and CRF mode has nothing for a first pass to measure.
func UseTwoPass(encoder string, videoKbps *int) bool {
	if videoKbps == nil {
		return false
	}
	return strings.HasPrefix(encoder, "lib")
}

// ParamsFor returns the codec tunables for a software encode in the given
// mode, or nil when the encoder defaults already fit (hardware encoders and
// fast mode). Some of these values exceed what certain encoder builds
// accept; the degradation protocol caps or drops them on failure.
func ParamsFor(encoder string, mode plan.Mode) *Params {
	switch encoder {
	case "libx264":
		if mode != plan.ModeUltra {
			return nil
		}
		p := NewParams()
		p.Set("subme", "9")
		p.Set("ref", "6")
		p.Set("trellis", "2")
		return p
	case "libx265":
		if mode != plan.ModeQuality {
			return nil
		}
		p := NewParams()
		p.Set("subme", "7")
		p.Set("rd", "6")
		p.Set("aq-mode", "3")
		return p
	default:
		return nil
	}
}

// buildPassArgs assembles the full ffmpeg argument list for one pass.
// passNumber is 1-based; totalPasses is 1 for single-pass encodes.
func buildPassArgs(spec EncodeSpec, level degradeLevel, passNumber, totalPasses int, passLogPrefix string) []string {
	args := []string{"-y", "-hide_banner", "-nostdin", "-i", spec.InputPath}

	if spec.FilterChain != "" {
		args = append(args, "-vf", spec.FilterChain)
	}

	args = append(args, "-c:v", spec.Encoder)
	if spec.VideoKbps != nil {
		kbps := *spec.VideoKbps
		args = append(args,
			"-b:v", fmt.Sprintf("%dk", kbps),
			"-maxrate", fmt.Sprintf("%dk", kbps*3/2),
			"-bufsize", fmt.Sprintf("%dk", kbps*2),
		)
	} else {
		args = append(args, "-crf", fmt.Sprintf("%d", crfFor(spec.Codec)))
	}

	if blob := paramsBlob(spec, level); blob != "" {
		switch spec.Encoder {
		case "libx264":
			args = append(args, "-x264-params", blob)
		case "libx265":
			args = append(args, "-x265-params", blob)
		}
	}

	if totalPasses > 1 {
		args = append(args,
			"-pass", fmt.Sprintf("%d", passNumber),
			"-passlogfile", passLogPrefix,
		)
	}

	if passNumber < totalPasses {
		// Analysis pass: discard output, skip audio.
		args = append(args, "-an", "-f", "null", nullOutput)
		return args
	}

	if spec.MuteAudio {
		args = append(args, "-an")
	} else {
		codec := spec.AudioCodec
		if codec == "" {
			codec = "aac"
		}
		args = append(args, "-c:a", codec)
		if spec.AudioKbps > 0 {
			args = append(args, "-b:a", fmt.Sprintf("%dk", spec.AudioKbps))
		}
	}

	if spec.Container != "" {
		args = append(args, "-f", spec.Container)
	}
	args = append(args, spec.OutputPath)
	return args
}

func crfFor(codec plan.Codec) int {
	if crf, ok := defaultCRF[codec]; ok {
		return crf
	}
	return defaultCRF[plan.CodecH264]
}

// paramsBlob renders the tunable set for the given degradation level.
func paramsBlob(spec EncodeSpec, level degradeLevel) string {
	if spec.Params == nil || spec.Params.Len() == 0 || level == degradeDropped {
		return ""
	}
	params := spec.Params
	if level == degradeCapped {
		params = params.Clone()
		params.CapUnsafe()
	}
	return params.String()
}
