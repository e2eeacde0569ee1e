package encoders

import (
	"context"
	"log/slog"
	"sync"

	"squeeze/internal/logging"
	"squeeze/internal/plan"
)

// Hardware candidates per codec family, in fixed preference order. The last
// resort software encoder is separate and never probed.
var hardwareCandidates = map[plan.Codec][]string{
	plan.CodecH264: {"h264_nvenc", "h264_qsv", "h264_videotoolbox", "h264_amf", "h264_vaapi"},
	plan.CodecH265: {"hevc_nvenc", "hevc_qsv", "hevc_videotoolbox", "hevc_amf", "hevc_vaapi"},
	plan.CodecAV1:  {"av1_nvenc", "av1_qsv", "av1_vaapi"},
	plan.CodecVP9:  nil,
}

var softwareFallback = map[plan.Codec]string{
	plan.CodecH264: "libx264",
	plan.CodecH265: "libx265",
	plan.CodecVP9:  "libvpx-vp9",
	plan.CodecAV1:  "libaom-av1",
}

// Selector picks the best usable encoder per codec family, caching probe
// results for the process lifetime.
type Selector struct {
	prober Prober
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]bool
}

// NewSelector constructs a selector around the given prober.
func NewSelector(prober Prober, logger *slog.Logger) *Selector {
	return &Selector{
		prober: prober,
		logger: logging.NewComponentLogger(logger, "encoders"),
		cache:  make(map[string]bool),
	}
}

// GetBestEncoder walks the hardware-preference list for the codec family and
// returns the first encoder that probes available, falling back to the
// software encoder when none do. Probe failures are non-fatal.
func (s *Selector) GetBestEncoder(ctx context.Context, codec plan.Codec) string {
	for _, candidate := range hardwareCandidates[codec] {
		if s.IsEncoderAvailable(ctx, candidate) {
			s.logger.Debug("selected hardware encoder",
				logging.String(logging.FieldCodec, string(codec)),
				logging.String(logging.FieldEncoder, candidate))
			return candidate
		}
	}
	fallback := softwareFallback[codec]
	if fallback == "" {
		fallback = softwareFallback[plan.CodecH264]
	}
	s.logger.Debug("selected software encoder",
		logging.String(logging.FieldCodec, string(codec)),
		logging.String(logging.FieldEncoder, fallback))
	return fallback
}

// IsEncoderAvailable probes the encoder, consulting the cache first.
func (s *Selector) IsEncoderAvailable(ctx context.Context, encoder string) bool {
	s.mu.Lock()
	if available, ok := s.cache[encoder]; ok {
		s.mu.Unlock()
		return available
	}
	s.mu.Unlock()

	available := s.prober.Probe(ctx, encoder)

	s.mu.Lock()
	s.cache[encoder] = available
	s.mu.Unlock()
	return available
}

// ClearCache drops all cached probe results, forcing fresh probes after a
// binary path or driver change.
func (s *Selector) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string]bool)
	s.mu.Unlock()
}
