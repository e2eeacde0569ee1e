// Package ffprobe wraps the ffprobe binary to extract the source metadata the
// planner needs: dimensions, duration, frame rate, codecs, and audio presence.
package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result holds the decoded ffprobe JSON payload.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Metadata is the flattened view the rest of the service consumes.
type Metadata struct {
	Width           int
	Height          int
	DurationSeconds float64
	SizeBytes       int64
	VideoCodec      string
	AudioCodec      string
	FrameRate       float64
	HasAudio        bool
}

// Inspect executes ffprobe against the provided path and decodes the JSON
// response. The context bounds the probe.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// InspectMetadata runs Inspect and flattens the result.
func InspectMetadata(ctx context.Context, binary string, path string) (Metadata, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Metadata{}, err
	}
	return result.Metadata(), nil
}

// Metadata flattens the probe output into the planner's view of the source.
func (r Result) Metadata() Metadata {
	meta := Metadata{
		DurationSeconds: r.DurationSeconds(),
		SizeBytes:       r.SizeBytes(),
	}
	for _, stream := range r.Streams {
		switch {
		case strings.EqualFold(stream.CodecType, "video") && meta.VideoCodec == "":
			meta.VideoCodec = stream.CodecName
			meta.Width = stream.Width
			meta.Height = stream.Height
			meta.FrameRate = parseFrameRate(stream.RFrameRate)
			if meta.DurationSeconds <= 0 {
				meta.DurationSeconds = positiveFloat(stream.Duration)
			}
		case strings.EqualFold(stream.CodecType, "audio") && !meta.HasAudio:
			meta.HasAudio = true
			meta.AudioCodec = stream.CodecName
		}
	}
	return meta
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return positiveFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := positiveFloat(r.Format.Size)
	return int64(size)
}

// parseFrameRate decodes ffprobe's rational rate strings such as "30000/1001".
func parseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n := positiveFloat(num)
		d := positiveFloat(den)
		if d <= 0 {
			return 0
		}
		return n / d
	}
	return positiveFloat(value)
}

func positiveFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return parsed
}
