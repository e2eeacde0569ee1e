package plan

// Container identifies the output container format.
type Container string

const (
	ContainerMP4  Container = "mp4"
	ContainerWebM Container = "webm"
)

// CodecContext bundles the per-codec constants the planner needs: container
// choice, audio defaults, the perceptual bits-per-pixel target, and the
// reserve-budget rate for the container.
type CodecContext struct {
	Codec            Codec
	Container        Container
	SoftwareEncoder  string
	AudioCodec       string
	AudioDefaultKbps int
	TargetBpp        float64
	ReservePerMB     float64
	ContainerShare   float64
}

// Lower bpp target means the codec packs more quality per bit, so larger
// output dimensions are tolerable at the same bitrate.
const (
	bppH264 = 0.095
	bppH265 = 0.065
	bppVP9  = 0.07
	bppAV1  = 0.055
)

const (
	reservePerMBMP4    = 0.08
	reservePerMBWebM   = 0.05
	containerShareMP4  = 0.68
	containerShareWebM = 0.48
)

var codecContexts = map[Codec]CodecContext{
	CodecH264: {
		Codec:            CodecH264,
		Container:        ContainerMP4,
		SoftwareEncoder:  "libx264",
		AudioCodec:       "aac",
		AudioDefaultKbps: 128,
		TargetBpp:        bppH264,
		ReservePerMB:     reservePerMBMP4,
		ContainerShare:   containerShareMP4,
	},
	CodecH265: {
		Codec:            CodecH265,
		Container:        ContainerMP4,
		SoftwareEncoder:  "libx265",
		AudioCodec:       "aac",
		AudioDefaultKbps: 128,
		TargetBpp:        bppH265,
		ReservePerMB:     reservePerMBMP4,
		ContainerShare:   containerShareMP4,
	},
	CodecVP9: {
		Codec:            CodecVP9,
		Container:        ContainerWebM,
		SoftwareEncoder:  "libvpx-vp9",
		AudioCodec:       "libopus",
		AudioDefaultKbps: 96,
		TargetBpp:        bppVP9,
		ReservePerMB:     reservePerMBWebM,
		ContainerShare:   containerShareWebM,
	},
	CodecAV1: {
		Codec:            CodecAV1,
		Container:        ContainerWebM,
		SoftwareEncoder:  "libsvtav1",
		AudioCodec:       "libopus",
		AudioDefaultKbps: 96,
		TargetBpp:        bppAV1,
		ReservePerMB:     reservePerMBWebM,
		ContainerShare:   containerShareWebM,
	},
}

// ContextFor returns the codec context for the given codec, falling back to
// H.264 for unknown keys.
func ContextFor(codec Codec) CodecContext {
	if ctx, ok := codecContexts[codec]; ok {
		return ctx
	}
	return codecContexts[CodecH264]
}
