package mp4

import "time"

// ChannelConfig is the speaker layout recovered from an esds decoder-config
// descriptor's channel configuration field (§6.3).
type ChannelConfig int

// Recognized channel configurations.
const (
	ChannelConfigMono ChannelConfig = iota + 1
	ChannelConfigStereo
	ChannelConfig3
	ChannelConfig4
	ChannelConfig5
	ChannelConfig51
	ChannelConfig71
)

// ChannelConfigFromCode resolves a wire channel-configuration code from an
// esds decoder-config descriptor (§6.3). Exported so internal/audioinfo,
// which owns esds parsing via the go-mp4 box library, can build AudioInfo
// values without duplicating the enum mapping.
func ChannelConfigFromCode(code uint8) (ChannelConfig, error) {
	switch code {
	case 1:
		return ChannelConfigMono, nil
	case 2:
		return ChannelConfigStereo, nil
	case 3:
		return ChannelConfig3, nil
	case 4:
		return ChannelConfig4, nil
	case 5:
		return ChannelConfig5, nil
	case 6:
		return ChannelConfig51, nil
	case 7:
		return ChannelConfig71, nil
	default:
		return 0, newErr(KindUnknownChannelConfig, "unrecognized channel configuration code %d", code)
	}
}

// sampleRateTable maps the esds sampling-frequency-index nibble to the rate
// in Hz it encodes (MPEG-4 Audio sampling frequency table).
var sampleRateTable = [...]int{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// SampleRateFromIndex resolves a sampling-frequency-index nibble from an
// esds decoder-config descriptor into a rate in Hz.
func SampleRateFromIndex(idx uint8) (int, error) {
	if int(idx) >= len(sampleRateTable) {
		return 0, newErr(KindUnknownSampleRate, "unrecognized sampling frequency index %d", idx)
	}
	return sampleRateTable[idx], nil
}

// AudioInfo is the read-only audio summary exposed alongside a tag (§6.3).
// Fields beyond Duration are optional because they depend on an `esds`
// descriptor the container does not always carry.
type AudioInfo struct {
	Duration time.Duration

	ChannelConfig   ChannelConfig
	HasChannelConfig bool

	SampleRate   int
	HasSampleRate bool

	MaxBitrate uint32
	AvgBitrate uint32
	HasBitrate bool
}

// EsdsInfo is the decoded subset of an esds decoder-config descriptor an
// AudioInfoResolver produces.
type EsdsInfo struct {
	ChannelConfig    ChannelConfig
	HasChannelConfig bool

	SampleRate    int
	HasSampleRate bool

	MaxBitrate uint32
	AvgBitrate uint32
	HasBitrate bool
}

// AudioInfoResolver decodes the raw content of an esds descriptor into an
// EsdsInfo. The core reader locates the descriptor but never decodes it
// itself (§6.3); callers that want channel/sample-rate/bitrate data supply
// a resolver via ReadConfig.AudioInfoResolver, typically the one
// internal/audioinfo provides on top of the go-mp4 box library.
type AudioInfoResolver interface {
	ResolveEsds(esdsContent []byte) (EsdsInfo, error)
}
