// Package audioinfo provides the default mp4.AudioInfoResolver, decoding an
// esds descriptor's decoder-config fields (channel configuration, sample
// rate, max/average bitrate) via the go-mp4 box library.
//
// This is the one place go-mp4 is wired into the module: the core reader
// (pkg/mp4) locates the esds descriptor but never decodes it, since esds/AAC
// decoder-config parsing is explicitly out of scope to hand-roll (the
// engine's own byte-accurate mutation machinery is the in-scope hard part).
// Grounded on the teacher's pkg/mp4/reader.go processEsds, translated from
// manual box descent onto go-mp4's Esds box type.
package audioinfo

import (
	"bytes"

	gomp4 "github.com/abema/go-mp4"
	"github.com/pkg/errors"

	"github.com/shishobooks/mp4tag/pkg/mp4"
)

// Resolver is the default mp4.AudioInfoResolver.
type Resolver struct{}

// New returns a Resolver ready to use.
func New() Resolver { return Resolver{} }

// ResolveEsds decodes an esds descriptor's decoder-config fields.
func (Resolver) ResolveEsds(esdsContent []byte) (mp4.EsdsInfo, error) {
	var esds gomp4.Esds
	if _, err := gomp4.Unmarshal(bytes.NewReader(esdsContent), uint64(len(esdsContent)), &esds, gomp4.Context{}); err != nil {
		return mp4.EsdsInfo{}, errors.Wrap(err, "unmarshaling esds descriptor")
	}

	var info mp4.EsdsInfo
	for _, d := range esds.Descriptors {
		if d.Tag != gomp4.DecoderConfigDescrTag || d.DecoderConfigDescriptor == nil {
			continue
		}
		cfg := d.DecoderConfigDescriptor
		info.MaxBitrate = cfg.MaxBitrate
		info.AvgBitrate = cfg.AvgBitrate
		info.HasBitrate = true
	}

	for _, d := range esds.Descriptors {
		if d.Tag != gomp4.DecSpecificInfoTag || len(d.Data) < 2 {
			continue
		}
		channelConfig, sampleRateIndex, ok := decodeAudioSpecificConfig(d.Data)
		if !ok {
			continue
		}
		if cc, err := mp4.ChannelConfigFromCode(channelConfig); err == nil {
			info.ChannelConfig = cc
			info.HasChannelConfig = true
		}
		if sr, err := mp4.SampleRateFromIndex(sampleRateIndex); err == nil {
			info.SampleRate = sr
			info.HasSampleRate = true
		}
	}

	return info, nil
}

// decodeAudioSpecificConfig extracts the sampling-frequency-index and
// channel-configuration nibbles from an MPEG-4 AudioSpecificConfig: 5 bits
// object type, 4 bits sampling frequency index, 4 bits channel
// configuration, packed big-endian from the first two bytes.
func decodeAudioSpecificConfig(b []byte) (channelConfig uint8, sampleRateIndex uint8, ok bool) {
	if len(b) < 2 {
		return 0, 0, false
	}
	bits := uint16(b[0])<<8 | uint16(b[1])
	sampleRateIndex = uint8(bits >> 7 & 0x0F)
	channelConfig = uint8(bits >> 3 & 0x0F)
	return channelConfig, sampleRateIndex, true
}
