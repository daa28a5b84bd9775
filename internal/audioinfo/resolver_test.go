package audioinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeAudioSpecificConfig(t *testing.T) {
	tests := []struct {
		name              string
		data              []byte
		wantChannelConfig uint8
		wantSampleRateIdx uint8
		wantOK            bool
	}{
		{
			name:              "AAC-LC 44100Hz stereo",
			data:              []byte{0x12, 0x10},
			wantChannelConfig: 2,
			wantSampleRateIdx: 4,
			wantOK:            true,
		},
		{
			name:   "too short",
			data:   []byte{0x12},
			wantOK: false,
		},
		{
			name:   "empty",
			data:   nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channelConfig, sampleRateIndex, ok := decodeAudioSpecificConfig(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantChannelConfig, channelConfig)
				assert.Equal(t, tt.wantSampleRateIdx, sampleRateIndex)
			}
		})
	}
}
