package mp4

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Ident
		want bool
	}{
		{
			name: "same fourcc",
			a:    FourccIdent(FourccTitle),
			b:    FourccIdent(FourccTitle),
			want: true,
		},
		{
			name: "different fourcc",
			a:    FourccIdent(FourccTitle),
			b:    FourccIdent(FourccArtist),
			want: false,
		},
		{
			name: "same freeform",
			a:    FreeformIdent("com.apple.iTunes", "MEDIA_TYPE"),
			b:    FreeformIdent("com.apple.iTunes", "MEDIA_TYPE"),
			want: true,
		},
		{
			name: "freeform different mean",
			a:    FreeformIdent("com.apple.iTunes", "MEDIA_TYPE"),
			b:    FreeformIdent("com.example", "MEDIA_TYPE"),
			want: false,
		},
		{
			name: "freeform different name",
			a:    FreeformIdent("com.apple.iTunes", "MEDIA_TYPE"),
			b:    FreeformIdent("com.apple.iTunes", "OTHER"),
			want: false,
		},
		{
			name: "fourcc never equals freeform",
			a:    FourccIdent(FourccTitle),
			b:    AppleFreeformIdent("MEDIA_TYPE"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestIdentString(t *testing.T) {
	assert.Equal(t, string(FourccTitle[:]), FourccIdent(FourccTitle).String())
	assert.Equal(t, "----:com.apple.iTunes:MEDIA_TYPE", AppleFreeformIdent("MEDIA_TYPE").String())
}

func TestIdentValid(t *testing.T) {
	assert.True(t, FourccIdent(FourccTitle).valid())
	assert.True(t, FreeformIdent("mean", "name").valid())
	assert.False(t, FreeformIdent("", "name").valid())
	assert.False(t, FreeformIdent("mean", "").valid())
}
