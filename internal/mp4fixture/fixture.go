// Package mp4fixture builds small, deterministic MPEG-4 container byte
// streams for tests, standing in for the teacher's ffmpeg-backed
// internal/testgen: a pure-Go generator keeps the test suite hermetic and
// makes byte-level assertions (chunk-offset shifting, free-space
// absorption) possible without shelling out to an external encoder.
package mp4fixture

import (
	"bytes"
	"encoding/binary"
)

// Chapter is a minimal chapter marker used to seed a fixture's chapter
// list, mirroring mp4.Chapter without importing the parent module (tests
// in pkg/mp4 convert between the two).
type Chapter struct {
	StartMillis uint64
	Title       string
}

// Item is a minimal metadata item used to seed a fixture's ilst.
type Item struct {
	Fourcc [4]byte
	Text   string // serialized as a single UTF-8 data value
}

// Options configures the fixture a Build call produces.
type Options struct {
	Brand        string // defaults to "M4A "
	AudioBytes   []byte // raw bytes stored as the single audio chunk in mdat
	Items        []Item
	Chapters     []Chapter // embedded chpl entries
	MovieTimescale uint32  // defaults to 1000
	AudioTimescale uint32  // defaults to 44100
	AudioDuration  uint64  // in AudioTimescale units, defaults to len(AudioBytes)
}

// Build assembles a minimal, valid M4A/M4B byte stream: ftyp, moov (mvhd +
// one audio trak with a single sample/chunk in stco, plus udta/meta/ilst
// and udta/chpl if requested), and mdat holding AudioBytes.
func Build(opts Options) []byte {
	if opts.Brand == "" {
		opts.Brand = "M4A "
	}
	if opts.MovieTimescale == 0 {
		opts.MovieTimescale = 1000
	}
	if opts.AudioTimescale == 0 {
		opts.AudioTimescale = 44100
	}
	if opts.AudioDuration == 0 {
		opts.AudioDuration = uint64(len(opts.AudioBytes))
	}

	ftyp := buildFtyp(opts.Brand)

	// The audio chunk's absolute file position depends on everything
	// preceding mdat, so moov is serialized twice: once to measure its
	// length, once (with the now-known mdat offset) for real. Simpler than
	// threading a forward reference through every builder.
	placeholderMoov := buildMoov(opts, 0)
	mdatHeaderLen := uint64(8)
	audioPos := uint64(len(ftyp)) + uint64(len(placeholderMoov)) + mdatHeaderLen

	moov := buildMoov(opts, audioPos)

	var out bytes.Buffer
	out.Write(ftyp)
	out.Write(moov)
	writeAtomHead(&out, uint32(mdatHeaderLen+uint64(len(opts.AudioBytes))), "mdat")
	out.Write(opts.AudioBytes)

	return out.Bytes()
}

func writeAtomHead(buf *bytes.Buffer, size uint32, fourcc string) {
	var head [8]byte
	binary.BigEndian.PutUint32(head[0:4], size)
	copy(head[4:8], fourcc)
	buf.Write(head[:])
}

func buildFtyp(brand string) []byte {
	var content bytes.Buffer
	content.WriteString(brand)
	var minorVersion [4]byte
	content.Write(minorVersion[:])
	content.WriteString(brand) // one compatible brand, matching major

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "ftyp")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildMoov(opts Options, audioPos uint64) []byte {
	mvhd := buildMvhd(opts.MovieTimescale, opts.AudioDuration*uint64(opts.MovieTimescale)/uint64(opts.AudioTimescale))
	trak := buildAudioTrak(opts, audioPos)

	var content bytes.Buffer
	content.Write(mvhd)
	content.Write(trak)

	if len(opts.Items) > 0 || len(opts.Chapters) > 0 {
		content.Write(buildUdta(opts))
	}

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "moov")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildMvhd(timescale uint32, duration uint64) []byte {
	var content bytes.Buffer
	content.Write([]byte{0, 0, 0, 0}) // version 0, flags 0
	content.Write(make([]byte, 8))    // create+modify time
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], timescale)
	content.Write(ts[:])
	var dur [4]byte
	binary.BigEndian.PutUint32(dur[:], uint32(duration))
	content.Write(dur[:])
	content.Write(make([]byte, 80)) // rate, volume, reserved, matrix, predefined, next_track_id (approx)

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "mvhd")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildAudioTrak(opts Options, audioPos uint64) []byte {
	tkhd := buildTkhd(1, opts.AudioDuration*uint64(opts.MovieTimescale)/uint64(opts.AudioTimescale))
	mdia := buildAudioMdia(opts, audioPos)

	var content bytes.Buffer
	content.Write(tkhd)
	content.Write(mdia)

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "trak")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildTkhd(trackID uint32, duration uint64) []byte {
	var content bytes.Buffer
	content.Write([]byte{0, 0, 0, 1}) // version 0, flags = enabled
	content.Write(make([]byte, 8))    // create+modify
	var id [4]byte
	binary.BigEndian.PutUint32(id[:], trackID)
	content.Write(id[:])
	content.Write(make([]byte, 4)) // reserved
	var dur [4]byte
	binary.BigEndian.PutUint32(dur[:], uint32(duration))
	content.Write(dur[:])
	content.Write(make([]byte, 60)) // reserved, layer, alt group, volume, reserved, matrix, width, height

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "tkhd")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildAudioMdia(opts Options, audioPos uint64) []byte {
	mdhd := buildMdhd(opts.AudioTimescale, opts.AudioDuration)
	hdlr := buildHdlr("soun")
	minf := buildAudioMinf(opts, audioPos)

	var content bytes.Buffer
	content.Write(mdhd)
	content.Write(hdlr)
	content.Write(minf)

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "mdia")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildMdhd(timescale uint32, duration uint64) []byte {
	var content bytes.Buffer
	content.Write([]byte{0, 0, 0, 0})
	content.Write(make([]byte, 8))
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], timescale)
	content.Write(ts[:])
	var dur [4]byte
	binary.BigEndian.PutUint32(dur[:], uint32(duration))
	content.Write(dur[:])
	content.Write(make([]byte, 4)) // language + quality

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "mdhd")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildHdlr(handlerType string) []byte {
	var content bytes.Buffer
	content.Write(make([]byte, 4)) // version+flags
	content.Write(make([]byte, 4)) // predefined
	content.WriteString(handlerType)
	content.Write(make([]byte, 12)) // reserved

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "hdlr")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildAudioMinf(opts Options, audioPos uint64) []byte {
	stbl := buildAudioStbl(opts, audioPos)

	var content bytes.Buffer
	content.Write(stbl)

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "minf")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildAudioStbl(opts Options, audioPos uint64) []byte {
	stsd := buildMinimalStsd("mp4a")
	stts := buildSingleEntryStts(opts.AudioDuration)
	stsc := buildSingleChunkStsc()
	stsz := buildUniformStsz(uint32(len(opts.AudioBytes)), 1)
	stco := buildSingleChunkStco(audioPos)

	var content bytes.Buffer
	content.Write(stsd)
	content.Write(stts)
	content.Write(stsc)
	content.Write(stsz)
	content.Write(stco)

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "stbl")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildMinimalStsd(sampleEntryFourcc string) []byte {
	var entryContent bytes.Buffer
	entryContent.Write(make([]byte, 28)) // fixed AudioSampleEntry fields, no esds

	var entry bytes.Buffer
	writeAtomHead(&entry, uint32(8+entryContent.Len()), sampleEntryFourcc)
	entry.Write(entryContent.Bytes())

	var content bytes.Buffer
	content.Write(make([]byte, 4)) // version+flags
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], 1)
	content.Write(count[:])
	content.Write(entry.Bytes())

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "stsd")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildSingleEntryStts(sampleDelta uint64) []byte {
	var content bytes.Buffer
	content.Write(make([]byte, 4)) // version+flags
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], 1)
	content.Write(count[:])
	var entry [8]byte
	binary.BigEndian.PutUint32(entry[0:4], 1)
	binary.BigEndian.PutUint32(entry[4:8], uint32(sampleDelta))
	content.Write(entry[:])

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "stts")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildSingleChunkStsc() []byte {
	var content bytes.Buffer
	content.Write(make([]byte, 4))
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], 1)
	content.Write(count[:])
	var entry [12]byte
	binary.BigEndian.PutUint32(entry[0:4], 1)
	binary.BigEndian.PutUint32(entry[4:8], 1)
	binary.BigEndian.PutUint32(entry[8:12], 1)
	content.Write(entry[:])

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "stsc")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildUniformStsz(size uint32, count uint32) []byte {
	var content bytes.Buffer
	content.Write(make([]byte, 4))
	var sz [4]byte
	binary.BigEndian.PutUint32(sz[:], size)
	content.Write(sz[:])
	var cnt [4]byte
	binary.BigEndian.PutUint32(cnt[:], count)
	content.Write(cnt[:])

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "stsz")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildSingleChunkStco(pos uint64) []byte {
	var content bytes.Buffer
	content.Write(make([]byte, 4))
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], 1)
	content.Write(count[:])
	var off [4]byte
	binary.BigEndian.PutUint32(off[:], uint32(pos))
	content.Write(off[:])

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "stco")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildUdta(opts Options) []byte {
	var content bytes.Buffer
	if len(opts.Items) > 0 {
		content.Write(buildMeta(opts.Items))
	}
	if len(opts.Chapters) > 0 {
		content.Write(buildChpl(opts.Chapters))
	}

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "udta")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildMeta(items []Item) []byte {
	var content bytes.Buffer
	content.Write(make([]byte, 4)) // version+flags
	content.Write(buildHdlr("mdir"))
	content.Write(buildIlst(items))

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "meta")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildIlst(items []Item) []byte {
	var content bytes.Buffer
	for _, it := range items {
		content.Write(buildItem(it))
	}

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "ilst")
	out.Write(content.Bytes())
	return out.Bytes()
}

func buildItem(it Item) []byte {
	var dataContent bytes.Buffer
	var typeAndLocale [8]byte
	binary.BigEndian.PutUint32(typeAndLocale[0:4], 1) // UTF-8
	dataContent.Write(typeAndLocale[:])
	dataContent.WriteString(it.Text)

	var data bytes.Buffer
	writeAtomHead(&data, uint32(8+dataContent.Len()), "data")
	data.Write(dataContent.Bytes())

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+data.Len()), string(it.Fourcc[:]))
	out.Write(data.Bytes())
	return out.Bytes()
}

func buildChpl(chapters []Chapter) []byte {
	var content bytes.Buffer
	content.Write(make([]byte, 4)) // version+flags
	content.WriteByte(byte(len(chapters)))
	for _, c := range chapters {
		var head [9]byte
		binary.BigEndian.PutUint64(head[0:8], c.StartMillis*10000) // ms -> 100ns ticks
		head[8] = byte(len(c.Title))
		content.Write(head[:])
		content.WriteString(c.Title)
	}

	var out bytes.Buffer
	writeAtomHead(&out, uint32(8+content.Len()), "chpl")
	out.Write(content.Bytes())
	return out.Bytes()
}
