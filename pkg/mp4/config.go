package mp4

import "github.com/rs/zerolog"

// ReadConfig gates which subtrees the reader descends into (§4.3). Disabled
// axes cause the reader to skip over the corresponding record rather than
// materialize it, which matters on real files where the sample tables the
// reader would otherwise have to walk can run to many megabytes.
type ReadConfig struct {
	// ReadMetaItems descends into udta/meta/ilst.
	ReadMetaItems bool
	// ReadChapterList descends into udta/chpl.
	ReadChapterList bool
	// ReadChapterTrack descends into trak subtrees referenced by tref/chap.
	ReadChapterTrack bool
	// ReadAudioInfo descends into the audio trak's stsd/mp4a/esds.
	ReadAudioInfo bool

	// Logger receives Warn diagnostics for conditions the reader tolerates
	// rather than fails on (an esds descriptor the AudioInfoResolver cannot
	// decode, per the open question in spec.md §9). Defaults to a no-op
	// logger.
	Logger zerolog.Logger

	// AudioInfoResolver decodes a located esds descriptor into channel
	// config, sample rate and bitrate fields. When nil, AudioInfo still
	// reports Duration (derived from mdhd/mvhd) but leaves the esds-derived
	// fields absent.
	AudioInfoResolver AudioInfoResolver

	// write is set internally by the full-round-trip config (ReadConfigForWrite)
	// to request shallow-to-full materialization of chunk-offset tables,
	// since every offset may need shifting.
	write bool
}

// ReadConfigForMetadata is the configuration a metadata-only read uses:
// items, chapters (both forms) and audio info, but no chunk-offset
// materialization since nothing will be written back.
func ReadConfigForMetadata() ReadConfig {
	return ReadConfig{
		ReadMetaItems:    true,
		ReadChapterList:  true,
		ReadChapterTrack: true,
		ReadAudioInfo:    true,
	}
}

// ReadConfigForWrite requests everything needed to round-trip a file: every
// axis above, plus full materialization of chunk-offset tables so the
// applier can shift them (§4.3: "The writer always requests shallow-to-full
// upgrade via the write axis").
func ReadConfigForWrite() ReadConfig {
	cfg := ReadConfigForMetadata()
	cfg.write = true
	return cfg
}

// ChapterWriteMode selects which on-disk chapter representation(s) a write
// maintains (§6.4).
type ChapterWriteMode int

const (
	// ChapterWriteNone writes no chapter information, removing any that
	// exists.
	ChapterWriteNone ChapterWriteMode = iota
	// ChapterWriteList writes the embedded chapter list (udta/chpl) only.
	ChapterWriteList
	// ChapterWriteTrack writes a synthesized chapter track only.
	ChapterWriteTrack
	// ChapterWriteBoth writes both representations.
	ChapterWriteBoth
)

func (m ChapterWriteMode) writeList() bool {
	return m == ChapterWriteList || m == ChapterWriteBoth
}

func (m ChapterWriteMode) writeTrack() bool {
	return m == ChapterWriteTrack || m == ChapterWriteBoth
}

// WriteConfig configures a write operation (§6.4).
type WriteConfig struct {
	// Chapters selects which chapter representation(s) to maintain.
	Chapters ChapterWriteMode

	// Logger receives Debug diagnostics about the applied change plan (an
	// empty plan, or the number of changes and structural changes). Free-space
	// absorption and chunk-offset shifts are not logged. Defaults to a no-op
	// logger.
	Logger zerolog.Logger
}
