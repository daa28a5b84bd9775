package mp4

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// acceptedBrands are the ftyp major brands the engine recognizes (§6.1),
// compared case-insensitively.
var acceptedBrands = map[string]bool{
	"iso2": true,
	"isom": true,
	"m4a ": true,
	"m4b ": true,
	"m4p ": true,
	"m4v ": true,
	"mp41": true,
	"mp42": true,
}

// Tag is the top-level in-memory value a caller reads, mutates and writes
// back (§3.6). FileType and AudioInfo are read-only snapshots of what was on
// disk at read time; Items, ChapterList and ChapterTrack are mutable.
type Tag struct {
	// FileType is the ftyp major brand, e.g. "M4A ".
	FileType string

	// AudioInfo summarizes the primary audio track, when one was found and
	// ReadConfig.ReadAudioInfo was requested.
	AudioInfo   AudioInfo
	HasAudioInfo bool

	// Items holds the tag's metadata items in insertion order (§3.3).
	Items ItemList

	// ChapterList holds the embedded (Nero-style) chapter markers.
	ChapterList ChapterList

	// ChapterTrack holds the chapter markers as read from a synthesized
	// auxiliary text track, if one was present.
	ChapterTrack ChapterList

	// MovieTimescale is the units-per-second of the movie header's time
	// fields, needed to convert chapter-track media-time durations to and
	// from wall-clock time.
	MovieTimescale uint32

	// tree is the parsed record tree this tag was read from, retained so a
	// subsequent Write call can diff against it. It is nil for a tag built
	// purely in memory (no corresponding on-disk read).
	tree *fileTree
}

// Read parses an MPEG-4 container from r under cfg, producing a Tag.
func Read(r io.ReadSeeker, cfg ReadConfig) (*Tag, error) {
	tree, err := readTree(r, cfg)
	if err != nil {
		return nil, err
	}
	return tagFromTree(tree)
}

// Open reads a tag directly from a file path, a thin convenience wrapper
// around Read (the on-disk counterpart is Tag.WriteToFile).
func Open(path string, cfg ReadConfig) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr(err, "opening %s", path)
	}
	defer f.Close()
	return Read(f, cfg)
}

// Write applies the changes between the tag's original tree and its current
// in-memory state to rw in place, per the engine's plan-then-apply pipeline
// (§4.4, §4.5). Write requires that the tag was produced by Read/Open with
// ReadConfigForWrite (or an equivalent fully-materialized configuration);
// calling it on a tag built purely in memory returns AtomNotFound since
// there is no backing tree to diff against.
func (t *Tag) Write(rw io.ReadWriteSeeker, wcfg WriteConfig) error {
	if t.tree == nil {
		return newErr(KindAtomNotFound, "tag has no backing file tree to write against")
	}
	plan, err := buildPlan(t.tree, t, wcfg)
	if err != nil {
		return err
	}
	return applyPlan(rw, t.tree, plan, wcfg.Logger)
}

// WriteToFile applies Write to path atomically: path is opened read-only, a
// temporary copy is written and applied, and only renamed over path on
// success, per the atomic-rename failure-safety pattern (§4.5).
func (t *Tag) WriteToFile(path string, wcfg WriteConfig) error {
	src, err := os.Open(path)
	if err != nil {
		return ioErr(err, "opening %s", path)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(pathDir(path), ".mp4tag-*.tmp")
	if err != nil {
		return ioErr(err, "creating temp file for %s", path)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		tmp.Close()
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return ioErr(err, "copying %s to temp file", path)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return ioErr(err, "seeking temp file for %s", path)
	}

	if err := t.Write(tmp, wcfg); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return ioErr(err, "closing temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return ioErr(err, "renaming temp file over %s", path)
	}
	cleanup = false
	return nil
}

func pathDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// tagFromTree builds the public Tag view from a freshly parsed tree.
func tagFromTree(tree *fileTree) (*Tag, error) {
	brand := tree.majorBrand
	if brand == "" {
		return nil, newErr(KindNoTag, "no ftyp record found")
	}
	if !acceptedBrands[lowerBrand(brand)] {
		return nil, newErr(KindInvalidFiletype, "unrecognized major brand %q", brand)
	}

	t := &Tag{
		FileType:       brand,
		MovieTimescale: tree.movieTimescale,
		tree:           tree,
	}
	t.Items.set(tree.items)
	t.ChapterList.Set(tree.chapterList)
	t.ChapterTrack.Set(tree.chapterTrackEntries)
	if tree.hasAudioInfo {
		t.AudioInfo = tree.audioInfo
		t.HasAudioInfo = true
	}
	return t, nil
}

func lowerBrand(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Is reports whether err's kind matches target's, delegating to the
// standard errors package so callers can use errors.Is with a sentinel
// *Error built via a Kind alone (the teacher's pkg/errcodes As/Is pattern,
// adapted from *Error.Is).
func Is(err error, kind Kind) bool {
	return errors.As(err, new(*Error)) && func() bool {
		var e *Error
		errors.As(err, &e)
		return e.Kind == kind
	}()
}
