package mp4

// hierarchy.go names the fixed ancestor chains of the metadata and chapter
// records (§4.4.4). reader.go and plan.go do not consult these tables; each
// hard-codes the chains it descends or synthesizes. Grounded
// on the nesting the original implementation hard-codes across its
// `atom/*.rs` modules (moov > udta > meta > ilst, trak > tref > chap, ...).

// metaPath is the chain from moov down to the metadata item list, required
// to exist (possibly freshly synthesized) whenever an item is being written.
var metaPath = []Fourcc{fourccMoov, fourccUdta, fourccMeta, fourccIlst}

// chplPath is the chain from moov down to the embedded Nero chapter list.
var chplPath = []Fourcc{fourccMoov, fourccUdta, fourccChpl}

// textTrakPath is the chain of atoms a synthesized chapter track's trak
// subtree is built from, in descent order. stbl's children are built
// separately (see chaptertrack.go) since their content depends on sample
// data, not a fixed template.
var textTrakPath = []Fourcc{fourccTkhd, fourccTref, fourccMdia}

// mdiaPath is the chain beneath mdia common to every track, audio or text.
var mdiaPath = []Fourcc{fourccMdhd, fourccHdlr, fourccMinf}

// emptyAtomContent returns the zero-value content bytes for a structural
// atom being synthesized fresh because no on-disk copy exists (§4.4.4). Only
// container atoms with no meaningful fixed fields beyond their children ever
// need this: meta's full-head-only body, ilst/udta/chap which are pure
// containers.
func emptyAtomContent(fourcc Fourcc) []byte {
	switch fourcc {
	case fourccMeta:
		// meta carries a 4-byte full-head (version+flags) before its
		// children.
		return make([]byte, fullHeadLen)
	default:
		return nil
	}
}

// isContainer reports whether fourcc is a pure container atom for the
// purposes of hierarchy synthesis, i.e. one the planner may need to create
// out of thin air with only its fixed header and no other fixed fields.
func isContainer(fourcc Fourcc) bool {
	switch fourcc {
	case fourccMoov, fourccUdta, fourccMeta, fourccIlst, fourccTrak, fourccTref, fourccMdia, fourccMinf, fourccStbl, fourccDinf:
		return true
	default:
		return false
	}
}
