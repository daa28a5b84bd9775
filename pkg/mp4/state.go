package mp4

// state is the per-record mutation state the change planner consults
// (§4.4.1), grounded on the original implementation's `atom/state.rs`
// tri-state (Existing/Changed/Remove) plus the spec's explicit Insert case
// for atoms synthesized from nothing.
type state int

const (
	// stateExisting means the record is unchanged on disk.
	stateExisting state = iota
	// stateReplace means the record will be overwritten by a fresh
	// serialization.
	stateReplace
	// stateRemove means the record will be deleted.
	stateRemove
	// stateInsert means the record is new and has no prior bounds.
	stateInsert
)
