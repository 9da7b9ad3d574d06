package state

// Patch is the key→value delta a node handler returns to be merged
// into the state via Update (spec §3: "update(patch: map)"). It is a
// named type rather than a bare map so handler signatures across the
// exec/scheduler/engine packages read as domain types, not raw maps.
type Patch map[string]any
