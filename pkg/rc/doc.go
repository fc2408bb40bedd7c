// Package rc implements the stable result-code taxonomy of spec §7,
// used only at the C9 façade boundary: internal packages return plain
// Go errors, and pkg/server classifies them into a rc.Code plus human
// text before returning to a caller. Grounded on
// original_source/drbdmanage/server.py's DM_* constants and the
// add_rc_entry/fn_rc accumulation pattern.
package rc
