package rc

import "fmt"

// Code is a stable integer result code (spec §7). Values are part of the
// RPC-facing contract and must never be renumbered once assigned.
type Code int

const (
	SUCCESS Code = iota
	ENOENT           // named entity not found
	EEXIST           // duplicate name/id
	EINVAL           // invalid argument or conflicting flags
	ENAME            // malformed name
	EPORT            // port allocation/range error
	EMINOR           // minor-number allocation/range error
	EVOLID           // volume-id allocation/range error
	EVOLSZ           // volume size out of range (e.g. shrink attempted)
	ENODEID          // node-id allocation exhausted
	ENODECNT         // too few nodes for requested redundancy
	ESECRETG         // secret generation failure
	EPERSIST         // persistence layer failure
	EPLUGIN          // pluggable component missing/invalid
	ESTORAGE         // storage backend call failed
	ECTRLVOL         // control-volume (re)configuration failed
	ENOTIMPL         // operation recognized but not implemented
	DEBUG            // internal/uncaught error, traceback in Details
)

var names = map[Code]string{
	SUCCESS:  "SUCCESS",
	ENOENT:   "ENOENT",
	EEXIST:   "EEXIST",
	EINVAL:   "EINVAL",
	ENAME:    "ENAME",
	EPORT:    "EPORT",
	EMINOR:   "EMINOR",
	EVOLID:   "EVOLID",
	EVOLSZ:   "EVOLSZ",
	ENODEID:  "ENODEID",
	ENODECNT: "ENODECNT",
	ESECRETG: "ESECRETG",
	EPERSIST: "EPERSIST",
	EPLUGIN:  "EPLUGIN",
	ESTORAGE: "ESTORAGE",
	ECTRLVOL: "ECTRLVOL",
	ENOTIMPL: "ENOTIMPL",
	DEBUG:    "DEBUG",
}

// String renders the symbolic name of a Code, or a numeric fallback for
// an unrecognized value.
func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Detail is a single key/value pair attached to a Result for additional
// context (entity name, offending value, ...), mirroring add_rc_entry's
// variadic detail pairs.
type Detail struct {
	Key   string
	Value string
}

// Result is one entry in a mutator's returned result list — a code, its
// human-readable text, and zero or more detail pairs.
type Result struct {
	Code    Code
	Text    string
	Details []Detail
}

// New returns a Result with no detail pairs.
func New(code Code, text string) Result {
	return Result{Code: code, Text: text}
}

// WithDetail returns a copy of r with an additional detail pair
// appended.
func (r Result) WithDetail(key, value string) Result {
	out := r
	out.Details = append(append([]Detail(nil), r.Details...), Detail{Key: key, Value: value})
	return out
}

// Ok reports whether r represents success.
func (r Result) Ok() bool { return r.Code == SUCCESS }

// List accumulates Results across one mutator invocation, mirroring the
// original's fn_rc list that add_rc_entry appends to.
type List []Result

// Add appends a new Result built from code/text/details to l.
func (l *List) Add(code Code, text string, details ...Detail) {
	*l = append(*l, Result{Code: code, Text: text, Details: details})
}

// AddSuccess appends a plain SUCCESS entry, used when a mutator
// completes without any other Result already recorded.
func (l *List) AddSuccess() {
	l.Add(SUCCESS, names[SUCCESS])
}

// FinalizeSuccess appends a SUCCESS entry if l is still empty, matching
// the "if len(fn_rc) == 0: add_rc_entry(fn_rc, DM_SUCCESS, ...)" pattern
// used at the end of every mutator in the original.
func (l *List) FinalizeSuccess() {
	if len(*l) == 0 {
		l.AddSuccess()
	}
}

// Ok reports whether every Result in l is SUCCESS (or l is empty).
func (l List) Ok() bool {
	for _, r := range l {
		if r.Code != SUCCESS {
			return false
		}
	}
	return true
}
