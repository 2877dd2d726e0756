package hedgedoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf16"
)

// Mode selects how new content is applied to a note
type Mode string

const (
	// ModeOverride replaces the whole note
	ModeOverride Mode = "override"
	// ModeAppend inserts after the existing text
	ModeAppend Mode = "append"
)

// ModeFromAppend maps the HTTP append flag onto a Mode
func ModeFromAppend(appendContent bool) Mode {
	if appendContent {
		return ModeAppend
	}
	return ModeOverride
}

// Snapshot is the document state pushed by the server after join
type Snapshot struct {
	Text     string `json:"str"`
	Revision int    `json:"revision"`
}

// Component is one element of an operation: retain, delete or insert
type Component struct {
	count  int
	text   string
	insert bool
}

// Retain keeps n characters unchanged
func Retain(n int) Component { return Component{count: n} }

// Delete removes n characters
func Delete(n int) Component { return Component{count: -n} }

// Insert adds literal text
func Insert(s string) Component { return Component{text: s, insert: true} }

// IsRetain reports whether c is a retain component
func (c Component) IsRetain() bool { return !c.insert && c.count > 0 }

// IsDelete reports whether c is a delete component
func (c Component) IsDelete() bool { return !c.insert && c.count < 0 }

// IsInsert reports whether c is an insert component
func (c Component) IsInsert() bool { return c.insert }

// Count is the retain (positive) or delete (negative) length
func (c Component) Count() int { return c.count }

// Text is the inserted text
func (c Component) Text() string { return c.text }

// MarshalJSON encodes retain/delete as numbers and inserts as strings
func (c Component) MarshalJSON() ([]byte, error) {
	if !c.insert {
		return []byte(strconv.Itoa(c.count)), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c.text); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Range is a CodeMirror selection range
type Range struct {
	Anchor int `json:"anchor"`
	Head   int `json:"head"`
}

// Selection is the cursor hint attached to selections and operations
type Selection struct {
	Ranges []Range `json:"ranges"`
}

func cursorAt(pos int) Selection {
	return Selection{Ranges: []Range{{Anchor: pos, Head: pos}}}
}

// CursorActivity mirrors the cursor event a browser client emits
type CursorActivity struct {
	Line   int     `json:"line"`
	Ch     int     `json:"ch"`
	Sticky *string `json:"sticky"`
}

// Operation is an edit anchored to the revision it was computed against
type Operation struct {
	Revision  int
	Ops       []Component
	Selection Selection
}

// Args returns the positional arguments of the "operation" event
func (o Operation) Args() []any {
	return []any{o.Revision, o.Ops, o.Selection}
}

// Step is one outbound event of a plan, sent after Delay has elapsed
type Step struct {
	Delay   time.Duration
	Event   string
	Payload any
}

func (s Step) args() []any {
	if op, ok := s.Payload.(Operation); ok {
		return op.Args()
	}
	return []any{s.Payload}
}

// Plan is the ordered list of events that applies one mutation
type Plan struct {
	Steps []Step
}

// Operations returns the edit operations of the plan in send order
func (p Plan) Operations() []Operation {
	var ops []Operation
	for _, s := range p.Steps {
		if op, ok := s.Payload.(Operation); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// BuildPlan computes the events that apply content to snap in the given mode.
// insertDelay separates the delete and insert operations of an override so the
// server has applied the delete (and bumped the revision) before the insert arrives.
func BuildPlan(snap Snapshot, mode Mode, content string, insertDelay time.Duration) (Plan, error) {
	existing := textLen(snap.Text)
	added := textLen(content)

	switch mode {
	case ModeOverride:
		if existing == 0 {
			return insertOnly(snap, content, added), nil
		}
		return Plan{Steps: []Step{
			{Event: EventSelection, Payload: Selection{Ranges: []Range{{Anchor: 0, Head: existing}}}},
			{Event: EventCursorActivity, Payload: CursorActivity{Line: 0, Ch: existing}},
			{Event: EventOperation, Payload: Operation{
				Revision:  snap.Revision,
				Ops:       []Component{Delete(existing)},
				Selection: cursorAt(0),
			}},
			{Delay: insertDelay, Event: EventOperation, Payload: Operation{
				Revision:  snap.Revision + 1,
				Ops:       []Component{Insert(content)},
				Selection: cursorAt(added),
			}},
		}}, nil
	case ModeAppend:
		if existing == 0 {
			return insertOnly(snap, content, added), nil
		}
		return Plan{Steps: []Step{
			{Event: EventOperation, Payload: Operation{
				Revision:  snap.Revision,
				Ops:       []Component{Retain(existing), Insert(content)},
				Selection: cursorAt(existing + added),
			}},
		}}, nil
	default:
		return Plan{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

func insertOnly(snap Snapshot, content string, added int) Plan {
	return Plan{Steps: []Step{
		{Event: EventOperation, Payload: Operation{
			Revision:  snap.Revision,
			Ops:       []Component{Insert(content)},
			Selection: cursorAt(added),
		}},
	}}
}

// textLen counts UTF-16 code units, the unit the editor's OT positions use
func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
