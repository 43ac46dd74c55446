package batch

// Section names the fixed slots a sectioned Accumulator finalizes in
// order (spec.md §4.8): pre, assign, sync, post-sync, post.
type Section string

const (
	SectionPre      Section = "pre"
	SectionAssign   Section = "assign"
	SectionSync     Section = "sync"
	SectionPostSync Section = "post-sync"
	SectionPost     Section = "post"
)

// sectionOrder is the fixed finalization order regardless of the order
// sections were appended to in.
var sectionOrder = []Section{SectionPre, SectionAssign, SectionSync, SectionPostSync, SectionPost}

// Accumulator collects commands into named sections and flattens them,
// in sectionOrder, into one command sequence once building is done.
type Accumulator struct {
	sections map[Section][]Command
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{sections: make(map[Section][]Command)}
}

// Add appends cmd to the named section, in the order Add is called.
func (a *Accumulator) Add(section Section, cmd Command) {
	a.sections[section] = append(a.sections[section], cmd)
}

// AddAll appends cmds to the named section, in order.
func (a *Accumulator) AddAll(section Section, cmds []Command) {
	a.sections[section] = append(a.sections[section], cmds...)
}

// Finalize flattens every section into one Command slice in the fixed
// section order (pre, assign, sync, post-sync, post), preserving each
// section's internal append order.
func (a *Accumulator) Finalize() []Command {
	var out []Command
	for _, s := range sectionOrder {
		out = append(out, a.sections[s]...)
	}
	return out
}
