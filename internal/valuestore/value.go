package valuestore

// Value is the parsed form of a raw string from the document tree: a
// sequence of literal text and $(NAME) references. This gives Resolve a
// concrete AST to walk instead of re-scanning the raw string with regexes
// at every nesting level (spec.md §9: "model as Value = Atom(string) |
// Ref(name) | Concat([Value])").
type Value interface {
	isValue()
}

// Atom is a literal run of text with no further expansion.
type Atom string

func (Atom) isValue() {}

// Ref is a $(NAME) or $(NAME:list_sep="SEP") reference.
type Ref struct {
	Name    string
	ListSep string // defaults to " " when empty
}

func (Ref) isValue() {}

// Concat is an ordered sequence of sub-values whose resolved text is
// joined without a separator (adjacent literal/reference runs).
type Concat []Value

func (Concat) isValue() {}

// Parse splits raw into a Concat of Atom and Ref values by scanning for
// $(NAME) / $(NAME:list_sep="SEP") occurrences.
func Parse(raw string) Value {
	matches := refPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return Atom(raw)
	}

	var parts Concat
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > last {
			parts = append(parts, Atom(raw[last:start]))
		}
		name := raw[m[2]:m[3]]
		sep := " "
		if m[4] >= 0 {
			sep = raw[m[4]:m[5]]
		}
		parts = append(parts, Ref{Name: name, ListSep: sep})
		last = end
	}
	if last < len(raw) {
		parts = append(parts, Atom(raw[last:]))
	}
	return parts
}
