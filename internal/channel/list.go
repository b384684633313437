package channel

// List is the ordered channel list of one scan session. Entries are only
// appended while sweeping; Dedupe is the only operation that removes them.
// A List is owned by a single goroutine.
type List struct {
	entries []Entry
}

func NewList() *List {
	return &List{}
}

// Append adds an entry at the end of the list.
func (l *List) Append(e Entry) {
	l.entries = append(l.entries, e)
}

func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in list order.
func (l *List) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}
