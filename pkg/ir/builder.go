package ir

type link struct {
	proc Procedure
	next *link
}

// Builder is an ordered procedure sequence. Append and Concat are O(1);
// a Builder passed to Concat must not be used afterwards.
type Builder struct {
	head, tail *link
	n          int
}

func NewBuilder(procs ...Procedure) *Builder {
	b := &Builder{}
	for _, p := range procs {
		b.Append(p)
	}
	return b
}

func (b *Builder) Append(p Procedure) *Builder {
	l := &link{proc: p}
	if b.tail == nil {
		b.head = l
	} else {
		b.tail.next = l
	}
	b.tail = l
	b.n++
	return b
}

func (b *Builder) Concat(other *Builder) *Builder {
	if other == nil || other.head == nil {
		return b
	}
	if b.tail == nil {
		b.head = other.head
	} else {
		b.tail.next = other.head
	}
	b.tail = other.tail
	b.n += other.n
	other.head, other.tail, other.n = nil, nil, 0
	return b
}

func (b *Builder) Len() int { return b.n }

func (b *Builder) Each(fn func(Procedure)) {
	if b == nil {
		return
	}
	for l := b.head; l != nil; l = l.next {
		fn(l.proc)
	}
}

// Procs copies the sequence into a slice.
func (b *Builder) Procs() []Procedure {
	out := make([]Procedure, 0, b.Len())
	b.Each(func(p Procedure) { out = append(out, p) })
	return out
}

// Last returns the final procedure, or nil.
func (b *Builder) Last() Procedure {
	if b == nil || b.tail == nil {
		return nil
	}
	return b.tail.proc
}
