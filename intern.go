package occ

// Str is an interned byte sequence. Two Str values denote the same
// text if and only if they are the same pointer: identity is
// equality. Strs are created on demand by Intern; NewInterner starts
// with an empty table.
type Str struct {
	Bytes string
	hash  uint64
}

func (s *Str) String() string { return s.Bytes }

// Interner owns the canonical mapping from byte sequence to Str. It
// only ever grows: the table keeps every Str it created alive for the
// Interner's lifetime, so nothing is freed per Str, in place of the
// manual refcounting the original implementation does by hand.
type Interner struct {
	table map[string]*Str
}

func NewInterner() *Interner {
	return &Interner{table: make(map[string]*Str, 256)}
}

// Intern returns the canonical *Str for s, creating it on first use.
func (in *Interner) Intern(s string) *Str {
	if str, ok := in.table[s]; ok {
		return str
	}
	str := &Str{Bytes: s, hash: fnv64a(s)}
	in.table[s] = str
	return str
}

func fnv64a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
