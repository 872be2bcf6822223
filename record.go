package occ

// Member is one field of a Record. Name is nil for an anonymous
// sub-record member (spec.md §3 "members carry name token (may be
// null...)").
type Member struct {
	Name   *Token
	Type   Type
	Offset int
}

// Record models struct/union layout, including anonymous member
// flattening, the way original_source/core/cci/2-full/src/record.c
// computes it: members appended in declaration order, offsets
// assigned on the fly, and anonymous sub-record members re-keyed into
// the parent's lookup map at combined offsets.
type Record struct {
	Tag        *Token
	IsStruct   bool // false => union
	IsDefined  bool
	Alignment  int
	Size       int
	Members    []*Member
	byName     map[string]memberRef
}

type memberRef struct {
	member *Member
	offset int
}

func NewRecord(tag *Token, isStruct bool) *Record {
	return &Record{Tag: tag, IsStruct: isStruct, byName: map[string]memberRef{}}
}

// AddMember appends a new member, computing its offset and updating
// record size/alignment. name may be nil for an anonymous member,
// which must itself be of record type; its own member map is merged
// into this record's at name+member offsets.
func (r *Record) AddMember(name *Token, typ Type) error {
	var last *Member
	if len(r.Members) > 0 {
		last = r.Members[len(r.Members)-1]
	}
	if last != nil && IsFlexibleArray(last.Type) {
		return failTok(name, ErrInvalidInitializer, "only the last member of a struct may be an array of zero/indeterminate length")
	}
	if IsFlexibleArray(typ) && !r.IsStruct {
		return failTok(name, ErrInvalidInitializer, "unions cannot contain flexible array members")
	}

	offset := 0
	if r.IsStruct && last != nil {
		offset = last.Offset + Size(last.Type)
	}

	align := Alignment(typ)
	if r.Alignment < align {
		r.Alignment = align
	}
	offset = alignUp(offset, align)

	member := &Member{Name: name, Type: typ, Offset: offset}
	r.Members = append(r.Members, member)

	if name != nil {
		if err := r.addToTable(member, offset); err != nil {
			return err
		}
	} else {
		rec, ok := IsRecord(typ)
		if !ok {
			return internalError("anonymous member must be of record type")
		}
		if err := r.addAnonymousToTable(rec, offset); err != nil {
			return err
		}
	}

	extent := 0
	if !IsFlexibleArray(typ) {
		extent = Size(typ)
	}
	end := alignUp(offset+extent, r.Alignment)
	if end > r.Size {
		r.Size = end
	}
	return nil
}

func (r *Record) addToTable(member *Member, offset int) error {
	name := member.Name.Value.Bytes
	if _, ok := r.byName[name]; ok {
		return failTok(member.Name, ErrDuplicateMember, "duplicate member %q", name)
	}
	r.byName[name] = memberRef{member: member, offset: offset}
	return nil
}

func (r *Record) addAnonymousToTable(child *Record, baseOffset int) error {
	for name, ref := range child.byName {
		if _, ok := r.byName[name]; ok {
			return fail(SourceLocation{}, ErrDuplicateMember, "duplicate member %q via anonymous nesting", name)
		}
		r.byName[name] = memberRef{member: ref.member, offset: baseOffset + ref.offset}
	}
	return nil
}

// Find looks up name, walking across anonymous nesting, and returns
// its leaf type and combined offset from the start of the record.
func (r *Record) Find(name string) (Type, int, bool) {
	ref, ok := r.byName[name]
	if !ok {
		return nil, 0, false
	}
	return ref.member.Type, ref.offset, true
}

// Finish marks the record complete, validating the size/alignment
// invariant from spec.md §8.
func (r *Record) Finish() error {
	if len(r.Members) == 0 {
		return fail(SourceLocation{}, ErrInvalidInitializer, "empty struct/union is not allowed")
	}
	if r.Alignment == 0 {
		r.Alignment = 1
	}
	r.Size = alignUp(r.Size, r.Alignment)
	r.IsDefined = true
	return nil
}

func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
