package occ

// SymbolKind distinguishes the things that can live in the ordinary
// namespace (spec.md §3).
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
	SymConstant // enum constant
	SymTypedef
	SymBuiltin
)

// Linkage follows C17 6.2.2.
type Linkage int

const (
	LinkageNone Linkage = iota
	LinkageInternal
	LinkageExternal
)

// Symbol is an entry in one of a Scope's three namespaces.
type Symbol struct {
	Name       *Token
	AsmName    string // external symbol name; defaults to Name, overridden by __asm__("...")
	Kind       SymbolKind
	Type       Type
	Linkage    Linkage
	IsDefined  bool
	IsTentative bool
	IsHidden   bool // synthetic global shadowing a block-scope extern

	// Constant value, valid when Kind == SymConstant.
	ConstValue uint64
	ConstIsSigned bool

	// Typedef target, valid when Kind == SymTypedef.
	TypedefType Type

	// Frame offset for local variables/parameters, assigned by codegen.
	FrameOffset int
	IsGlobal    bool
}

func (s *Symbol) AsmOrName() string {
	if s.AsmName != "" {
		return s.AsmName
	}
	return s.Name.Value.Bytes
}

// Scope is one level of C's lexically nested scope stack, holding
// three independent namespaces (spec.md §4.3): ordinary
// (variables/functions/enum constants), tag (struct/union/enum tags),
// and typedef.
type Scope struct {
	parent   *Scope
	ordinary map[string]*Symbol
	tags     map[string]*tagEntry
	typedefs map[string]*Symbol
}

type tagEntry struct {
	record *Record
	enum   *Enum
}

func newScope(parent *Scope) *Scope {
	return &Scope{
		parent:   parent,
		ordinary: map[string]*Symbol{},
		tags:     map[string]*tagEntry{},
		typedefs: map[string]*Symbol{},
	}
}

// ScopeStack is the stack of nested Scopes a Compiler maintains in
// place of onramp's process-global scope_current/scope_global
// (spec.md §9).
type ScopeStack struct {
	global  *Scope
	current *Scope
}

func NewScopeStack() *ScopeStack {
	g := newScope(nil)
	return &ScopeStack{global: g, current: g}
}

func (s *ScopeStack) Global() *Scope  { return s.global }
func (s *ScopeStack) Current() *Scope { return s.current }

func (s *ScopeStack) Push() *Scope {
	s.current = newScope(s.current)
	return s.current
}

func (s *ScopeStack) Pop() {
	if s.current == s.global {
		panic(internalError("cannot pop the global scope"))
	}
	s.current = s.current.parent
}

// FindSymbol looks up name in the ordinary namespace, walking upward
// if recursive is true. Idempotent: repeated lookups with the same
// arguments return the same *Symbol (spec.md §8).
func (s *ScopeStack) FindSymbol(name string, recursive bool) *Symbol {
	for sc := s.current; sc != nil; sc = sc.parent {
		if sym, ok := sc.ordinary[name]; ok {
			return sym
		}
		if !recursive {
			return nil
		}
	}
	return nil
}

func (s *ScopeStack) DeclareSymbol(name string, sym *Symbol) {
	s.current.ordinary[name] = sym
}

// DeclareHiddenGlobal registers sym in the global scope's ordinary
// namespace, marked hidden, to support cross-block type checking of
// block-scope `extern` declarations (spec.md §4.4).
func (s *ScopeStack) DeclareHiddenGlobal(name string, sym *Symbol) {
	if existing, ok := s.global.ordinary[name]; ok {
		s.global.ordinary[name] = existing
		return
	}
	hidden := *sym
	hidden.IsHidden = true
	s.global.ordinary[name] = &hidden
}

func (s *ScopeStack) FindTag(name string, recursive bool) (*Record, *Enum) {
	for sc := s.current; sc != nil; sc = sc.parent {
		if t, ok := sc.tags[name]; ok {
			return t.record, t.enum
		}
		if !recursive {
			return nil, nil
		}
	}
	return nil, nil
}

func (s *ScopeStack) DeclareRecordTag(name string, r *Record) {
	s.current.tags[name] = &tagEntry{record: r}
}

func (s *ScopeStack) DeclareEnumTag(name string, e *Enum) {
	s.current.tags[name] = &tagEntry{enum: e}
}

// FindTagInCurrentScope restricts lookup to the innermost scope, used
// by forward tag declarations (spec.md §4.4).
func (s *ScopeStack) FindTagInCurrentScope(name string) (*Record, *Enum) {
	if t, ok := s.current.tags[name]; ok {
		return t.record, t.enum
	}
	return nil, nil
}

func (s *ScopeStack) FindTypedef(name string, recursive bool) *Symbol {
	for sc := s.current; sc != nil; sc = sc.parent {
		if sym, ok := sc.typedefs[name]; ok {
			return sym
		}
		if !recursive {
			return nil
		}
	}
	return nil
}

func (s *ScopeStack) DeclareTypedef(name string, sym *Symbol) {
	s.current.typedefs[name] = sym
}
