package occ

// Enum models an enum type. Its named constants live as ordinary-
// namespace Symbols of kind SymConstant; Constants here is a
// non-owning back-reference used only for diagnostics and pretty
// printing (breaking the only potential ownership cycle in the data
// model, per spec.md §5).
type Enum struct {
	Tag       *Token
	IsDefined bool
	Constants []*Symbol
}

func NewEnum(tag *Token) *Enum {
	return &Enum{Tag: tag}
}
