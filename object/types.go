package object

import "fmt"

// ---------------------------------------------------------------------------
// Scalar type tags
// ---------------------------------------------------------------------------

// Type is the scalar type tag of an object. It never changes after the
// object is created.
type Type uint8

const (
	TypeAny Type = iota // wildcard, matches every other type
	TypeCallable
	TypeAttribute
	TypeBase
	TypeBoolean
	TypeNull
	TypeNumerical
	TypeRegex
	TypeString
	TypeHash
	TypeTuple
	TypeUser
	TypeList
	TypeException
)

// NumTypes is the number of distinct type tags.
const NumTypes = 14

var typeNames = [NumTypes]string{
	"any",
	"callable",
	"attribute",
	"base",
	"boolean",
	"null",
	"numerical",
	"regex",
	"string",
	"hash",
	"tuple",
	"user",
	"list",
	"exception",
}

// String returns the lower-case type name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Matches reports whether t satisfies the wanted type. TypeAny matches
// everything.
func (t Type) Matches(want Type) bool {
	return want == TypeAny || t == want
}

// ---------------------------------------------------------------------------
// Object flags
// ---------------------------------------------------------------------------

// Flags packs the object kind together with mutability, allocation and
// finalization flags.
type Flags uint32

const (
	KindClass     Flags = 1 // object is a class
	KindInterface Flags = 2 // object is an interface
	KindAbstract  Flags = 4 // object is an abstract class
	KindInstance  Flags = 8 // object is an instance
	KindMask      Flags = 15

	FlagImmutable Flags = 16 // object is immutable, never cleared
	FlagAllocated Flags = 32 // object was allocated and may be freed
	FlagFinal     Flags = 64 // object is finalized
	FlagMask      Flags = 112
)

// Kind returns only the kind bits.
func (f Flags) Kind() Flags {
	return f & KindMask
}

// Has reports whether every bit in mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// ---------------------------------------------------------------------------
// Attribute descriptors
// ---------------------------------------------------------------------------

// AttribKind says what an attribute table entry holds.
type AttribKind uint8

const (
	AttribMethod AttribKind = iota
	AttribProperty
	AttribConstant
)

func (k AttribKind) String() string {
	switch k {
	case AttribMethod:
		return "method"
	case AttribProperty:
		return "property"
	case AttribConstant:
		return "constant"
	default:
		return fmt.Sprintf("AttribKind(%d)", k)
	}
}

// Visibility controls who may access an attribute.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityProtected
	VisibilityPrivate
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityProtected:
		return "protected"
	case VisibilityPrivate:
		return "private"
	default:
		return fmt.Sprintf("Visibility(%d)", v)
	}
}

// MethodFlags mark special methods.
type MethodFlags uint8

const (
	MethodNone     MethodFlags = 0
	MethodCtor     MethodFlags = 1 << 0
	MethodDtor     MethodFlags = 1 << 1
	MethodStatic   MethodFlags = 1 << 2
	MethodAbstract MethodFlags = 1 << 3
)
