// Package clarity models the Clarity type and value system consumed by the fuzzer. Parameter types form a sealed
// sum type so that generation, materialization and trait resolution can dispatch exhaustively over every variant.
package clarity

import (
	"fmt"
	"strings"
)

// ParameterType describes the type of a single Clarity function parameter. It is a sealed interface: the only
// implementations live in this package, so a type switch over all variants is exhaustive and any unhandled case
// indicates a programming error rather than user input.
type ParameterType interface {
	// String returns the Clarity source representation of the type.
	String() string

	// isParameterType restricts implementations to this package.
	isParameterType()
}

// TraitDescriptor describes a resolved trait reference: the trait's declared name and the identity of the contract
// which defines it. It is attached to TraitReferenceType nodes by the trait resolver.
type TraitDescriptor struct {
	// Name describes the name the trait was declared with, e.g. "token-trait".
	Name string

	// OriginIssuer describes the issuing principal of the contract defining the trait.
	OriginIssuer string

	// OriginContractName describes the name of the contract defining the trait.
	OriginContractName string
}

// Equal returns whether two descriptors refer to the same trait. Issuers compare as raw text without checksum
// normalization, preserving the exact matching semantics of non-normalized descriptor comparison.
func (d *TraitDescriptor) Equal(other *TraitDescriptor) bool {
	return d.Name == other.Name && d.OriginIssuer == other.OriginIssuer
}

// String returns the fully-qualified trait identifier.
func (d *TraitDescriptor) String() string {
	return fmt.Sprintf("%s.%s.%s", d.OriginIssuer, d.OriginContractName, d.Name)
}

// NoneType describes the type of the none value. It only appears in interface output positions (e.g. the error
// side of a response that can never fail); it is never a parameter type.
type NoneType struct{}

// IntType describes a 128-bit signed integer type.
type IntType struct{}

// UintType describes a 128-bit unsigned integer type.
type UintType struct{}

// BoolType describes a boolean type.
type BoolType struct{}

// PrincipalType describes a standard or contract principal type.
type PrincipalType struct{}

// TraitReferenceType describes a parameter typed as "any contract implementing trait X". Trait is nil on types read
// straight from the VM's compiled interface and is populated during enrichment by the trait resolver. Generators must
// never observe a nil Trait; eligibility filtering guarantees it.
type TraitReferenceType struct {
	Trait *TraitDescriptor
}

// BufferType describes a byte buffer type with a maximum length.
type BufferType struct {
	MaxLength int
}

// StringAsciiType describes a printable-ASCII string type with a maximum length.
type StringAsciiType struct {
	MaxLength int
}

// StringUtf8Type describes a UTF-8 string type with a maximum length (in code points).
type StringUtf8Type struct {
	MaxLength int
}

// ListType describes a homogeneous list type with a maximum length.
type ListType struct {
	Element   ParameterType
	MaxLength int
}

// TupleField describes one named field of a tuple type.
type TupleField struct {
	Name string
	Type ParameterType
}

// TupleType describes a named-field record type. Field order is preserved as declared.
type TupleType struct {
	Fields []TupleField
}

// OptionalType describes an optional wrapper around an inner type.
type OptionalType struct {
	Inner ParameterType
}

// ResponseType describes a response type with distinct ok and error payload types.
type ResponseType struct {
	Ok    ParameterType
	Error ParameterType
}

func (t *NoneType) isParameterType()           {}
func (t *IntType) isParameterType()            {}
func (t *UintType) isParameterType()           {}
func (t *BoolType) isParameterType()           {}
func (t *PrincipalType) isParameterType()      {}
func (t *TraitReferenceType) isParameterType() {}
func (t *BufferType) isParameterType()         {}
func (t *StringAsciiType) isParameterType()    {}
func (t *StringUtf8Type) isParameterType()     {}
func (t *ListType) isParameterType()           {}
func (t *TupleType) isParameterType()          {}
func (t *OptionalType) isParameterType()       {}
func (t *ResponseType) isParameterType()       {}

func (t *NoneType) String() string      { return "none" }
func (t *IntType) String() string       { return "int" }
func (t *UintType) String() string      { return "uint" }
func (t *BoolType) String() string      { return "bool" }
func (t *PrincipalType) String() string { return "principal" }

func (t *TraitReferenceType) String() string {
	if t.Trait != nil {
		return fmt.Sprintf("<%s>", t.Trait.Name)
	}
	return "<trait>"
}

func (t *BufferType) String() string      { return fmt.Sprintf("(buff %d)", t.MaxLength) }
func (t *StringAsciiType) String() string { return fmt.Sprintf("(string-ascii %d)", t.MaxLength) }
func (t *StringUtf8Type) String() string  { return fmt.Sprintf("(string-utf8 %d)", t.MaxLength) }

func (t *ListType) String() string {
	return fmt.Sprintf("(list %d %s)", t.MaxLength, t.Element.String())
}

func (t *TupleType) String() string {
	fields := make([]string, len(t.Fields))
	for i, field := range t.Fields {
		fields[i] = fmt.Sprintf("%s: %s", field.Name, field.Type.String())
	}
	return fmt.Sprintf("{%s}", strings.Join(fields, ", "))
}

func (t *OptionalType) String() string {
	return fmt.Sprintf("(optional %s)", t.Inner.String())
}

func (t *ResponseType) String() string {
	return fmt.Sprintf("(response %s %s)", t.Ok.String(), t.Error.String())
}

// FunctionAccess describes the access kind of a contract function.
type FunctionAccess string

const (
	// FunctionAccessPublic describes a state-changing function callable by anyone.
	FunctionAccessPublic FunctionAccess = "public"
	// FunctionAccessReadOnly describes a read-only function callable by anyone.
	FunctionAccessReadOnly FunctionAccess = "read_only"
	// FunctionAccessPrivate describes a function only callable from within its own contract.
	FunctionAccessPrivate FunctionAccess = "private"
)

// FunctionArg describes a single named parameter of a contract function.
type FunctionArg struct {
	// Name describes the parameter name as declared in the contract.
	Name string

	// Type describes the parameter type. After enrichment, any nested trait references carry resolved descriptors.
	Type ParameterType
}

// FunctionSignature describes one function of a contract's compiled interface. Signatures are immutable once read
// from the VM.
type FunctionSignature struct {
	// Name describes the function name.
	Name string

	// Access describes whether the function is public, read-only or private.
	Access FunctionAccess

	// Args describes the ordered function parameters.
	Args []FunctionArg

	// Outputs describes the function's return type, if the interface reports one.
	Outputs ParameterType
}

// String returns a human-readable signature, e.g. "(transfer (amount uint) (recipient principal))".
func (s *FunctionSignature) String() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, s.Name)
	for _, arg := range s.Args {
		parts = append(parts, fmt.Sprintf("(%s %s)", arg.Name, arg.Type.String()))
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}
