package clarity

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Value describes a concrete Clarity value as accepted and returned by the VM. Like ParameterType it is a sealed
// sum type, so consumers can dispatch exhaustively.
type Value interface {
	// String returns the Clarity literal representation of the value.
	String() string

	// isValue restricts implementations to this package.
	isValue()
}

// IntValue describes a 128-bit signed integer value.
type IntValue struct {
	Value *big.Int
}

// UintValue describes a 128-bit unsigned integer value.
type UintValue struct {
	Value *big.Int
}

// BoolValue describes a boolean value.
type BoolValue struct {
	Value bool
}

// PrincipalValue describes a standard or contract principal value. Contract principals carry a ".name" suffix.
type PrincipalValue struct {
	Principal string
}

// BufferValue describes a byte buffer value.
type BufferValue struct {
	Data []byte
}

// StringAsciiValue describes a printable-ASCII string value.
type StringAsciiValue struct {
	Data string
}

// StringUtf8Value describes a UTF-8 string value.
type StringUtf8Value struct {
	Data string
}

// ListValue describes a homogeneous list value.
type ListValue struct {
	Items []Value
}

// TupleFieldValue describes one named field of a tuple value.
type TupleFieldValue struct {
	Name  string
	Value Value
}

// TupleValue describes a named-field record value. Field order matches the declared tuple type.
type TupleValue struct {
	Fields []TupleFieldValue
}

// OptionalValue describes an optional value. A nil Inner represents none.
type OptionalValue struct {
	Inner Value
}

// ResponseValue describes an ok- or err-tagged value.
type ResponseValue struct {
	Ok    bool
	Inner Value
}

func (v *IntValue) isValue()         {}
func (v *UintValue) isValue()        {}
func (v *BoolValue) isValue()        {}
func (v *PrincipalValue) isValue()   {}
func (v *BufferValue) isValue()      {}
func (v *StringAsciiValue) isValue() {}
func (v *StringUtf8Value) isValue()  {}
func (v *ListValue) isValue()        {}
func (v *TupleValue) isValue()       {}
func (v *OptionalValue) isValue()    {}
func (v *ResponseValue) isValue()    {}

func (v *IntValue) String() string       { return v.Value.String() }
func (v *UintValue) String() string      { return "u" + v.Value.String() }
func (v *BoolValue) String() string      { return fmt.Sprintf("%t", v.Value) }
func (v *PrincipalValue) String() string { return "'" + v.Principal }
func (v *BufferValue) String() string    { return "0x" + hex.EncodeToString(v.Data) }

func (v *StringAsciiValue) String() string {
	return fmt.Sprintf("%q", v.Data)
}

func (v *StringUtf8Value) String() string {
	return "u" + fmt.Sprintf("%q", v.Data)
}

func (v *ListValue) String() string {
	items := make([]string, len(v.Items))
	for i, item := range v.Items {
		items[i] = item.String()
	}
	return fmt.Sprintf("(list %s)", strings.Join(items, " "))
}

func (v *TupleValue) String() string {
	fields := make([]string, len(v.Fields))
	for i, field := range v.Fields {
		fields[i] = fmt.Sprintf("%s: %s", field.Name, field.Value.String())
	}
	return fmt.Sprintf("{%s}", strings.Join(fields, ", "))
}

func (v *OptionalValue) String() string {
	if v.Inner == nil {
		return "none"
	}
	return fmt.Sprintf("(some %s)", v.Inner.String())
}

func (v *ResponseValue) String() string {
	if v.Ok {
		return fmt.Sprintf("(ok %s)", v.Inner.String())
	}
	return fmt.Sprintf("(err %s)", v.Inner.String())
}

// Get retrieves a tuple field value by name, returning nil if the field does not exist.
func (v *TupleValue) Get(name string) Value {
	for _, field := range v.Fields {
		if field.Name == name {
			return field.Value
		}
	}
	return nil
}

// NewIntValue creates an IntValue from a native integer.
func NewIntValue(v int64) *IntValue {
	return &IntValue{Value: big.NewInt(v)}
}

// NewUintValue creates a UintValue from a native integer.
func NewUintValue(v uint64) *UintValue {
	return &UintValue{Value: new(big.Int).SetUint64(v)}
}

// MaxUint128 describes the largest value representable by a Clarity uint.
var MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// MaxInt128 describes the largest value representable by a Clarity int.
var MaxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))

// MinInt128 describes the smallest value representable by a Clarity int.
var MinInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))

// CheckType verifies that a value inhabits a parameter type. It is used by the embedded test chain to reject
// ill-typed call arguments the way the real VM would.
func CheckType(value Value, parameterType ParameterType) bool {
	switch typed := parameterType.(type) {
	case *IntType:
		v, ok := value.(*IntValue)
		return ok && v.Value.Cmp(MinInt128) >= 0 && v.Value.Cmp(MaxInt128) <= 0
	case *UintType:
		v, ok := value.(*UintValue)
		return ok && v.Value.Sign() >= 0 && v.Value.Cmp(MaxUint128) <= 0
	case *BoolType:
		_, ok := value.(*BoolValue)
		return ok
	case *PrincipalType:
		_, ok := value.(*PrincipalValue)
		return ok
	case *TraitReferenceType:
		// Trait arguments materialize as contract principals.
		v, ok := value.(*PrincipalValue)
		return ok && strings.Contains(v.Principal, ".")
	case *BufferType:
		v, ok := value.(*BufferValue)
		return ok && len(v.Data) <= typed.MaxLength
	case *StringAsciiType:
		v, ok := value.(*StringAsciiValue)
		if !ok || len(v.Data) > typed.MaxLength {
			return false
		}
		for _, c := range v.Data {
			if c < 0x20 || c > 0x7e {
				return false
			}
		}
		return true
	case *StringUtf8Type:
		v, ok := value.(*StringUtf8Value)
		return ok && len([]rune(v.Data)) <= typed.MaxLength
	case *ListType:
		v, ok := value.(*ListValue)
		if !ok || len(v.Items) > typed.MaxLength {
			return false
		}
		for _, item := range v.Items {
			if !CheckType(item, typed.Element) {
				return false
			}
		}
		return true
	case *TupleType:
		v, ok := value.(*TupleValue)
		if !ok || len(v.Fields) != len(typed.Fields) {
			return false
		}
		for _, field := range typed.Fields {
			fieldValue := v.Get(field.Name)
			if fieldValue == nil || !CheckType(fieldValue, field.Type) {
				return false
			}
		}
		return true
	case *OptionalType:
		v, ok := value.(*OptionalValue)
		if !ok {
			return false
		}
		return v.Inner == nil || CheckType(v.Inner, typed.Inner)
	case *ResponseType:
		v, ok := value.(*ResponseValue)
		if !ok {
			return false
		}
		if v.Ok {
			return CheckType(v.Inner, typed.Ok)
		}
		return CheckType(v.Inner, typed.Error)
	case *NoneType:
		v, ok := value.(*OptionalValue)
		return ok && v.Inner == nil
	}
	panic(fmt.Sprintf("attempt to type check against unsupported parameter type: '%s'", parameterType.String()))
}
