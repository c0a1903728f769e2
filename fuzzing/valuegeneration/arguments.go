package valuegeneration

import (
	"fmt"
	"math/big"

	"github.com/crytic/siren/clarity"
)

// SomeBase wraps a present optional in a base value tree, keeping some(none) distinguishable from none.
type SomeBase struct {
	Inner any
}

// ResponseBase represents a response in a base value tree.
type ResponseBase struct {
	Ok    bool
	Inner any
}

// GenerateArgValue generates a base value for a parameter type by walking the type tree and delegating primitive
// leaves to the generator. The base representation per kind: *big.Int for integers, bool, string for ASCII/UTF-8
// strings and principals and trait references, []byte for buffers, []any for lists, map[string]any for tuples, nil
// or SomeBase for optionals, and ResponseBase for responses. An unresolved trait reference or an unknown type is a
// programming error and panics.
func GenerateArgValue(generator ValueGenerator, parameterType clarity.ParameterType) any {
	switch typed := parameterType.(type) {
	case *clarity.NoneType:
		return nil
	case *clarity.IntType:
		return generator.GenerateInteger()
	case *clarity.UintType:
		return generator.GenerateUnsignedInteger()
	case *clarity.BoolType:
		return generator.GenerateBool()
	case *clarity.PrincipalType:
		return generator.GeneratePrincipal()
	case *clarity.TraitReferenceType:
		if typed.Trait == nil {
			panic("cannot generate an argument for an unresolved trait reference")
		}
		return string(generator.GenerateTraitImplementer(typed.Trait))
	case *clarity.BufferType:
		return generator.GenerateBytes(typed.MaxLength)
	case *clarity.StringAsciiType:
		return generator.GenerateAsciiString(typed.MaxLength)
	case *clarity.StringUtf8Type:
		return generator.GenerateUtf8String(typed.MaxLength)
	case *clarity.ListType:
		length := generator.GenerateLength(typed.MaxLength)
		elements := make([]any, length)
		for i := range elements {
			elements[i] = GenerateArgValue(generator, typed.Element)
		}
		return elements
	case *clarity.TupleType:
		fields := make(map[string]any, len(typed.Fields))
		for _, field := range typed.Fields {
			fields[field.Name] = GenerateArgValue(generator, field.Type)
		}
		return fields
	case *clarity.OptionalType:
		if generator.GenerateBool() {
			return SomeBase{Inner: GenerateArgValue(generator, typed.Inner)}
		}
		return nil
	case *clarity.ResponseType:
		if generator.GenerateBool() {
			return ResponseBase{Ok: true, Inner: GenerateArgValue(generator, typed.Ok)}
		}
		return ResponseBase{Ok: false, Inner: GenerateArgValue(generator, typed.Error)}
	default:
		panic(fmt.Sprintf("cannot generate an argument for unsupported type '%s'", parameterType))
	}
}

// MaterializeArgValue converts a base value back into a typed VM value, walking the same type tree generation
// walked. Since base values only come from GenerateArgValue, a shape mismatch is a programming error and panics.
func MaterializeArgValue(parameterType clarity.ParameterType, base any) clarity.Value {
	switch typed := parameterType.(type) {
	case *clarity.NoneType:
		return &clarity.OptionalValue{}
	case *clarity.IntType:
		return &clarity.IntValue{Value: mustBase[*big.Int](parameterType, base)}
	case *clarity.UintType:
		return &clarity.UintValue{Value: mustBase[*big.Int](parameterType, base)}
	case *clarity.BoolType:
		return &clarity.BoolValue{Value: mustBase[bool](parameterType, base)}
	case *clarity.PrincipalType, *clarity.TraitReferenceType:
		return &clarity.PrincipalValue{Principal: mustBase[string](parameterType, base)}
	case *clarity.BufferType:
		return &clarity.BufferValue{Data: mustBase[[]byte](parameterType, base)}
	case *clarity.StringAsciiType:
		return &clarity.StringAsciiValue{Data: mustBase[string](parameterType, base)}
	case *clarity.StringUtf8Type:
		return &clarity.StringUtf8Value{Data: mustBase[string](parameterType, base)}
	case *clarity.ListType:
		elements := mustBase[[]any](parameterType, base)
		values := make([]clarity.Value, len(elements))
		for i, element := range elements {
			values[i] = MaterializeArgValue(typed.Element, element)
		}
		return &clarity.ListValue{Items: values}
	case *clarity.TupleType:
		fields := mustBase[map[string]any](parameterType, base)
		values := make([]clarity.TupleFieldValue, len(typed.Fields))
		for i, field := range typed.Fields {
			fieldBase, ok := fields[field.Name]
			if !ok {
				panic(fmt.Sprintf("cannot materialize tuple: base value lacks field '%s'", field.Name))
			}
			values[i] = clarity.TupleFieldValue{Name: field.Name, Value: MaterializeArgValue(field.Type, fieldBase)}
		}
		return &clarity.TupleValue{Fields: values}
	case *clarity.OptionalType:
		if base == nil {
			return &clarity.OptionalValue{}
		}
		return &clarity.OptionalValue{Inner: MaterializeArgValue(typed.Inner, mustBase[SomeBase](parameterType, base).Inner)}
	case *clarity.ResponseType:
		response := mustBase[ResponseBase](parameterType, base)
		if response.Ok {
			return &clarity.ResponseValue{Ok: true, Inner: MaterializeArgValue(typed.Ok, response.Inner)}
		}
		return &clarity.ResponseValue{Ok: false, Inner: MaterializeArgValue(typed.Error, response.Inner)}
	default:
		panic(fmt.Sprintf("cannot materialize a value of unsupported type '%s'", parameterType))
	}
}

// GenerateFunctionArgs generates and materializes one VM value per parameter of the signature.
func GenerateFunctionArgs(generator ValueGenerator, signature clarity.FunctionSignature) []clarity.Value {
	values := make([]clarity.Value, len(signature.Args))
	for i, arg := range signature.Args {
		values[i] = MaterializeArgValue(arg.Type, GenerateArgValue(generator, arg.Type))
	}
	return values
}

// mustBase asserts a base value's dynamic type, panicking with the parameter type on mismatch.
func mustBase[T any](parameterType clarity.ParameterType, base any) T {
	value, ok := base.(T)
	if !ok {
		panic(fmt.Sprintf("cannot materialize a value of type '%s' from base value %v", parameterType, base))
	}
	return value
}
