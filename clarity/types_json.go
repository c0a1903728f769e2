package clarity

import (
	"encoding/json"
	"fmt"
)

// ParseContractInterface parses the JSON function list reported by the VM's compiled contract interface into
// FunctionSignature values. The input is the "functions" array of the interface document.
func ParseContractInterface(data []byte) ([]FunctionSignature, error) {
	var rawFunctions []struct {
		Name    string `json:"name"`
		Access  string `json:"access"`
		Args    []struct {
			Name string          `json:"name"`
			Type json.RawMessage `json:"type"`
		} `json:"args"`
		Outputs *struct {
			Type json.RawMessage `json:"type"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(data, &rawFunctions); err != nil {
		return nil, fmt.Errorf("could not parse contract interface: %v", err)
	}

	signatures := make([]FunctionSignature, 0, len(rawFunctions))
	for _, rawFunction := range rawFunctions {
		signature := FunctionSignature{
			Name:   rawFunction.Name,
			Access: FunctionAccess(rawFunction.Access),
			Args:   make([]FunctionArg, 0, len(rawFunction.Args)),
		}
		for _, rawArg := range rawFunction.Args {
			argType, err := ParseTypeJSON(rawArg.Type)
			if err != nil {
				return nil, fmt.Errorf("could not parse type of argument '%s' in function '%s': %v", rawArg.Name, rawFunction.Name, err)
			}
			signature.Args = append(signature.Args, FunctionArg{Name: rawArg.Name, Type: argType})
		}
		if rawFunction.Outputs != nil {
			outputType, err := ParseTypeJSON(rawFunction.Outputs.Type)
			if err != nil {
				return nil, fmt.Errorf("could not parse output type of function '%s': %v", rawFunction.Name, err)
			}
			signature.Outputs = outputType
		}
		signatures = append(signatures, signature)
	}
	return signatures, nil
}

// MarshalContractInterface renders signatures as the VM's interface JSON document (the "functions" array), the
// encoding ParseContractInterface accepts.
func MarshalContractInterface(signatures []FunctionSignature) ([]byte, error) {
	type rawArg struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	}
	type rawOutputs struct {
		Type json.RawMessage `json:"type"`
	}
	type rawFunction struct {
		Name    string      `json:"name"`
		Access  string      `json:"access"`
		Args    []rawArg    `json:"args"`
		Outputs *rawOutputs `json:"outputs,omitempty"`
	}

	rawFunctions := make([]rawFunction, 0, len(signatures))
	for _, signature := range signatures {
		raw := rawFunction{
			Name:   signature.Name,
			Access: string(signature.Access),
			Args:   make([]rawArg, 0, len(signature.Args)),
		}
		for _, arg := range signature.Args {
			argType, err := MarshalTypeJSON(arg.Type)
			if err != nil {
				return nil, fmt.Errorf("could not encode type of argument '%s' in function '%s': %v", arg.Name, signature.Name, err)
			}
			raw.Args = append(raw.Args, rawArg{Name: arg.Name, Type: argType})
		}
		if signature.Outputs != nil {
			outputType, err := MarshalTypeJSON(signature.Outputs)
			if err != nil {
				return nil, fmt.Errorf("could not encode output type of function '%s': %v", signature.Name, err)
			}
			raw.Outputs = &rawOutputs{Type: outputType}
		}
		rawFunctions = append(rawFunctions, raw)
	}
	return json.Marshal(rawFunctions)
}

// MarshalTypeJSON renders one ParameterType in the VM's interface JSON encoding, the exact inverse of
// ParseTypeJSON. Trait identity is not part of the encoding; enrichment recovers it from the AST.
func MarshalTypeJSON(parameterType ParameterType) (json.RawMessage, error) {
	switch typed := parameterType.(type) {
	case *IntType:
		return json.Marshal("int128")
	case *UintType:
		return json.Marshal("uint128")
	case *BoolType:
		return json.Marshal("bool")
	case *PrincipalType:
		return json.Marshal("principal")
	case *NoneType:
		return json.Marshal("none")
	case *TraitReferenceType:
		return json.Marshal("trait_reference")
	case *BufferType:
		return json.Marshal(map[string]any{"buffer": map[string]int{"length": typed.MaxLength}})
	case *StringAsciiType:
		return json.Marshal(map[string]any{"string-ascii": map[string]int{"length": typed.MaxLength}})
	case *StringUtf8Type:
		return json.Marshal(map[string]any{"string-utf8": map[string]int{"length": typed.MaxLength}})
	case *ListType:
		elementType, err := MarshalTypeJSON(typed.Element)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"list": map[string]any{"type": elementType, "length": typed.MaxLength}})
	case *TupleType:
		type rawField struct {
			Name string          `json:"name"`
			Type json.RawMessage `json:"type"`
		}
		fields := make([]rawField, 0, len(typed.Fields))
		for _, field := range typed.Fields {
			fieldType, err := MarshalTypeJSON(field.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, rawField{Name: field.Name, Type: fieldType})
		}
		return json.Marshal(map[string]any{"tuple": fields})
	case *OptionalType:
		innerType, err := MarshalTypeJSON(typed.Inner)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"optional": innerType})
	case *ResponseType:
		okType, err := MarshalTypeJSON(typed.Ok)
		if err != nil {
			return nil, err
		}
		errorType, err := MarshalTypeJSON(typed.Error)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"response": map[string]any{"ok": okType, "error": errorType}})
	default:
		return nil, fmt.Errorf("cannot encode unsupported type '%s'", parameterType)
	}
}

// ParseTypeJSON parses one type descriptor from the VM's interface JSON encoding into a ParameterType. Base types
// are encoded as strings ("int128", "uint128", "bool", "principal", "trait_reference"), complex types as
// single-key objects.
func ParseTypeJSON(data json.RawMessage) (ParameterType, error) {
	// Base types arrive as bare JSON strings.
	var baseType string
	if err := json.Unmarshal(data, &baseType); err == nil {
		switch baseType {
		case "int128":
			return &IntType{}, nil
		case "uint128":
			return &UintType{}, nil
		case "bool":
			return &BoolType{}, nil
		case "principal":
			return &PrincipalType{}, nil
		case "none":
			return &NoneType{}, nil
		case "trait_reference":
			// The interface carries no trait identity. Enrichment resolves the descriptor from the AST.
			return &TraitReferenceType{}, nil
		default:
			return nil, fmt.Errorf("unknown base type '%s'", baseType)
		}
	}

	// Complex types arrive as a single-key object discriminating the variant.
	var complexType struct {
		Buffer *struct {
			Length int `json:"length"`
		} `json:"buffer"`
		StringAscii *struct {
			Length int `json:"length"`
		} `json:"string-ascii"`
		StringUtf8 *struct {
			Length int `json:"length"`
		} `json:"string-utf8"`
		List *struct {
			Type   json.RawMessage `json:"type"`
			Length int             `json:"length"`
		} `json:"list"`
		Tuple []struct {
			Name string          `json:"name"`
			Type json.RawMessage `json:"type"`
		} `json:"tuple"`
		Optional json.RawMessage `json:"optional"`
		Response *struct {
			Ok    json.RawMessage `json:"ok"`
			Error json.RawMessage `json:"error"`
		} `json:"response"`
	}
	if err := json.Unmarshal(data, &complexType); err != nil {
		return nil, fmt.Errorf("could not parse type descriptor '%s': %v", string(data), err)
	}

	switch {
	case complexType.Buffer != nil:
		return &BufferType{MaxLength: complexType.Buffer.Length}, nil
	case complexType.StringAscii != nil:
		return &StringAsciiType{MaxLength: complexType.StringAscii.Length}, nil
	case complexType.StringUtf8 != nil:
		return &StringUtf8Type{MaxLength: complexType.StringUtf8.Length}, nil
	case complexType.List != nil:
		elementType, err := ParseTypeJSON(complexType.List.Type)
		if err != nil {
			return nil, err
		}
		return &ListType{Element: elementType, MaxLength: complexType.List.Length}, nil
	case complexType.Tuple != nil:
		fields := make([]TupleField, 0, len(complexType.Tuple))
		for _, rawField := range complexType.Tuple {
			fieldType, err := ParseTypeJSON(rawField.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, TupleField{Name: rawField.Name, Type: fieldType})
		}
		return &TupleType{Fields: fields}, nil
	case complexType.Optional != nil:
		innerType, err := ParseTypeJSON(complexType.Optional)
		if err != nil {
			return nil, err
		}
		return &OptionalType{Inner: innerType}, nil
	case complexType.Response != nil:
		okType, err := ParseTypeJSON(complexType.Response.Ok)
		if err != nil {
			return nil, err
		}
		errorType, err := ParseTypeJSON(complexType.Response.Error)
		if err != nil {
			return nil, err
		}
		return &ResponseType{Ok: okType, Error: errorType}, nil
	}
	return nil, fmt.Errorf("unsupported type descriptor '%s'", string(data))
}
