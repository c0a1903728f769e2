package clarity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseContractInterface parses a representative interface document the way a node reports it.
func TestParseContractInterface(t *testing.T) {
	document := `[
		{
			"name": "transfer",
			"access": "public",
			"args": [
				{"name": "amount", "type": "uint128"},
				{"name": "recipient", "type": "principal"},
				{"name": "memo", "type": {"optional": {"buffer": {"length": 34}}}},
				{"name": "token", "type": "trait_reference"}
			],
			"outputs": {"type": {"response": {"ok": "bool", "error": "uint128"}}}
		},
		{
			"name": "get-holders",
			"access": "read_only",
			"args": [],
			"outputs": {"type": {"list": {"type": {"tuple": [
				{"name": "who", "type": "principal"},
				{"name": "label", "type": {"string-ascii": {"length": 40}}}
			]}, "length": 200}}}
		}
	]`

	signatures, err := ParseContractInterface([]byte(document))
	require.NoError(t, err)
	require.Len(t, signatures, 2)

	transfer := signatures[0]
	assert.Equal(t, "transfer", transfer.Name)
	assert.Equal(t, FunctionAccessPublic, transfer.Access)
	require.Len(t, transfer.Args, 4)
	assert.IsType(t, &UintType{}, transfer.Args[0].Type)
	assert.IsType(t, &PrincipalType{}, transfer.Args[1].Type)
	memo := transfer.Args[2].Type.(*OptionalType)
	assert.Equal(t, 34, memo.Inner.(*BufferType).MaxLength)
	token := transfer.Args[3].Type.(*TraitReferenceType)
	assert.Nil(t, token.Trait)
	response := transfer.Outputs.(*ResponseType)
	assert.IsType(t, &BoolType{}, response.Ok)

	holders := signatures[1]
	assert.Equal(t, FunctionAccessReadOnly, holders.Access)
	list := holders.Outputs.(*ListType)
	assert.Equal(t, 200, list.MaxLength)
	tuple := list.Element.(*TupleType)
	require.Len(t, tuple.Fields, 2)
	assert.Equal(t, "who", tuple.Fields[0].Name)
	assert.Equal(t, 40, tuple.Fields[1].Type.(*StringAsciiType).MaxLength)
}

// TestContractInterfaceRoundTrip ensures the encoder emits exactly what the parser accepts, across every type
// variant.
func TestContractInterfaceRoundTrip(t *testing.T) {
	signatures := []FunctionSignature{
		{
			Name:   "configure",
			Access: FunctionAccessPublic,
			Args: []FunctionArg{
				{Name: "flag", Type: &BoolType{}},
				{Name: "delta", Type: &IntType{}},
				{Name: "name", Type: &StringUtf8Type{MaxLength: 16}},
				{Name: "keys", Type: &ListType{Element: &BufferType{MaxLength: 33}, MaxLength: 10}},
				{Name: "meta", Type: &TupleType{Fields: []TupleField{
					{Name: "owner", Type: &PrincipalType{}},
					{Name: "note", Type: &OptionalType{Inner: &StringAsciiType{MaxLength: 50}}},
				}}},
				{Name: "sink", Type: &TraitReferenceType{}},
			},
			Outputs: &ResponseType{Ok: &UintType{}, Error: &NoneType{}},
		},
		{Name: "helper", Access: FunctionAccessPrivate, Args: []FunctionArg{}},
	}

	document, err := MarshalContractInterface(signatures)
	require.NoError(t, err)
	decoded, err := ParseContractInterface(document)
	require.NoError(t, err)
	assert.Equal(t, signatures, decoded)
}

// TestParseTypeJSONErrors ensures malformed descriptors are rejected.
func TestParseTypeJSONErrors(t *testing.T) {
	for _, descriptor := range []string{`"int256"`, `{"vector": {"length": 3}}`, `{"list": {"type": "int256", "length": 1}}`} {
		_, err := ParseTypeJSON(json.RawMessage(descriptor))
		assert.Error(t, err, "expected a parse error for %s", descriptor)
	}
}
