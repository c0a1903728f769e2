// Package traits resolves trait-reference parameters against a project's deployed contracts. The VM's compiled
// interface reports trait parameters as an opaque "trait_reference"; the trait's identity only exists in the
// contract's syntax tree. Resolution enriches interface signatures with full trait descriptors and indexes which
// deployed contracts implement which traits, so the generator can pick concrete implementers.
package traits

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/crytic/siren/chain"
	"github.com/crytic/siren/clarity"
	"github.com/crytic/siren/clarity/ast"
)

// typePath identifies a nested position inside a parameter's type tree as a dotted index string: list elements
// descend with 0, tuple fields with their field index, optionals with 0, responses with 0 (ok) or 1 (error). The
// empty path is the parameter itself.
type typePath string

func (p typePath) child(index int) typePath {
	return p.field(strconv.Itoa(index))
}

// field descends into a tuple by field name. Tuples key by name rather than position because the compiled
// interface does not promise the annotation's field ordering.
func (p typePath) field(name string) typePath {
	if p == "" {
		return typePath(name)
	}
	return p + typePath("."+name)
}

// Resolver enriches one contract's function signatures. It compiles the contract's syntax tree once into a flat
// (function, path) -> descriptor map, so per-signature enrichment is a lookup instead of a tree walk.
type Resolver struct {
	contractID chain.ContractID

	// aliases maps trait alias names (as written in angle brackets) to resolved descriptors.
	aliases map[string]*clarity.TraitDescriptor

	// parameterTraits maps (function name, type path) to the descriptor declared at that position.
	parameterTraits map[string]map[typePath]*clarity.TraitDescriptor
}

// NewResolver compiles a contract's syntax tree for enrichment. The contract ID is the deployed identity of the
// contract the tree belongs to; it absolutizes relative trait identifiers and anchors locally defined traits.
func NewResolver(program []ast.Node, contractID chain.ContractID) (*Resolver, error) {
	resolver := &Resolver{
		contractID:      contractID,
		aliases:         make(map[string]*clarity.TraitDescriptor),
		parameterTraits: make(map[string]map[typePath]*clarity.TraitDescriptor),
	}

	// First collect every trait name the contract can reference: imported aliases and locally defined traits.
	for _, form := range ast.TopLevelForms(program, "use-trait") {
		if len(form.Items) != 3 {
			return nil, fmt.Errorf("malformed use-trait form")
		}
		descriptor, err := parseTraitIdentifier(ast.AtomToken(form.Items[2]), contractID.Issuer())
		if err != nil {
			return nil, err
		}
		resolver.aliases[ast.AtomToken(form.Items[1])] = descriptor
	}
	for _, form := range ast.TopLevelForms(program, "define-trait") {
		if len(form.Items) < 2 {
			return nil, fmt.Errorf("malformed define-trait form")
		}
		name := ast.AtomToken(form.Items[1])
		resolver.aliases[name] = &clarity.TraitDescriptor{
			Name:               name,
			OriginIssuer:       contractID.Issuer(),
			OriginContractName: contractID.Name(),
		}
	}

	// Then walk every function's parameter annotations, recording trait positions by path.
	for _, definition := range ast.TopLevelForms(program, "define-public", "define-read-only", "define-private") {
		if len(definition.Items) < 2 {
			continue
		}
		header, ok := definition.Items[1].(*ast.List)
		if !ok || len(header.Items) == 0 {
			continue
		}
		functionName := ast.AtomToken(header.Items[0])
		for _, parameterNode := range header.Items[1:] {
			parameter, ok := parameterNode.(*ast.List)
			if !ok || len(parameter.Items) != 2 {
				continue
			}
			parameterName := ast.AtomToken(parameter.Items[0])
			if err := resolver.recordTraitPositions(functionName, parameterName, parameter.Items[1], ""); err != nil {
				return nil, err
			}
		}
	}
	return resolver, nil
}

// recordTraitPositions walks one parameter's type annotation node, recording each trait reference it contains. The
// key uses "parameterIndexless" form: paths are recorded per function with the parameter's own position prepended
// by the caller of Lookup, so here the path starts at the parameter's annotation root.
func (r *Resolver) recordTraitPositions(functionName string, parameterName string, node ast.Node, path typePath) error {
	switch typed := node.(type) {
	case *ast.Atom:
		if len(typed.Token) > 2 && typed.Token[0] == '<' {
			alias := strings.Trim(typed.Token, "<>")
			descriptor, ok := r.aliases[alias]
			if !ok {
				return fmt.Errorf("function '%s' references undeclared trait alias '%s'", functionName, alias)
			}
			if r.parameterTraits[functionName] == nil {
				r.parameterTraits[functionName] = make(map[typePath]*clarity.TraitDescriptor)
			}
			r.parameterTraits[functionName][typePath(parameterName)+":"+path] = descriptor
		}
	case *ast.List:
		if len(typed.Items) == 0 {
			return nil
		}
		switch ast.AtomToken(typed.Items[0]) {
		case "list", "optional":
			return r.recordTraitPositions(functionName, parameterName, typed.Items[len(typed.Items)-1], path.child(0))
		case "response":
			if len(typed.Items) == 3 {
				if err := r.recordTraitPositions(functionName, parameterName, typed.Items[1], path.child(0)); err != nil {
					return err
				}
				return r.recordTraitPositions(functionName, parameterName, typed.Items[2], path.child(1))
			}
		case "tuple":
			for _, fieldNode := range typed.Items[1:] {
				pair, ok := fieldNode.(*ast.List)
				if !ok || len(pair.Items) != 2 {
					continue
				}
				if err := r.recordTraitPositions(functionName, parameterName, pair.Items[1], path.field(ast.AtomToken(pair.Items[0]))); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// EnrichSignature returns a copy of the signature whose trait references carry resolved descriptors. It scans the
// raw type tree for trait positions and looks each up in the compiled map; a trait position with no matching AST
// declaration is an error (the interface and syntax tree disagree).
func (r *Resolver) EnrichSignature(signature clarity.FunctionSignature) (clarity.FunctionSignature, error) {
	enriched := signature
	enriched.Args = make([]clarity.FunctionArg, len(signature.Args))
	for i, arg := range signature.Args {
		enrichedType, err := r.enrichType(signature.Name, arg.Name, arg.Type, "")
		if err != nil {
			return clarity.FunctionSignature{}, err
		}
		enriched.Args[i] = clarity.FunctionArg{Name: arg.Name, Type: enrichedType}
	}
	return enriched, nil
}

// enrichType rebuilds a type tree, attaching descriptors at trait-reference positions. Types containing no trait
// references are shared, not copied.
func (r *Resolver) enrichType(functionName string, parameterName string, parameterType clarity.ParameterType, path typePath) (clarity.ParameterType, error) {
	switch typed := parameterType.(type) {
	case *clarity.TraitReferenceType:
		descriptor := r.parameterTraits[functionName][typePath(parameterName)+":"+path]
		if descriptor == nil {
			return nil, fmt.Errorf("function '%s': trait reference at parameter '%s' has no declaration in the syntax tree", functionName, parameterName)
		}
		return &clarity.TraitReferenceType{Trait: descriptor}, nil
	case *clarity.ListType:
		element, err := r.enrichType(functionName, parameterName, typed.Element, path.child(0))
		if err != nil {
			return nil, err
		}
		return &clarity.ListType{Element: element, MaxLength: typed.MaxLength}, nil
	case *clarity.OptionalType:
		inner, err := r.enrichType(functionName, parameterName, typed.Inner, path.child(0))
		if err != nil {
			return nil, err
		}
		return &clarity.OptionalType{Inner: inner}, nil
	case *clarity.ResponseType:
		okType, err := r.enrichType(functionName, parameterName, typed.Ok, path.child(0))
		if err != nil {
			return nil, err
		}
		errorType, err := r.enrichType(functionName, parameterName, typed.Error, path.child(1))
		if err != nil {
			return nil, err
		}
		return &clarity.ResponseType{Ok: okType, Error: errorType}, nil
	case *clarity.TupleType:
		fields := make([]clarity.TupleField, len(typed.Fields))
		for i, field := range typed.Fields {
			fieldType, err := r.enrichType(functionName, parameterName, field.Type, path.field(field.Name))
			if err != nil {
				return nil, err
			}
			fields[i] = clarity.TupleField{Name: field.Name, Type: fieldType}
		}
		return &clarity.TupleType{Fields: fields}, nil
	default:
		return parameterType, nil
	}
}

// EnrichContractInterface fetches a deployed contract's interface and syntax tree and returns the interface with
// every trait reference resolved.
func EnrichContractInterface(vm chain.Chain, contractID chain.ContractID) ([]clarity.FunctionSignature, error) {
	signatures, err := vm.GetContractInterface(contractID)
	if err != nil {
		return nil, err
	}
	program, err := vm.GetContractSyntaxTree(contractID)
	if err != nil {
		return nil, err
	}
	resolver, err := NewResolver(program, contractID)
	if err != nil {
		return nil, err
	}
	enriched := make([]clarity.FunctionSignature, len(signatures))
	for i, signature := range signatures {
		if enriched[i], err = resolver.EnrichSignature(signature); err != nil {
			return nil, err
		}
	}
	return enriched, nil
}

// parseTraitIdentifier parses "'ISSUER.contract.trait" or ".contract.trait" (relative to the provided issuer) into
// a descriptor.
func parseTraitIdentifier(token string, issuer string) (*clarity.TraitDescriptor, error) {
	token = strings.TrimPrefix(token, "'")
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed trait identifier '%s'", token)
	}
	originIssuer := parts[0]
	if originIssuer == "" {
		originIssuer = issuer
	}
	return &clarity.TraitDescriptor{
		Name:               parts[2],
		OriginIssuer:       originIssuer,
		OriginContractName: parts[1],
	}, nil
}

// ImplementationIndex records which deployed contracts implement which traits. It is built once per fuzzing session
// by scanning every deployed contract's syntax tree.
type ImplementationIndex struct {
	implementations map[chain.ContractID][]*clarity.TraitDescriptor
}

// BuildImplementationIndex scans all deployed contracts for impl-trait declarations.
func BuildImplementationIndex(vm chain.Chain) (*ImplementationIndex, error) {
	index := &ImplementationIndex{implementations: make(map[chain.ContractID][]*clarity.TraitDescriptor)}
	for _, contractID := range vm.DeployedContracts() {
		program, err := vm.GetContractSyntaxTree(contractID)
		if err != nil {
			return nil, err
		}
		for _, form := range ast.TopLevelForms(program, "impl-trait") {
			if len(form.Items) != 2 {
				return nil, fmt.Errorf("contract '%s': malformed impl-trait form", contractID)
			}
			descriptor, err := parseTraitIdentifier(ast.AtomToken(form.Items[1]), contractID.Issuer())
			if err != nil {
				return nil, fmt.Errorf("contract '%s': %v", contractID, err)
			}
			index.implementations[contractID] = append(index.implementations[contractID], descriptor)
		}
	}
	return index, nil
}

// GetContractIDsImplementingTrait returns every deployed contract satisfying the descriptor, in lexical order so
// seeded draws over the result replay deterministically. Matching compares the trait name and origin issuer
// structurally, without issuer normalization.
func (x *ImplementationIndex) GetContractIDsImplementingTrait(descriptor *clarity.TraitDescriptor) []chain.ContractID {
	matches := make([]chain.ContractID, 0)
	for contractID, implemented := range x.implementations {
		for _, candidate := range implemented {
			if candidate.Equal(descriptor) {
				matches = append(matches, contractID)
				break
			}
		}
	}
	slices.Sort(matches)
	return matches
}
