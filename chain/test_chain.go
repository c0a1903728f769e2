package chain

import (
	"fmt"
	"strconv"

	"github.com/crytic/siren/clarity"
	"github.com/crytic/siren/clarity/ast"
)

// deployedContract describes one contract's code and state inside a TestChain.
type deployedContract struct {
	id         ContractID
	source     string
	program    []ast.Node
	signatures []clarity.FunctionSignature

	// interfaceJSON is the canonical interface document served at the chain boundary, built once at deploy.
	interfaceJSON []byte

	// functions indexes definition forms by function name for call dispatch.
	functions map[string]*ast.List

	// dataVars and maps hold the contract's mutable state. Map storage is keyed by the literal rendering of the
	// key value.
	dataVars  map[string]clarity.Value
	maps      map[string]map[string]clarity.Value
	constants map[string]clarity.Value
}

// signature returns the named function's signature, or nil if the contract does not define it.
func (c *deployedContract) signature(name string) *clarity.FunctionSignature {
	for i := range c.signatures {
		if c.signatures[i].Name == name {
			return &c.signatures[i]
		}
	}
	return nil
}

// TestChain is the embedded in-memory Clarity chain the fuzzer runs against. It executes contracts with the
// evaluator in this package, deriving each contract's interface syntactically from its definition forms. State is
// incrementally mutated by public calls and rolled back when a call fails, mirroring the real VM's semantics.
type TestChain struct {
	accounts    []string
	contracts   map[ContractID]*deployedContract
	deployOrder []ContractID
	blockHeight uint64
}

// NewTestChain creates a chain with the requested number of funded test accounts.
func NewTestChain(accountCount int) *TestChain {
	accounts := make([]string, accountCount)
	for i := 0; i < accountCount; i++ {
		accounts[i] = DeriveAccountAddress("wallet_" + strconv.Itoa(i+1))
	}
	return &TestChain{
		accounts:    accounts,
		contracts:   make(map[ContractID]*deployedContract),
		blockHeight: 1,
	}
}

// ListAccounts returns the funded account principals.
func (t *TestChain) ListAccounts() []string {
	return append([]string{}, t.accounts...)
}

// BlockHeight returns the current chain tip height.
func (t *TestChain) BlockHeight() uint64 {
	return t.blockHeight
}

// AdvanceBlocks advances the chain tip, returning the new height.
func (t *TestChain) AdvanceBlocks(count int) uint64 {
	if count > 0 {
		t.blockHeight += uint64(count)
	}
	return t.blockHeight
}

// DeployedContracts returns the identifiers of every deployed contract in deployment order.
func (t *TestChain) DeployedContracts() []ContractID {
	return append([]ContractID{}, t.deployOrder...)
}

// DeployContract parses and deploys a contract, executing its top-level forms. Deploying over an existing
// identifier is an error, as it is on the real chain.
func (t *TestChain) DeployContract(id ContractID, source string, clarityVersion int, sender string) error {
	_ = clarityVersion // the evaluator's subset is version-independent
	if _, exists := t.contracts[id]; exists {
		return fmt.Errorf("contract '%s' is already deployed", id)
	}
	program, err := ast.Parse(source)
	if err != nil {
		return fmt.Errorf("could not deploy contract '%s': %v", id, err)
	}

	contract := &deployedContract{
		id:        id,
		source:    source,
		program:   program,
		functions: make(map[string]*ast.List),
		dataVars:  make(map[string]clarity.Value),
		maps:      make(map[string]map[string]clarity.Value),
		constants: make(map[string]clarity.Value),
	}
	if contract.signatures, err = deriveInterface(program); err != nil {
		return fmt.Errorf("could not deploy contract '%s': %v", id, err)
	}
	if contract.interfaceJSON, err = clarity.MarshalContractInterface(contract.signatures); err != nil {
		return fmt.Errorf("could not deploy contract '%s': %v", id, err)
	}
	if err = t.evaluateTopLevel(contract, sender); err != nil {
		return fmt.Errorf("could not deploy contract '%s': %v", id, err)
	}

	t.contracts[id] = contract
	t.deployOrder = append(t.deployOrder, id)
	t.blockHeight++
	return nil
}

// evaluateTopLevel processes a contract's top-level forms at deploy time: definitions register code or state, and
// bare expressions execute immediately.
func (t *TestChain) evaluateTopLevel(contract *deployedContract, sender string) error {
	frame := &callFrame{chain: t, contract: contract, function: "(top level)", caller: sender, bindings: map[string]clarity.Value{}}
	for _, node := range contract.program {
		form, ok := node.(*ast.List)
		if !ok || len(form.Items) == 0 {
			continue
		}
		switch ast.AtomToken(form.Items[0]) {
		case "define-public", "define-read-only", "define-private":
			header, ok := form.Items[1].(*ast.List)
			if !ok || len(header.Items) == 0 {
				return fmt.Errorf("malformed function definition")
			}
			contract.functions[ast.AtomToken(header.Items[0])] = form
		case "define-data-var":
			if len(form.Items) != 4 {
				return fmt.Errorf("malformed define-data-var")
			}
			initial, err := frame.eval(form.Items[3])
			if err != nil {
				return err
			}
			contract.dataVars[ast.AtomToken(form.Items[1])] = initial
		case "define-map":
			if len(form.Items) < 2 {
				return fmt.Errorf("malformed define-map")
			}
			contract.maps[ast.AtomToken(form.Items[1])] = make(map[string]clarity.Value)
		case "define-constant":
			if len(form.Items) != 3 {
				return fmt.Errorf("malformed define-constant")
			}
			value, err := frame.eval(form.Items[2])
			if err != nil {
				return err
			}
			contract.constants[ast.AtomToken(form.Items[1])] = value
		case "define-trait", "use-trait", "impl-trait":
			// Trait declarations carry no runtime state; the resolver reads them from the syntax tree.
		default:
			if _, err := frame.eval(form); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetContractInterface returns the contract's function signatures, decoded from the interface JSON document the
// way they arrive from a real node. Trait parameters come back without identity; enrichment resolves them from
// the syntax tree.
func (t *TestChain) GetContractInterface(id ContractID) ([]clarity.FunctionSignature, error) {
	contract, exists := t.contracts[id]
	if !exists {
		return nil, fmt.Errorf("contract '%s' is not deployed", id)
	}
	return clarity.ParseContractInterface(contract.interfaceJSON)
}

// GetContractSyntaxTree returns the contract's parsed top-level forms.
func (t *TestChain) GetContractSyntaxTree(id ContractID) ([]ast.Node, error) {
	contract, exists := t.contracts[id]
	if !exists {
		return nil, fmt.Errorf("contract '%s' is not deployed", id)
	}
	return contract.program, nil
}

// CallPublicFunction executes a state-changing call. State changes persist only if the call returns an ok response;
// err responses and execution errors roll back every effect, including those of nested contract calls.
func (t *TestChain) CallPublicFunction(contract ContractID, function string, args []clarity.Value, caller string) (*CallResult, error) {
	target, exists := t.contracts[contract]
	if !exists {
		return nil, fmt.Errorf("contract '%s' is not deployed", contract)
	}
	signature := target.signature(function)
	if signature == nil || signature.Access != clarity.FunctionAccessPublic {
		return nil, fmt.Errorf("contract '%s' has no public function '%s'", contract, function)
	}

	snapshot := t.snapshotState()
	value, err := t.invoke(target, function, args, caller)
	if err != nil {
		t.restoreState(snapshot)
		return nil, err
	}
	response, ok := value.(*clarity.ResponseValue)
	if !ok {
		t.restoreState(snapshot)
		return nil, &ExecutionError{Contract: contract, Function: function, Reason: "public function did not return a response"}
	}
	if !response.Ok {
		t.restoreState(snapshot)
	} else {
		t.blockHeight++
	}
	return &CallResult{Value: response}, nil
}

// CallReadOnlyFunction executes a read-only call. Any state changes its body attempts are discarded.
func (t *TestChain) CallReadOnlyFunction(contract ContractID, function string, args []clarity.Value, caller string) (*CallResult, error) {
	target, exists := t.contracts[contract]
	if !exists {
		return nil, fmt.Errorf("contract '%s' is not deployed", contract)
	}
	signature := target.signature(function)
	if signature == nil || signature.Access == clarity.FunctionAccessPrivate {
		return nil, fmt.Errorf("contract '%s' has no callable function '%s'", contract, function)
	}

	snapshot := t.snapshotState()
	defer t.restoreState(snapshot)
	value, err := t.invoke(target, function, args, caller)
	if err != nil {
		return nil, err
	}
	return &CallResult{Value: value}, nil
}

// invoke dispatches a call to a named function of a deployed contract, type checking arguments against the derived
// signature the way the VM checks against the compiled one.
func (t *TestChain) invoke(contract *deployedContract, function string, args []clarity.Value, caller string) (clarity.Value, error) {
	definition, exists := contract.functions[function]
	if !exists {
		return nil, &ExecutionError{Contract: contract.id, Function: function, Reason: "undefined function"}
	}
	signature := contract.signature(function)
	if signature != nil {
		if len(args) != len(signature.Args) {
			return nil, &ExecutionError{
				Contract: contract.id,
				Function: function,
				Reason:   fmt.Sprintf("expected %d arguments, got %d", len(signature.Args), len(args)),
			}
		}
		for i, arg := range args {
			if !clarity.CheckType(arg, signature.Args[i].Type) {
				return nil, &ExecutionError{
					Contract: contract.id,
					Function: function,
					Reason:   fmt.Sprintf("argument '%s' is not of type %s: %s", signature.Args[i].Name, signature.Args[i].Type.String(), arg.String()),
				}
			}
		}
	}
	return t.invokeDefinition(contract, definition, function, args, caller)
}

// invokeDefinition binds arguments and evaluates a function body. Early returns raised by asserts!/unwrap!/try!
// surface as the function's result.
func (t *TestChain) invokeDefinition(contract *deployedContract, definition *ast.List, function string, args []clarity.Value, caller string) (clarity.Value, error) {
	header := definition.Items[1].(*ast.List)
	parameters := header.Items[1:]
	if len(args) != len(parameters) {
		return nil, &ExecutionError{
			Contract: contract.id,
			Function: function,
			Reason:   fmt.Sprintf("expected %d arguments, got %d", len(parameters), len(args)),
		}
	}

	bindings := make(map[string]clarity.Value, len(parameters))
	for i, parameterNode := range parameters {
		parameter, ok := parameterNode.(*ast.List)
		if !ok || len(parameter.Items) != 2 {
			return nil, &ExecutionError{Contract: contract.id, Function: function, Reason: "malformed parameter declaration"}
		}
		bindings[ast.AtomToken(parameter.Items[0])] = args[i]
	}

	frame := &callFrame{chain: t, contract: contract, function: function, caller: caller, bindings: bindings}
	result, err := frame.evalBody(definition.Items[2:])
	if err != nil {
		if thrown, ok := err.(*thrownValue); ok {
			return thrown.value, nil
		}
		return nil, err
	}
	return result, nil
}

// chainSnapshot captures every contract's mutable state.
type chainSnapshot struct {
	dataVars map[ContractID]map[string]clarity.Value
	maps     map[ContractID]map[string]map[string]clarity.Value
}

func (t *TestChain) snapshotState() *chainSnapshot {
	snapshot := &chainSnapshot{
		dataVars: make(map[ContractID]map[string]clarity.Value, len(t.contracts)),
		maps:     make(map[ContractID]map[string]map[string]clarity.Value, len(t.contracts)),
	}
	// Values are immutable once constructed, so copying the maps is sufficient.
	for id, contract := range t.contracts {
		dataVars := make(map[string]clarity.Value, len(contract.dataVars))
		for name, value := range contract.dataVars {
			dataVars[name] = value
		}
		snapshot.dataVars[id] = dataVars

		maps := make(map[string]map[string]clarity.Value, len(contract.maps))
		for name, storage := range contract.maps {
			storageCopy := make(map[string]clarity.Value, len(storage))
			for key, value := range storage {
				storageCopy[key] = value
			}
			maps[name] = storageCopy
		}
		snapshot.maps[id] = maps
	}
	return snapshot
}

func (t *TestChain) restoreState(snapshot *chainSnapshot) {
	for id, contract := range t.contracts {
		if dataVars, ok := snapshot.dataVars[id]; ok {
			contract.dataVars = dataVars
		}
		if maps, ok := snapshot.maps[id]; ok {
			contract.maps = maps
		}
	}
}

// deriveInterface builds function signatures from a contract's definition forms.
func deriveInterface(program []ast.Node) ([]clarity.FunctionSignature, error) {
	signatures := make([]clarity.FunctionSignature, 0)
	for _, definition := range ast.TopLevelForms(program, "define-public", "define-read-only", "define-private") {
		if len(definition.Items) < 3 {
			return nil, fmt.Errorf("malformed function definition")
		}
		header, ok := definition.Items[1].(*ast.List)
		if !ok || len(header.Items) == 0 {
			return nil, fmt.Errorf("malformed function definition header")
		}

		access := clarity.FunctionAccessPublic
		switch ast.AtomToken(definition.Items[0]) {
		case "define-read-only":
			access = clarity.FunctionAccessReadOnly
		case "define-private":
			access = clarity.FunctionAccessPrivate
		}

		signature := clarity.FunctionSignature{
			Name:   ast.AtomToken(header.Items[0]),
			Access: access,
			Args:   make([]clarity.FunctionArg, 0, len(header.Items)-1),
		}
		for _, parameterNode := range header.Items[1:] {
			parameter, ok := parameterNode.(*ast.List)
			if !ok || len(parameter.Items) != 2 {
				return nil, fmt.Errorf("malformed parameter in function '%s'", signature.Name)
			}
			parameterType, err := ParseTypeNode(parameter.Items[1])
			if err != nil {
				return nil, fmt.Errorf("function '%s': %v", signature.Name, err)
			}
			signature.Args = append(signature.Args, clarity.FunctionArg{Name: ast.AtomToken(parameter.Items[0]), Type: parameterType})
		}
		signatures = append(signatures, signature)
	}
	return signatures, nil
}

// ParseTypeNode parses a type annotation node from a parameter declaration into a ParameterType. Trait references
// parse unresolved; the trait resolver enriches them.
func ParseTypeNode(node ast.Node) (clarity.ParameterType, error) {
	if atom, ok := node.(*ast.Atom); ok {
		switch atom.Token {
		case "int":
			return &clarity.IntType{}, nil
		case "uint":
			return &clarity.UintType{}, nil
		case "bool":
			return &clarity.BoolType{}, nil
		case "principal":
			return &clarity.PrincipalType{}, nil
		}
		if len(atom.Token) > 2 && atom.Token[0] == '<' {
			return &clarity.TraitReferenceType{}, nil
		}
		return nil, fmt.Errorf("unsupported type annotation '%s'", atom.Token)
	}

	form, ok := node.(*ast.List)
	if !ok || len(form.Items) == 0 {
		return nil, fmt.Errorf("malformed type annotation")
	}
	switch head := ast.AtomToken(form.Items[0]); head {
	case "buff", "string-ascii", "string-utf8":
		if len(form.Items) != 2 {
			return nil, fmt.Errorf("malformed (%s ...) annotation", head)
		}
		length, err := strconv.Atoi(ast.AtomToken(form.Items[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed length in (%s ...) annotation", head)
		}
		switch head {
		case "buff":
			return &clarity.BufferType{MaxLength: length}, nil
		case "string-ascii":
			return &clarity.StringAsciiType{MaxLength: length}, nil
		default:
			return &clarity.StringUtf8Type{MaxLength: length}, nil
		}
	case "list":
		if len(form.Items) != 3 {
			return nil, fmt.Errorf("malformed (list ...) annotation")
		}
		length, err := strconv.Atoi(ast.AtomToken(form.Items[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed length in (list ...) annotation")
		}
		element, err := ParseTypeNode(form.Items[2])
		if err != nil {
			return nil, err
		}
		return &clarity.ListType{Element: element, MaxLength: length}, nil
	case "optional":
		if len(form.Items) != 2 {
			return nil, fmt.Errorf("malformed (optional ...) annotation")
		}
		inner, err := ParseTypeNode(form.Items[1])
		if err != nil {
			return nil, err
		}
		return &clarity.OptionalType{Inner: inner}, nil
	case "response":
		if len(form.Items) != 3 {
			return nil, fmt.Errorf("malformed (response ...) annotation")
		}
		okType, err := ParseTypeNode(form.Items[1])
		if err != nil {
			return nil, err
		}
		errorType, err := ParseTypeNode(form.Items[2])
		if err != nil {
			return nil, err
		}
		return &clarity.ResponseType{Ok: okType, Error: errorType}, nil
	case "tuple":
		fields := make([]clarity.TupleField, 0, len(form.Items)-1)
		for _, fieldNode := range form.Items[1:] {
			pair, ok := fieldNode.(*ast.List)
			if !ok || len(pair.Items) != 2 {
				return nil, fmt.Errorf("malformed tuple field annotation")
			}
			fieldType, err := ParseTypeNode(pair.Items[1])
			if err != nil {
				return nil, err
			}
			fields = append(fields, clarity.TupleField{Name: ast.AtomToken(pair.Items[0]), Type: fieldType})
		}
		return &clarity.TupleType{Fields: fields}, nil
	}
	return nil, fmt.Errorf("unsupported type annotation")
}
