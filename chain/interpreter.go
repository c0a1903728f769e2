package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/crytic/siren/clarity"
	"github.com/crytic/siren/clarity/ast"
)

// callFrame holds the evaluation state of one function activation inside the embedded chain's Clarity evaluator.
// The evaluator covers the language subset contracts under fuzz routinely exercise: literals, control flow, integer
// arithmetic with 128-bit overflow faults, data vars, maps, responses/optionals and intra/inter-contract calls.
type callFrame struct {
	chain    *TestChain
	contract *deployedContract
	function string
	caller   string
	bindings map[string]clarity.Value
}

// fault raises an ExecutionError for the current activation.
func (f *callFrame) fault(format string, args ...any) error {
	return &ExecutionError{Contract: f.contract.id, Function: f.function, Reason: fmt.Sprintf(format, args...)}
}

// evalBody evaluates a sequence of expressions, returning the value of the last one.
func (f *callFrame) evalBody(body []ast.Node) (clarity.Value, error) {
	var result clarity.Value = &clarity.BoolValue{Value: true}
	for _, node := range body {
		var err error
		result, err = f.eval(node)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// eval evaluates a single expression.
func (f *callFrame) eval(node ast.Node) (clarity.Value, error) {
	switch typed := node.(type) {
	case *ast.StringLiteral:
		if typed.Utf8 {
			return &clarity.StringUtf8Value{Data: typed.Value}, nil
		}
		return &clarity.StringAsciiValue{Data: typed.Value}, nil
	case *ast.Atom:
		return f.evalAtom(typed.Token)
	case *ast.List:
		return f.evalForm(typed)
	}
	return nil, f.fault("unsupported syntax node")
}

// evalAtom evaluates a bare token: a literal, a binding, a constant or a keyword.
func (f *callFrame) evalAtom(token string) (clarity.Value, error) {
	switch token {
	case "true":
		return &clarity.BoolValue{Value: true}, nil
	case "false":
		return &clarity.BoolValue{Value: false}, nil
	case "none":
		return &clarity.OptionalValue{}, nil
	case "tx-sender", "contract-caller":
		return &clarity.PrincipalValue{Principal: f.caller}, nil
	case "block-height", "stacks-block-height", "burn-block-height":
		return &clarity.UintValue{Value: new(big.Int).SetUint64(f.chain.blockHeight)}, nil
	}
	if strings.HasPrefix(token, "u") {
		if value, ok := new(big.Int).SetString(token[1:], 10); ok {
			return &clarity.UintValue{Value: value}, nil
		}
	}
	if value, ok := new(big.Int).SetString(token, 10); ok {
		return &clarity.IntValue{Value: value}, nil
	}
	if strings.HasPrefix(token, "0x") {
		data, err := hex.DecodeString(token[2:])
		if err != nil {
			return nil, f.fault("malformed buffer literal '%s'", token)
		}
		return &clarity.BufferValue{Data: data}, nil
	}
	if strings.HasPrefix(token, "'") {
		return &clarity.PrincipalValue{Principal: token[1:]}, nil
	}
	if strings.HasPrefix(token, ".") {
		// Sugared contract principal, relative to the current contract's issuer.
		return &clarity.PrincipalValue{Principal: f.contract.id.Issuer() + token}, nil
	}
	if value, ok := f.bindings[token]; ok {
		return value, nil
	}
	if value, ok := f.contract.constants[token]; ok {
		return value, nil
	}
	return nil, f.fault("unbound symbol '%s'", token)
}

// evalForm evaluates a parenthesized application or special form.
func (f *callFrame) evalForm(form *ast.List) (clarity.Value, error) {
	if len(form.Items) == 0 {
		return nil, f.fault("empty expression")
	}
	head := ast.AtomToken(form.Items[0])
	operands := form.Items[1:]

	// Special forms evaluate their operands lazily or take unevaluated name operands.
	switch head {
	case "if":
		return f.evalIf(operands)
	case "and", "or":
		return f.evalShortCircuit(head, operands)
	case "let":
		return f.evalLet(operands)
	case "begin":
		return f.evalBody(operands)
	case "asserts!":
		return f.evalAsserts(operands)
	case "unwrap!", "unwrap-err!":
		return f.evalUnwrap(head, operands)
	case "try!":
		return f.evalTry(operands)
	case "contract-call!":
		return f.evalContractCall(operands)
	case "tuple":
		return f.applyTuple(operands)
	case "get":
		return f.evalGet(operands)
	case "var-get", "var-set":
		return f.evalDataVar(head, operands)
	case "map-get?", "map-set", "map-insert", "map-delete":
		return f.evalMapOp(head, operands)
	}

	// Everything else is strict: evaluate operands first.
	args := make([]clarity.Value, len(operands))
	for i, operand := range operands {
		value, err := f.eval(operand)
		if err != nil {
			return nil, err
		}
		args[i] = value
	}
	return f.applyBuiltin(head, args)
}

func (f *callFrame) evalIf(operands []ast.Node) (clarity.Value, error) {
	if len(operands) != 3 {
		return nil, f.fault("if expects 3 operands")
	}
	condition, err := f.evalBool(operands[0])
	if err != nil {
		return nil, err
	}
	if condition {
		return f.eval(operands[1])
	}
	return f.eval(operands[2])
}

func (f *callFrame) evalShortCircuit(operator string, operands []ast.Node) (clarity.Value, error) {
	for _, operand := range operands {
		value, err := f.evalBool(operand)
		if err != nil {
			return nil, err
		}
		if operator == "and" && !value {
			return &clarity.BoolValue{Value: false}, nil
		}
		if operator == "or" && value {
			return &clarity.BoolValue{Value: true}, nil
		}
	}
	return &clarity.BoolValue{Value: operator == "and"}, nil
}

func (f *callFrame) evalLet(operands []ast.Node) (clarity.Value, error) {
	if len(operands) < 2 {
		return nil, f.fault("let expects bindings and a body")
	}
	bindingList, ok := operands[0].(*ast.List)
	if !ok {
		return nil, f.fault("let bindings must be a list")
	}

	// Bindings extend a copy of the current scope; lets may shadow.
	scope := make(map[string]clarity.Value, len(f.bindings)+len(bindingList.Items))
	for name, value := range f.bindings {
		scope[name] = value
	}
	inner := &callFrame{chain: f.chain, contract: f.contract, function: f.function, caller: f.caller, bindings: scope}
	for _, bindingNode := range bindingList.Items {
		binding, ok := bindingNode.(*ast.List)
		if !ok || len(binding.Items) != 2 {
			return nil, f.fault("malformed let binding")
		}
		value, err := inner.eval(binding.Items[1])
		if err != nil {
			return nil, err
		}
		scope[ast.AtomToken(binding.Items[0])] = value
	}
	return inner.evalBody(operands[1:])
}

// thrownValue carries an early return raised by asserts!/unwrap!/try! up to the enclosing function call.
type thrownValue struct {
	value clarity.Value
}

func (t *thrownValue) Error() string {
	return "early function return: " + t.value.String()
}

func (f *callFrame) evalAsserts(operands []ast.Node) (clarity.Value, error) {
	if len(operands) != 2 {
		return nil, f.fault("asserts! expects 2 operands")
	}
	condition, err := f.evalBool(operands[0])
	if err != nil {
		return nil, err
	}
	if condition {
		return &clarity.BoolValue{Value: true}, nil
	}
	thrown, err := f.eval(operands[1])
	if err != nil {
		return nil, err
	}
	return nil, &thrownValue{value: thrown}
}

func (f *callFrame) evalUnwrap(operator string, operands []ast.Node) (clarity.Value, error) {
	if len(operands) != 2 {
		return nil, f.fault("%s expects 2 operands", operator)
	}
	wrapped, err := f.eval(operands[0])
	if err != nil {
		return nil, err
	}
	if inner, ok := unwrapInner(wrapped, operator == "unwrap-err!"); ok {
		return inner, nil
	}
	thrown, err := f.eval(operands[1])
	if err != nil {
		return nil, err
	}
	return nil, &thrownValue{value: thrown}
}

func (f *callFrame) evalTry(operands []ast.Node) (clarity.Value, error) {
	if len(operands) != 1 {
		return nil, f.fault("try! expects 1 operand")
	}
	wrapped, err := f.eval(operands[0])
	if err != nil {
		return nil, err
	}
	switch typed := wrapped.(type) {
	case *clarity.ResponseValue:
		if typed.Ok {
			return typed.Inner, nil
		}
		return nil, &thrownValue{value: typed}
	case *clarity.OptionalValue:
		if typed.Inner != nil {
			return typed.Inner, nil
		}
		return nil, &thrownValue{value: typed}
	}
	return nil, f.fault("try! expects a response or optional")
}

// evalContractCall dispatches (contract-call! target function args...). The target may be a literal contract
// principal or a trait parameter bound to one.
func (f *callFrame) evalContractCall(operands []ast.Node) (clarity.Value, error) {
	if len(operands) < 2 {
		return nil, f.fault("contract-call! expects a callee and a function name")
	}
	target, err := f.eval(operands[0])
	if err != nil {
		return nil, err
	}
	principal, ok := target.(*clarity.PrincipalValue)
	if !ok || !strings.Contains(principal.Principal, ".") {
		return nil, f.fault("contract-call! target is not a contract principal")
	}
	callee, exists := f.chain.contracts[ContractID(principal.Principal)]
	if !exists {
		return nil, f.fault("contract-call! target '%s' is not deployed", principal.Principal)
	}

	functionName := ast.AtomToken(operands[1])
	args := make([]clarity.Value, len(operands)-2)
	for i, operand := range operands[2:] {
		if args[i], err = f.eval(operand); err != nil {
			return nil, err
		}
	}
	return f.chain.invoke(callee, functionName, args, f.caller)
}

func (f *callFrame) evalGet(operands []ast.Node) (clarity.Value, error) {
	if len(operands) != 2 {
		return nil, f.fault("get expects a field name and a tuple")
	}
	value, err := f.eval(operands[1])
	if err != nil {
		return nil, err
	}
	tuple, ok := value.(*clarity.TupleValue)
	if !ok {
		return nil, f.fault("get expects a tuple")
	}
	field := tuple.Get(ast.AtomToken(operands[0]))
	if field == nil {
		return nil, f.fault("tuple has no field '%s'", ast.AtomToken(operands[0]))
	}
	return field, nil
}

// evalDataVar handles var-get and var-set, whose first operand is an unevaluated var name.
func (f *callFrame) evalDataVar(operator string, operands []ast.Node) (clarity.Value, error) {
	if len(operands) == 0 {
		return nil, f.fault("%s expects a var name", operator)
	}
	varName := ast.AtomToken(operands[0])
	if _, ok := f.contract.dataVars[varName]; !ok {
		return nil, f.fault("unknown data var '%s'", varName)
	}
	if operator == "var-get" {
		return f.contract.dataVars[varName], nil
	}
	if len(operands) != 2 {
		return nil, f.fault("var-set expects a var name and a value")
	}
	value, err := f.eval(operands[1])
	if err != nil {
		return nil, err
	}
	f.contract.dataVars[varName] = value
	return &clarity.BoolValue{Value: true}, nil
}

// evalMapOp handles the map builtins, whose first operand is an unevaluated map name. Map keys index storage by
// their literal rendering.
func (f *callFrame) evalMapOp(operator string, operands []ast.Node) (clarity.Value, error) {
	if len(operands) < 2 {
		return nil, f.fault("%s expects a map name and a key", operator)
	}
	mapName := ast.AtomToken(operands[0])
	storage, ok := f.contract.maps[mapName]
	if !ok {
		return nil, f.fault("unknown map '%s'", mapName)
	}
	key, err := f.eval(operands[1])
	if err != nil {
		return nil, err
	}
	keyText := key.String()

	switch operator {
	case "map-get?":
		if value, exists := storage[keyText]; exists {
			return &clarity.OptionalValue{Inner: value}, nil
		}
		return &clarity.OptionalValue{}, nil
	case "map-delete":
		_, existed := storage[keyText]
		delete(storage, keyText)
		return &clarity.BoolValue{Value: existed}, nil
	}

	if len(operands) != 3 {
		return nil, f.fault("%s expects a map name, a key and a value", operator)
	}
	value, err := f.eval(operands[2])
	if err != nil {
		return nil, err
	}
	if operator == "map-insert" {
		if _, exists := storage[keyText]; exists {
			return &clarity.BoolValue{Value: false}, nil
		}
	}
	storage[keyText] = value
	return &clarity.BoolValue{Value: true}, nil
}

// evalBool evaluates an expression and requires a boolean result.
func (f *callFrame) evalBool(node ast.Node) (bool, error) {
	value, err := f.eval(node)
	if err != nil {
		return false, err
	}
	boolean, ok := value.(*clarity.BoolValue)
	if !ok {
		return false, f.fault("expected a boolean, got %s", value.String())
	}
	return boolean.Value, nil
}

// unwrapInner extracts the payload of an optional or response value. wantErr selects the err side of responses.
func unwrapInner(wrapped clarity.Value, wantErr bool) (clarity.Value, bool) {
	switch typed := wrapped.(type) {
	case *clarity.OptionalValue:
		if !wantErr && typed.Inner != nil {
			return typed.Inner, true
		}
	case *clarity.ResponseValue:
		if typed.Ok != wantErr {
			return typed.Inner, true
		}
	}
	return nil, false
}

// applyBuiltin applies a strict builtin or a same-contract function call.
func (f *callFrame) applyBuiltin(name string, args []clarity.Value) (clarity.Value, error) {
	switch name {
	case "+", "-", "*", "/", "mod":
		return f.applyArithmetic(name, args)
	case "<", "<=", ">", ">=":
		return f.applyComparison(name, args)
	case "is-eq":
		if len(args) < 2 {
			return nil, f.fault("is-eq expects at least 2 operands")
		}
		for _, arg := range args[1:] {
			if arg.String() != args[0].String() {
				return &clarity.BoolValue{Value: false}, nil
			}
		}
		return &clarity.BoolValue{Value: true}, nil
	case "not":
		boolean, ok := args[0].(*clarity.BoolValue)
		if !ok {
			return nil, f.fault("not expects a boolean")
		}
		return &clarity.BoolValue{Value: !boolean.Value}, nil
	case "ok":
		return &clarity.ResponseValue{Ok: true, Inner: args[0]}, nil
	case "err":
		return &clarity.ResponseValue{Ok: false, Inner: args[0]}, nil
	case "some":
		return &clarity.OptionalValue{Inner: args[0]}, nil
	case "is-ok", "is-err":
		response, ok := args[0].(*clarity.ResponseValue)
		if !ok {
			return nil, f.fault("%s expects a response", name)
		}
		return &clarity.BoolValue{Value: response.Ok == (name == "is-ok")}, nil
	case "is-some", "is-none":
		optional, ok := args[0].(*clarity.OptionalValue)
		if !ok {
			return nil, f.fault("%s expects an optional", name)
		}
		return &clarity.BoolValue{Value: (optional.Inner != nil) == (name == "is-some")}, nil
	case "default-to":
		optional, ok := args[1].(*clarity.OptionalValue)
		if !ok {
			return nil, f.fault("default-to expects an optional")
		}
		if optional.Inner == nil {
			return args[0], nil
		}
		return optional.Inner, nil
	case "unwrap-panic":
		if inner, ok := unwrapInner(args[0], false); ok {
			return inner, nil
		}
		return nil, f.fault("unwrap-panic on %s", args[0].String())
	case "len":
		return f.applyLen(args[0])
	case "list":
		return &clarity.ListValue{Items: args}, nil
	case "print":
		return args[0], nil
	}

	// Fall back to a same-contract function call.
	if definition, ok := f.contract.functions[name]; ok {
		return f.chain.invokeDefinition(f.contract, definition, name, args, f.caller)
	}
	return nil, f.fault("unknown function '%s'", name)
}

func (f *callFrame) applyTuple(operands []ast.Node) (clarity.Value, error) {
	fields := make([]clarity.TupleFieldValue, 0, len(operands))
	for _, operand := range operands {
		pair, ok := operand.(*ast.List)
		if !ok || len(pair.Items) != 2 {
			return nil, f.fault("malformed tuple field")
		}
		value, err := f.eval(pair.Items[1])
		if err != nil {
			return nil, err
		}
		fields = append(fields, clarity.TupleFieldValue{Name: ast.AtomToken(pair.Items[0]), Value: value})
	}
	return &clarity.TupleValue{Fields: fields}, nil
}

func (f *callFrame) applyLen(value clarity.Value) (clarity.Value, error) {
	var length int
	switch typed := value.(type) {
	case *clarity.ListValue:
		length = len(typed.Items)
	case *clarity.BufferValue:
		length = len(typed.Data)
	case *clarity.StringAsciiValue:
		length = len(typed.Data)
	case *clarity.StringUtf8Value:
		length = len([]rune(typed.Data))
	default:
		return nil, f.fault("len expects a sequence")
	}
	return &clarity.UintValue{Value: big.NewInt(int64(length))}, nil
}

// applyArithmetic applies an integer operator over uniformly signed or unsigned operands, faulting on overflow,
// underflow or division by zero exactly as the VM would.
func (f *callFrame) applyArithmetic(operator string, args []clarity.Value) (clarity.Value, error) {
	if len(args) == 0 {
		return nil, f.fault("%s expects at least one operand", operator)
	}
	unsigned, first, err := f.integerOperand(args[0])
	if err != nil {
		return nil, err
	}
	accumulator := new(big.Int).Set(first)
	for _, arg := range args[1:] {
		argUnsigned, operand, err := f.integerOperand(arg)
		if err != nil {
			return nil, err
		}
		if argUnsigned != unsigned {
			return nil, f.fault("%s over mixed int and uint operands", operator)
		}
		switch operator {
		case "+":
			accumulator.Add(accumulator, operand)
		case "-":
			accumulator.Sub(accumulator, operand)
		case "*":
			accumulator.Mul(accumulator, operand)
		case "/":
			if operand.Sign() == 0 {
				return nil, f.fault("division by zero")
			}
			accumulator.Quo(accumulator, operand)
		case "mod":
			if operand.Sign() == 0 {
				return nil, f.fault("division by zero")
			}
			accumulator.Rem(accumulator, operand)
		}
	}
	if unsigned {
		if accumulator.Sign() < 0 || accumulator.Cmp(clarity.MaxUint128) > 0 {
			return nil, f.fault("uint overflow in %s", operator)
		}
		return &clarity.UintValue{Value: accumulator}, nil
	}
	if accumulator.Cmp(clarity.MinInt128) < 0 || accumulator.Cmp(clarity.MaxInt128) > 0 {
		return nil, f.fault("int overflow in %s", operator)
	}
	return &clarity.IntValue{Value: accumulator}, nil
}

func (f *callFrame) applyComparison(operator string, args []clarity.Value) (clarity.Value, error) {
	if len(args) != 2 {
		return nil, f.fault("%s expects 2 operands", operator)
	}
	leftUnsigned, left, err := f.integerOperand(args[0])
	if err != nil {
		return nil, err
	}
	rightUnsigned, right, err := f.integerOperand(args[1])
	if err != nil {
		return nil, err
	}
	if leftUnsigned != rightUnsigned {
		return nil, f.fault("%s over mixed int and uint operands", operator)
	}
	comparison := left.Cmp(right)
	var result bool
	switch operator {
	case "<":
		result = comparison < 0
	case "<=":
		result = comparison <= 0
	case ">":
		result = comparison > 0
	case ">=":
		result = comparison >= 0
	}
	return &clarity.BoolValue{Value: result}, nil
}

// integerOperand extracts a big.Int and its signedness from an integer value.
func (f *callFrame) integerOperand(value clarity.Value) (bool, *big.Int, error) {
	switch typed := value.(type) {
	case *clarity.UintValue:
		return true, typed.Value, nil
	case *clarity.IntValue:
		return false, typed.Value, nil
	}
	return false, nil, f.fault("expected an integer, got %s", value.String())
}
