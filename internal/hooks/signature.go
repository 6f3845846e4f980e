package hooks

import (
	"fmt"
	"math/big"
	"strings"
)

// Signature enumerates the overload shapes the catalog binds. Each value
// stands for one parameter-type list of the managed runtime.
type Signature uint8

const (
	SigNone        Signature = iota // ()
	SigBytes                        // (byte[])
	SigBytesRange                   // (byte[], int, int)
	SigBytesString                  // (byte[], String)
	SigString                       // (String)
	SigStringPair                   // (String, String)
	SigBigIntPair                   // (BigInteger, BigInteger)
)

// Runtime parameter type descriptors.
const (
	TypeBytes  = "[B"
	TypeInt    = "int"
	TypeString = "java.lang.String"
	TypeBigInt = "java.math.BigInteger"
)

var signatureParams = map[Signature][]string{
	SigNone:        {},
	SigBytes:       {TypeBytes},
	SigBytesRange:  {TypeBytes, TypeInt, TypeInt},
	SigBytesString: {TypeBytes, TypeString},
	SigString:      {TypeString},
	SigStringPair:  {TypeString, TypeString},
	SigBigIntPair:  {TypeBigInt, TypeBigInt},
}

// Params returns the parameter type descriptors, e.g. ["[B", "int", "int"].
func (s Signature) Params() []string {
	p := signatureParams[s]
	out := make([]string, len(p))
	copy(out, p)
	return out
}

// Arity returns the number of parameters.
func (s Signature) Arity() int {
	return len(signatureParams[s])
}

// Valid reports whether s is a known signature.
func (s Signature) Valid() bool {
	_, ok := signatureParams[s]
	return ok
}

// String renders the descriptor list without parentheses.
func (s Signature) String() string {
	if !s.Valid() {
		return fmt.Sprintf("sig(%d)", uint8(s))
	}
	return strings.Join(signatureParams[s], ",")
}

// ParseSignature is the inverse of Signature.String.
func ParseSignature(desc string) (Signature, error) {
	desc = strings.ReplaceAll(desc, " ", "")
	for sig, params := range signatureParams {
		if strings.Join(params, ",") == desc {
			return sig, nil
		}
	}
	return 0, fmt.Errorf("signature %q: %w", desc, ErrInvalidKey)
}

// Check validates that args match the signature's arity and types.
func (s Signature) Check(args []any) error {
	params, ok := signatureParams[s]
	if !ok {
		return fmt.Errorf("%s: %w", s, ErrBadArguments)
	}
	if len(args) != len(params) {
		return fmt.Errorf("(%s) takes %d arguments, got %d: %w", s, len(params), len(args), ErrBadArguments)
	}
	for i, p := range params {
		if !matchesType(p, args[i]) {
			return fmt.Errorf("(%s) argument %d is %T: %w", s, i, args[i], ErrBadArguments)
		}
	}
	return nil
}

func matchesType(param string, v any) bool {
	v = Unwrap(v)
	switch param {
	case TypeBytes:
		if v == nil {
			return true
		}
		_, ok := ToBytes(v)
		return ok
	case TypeInt:
		_, ok := ToInt(v)
		return ok
	case TypeString:
		_, ok := v.(string)
		return ok || v == nil
	case TypeBigInt:
		_, ok := v.(*big.Int)
		return ok || v == nil
	}
	return false
}
