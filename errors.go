package safemap

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Contract violations. They are programming errors, not runtime conditions,
// and reach callers wrapped in a *ContractError panic unless the API is a
// query (Lookup) that returns them.
var (
	ErrKeyNotFound       = errors.New("key not found")
	ErrTypeNotRegistered = errors.New("value type not registered")
	ErrNullHandle        = errors.New("access through null or unlocked handle")
	ErrEmptySlot         = errors.New("access to empty slot")
	ErrTypeMismatch      = errors.New("view recovered with wrong value type")
)

// ContractError describes a precondition violation: which operation failed,
// and for which key and value type.
type ContractError struct {
	Op   string
	Key  any          // nil when the operation has no key
	Type reflect.Type // value type, nil when unknown
	Err  error
}

func (e *ContractError) Error() string {
	var sb strings.Builder
	sb.WriteString("safemap: ")
	sb.WriteString(e.Op)
	if e.Type != nil {
		sb.WriteString("[")
		sb.WriteString(e.Type.String())
		sb.WriteString("]")
	}
	if e.Key != nil {
		fmt.Fprintf(&sb, "(key=%v)", e.Key)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *ContractError) Unwrap() error {
	return e.Err
}
