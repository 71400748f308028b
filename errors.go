package convhook

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDoubleHook means the registration is already installed
	ErrDoubleHook = errors.New("double hook")
	// ErrInputType means the signature is not a func type
	ErrInputType = errors.New("input is not func type")
	// ErrSignatureUnsupported means the convention cannot carry the signature
	ErrSignatureUnsupported = errors.New("signature unsupported by calling convention")
	// ErrNotInstalled means a wrapper ran before its hook was installed
	ErrNotInstalled = errors.New("hook not installed")
	// ErrNilHook means no hook closure was given
	ErrNilHook = errors.New("nil hook")
	// ErrNilBody means a hook returned a nil function for a call
	ErrNilBody = errors.New("hook returned nil function")
	// ErrNilAddress means the original address is zero
	ErrNilAddress = errors.New("nil address")
)

// DoubleHookError is returned when a registration that already holds a
// relocated original is installed again. It matches ErrDoubleHook.
type DoubleHookError struct {
	Original  Address
	Signature Signature
}

func (e *DoubleHookError) Error() string {
	return fmt.Sprintf("double hook of %X (%s)", e.Original.Number(), e.Signature)
}

func (e *DoubleHookError) Is(target error) bool {
	return target == ErrDoubleHook
}

// InstallError describes a hook registration that cannot be dispatched.
type InstallError struct {
	Original Address
	Err      error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("hook %s: %v", e.Original, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

func (e *InstallError) Cause() error {
	return e.Err
}
