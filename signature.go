package convhook

import (
	"reflect"

	"github.com/pkg/errors"
)

// Signature is the resolved shape of a hooked function: a Go func type
// describing its arguments and results, and the convention it is called
// with. Wrappers are generated from it and it keys the registry.
type Signature struct {
	Type reflect.Type
	Conv Conv
}

// SignatureOf resolves F under convention C. F must be a func type, and for
// the C conventions every argument and the result must fit in a register.
func SignatureOf[C Convention, F any]() (Signature, error) {
	var c C
	t := reflect.TypeOf((*F)(nil)).Elem()
	if t.Kind() != reflect.Func {
		return Signature{}, errors.Wrapf(ErrInputType, "%s", t)
	}
	if err := c.check(t); err != nil {
		return Signature{}, err
	}
	return Signature{Type: t, Conv: c.Conv()}, nil
}

func (s Signature) String() string {
	if s.Type == nil {
		return s.Conv.String() + " <nil>"
	}
	return s.Conv.String() + " " + s.Type.String()
}
