package convhook

import (
	"sync"

	"go.uber.org/zap"

	"github.com/k2io/convhook/internal/patch"
)

// Wrapper is the function an installer redirects the original to.
type Wrapper struct {
	// Addr is the entry point of the wrapper, except for ConvGo where it is
	// the closure pointer the wrapper's code expects in the context register.
	Addr Address
	Conv Conv
}

// Installer rewrites original so that calls land in wrapper, and returns an
// address through which the original body can still be called.
type Installer interface {
	Install(original Address, wrapper Wrapper) (relocated Address, err error)
}

// InstallerFunc adapts a function to Installer.
type InstallerFunc func(original Address, wrapper Wrapper) (Address, error)

func (f InstallerFunc) Install(original Address, wrapper Wrapper) (Address, error) {
	return f(original, wrapper)
}

// StackReserver is implemented by installers whose relocated Go originals
// do not check the stack bound themselves. StackReserve returns how many
// bytes of free stack a call into relocated needs.
type StackReserver interface {
	StackReserve(relocated Address) uintptr
}

type patchInstaller struct {
	p *patch.Patcher

	mu    sync.Mutex
	stack map[Address]uintptr
}

// NewPatchInstaller returns the in-process prologue patcher, tracing to log
// when it is not nil. It supports amd64 targets; elsewhere every install
// fails with an unsupported error.
func NewPatchInstaller(log *zap.Logger) Installer {
	return &patchInstaller{
		p:     patch.New(patch.WithLogger(log)),
		stack: make(map[Address]uintptr),
	}
}

func (i *patchInstaller) Install(original Address, wrapper Wrapper) (Address, error) {
	kind := patch.Code
	if wrapper.Conv == ConvGo {
		kind = patch.Closure
	}
	t, err := i.p.Patch(original.Number(), wrapper.Addr.Number(), kind)
	if err != nil {
		return 0, err
	}
	relocated := Address(t.Addr)
	if t.Stack != 0 {
		i.mu.Lock()
		i.stack[relocated] = t.Stack
		i.mu.Unlock()
	}
	return relocated, nil
}

func (i *patchInstaller) StackReserve(relocated Address) uintptr {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stack[relocated]
}
