package convhook

import (
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Registry owns hook registrations. A registration is created empty, filled
// once by a successful install and never torn down.
type Registry struct {
	// protect regs and originals
	mu        sync.Mutex
	installer Installer
	log       *zap.Logger
	// registrations keyed by signature and tag
	regs map[key]record
	// installed originals, one registration each
	originals map[Address]record
}

type record interface {
	signature() Signature
}

type key struct {
	sig  reflect.Type
	conv Conv
	tag  reflect.Type
	// set when the tag is derived from the original itself
	addr Address
}

// Option configures a Registry.
type Option func(*Registry)

// WithInstaller sets the raw patch installer. The default is the in-process
// prologue patcher.
func WithInstaller(i Installer) Option {
	return func(r *Registry) {
		r.installer = i
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log:       zap.NewNop(),
		regs:      make(map[key]record),
		originals: make(map[Address]record),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.installer == nil {
		r.installer = NewPatchInstaller(r.log)
	}
	return r
}

var (
	stdOnce sync.Once
	std     *Registry
)

// Default returns the process-wide registry used by Hook, HookAs and HookAt.
// It is created on first use.
func Default() *Registry {
	stdOnce.Do(func() {
		std = NewRegistry()
	})
	return std
}

// SetLogger replaces the logger of the default registry.
func SetLogger(l *zap.Logger) {
	Default().SetLogger(l)
}

// SetLogger replaces the registry's logger.
func (r *Registry) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	r.mu.Lock()
	r.log = l
	r.mu.Unlock()
}

// Installed reports whether original has been hooked through r.
func (r *Registry) Installed(original Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.originals[original]
	return ok
}

// Len returns the number of installed registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regs)
}

type registration[F any] struct {
	sig      Signature
	original Address
	hook     func(F) F
	// keeps the generated wrapper reachable
	wrapper     reflect.Value
	wrapperAddr Address
	state       atomic.Pointer[installed[F]]
}

func (r *registration[F]) signature() Signature {
	return r.sig
}

type installed[F any] struct {
	relocated Address
	original  F
}

// install stores hook under the key (sig, tag), or under (sig, original) when
// tag is nil. The hook, wrapper and relocated original are published
// together, and only once the installer has succeeded.
func install[C Convention, F any](r *Registry, tag reflect.Type, original Address, hook func(F) F) error {
	if hook == nil {
		return ErrNilHook
	}
	if original.IsNil() {
		return ErrNilAddress
	}
	sig, err := SignatureOf[C, F]()
	if err != nil {
		return err
	}
	k := key{sig: sig.Type, conv: sig.Conv, tag: tag}
	if tag == nil {
		k.addr = original
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.regs[k]; ok {
		return &DoubleHookError{Original: original, Signature: sig}
	}
	if prev, ok := r.originals[original]; ok {
		return &DoubleHookError{Original: original, Signature: prev.signature()}
	}

	var c C
	reg := &registration[F]{sig: sig, original: original, hook: hook}
	reg.wrapper, reg.wrapperAddr, err = c.wrap(sig, reg.dispatch)
	if err != nil {
		return err
	}
	log := r.log.With(
		zap.Stringer("original", original),
		zap.Stringer("signature", sig),
		zap.Stringer("wrapper", reg.wrapperAddr),
	)
	if tag != nil {
		log = log.With(zap.Stringer("tag", tag))
	}
	relocated, err := r.installer.Install(original, Wrapper{Addr: reg.wrapperAddr, Conv: sig.Conv})
	if err != nil {
		log.Warn("install failed", zap.Error(err))
		return err
	}
	if relocated.IsNil() {
		log.Warn("installer returned no relocated original")
		return &InstallError{Original: original, Err: ErrNilAddress}
	}
	rel := relocation{addr: relocated}
	if sr, ok := r.installer.(StackReserver); ok {
		rel.stack = sr.StackReserve(relocated)
	}
	bound := c.bind(sig, rel).Interface().(F)
	reg.state.Store(&installed[F]{relocated: relocated, original: bound})
	r.regs[k] = reg
	r.originals[original] = reg
	log.Debug("hook installed", zap.Stringer("relocated", relocated), zap.Uintptr("stack", rel.stack))
	return nil
}
