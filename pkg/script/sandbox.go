package script

import (
	"fmt"

	"github.com/dop251/goja"
)

// Sandbox manages security restrictions of a runtime
type Sandbox struct {
	securityLevel string
	maxStackDepth int
}

// NewSandbox creates a new sandbox with the given configuration
func NewSandbox(config *Config) *Sandbox {
	return &Sandbox{
		securityLevel: config.SecurityLevel,
		maxStackDepth: config.MaxStackDepth,
	}
}

// Apply applies sandbox restrictions to a runtime
func (s *Sandbox) Apply(vm *goja.Runtime) error {
	if s.maxStackDepth > 0 {
		vm.SetMaxCallStackSize(s.maxStackDepth)
	}

	if err := s.removeDangerousGlobals(vm); err != nil {
		return fmt.Errorf("failed to remove dangerous globals: %w", err)
	}

	if err := s.freezeBuiltins(vm); err != nil {
		return fmt.Errorf("failed to freeze built-ins: %w", err)
	}

	return nil
}

// removeDangerousGlobals removes or restricts host-like globals
func (s *Sandbox) removeDangerousGlobals(vm *goja.Runtime) error {
	dangerousGlobals := []string{
		"require",
		"module",
		"exports",
		"process",
		"global",
		"__dirname",
		"__filename",
		"Buffer",
		"setImmediate",
		"clearImmediate",
	}

	for _, name := range dangerousGlobals {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	if s.securityLevel == SecurityLevelStrict {
		for _, name := range []string{"eval", "Function"} {
			if err := s.forbid(vm, name); err != nil {
				return err
			}
		}
	}

	return nil
}

// forbid replaces a global with a function that throws a security error
func (s *Sandbox) forbid(vm *goja.Runtime, name string) error {
	message := fmt.Sprintf("%s is not allowed in %s security mode", name, s.securityLevel)
	return vm.Set(name, func(goja.FunctionCall) goja.Value {
		panic(vm.NewGoError(NewSecurityError(message)))
	})
}

// freezeBuiltins freezes built-in objects to prevent tampering
func (s *Sandbox) freezeBuiltins(vm *goja.Runtime) error {
	if s.securityLevel == SecurityLevelPermissive {
		return nil
	}

	val, err := vm.RunString(`
		(function() {
			return function(obj) {
				if (obj && (typeof obj === 'object' || typeof obj === 'function')) {
					Object.freeze(obj);
					if (obj.prototype) {
						Object.freeze(obj.prototype);
					}
				}
			};
		})()
	`)
	if err != nil {
		return fmt.Errorf("failed to create freeze function: %w", err)
	}

	freezeFn, ok := goja.AssertFunction(val)
	if !ok {
		return fmt.Errorf("freeze function is not a function")
	}

	for _, name := range []string{"Object", "Array", "String", "Number", "Boolean", "Date", "RegExp", "Error", "Math"} {
		obj := vm.Get(name)
		if obj == nil || goja.IsUndefined(obj) {
			continue
		}
		// a builtin that refuses to freeze is left as is
		_, _ = freezeFn(goja.Undefined(), obj)
	}

	return nil
}
