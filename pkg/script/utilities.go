package script

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Env is the per-evaluation environment handed to utilities.
type Env struct {
	Logger *zap.Logger

	signal error
}

// Raise records err as the evaluation outcome and aborts the script.
func (env *Env) Raise(vm *goja.Runtime, err error) {
	env.signal = err
	panic(vm.NewGoError(err))
}

// Utility installs globals into a runtime
type Utility interface {
	// Name returns the unique name of the utility
	Name() string

	// Register installs the utility in the runtime
	Register(vm *goja.Runtime, env *Env) error

	// AllowedSecurityLevels returns the security levels that allow this utility
	AllowedSecurityLevels() []string
}

// UtilityRegistry manages available utilities
type UtilityRegistry struct {
	utilities map[string]Utility
	mu        sync.RWMutex
}

// NewUtilityRegistry creates a registry with the built-in utilities
func NewUtilityRegistry() *UtilityRegistry {
	registry := &UtilityRegistry{
		utilities: make(map[string]Utility),
	}

	registry.Register(&ConsoleUtility{})
	registry.Register(&JSONUtility{})
	registry.Register(&EncodingUtility{})

	return registry
}

// Register adds a utility to the registry
func (r *UtilityRegistry) Register(utility Utility) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.utilities[utility.Name()] = utility
}

// Names returns the registered utility names, sorted
func (r *UtilityRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.utilities))
	for name := range r.utilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterEnabled installs the enabled utilities allowed at the configured level
func (r *UtilityRegistry) RegisterEnabled(vm *goja.Runtime, env *Env, config *Config) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range config.EnabledUtilities {
		utility, ok := r.utilities[name]
		if !ok {
			continue
		}
		if !slices.Contains(utility.AllowedSecurityLevels(), config.SecurityLevel) {
			continue
		}
		if err := utility.Register(vm, env); err != nil {
			return fmt.Errorf("failed to register utility %s: %w", name, err)
		}
	}

	return nil
}

// FlowUtility provides assert, notImplemented and notReady. It is always installed.
type FlowUtility struct{}

func (FlowUtility) Name() string { return "flow" }

func (FlowUtility) AllowedSecurityLevels() []string {
	return []string{SecurityLevelStrict, SecurityLevelStandard, SecurityLevelPermissive}
}

func (FlowUtility) Register(vm *goja.Runtime, env *Env) error {
	if err := vm.Set("assert", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).ToBoolean() {
			return goja.Undefined()
		}
		message := "assertion failed"
		if len(call.Arguments) > 1 {
			message = call.Argument(1).String()
		}
		env.Raise(vm, &ValidationFailure{Message: message})
		return nil
	}); err != nil {
		return err
	}
	if err := vm.Set("notImplemented", func(goja.FunctionCall) goja.Value {
		env.Raise(vm, ErrNotImplemented)
		return nil
	}); err != nil {
		return err
	}
	return vm.Set("notReady", func(goja.FunctionCall) goja.Value {
		env.Raise(vm, ErrNotReady)
		return nil
	})
}

// ConsoleUtility forwards console output to the logger
type ConsoleUtility struct{}

func (ConsoleUtility) Name() string { return "console" }

func (ConsoleUtility) AllowedSecurityLevels() []string {
	return []string{SecurityLevelStandard, SecurityLevelPermissive}
}

func (ConsoleUtility) Register(vm *goja.Runtime, env *Env) error {
	console := vm.NewObject()

	logFn := func(write func(string, ...zap.Field)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			write("script console", zap.String("message", strings.Join(parts, " ")))
			return goja.Undefined()
		}
	}

	for name, write := range map[string]func(string, ...zap.Field){
		"log":   env.Logger.Info,
		"info":  env.Logger.Info,
		"debug": env.Logger.Debug,
		"warn":  env.Logger.Warn,
		"error": env.Logger.Error,
	} {
		if err := console.Set(name, logFn(write)); err != nil {
			return err
		}
	}

	return vm.Set("console", console)
}

// JSONUtility provides JSON.parse and JSON.stringify backed by encoding/json
type JSONUtility struct{}

func (JSONUtility) Name() string { return "json" }

func (JSONUtility) AllowedSecurityLevels() []string {
	return []string{SecurityLevelStrict, SecurityLevelStandard, SecurityLevelPermissive}
}

func (JSONUtility) Register(vm *goja.Runtime, _ *Env) error {
	jsonObj := vm.NewObject()

	if err := jsonObj.Set("parse", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(vm.NewTypeError("JSON.parse requires an argument"))
		}
		var result any
		if err := json.Unmarshal([]byte(call.Argument(0).String()), &result); err != nil {
			panic(vm.NewGoError(fmt.Errorf("JSON.parse error: %w", err)))
		}
		return vm.ToValue(result)
	}); err != nil {
		return err
	}

	if err := jsonObj.Set("stringify", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(vm.NewTypeError("JSON.stringify requires an argument"))
		}
		data, err := json.Marshal(call.Argument(0).Export())
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("JSON.stringify error: %w", err)))
		}
		return vm.ToValue(string(data))
	}); err != nil {
		return err
	}

	return vm.Set("JSON", jsonObj)
}

// EncodingUtility provides btoa and atob
type EncodingUtility struct{}

func (EncodingUtility) Name() string { return "encoding" }

func (EncodingUtility) AllowedSecurityLevels() []string {
	return []string{SecurityLevelStandard, SecurityLevelPermissive}
}

func (EncodingUtility) Register(vm *goja.Runtime, _ *Env) error {
	if err := vm.Set("btoa", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(vm.NewTypeError("btoa requires an argument"))
		}
		return vm.ToValue(base64.StdEncoding.EncodeToString([]byte(call.Argument(0).String())))
	}); err != nil {
		return err
	}

	return vm.Set("atob", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(vm.NewTypeError("atob requires an argument"))
		}
		decoded, err := base64.StdEncoding.DecodeString(call.Argument(0).String())
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("atob error: %w", err)))
		}
		return vm.ToValue(string(decoded))
	})
}
