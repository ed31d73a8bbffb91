package vm

import (
	"sort"
)

// Method is one exported function of a native module. A nil Params slice
// makes the function variadic.
type Method struct {
	Name   string
	Params []string
	Func   NativeFunc
}

// Module is a bundle of native functions reachable from scripts as
// `ad::fonksiyon(...)`. The module with an empty name is the base module,
// whose functions are called without a prefix.
type Module interface {
	Name() string
	Methods() []Method
}

// Registry holds the native modules and per-kind classes of one VM. It is
// built once and only read while programs compile and run.
type Registry struct {
	modules map[string]*Class
	base    *Class
	classes Classes
}

// NewRegistry creates a registry with the standard modules installed.
func NewRegistry() *Registry {
	r := &Registry{
		modules: make(map[string]*Class),
		base:    NewClass(""),
		classes: newClasses(),
	}
	r.Register(baseModule{})
	r.Register(ioModule{})
	r.Register(debugModule{})
	r.Register(numberModule{})
	r.Register(jsonModule{})
	r.Register(fileModule{})
	return r
}

// Register installs a module, replacing any module with the same name.
func (r *Registry) Register(m Module) {
	name := m.Name()
	c := r.base
	if name != "" {
		c = NewClass(name)
		r.modules[name] = c
	}
	for _, method := range m.Methods() {
		c.AddMethod(method.Name, method.Params, method.Func)
	}
	log.Debugf("registered module %q with %d functions", name, len(m.Methods()))
}

// Base returns a function of the base module.
func (r *Registry) Base(name string) (*FunctionRef, bool) {
	return r.base.Method(name)
}

// BaseFunctions returns the names of the base module functions.
func (r *Registry) BaseFunctions() []string {
	return r.base.Methods()
}

// Module returns a native module's class.
func (r *Registry) Module(name string) (*Class, bool) {
	c, ok := r.modules[name]
	return c, ok
}

// Modules returns the registered module names in sorted order.
func (r *Registry) Modules() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a module-qualified function such as ["gç"], "yaz".
func (r *Registry) Lookup(modulePath []string, name string) (*FunctionRef, bool) {
	if len(modulePath) == 0 {
		return r.Base(name)
	}
	if len(modulePath) != 1 {
		return nil, false
	}
	c, ok := r.modules[modulePath[0]]
	if !ok {
		return nil, false
	}
	return c.Method(name)
}

// ClassOf returns the capability class for a value.
func (r *Registry) ClassOf(v Value) *Class {
	return r.classes.classOf(v)
}

// Classes returns the per-kind class table.
func (r *Registry) Classes() *Classes {
	return &r.classes
}
