// Package driver defines the capability an external solver must implement
// to drive a VM's input as if it were a user at the terminal.
//
// Two choices depart from how the original Python reference implements
// this: the duck-typed driver object becomes an explicit two-method
// interface, and the module-level mutable solver registry becomes a
// Registry value passed into whatever attaches drivers (the console
// package), not a package global.
package driver

// Driver synthesises guest input from guest output. A VM's input opcode
// hands it everything written since the last input request; a false second
// return value detaches the driver and falls back to interactive input.
type Driver interface {
	// Drive receives the output produced since the previous call (or, on
	// the very first call, the bootstrap string passed to the
	// constructor) and returns the next line to feed the guest. ok=false
	// detaches the driver.
	Drive(outputSinceLastInput string) (line string, ok bool)

	// Log lets the driver surface progress without writing to guest
	// stdout, where it would collide with guest output.
	Log(message string)
}

// Constructor builds a Driver given a bootstrap argument string (the text
// following the driver name in `.slv name args...`).
type Constructor func(bootstrap string) (Driver, error)

// Registry maps driver names to constructors. The console package owns one
// instance and passes it in at construction time; there is no package-level
// global registry (see design notes on the source's module-level map).
type Registry struct {
	ctors map[string]Constructor
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a named driver constructor. Re-registering a name replaces
// its constructor but keeps its original position in Names().
func (r *Registry) Register(name string, ctor Constructor) {
	if _, exists := r.ctors[name]; !exists {
		r.order = append(r.order, name)
	}
	r.ctors[name] = ctor
}

// Names lists registered driver names in registration order, for `.slv`
// with no arguments.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Build constructs the named driver with the given bootstrap string. It
// reports ok=false if name is not registered.
func (r *Registry) Build(name, bootstrap string) (Driver, error, bool) {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, nil, false
	}
	d, err := ctor(bootstrap)
	return d, err, true
}
