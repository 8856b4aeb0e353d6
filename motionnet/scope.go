package motionnet

import "fmt"

// A Scope is an immutable hierarchical name prefix.
// Constructors receive a Scope and extend it for their
// sub-components, so validation errors and debug output can name
// the exact layer involved without any global naming state.
type Scope string

// Sub derives the scope for a named sub-component.
func (s Scope) Sub(name string) Scope {
	if s == "" {
		return Scope(name)
	}
	return Scope(string(s) + "/" + name)
}

// Subf is Sub with a format string.
func (s Scope) Subf(format string, args ...interface{}) Scope {
	return s.Sub(fmt.Sprintf(format, args...))
}

// Errorf builds an error prefixed with the scope path.
func (s Scope) Errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s", string(s), fmt.Sprintf(format, args...))
}

func (s Scope) String() string {
	return string(s)
}
