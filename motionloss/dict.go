// Package motionloss composes the adversarial and structural
// training objectives for the motion synthesis networks.
package motionloss

import (
	"github.com/unixpickle/anydiff"
)

// A Dict is an ordered collection of named scalar loss terms.
// Iteration follows insertion order, so summation and telemetry
// are reproducible.
type Dict struct {
	names []string
	terms map[string]anydiff.Res
}

// NewDict creates an empty Dict.
func NewDict() *Dict {
	return &Dict{terms: map[string]anydiff.Res{}}
}

// Add inserts a named term.
// Reusing a name is a programming error.
func (d *Dict) Add(name string, term anydiff.Res) {
	if _, ok := d.terms[name]; ok {
		panic("loss dict: duplicate name: " + name)
	}
	d.names = append(d.names, name)
	d.terms[name] = term
}

// Names returns the term names in insertion order.
func (d *Dict) Names() []string {
	return append([]string{}, d.names...)
}

// Get returns a term by name, or nil.
func (d *Dict) Get(name string) anydiff.Res {
	return d.terms[name]
}

// Len returns the number of terms.
func (d *Dict) Len() int {
	return len(d.names)
}

// Total sums every term in insertion order.
func (d *Dict) Total() anydiff.Res {
	var res anydiff.Res
	for _, name := range d.names {
		if res == nil {
			res = d.terms[name]
		} else {
			res = anydiff.Add(res, d.terms[name])
		}
	}
	return res
}
