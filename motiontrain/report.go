package motiontrain

import (
	"fmt"
	"strings"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"

	"github.com/etarakci-hvl/MotionGAN/motionloss"
)

// A Report is an ordered list of named telemetry values, one
// per loss term.
type Report struct {
	names  []string
	values map[string]float64
}

// NewReport creates an empty Report.
func NewReport() *Report {
	return &Report{values: map[string]float64{}}
}

// Add appends a named value.
// Reusing a name is a programming error.
func (r *Report) Add(name string, value float64) {
	if _, ok := r.values[name]; ok {
		panic("report: duplicate name: " + name)
	}
	r.names = append(r.names, name)
	r.values[name] = value
}

// AddDict appends every term of a loss dictionary under a
// prefix, in the dictionary's order.
func (r *Report) AddDict(prefix string, d *motionloss.Dict) {
	for _, name := range d.Names() {
		r.Add(prefix+name, scalarValue(d.Get(name)))
	}
}

// Names returns the value names in insertion order.
func (r *Report) Names() []string {
	return append([]string{}, r.names...)
}

// Get returns a value by name.
func (r *Report) Get(name string) float64 {
	return r.values[name]
}

// Average accumulates another report into this one with the
// given weight, matching by name.
// Names missing from this report are appended.
func (r *Report) Average(other *Report, weight float64) {
	for _, name := range other.names {
		if _, ok := r.values[name]; !ok {
			r.names = append(r.names, name)
		}
		r.values[name] += weight * other.values[name]
	}
}

// String renders the report as "name=value" pairs in order.
func (r *Report) String() string {
	parts := make([]string, len(r.names))
	for i, name := range r.names {
		parts[i] = fmt.Sprintf("%s=%f", name, r.values[name])
	}
	return strings.Join(parts, " ")
}

// scalarValue reads a one-element result as a float64.
func scalarValue(res anydiff.Res) float64 {
	return vectorValue(res.Output())
}

func vectorValue(v anyvec.Vector) float64 {
	switch data := v.Data().(type) {
	case []float32:
		return float64(data[0])
	case []float64:
		return data[0]
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}
