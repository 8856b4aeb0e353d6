package motionnet

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// SerializeParams encodes a network's parameter vectors in
// order.
func SerializeParams(params []*anydiff.Var) ([]byte, error) {
	slice := make([]serializer.Serializer, len(params))
	for i, p := range params {
		slice[i] = &anyvecsave.S{Vector: p.Vector}
	}
	return serializer.SerializeSlice(slice)
}

// RestoreParams overwrites a network's parameter vectors with
// previously serialized ones.
// The parameter count and every vector length must match.
func RestoreParams(d []byte, params []*anydiff.Var) error {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return essentials.AddCtx("restore parameters", err)
	}
	if len(slice) != len(params) {
		return fmt.Errorf("restore parameters: want %d vectors, but got %d",
			len(params), len(slice))
	}
	for i, x := range slice {
		s, ok := x.(*anyvecsave.S)
		if !ok {
			return fmt.Errorf("restore parameters: not a vector: %T", x)
		}
		if s.Vector.Len() != params[i].Vector.Len() {
			return fmt.Errorf("restore parameters: vector %d should have length "+
				"%d, but got %d", i, params[i].Vector.Len(), s.Vector.Len())
		}
		params[i].Vector.Set(s.Vector)
	}
	return nil
}
