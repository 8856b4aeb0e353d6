package motionloss

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec32"
)

func scalar(x float32) anydiff.Res {
	return anydiff.NewConst(anyvec32.MakeVectorData([]float32{x}))
}

func TestDictOrder(t *testing.T) {
	d := NewDict()
	d.Add("loss_real", scalar(1))
	d.Add("loss_fake", scalar(2))
	d.Add("extra", scalar(3))

	names := d.Names()
	expected := []string{"loss_real", "loss_fake", "extra"}
	if len(names) != len(expected) {
		t.Fatalf("name count should be %d, but got %d", len(expected),
			len(names))
	}
	for i, x := range expected {
		if names[i] != x {
			t.Errorf("name %d: expected %s but got %s", i, x, names[i])
		}
	}
	if d.Len() != 3 {
		t.Errorf("length should be 3, but got %d", d.Len())
	}
}

func TestDictTotal(t *testing.T) {
	d := NewDict()
	d.Add("a", scalar(1.5))
	d.Add("b", scalar(-0.5))
	total := d.Total().Output().Data().([]float32)[0]
	if total != 1 {
		t.Errorf("total should be 1, but got %f", total)
	}
}

func TestDictDuplicatePanic(t *testing.T) {
	d := NewDict()
	d.Add("a", scalar(1))
	defer func() {
		if recover() == nil {
			t.Error("expected panic for duplicate name")
		}
	}()
	d.Add("a", scalar(2))
}
