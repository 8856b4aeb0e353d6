package motiontrain

import (
	"math"
	"testing"
)

func TestLinearDecay(t *testing.T) {
	epochs := 100
	d := &LinearDecay{Initial: 1e-3, NumEpochs: float64(epochs)}
	if d.Rate(0) != 1e-3 {
		t.Errorf("rate at epoch 0 should be 1e-3, but got %e", d.Rate(0))
	}
	if math.Abs(d.Rate(50)-5e-4) > 1e-12 {
		t.Errorf("rate at epoch 50 should be 5e-4, but got %e", d.Rate(50))
	}
	if d.Rate(100) != 0 || d.Rate(200) != 0 {
		t.Error("rate should never go negative")
	}
}

func TestReportOrder(t *testing.T) {
	r := NewReport()
	r.Add("train/loss_real", 1)
	r.Add("train/loss_fake", 2)
	names := r.Names()
	if len(names) != 2 || names[0] != "train/loss_real" ||
		names[1] != "train/loss_fake" {
		t.Errorf("bad name order: %v", names)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for duplicate name")
		}
	}()
	r.Add("train/loss_real", 3)
}

func TestReportAverage(t *testing.T) {
	total := NewReport()
	for i := 0; i < 4; i++ {
		r := NewReport()
		r.Add("a", float64(i))
		total.Average(r, 0.25)
	}
	if math.Abs(total.Get("a")-1.5) > 1e-9 {
		t.Errorf("average should be 1.5, but got %f", total.Get("a"))
	}

	other := NewReport()
	other.Add("b", 4)
	total.Average(other, 1)
	names := total.Names()
	if len(names) != 2 || names[1] != "b" {
		t.Errorf("missing names should be appended: %v", names)
	}
	if total.Get("b") != 4 {
		t.Errorf("b should be 4, but got %f", total.Get("b"))
	}
}
