// Package motiontrain drives the alternating optimization of
// the discriminator and generator networks.
package motiontrain

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

const adamDamping = 1e-8

// Adam implements the adaptive moments transformer from
// https://arxiv.org/pdf/1412.6980.pdf as an anysgd.Transformer.
//
// Unlike anysgd.Adam, the decay rates are honored exactly as
// given: a zero Beta1, as the WGAN-GP training schedule
// prescribes, really disables the first moment's memory.
type Adam struct {
	Beta1 float64
	Beta2 float64

	firstMoment  anydiff.Grad
	secondMoment anydiff.Grad
	iteration    float64
}

// Transform applies the adaptive moment update in place.
func (a *Adam) Transform(realGrad anydiff.Grad) anydiff.Grad {
	a.updateMoments(realGrad)

	a.iteration++
	scalingFactor := math.Sqrt(1-math.Pow(a.Beta2, a.iteration)) /
		(1 - math.Pow(a.Beta1, a.iteration))
	for variable, vec := range realGrad {
		firstVec := a.firstMoment[variable]
		secondVec := a.secondMoment[variable]

		vec.Set(firstVec)
		vec.Scale(vec.Creator().MakeNumeric(scalingFactor))

		divisor := secondVec.Copy()
		divisor.AddScalar(divisor.Creator().MakeNumeric(adamDamping))
		anyvec.Pow(divisor, divisor.Creator().MakeNumeric(0.5))
		vec.Div(divisor)
	}

	return realGrad
}

func (a *Adam) updateMoments(grad anydiff.Grad) {
	if a.firstMoment == nil {
		a.firstMoment = copyGrad(grad)
		scaleGrad(a.firstMoment, 1-a.Beta1)
	} else {
		scaleGrad(a.firstMoment, a.Beta1)
		keepRate := 1 - a.Beta1
		for variable, vec := range grad {
			momentVec := a.firstMoment[variable]
			v := vec.Copy()
			v.Scale(vec.Creator().MakeNumeric(keepRate))
			momentVec.Add(v)
		}
	}

	if a.secondMoment == nil {
		a.secondMoment = copyGrad(grad)
		for _, v := range a.secondMoment {
			anyvec.Pow(v, v.Creator().MakeNumeric(2))
		}
		scaleGrad(a.secondMoment, 1-a.Beta2)
	} else {
		scaleGrad(a.secondMoment, a.Beta2)
		keepRate := 1 - a.Beta2
		for variable, vec := range grad {
			momentVec := a.secondMoment[variable]
			v := vec.Copy()
			anyvec.Pow(v, v.Creator().MakeNumeric(2))
			v.Scale(v.Creator().MakeNumeric(keepRate))
			momentVec.Add(v)
		}
	}
}

func copyGrad(grad anydiff.Grad) anydiff.Grad {
	res := anydiff.Grad{}
	for variable, vec := range grad {
		res[variable] = vec.Copy()
	}
	return res
}

func scaleGrad(grad anydiff.Grad, scale float64) {
	for _, vec := range grad {
		vec.Scale(vec.Creator().MakeNumeric(scale))
	}
}
