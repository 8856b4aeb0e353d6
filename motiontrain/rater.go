package motiontrain

// LinearDecay is an anysgd.Rater that decays the learning rate
// linearly to zero over a fixed number of epochs.
type LinearDecay struct {
	Initial   float64
	NumEpochs float64
}

// Rate returns the rate for a (fractional) epoch.
func (l *LinearDecay) Rate(epoch float64) float64 {
	frac := 1 - epoch/l.NumEpochs
	if frac < 0 {
		frac = 0
	}
	return l.Initial * frac
}
