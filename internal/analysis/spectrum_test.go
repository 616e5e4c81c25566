package analysis

import (
	"math"
	"testing"
)

func TestFFTConstantSignal(t *testing.T) {
	data := []float64{2, 2, 2, 2}
	out := FFT(data)
	if math.Abs(real(out[0])-8) > 1e-12 {
		t.Errorf("DC component = %v, want 8", out[0])
	}
	for i := 1; i < len(out); i++ {
		if cmplxAbs(out[i]) > 1e-12 {
			t.Errorf("bin %d = %v, want 0", i, out[i])
		}
	}
}

func TestPowerSpectrumFindsSine(t *testing.T) {
	n := 256
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 16 * float64(i) / float64(n))
	}
	ps := PowerSpectrum(data)
	maxIdx := 0
	for i := range ps {
		if ps[i] > ps[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx != 16 {
		t.Errorf("peak at bin %d, want 16", maxIdx)
	}
}

func TestPowerSpectrumPadsOddLengths(t *testing.T) {
	data := make([]float64, 100)
	for i := range data {
		data[i] = float64(i % 7)
	}
	ps := PowerSpectrum(data)
	if len(ps) != 64 {
		t.Errorf("spectrum length %d, want 64", len(ps))
	}
}

func TestDominantFrequency(t *testing.T) {
	// 4 Hz sine sampled at 100 Hz for 2.56 s: 256 samples, no padding.
	dt := 0.01
	data := make([]float64, 256)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 4 * float64(i) * dt)
	}
	got := DominantFrequency(data, dt)
	if math.Abs(got-4) > 0.5 {
		t.Errorf("dominant frequency = %v, want about 4", got)
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
