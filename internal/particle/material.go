package particle

import (
	"math"

	"github.com/mawry/graupel/internal/levelset"
	"github.com/mawry/graupel/internal/math3"
)

// Material bundles the constitutive parameters for a particle kind.
type Material struct {
	Kind Kind

	YoungsModulus float64
	PoissonRatio  float64
	Density       float64

	// Snow plasticity: hardening and singular-value clamp bounds.
	Hardening        float64
	CompressionLimit float64 // theta_c
	StretchLimit     float64 // theta_s

	// Sand plasticity: internal friction angle in radians.
	FrictionAngle float64
}

// Snow is the standard elastic-plastic snow material.
func Snow() Material {
	return Material{
		Kind:             ElasticPlastic,
		YoungsModulus:    1.4e5,
		PoissonRatio:     0.2,
		Density:          400,
		Hardening:        10,
		CompressionLimit: 2.5e-2,
		StretchLimit:     7.5e-3,
	}
}

// Sand is a cohesionless granular material.
func Sand() Material {
	return Material{
		Kind:          GranularSand,
		YoungsModulus: 3.5e5,
		PoissonRatio:  0.3,
		Density:       1600,
		FrictionAngle: 35 * math.Pi / 180,
	}
}

// Lame returns the Lame parameters (mu, lambda) before hardening.
func (m Material) Lame() (mu, lambda float64) {
	e, nu := m.YoungsModulus, m.PoissonRatio
	mu = e / (2 * (1 + nu))
	lambda = e * nu / ((1 + nu) * (1 - 2*nu))
	return mu, lambda
}

// SoundSpeed estimates the elastic wave speed, the quantity that bounds the
// stable time step for a strength-limited region.
func (m Material) SoundSpeed() float64 {
	return math.Sqrt(m.YoungsModulus / m.Density)
}

// ComputeForce evaluates the constitutive stress from the cached total
// deformation gradient and stores -vol*stress in TmpForce. The grid pass
// later scatters TmpForce * gradW * dt / nodeMass into grid velocity.
func (p *Particle) ComputeForce(m Material) {
	mu, lambda := m.Lame()

	if p.Kind == ElasticPlastic {
		// Hardening stiffens the response as plastic compression grows.
		jp := p.DgP.Det()
		h := math.Exp(math.Min(m.Hardening*(1-jp), 10))
		mu *= h
		lambda *= h
	}

	fe := p.DgE
	je := fe.Det()
	r, _, err := math3.Polar(fe)
	if err != nil {
		// A non-converging polar decomposition means the gradient is already
		// garbage; leave a zero force and let the validity check catch it.
		p.TmpForce = math3.Mat3{}
		return
	}

	// Fixed corotated elasticity: stress = 2mu (F-R) F^T + lambda (J-1) J I.
	stress := fe.Sub(r).Mul(fe.Transpose()).Scale(2 * mu)
	stress = stress.Add(math3.Identity().Scale(lambda * (je - 1) * je))
	p.TmpForce = stress.Scale(-p.Vol)
}

// ApplyPlasticity projects the elastic deformation gradient back onto the
// material's yield surface, moving the excess into the plastic part. The
// total gradient DgCache is preserved.
func (p *Particle) ApplyPlasticity(m Material) {
	switch p.Kind {
	case ElasticPlastic:
		p.snowProjection(m)
	case GranularSand:
		p.sandProjection(m)
	}
}

func (p *Particle) snowProjection(m Material) {
	u, sigma, v, err := math3.SVD(p.DgE)
	if err != nil {
		return
	}
	lo, hi := 1-m.CompressionLimit, 1+m.StretchLimit
	clamped := math3.V(
		clampScalar(sigma.X, lo, hi),
		clampScalar(sigma.Y, lo, hi),
		clampScalar(sigma.Z, lo, hi),
	)
	if clamped == sigma {
		return
	}
	p.DgE = u.Mul(math3.Diag(clamped)).Mul(v.Transpose())

	// Whatever the clamp removed goes into the plastic part: F_p = F_e^-1 F.
	inv := v.Mul(math3.Diag(math3.V(1/clamped.X, 1/clamped.Y, 1/clamped.Z))).Mul(u.Transpose())
	p.DgP = inv.Mul(p.DgCache)
}

// sandProjection is a Drucker-Prager return mapping on the Hencky strain:
// expansion is fully plastic, shear is clamped against the friction cone.
func (p *Particle) sandProjection(m Material) {
	u, sigma, v, err := math3.SVD(p.DgE)
	if err != nil {
		return
	}
	eps := math3.V(
		math.Log(math.Max(sigma.X, 1e-6)),
		math.Log(math.Max(sigma.Y, 1e-6)),
		math.Log(math.Max(sigma.Z, 1e-6)),
	)
	tr := eps.X + eps.Y + eps.Z
	if tr > 0 {
		// Free expansion: no elastic stretch survives.
		p.DgE = u.Mul(v.Transpose())
		p.DgP = p.DgE.Transpose().Mul(p.DgCache)
		return
	}
	dev := eps.Sub(math3.Splat(tr / 3))
	devNorm := dev.Norm()
	if devNorm < 1e-12 {
		return
	}
	mu, lambda := m.Lame()
	alpha := math.Sqrt(2.0/3.0) * 2 * math.Sin(m.FrictionAngle) / (3 - math.Sin(m.FrictionAngle))
	yield := devNorm + (3*lambda+2*mu)/(2*mu)*tr*alpha
	if yield <= 0 {
		return
	}
	eps = eps.Sub(dev.Scale(yield / devNorm))
	clamped := math3.V(math.Exp(eps.X), math.Exp(eps.Y), math.Exp(eps.Z))
	p.DgE = u.Mul(math3.Diag(clamped)).Mul(v.Transpose())
	inv := v.Mul(math3.Diag(math3.V(1/clamped.X, 1/clamped.Y, 1/clamped.Z))).Mul(u.Transpose())
	p.DgP = inv.Mul(p.DgCache)
}

// ResolveCollision pushes a penetrating particle back to the surface and
// removes the velocity component driving it further in.
func (p *Particle) ResolveCollision(surf levelset.Surface, t float64) {
	phi := surf.Sample(p.Pos, t)
	if phi >= 0 {
		return
	}
	n := surf.SpatialGradient(p.Pos, t)
	p.Pos = p.Pos.Sub(n.Scale(phi))
	if vn := p.Vel.Dot(n); vn < 0 {
		p.Vel = p.Vel.Sub(n.Scale(vn))
	}
}

func clampScalar(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
