// Package orbit implements the Keplerian propagator and spherical-Earth
// geodesy conversions used to place satellites and ground stations in a
// common ECEF frame.
package orbit

import "math"

// EarthRadiusKm is the spherical-Earth radius used by the geodesy
// conversions in this package. A simplification, not a WGS-84 ellipsoid.
const EarthRadiusKm = 6371.0

// muEarth is the standard gravitational parameter of Earth, km^3/s^2.
const muEarth = 398600.4418

// earthRotationRate is Earth's sidereal rotation rate, rad/s.
const earthRotationRate = 7.2921159e-5

// keplerIterations bounds the Newton-Raphson solve for eccentric anomaly.
// Fixed rather than convergence-terminated so propagation stays
// deterministic across platforms; see Solve for the diagnostic fallback.
const keplerIterations = 10

// keplerTolerance is the convergence target for the bounded solve. Failing
// to reach it after keplerIterations steps is a solver-nonconvergence
// condition (should not occur for e <= 0.1) and is reported via the second
// return value of Solve rather than treated as fatal.
const keplerTolerance = 1e-10

// Vec3 is an ECEF-style Cartesian vector in kilometres.
type Vec3 struct {
	X, Y, Z float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Params are the Keplerian elements of a satellite's orbit, angles in
// degrees, semi-major axis in kilometres. M0 is the mean anomaly at
// epoch; the scenario's "initialAngle" is read this way (see
// scenario.Satellite.InitialAngleDeg).
type Params struct {
	SemiMajorAxisKm float64
	Eccentricity    float64
	InclinationDeg  float64
	RAANDeg         float64
	ArgPerigeeDeg   float64
	M0Deg           float64
}

// Solve returns the eccentric anomaly E (radians) satisfying Kepler's
// equation M = E - e*sin(E), using a fixed-iteration Newton-Raphson solve
// seeded at E0 = M. ok is false if the solve did not reach keplerTolerance
// within keplerIterations steps; callers continue with the last iterate
// (solver-nonconvergence, spec §7 — should not occur for e <= 0.1).
func Solve(m, e float64) (eAnom float64, ok bool) {
	eAnom = m
	for i := 0; i < keplerIterations; i++ {
		f := eAnom - e*math.Sin(eAnom) - m
		fPrime := 1 - e*math.Cos(eAnom)
		delta := f / fPrime
		eAnom -= delta
		if math.Abs(delta) < keplerTolerance {
			return eAnom, true
		}
	}
	return eAnom, false
}

// Propagate returns a satellite's position in ECEF kilometres at
// simulation time t (seconds since epoch), per spec §4.1.
func Propagate(p Params, t float64) Vec3 {
	n := math.Sqrt(muEarth / (p.SemiMajorAxisKm * p.SemiMajorAxisKm * p.SemiMajorAxisKm))
	m := p.M0Deg*math.Pi/180.0 + n*t

	e, _ := Solve(wrapRadians(m), p.Eccentricity)

	nu := math.Atan2(
		math.Sqrt(1-p.Eccentricity*p.Eccentricity)*math.Sin(e),
		math.Cos(e)-p.Eccentricity,
	)

	r := p.SemiMajorAxisKm * (1 - p.Eccentricity*math.Cos(e))
	u := nu + p.ArgPerigeeDeg*math.Pi/180.0

	xPlane := r * math.Cos(u)
	yPlane := r * math.Sin(u)

	incl := p.InclinationDeg * math.Pi / 180.0
	raan := p.RAANDeg * math.Pi / 180.0

	// Rotate orbital-plane coordinates into ECI by inclination then RAAN.
	xEci := xPlane*math.Cos(raan) - yPlane*math.Cos(incl)*math.Sin(raan)
	yEci := xPlane*math.Sin(raan) + yPlane*math.Cos(incl)*math.Cos(raan)
	zEci := yPlane * math.Sin(incl)

	theta := earthRotationRate * t
	cosT, sinT := math.Cos(theta), math.Sin(theta)

	return Vec3{
		X: xEci*cosT + yEci*sinT,
		Y: -xEci*sinT + yEci*cosT,
		Z: zEci,
	}
}

// Radius returns the orbital-plane radius a*(1-e*cos E) for the eccentric
// anomaly reached at simulation time t — used by tests to check the
// distance-from-centre invariant in spec §8.
func Radius(p Params, t float64) float64 {
	n := math.Sqrt(muEarth / (p.SemiMajorAxisKm * p.SemiMajorAxisKm * p.SemiMajorAxisKm))
	m := p.M0Deg*math.Pi/180.0 + n*t
	e, _ := Solve(wrapRadians(m), p.Eccentricity)
	return p.SemiMajorAxisKm * (1 - p.Eccentricity*math.Cos(e))
}

func wrapRadians(a float64) float64 {
	const twoPi = 2 * math.Pi
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}
