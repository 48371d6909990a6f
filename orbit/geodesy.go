package orbit

import "math"

// GeoCoord is a geographic position: latitude/longitude in degrees,
// altitude in kilometres above the spherical Earth surface.
type GeoCoord struct {
	LatDeg, LonDeg, AltKm float64
}

// GeoToECEF converts a geographic coordinate to ECEF kilometres at t=0
// (no sidereal rotation applied — callers that need a rotating frame at
// time t should rotate the result by earthRotationRate*t themselves; in
// this simulator only satellites rotate with time, ground stations are
// fixed in ECEF once placed, per spec §3's ground-station lifecycle).
func GeoToECEF(g GeoCoord) Vec3 {
	lat := g.LatDeg * math.Pi / 180.0
	lon := g.LonDeg * math.Pi / 180.0
	r := EarthRadiusKm + g.AltKm

	return Vec3{
		X: r * math.Cos(lat) * math.Cos(lon),
		Y: r * math.Cos(lat) * math.Sin(lon),
		Z: r * math.Sin(lat),
	}
}

// ECEFToGeo is the inverse of GeoToECEF under the same spherical-Earth
// model.
func ECEFToGeo(v Vec3) GeoCoord {
	r := v.Norm()
	lat := math.Asin(v.Z / r)
	lon := math.Atan2(v.Y, v.X)

	return GeoCoord{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltKm:  r - EarthRadiusKm,
	}
}
