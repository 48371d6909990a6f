package kb

import "github.com/signalsfoundry/leo-orbit-sim/orbit"

func orbitParamsStub() orbit.Params {
	return orbit.Params{SemiMajorAxisKm: 6921, Eccentricity: 0, InclinationDeg: 53, RAANDeg: 0, ArgPerigeeDeg: 0, M0Deg: 0}
}

func orbitGeoStub() orbit.GeoCoord {
	return orbit.GeoCoord{LatDeg: 0, LonDeg: 0, AltKm: 0}
}
