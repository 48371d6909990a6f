package traffic

import "github.com/signalsfoundry/leo-orbit-sim/orbit"

func orbitGeoStub() orbit.GeoCoord {
	return orbit.GeoCoord{LatDeg: 0, LonDeg: 0, AltKm: 0}
}
