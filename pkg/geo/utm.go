package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// WGS84 ellipsoid and UTM grid constants.
const (
	wgs84A     = 6378137.0
	wgs84F     = 1 / 298.257223563
	utmK0      = 0.9996
	utmFalseE  = 500000.0
	utmFalseNS = 10000000.0
)

type transverseMercator struct {
	e     float64
	A     float64
	alpha [7]float64
	beta  [7]float64
}

// krüger series to sixth order in the third flattening
var tm = newTransverseMercator()

func newTransverseMercator() transverseMercator {
	n := wgs84F / (2 - wgs84F)
	n2 := n * n
	n3 := n2 * n
	n4 := n3 * n
	n5 := n4 * n
	n6 := n5 * n

	t := transverseMercator{
		e: math.Sqrt(wgs84F * (2 - wgs84F)),
		A: wgs84A / (1 + n) * (1 + n2/4 + n4/64 + n6/256),
	}
	t.alpha = [7]float64{0,
		n/2 - 2*n2/3 + 5*n3/16 + 41*n4/180 - 127*n5/288 + 7891*n6/37800,
		13*n2/48 - 3*n3/5 + 557*n4/1440 + 281*n5/630 - 1983433*n6/1935360,
		61*n3/240 - 103*n4/140 + 15061*n5/26880 + 167603*n6/181440,
		49561*n4/161280 - 179*n5/168 + 6601661*n6/7257600,
		34729*n5/80640 - 3418889*n6/1995840,
		212378941 * n6 / 319334400,
	}
	t.beta = [7]float64{0,
		n/2 - 2*n2/3 + 37*n3/96 - n4/360 - 81*n5/512 + 96199*n6/604800,
		n2/48 + n3/15 - 437*n4/1440 + 46*n5/105 - 1118711*n6/3870720,
		17*n3/480 - 37*n4/840 - 209*n5/4480 + 5569*n6/90720,
		4397*n4/161280 - 11*n5/504 - 830251*n6/7257600,
		4583*n5/161280 - 108847*n6/3991680,
		20648693 * n6 / 638668800,
	}
	return t
}

func centralMeridian(zone int) float64 {
	return float64((zone-1)*6-180+3) * math.Pi / 180
}

// ToUTM converts a lon/lat point to easting/northing in the given zone.
func ToUTM(p orb.Point, zone int, north bool) orb.Point {
	phi := p.Lat() * math.Pi / 180
	lambda := p.Lon()*math.Pi/180 - centralMeridian(zone)

	sinPhi := math.Sin(phi)
	t := math.Sinh(math.Atanh(sinPhi) - tm.e*math.Atanh(tm.e*sinPhi))
	xiP := math.Atan2(t, math.Cos(lambda))
	etaP := math.Atanh(math.Sin(lambda) / math.Sqrt(1+t*t))

	xi, eta := xiP, etaP
	for j := 1; j <= 6; j++ {
		fj := float64(2 * j)
		xi += tm.alpha[j] * math.Sin(fj*xiP) * math.Cosh(fj*etaP)
		eta += tm.alpha[j] * math.Cos(fj*xiP) * math.Sinh(fj*etaP)
	}

	easting := utmFalseE + utmK0*tm.A*eta
	northing := utmK0 * tm.A * xi
	if !north {
		northing += utmFalseNS
	}
	return orb.Point{easting, northing}
}

// FromUTM converts easting/northing in the given zone back to lon/lat.
func FromUTM(p orb.Point, zone int, north bool) orb.Point {
	northing := p[1]
	if !north {
		northing -= utmFalseNS
	}
	xi := northing / (utmK0 * tm.A)
	eta := (p[0] - utmFalseE) / (utmK0 * tm.A)

	xiP, etaP := xi, eta
	for j := 1; j <= 6; j++ {
		fj := float64(2 * j)
		xiP -= tm.beta[j] * math.Sin(fj*xi) * math.Cosh(fj*eta)
		etaP -= tm.beta[j] * math.Cos(fj*xi) * math.Sinh(fj*eta)
	}

	sinhEtaP := math.Sinh(etaP)
	sinXiP := math.Sin(xiP)
	cosXiP := math.Cos(xiP)
	tauP := sinXiP / math.Sqrt(sinhEtaP*sinhEtaP+cosXiP*cosXiP)

	e2 := tm.e * tm.e
	tau := tauP
	for i := 0; i < 20; i++ {
		sigma := math.Sinh(tm.e * math.Atanh(tm.e*tau/math.Sqrt(1+tau*tau)))
		tauI := tau*math.Sqrt(1+sigma*sigma) - sigma*math.Sqrt(1+tau*tau)
		delta := (tauP - tauI) / math.Sqrt(1+tauI*tauI) *
			(1 + (1-e2)*tau*tau) / ((1 - e2) * math.Sqrt(1+tau*tau))
		tau += delta
		if math.Abs(delta) < 1e-14 {
			break
		}
	}

	phi := math.Atan(tau)
	lambda := math.Atan2(sinhEtaP, cosXiP) + centralMeridian(zone)
	return orb.Point{lambda * 180 / math.Pi, phi * 180 / math.Pi}
}
