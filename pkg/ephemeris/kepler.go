package ephemeris

import (
	"fmt"
	"math"

	"aspectarian/pkg/astro"
)

// elements holds J2000 mean orbital elements and their per-century rates
// (Standish 1800-2050 fit). Angles in degrees, semimajor axis in AU.
type elements struct {
	a, aDot   float64 // semimajor axis
	e, eDot   float64 // eccentricity
	i, iDot   float64 // inclination
	l, lDot   float64 // mean longitude
	lp, lpDot float64 // longitude of perihelion
	o, oDot   float64 // longitude of ascending node
}

// emBary is the Earth-Moon barycenter, used as the observer for geocentric
// longitudes (the barycenter offset is below the model's accuracy).
var emBary = elements{
	1.00000261, 0.00000562,
	0.01671123, -0.00004392,
	-0.00001531, -0.01294668,
	100.46457166, 35999.37244981,
	102.93768193, 0.32327364,
	0.0, 0.0,
}

var planetElements = map[Body]elements{
	Mercury: {
		0.38709927, 0.00000037,
		0.20563593, 0.00001906,
		7.00497902, -0.00594749,
		252.25032350, 149472.67411175,
		77.45779628, 0.16047689,
		48.33076593, -0.12534081,
	},
	Venus: {
		0.72333566, 0.00000390,
		0.00677672, -0.00004107,
		3.39467605, -0.00078890,
		181.97909950, 58517.81538729,
		131.60246718, 0.00268329,
		76.67984255, -0.27769418,
	},
	Mars: {
		1.52371034, 0.00001847,
		0.09339410, 0.00007882,
		1.84969142, -0.00813131,
		-4.55343205, 19140.30268499,
		-23.94362959, 0.44441088,
		49.55953891, -0.29257343,
	},
	Jupiter: {
		5.20288700, -0.00011607,
		0.04838624, -0.00013253,
		1.30439695, -0.00183714,
		34.39644051, 3034.74612775,
		14.72847983, 0.21252668,
		100.47390909, 0.20469106,
	},
	Saturn: {
		9.53667594, -0.00125060,
		0.05386179, -0.00050991,
		2.48599187, 0.00193609,
		49.95424423, 1222.49362201,
		92.59887831, -0.41897216,
		113.66242448, -0.28867794,
	},
	Uranus: {
		19.18916464, -0.00196176,
		0.04725744, -0.00004397,
		0.77263783, -0.00242939,
		313.23810451, 428.48202785,
		170.95427630, 0.40805281,
		74.01692503, 0.04240589,
	},
	Neptune: {
		30.06992276, 0.00026291,
		0.00859048, 0.00005105,
		1.77004347, 0.00035372,
		-55.12002969, 218.45945325,
		44.96476227, -0.32241464,
		131.78422574, -0.00508664,
	},
	Pluto: {
		39.48211675, -0.00031596,
		0.24882730, 0.00005170,
		17.14001206, 0.00004818,
		238.92903833, 145.20780515,
		224.06891629, -0.04062942,
		110.30393684, -0.01183482,
	},
}

// planetLongitude returns the geocentric ecliptic longitude of a planet at
// T Julian centuries TT: heliocentric rectangular coordinates of the planet
// and of the Earth-Moon barycenter from mean elements, differenced and
// projected onto the ecliptic.
func planetLongitude(body Body, T float64) (float64, error) {
	el, ok := planetElements[body]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBody, body)
	}
	px, py, _ := heliocentric(el, T)
	ex, ey, _ := heliocentric(emBary, T)
	return astro.Norm360(math.Atan2(py-ey, px-ex) * 180 / math.Pi), nil
}

// heliocentric evaluates mean elements at T centuries and returns
// heliocentric ecliptic rectangular coordinates in AU.
func heliocentric(el elements, T float64) (x, y, z float64) {
	a := el.a + el.aDot*T
	e := el.e + el.eDot*T
	i := (el.i + el.iDot*T) * math.Pi / 180
	l := el.l + el.lDot*T
	lp := el.lp + el.lpDot*T
	o := (el.o + el.oDot*T) * math.Pi / 180

	m := astro.Wrap180(l-lp) * math.Pi / 180
	w := lp*math.Pi/180 - o // argument of perihelion

	ecc := solveKepler(m, e)

	// Orbital-plane coordinates.
	xp := a * (math.Cos(ecc) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(ecc)

	cw, sw := math.Cos(w), math.Sin(w)
	co, so := math.Cos(o), math.Sin(o)
	ci, si := math.Cos(i), math.Sin(i)

	x = (cw*co-sw*so*ci)*xp + (-sw*co-cw*so*ci)*yp
	y = (cw*so+sw*co*ci)*xp + (-sw*so+cw*co*ci)*yp
	z = sw*si*xp + cw*si*yp
	return x, y, z
}

// solveKepler solves M = E - e sin E for the eccentric anomaly by Newton
// iteration. Converges in a handful of steps for every planetary
// eccentricity; the iteration cap only guards pathological inputs.
func solveKepler(m, e float64) float64 {
	ecc := m
	if e > 0.8 {
		ecc = math.Pi
	}
	for iter := 0; iter < 30; iter++ {
		d := (ecc - e*math.Sin(ecc) - m) / (1 - e*math.Cos(ecc))
		ecc -= d
		if math.Abs(d) < 1e-12 {
			break
		}
	}
	return ecc
}
