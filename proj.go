/*------------------------------------------------------------------------------
* proj.go : celestial coordinate projections
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/27 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
	"strings"
)

type ProjType int

const (
	ProjSIN ProjType = iota /* orthographic */
	ProjNCP                 /* north celestial pole */
	ProjTAN                 /* gnomonic */
	ProjARC                 /* zenithal equidistant */
	ProjSTG                 /* stereographic */
	ProjAIT                 /* Hammer-Aitoff */
	ProjGLS                 /* global sinusoidal */
	ProjMER                 /* Mercator */
)

var projNames = []string{"SIN", "NCP", "TAN", "ARC", "STG", "AIT", "GLS", "MER"}

func (p ProjType) String() string {
	if int(p) < len(projNames) {
		return projNames[p]
	}
	return "SIN"
}

func ProjID(name string) (ProjType, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range projNames {
		if n == s {
			return ProjType(i), nil
		}
	}
	return ProjSIN, fmt.Errorf("%w: unknown projection '%s'", ErrParse, name)
}

/* project (ra,dec) to direction cosines (l,m) about a reference point ----------
* args   : float64 ra,dec   I   the point to project (rad)
*          float64 ra0,dec0 I   the reference (phase centre) (rad)
* return : l (east), m (north) in the plane of the projection (rad)
*-----------------------------------------------------------------------------*/
func (p ProjType) Forward(ra, dec, ra0, dec0 float64) (l, m float64, err error) {
	da := WrapRad(ra - ra0)
	sd, cd := math.Sincos(dec)
	sd0, cd0 := math.Sincos(dec0)
	sda, cda := math.Sincos(da)
	switch p {
	case ProjSIN:
		l = cd * sda
		m = sd*cd0 - cd*sd0*cda
	case ProjNCP:
		if math.Abs(sd0) < 1e-12 {
			return 0, 0, fmt.Errorf("%w: NCP projection at the equator", ErrNumeric)
		}
		l = cd * sda
		m = (cd0 - cd*cda) / sd0
	case ProjTAN:
		d := sd*sd0 + cd*cd0*cda
		if d <= 0.0 {
			return 0, 0, fmt.Errorf("%w: TAN projection beyond the tangent plane", ErrNumeric)
		}
		l = cd * sda / d
		m = (sd*cd0 - cd*sd0*cda) / d
	case ProjARC:
		cth := sd*sd0 + cd*cd0*cda
		if cth > 1.0 {
			cth = 1.0
		} else if cth < -1.0 {
			cth = -1.0
		}
		th := math.Acos(cth)
		k := 1.0
		if th > 1e-9 {
			k = th / math.Sin(th)
		}
		l = k * cd * sda
		m = k * (sd*cd0 - cd*sd0*cda)
	case ProjSTG:
		d := 1.0 + sd*sd0 + cd*cd0*cda
		if d < 1e-12 {
			return 0, 0, fmt.Errorf("%w: STG projection at the antipode", ErrNumeric)
		}
		l = 2.0 * cd * sda / d
		m = 2.0 * (sd*cd0 - cd*sd0*cda) / d
	case ProjAIT:
		l, m = aitFwd(da, dec)
		l0, m0 := aitFwd(0.0, dec0)
		l -= l0
		m -= m0
	case ProjGLS:
		l = da * cd
		m = dec - dec0
	case ProjMER:
		l = da * cd0
		m = (math.Log(math.Tan(PI/4.0+dec/2.0)) - math.Log(math.Tan(PI/4.0+dec0/2.0))) * cd0
	}
	return l, m, nil
}

/* invert a projection back to (ra,dec) ---------------------------------------*/
func (p ProjType) Inverse(l, m, ra0, dec0 float64) (ra, dec float64, err error) {
	sd0, cd0 := math.Sincos(dec0)
	switch p {
	case ProjSIN:
		z2 := 1.0 - l*l - m*m
		if z2 < 0.0 {
			return 0, 0, fmt.Errorf("%w: SIN inverse outside the unit disk", ErrNumeric)
		}
		z := math.Sqrt(z2)
		dec = math.Asin(m*cd0 + z*sd0)
		ra = ra0 + math.Atan2(l, z*cd0-m*sd0)
	case ProjNCP:
		if math.Abs(sd0) < 1e-12 {
			return 0, 0, fmt.Errorf("%w: NCP inverse at the equator", ErrNumeric)
		}
		/* cd*cda = cd0 - m*sd0, cd*sda = l */
		a := cd0 - m*sd0
		da := math.Atan2(l, a)
		cd := math.Hypot(l, a)
		dec = math.Acos(cd)
		if dec0 < 0.0 {
			dec = -dec
		}
		ra = ra0 + da
	case ProjTAN:
		den := cd0 - m*sd0
		ra = ra0 + math.Atan2(l, den)
		dec = math.Atan((sd0 + m*cd0) / math.Hypot(l, den))
	case ProjARC:
		th := math.Hypot(l, m)
		if th < 1e-12 {
			return ra0, dec0, nil
		}
		sth, cth := math.Sincos(th)
		dec = math.Asin(cth*sd0 + m*sth*cd0/th)
		ra = ra0 + math.Atan2(l*sth/th, cth*cd0-m*sth*sd0/th)
	case ProjSTG:
		r2 := (l*l + m*m) / 4.0
		f := 1.0 / (1.0 + r2)
		/* direction cosines of the projected point */
		x := l * f
		y := m * f
		z := (1.0 - r2) * f
		dec = math.Asin(y*cd0 + z*sd0)
		ra = ra0 + math.Atan2(x, z*cd0-y*sd0)
	case ProjAIT:
		return aitInv(l, m, ra0, dec0)
	case ProjGLS:
		dec = dec0 + m
		cd := math.Cos(dec)
		if math.Abs(cd) < 1e-12 {
			return 0, 0, fmt.Errorf("%w: GLS inverse at the pole", ErrNumeric)
		}
		ra = ra0 + l/cd
	case ProjMER:
		if math.Abs(cd0) < 1e-12 {
			return 0, 0, fmt.Errorf("%w: MER inverse at the pole", ErrNumeric)
		}
		dec = 2.0*math.Atan(math.Exp(m/cd0+math.Log(math.Tan(PI/4.0+dec0/2.0)))) - PI/2.0
		ra = ra0 + l/cd0
	}
	return ra, dec, nil
}

/* Hammer-Aitoff forward relative to the projection equations -----------------*/
func aitFwd(da, dec float64) (x, y float64) {
	sd, cd := math.Sincos(dec)
	sa, ca := math.Sincos(da / 2.0)
	z := math.Sqrt((1.0 + cd*ca) / 2.0)
	return 2.0 * cd * sa / z, sd / z
}

/* Hammer-Aitoff inverse via Newton iteration on the forward equations --------*/
func aitInv(l, m, ra0, dec0 float64) (ra, dec float64, err error) {
	/* start from the small-offset linear estimate */
	da := l / math.Cos(dec0)
	dec = dec0 + m
	l0, m0 := aitFwd(0.0, dec0)
	for iter := 0; iter < 50; iter++ {
		fx, fy := aitFwd(da, dec)
		rx := fx - l0 - l
		ry := fy - m0 - m
		if math.Abs(rx)+math.Abs(ry) < 1e-14 {
			return ra0 + da, dec, nil
		}
		/* numeric jacobian */
		const h = 1e-7
		fxa, fya := aitFwd(da+h, dec)
		fxd, fyd := aitFwd(da, dec+h)
		j11 := (fxa - fx) / h
		j12 := (fxd - fx) / h
		j21 := (fya - fy) / h
		j22 := (fyd - fy) / h
		det := j11*j22 - j12*j21
		if math.Abs(det) < 1e-30 {
			break
		}
		da -= (rx*j22 - ry*j12) / det
		dec -= (ry*j11 - rx*j21) / det
	}
	fx, fy := aitFwd(da, dec)
	if math.Abs(fx-l0-l)+math.Abs(fy-m0-m) > 1e-10 {
		return 0, 0, fmt.Errorf("%w: AIT inverse did not converge", ErrNumeric)
	}
	return ra0 + da, dec, nil
}
