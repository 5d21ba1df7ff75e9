/*------------------------------------------------------------------------------
* units.go : user selectable sky and UVW units, sexagesimal conversions
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/05 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Unittype struct {
	Conv   float64 /* factor to multiply internal units to get user units */
	Name   string  /* the official name of the unit */
	Tlabel string  /* a label to use in text */
}

/* the users chosen map units are paired with appropriate UVW units */
type SkyUnits struct {
	Map Unittype /* map units descriptor */
	UVW Unittype /* UVW units descriptor */
}

/* the supported unit pairs. The first entry describes the default units. */
var unitTable = []SkyUnits{
	{
		Map: Unittype{RTOMAS, "mas", "milli-arcsec"},
		UVW: Unittype{1.0e-6, "Mw", "mega-wavelengths"},
	},
	{
		Map: Unittype{RTOAS, "arcsec", "arcsec"},
		UVW: Unittype{1.0e-3, "kw", "kilo-wavelengths"},
	},
	{
		Map: Unittype{RTOAM, "arcmin", "arcmin"},
		UVW: Unittype{1.0e-3, "kw", "kilo-wavelengths"},
	},
}

/* lookup a unit pair by map unit name ----------------------------------------*/
func SelectUnits(name string) (*SkyUnits, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	for i := range unitTable {
		if unitTable[i].Map.Name == s {
			return &unitTable[i], nil
		}
	}
	return nil, fmt.Errorf("%w: unrecognised map units '%s'", ErrParse, name)
}

/* the default unit pair (milli-arcseconds) -----------------------------------*/
func DefaultUnits() *SkyUnits {
	return &unitTable[0]
}

/* convert user map units to radians ------------------------------------------*/
func (u *SkyUnits) XYtoRad(xy float64) float64 {
	return xy / u.Map.Conv
}

/* convert radians to user map units ------------------------------------------*/
func (u *SkyUnits) RadToXY(rad float64) float64 {
	return rad * u.Map.Conv
}

/* convert user UVW units to wavelengths --------------------------------------*/
func (u *SkyUnits) UVtoWav(uv float64) float64 {
	return uv / u.UVW.Conv
}

/* convert wavelengths to user UVW units --------------------------------------*/
func (u *SkyUnits) WavToUV(wav float64) float64 {
	return wav * u.UVW.Conv
}

/* sexagesimal conversions ----------------------------------------------------*/

/* parse a sexagesimal string (a:b:c, a b c, or a single number) into the
 * value a + b/60 + c/3600 with the sign applied to the whole. */
func ParseSexagesimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return 0.0, fmt.Errorf("%w: empty sexagesimal field", ErrParse)
	}
	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1.0
		s = s[1:]
	case '+':
		s = s[1:]
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 || len(fields) > 3 {
		return 0.0, fmt.Errorf("%w: bad sexagesimal string '%s'", ErrParse, s)
	}
	var v, scale float64
	scale = 1.0
	for _, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil || x < 0.0 {
			return 0.0, fmt.Errorf("%w: bad sexagesimal field '%s'", ErrParse, f)
		}
		v += x * scale
		scale /= 60.0
	}
	return sign * v, nil
}

/* parse hours:minutes:seconds of right ascension to radians ------------------*/
func ParseHMS(s string) (float64, error) {
	h, err := ParseSexagesimal(s)
	if err != nil {
		return 0.0, err
	}
	return h * PI / 12.0, nil
}

/* parse degrees:arcmin:arcsec of declination to radians ----------------------*/
func ParseDMS(s string) (float64, error) {
	d, err := ParseSexagesimal(s)
	if err != nil {
		return 0.0, err
	}
	return d * D2R, nil
}

/* format radians of right ascension as hh:mm:ss.sss --------------------------*/
func FormatHMS(rad float64, ndec int) string {
	return formatSexa(math.Mod(math.Mod(rad, TWOPI)+TWOPI, TWOPI)*RTOH, ndec, 2)
}

/* format radians of declination as +dd:mm:ss.sss -----------------------------*/
func FormatDMS(rad float64, ndec int) string {
	deg := rad * R2D
	if deg < 0.0 {
		return "-" + formatSexa(-deg, ndec, 2)
	}
	return "+" + formatSexa(deg, ndec, 2)
}

/* format a positive value as a:mm:ss.s with rounding carried up --------------*/
func formatSexa(v float64, ndec, wid int) string {
	/* round at the seconds precision first so that 59.9995 carries */
	scale := math.Pow(10.0, float64(ndec))
	tsec := math.Floor(v*3600.0*scale + 0.5) / scale

	a := math.Floor(tsec / 3600.0)
	tsec -= a * 3600.0
	b := math.Floor(tsec / 60.0)
	tsec -= b * 60.0

	sw := wid + 1 + ndec
	if ndec <= 0 {
		sw = wid
		return fmt.Sprintf("%02.0f:%02.0f:%0*.0f", a, b, sw, tsec)
	}
	return fmt.Sprintf("%02.0f:%02.0f:%0*.*f", a, b, sw, ndec, tsec)
}

/* return the two character ordinal suffix of an integer (eg. "th" for 13) ----*/
func OrdinalSuffix(n int) string {
	if n >= 11 && n <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
