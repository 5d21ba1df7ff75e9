/*------------------------------------------------------------------------------
* vlbigo unit test driver : units and sexagesimal conversions
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

func Test_unitPairs(t *testing.T) {
	assert := assert.New(t)
	u, err := vlbigo.SelectUnits("mas")
	require.NoError(t, err)
	assert.InDelta(1.0, u.RadToXY(1.0/vlbigo.RTOMAS), 1.0e-12)
	assert.InDelta(1.0e6, u.UVtoWav(1.0), 1.0e-6) /* mas pairs with mega-wavelengths */

	u, err = vlbigo.SelectUnits("arcsec")
	require.NoError(t, err)
	assert.InDelta(1.0e3, u.UVtoWav(1.0), 1.0e-9) /* arcsec pairs with kilo-wavelengths */

	_, err = vlbigo.SelectUnits("furlongs")
	assert.ErrorIs(err, vlbigo.ErrParse)

	/* conversions invert each other */
	def := vlbigo.DefaultUnits()
	for _, x := range []float64{0.0, 1.5, -27.25, 3.0e3} {
		assert.InDelta(x, def.RadToXY(def.XYtoRad(x)), 1.0e-12)
		assert.InDelta(x, def.WavToUV(def.UVtoWav(x)), 1.0e-12)
	}
}

/* parse then format is the identity at the stated precision ------------------*/
func Test_sexagesimalRoundTrip(t *testing.T) {
	assert := assert.New(t)
	for _, s := range []string{"12:30:49.423", "00:00:00.001", "23:59:59.999", "06:45:00.000"} {
		ra, err := vlbigo.ParseHMS(s)
		require.NoError(t, err)
		assert.Equal(s, vlbigo.FormatHMS(ra, 3))
	}
	for _, s := range []string{"+12:23:28.043", "-00:30:00.000", "+89:59:59.999", "-45:00:00.100"} {
		dec, err := vlbigo.ParseDMS(s)
		require.NoError(t, err)
		assert.Equal(s, vlbigo.FormatDMS(dec, 3))
	}
}

func Test_sexagesimalErrors(t *testing.T) {
	assert := assert.New(t)
	for _, s := range []string{"", "a:b:c", "1:2:3:4", "12:-3:4"} {
		_, err := vlbigo.ParseSexagesimal(s)
		assert.ErrorIs(err, vlbigo.ErrParse, "input %q", s)
	}
}

func Test_ordinalSuffix(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("st", vlbigo.OrdinalSuffix(1))
	assert.Equal("nd", vlbigo.OrdinalSuffix(22))
	assert.Equal("rd", vlbigo.OrdinalSuffix(3))
	assert.Equal("th", vlbigo.OrdinalSuffix(13))
	assert.Equal("th", vlbigo.OrdinalSuffix(20))
}
