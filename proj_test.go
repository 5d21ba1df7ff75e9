/*------------------------------------------------------------------------------
* vlbigo unit test driver : sky projections
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

/* every projection round-trips within one radian of the reference ------------*/
func Test_projRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ra0, dec0 := 2.1, 0.6
	offsets := [][2]float64{
		{0.0, 0.0}, {1.0e-8, -2.0e-8}, {1.0e-4, 5.0e-5},
		{0.01, -0.02}, {0.3, 0.2}, {-0.5, 0.4}, {0.7, -0.6},
	}
	projs := []vlbigo.ProjType{
		vlbigo.ProjSIN, vlbigo.ProjNCP, vlbigo.ProjTAN, vlbigo.ProjARC,
		vlbigo.ProjSTG, vlbigo.ProjAIT, vlbigo.ProjGLS, vlbigo.ProjMER,
	}
	for _, p := range projs {
		for _, off := range offsets {
			ra := ra0 + off[0]
			dec := dec0 + off[1]
			l, m, err := p.Forward(ra, dec, ra0, dec0)
			require.NoError(t, err, "%s forward (%g,%g)", p, off[0], off[1])
			ra1, dec1, err := p.Inverse(l, m, ra0, dec0)
			require.NoError(t, err, "%s inverse (%g,%g)", p, off[0], off[1])
			assert.InDelta(ra, ra1, 1.0e-9, "%s ra (%g,%g)", p, off[0], off[1])
			assert.InDelta(dec, dec1, 1.0e-9, "%s dec (%g,%g)", p, off[0], off[1])
		}
	}
}

/* projection names resolve both ways -----------------------------------------*/
func Test_projNames(t *testing.T) {
	assert := assert.New(t)
	for _, name := range []string{"SIN", "NCP", "TAN", "ARC", "STG", "AIT", "GLS", "MER"} {
		p, err := vlbigo.ProjID(name)
		require.NoError(t, err)
		assert.Equal(name, p.String())
	}
	_, err := vlbigo.ProjID("BOGUS")
	assert.ErrorIs(err, vlbigo.ErrParse)
}
