/*------------------------------------------------------------------------------
* vlbigo unit test driver : model fitting
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

/* the fit recovers the flux and position of a perturbed point model ----------*/
func Test_modelfitPointSource(t *testing.T) {
	assert := assert.New(t)
	truth := []vlbigo.Modcmp{pointCmp(1.2, 3.0, -1.5)}
	ob := synthObs(10, 3, annulusUV(8.0e6), truth)
	require.NoError(t, selectAll(ob))

	/* start from a displaced, wrong-flux guess */
	start := pointCmp(0.8, 2.4, -1.0)
	ob.Model.Add(start)
	require.NoError(t, ob.ModelFit(50, nil))

	require.Equal(t, 1, ob.Model.Ncmp())
	got := ob.Model.Cmp[0]
	assert.InDelta(1.2, got.Flux, 1.0e-3)
	assert.InDelta(mas(3.0), got.X, mas(0.01))
	assert.InDelta(mas(-1.5), got.Y, mas(0.01))

	rms, _, _, err := ob.Moddif(0.0, 0.0)
	require.NoError(t, err)
	assert.Less(rms, 1.0e-4)
}

/* a model with no free parameters is rejected --------------------------------*/
func Test_modelfitNoFreeParams(t *testing.T) {
	ob := synthObs(8, 1, annulusUV(6.0e6), []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0)})
	require.NoError(t, selectAll(ob))
	cmp := pointCmp(1.0, 0.0, 0.0)
	cmp.Freepar = 0
	ob.Model.Add(cmp)
	err := ob.ModelFit(10, nil)
	assert.ErrorIs(t, err, vlbigo.ErrStateRequired)
}

/* a gaussian extent marked free converges on the true width ------------------*/
func Test_modelfitGaussianWidth(t *testing.T) {
	assert := assert.New(t)
	truth := []vlbigo.Modcmp{{
		Type: vlbigo.GausCmp, Flux: 1.0, Major: mas(2.5), Ratio: 1.0,
	}}
	ob := synthObs(10, 3, annulusUV(8.0e6), truth)
	require.NoError(t, selectAll(ob))
	guess := truth[0]
	guess.Major = mas(1.5)
	guess.Freepar = vlbigo.FreeMajor
	ob.Model.Add(guess)
	require.NoError(t, ob.ModelFit(60, nil))
	assert.InDelta(mas(2.5), ob.Model.Cmp[0].Major, mas(0.05))
}
