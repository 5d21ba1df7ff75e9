/*------------------------------------------------------------------------------
* vlbigo unit test driver : CLEAN deconvolution and clean windows
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

func invertFresh(t *testing.T, ob *vlbigo.Observation, n int, cell float64) *vlbigo.MapBeam {
	mb, err := vlbigo.NewMapBeam(n, mas(cell), n, mas(cell))
	require.NoError(t, err)
	par := vlbigo.DefaultInvPar()
	require.NoError(t, vlbigo.Invert(ob, mb, &par, nil))
	return mb
}

/* clean recovers a two component scene ---------------------------------------*/
func Test_cleanTwoComponents(t *testing.T) {
	assert := assert.New(t)
	cmps := []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0), pointCmp(0.3, 5.0, 2.0)}
	ob := synthObs(21, 2, annulusUV(9.0e6), cmps) /* 210 baselines, 2 snapshots */
	require.NoError(t, selectAll(ob))
	mb := invertFresh(t, ob, 256, 0.5)

	par := vlbigo.Clnpar{Niter: 200, Gain: 0.1, Cutoff: 0.0}
	rep, err := vlbigo.Clean(ob, mb, &vlbigo.Winlist{}, &par, nil)
	require.NoError(t, err)
	assert.Equal(200, rep.Niter)

	/* sum the recovered flux near each input position */
	var f0, f1 float64
	var x1, y1, w1 float64
	for _, cmp := range ob.Newmod.Cmp {
		if math.Hypot(cmp.X, cmp.Y) < mas(1.5) {
			f0 += cmp.Flux
		} else if math.Hypot(cmp.X-mas(5.0), cmp.Y-mas(2.0)) < mas(1.5) {
			f1 += cmp.Flux
			x1 += cmp.Flux * cmp.X
			y1 += cmp.Flux * cmp.Y
			w1 += cmp.Flux
		}
	}
	assert.InEpsilon(1.0, f0, 0.02)
	assert.InEpsilon(0.3, f1, 0.02)
	require.Greater(t, w1, 0.0)
	assert.InDelta(mas(5.0), x1/w1, mas(0.2))
	assert.InDelta(mas(2.0), y1/w1, mas(0.2))
	/* residuals are down in the noise */
	assert.Less(mb.Maprms, 5.0e-3)
}

/* a window that excludes the source keeps clean away from it -----------------*/
func Test_cleanWindowConstrained(t *testing.T) {
	assert := assert.New(t)
	cmps := []vlbigo.Modcmp{pointCmp(1.0, 5.0, 2.0)}
	ob := synthObs(15, 2, annulusUV(9.0e6), cmps)
	require.NoError(t, selectAll(ob))
	mb := invertFresh(t, ob, 256, 0.5)

	wl := &vlbigo.Winlist{}
	wl.Add(mas(-2.0), mas(2.0), mas(-2.0), mas(2.0))
	par := vlbigo.Clnpar{Niter: 100, Gain: 0.1, Cutoff: 0.5}
	rep, err := vlbigo.Clean(ob, mb, wl, &par, nil)
	require.NoError(t, err)
	assert.True(rep.Reached)
	assert.Equal(0, ob.Newmod.Ncmp())
	/* the source flux survives in the residual map */
	assert.GreaterOrEqual(mb.Maxpix.Value, 0.95)
}

/* clean refuses an uninverted map and one made stale by a shift --------------*/
func Test_cleanPreconditions(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(8, 1, annulusUV(5.0e6), []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0)})
	require.NoError(t, selectAll(ob))
	mb, _ := vlbigo.NewMapBeam(64, mas(1.0), 64, mas(1.0))
	par := vlbigo.DefaultClnpar()
	_, err := vlbigo.Clean(ob, mb, &vlbigo.Winlist{}, &par, nil)
	assert.ErrorIs(err, vlbigo.ErrStateRequired)

	par2 := vlbigo.DefaultInvPar()
	require.NoError(t, vlbigo.Invert(ob, mb, &par2, nil))
	require.NoError(t, ob.Shift(nil, mas(1.0), 0.0)) /* stamps the map stale */
	_, err = vlbigo.Clean(ob, mb, &vlbigo.Winlist{}, &par, nil)
	assert.ErrorIs(err, vlbigo.ErrStateRequired)
}

/* peakwin wraps the residual peak unless it is already windowed --------------*/
func Test_peakwin(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(15, 2, annulusUV(9.0e6), []vlbigo.Modcmp{pointCmp(1.0, 4.0, -3.0)})
	require.NoError(t, selectAll(ob))
	mb := invertFresh(t, ob, 256, 0.5)

	wl := &vlbigo.Winlist{}
	added, err := vlbigo.Peakwin(ob, mb, wl, 1.0, true)
	require.NoError(t, err)
	assert.True(added)
	require.Equal(t, 1, wl.Nwin())
	assert.True(wl.Contains(mas(4.0), mas(-3.0)))

	/* the peak is now covered: no second window */
	added, err = vlbigo.Peakwin(ob, mb, wl, 1.0, true)
	require.NoError(t, err)
	assert.False(added)
	assert.Equal(1, wl.Nwin())
}

/* winmod deletes components relative to the windows --------------------------*/
func Test_winmod(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(8, 1, annulusUV(5.0e6), nil)
	require.NoError(t, selectAll(ob))
	ob.Newmod.Add(pointCmp(1.0, 0.0, 0.0))
	ob.Newmod.Add(pointCmp(0.5, 8.0, 8.0))
	wl := &vlbigo.Winlist{}
	wl.Add(mas(-2.0), mas(2.0), mas(-2.0), mas(2.0))

	require.NoError(t, ob.WinMod(wl, true)) /* delete outside */
	require.Equal(t, 1, ob.Newmod.Ncmp())
	assert.InDelta(1.0, ob.Newmod.Flux, 1.0e-12)
}
