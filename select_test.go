/*------------------------------------------------------------------------------
* vlbigo unit test driver : polarization and channel selection
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

/* a dual polarization observation with distinct RR and LL ---------------------*/
func dualPolObs(t *testing.T) *vlbigo.Observation {
	ifs := []vlbigo.IFrec{{Freq: testFreq, DF: 1.0e6, BW: 1.0e6, Coff: 0}}
	ob := vlbigo.NewObservation("POL", 0.0, 0.5, ifs,
		[]vlbigo.Stokes{vlbigo.RRPol, vlbigo.LLPol})
	sub := ob.AddSubarray([]vlbigo.Telescope{{Name: "A"}, {Name: "B"}, {Name: "C"}})
	integ := sub.AddInteg(0.0)
	for b := 0; b < 3; b++ {
		integ.UVW[b] = vlbigo.UVWCoord{U: 2.0e-3, V: -1.0e-3}
		integ.Dat[sub.Dindex(b, 0, 0, 0)] = vlbigo.Cvis{Re: 1.2, Im: 0.0, Wt: 1.0}
		integ.Dat[sub.Dindex(b, 0, 0, 1)] = vlbigo.Cvis{Re: 0.8, Im: 0.0, Wt: 1.0}
	}
	return ob
}

/* Stokes I and V are formed from the parallel hands --------------------------*/
func Test_stokesFormation(t *testing.T) {
	assert := assert.New(t)
	ob := dualPolObs(t)
	require.NoError(t, ob.Select(vlbigo.SI, nil))
	dat, err := ob.GetIF(0)
	require.NoError(t, err)
	vis := dat.Sub[0].Integ[0][0]
	assert.InDelta(1.0, vis.Amp, 1.0e-6) /* (RR+LL)/2 */

	require.NoError(t, ob.Select(vlbigo.SV, nil))
	dat, err = ob.GetIF(0)
	require.NoError(t, err)
	vis = dat.Sub[0].Integ[0][0]
	assert.InDelta(0.2, vis.Amp, 1.0e-6) /* (RR-LL)/2 */

	/* the cross hands are absent: Q cannot be formed */
	err = ob.Select(vlbigo.SQ, nil)
	assert.ErrorIs(err, vlbigo.ErrStateRequired)
}

/* selecting stamps the map stale and recomputes uvscale ----------------------*/
func Test_selectStaleness(t *testing.T) {
	assert := assert.New(t)
	ob := dualPolObs(t)
	gen := ob.DataGen()
	require.NoError(t, ob.Select(vlbigo.SI, nil))
	assert.Greater(ob.DataGen(), gen)
	require.Len(t, ob.Stream.UVScale, 1)
	assert.InDelta(testFreq, ob.Stream.UVScale[0], 1.0)
}

/* channel ranges are canonicalised and validated -----------------------------*/
func Test_canonRanges(t *testing.T) {
	assert := assert.New(t)
	cl, err := vlbigo.CanonRanges([]vlbigo.ChanRange{
		{Ca: 8, Cb: 4}, {Ca: 0, Cb: 2}, {Ca: 3, Cb: 5},
	}, 16)
	require.NoError(t, err)
	/* 0-2 and 3-5 merge; 4-8 overlaps into one block */
	require.Len(t, cl, 1)
	assert.Equal(vlbigo.ChanRange{Ca: 0, Cb: 8}, cl[0])

	_, err = vlbigo.CanonRanges([]vlbigo.ChanRange{{Ca: 0, Cb: 99}}, 16)
	assert.ErrorIs(err, vlbigo.ErrOutOfRange)

	cl, err = vlbigo.CanonRanges(nil, 16)
	require.NoError(t, err)
	assert.Equal(vlbigo.ChanRange{Ca: 0, Cb: 15}, cl[0])
}

/* NextIF skips IFs outside the selection -------------------------------------*/
func Test_nextIF(t *testing.T) {
	assert := assert.New(t)
	ifs := []vlbigo.IFrec{
		{Freq: testFreq, DF: 1.0e6, BW: 2.0e6, Coff: 0},
		{Freq: testFreq + 1.0e8, DF: 1.0e6, BW: 2.0e6, Coff: 2},
		{Freq: testFreq + 2.0e8, DF: 1.0e6, BW: 2.0e6, Coff: 4},
	}
	ob := vlbigo.NewObservation("IFS", 0.0, 0.5, ifs, []vlbigo.Stokes{vlbigo.RRPol})
	require.NoError(t, ob.SetNChan(2))
	sub := ob.AddSubarray([]vlbigo.Telescope{{Name: "A"}, {Name: "B"}})
	integ := sub.AddInteg(0.0)
	for cif := 0; cif < 3; cif++ {
		for c := 0; c < 2; c++ {
			integ.Dat[sub.Dindex(0, cif, c, 0)] = vlbigo.Cvis{Re: 1.0, Wt: 1.0}
		}
	}
	/* select channels of the first and third IF only */
	require.NoError(t, ob.Select(vlbigo.RRPol,
		[]vlbigo.ChanRange{{Ca: 0, Cb: 1}, {Ca: 4, Cb: 5}}))

	cif := ob.NextIF(-1, true, false)
	assert.Equal(0, cif)
	cif = ob.NextIF(cif, true, false)
	assert.Equal(2, cif)
	assert.Equal(-1, ob.NextIF(cif, true, false))
	/* and backwards */
	cif = ob.NextIF(-1, false, false)
	assert.Equal(2, cif)
	assert.Equal(0, ob.NextIF(cif, false, false))

	/* per-IF uvscale follows the selected channel frequencies */
	assert.InDelta(ifs[2].Freq+0.5e6, ob.Stream.UVScale[2], 1.0)
	assert.Equal(0.0, ob.Stream.UVScale[1])
}
