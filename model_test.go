/*------------------------------------------------------------------------------
* vlbigo unit test driver : model lists, model files and the model table
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

/* write then read preserves every field the format carries -------------------*/
func Test_modelFileRoundTrip(t *testing.T) {
	assert := assert.New(t)
	m := &vlbigo.Model{}
	m.Add(vlbigo.Modcmp{
		Type: vlbigo.DeltaCmp, Flux: 0.75,
		X: mas(3.0), Y: mas(-2.0), Ratio: 1.0,
		Freepar: vlbigo.FreeFlux | vlbigo.FreeCent,
	})
	m.Add(vlbigo.Modcmp{
		Type: vlbigo.GausCmp, Flux: -0.12,
		X: mas(-1.5), Y: mas(4.25), Major: mas(2.0), Ratio: 0.5,
		Phi: 30.0 * vlbigo.D2R, Freq0: 1.0e9, SpcInd: -0.7,
		Freepar: vlbigo.FreeMajor | vlbigo.FreeSpcInd,
	})
	m.Add(vlbigo.Modcmp{
		Type: vlbigo.RingCmp, Flux: 0.3,
		X: 0.0, Y: 0.0, Major: mas(1.0), Ratio: 1.0,
	})
	path := filepath.Join(t.TempDir(), "test.mod")
	require.NoError(t, vlbigo.WriteModel(path, m, 1.0, 0.5, nil))
	m2, err := vlbigo.ReadModel(path, nil)
	require.NoError(t, err)
	require.Equal(t, m.Ncmp(), m2.Ncmp())
	for i := range m.Cmp {
		a, b := m.Cmp[i], m2.Cmp[i]
		assert.Equal(a.Type, b.Type, "component %d", i)
		assert.Equal(a.Freepar, b.Freepar, "component %d", i)
		assert.InDelta(a.Flux, b.Flux, 1.0e-6*math.Abs(a.Flux)+1.0e-12)
		assert.InDelta(a.X, b.X, mas(1.0e-5))
		assert.InDelta(a.Y, b.Y, mas(1.0e-5))
		assert.InDelta(a.Major, b.Major, mas(1.0e-5))
		assert.InDelta(a.Ratio, b.Ratio, 1.0e-6)
		assert.InDelta(a.SpcInd, b.SpcInd, 1.0e-6)
	}
	assert.InDelta(m.Flux, m2.Flux, 1.0e-6)
}

/* keep promotes the tentative model and stamps the map stale -----------------*/
func Test_keepPromotes(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(8, 1, annulusUV(5.0e6), []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0)})
	require.NoError(t, selectAll(ob))
	gen := ob.DataGen()

	/* an empty keep must not invalidate the map */
	require.NoError(t, ob.Keep())
	assert.Equal(gen, ob.DataGen())

	ob.Newmod.Add(pointCmp(0.4, 1.0, 1.0))
	ob.Newmod.Add(pointCmp(0.1, -1.0, 0.5))
	require.NoError(t, ob.Keep())
	assert.Equal(0, ob.Newmod.Ncmp())
	assert.Equal(2, ob.Model.Ncmp())
	assert.InDelta(0.5, ob.Model.Flux, 1.0e-12)
	assert.Greater(ob.DataGen(), gen)
}

func Test_clrmod(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(8, 1, annulusUV(5.0e6), nil)
	require.NoError(t, selectAll(ob))
	ob.Model.Add(pointCmp(1.0, 0.0, 0.0))
	ob.Newmod.Add(pointCmp(0.5, 1.0, 0.0))
	ob.Cmod.Add(pointCmp(0.2, 0.0, 1.0))

	require.NoError(t, ob.ClrMod(false, true, false))
	assert.Equal(1, ob.Model.Ncmp())
	assert.Equal(0, ob.Newmod.Ncmp())
	assert.Equal(1, ob.Cmod.Ncmp())

	require.NoError(t, ob.ClrMod(true, false, true))
	assert.Equal(0, ob.Model.Ncmp())
	assert.Equal(0, ob.Cmod.Ncmp())
}

/* the multi-model table installs the model last recorded per selection -------*/
func Test_multiModelTable(t *testing.T) {
	assert := assert.New(t)
	ifs := []vlbigo.IFrec{{Freq: testFreq, DF: 1.0e6, BW: 2.0e6, Coff: 0}}
	ob := vlbigo.NewObservation("MM", 0.0, 0.5, ifs, []vlbigo.Stokes{vlbigo.RRPol, vlbigo.LLPol})
	require.NoError(t, ob.SetNChan(2))
	sub := ob.AddSubarray([]vlbigo.Telescope{
		{Name: "A"}, {Name: "B"}, {Name: "C"},
	})
	integ := sub.AddInteg(0.0)
	for b := 0; b < 3; b++ {
		integ.UVW[b] = vlbigo.UVWCoord{U: 1.0e-3, V: 2.0e-3}
		for c := 0; c < 2; c++ {
			for p := 0; p < 2; p++ {
				integ.Dat[sub.Dindex(b, 0, c, p)] = vlbigo.Cvis{Re: 1.0, Wt: 1.0}
			}
		}
	}
	ob.Multi = true

	/* selection S: record a model */
	require.NoError(t, ob.Select(vlbigo.SI, []vlbigo.ChanRange{{Ca: 0, Cb: 0}}))
	ob.Model.Add(pointCmp(1.0, 0.0, 0.0))

	/* selection S': starts empty, gets its own model */
	require.NoError(t, ob.Select(vlbigo.SI, []vlbigo.ChanRange{{Ca: 1, Cb: 1}}))
	assert.Equal(0, ob.Model.Ncmp())
	ob.Model.Add(pointCmp(2.0, 1.0, 0.0))

	/* back to S: the recorded model is reinstalled */
	require.NoError(t, ob.Select(vlbigo.SI, []vlbigo.ChanRange{{Ca: 0, Cb: 0}}))
	require.Equal(t, 1, ob.Model.Ncmp())
	assert.InDelta(1.0, ob.Model.Cmp[0].Flux, 1.0e-12)

	/* and S' was preserved in turn */
	require.NoError(t, ob.Select(vlbigo.SI, []vlbigo.ChanRange{{Ca: 1, Cb: 1}}))
	require.Equal(t, 1, ob.Model.Ncmp())
	assert.InDelta(2.0, ob.Model.Cmp[0].Flux, 1.0e-12)
}

/* the model table file survives a round trip ---------------------------------*/
func Test_modtabRoundTrip(t *testing.T) {
	assert := assert.New(t)
	mt := vlbigo.NewModtab()
	est := &vlbigo.Model{}
	est.Add(pointCmp(1.25, 2.0, -1.0))
	tent := &vlbigo.Model{}
	tent.Add(pointCmp(0.5, 0.0, 0.0))
	mt.Record(vlbigo.SI, []vlbigo.ChanRange{{Ca: 0, Cb: 15}}, est, tent)

	path := filepath.Join(t.TempDir(), "test.mtab")
	require.NoError(t, mt.Write(path, nil))
	mt2, err := vlbigo.ReadModtab(path, nil)
	require.NoError(t, err)
	assert.Equal(1, mt2.Len())
	e2, t2 := mt2.Install(vlbigo.SI, []vlbigo.ChanRange{{Ca: 0, Cb: 15}})
	require.Equal(t, 1, e2.Ncmp())
	require.Equal(t, 1, t2.Ncmp())
	assert.InDelta(1.25, e2.Cmp[0].Flux, 1.0e-6)
	assert.InDelta(mas(2.0), e2.Cmp[0].X, mas(1.0e-5))
}

/* model visibilities of extended shapes equal the flux at the origin and stay
 * bounded elsewhere ----------------------------------------------------------*/
func Test_modVisEnvelopes(t *testing.T) {
	assert := assert.New(t)
	for _, typ := range []vlbigo.CmpType{
		vlbigo.GausCmp, vlbigo.DiskCmp, vlbigo.SphereCmp, vlbigo.RingCmp, vlbigo.RectCmp,
	} {
		cmp := vlbigo.Modcmp{Type: typ, Flux: 1.0, Major: mas(5.0), Ratio: 0.7, Phi: 0.4}
		z0 := vlbigo.ModVis([]vlbigo.Modcmp{cmp}, 0.0, 0.0, testFreq)
		assert.InDelta(1.0, real(z0), 1.0e-9, "type %d at the origin", typ)
		z := vlbigo.ModVis([]vlbigo.Modcmp{cmp}, 5.0e6, -3.0e6, testFreq)
		assert.LessOrEqual(math.Hypot(real(z), imag(z)), 1.0+1.0e-9, "type %d", typ)
	}
}
