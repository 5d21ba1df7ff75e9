/*------------------------------------------------------------------------------
* vlbigo unit test driver : visibility statistics and averaging
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

func Test_visStats(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(8, 2, annulusUV(6.0e6), []vlbigo.Modcmp{pointCmp(2.0, 0.0, 0.0)})
	require.NoError(t, selectAll(ob))

	st, err := ob.VisStats("amp", 0.0, 0.0)
	require.NoError(t, err)
	assert.Equal(2*28, st.N)
	assert.InDelta(2.0, st.Mean, 1.0e-6)
	assert.InDelta(0.0, st.Sigma, 1.0e-5)
	assert.InDelta(2.0, st.Min, 1.0e-6)
	assert.InDelta(2.0, st.Max, 1.0e-6)

	/* the annulus gate excludes samples */
	st2, err := ob.VisStats("uvrad", 3.0e6, 0.0)
	require.NoError(t, err)
	assert.Less(st2.N, st.N)
	assert.GreaterOrEqual(st2.Min, 3.0e6)

	_, err = ob.VisStats("bogus", 0.0, 0.0)
	assert.ErrorIs(err, vlbigo.ErrParse)
	_, err = ob.VisStats("amp", 9.0e9, 0.0)
	assert.ErrorIs(err, vlbigo.ErrStateRequired)
}

func Test_moddifPerfectModel(t *testing.T) {
	assert := assert.New(t)
	cmps := []vlbigo.Modcmp{pointCmp(1.0, 1.0, -2.0)}
	ob := synthObs(8, 2, annulusUV(6.0e6), cmps)
	require.NoError(t, selectAll(ob))
	for _, c := range cmps {
		ob.Model.Add(c)
	}
	rms, chisq, ndata, err := ob.Moddif(0.0, 0.0)
	require.NoError(t, err)
	assert.Equal(2*28, ndata)
	assert.Less(rms, 1.0e-6)
	assert.Less(chisq, 1.0e-12)
}

/* averaging reduces the record count and preserves the model agreement -------*/
func Test_uvaver(t *testing.T) {
	assert := assert.New(t)
	cmps := []vlbigo.Modcmp{pointCmp(1.0, 2.0, 1.0)}
	/* constant UV per baseline so the average is exactly coherent */
	uv := func(tg, b int) (float64, float64) {
		return annulusUV(6.0e6)(0, b)
	}
	ob := synthObs(6, 12, uv, cmps) /* 12 x 10s integrations */
	require.NoError(t, selectAll(ob))
	for _, c := range cmps {
		ob.Model.Add(c)
	}
	chisq0 := func() float64 {
		_, c, _, err := ob.Moddif(0.0, 0.0)
		require.NoError(t, err)
		return c
	}()
	nrec0 := ob.Nrec()

	require.NoError(t, ob.UvAver(60.0, false))
	/* 12 integrations collapse into ceil(120/60)=2 bins */
	assert.Equal(2*15, ob.Nrec())
	assert.Equal(nrec0/6, ob.Nrec())

	_, chisq1, _, err := ob.Moddif(0.0, 0.0)
	require.NoError(t, err)
	assert.InDelta(chisq0, chisq1, 1.0e-4)
}

/* averaging rejects a non-positive interval ----------------------------------*/
func Test_uvaverBadInterval(t *testing.T) {
	ob := synthObs(6, 3, annulusUV(6.0e6), nil)
	assert.ErrorIs(t, ob.UvAver(0.0, false), vlbigo.ErrOutOfRange)
}
