/*------------------------------------------------------------------------------
* vlbigo unit test driver : the edit engine
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

func snapshotDat(ob *vlbigo.Observation) [][]vlbigo.Cvis {
	var out [][]vlbigo.Cvis
	for _, sub := range ob.Sub {
		for t := range sub.Integ {
			out = append(out, append([]vlbigo.Cvis(nil), sub.Integ[t].Dat...))
		}
	}
	return out
}

/* a flag and its inverse leave the store bit-identical -----------------------*/
func Test_editInvolution(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(6, 3, annulusUV(5.0e6), []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0)})
	require.NoError(t, selectAll(ob))
	before := snapshotDat(ob)

	/* a mix of scopes */
	require.NoError(t, ob.EdInteg(0, 1, 0, true, true, true, false, true, 3))
	require.NoError(t, ob.EdInteg(0, 0, 0, true, false, false, true, false, 0))
	n := ob.EdFlush()
	require.Greater(t, n, 0)
	assert.True(ob.Modified)

	require.NoError(t, ob.EdInteg(0, 1, 0, false, true, true, false, true, 3))
	require.NoError(t, ob.EdInteg(0, 0, 0, false, false, false, true, false, 0))
	ob.EdFlush()

	after := snapshotDat(ob)
	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(before[i], after[i])
	}
}

/* buffered edits are invisible until the flush -------------------------------*/
func Test_editBuffering(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(6, 2, annulusUV(5.0e6), []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0)})
	require.NoError(t, selectAll(ob))
	gen := ob.DataGen()

	require.NoError(t, ob.EdInteg(0, 0, 0, true, true, true, false, true, 0))
	assert.Equal(gen, ob.DataGen()) /* nothing applied yet */
	ob.EdCancel()
	assert.Equal(0, ob.EdFlush())
	assert.Equal(gen, ob.DataGen())

	require.NoError(t, ob.EdInteg(0, 0, 0, true, true, true, false, true, 0))
	n := ob.EdFlush()
	assert.Greater(n, 0)
	assert.Greater(ob.DataGen(), gen)
	assert.Greater(ob.WtGen(), 0)
}

/* command level flagging by baseline specification ---------------------------*/
func Test_editBaselineSpec(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(5, 2, annulusUV(5.0e6), []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0)})
	require.NoError(t, selectAll(ob))
	sub := ob.Sub[0]
	nameA := sub.Tel[0].Name
	nameB := sub.Tel[1].Name

	n, err := ob.EditBaselines(nameA+"-"+nameB, true, true, 0.0, 0.0)
	require.NoError(t, err)
	/* one baseline, two integrations, one channel, one polarization */
	assert.Equal(2, n)
	b := sub.BaseIndex(0, 1)
	for t := range sub.Integ {
		assert.True(sub.Integ[t].Dat[sub.Dindex(b, 0, 0, 0)].Flagged())
	}
	n, err = ob.EditBaselines(nameA+"-"+nameB, false, true, 0.0, 0.0)
	require.NoError(t, err)
	assert.Equal(2, n)
}

/* bad specifications are parse errors ----------------------------------------*/
func Test_editBadSpec(t *testing.T) {
	assert := assert.New(t)
	ob := synthObs(5, 1, annulusUV(5.0e6), nil)
	_, err := ob.EditBaselines("A0-B0-C0", true, true, 0.0, 0.0)
	assert.ErrorIs(err, vlbigo.ErrParse)
}
