/*------------------------------------------------------------------------------
* vlbigo unit test driver : UV FITS input/output and the snapshot files
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

/* write then read reproduces the store ---------------------------------------*/
func Test_uvfitsRoundTrip(t *testing.T) {
	assert := assert.New(t)
	cmps := []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0), pointCmp(0.3, 5.0, 2.0)}
	ob := synthObs(6, 3, annulusUV(7.0e6), cmps)
	require.NoError(t, selectAll(ob))

	path := filepath.Join(t.TempDir(), "test.uvf")
	require.NoError(t, ob.WriteUVF(path, false))

	ob2, err := vlbigo.ReadUVF(path, 0.0, false)
	require.NoError(t, err)
	assert.Equal(ob.Name, ob2.Name)
	assert.Equal(ob.NIF, ob2.NIF)
	assert.Equal(ob.NChan, ob2.NChan)
	assert.Equal(ob.NPol, ob2.NPol)
	assert.Equal(ob.Nrec(), ob2.Nrec())
	require.Equal(t, len(ob.Sub), len(ob2.Sub))
	sub, sub2 := ob.Sub[0], ob2.Sub[0]
	require.Equal(t, len(sub.Tel), len(sub2.Tel))
	for i := range sub.Tel {
		assert.Equal(sub.Tel[i].Name, sub2.Tel[i].Name)
		assert.InDelta(sub.Tel[i].XYZ[0], sub2.Tel[i].XYZ[0], 1.0e-9)
	}
	require.Equal(t, len(sub.Integ), len(sub2.Integ))
	for ti := range sub.Integ {
		a, b := &sub.Integ[ti], &sub2.Integ[ti]
		assert.InDelta(a.UT, b.UT, 1.0e-2)
		for k := range a.Dat {
			assert.InDelta(float64(a.Dat[k].Re), float64(b.Dat[k].Re), 1.0e-6)
			assert.InDelta(float64(a.Dat[k].Im), float64(b.Dat[k].Im), 1.0e-6)
			assert.InDelta(float64(a.Dat[k].Wt), float64(b.Dat[k].Wt), 1.0e-6)
		}
	}
}

/* a multi-IF file carries its frequency layout through the FQ table ----------*/
func Test_uvfitsMultiIF(t *testing.T) {
	assert := assert.New(t)
	ifs := []vlbigo.IFrec{
		{Freq: testFreq, DF: 1.0e6, BW: 2.0e6, Coff: 0},
		{Freq: testFreq + 3.0e8, DF: 1.0e6, BW: 2.0e6, Coff: 2},
	}
	ob := vlbigo.NewObservation("MIF", 0.3, 0.7, ifs, []vlbigo.Stokes{vlbigo.RRPol})
	require.NoError(t, ob.SetNChan(2))
	sub := ob.AddSubarray([]vlbigo.Telescope{{Name: "AA"}, {Name: "BB"}, {Name: "CC"}})
	for ti := 0; ti < 2; ti++ {
		integ := sub.AddInteg(float64(ti) * 30.0)
		for b := 0; b < 3; b++ {
			integ.UVW[b] = vlbigo.UVWCoord{U: 1.0e-3 * float64(b+1), V: -2.0e-3}
			for cif := 0; cif < 2; cif++ {
				for c := 0; c < 2; c++ {
					integ.Dat[sub.Dindex(b, cif, c, 0)] = vlbigo.Cvis{
						Re: float32(1.0 + 0.1*float64(cif) + 0.01*float64(c)),
						Im: 0.25, Wt: 1.0,
					}
				}
			}
		}
	}
	path := filepath.Join(t.TempDir(), "mif.uvf")
	require.NoError(t, ob.WriteUVF(path, false))
	ob2, err := vlbigo.ReadUVF(path, 0.0, false)
	require.NoError(t, err)
	require.Equal(t, 2, ob2.NIF)
	assert.InDelta(ifs[0].Freq, ob2.IFs[0].Freq, 1.0)
	assert.InDelta(ifs[1].Freq, ob2.IFs[1].Freq, 1.0)
	sub2 := ob2.Sub[0]
	for ti := range sub.Integ {
		for k := range sub.Integ[ti].Dat {
			assert.InDelta(float64(sub.Integ[ti].Dat[k].Re),
				float64(sub2.Integ[ti].Dat[k].Re), 1.0e-6)
		}
	}
}

/* the written history line announces the difmap lineage ----------------------*/
func Test_uvfitsHistory(t *testing.T) {
	ob := synthObs(5, 1, annulusUV(5.0e6), []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0)})
	path := filepath.Join(t.TempDir(), "hist.uvf")
	require.NoError(t, ob.WriteUVF(path, false))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw[:2880*4]), "DIFMAP Read into difmap on")
}

/* reading a missing or malformed file fails with the right class -------------*/
func Test_uvfitsErrors(t *testing.T) {
	assert := assert.New(t)
	_, err := vlbigo.ReadUVF(filepath.Join(t.TempDir(), "absent.uvf"), 0.0, false)
	assert.ErrorIs(err, vlbigo.ErrIo)

	bad := filepath.Join(t.TempDir(), "bad.uvf")
	require.NoError(t, os.WriteFile(bad, make([]byte, 2880), 0644))
	_, err = vlbigo.ReadUVF(bad, 0.0, false)
	assert.ErrorIs(err, vlbigo.ErrParse)
}

/* save then get reproduces the imaging environment ---------------------------*/
func Test_saveGetRoundTrip(t *testing.T) {
	assert := assert.New(t)
	cmps := []vlbigo.Modcmp{pointCmp(1.0, 0.0, 0.0), pointCmp(0.3, 5.0, 2.0)}
	s := vlbigo.NewSession()
	s.Ob = synthObs(8, 2, annulusUV(8.0e6), cmps)
	require.NoError(t, selectAll(s.Ob))
	var err error
	s.Map, err = vlbigo.NewMapBeam(128, mas(0.5), 128, mas(0.5))
	require.NoError(t, err)
	s.Inv.Uvbin = 2.0
	s.Inv.Errpow = -0.5
	s.Inv.Gauval = 0.3
	s.Inv.Gaurad = 5.0e6
	s.Ob.Self.Maxamp = 1.5
	s.Ob.Model.Add(cmps[0])
	s.Ob.Newmod.Add(cmps[1])
	s.Wins.Add(mas(-2.0), mas(2.0), mas(-1.0), mas(3.0))
	require.NoError(t, s.Ob.Shift(s.Wins, mas(0.5), mas(-0.25)))
	require.NoError(t, s.Ob.SetScanGap(120.0, -1))

	prefix := filepath.Join(t.TempDir(), "env")
	require.NoError(t, s.Save(prefix))

	s2 := vlbigo.NewSession()
	require.NoError(t, s2.Get(prefix))
	require.NotNil(t, s2.Ob)
	assert.Equal(s.Ob.Nrec(), s2.Ob.Nrec())
	assert.Equal(s.Ob.Stream.Pol, s2.Ob.Stream.Pol)
	assert.Equal(s.Map.Nx, s2.Map.Nx)
	assert.InDelta(s.Map.Xinc, s2.Map.Xinc, 1.0e-18)
	assert.InDelta(s.Inv.Uvbin, s2.Inv.Uvbin, 1.0e-9)
	assert.InDelta(s.Inv.Errpow, s2.Inv.Errpow, 1.0e-9)
	assert.InDelta(s.Inv.Gauval, s2.Inv.Gauval, 1.0e-9)
	assert.InDelta(s.Inv.Gaurad, s2.Inv.Gaurad, 1.0)
	assert.InDelta(s.Ob.Self.Maxamp, s2.Ob.Self.Maxamp, 1.0e-9)
	assert.InDelta(s.Ob.Geom.East, s2.Ob.Geom.East, 1.0e-15)
	assert.InDelta(s.Ob.Geom.North, s2.Ob.Geom.North, 1.0e-15)
	assert.Equal(s.Wins.Nwin(), s2.Wins.Nwin())
	assert.Equal(s.Ob.Sub[0].ScanGap, s2.Ob.Sub[0].ScanGap)
	/* the saved model holds established+tentative merged */
	assert.Equal(2, s2.Ob.Model.Ncmp())

	/* the environments invert to the same map */
	par := vlbigo.DefaultInvPar()
	require.NoError(t, vlbigo.Invert(s.Ob, s.Map, &par, nil))
	require.NoError(t, vlbigo.Invert(s2.Ob, s2.Map, &par, nil))
	/* the tentative model of s is established in s2: align them */
	require.NoError(t, s.Ob.Keep())
	require.NoError(t, vlbigo.Invert(s.Ob, s.Map, &par, nil))
	for i := 0; i < len(s.Map.Map); i += 97 {
		assert.InDelta(float64(s.Map.Map[i]), float64(s2.Map.Map[i]), 1.0e-4)
	}
}
