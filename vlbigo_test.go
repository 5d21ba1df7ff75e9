/*------------------------------------------------------------------------------
* vlbigo unit test helpers : synthetic observations
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"math"

	"vlbigo"
)

const testFreq = 1.0e9 /* Hz */

/* build a single IF, single channel RR observation whose visibilities are the
 * noise-free transform of the given component scene. uvfn returns the (u,v)
 * of one baseline sample in wavelengths. */
func synthObs(ntel, nteg int, uvfn func(iteg, ibase int) (float64, float64),
	cmps []vlbigo.Modcmp) *vlbigo.Observation {
	ifs := []vlbigo.IFrec{{Freq: testFreq, DF: 1.0e6, BW: 1.0e6, Coff: 0}}
	ob := vlbigo.NewObservation("SYNTH", 0.0, 0.5, ifs, []vlbigo.Stokes{vlbigo.RRPol})
	tels := make([]vlbigo.Telescope, ntel)
	for i := range tels {
		tels[i] = vlbigo.Telescope{
			Name:  string(rune('A'+i%26)) + string(rune('0'+i/26)),
			XYZ:   [3]float64{1e6 * math.Cos(float64(i)), 1e6 * math.Sin(float64(i)), 0.0},
			AntWt: 1.0,
		}
	}
	sub := ob.AddSubarray(tels)
	nbase := ntel * (ntel - 1) / 2
	for t := 0; t < nteg; t++ {
		integ := sub.AddInteg(float64(t) * 10.0)
		for b := 0; b < nbase; b++ {
			u, v := uvfn(t, b)
			integ.UVW[b] = vlbigo.UVWCoord{U: u / testFreq, V: v / testFreq}
			z := vlbigo.ModVis(cmps, u, v, testFreq)
			integ.Dat[sub.Dindex(b, 0, 0, 0)] = vlbigo.Cvis{
				Re: float32(real(z)), Im: float32(imag(z)), Wt: 1.0,
			}
		}
	}
	return ob
}

/* (u,v) samples spread over an annulus with deterministic coverage ----------*/
func annulusUV(rmax float64) func(int, int) (float64, float64) {
	return func(t, b int) (float64, float64) {
		k := float64(b*7919%1000) / 1000.0
		th := float64(b)*2.399963 + float64(t)*0.13 /* golden angle walk */
		r := rmax * (0.25 + 0.75*k)
		return r * math.Cos(th), r * math.Sin(th)
	}
}

/* (u,v) samples on a circle of the given radius ------------------------------*/
func circleUV(r float64, nbase int) func(int, int) (float64, float64) {
	return func(t, b int) (float64, float64) {
		th := vlbigo.PI*float64(b)/float64(nbase) + 0.05*float64(t)
		return r * math.Cos(th), r * math.Sin(th)
	}
}

func mas(x float64) float64 {
	return x / vlbigo.RTOMAS
}

func pointCmp(flux, xmas, ymas float64) vlbigo.Modcmp {
	return vlbigo.Modcmp{
		Type: vlbigo.DeltaCmp, Flux: flux,
		X: mas(xmas), Y: mas(ymas), Ratio: 1.0,
		Freepar: vlbigo.FreeFlux | vlbigo.FreeCent,
	}
}

/* select the single recorded polarization ------------------------------------*/
func selectAll(ob *vlbigo.Observation) error {
	return ob.Select(vlbigo.RRPol, nil)
}
