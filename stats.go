/*------------------------------------------------------------------------------
* stats.go : visibility statistics and model agreement measures
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/25 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
)

/* summary statistics of one visibility quantity ------------------------------*/
type VisStats struct {
	N       int     /* number of contributing samples */
	Mean    float64
	Sigma   float64 /* standard deviation about the mean */
	Scatter float64 /* mean absolute deviation */
	Min     float64
	Max     float64
}

/* compute statistics of the unflagged stream inside a UV annulus ---------------
* args   : string qty       I   one of amp,phase,real,imag,umag,vmag,uvrad
*          float64 uvmin    I   inner UV radius (wavelengths)
*          float64 uvmax    I   outer UV radius (0: unbounded)
*-----------------------------------------------------------------------------*/
func (ob *Observation) VisStats(qty string, uvmin, uvmax float64) (*VisStats, error) {
	if err := ob.needSelect("uvstat"); err != nil {
		return nil, err
	}
	pick, err := visQuantity(qty)
	if err != nil {
		return nil, err
	}
	st := &VisStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum, sumsq float64
	var vals []float64
	err = ob.forStream(nil, func(vis *Visibility) {
		r := math.Hypot(vis.U, vis.V)
		if r < uvmin || (uvmax > 0.0 && r > uvmax) {
			return
		}
		v := pick(vis)
		st.N++
		sum += v
		sumsq += v * v
		vals = append(vals, v)
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	})
	if err != nil {
		return nil, err
	}
	if st.N == 0 {
		return nil, fmt.Errorf("%w: no unflagged data in the UV range", ErrStateRequired)
	}
	st.Mean = sum / float64(st.N)
	v := sumsq/float64(st.N) - SQR(st.Mean)
	if v > 0.0 {
		st.Sigma = math.Sqrt(v)
	}
	for _, x := range vals {
		st.Scatter += math.Abs(x - st.Mean)
	}
	st.Scatter /= float64(st.N)
	return st, nil
}

func visQuantity(qty string) (func(*Visibility) float64, error) {
	switch qty {
	case "amp", "amplitude":
		return func(v *Visibility) float64 { return v.Amp }, nil
	case "phase", "phs":
		return func(v *Visibility) float64 { return v.Phs }, nil
	case "real":
		return func(v *Visibility) float64 { return v.Amp * math.Cos(v.Phs) }, nil
	case "imag":
		return func(v *Visibility) float64 { return v.Amp * math.Sin(v.Phs) }, nil
	case "umag":
		return func(v *Visibility) float64 { return math.Abs(v.U) }, nil
	case "vmag":
		return func(v *Visibility) float64 { return math.Abs(v.V) }, nil
	case "uvrad":
		return func(v *Visibility) float64 { return math.Hypot(v.U, v.V) }, nil
	}
	return nil, fmt.Errorf("%w: unknown visibility quantity '%s'", ErrParse, qty)
}

/* the agreement between the established model and the data ---------------------
* args   : float64 uvmin,uvmax  I  UV annulus (wavelengths, uvmax 0: unbounded)
* return : rms residual (Jy), reduced chi squared, number of samples
*-----------------------------------------------------------------------------*/
func (ob *Observation) Moddif(uvmin, uvmax float64) (rms, chisq float64, ndata int, err error) {
	if err = ob.needSelect("moddif"); err != nil {
		return
	}
	var sumsq, sumwsq float64
	err = ob.forStream(nil, func(vis *Visibility) {
		r := math.Hypot(vis.U, vis.V)
		if r < uvmin || (uvmax > 0.0 && r > uvmax) {
			return
		}
		d := AmpPhs(vis.Amp, vis.Phs) - AmpPhs(vis.ModAmp, vis.ModPhs)
		dd := SQR(real(d)) + SQR(imag(d))
		sumsq += dd
		sumwsq += vis.Wt * dd
		ndata++
	})
	if err != nil {
		return
	}
	if ndata == 0 {
		err = fmt.Errorf("%w: no unflagged data in the UV range", ErrStateRequired)
		return
	}
	rms = math.Sqrt(sumsq / float64(ndata))
	/* two degrees of freedom per complex sample */
	chisq = sumwsq / float64(2*ndata)
	Lprintf("moddif: rms=%g Jy  chisq=%g  ndata=%d\n", rms, chisq, ndata)
	return
}
