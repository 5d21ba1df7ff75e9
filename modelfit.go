/*------------------------------------------------------------------------------
* modelfit.go : least squares fitting of model component parameters
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/05/05 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
)

/* one visibility snapshot used by the fit ------------------------------------*/
type fitSample struct {
	u, v, freq float64
	re, im     float64
	wt         float64
}

/* a reference to one variable scalar of one component ------------------------*/
type fitParam struct {
	icmp int
	kind int /* one of the Free* bits, FreeCent split into x and y */
	isY  bool
}

/* fit the free parameters of the established model to the selected stream -----
* args   : int niter        I   max Levenberg-Marquardt iterations
*          *Abort abort     I   driver abort signal (may be nil)
* notes  : the tentative model is established first. Parameters are those
*          marked variable in each component's free bitmap. A failure to
*          improve is reported as ErrNumeric with the model unchanged.
*-----------------------------------------------------------------------------*/
func (ob *Observation) ModelFit(niter int, abort *Abort) error {
	if err := ob.needSelect("modelfit"); err != nil {
		return err
	}
	if niter < 1 || niter > MAXNITER {
		return fmt.Errorf("%w: modelfit niter %d", ErrOutOfRange, niter)
	}
	if err := ob.Keep(); err != nil {
		return err
	}
	if ob.Model.Ncmp() == 0 {
		Lprnterr("modelfit: there is no model to fit\n")
		return fmt.Errorf("%w: modelfit needs a model", ErrStateRequired)
	}
	/* snapshot the stream once; the fit then works against plain arrays */
	var samples []fitSample
	for cif := ob.NextIF(-1, true, false); cif >= 0; cif = ob.NextIF(cif, true, false) {
		dat, err := ob.GetIF(cif)
		if err != nil {
			return err
		}
		for isub := range dat.Sub {
			for t := range dat.Sub[isub].Integ {
				for b := range dat.Sub[isub].Integ[t] {
					vis := &dat.Sub[isub].Integ[t][b]
					if vis.Bad || vis.Wt <= 0.0 {
						continue
					}
					z := AmpPhs(vis.Amp, vis.Phs)
					samples = append(samples, fitSample{
						u: vis.U, v: vis.V, freq: dat.Freq,
						re: real(z), im: imag(z), wt: vis.Wt,
					})
				}
			}
		}
	}
	if len(samples) == 0 {
		return fmt.Errorf("%w: no unflagged data to fit", ErrStateRequired)
	}
	params := collectParams(ob.Model)
	if len(params) == 0 {
		Lprnterr("modelfit: the model has no free parameters\n")
		return fmt.Errorf("%w: modelfit needs free parameters", ErrStateRequired)
	}
	cmps := append([]Modcmp(nil), ob.Model.Cmp...)
	np := len(params)
	nd := 2 * len(samples)
	chisq := fitChisq(cmps, samples)
	Lprintf("modelfit: %d free parameters, %d samples, initial chisq=%.6g\n",
		np, len(samples), chisq/float64(nd))

	lambda := 1e-3
	for iter := 0; iter < niter; iter++ {
		if abort.Raised() {
			return fmt.Errorf("%w: modelfit at iteration %d", ErrAborted, iter)
		}
		/* weighted jacobian (transposed, column-major) and residual vector */
		A := Mat(np, nd)
		y := Mat(nd, 1)
		fillJacobian(cmps, params, samples, A, y)
		/* normal equations with Marquardt damping */
		JtJ := Mat(np, np)
		Jty := Mat(np, 1)
		MatMul("NT", np, np, nd, 1.0, A, A, 0.0, JtJ)
		MatMul("NN", np, 1, nd, 1.0, A, y, 0.0, Jty)
		improved := false
		for try := 0; try < 10; try++ {
			H := Mat(np, np)
			MatCpy(H, JtJ, np, np)
			for i := 0; i < np; i++ {
				H[i+i*np] *= 1.0 + lambda
			}
			dx := Mat(np, 1)
			if Solve("N", H, Jty, np, 1, dx) != 0 {
				lambda *= 10.0
				continue
			}
			trial := applyParams(cmps, params, dx)
			if c := fitChisq(trial, samples); c < chisq {
				chisq = c
				cmps = trial
				lambda = math.Max(lambda*0.3, 1e-12)
				improved = true
				break
			}
			lambda *= 10.0
		}
		if !improved {
			if iter == 0 {
				Lprnterr("modelfit: no improvement found\n")
				return fmt.Errorf("%w: modelfit failed to improve the model", ErrNumeric)
			}
			break
		}
	}
	ob.Model.Cmp = cmps
	ob.Model.Reflux()
	ob.MarkDirty(false)
	Lprintf("modelfit: final reduced chisq=%.6g\n", chisq/float64(nd))
	return nil
}

func collectParams(m *Model) []fitParam {
	var out []fitParam
	for i := range m.Cmp {
		fp := m.Cmp[i].Freepar
		if fp&FreeFlux != 0 {
			out = append(out, fitParam{icmp: i, kind: FreeFlux})
		}
		if fp&FreeCent != 0 {
			out = append(out, fitParam{icmp: i, kind: FreeCent},
				fitParam{icmp: i, kind: FreeCent, isY: true})
		}
		if fp&FreeMajor != 0 {
			out = append(out, fitParam{icmp: i, kind: FreeMajor})
		}
		if fp&FreeRatio != 0 {
			out = append(out, fitParam{icmp: i, kind: FreeRatio})
		}
		if fp&FreePhi != 0 {
			out = append(out, fitParam{icmp: i, kind: FreePhi})
		}
		if fp&FreeSpcInd != 0 {
			out = append(out, fitParam{icmp: i, kind: FreeSpcInd})
		}
	}
	return out
}

func getParam(cmp *Modcmp, p fitParam) float64 {
	switch p.kind {
	case FreeFlux:
		return cmp.Flux
	case FreeCent:
		if p.isY {
			return cmp.Y
		}
		return cmp.X
	case FreeMajor:
		return cmp.Major
	case FreeRatio:
		return cmp.Ratio
	case FreePhi:
		return cmp.Phi
	case FreeSpcInd:
		return cmp.SpcInd
	}
	return 0.0
}

func setParam(cmp *Modcmp, p fitParam, v float64) {
	switch p.kind {
	case FreeFlux:
		cmp.Flux = v
	case FreeCent:
		if p.isY {
			cmp.Y = v
		} else {
			cmp.X = v
		}
	case FreeMajor:
		if v < 0.0 {
			v = -v
		}
		cmp.Major = v
	case FreeRatio:
		if v < 1e-6 {
			v = 1e-6
		} else if v > 1.0 {
			v = 1.0
		}
		cmp.Ratio = v
	case FreePhi:
		cmp.Phi = WrapRad(v)
	case FreeSpcInd:
		cmp.SpcInd = v
	}
}

/* step size for the numeric derivative of one parameter ----------------------*/
func paramStep(cmp *Modcmp, p fitParam) float64 {
	switch p.kind {
	case FreeFlux:
		return math.Max(1e-6, math.Abs(cmp.Flux)*1e-5)
	case FreeCent, FreeMajor:
		return 1e-12 /* radians */
	case FreeRatio:
		return 1e-5
	case FreePhi:
		return 1e-5
	case FreeSpcInd:
		return 1e-5
	}
	return 1e-6
}

func applyParams(cmps []Modcmp, params []fitParam, dx []float64) []Modcmp {
	out := append([]Modcmp(nil), cmps...)
	for i, p := range params {
		setParam(&out[p.icmp], p, getParam(&out[p.icmp], p)+dx[i])
	}
	return out
}

func fitChisq(cmps []Modcmp, samples []fitSample) float64 {
	var sum float64
	for i := range samples {
		s := &samples[i]
		m := ModVis(cmps, s.u, s.v, s.freq)
		sum += s.wt * (SQR(s.re-real(m)) + SQR(s.im-imag(m)))
	}
	return sum
}

/* build the weighted jacobian transpose and residual vector ------------------*/
func fillJacobian(cmps []Modcmp, params []fitParam, samples []fitSample, A, y []float64) {
	np := len(params)
	base := make([]complex128, len(samples))
	for i := range samples {
		base[i] = ModVis(cmps, samples[i].u, samples[i].v, samples[i].freq)
	}
	for j, p := range params {
		h := paramStep(&cmps[p.icmp], p)
		pert := append([]Modcmp(nil), cmps...)
		setParam(&pert[p.icmp], p, getParam(&pert[p.icmp], p)+h)
		/* only the perturbed component's contribution changes */
		one0 := cmps[p.icmp : p.icmp+1]
		one1 := pert[p.icmp : p.icmp+1]
		for i := range samples {
			s := &samples[i]
			d := (ModVis(one1, s.u, s.v, s.freq) - ModVis(one0, s.u, s.v, s.freq)) / complex(h, 0)
			sw := math.Sqrt(s.wt)
			A[j+(2*i)*np] = sw * real(d)
			A[j+(2*i+1)*np] = sw * imag(d)
		}
	}
	for i := range samples {
		s := &samples[i]
		sw := math.Sqrt(s.wt)
		y[2*i] = sw * (s.re - real(base[i]))
		y[2*i+1] = sw * (s.im - imag(base[i]))
	}
}
