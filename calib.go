/*------------------------------------------------------------------------------
* calib.go : calibration corrections and their removal
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/22 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
	"strings"
)

/* a telescope/baseline selection parsed from the difmap "tel1-tel2" syntax ---*/
type BaseSpec struct {
	TelA, TelB string /* empty: match any telescope */
}

/* parse a baseline specification string ---------------------------------------
* ""       : all baselines
* "A"      : all baselines of telescope A
* "A-B"    : the single baseline A-B
*-----------------------------------------------------------------------------*/
func ParseBaseSpec(spec string) (BaseSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "*" {
		return BaseSpec{}, nil
	}
	parts := strings.Split(spec, "-")
	switch len(parts) {
	case 1:
		return BaseSpec{TelA: strings.TrimSpace(parts[0])}, nil
	case 2:
		a := strings.TrimSpace(parts[0])
		b := strings.TrimSpace(parts[1])
		if a == "" || b == "" {
			return BaseSpec{}, fmt.Errorf("%w: bad baseline spec '%s'", ErrParse, spec)
		}
		return BaseSpec{TelA: a, TelB: b}, nil
	}
	return BaseSpec{}, fmt.Errorf("%w: bad baseline spec '%s'", ErrParse, spec)
}

/* true if a baseline of the sub-array matches the specification --------------*/
func (bs BaseSpec) Matches(sub *Subarray, b int) bool {
	na := sub.Tel[sub.Base[b].TelA].Name
	nb := sub.Tel[sub.Base[b].TelB].Name
	if bs.TelA == "" {
		return true
	}
	if bs.TelB == "" {
		return na == bs.TelA || nb == bs.TelA
	}
	return (na == bs.TelA && nb == bs.TelB) || (na == bs.TelB && nb == bs.TelA)
}

/* undo selected parts of the accumulated self-cal corrections -----------------
* args   : bool doamp       I   reset amplitude corrections to unity
*          bool dophs       I   reset phase corrections to zero
*          bool doflag      I   restore solutions marked unusable
*-----------------------------------------------------------------------------*/
func (ob *Observation) Uncalib(doamp, dophs, doflag bool) error {
	if err := ob.needData("uncalib"); err != nil {
		return err
	}
	for _, sub := range ob.Sub {
		for t := range sub.Integ {
			for cif := range sub.Integ[t].Tcor {
				tcor := sub.Integ[t].Tcor[cif]
				for i := range tcor {
					if doamp {
						tcor[i].Amp = 1.0
					}
					if dophs {
						tcor[i].Phs = 0.0
					}
					if doflag {
						tcor[i].Bad = false
					}
				}
			}
		}
	}
	ob.MarkDirty(doflag)
	what := []string{}
	if doamp {
		what = append(what, "amplitude")
	}
	if dophs {
		what = append(what, "phase")
	}
	if doflag {
		what = append(what, "flag")
	}
	Lprintf("uncalib: cleared %s corrections\n", strings.Join(what, "+"))
	return nil
}

/* undo the baseline based residual offsets ------------------------------------*/
func (ob *Observation) ClrOff(doamp, dophs bool) error {
	if err := ob.needData("clroff"); err != nil {
		return err
	}
	for _, sub := range ob.Sub {
		for cif := range sub.Bcor {
			for b := range sub.Bcor[cif] {
				if doamp {
					sub.Bcor[cif][b].Amp = 1.0
				}
				if dophs {
					sub.Bcor[cif][b].Phs = 0.0
				}
			}
		}
	}
	ob.MarkDirty(false)
	return nil
}

/* solve and apply baseline based residual offsets ------------------------------
* For each matching baseline of each IF one complex offset is fitted to
* minimise sum w|V - M.off|^2 and its inverse folded into the baseline
* correction, so that the corrected data track the established model.
*-----------------------------------------------------------------------------*/
func (ob *Observation) ResOff(spec string) error {
	if err := ob.needSelect("resoff"); err != nil {
		return err
	}
	if ob.Model.Ncmp()+ob.Cmod.Ncmp() == 0 {
		Lprnterr("resoff: no established model to reference offsets to\n")
		return fmt.Errorf("%w: resoff needs an established model", ErrStateRequired)
	}
	bs, err := ParseBaseSpec(spec)
	if err != nil {
		return err
	}
	nfit := 0
	for cif := ob.NextIF(-1, true, false); cif >= 0; cif = ob.NextIF(cif, true, false) {
		dat, err := ob.GetIF(cif)
		if err != nil {
			return err
		}
		for isub, sub := range ob.Sub {
			for b := range sub.Base {
				if !bs.Matches(sub, b) {
					continue
				}
				/* accumulate sum w.V.conj(M) and sum w.|M|^2 over time */
				var nre, nim, den float64
				for t := range sub.Integ {
					vis := &dat.Sub[isub].Integ[t][b]
					if vis.Bad || vis.Wt <= 0.0 || vis.ModAmp <= 0.0 {
						continue
					}
					z := AmpPhs(vis.Amp, vis.Phs)
					m := AmpPhs(vis.ModAmp, vis.ModPhs)
					p := z * cmplxConj(m)
					nre += vis.Wt * real(p)
					nim += vis.Wt * imag(p)
					den += vis.Wt * SQR(vis.ModAmp)
				}
				if den <= 0.0 {
					continue
				}
				off := complex(nre/den, nim/den)
				oamp := math.Hypot(real(off), imag(off))
				if oamp <= 0.0 {
					continue
				}
				/* fold the inverse offset into the baseline correction */
				bc := &sub.Bcor[cif][b]
				bc.Amp /= oamp
				bc.Phs = WrapRad(bc.Phs - math.Atan2(imag(off), real(off)))
				nfit++
			}
		}
	}
	ob.MarkDirty(false)
	Lprintf("resoff: fitted %d baseline/IF offsets\n", nfit)
	return nil
}
