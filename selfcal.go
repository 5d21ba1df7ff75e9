/*------------------------------------------------------------------------------
* selfcal.go : antenna gain self-calibration
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/05/02 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
	"math/cmplx"
)

/* the outcome of one self-cal run --------------------------------------------*/
type SelfcalReport struct {
	Nsolved int     /* solution intervals solved */
	Nfailed int     /* solution intervals that failed to converge */
	Nflag   int     /* visibilities flagged by the closure check */
	RmsPre  float64 /* model-data rms before the corrections (Jy) */
	RmsPost float64 /* model-data rms after the corrections (Jy) */
}

/* solve per-antenna complex gains against the established model ----------------
* args   : bool doamp       I   solve amplitudes as well as phases
*          bool dophs       I   solve phases
*          bool dofloat     I   skip the amplitude normalisation
*          float64 solint   I   solution interval (minutes, 0: per integration)
*          *Abort abort     I   driver abort signal (may be nil)
* return : report, error
* notes  : the tentative model is established first, then each interval of
*          each IF is solved independently. A failed interval is a warning
*          counted in the report, not a fatal error. The derived corrections
*          are applied multiplicatively and the map stamped stale.
*-----------------------------------------------------------------------------*/
func (ob *Observation) Selfcal(doamp, dophs, dofloat bool, solint float64, abort *Abort) (*SelfcalReport, error) {
	return ob.selfcal(doamp, dophs, dofloat, solint, false, abort)
}

/* fit one overall amplitude scale factor per telescope -------------------------
* One amplitude-only solution spanning the whole observation. The phase part
* of the request is zeroed as well as the solution, matching the released
* behaviour of the global scaling mode.
*-----------------------------------------------------------------------------*/
func (ob *Observation) GScale(dofloat bool, abort *Abort) (*SelfcalReport, error) {
	return ob.selfcal(true, false, dofloat, 0.0, true, abort)
}

func (ob *Observation) selfcal(doamp, dophs, dofloat bool, solint float64, global bool, abort *Abort) (*SelfcalReport, error) {
	op := "selfcal"
	if global {
		op = "gscale"
	}
	if err := ob.needSelect(op); err != nil {
		return nil, err
	}
	/* establish the tentative model - solutions reference model+newmod */
	if err := ob.Keep(); err != nil {
		return nil, err
	}
	if ob.Model.Ncmp()+ob.Cmod.Ncmp() == 0 {
		Lprnterr("%s: no model to calibrate against\n", op)
		return nil, fmt.Errorf("%w: %s needs a model", ErrStateRequired, op)
	}
	rep := &SelfcalReport{}
	rep.RmsPre = ob.quietRms()

	for cif := ob.NextIF(-1, true, true); cif >= 0; cif = ob.NextIF(cif, true, true) {
		if abort.Raised() {
			return rep, fmt.Errorf("%w: %s", ErrAborted, op)
		}
		dat, err := ob.GetIF(cif)
		if err != nil {
			return rep, err
		}
		for isub, sub := range ob.Sub {
			ivals := sub.solIntervals(solint, global)
			for _, iv := range ivals {
				if abort.Raised() {
					return rep, fmt.Errorf("%w: %s", ErrAborted, op)
				}
				nflag := ob.solveInterval(sub, dat.Sub[isub].Integ, cif, iv,
					doamp, dophs, dofloat, global, rep)
				rep.Nflag += nflag
			}
		}
	}
	ob.MarkDirty(rep.Nflag > 0)
	rep.RmsPost = ob.quietRms()
	Lprintf("%s: %d intervals solved, %d failed\n", op, rep.Nsolved, rep.Nfailed)
	Lprintf("Fit before self-cal, rms=%.6g Jy;  after, rms=%.6g Jy\n", rep.RmsPre, rep.RmsPost)
	if rep.Nflag > 0 {
		Lprintf("%s\n", FlagEvent{Nflag: rep.Nflag})
	}
	return rep, nil
}

/* the rms model-data difference without the diagnostic line ------------------*/
func (ob *Observation) quietRms() float64 {
	var sumsq float64
	n := 0
	_ = ob.forStream(nil, func(vis *Visibility) {
		d := AmpPhs(vis.Amp, vis.Phs) - AmpPhs(vis.ModAmp, vis.ModPhs)
		sumsq += SQR(real(d)) + SQR(imag(d))
		n++
	})
	if n == 0 {
		return 0.0
	}
	return math.Sqrt(sumsq / float64(n))
}

/* an inclusive integration index range forming one solution interval ---------*/
type solRange struct {
	t0, t1 int
}

func (sub *Subarray) solIntervals(solint float64, global bool) []solRange {
	n := len(sub.Integ)
	if n == 0 {
		return nil
	}
	if global {
		return []solRange{{0, n - 1}}
	}
	if solint <= 0.0 {
		out := make([]solRange, n)
		for i := range out {
			out[i] = solRange{i, i}
		}
		return out
	}
	dt := solint * 60.0
	var out []solRange
	t0 := 0
	for t := 1; t <= n; t++ {
		if t == n || sub.Integ[t].UT-sub.Integ[t0].UT > dt {
			out = append(out, solRange{t0, t - 1})
			t0 = t
		}
	}
	return out
}

/* solve and apply the gains of one interval of one IF ------------------------*/
func (ob *Observation) solveInterval(sub *Subarray, rows [][]Visibility, cif int, iv solRange,
	doamp, dophs, dofloat, global bool, rep *SelfcalReport) int {
	ntel := len(sub.Tel)
	nbase := len(sub.Base)
	/* per baseline accumulations of sum w.V.conj(M) and sum w.|M|^2 */
	psum := make([]complex128, nbase)
	qsum := make([]float64, nbase)
	ndat := 0
	for t := iv.t0; t <= iv.t1; t++ {
		for b := range sub.Base {
			vis := &rows[t][b]
			if vis.Bad || vis.Wt <= 0.0 || vis.ModAmp <= 0.0 {
				continue
			}
			w := vis.Wt * sub.Tel[sub.Base[b].TelA].AntWt * sub.Tel[sub.Base[b].TelB].AntWt
			if w <= 0.0 {
				continue
			}
			if ob.Self.Wtmin > 0.0 && vis.Wt < ob.Self.Wtmin {
				continue
			}
			r := math.Hypot(vis.U, vis.V)
			if r < ob.Self.Uvmin || (ob.Self.Uvmax > 0.0 && r > ob.Self.Uvmax) {
				continue
			}
			if ob.Self.Gauval > 0.0 && ob.Self.Gauval < 1.0 && ob.Self.Gaurad > 0.0 {
				k := -math.Log(ob.Self.Gauval) / SQR(ob.Self.Gaurad)
				w *= math.Exp(-k * (SQR(vis.U) + SQR(vis.V)))
			}
			z := AmpPhs(vis.Amp, vis.Phs)
			m := AmpPhs(vis.ModAmp, vis.ModPhs)
			psum[b] += complex(w, 0) * z * cmplxConj(m)
			qsum[b] += w * SQR(vis.ModAmp)
			ndat++
		}
	}
	/* the closure check: telescopes must belong to a connected group of at
	 * least mintel unflagged antennas to be solvable */
	good := sub.closureCheck(qsum, ob.Self.Mintel)
	nflag := 0
	if ob.Self.Doflag {
		nflag = ob.flagUnclosed(sub, cif, iv, good, qsum)
	}
	if ndat == 0 {
		return nflag
	}
	/* Gauss-Newton fixed point iteration on g_a */
	g := make([]complex128, ntel)
	has := make([]bool, ntel)
	for a := range g {
		g[a] = 1.0
	}
	for b := range sub.Base {
		if qsum[b] > 0.0 {
			has[sub.Base[b].TelA] = true
			has[sub.Base[b].TelB] = true
		}
	}
	converged := false
	for iter := 0; iter < 200; iter++ {
		var worst float64
		for a := 0; a < ntel; a++ {
			if sub.Tel[a].AntFix || !has[a] || !good[a] {
				continue
			}
			var num complex128
			var den float64
			for b := range sub.Base {
				if qsum[b] <= 0.0 {
					continue
				}
				ta, tb := sub.Base[b].TelA, sub.Base[b].TelB
				switch {
				case ta == a && good[tb]:
					num += g[tb] * psum[b]
					den += SQR(cmplx.Abs(g[tb])) * qsum[b]
				case tb == a && good[ta]:
					num += g[ta] * cmplxConj(psum[b])
					den += SQR(cmplx.Abs(g[ta])) * qsum[b]
				}
			}
			if den <= 0.0 {
				continue
			}
			gn := num / complex(den, 0)
			if !doamp {
				if ab := cmplx.Abs(gn); ab > 0.0 {
					gn /= complex(ab, 0)
				}
			}
			if !dophs && !global {
				gn = complex(cmplx.Abs(gn), 0)
			}
			/* damped update */
			gn = (gn + g[a]) / 2
			if d := cmplx.Abs(gn - g[a]); d > worst {
				worst = d
			}
			g[a] = gn
		}
		if worst < 1e-12 {
			converged = true
			break
		}
	}
	if !converged {
		rep.Nfailed++
		Lprnterr("selfcal: interval at UT %.1f s did not converge\n", sub.Integ[iv.t0].UT)
		return nflag
	}
	rep.Nsolved++
	/* the phase-only mode ends on unit moduli despite the damping */
	if !doamp {
		for a := range g {
			if ab := cmplx.Abs(g[a]); ab > 0.0 {
				g[a] /= complex(ab, 0)
			}
		}
	}
	/* the global mode keeps amplitudes only */
	if global {
		for a := range g {
			g[a] = complex(cmplx.Abs(g[a]), 0)
		}
	}
	/* amplitude normalisation: product of solved gain moduli = 1 */
	if doamp && !dofloat {
		var lsum float64
		ns := 0
		for a := 0; a < ntel; a++ {
			if sub.Tel[a].AntFix || !has[a] || !good[a] {
				continue
			}
			if ab := cmplx.Abs(g[a]); ab > 0.0 {
				lsum += math.Log(ab)
				ns++
			}
		}
		if ns > 0 {
			f := math.Exp(lsum / float64(ns))
			for a := 0; a < ntel; a++ {
				if !sub.Tel[a].AntFix && has[a] && good[a] {
					g[a] /= complex(f, 0)
				}
			}
		}
	}
	/* clip the solutions into the configured limits */
	for a := 0; a < ntel; a++ {
		amp := cmplx.Abs(g[a])
		phs := cmplx.Phase(g[a])
		if ob.Self.Maxamp > 1.0 {
			lo, hi := 1.0/ob.Self.Maxamp, ob.Self.Maxamp
			if amp < lo {
				amp = lo
			} else if amp > hi {
				amp = hi
			}
		}
		if ob.Self.Maxphs > 0.0 {
			phs = WrapRad(phs)
			if phs > ob.Self.Maxphs {
				phs = ob.Self.Maxphs
			} else if phs < -ob.Self.Maxphs {
				phs = -ob.Self.Maxphs
			}
		}
		g[a] = AmpPhs(amp, phs)
	}
	/* fold the inverse gains into the accumulated corrections */
	for t := iv.t0; t <= iv.t1; t++ {
		tcor := sub.Integ[t].Tcor[cif]
		for a := 0; a < ntel; a++ {
			if sub.Tel[a].AntFix || !has[a] || !good[a] {
				continue
			}
			amp := cmplx.Abs(g[a])
			if amp <= 0.0 {
				continue
			}
			tcor[a].Amp /= amp
			tcor[a].Phs = WrapRad(tcor[a].Phs - cmplx.Phase(g[a]))
		}
	}
	return nflag
}

/* mark the telescopes that belong to a closed group of at least mintel
 * antennas connected by unflagged baselines */
func (sub *Subarray) closureCheck(qsum []float64, mintel int) []bool {
	ntel := len(sub.Tel)
	if mintel < 2 {
		mintel = 2
	}
	/* union-find over the unflagged baselines */
	parent := make([]int, ntel)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for b := range sub.Base {
		if qsum[b] <= 0.0 {
			continue
		}
		ra := find(sub.Base[b].TelA)
		rb := find(sub.Base[b].TelB)
		if ra != rb {
			parent[ra] = rb
		}
	}
	size := make(map[int]int)
	for a := 0; a < ntel; a++ {
		size[find(a)]++
	}
	good := make([]bool, ntel)
	for a := 0; a < ntel; a++ {
		good[a] = size[find(a)] >= mintel
	}
	return good
}

/* flag the raw samples of baselines whose endpoints are not solvable ---------*/
func (ob *Observation) flagUnclosed(sub *Subarray, cif int, iv solRange, good []bool, qsum []float64) int {
	chans := ob.ifChans(cif)
	n := 0
	for b := range sub.Base {
		if qsum[b] <= 0.0 {
			continue
		}
		if good[sub.Base[b].TelA] && good[sub.Base[b].TelB] {
			continue
		}
		for t := iv.t0; t <= iv.t1; t++ {
			integ := &sub.Integ[t]
			for _, c := range chans {
				for p := 0; p < sub.npol; p++ {
					dv := &integ.Dat[sub.Dindex(b, cif, c, p)]
					if dv.Wt > 0.0 {
						dv.Wt = -dv.Wt
						n++
					}
				}
			}
		}
	}
	return n
}
