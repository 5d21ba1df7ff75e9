/*------------------------------------------------------------------------------
* uvaver.go : coherent time averaging of the visibility store
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/26 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
)

/* coherently average consecutive integrations ---------------------------------
* args   : float64 avsec    I   averaging time (s)
*          bool scatter     I   derive output weights from the sample scatter
* notes  : integrations separated by more than avsec, or straddling a scan
*          boundary, start a new bin. The store is re-allocated, the buffered
*          edit list discarded, and the map and beam stamped stale.
*-----------------------------------------------------------------------------*/
func (ob *Observation) UvAver(avsec float64, scatter bool) error {
	if err := ob.needData("uvaver"); err != nil {
		return err
	}
	if avsec <= 0.0 {
		return fmt.Errorf("%w: averaging time %g s", ErrOutOfRange, avsec)
	}
	nold, nnew := 0, 0
	for _, sub := range ob.Sub {
		nold += len(sub.Integ)
		sub.aver(avsec, scatter)
		nnew += len(sub.Integ)
	}
	ob.edits = ob.edits[:0]
	ob.MarkDirty(true)
	Lprintf("uvaver: %d integrations averaged into %d\n", nold, nnew)
	return nil
}

/* average the integrations of one sub-array ----------------------------------*/
func (sub *Subarray) aver(avsec float64, scatter bool) {
	if len(sub.Integ) == 0 {
		return
	}
	starts := sub.ScanStarts()
	scanOf := make([]int, len(sub.Integ))
	for s := 0; s < len(starts); s++ {
		end := len(sub.Integ)
		if s+1 < len(starts) {
			end = starts[s+1]
		}
		for i := starts[s]; i < end; i++ {
			scanOf[i] = s
		}
	}
	var out []Integration
	i := 0
	for i < len(sub.Integ) {
		/* the bin covers integrations within avsec of the first, in scan */
		j := i + 1
		for j < len(sub.Integ) && scanOf[j] == scanOf[i] &&
			sub.Integ[j].UT-sub.Integ[i].UT <= avsec {
			j++
		}
		out = append(out, sub.averBin(i, j, scatter))
		i = j
	}
	sub.Integ = out
}

/* combine integrations [i0,i1) into one ---------------------------------------
* Correlations are weighted complex means. Corrections must agree across the
* bin for an exact combine; the first integration's corrections are kept.
*-----------------------------------------------------------------------------*/
func (sub *Subarray) averBin(i0, i1 int, scatter bool) Integration {
	nbase := len(sub.Base)
	ncor := nbase * sub.nif * sub.nchan * sub.npol
	res := Integration{
		UVW:  make([]UVWCoord, nbase),
		Dat:  make([]Cvis, ncor),
		Tcor: sub.Integ[i0].Tcor,
	}
	/* weighted time and projections */
	var twt float64
	uvwWt := make([]float64, nbase)
	sre := make([]float64, ncor)
	sim := make([]float64, ncor)
	swt := make([]float64, ncor)
	nuse := make([]int, ncor)
	for t := i0; t < i1; t++ {
		integ := &sub.Integ[t]
		var iwt float64
		for k := 0; k < ncor; k++ {
			dv := &integ.Dat[k]
			w := float64(dv.Wt)
			if w <= 0.0 {
				continue
			}
			sre[k] += w * float64(dv.Re)
			sim[k] += w * float64(dv.Im)
			swt[k] += w
			nuse[k]++
			iwt += w
		}
		for b := 0; b < nbase; b++ {
			res.UVW[b].U += iwt * integ.UVW[b].U
			res.UVW[b].V += iwt * integ.UVW[b].V
			res.UVW[b].W += iwt * integ.UVW[b].W
			uvwWt[b] += iwt
		}
		res.UT += iwt * integ.UT
		twt += iwt
	}
	if twt > 0.0 {
		res.UT /= twt
	} else {
		res.UT = sub.Integ[i0].UT
	}
	for b := 0; b < nbase; b++ {
		if uvwWt[b] > 0.0 {
			res.UVW[b].U /= uvwWt[b]
			res.UVW[b].V /= uvwWt[b]
			res.UVW[b].W /= uvwWt[b]
		} else {
			res.UVW[b] = sub.Integ[i0].UVW[b]
		}
	}
	for k := 0; k < ncor; k++ {
		if swt[k] <= 0.0 {
			/* keep the first flagged value so unflag can recover it */
			res.Dat[k] = sub.Integ[i0].Dat[k]
			continue
		}
		re := sre[k] / swt[k]
		im := sim[k] / swt[k]
		w := swt[k]
		if scatter && nuse[k] > 1 {
			/* variance of the weighted mean from the sample scatter */
			var ssq float64
			for t := i0; t < i1; t++ {
				dv := &sub.Integ[t].Dat[k]
				if dv.Wt <= 0.0 {
					continue
				}
				ssq += float64(dv.Wt) * (SQR(float64(dv.Re)-re) + SQR(float64(dv.Im)-im))
			}
			v := ssq / swt[k] / float64(nuse[k]-1)
			if v > 0.0 {
				w = 1.0 / v
			}
		}
		res.Dat[k] = Cvis{Re: float32(re), Im: float32(im), Wt: float32(w)}
	}
	return res
}
