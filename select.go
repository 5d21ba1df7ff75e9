/*------------------------------------------------------------------------------
* select.go : polarization and channel selection, the visibility stream
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/08 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
	"sort"
)

/* canonicalise a channel range list: clip, sort, merge overlaps --------------*/
func CanonRanges(cl []ChanRange, nctotal int) ([]ChanRange, error) {
	if len(cl) == 0 {
		/* an empty list selects the whole band */
		return []ChanRange{{Ca: 0, Cb: nctotal - 1}}, nil
	}
	out := make([]ChanRange, 0, len(cl))
	for _, r := range cl {
		if r.Ca > r.Cb {
			r.Ca, r.Cb = r.Cb, r.Ca
		}
		if r.Ca < 0 || r.Cb >= nctotal {
			return nil, fmt.Errorf("%w: channel range %d..%d outside 0..%d",
				ErrOutOfRange, r.Ca, r.Cb, nctotal-1)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ca < out[j].Ca })
	merged := out[:1]
	for _, r := range out[1:] {
		last := &merged[len(merged)-1]
		if r.Ca <= last.Cb+1 {
			if r.Cb > last.Cb {
				last.Cb = r.Cb
			}
		} else {
			merged = append(merged, r)
		}
	}
	return merged, nil
}

/* the channels of one IF covered by the selection, as local indexes ----------*/
func (ob *Observation) ifChans(cif int) []int {
	var chans []int
	coff := ob.IFs[cif].Coff
	for _, r := range ob.Stream.CL {
		for g := r.Ca; g <= r.Cb; g++ {
			c := g - coff
			if c >= 0 && c < ob.NChan {
				chans = append(chans, c)
			}
		}
	}
	return chans
}

/* index of a recorded polarization on the stokes axis, -1 if absent ----------*/
func (ob *Observation) polIndex(pol Stokes) int {
	for i, p := range ob.Pols {
		if p == pol {
			return i
		}
	}
	return -1
}

/* describe how to form the requested polarization from recorded products ----*/
type polForm struct {
	pa, pb int        /* indexes of the two products (pb<0: single product) */
	scale  complex128 /* factor applied to (va op vb) */
	diff   bool       /* subtract instead of add */
}

func (ob *Observation) formOf(pol Stokes) (polForm, error) {
	/* a directly recorded product needs no formation */
	if i := ob.polIndex(pol); i >= 0 {
		return polForm{pa: i, pb: -1, scale: 1}, nil
	}
	two := func(a, b Stokes, scale complex128, diff bool) (polForm, error) {
		ia, ib := ob.polIndex(a), ob.polIndex(b)
		if ia >= 0 && ib >= 0 {
			return polForm{pa: ia, pb: ib, scale: scale, diff: diff}, nil
		}
		/* I can be estimated from a single parallel hand */
		if pol == SI {
			if ia >= 0 {
				return polForm{pa: ia, pb: -1, scale: 1}, nil
			}
			if ib >= 0 {
				return polForm{pa: ib, pb: -1, scale: 1}, nil
			}
		}
		return polForm{}, fmt.Errorf("%w: %s can not be formed from the recorded polarizations",
			ErrStateRequired, pol)
	}
	switch pol {
	case SI:
		if f, err := two(RRPol, LLPol, 0.5, false); err == nil {
			return f, nil
		}
		return two(XXPol, YYPol, 0.5, false)
	case SV:
		return two(RRPol, LLPol, 0.5, true)
	case SQ:
		if f, err := two(RLPol, LRPol, 0.5, false); err == nil {
			return f, nil
		}
		return two(XXPol, YYPol, 0.5, true)
	case SU:
		/* U = (RL-LR)/2i */
		return two(RLPol, LRPol, complex(0, -0.5), true)
	}
	return polForm{}, fmt.Errorf("%w: polarization %s is not recorded", ErrStateRequired, pol)
}

/* install a new polarization/channel-range selection --------------------------
* In multi-model mode the resident selection's model is first recorded in the
* per-selection model table and the target selection's model installed.
*-----------------------------------------------------------------------------*/
func (ob *Observation) Select(pol Stokes, cl []ChanRange) error {
	if err := ob.needData("select"); err != nil {
		return err
	}
	ranges, err := CanonRanges(cl, ob.NIF*ob.NChan)
	if err != nil {
		return err
	}
	if _, err = ob.formOf(pol); err != nil {
		Lprnterr("select: %v\n", err)
		return err
	}
	/* swap models between the table and the observation */
	if ob.Multi && ob.Stream.Set {
		ob.Mtab.Record(ob.Stream.Pol, ob.Stream.CL, ob.Model, ob.Newmod)
	}
	ob.Stream = Stream{Pol: pol, CL: ranges, Set: true}
	/* per-selection scale from light seconds to wavelengths */
	ob.Stream.UVScale = make([]float64, ob.NIF)
	for cif := 0; cif < ob.NIF; cif++ {
		chans := ob.ifChans(cif)
		if len(chans) == 0 {
			ob.Stream.UVScale[cif] = 0.0
			continue
		}
		var f float64
		for _, c := range chans {
			f += ob.IFs[cif].Freq + float64(c)*ob.IFs[cif].DF
		}
		ob.Stream.UVScale[cif] = f / float64(len(chans))
	}
	if ob.Multi {
		ob.Model, ob.Newmod = ob.Mtab.Install(pol, ranges)
	}
	ob.MarkDirty(false)
	Lprintf("Selecting polarization: %s,  channels: %s\n", pol, rangesString(ranges))
	return nil
}

func rangesString(cl []ChanRange) string {
	s := ""
	for i, r := range cl {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d..%d", r.Ca+1, r.Cb+1)
	}
	return s
}

/* iterate over the IFs that the current selection samples ---------------------
* args   : int  cur         I   current IF (-1 to start)
*          bool forward     I   direction of iteration
*          bool sampledOnly I   skip IFs with no unflagged visibility
* return : next IF index or -1 when exhausted
*-----------------------------------------------------------------------------*/
func (ob *Observation) NextIF(cur int, forward, sampledOnly bool) int {
	step := 1
	if !forward {
		step = -1
	}
	cif := cur + step
	if cur < 0 && !forward {
		cif = ob.NIF - 1
	}
	for ; cif >= 0 && cif < ob.NIF; cif += step {
		if ob.Stream.UVScale[cif] <= 0.0 {
			continue
		}
		if !sampledOnly || ob.ifSampled(cif) {
			return cif
		}
	}
	return -1
}

/* true if at least one selected unflagged sample exists in the IF ------------*/
func (ob *Observation) ifSampled(cif int) bool {
	chans := ob.ifChans(cif)
	if len(chans) == 0 {
		return false
	}
	for _, sub := range ob.Sub {
		for t := range sub.Integ {
			integ := &sub.Integ[t]
			for b := range sub.Base {
				for _, c := range chans {
					for p := 0; p < sub.npol; p++ {
						if integ.Dat[sub.Dindex(b, cif, c, p)].Wt > 0.0 {
							return true
						}
					}
				}
			}
		}
	}
	return false
}

/* the visibilities of one IF of the current stream ---------------------------*/
type IFData struct {
	CIF     int
	Freq    float64 /* mean selected frequency (Hz) */
	UVScale float64 /* light seconds to wavelengths */
	Sub     []SubVis
}

type SubVis struct {
	Integ [][]Visibility /* [integration][baseline] */
}

/* form the stream visibilities of one IF --------------------------------------
* This is the single point of I/O amplification - callers loop over IFs via
* NextIF. Selected channels are coherently averaged, corrections and the
* accumulated phase centre shift applied, and the current model evaluated.
*-----------------------------------------------------------------------------*/
func (ob *Observation) GetIF(cif int) (*IFData, error) {
	if err := ob.needSelect("getif"); err != nil {
		return nil, err
	}
	if cif < 0 || cif >= ob.NIF {
		return nil, fmt.Errorf("%w: IF %d", ErrOutOfRange, cif+1)
	}
	form, err := ob.formOf(ob.Stream.Pol)
	if err != nil {
		return nil, err
	}
	uvscale := ob.Stream.UVScale[cif]
	if uvscale <= 0.0 {
		return nil, fmt.Errorf("%w: IF %d has no selected channels", ErrStateRequired, cif+1)
	}
	chans := ob.ifChans(cif)
	dat := &IFData{CIF: cif, Freq: uvscale, UVScale: uvscale}
	dat.Sub = make([]SubVis, len(ob.Sub))

	mod := ob.mergedModel()

	for isub, sub := range ob.Sub {
		sv := &dat.Sub[isub]
		sv.Integ = make([][]Visibility, len(sub.Integ))
		for t := range sub.Integ {
			integ := &sub.Integ[t]
			sv.Integ[t] = make([]Visibility, len(sub.Base))
			for b, base := range sub.Base {
				vis := &sv.Integ[t][b]
				/* coherent average of the selected channels */
				var sre, sim, swt float64
				for _, c := range chans {
					re, im, wt := formCvis(sub, integ, b, cif, c, form)
					if wt <= 0.0 {
						continue
					}
					sre += re * wt
					sim += im * wt
					swt += wt
				}
				u := integ.UVW[b].U * uvscale
				v := integ.UVW[b].V * uvscale
				w := integ.UVW[b].W * uvscale
				vis.U, vis.V, vis.W = u, v, w
				if swt <= 0.0 {
					vis.Bad = true
					vis.Wt = -1.0
					continue
				}
				z := complex(sre/swt, sim/swt)
				/* antenna and baseline corrections */
				ga := integ.Tcor[cif][base.TelA]
				gb := integ.Tcor[cif][base.TelB]
				bc := sub.Bcor[cif][b]
				if ga.Bad || gb.Bad {
					vis.Bad = true
					vis.Wt = -swt
					continue
				}
				z *= AmpPhs(ga.Amp*gb.Amp*bc.Amp, ga.Phs-gb.Phs+bc.Phs)
				/* accumulated phase centre shift */
				if ob.Geom.East != 0.0 || ob.Geom.North != 0.0 {
					z *= AmpPhs(1.0, -TWOPI*(u*ob.Geom.East+v*ob.Geom.North))
				}
				vis.Amp = math.Hypot(real(z), imag(z))
				vis.Phs = math.Atan2(imag(z), real(z))
				vis.Wt = swt
				/* evaluate the established (+continuum) model */
				if len(mod) > 0 {
					mv := ModVis(mod, u, v, uvscale)
					vis.ModAmp = math.Hypot(real(mv), imag(mv))
					vis.ModPhs = math.Atan2(imag(mv), real(mv))
				}
			}
		}
	}
	return dat, nil
}

/* the established model sets of the current selection. Tentative components
 * are only seen by the stream once Keep has established them. */
func (ob *Observation) mergedModel() []Modcmp {
	var all []Modcmp
	for _, m := range []*Model{ob.Model, ob.Cmod} {
		if m != nil {
			all = append(all, m.Cmp...)
		}
	}
	return all
}

/* form one correlation of the requested polarization -------------------------*/
func formCvis(sub *Subarray, integ *Integration, base, cif, ch int, form polForm) (re, im, wt float64) {
	va := integ.Dat[sub.Dindex(base, cif, ch, form.pa)]
	if form.pb < 0 {
		if va.Wt <= 0.0 {
			return 0, 0, float64(va.Wt)
		}
		z := complex(float64(va.Re), float64(va.Im)) * form.scale
		return real(z), imag(z), float64(va.Wt)
	}
	vb := integ.Dat[sub.Dindex(base, cif, ch, form.pb)]
	if va.Wt <= 0.0 || vb.Wt <= 0.0 {
		return 0, 0, -1.0
	}
	za := complex(float64(va.Re), float64(va.Im))
	zb := complex(float64(vb.Re), float64(vb.Im))
	var z complex128
	if form.diff {
		z = (za - zb) * form.scale
	} else {
		z = (za + zb) * form.scale
	}
	/* variance of the half sum of two samples */
	wa, wb := float64(va.Wt), float64(vb.Wt)
	return real(z), imag(z), 4.0 * wa * wb / (wa + wb)
}
