/*------------------------------------------------------------------------------
* edit.go : cursor driven flagging with buffered application
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/24 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
)

/* one buffered edit intent. Scopes form a cross product: all IFs or the
 * current IF, all channels or the selected channels, one baseline or the
 * whole integration, one integration or the whole time range. */
type edOp struct {
	isub   int  /* sub-array index */
	iteg   int  /* integration index */
	base   int  /* baseline index */
	cif    int  /* IF the edit was made in */
	flag   bool /* flag (true) or unflag */
	doAll  bool /* apply to all IFs rather than cif only */
	doChan bool /* apply to the selected channels only */
	doTime bool /* apply to this integration only */
	doBase bool /* apply to this baseline only */
}

/* record a cursor edit against one visibility ---------------------------------
* args   : int isub,iteg    I   sub-array and integration indexes
*          int cif          I   IF of the plot the edit was made in
*          bool flag        I   flag or unflag
*          bool doAll       I   all IFs (false: cif only)
*          bool doTime      I   this integration only (false: all times)
*          bool doChan      I   selected channels only (false: all channels)
*          bool doBase      I   this baseline only (false: whole integration)
*          int base         I   baseline index
* notes  : edits are buffered until EdFlush so that a plot session can be
*          cancelled without touching the store
*-----------------------------------------------------------------------------*/
func (ob *Observation) EdInteg(isub, iteg, cif int, flag, doAll, doTime, doChan, doBase bool, base int) error {
	if err := ob.needData("edit"); err != nil {
		return err
	}
	if isub < 0 || isub >= len(ob.Sub) {
		return fmt.Errorf("%w: sub-array %d", ErrOutOfRange, isub+1)
	}
	sub := ob.Sub[isub]
	if iteg < 0 || iteg >= len(sub.Integ) {
		return fmt.Errorf("%w: integration %d", ErrOutOfRange, iteg+1)
	}
	if doBase && (base < 0 || base >= len(sub.Base)) {
		return fmt.Errorf("%w: baseline %d", ErrOutOfRange, base+1)
	}
	if !doAll && (cif < 0 || cif >= ob.NIF) {
		return fmt.Errorf("%w: IF %d", ErrOutOfRange, cif+1)
	}
	ob.edits = append(ob.edits, edOp{
		isub: isub, iteg: iteg, base: base, cif: cif, flag: flag,
		doAll: doAll, doTime: doTime, doChan: doChan, doBase: doBase,
	})
	return nil
}

/* apply all buffered edits -----------------------------------------------------
* A flag negates the stored weight magnitude and an unflag restores it, so a
* flag/unflag pair leaves the store bit-identical. The map is stamped stale
* and, because flags alter the weights, the beam too.
*-----------------------------------------------------------------------------*/
func (ob *Observation) EdFlush() int {
	nvis := 0
	for _, op := range ob.edits {
		nvis += ob.applyEdit(&op)
	}
	ob.edits = ob.edits[:0]
	if nvis > 0 {
		ob.Modified = true
		ob.MarkDirty(true)
	}
	return nvis
}

/* discard buffered edits without applying them -------------------------------*/
func (ob *Observation) EdCancel() {
	ob.edits = ob.edits[:0]
}

func (ob *Observation) applyEdit(op *edOp) int {
	sub := ob.Sub[op.isub]
	t0, t1 := 0, len(sub.Integ)-1
	if op.doTime {
		t0, t1 = op.iteg, op.iteg
	}
	b0, b1 := 0, len(sub.Base)-1
	if op.doBase {
		b0, b1 = op.base, op.base
	}
	n := 0
	for t := t0; t <= t1; t++ {
		integ := &sub.Integ[t]
		for b := b0; b <= b1; b++ {
			for cif := 0; cif < ob.NIF; cif++ {
				if !op.doAll && cif != op.cif {
					continue
				}
				var chans []int
				if op.doChan {
					chans = ob.ifChans(cif)
				} else {
					chans = make([]int, ob.NChan)
					for c := range chans {
						chans[c] = c
					}
				}
				for _, c := range chans {
					for p := 0; p < sub.npol; p++ {
						dv := &integ.Dat[sub.Dindex(b, cif, c, p)]
						w := float64(dv.Wt)
						if w == 0.0 {
							continue
						}
						if op.flag {
							dv.Wt = float32(-math.Abs(w))
						} else {
							dv.Wt = float32(math.Abs(w))
						}
						n++
					}
				}
			}
		}
	}
	return n
}

/* command level flag/unflag of matching baselines ------------------------------
* args   : string spec      I   baseline selection ("", "A" or "A-B")
*          bool flag        I   flag or unflag
*          bool allChans    I   all channels (false: selected channels only)
*          float64 t0,t1    I   time range (s, t1<=0: whole range)
*-----------------------------------------------------------------------------*/
func (ob *Observation) EditBaselines(spec string, flag, allChans bool, t0, t1 float64) (int, error) {
	if err := ob.needData("flag"); err != nil {
		return 0, err
	}
	bs, err := ParseBaseSpec(spec)
	if err != nil {
		return 0, err
	}
	for isub, sub := range ob.Sub {
		for t := range sub.Integ {
			ut := sub.Integ[t].UT
			if t1 > 0.0 && (ut < t0 || ut > t1) {
				continue
			}
			for b := range sub.Base {
				if !bs.Matches(sub, b) {
					continue
				}
				ob.edits = append(ob.edits, edOp{
					isub: isub, iteg: t, base: b, flag: flag,
					doAll: true, doTime: true, doChan: !allChans, doBase: true,
				})
			}
		}
	}
	n := ob.EdFlush()
	verb := "flag"
	if !flag {
		verb = "unflag"
	}
	Lprintf("%s: edited %d correlations\n", verb, n)
	return n, nil
}
