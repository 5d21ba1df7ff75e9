/*------------------------------------------------------------------------------
* shift.go : phase centre shifts
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/27 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
)

/* shift the phase centre of data, models and windows ---------------------------
* args   : *Winlist wl      I   windows to move with the frame (may be nil)
*          float64 east     I   eastward shift (rad)
*          float64 north    I   northward shift (rad)
* notes  : the data phases are rotated lazily through the accumulated Geom
*          offset at stream read time, so a shift and its inverse restore the
*          store exactly.
*-----------------------------------------------------------------------------*/
func (ob *Observation) Shift(wl *Winlist, east, north float64) error {
	if err := ob.needData("shift"); err != nil {
		return err
	}
	ob.Geom.East += east
	ob.Geom.North += north
	for _, m := range []*Model{ob.Model, ob.Newmod, ob.Cmod, ob.Cnewmod} {
		if m != nil {
			m.Shift(east, north)
		}
	}
	if wl != nil {
		wl.Shift(east, north)
	}
	ob.MarkDirty(false)
	u := DefaultUnits()
	Lprintf("shift: moved the image centre by %.4g, %.4g %s\n",
		u.RadToXY(-east), u.RadToXY(-north), u.Map.Name)
	return nil
}

/* undo all accumulated shifts ------------------------------------------------*/
func (ob *Observation) Unshift(wl *Winlist) error {
	if err := ob.needData("unshift"); err != nil {
		return err
	}
	return ob.Shift(wl, -ob.Geom.East, -ob.Geom.North)
}

/* shift so that the given coordinates land on the map origin -------------------
* The target is projected about the unshifted phase centre, the accumulated
* offset subtracted and the negated residual handed to Shift. The sign is
* surprising but deliberate: the source moves to the origin, the phase
* centre annotation to the target.
*-----------------------------------------------------------------------------*/
func (ob *Observation) ShiftTo(wl *Winlist, ra, dec float64) error {
	if err := ob.needData("shiftto"); err != nil {
		return err
	}
	l, m, err := ob.Proj.Forward(ra, dec, ob.RA, ob.Dec)
	if err != nil {
		return err
	}
	dx := l - (-ob.Geom.East)
	dy := m - (-ob.Geom.North)
	return ob.Shift(wl, -dx, -dy)
}

/* the sky coordinates of a map position in the shifted frame -----------------*/
func (ob *Observation) MapToSky(x, y float64) (ra, dec float64, err error) {
	return ob.Proj.Inverse(x-ob.Geom.East, y-ob.Geom.North, ob.RA, ob.Dec)
}

/* the map position of sky coordinates in the shifted frame -------------------*/
func (ob *Observation) SkyToMap(ra, dec float64) (x, y float64, err error) {
	l, m, err := ob.Proj.Forward(ra, dec, ob.RA, ob.Dec)
	if err != nil {
		return 0, 0, err
	}
	return l + ob.Geom.East, m + ob.Geom.North, nil
}

/* report the accumulated shift in user units ---------------------------------*/
func (ob *Observation) ShiftReport(u *SkyUnits) string {
	if u == nil {
		u = DefaultUnits()
	}
	return fmt.Sprintf("Accumulated eastward shift = %.6g %s, northward shift = %.6g %s",
		u.RadToXY(ob.Geom.East), u.Map.Name, u.RadToXY(ob.Geom.North), u.Map.Name)
}
