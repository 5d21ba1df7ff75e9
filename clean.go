/*------------------------------------------------------------------------------
* clean.go : iterative CLEAN deconvolution
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/18 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
)

/* the outcome of one clean run -----------------------------------------------*/
type CleanReport struct {
	Niter   int     /* iterations performed */
	Flux    float64 /* flux subtracted into new components */
	Final   float64 /* last residual peak (Jy/beam) */
	Reached bool    /* true when the cutoff stopped the loop */
}

/* deconvolve the residual map into tentative delta components -----------------
* args   : *Observation ob  I   the observation
*          *MapBeam mb      IO  fresh dirty map and beam
*          *Winlist wl      I   clean windows (nil or empty: whole inner area)
*          *Clnpar par      I   niter, gain and cutoff
*          *Abort abort     I   driver abort signal (may be nil)
* return : report, error
* notes  : each iteration records a delta of gain*peak at the residual peak
*          inside the window union and subtracts the shifted scaled beam.
*-----------------------------------------------------------------------------*/
func Clean(ob *Observation, mb *MapBeam, wl *Winlist, par *Clnpar, abort *Abort) (*CleanReport, error) {
	if err := needMap("clean", mb); err != nil {
		return nil, err
	}
	if err := ob.needSelect("clean"); err != nil {
		return nil, err
	}
	if !mb.MapFresh(ob) {
		Lprnterr("clean: the map is stale - run invert first\n")
		return nil, fmt.Errorf("%w: clean needs a fresh inversion", ErrStateRequired)
	}
	if mb.DoBeam != BeamReady {
		Lprnterr("clean: no dirty beam is available\n")
		return nil, fmt.Errorf("%w: clean needs a dirty beam", ErrStateRequired)
	}
	if mb.DoMap != MapDirty {
		/* a restored map reverts to the residual only through invert */
		Lprnterr("clean: the map does not hold residuals - run invert first\n")
		return nil, fmt.Errorf("%w: clean needs a dirty map", ErrStateRequired)
	}
	if par.Gain <= 0.0 || par.Gain >= 1.0 {
		return nil, fmt.Errorf("%w: clean gain %g outside (0,1)", ErrOutOfRange, par.Gain)
	}
	if par.Cutoff < 0.0 {
		return nil, fmt.Errorf("%w: negative clean cutoff", ErrOutOfRange)
	}
	if par.Niter < 1 || par.Niter > MAXNITER {
		return nil, fmt.Errorf("%w: clean niter %d", ErrOutOfRange, par.Niter)
	}
	Lprintf("clean: niter=%d  gain=%g  cutoff=%g\n", par.Niter, par.Gain, par.Cutoff)

	nx := mb.Nx
	cx, cy := mb.Nx/2, mb.Ny/2
	rep := &CleanReport{}
	for iter := 0; iter < par.Niter; iter++ {
		if abort.Raised() {
			return rep, fmt.Errorf("%w: clean at iteration %d", ErrAborted, iter)
		}
		px, py, peak, ok := mb.residualPeak(wl, true)
		if !ok {
			Lprnterr("clean: no pixels lie within the clean windows\n")
			return rep, fmt.Errorf("%w: empty window search area", ErrStateRequired)
		}
		rep.Final = peak
		if par.Cutoff > 0.0 && math.Abs(peak) < par.Cutoff {
			rep.Reached = true
			break
		}
		flux := par.Gain * peak
		ob.Newmod.Add(Modcmp{
			Type: DeltaCmp, Flux: flux,
			X: mb.PixToX(px), Y: mb.PixToY(py),
			Ratio: 1.0, Freepar: FreeFlux | FreeCent,
		})
		/* subtract the beam centred exactly on the peak pixel */
		for iy := 0; iy < mb.Ny; iy++ {
			by := iy - py + cy
			if by < 0 || by >= mb.Ny {
				continue
			}
			for ix := 0; ix < nx; ix++ {
				bx := ix - px + cx
				if bx < 0 || bx >= nx {
					continue
				}
				mb.Map[ix+iy*nx] -= float32(flux) * mb.Beam[bx+by*nx]
			}
		}
		rep.Niter++
		rep.Flux += flux
	}
	mb.Stats()
	Lprintf("Total flux subtracted in %d components = %g Jy\n", rep.Niter, rep.Flux)
	Lprintf("Combined flux in latest and established models = %g Jy\n",
		ob.Newmod.Flux+ob.Model.Flux)
	return rep, nil
}

/* locate the peak |pixel| inside the window union of the displayable area ----
* Ties resolve to the first pixel in scanning order. When the window list is
* empty the whole inner quarter is searched.
*-----------------------------------------------------------------------------*/
func (mb *MapBeam) residualPeak(wl *Winlist, doabs bool) (px, py int, peak float64, ok bool) {
	ixa, ixb, iya, iyb := mb.Inner()
	best := -1.0
	for iy := iya; iy <= iyb; iy++ {
		y := mb.PixToY(iy)
		for ix := ixa; ix <= ixb; ix++ {
			if wl.Nwin() > 0 && !wl.Contains(mb.PixToX(ix), y) {
				continue
			}
			v := float64(mb.Map[ix+iy*mb.Nx])
			a := v
			if doabs {
				a = math.Abs(v)
			}
			if a > best {
				best = a
				px, py, peak = ix, iy, v
				ok = true
			}
		}
	}
	return
}

/* auto-create a clean window centred on the residual peak ----------------------
* args   : float64 size     I   window half width in clean beam FWHMs
*          bool doabs       I   search the absolute residual peak
* return : true when a window was added (the peak was not already covered)
*-----------------------------------------------------------------------------*/
func Peakwin(ob *Observation, mb *MapBeam, wl *Winlist, size float64, doabs bool) (bool, error) {
	if err := needMap("peakwin", mb); err != nil {
		return false, err
	}
	if !mb.MapFresh(ob) {
		return false, fmt.Errorf("%w: peakwin needs a fresh inversion", ErrStateRequired)
	}
	if size <= 0.0 {
		size = 1.0
	}
	px, py, _, ok := mb.residualPeak(nil, doabs)
	if !ok {
		return false, fmt.Errorf("%w: empty map", ErrStateRequired)
	}
	x, y := mb.PixToX(px), mb.PixToY(py)
	if wl.Contains(x, y) {
		return false, nil
	}
	/* bounding half-widths of the clean beam ellipse scaled by size */
	sphi, cphi := math.Sincos(mb.EBpa)
	hx := size * math.Hypot(mb.EBmaj*sphi, mb.EBmin*cphi)
	hy := size * math.Hypot(mb.EBmaj*cphi, mb.EBmin*sphi)
	wl.Add(x-hx, x+hx, y-hy, y+hy)
	u := DefaultUnits()
	Lprintf("Added a window around map position (%.4g, %.4g) %s.\n",
		u.RadToXY(x), u.RadToXY(y), u.Map.Name)
	return true, nil
}
