/*------------------------------------------------------------------------------
* restore.go : model restoration with a clean beam
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/20 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
)

/* a radial primary beam description registered for the array antennas --------*/
type AntennaBeam struct {
	Dr      float64   /* radial sample spacing (rad) */
	Factor  []float64 /* beam factor samples, Factor[0]=1 at the pointing centre */
	Cutoff  float64   /* factors below this are treated as zero coverage */
}

/* register an antenna primary beam description -------------------------------*/
func (ob *Observation) SetAntennaBeam(dr float64, factor []float64, cutoff float64) error {
	if dr <= 0.0 || len(factor) < 2 {
		return fmt.Errorf("%w: bad primary beam description", ErrOutOfRange)
	}
	ob.AntBeam = &AntennaBeam{Dr: dr, Factor: append([]float64(nil), factor...), Cutoff: cutoff}
	return nil
}

/* the beam factor at a radial offset from the pointing centre ----------------*/
func (ab *AntennaBeam) FactorAt(r float64) float64 {
	if ab == nil {
		return 1.0
	}
	p := r / ab.Dr
	i := int(p)
	if i >= len(ab.Factor)-1 {
		return ab.Factor[len(ab.Factor)-1]
	}
	f := ab.Factor[i] + (p-float64(i))*(ab.Factor[i+1]-ab.Factor[i])
	if f < ab.Cutoff {
		return 0.0
	}
	return f
}

/* restore the model over the residual map -------------------------------------
* args   : *Observation ob  I   the observation
*          *MapBeam mb      IO  grid holding a fresh residual map
*          bmin,bmaj        I   clean beam extents (rad, <=0: use the estimate)
*          bpa              I   clean beam position angle (rad)
*          noresid          I   clear the residual map before restoring
*          dosm             I   smooth residuals by the clean beam first
*          *Abort abort     I   driver abort signal (may be nil)
* notes  : the established model is restored over the (optionally smoothed)
*          residuals, then the tentative model with smoothing already done.
*          When an antenna beam is registered each component amplitude is
*          rescaled by the primary beam factor at its offset.
*-----------------------------------------------------------------------------*/
func Restore(ob *Observation, mb *MapBeam, bmin, bmaj, bpa float64, noresid, dosm bool, abort *Abort) error {
	if err := needMap("restore", mb); err != nil {
		return err
	}
	if err := ob.needSelect("restore"); err != nil {
		return err
	}
	if !mb.MapFresh(ob) {
		Lprnterr("restore: the map is stale - run invert first\n")
		return fmt.Errorf("%w: restore needs a fresh inversion", ErrStateRequired)
	}
	if bmaj <= 0.0 {
		bmin, bmaj, bpa = mb.EBmin, mb.EBmaj, mb.EBpa
	}
	if bmin <= 0.0 || bmaj < bmin {
		return fmt.Errorf("%w: bad restoring beam %g x %g", ErrOutOfRange, bmin, bmaj)
	}
	u := DefaultUnits()
	Lprintf("Restoring with beam: %.4g x %.4g at %.4g degrees (North through East)\n",
		u.RadToXY(bmin), u.RadToXY(bmaj), bpa*R2D)

	if noresid {
		for i := range mb.Map {
			mb.Map[i] = 0.0
		}
	} else if dosm {
		if err := mb.smoothResiduals(bmin, bmaj, bpa, abort); err != nil {
			return err
		}
	}
	/* established first, then the tentative components (residual smoothing is
	 * already done, so both passes only accumulate analytic beam shapes) */
	for _, m := range []*Model{ob.Model, ob.Cmod, ob.Newmod, ob.Cnewmod} {
		if m == nil {
			continue
		}
		for i := range m.Cmp {
			if abort.Raised() {
				return fmt.Errorf("%w: restore", ErrAborted)
			}
			mb.addRestoredCmp(ob, &m.Cmp[i], bmin, bmaj, bpa)
		}
	}
	mb.DoMap = MapRestored
	mb.Stats()
	return nil
}

/* accumulate one component convolved with the clean beam ---------------------*/
func (mb *MapBeam) addRestoredCmp(ob *Observation, cmp *Modcmp, bmin, bmaj, bpa float64) {
	/* covariance of the clean beam */
	sa, sb := fwhmToSigma(bmaj), fwhmToSigma(bmin)
	sphi, cphi := math.Sincos(bpa)
	/* axes: a along (sin,cos) of the position angle */
	cxx := SQR(sa)*SQR(sphi) + SQR(sb)*SQR(cphi)
	cyy := SQR(sa)*SQR(cphi) + SQR(sb)*SQR(sphi)
	cxy := (SQR(sa) - SQR(sb)) * sphi * cphi
	/* an extended component adds its own covariance. Non-gaussian extended
	 * shapes are restored as gaussians of the same extent. */
	if cmp.Type != DeltaCmp && cmp.Major > 0.0 {
		ra := cmp.Ratio
		if ra <= 0.0 {
			ra = 1.0
		}
		ga, gb := fwhmToSigma(cmp.Major), fwhmToSigma(cmp.Major*ra)
		gs, gc := math.Sincos(cmp.Phi)
		cxx += SQR(ga)*SQR(gs) + SQR(gb)*SQR(gc)
		cyy += SQR(ga)*SQR(gc) + SQR(gb)*SQR(gs)
		cxy += (SQR(ga) - SQR(gb)) * gs * gc
	}
	det := cxx*cyy - cxy*cxy
	if det <= 0.0 {
		return
	}
	/* peak in Jy/beam: flux scaled by the beam to combined area ratio */
	peak := cmp.Flux * math.Sqrt(SQR(fwhmToSigma(bmaj))*SQR(fwhmToSigma(bmin))/det)
	/* primary beam correction at the component offset */
	if ob.AntBeam != nil {
		peak *= ob.AntBeam.FactorAt(math.Hypot(cmp.X, cmp.Y))
	}
	/* inverse covariance for the pixel loop */
	ixx := cyy / det
	iyy := cxx / det
	ixy := -cxy / det
	/* bound the loop at 5 sigma of the larger axis */
	ext := 5.0 * math.Sqrt(math.Max(cxx, cyy))
	ix0 := mb.XToPix(cmp.X - ext)
	ix1 := mb.XToPix(cmp.X + ext)
	iy0 := mb.YToPix(cmp.Y - ext)
	iy1 := mb.YToPix(cmp.Y + ext)
	if ix0 < 0 {
		ix0 = 0
	}
	if ix1 >= mb.Nx {
		ix1 = mb.Nx - 1
	}
	if iy0 < 0 {
		iy0 = 0
	}
	if iy1 >= mb.Ny {
		iy1 = mb.Ny - 1
	}
	for iy := iy0; iy <= iy1; iy++ {
		dy := mb.PixToY(iy) - cmp.Y
		for ix := ix0; ix <= ix1; ix++ {
			dx := mb.PixToX(ix) - cmp.X
			arg := 0.5 * (ixx*dx*dx + 2.0*ixy*dx*dy + iyy*dy*dy)
			if arg > 40.0 {
				continue
			}
			mb.Map[ix+iy*mb.Nx] += float32(peak * math.Exp(-arg))
		}
	}
}

func fwhmToSigma(fwhm float64) float64 {
	return fwhm / (2.0 * math.Sqrt(2.0*math.Ln2))
}

/* smooth the residual map to the target clean beam via the UV plane ----------*/
func (mb *MapBeam) smoothResiduals(bmin, bmaj, bpa float64, abort *Abort) error {
	nx, ny := mb.Nx, mb.Ny
	grid := make([]complex128, nx*ny)
	for i, v := range mb.Map {
		grid[i] = complex(float64(v), 0)
	}
	/* to the UV plane */
	if err := fft2Image(grid, nx, ny, true, abort); err != nil {
		return err
	}
	norm := 1.0 / float64(nx*ny)
	du := 1.0 / (float64(nx) * mb.Xinc)
	dv := 1.0 / (float64(ny) * mb.Yinc)
	k := SQR(PI) / (4.0 * math.Ln2)
	sphi, cphi := math.Sincos(bpa)
	for iy := 0; iy < ny; iy++ {
		v := float64(iy-ny/2) * dv
		for ix := 0; ix < nx; ix++ {
			u := float64(ix-nx/2) * du
			/* UV components along and across the beam major axis */
			ua := u*sphi + v*cphi
			ub := u*cphi - v*sphi
			g := math.Exp(-k * (SQR(bmaj*ua) + SQR(bmin*ub)))
			grid[ix+iy*nx] *= complex(g*norm, 0)
		}
	}
	if err := fft2Image(grid, nx, ny, false, abort); err != nil {
		return err
	}
	for i := range mb.Map {
		mb.Map[i] = float32(real(grid[i]))
	}
	return nil
}

/* polarization side maps -------------------------------------------------------
* Fill the map margins with the polarized intensity and angle computed from
* Stokes Q and U maps of the inner quarter. The intensity occupies the upper
* margin rows and the angle the lower margin rows, both in the row-major
* order of the first margin loop of the original plotter.
*-----------------------------------------------------------------------------*/
func MakePolMap(mb *MapBeam, qmap, umap []float32, clean bool) error {
	if mb == nil || len(qmap) != mb.Nx*mb.Ny || len(umap) != mb.Nx*mb.Ny {
		return fmt.Errorf("%w: polarization maps must match the grid", ErrOutOfRange)
	}
	nx, ny := mb.Nx, mb.Ny
	ixa, ixb, iya, iyb := mb.Inner()
	/* upper margin rows hold the intensity, lower rows the angle */
	up := 3 * ny / 4
	lo := 0
	for iy := iya; iy <= iyb; iy++ {
		for ix := ixa; ix <= ixb; ix++ {
			q := float64(qmap[ix+iy*nx])
			u := float64(umap[ix+iy*nx])
			mrow := up + (iy - iya) / 2
			arow := lo + (iy - iya) / 2
			mb.Map[ix+mrow*nx] = float32(math.Hypot(q, u))
			mb.Map[ix+arow*nx] = float32(0.5 * math.Atan2(u, q))
		}
	}
	if clean {
		mb.DoMap = MapPolClean
	} else {
		mb.DoMap = MapPolResid
	}
	return nil
}
