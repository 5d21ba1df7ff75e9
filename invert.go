/*------------------------------------------------------------------------------
* invert.go : visibility gridding, FFT inversion and beam estimation
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/15 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

/* invert the selected visibilities into a dirty map and dirty beam ------------
* args   : *Observation ob  I   the observation (selection installed)
*          *MapBeam mb      IO  the grid to fill
*          *InvPar par      I   weighting and gridding controls
*          *Abort abort     I   driver abort signal (may be nil)
* return : error (ErrNoData/ErrNoMap/ErrStateRequired/ErrAborted)
* notes  : the established model is subtracted from the data before gridding,
*          so the map holds residuals. The beam is normalised to unity at its
*          centre and an elliptical gaussian fitted to the central peak.
*-----------------------------------------------------------------------------*/
func Invert(ob *Observation, mb *MapBeam, par *InvPar, abort *Abort) error {
	if err := needMap("invert", mb); err != nil {
		return err
	}
	if err := ob.needSelect("invert"); err != nil {
		return err
	}
	Trace(3, "invert: nx=%d ny=%d\n", mb.Nx, mb.Ny)
	if par == nil {
		def := DefaultInvPar()
		par = &def
	}
	uvhwhm := par.Uvhwhm
	if uvhwhm <= 0.0 {
		uvhwhm = 0.7
	}

	/* pick optimal cell sizes from the UV extent when unset */
	if mb.Xinc <= 0.0 || mb.Yinc <= 0.0 {
		umax, vmax, err := ob.uvExtent()
		if err != nil {
			return err
		}
		if mb.Xinc <= 0.0 {
			mb.Xinc = 1.0 / (4.0 * umax)
		}
		if mb.Yinc <= 0.0 {
			mb.Yinc = 1.0 / (4.0 * vmax)
		}
		Lprintf("invert: selected cell sizes %.4g x %.4g %s\n",
			DefaultUnits().RadToXY(mb.Xinc), DefaultUnits().RadToXY(mb.Yinc),
			DefaultUnits().Map.Name)
	}
	nx, ny := mb.Nx, mb.Ny
	du := 1.0 / (float64(nx) * mb.Xinc)
	dv := 1.0 / (float64(ny) * mb.Yinc)

	mgrid := make([]complex128, nx*ny)
	bgrid := make([]complex128, nx*ny)

	/* first pass for uniform weighting: per UV bin weight totals */
	var bins map[[2]int]float64
	if par.Uvbin > 0.0 {
		bins = make(map[[2]int]float64)
		if err := ob.forStream(abort, func(vis *Visibility) {
			w, ok := sampleWeight(vis, par)
			if !ok {
				return
			}
			bins[uvBinOf(vis.U, vis.V, du, dv, par.Uvbin)] += w
		}); err != nil {
			return err
		}
	}

	/* grid the weighted residual visibilities and the unit beam samples */
	var sumwt float64
	err := ob.forStream(abort, func(vis *Visibility) {
		w, ok := sampleWeight(vis, par)
		if !ok {
			return
		}
		if bins != nil {
			if tot := bins[uvBinOf(vis.U, vis.V, du, dv, par.Uvbin)]; tot > 0.0 {
				w /= tot
			}
		}
		res := AmpPhs(vis.Amp, vis.Phs) - AmpPhs(vis.ModAmp, vis.ModPhs)
		gridSample(mgrid, nx, ny, vis.U/du, vis.V/dv, res, w, uvhwhm)
		gridSample(bgrid, nx, ny, vis.U/du, vis.V/dv, 1.0, w, uvhwhm)
		sumwt += w
	})
	if err != nil {
		return err
	}

	/* the synthetic zero baseline sample */
	if par.Zwt > 0.0 {
		w := par.Zwt
		if par.Errpow != 0.0 {
			w *= math.Pow(par.Zwt, par.Errpow)
		}
		res := complex(par.Zflux, 0.0) - ModVis(ob.mergedModel(), 0.0, 0.0, ob.Stream.UVScale[0])
		gridSample(mgrid, nx, ny, 0.0, 0.0, res, w, uvhwhm)
		gridSample(bgrid, nx, ny, 0.0, 0.0, 1.0, w, uvhwhm)
		sumwt += w
	}
	if sumwt <= 0.0 {
		Lprnterr("invert: no unflagged data selected\n")
		return fmt.Errorf("%w: invert found no usable data", ErrStateRequired)
	}

	/* transform both grids to the image plane */
	if err = fft2Image(mgrid, nx, ny, false, abort); err != nil {
		return err
	}
	if err = fft2Image(bgrid, nx, ny, false, abort); err != nil {
		return err
	}

	/* gridding correction, then normalise to unit beam peak */
	cx := gridCorrection(nx, uvhwhm)
	cy := gridCorrection(ny, uvhwhm)
	bpeak := real(bgrid[nx/2+(ny/2)*nx]) / (cx[nx/2] * cy[ny/2])
	if bpeak == 0.0 {
		return fmt.Errorf("%w: degenerate beam", ErrNumeric)
	}
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			c := 1.0 / (cx[ix] * cy[iy] * bpeak)
			i := ix + iy*nx
			mb.Map[i] = float32(real(mgrid[i]) * c)
			mb.Beam[i] = float32(real(bgrid[i]) * c)
		}
	}

	/* refresh the clean beam estimate and the map statistics */
	if err = mb.fitBeam(); err != nil {
		Lprnterr("invert: %v\n", err)
	}
	mb.Stats()
	mb.Noise = 1.0 / math.Sqrt(sumwt)

	mb.DoMap = MapDirty
	mb.DoBeam = BeamReady
	mb.MapGen = ob.DataGen()
	mb.BeamGen = ob.WtGen()

	u := DefaultUnits()
	Lprintf("Inverting map and beam \n")
	Lprintf("Estimated beam: bmin=%.4g %s, bmaj=%.4g %s, bpa=%.4g degrees\n",
		u.RadToXY(mb.EBmin), u.Map.Name, u.RadToXY(mb.EBmaj), u.Map.Name, mb.EBpa*R2D)
	Lprintf("Estimated noise=%.4g Jy/beam.\n", mb.Noise)
	return nil
}

/* iterate over the unflagged visibilities of every sampled IF ----------------*/
func (ob *Observation) forStream(abort *Abort, fn func(*Visibility)) error {
	for cif := ob.NextIF(-1, true, false); cif >= 0; cif = ob.NextIF(cif, true, false) {
		if abort.Raised() {
			return fmt.Errorf("%w: stream scan", ErrAborted)
		}
		dat, err := ob.GetIF(cif)
		if err != nil {
			return err
		}
		for isub := range dat.Sub {
			for t := range dat.Sub[isub].Integ {
				row := dat.Sub[isub].Integ[t]
				for b := range row {
					vis := &row[b]
					if vis.Bad || vis.Wt <= 0.0 {
						continue
					}
					fn(vis)
				}
			}
		}
	}
	return nil
}

/* the weighting pipeline of one sample. Returns false when the sample is
 * excluded by the UV range gate. */
func sampleWeight(vis *Visibility, par *InvPar) (float64, bool) {
	r := math.Hypot(vis.U, vis.V)
	if r < par.Uvmin || (par.Uvmax > 0.0 && r > par.Uvmax) {
		return 0.0, false
	}
	w := vis.Wt
	if par.Errpow != 0.0 {
		w *= math.Pow(vis.Wt, par.Errpow)
	}
	if par.Dorad {
		w *= r
	}
	if par.Gauval > 0.0 && par.Gauval < 1.0 && par.Gaurad > 0.0 {
		k := -math.Log(par.Gauval) / SQR(par.Gaurad)
		w *= math.Exp(-k * (SQR(vis.U) + SQR(vis.V)))
	}
	if w <= 0.0 {
		return 0.0, false
	}
	return w, true
}

/* the uniform weighting bin of a UV point ------------------------------------*/
func uvBinOf(u, v, du, dv, uvbin float64) [2]int {
	return [2]int{
		int(math.Floor(u / (du * uvbin))),
		int(math.Floor(v / (dv * uvbin))),
	}
}

/* deposit one sample and its conjugate through the gridding kernel -----------*/
func gridSample(grid []complex128, nx, ny int, gu, gv float64, z complex128, w, uvhwhm float64) {
	zw := z * complex(w, 0)
	depositKernel(grid, nx, ny, gu, gv, zw, uvhwhm)
	/* hermitian counterpart of the unstored conjugate baseline */
	depositKernel(grid, nx, ny, -gu, -gv, cmplxConj(zw), uvhwhm)
}

func cmplxConj(z complex128) complex128 {
	return complex(real(z), -imag(z))
}

/* separable gaussian interpolation kernel of half width uvhwhm cells ---------*/
func depositKernel(grid []complex128, nx, ny int, gu, gv float64, z complex128, uvhwhm float64) {
	sigma := uvhwhm / math.Sqrt(2.0*math.Ln2)
	nk := int(math.Ceil(2.0*uvhwhm)) + 1
	cu := gu + float64(nx)/2.0
	cv := gv + float64(ny)/2.0
	iu0 := int(math.Floor(cu))
	iv0 := int(math.Floor(cv))
	for dv := -nk; dv <= nk; dv++ {
		iv := iv0 + dv
		if iv < 0 || iv >= ny {
			continue
		}
		ky := math.Exp(-SQR(float64(iv)-cv) / (2.0 * SQR(sigma)))
		for duu := -nk; duu <= nk; duu++ {
			iu := iu0 + duu
			if iu < 0 || iu >= nx {
				continue
			}
			kx := math.Exp(-SQR(float64(iu)-cu) / (2.0 * SQR(sigma)))
			grid[iu+iv*nx] += z * complex(kx*ky, 0)
		}
	}
}

/* image plane taper of the gridding kernel along one axis --------------------*/
func gridCorrection(n int, uvhwhm float64) []float64 {
	sigma := uvhwhm / math.Sqrt(2.0*math.Ln2)
	nk := int(math.Ceil(2.0*uvhwhm)) + 1
	c := make([]float64, n)
	for p := 0; p < n; p++ {
		x := float64(p-n/2) / float64(n)
		s := 0.0
		for d := -nk; d <= nk; d++ {
			s += math.Exp(-SQR(float64(d))/(2.0*SQR(sigma))) * math.Cos(TWOPI*float64(d)*x)
		}
		c[p] = s
	}
	return c
}

/* 2-D transform between the UV grid and the image plane, both with their
 * origin at (nx/2,ny/2). fwd=false is the UV-to-image direction used by
 * inversion; fwd=true is its unnormalised inverse. Works in place. */
func fft2Image(grid []complex128, nx, ny int, fwd bool, abort *Abort) error {
	/* fold the origin shifts of both planes into checkerboard signs */
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			if (ix+iy)&1 != 0 {
				grid[ix+iy*nx] = -grid[ix+iy*nx]
			}
		}
	}
	fx := fourier.NewCmplxFFT(nx)
	row := make([]complex128, nx)
	for iy := 0; iy < ny; iy++ {
		if iy%64 == 0 && abort.Raised() {
			return fmt.Errorf("%w: fft", ErrAborted)
		}
		copy(row, grid[iy*nx:(iy+1)*nx])
		if fwd {
			fx.Coefficients(grid[iy*nx:(iy+1)*nx], row)
		} else {
			fx.Sequence(grid[iy*nx:(iy+1)*nx], row)
		}
	}
	fy := fourier.NewCmplxFFT(ny)
	col := make([]complex128, ny)
	out := make([]complex128, ny)
	for ix := 0; ix < nx; ix++ {
		if ix%64 == 0 && abort.Raised() {
			return fmt.Errorf("%w: fft", ErrAborted)
		}
		for iy := 0; iy < ny; iy++ {
			col[iy] = grid[ix+iy*nx]
		}
		if fwd {
			fy.Coefficients(out, col)
		} else {
			fy.Sequence(out, col)
		}
		for iy := 0; iy < ny; iy++ {
			grid[ix+iy*nx] = out[iy]
		}
	}
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			if (ix+iy)&1 != 0 {
				grid[ix+iy*nx] = -grid[ix+iy*nx]
			}
		}
	}
	return nil
}

/* largest |u|,|v| of the unflagged selected stream ---------------------------*/
func (ob *Observation) uvExtent() (umax, vmax float64, err error) {
	err = ob.forStream(nil, func(vis *Visibility) {
		if u := math.Abs(vis.U); u > umax {
			umax = u
		}
		if v := math.Abs(vis.V); v > vmax {
			vmax = v
		}
	})
	if err != nil {
		return
	}
	if umax <= 0.0 {
		umax = 1.0
	}
	if vmax <= 0.0 {
		vmax = umax
	}
	return
}

/* fit an elliptical gaussian to the central peak of the beam ------------------
* The pixels of the central lobe above a threshold are fitted in log space
* and the quadratic form diagonalised into (EBmin,EBmaj,EBpa).
*-----------------------------------------------------------------------------*/
func (mb *MapBeam) fitBeam() error {
	const thresh = 0.35
	nx, ny := mb.Nx, mb.Ny
	cx, cy := nx/2, ny/2

	/* collect the contiguous pixels of the central lobe */
	type pix struct {
		x, y, b float64
	}
	var pts []pix
	lim := nx / 8
	if ny/8 < lim {
		lim = ny / 8
	}
	if lim < 3 {
		lim = 3
	}
	for dy := -lim; dy <= lim; dy++ {
		for dx := -lim; dx <= lim; dx++ {
			b := float64(mb.Beam[cx+dx+(cy+dy)*nx])
			if b < thresh {
				continue
			}
			pts = append(pts, pix{x: float64(dx) * mb.Xinc, y: float64(dy) * mb.Yinc, b: b})
		}
	}
	if len(pts) < 6 {
		return fmt.Errorf("%w: too few beam pixels to fit", ErrNumeric)
	}
	/* weighted least squares of ln b = c0 - (A x^2 + B xy + C y^2) */
	n, m := 4, len(pts)
	A := Mat(n, m)
	y := Mat(m, 1)
	for i, p := range pts {
		w := p.b /* deweight the skirts of the lobe */
		A[0+i*n] = w
		A[1+i*n] = -w * p.x * p.x
		A[2+i*n] = -w * p.x * p.y
		A[3+i*n] = -w * p.y * p.y
		y[i] = w * math.Log(p.b)
	}
	x := Mat(n, 1)
	Q := Mat(n, n)
	if LSQ(A, y, n, m, x, Q) != 0 {
		return fmt.Errorf("%w: singular beam fit", ErrNumeric)
	}
	qa, qb, qc := x[1], x[2]/2.0, x[3]
	/* eigenvalues of [[qa qb][qb qc]] */
	tr := qa + qc
	det := qa*qc - qb*qb
	disc := math.Sqrt(math.Max(0.0, tr*tr/4.0-det))
	l1 := tr/2.0 - disc /* smaller eigenvalue - major axis */
	l2 := tr/2.0 + disc
	if l1 <= 0.0 || l2 <= 0.0 {
		return fmt.Errorf("%w: beam fit is not elliptical", ErrNumeric)
	}
	mb.EBmaj = math.Sqrt(4.0 * math.Ln2 / l1)
	mb.EBmin = math.Sqrt(4.0 * math.Ln2 / l2)
	/* eigenvector of l1: (qb, l1-qa); position angle north through east */
	var ex, ey float64
	if math.Abs(qb) > 1e-30 {
		ex, ey = qb, l1-qa
	} else if qa <= qc {
		ex, ey = 1.0, 0.0
	} else {
		ex, ey = 0.0, 1.0
	}
	pa := math.Atan2(ex, ey)
	/* fold into (-pi/2, pi/2] */
	for pa > HALFPI {
		pa -= PI
	}
	for pa <= -HALFPI {
		pa += PI
	}
	mb.EBpa = pa
	return nil
}

/* recompute the statistics of the displayable area ---------------------------*/
func (mb *MapBeam) Stats() {
	ixa, ixb, iya, iyb := mb.Inner()
	var sum, sumsq float64
	npix := 0
	mb.Maxpix = MapPix{Value: math.Inf(-1)}
	mb.Minpix = MapPix{Value: math.Inf(1)}
	for iy := iya; iy <= iyb; iy++ {
		for ix := ixa; ix <= ixb; ix++ {
			v := float64(mb.Map[ix+iy*mb.Nx])
			sum += v
			sumsq += v * v
			npix++
			if v > mb.Maxpix.Value {
				mb.Maxpix = MapPix{Value: v, Ix: ix, Iy: iy, X: mb.PixToX(ix), Y: mb.PixToY(iy)}
			}
			if v < mb.Minpix.Value {
				mb.Minpix = MapPix{Value: v, Ix: ix, Iy: iy, X: mb.PixToX(ix), Y: mb.PixToY(iy)}
			}
		}
	}
	if npix > 0 {
		mb.Mapmean = sum / float64(npix)
		mb.Maprms = math.Sqrt(sumsq / float64(npix))
	}
}
