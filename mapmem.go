/*------------------------------------------------------------------------------
* mapmem.go : the map/beam grid and its staleness state machine
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/12 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
)

/* what the map array currently holds -----------------------------------------*/
type MapState int

const (
	MapStale    MapState = iota /* nothing usable - invert required */
	MapDirty                    /* residual (dirty) map */
	MapRestored                 /* clean restored map */
	MapPolResid                 /* polarized intensity over the residual map */
	MapPolClean                 /* polarized intensity over the restored map */
)

func (s MapState) String() string {
	switch s {
	case MapDirty:
		return "dirty map"
	case MapRestored:
		return "restored map"
	case MapPolResid:
		return "polarized residual map"
	case MapPolClean:
		return "polarized restored map"
	}
	return "stale"
}

/* what the beam array currently holds ----------------------------------------*/
type BeamState int

const (
	BeamStale BeamState = iota
	BeamReady
)

/* a pixel of interest with its value and map coordinates ---------------------*/
type MapPix struct {
	Value  float64
	Ix, Iy int     /* pixel indexes */
	X, Y   float64 /* map coordinates (rad) */
}

/* the map and beam grids. Both arrays are nx*ny (power of two on each axis)
 * sharing the cell sizes. The significant region is the inner nx/2 x ny/2;
 * the margins are scratch space for the oversized FFT and for the
 * polarization side-maps of the restorer. */
type MapBeam struct {
	Nx, Ny     int
	Xinc, Yinc float64   /* cell sizes (rad/pixel, 0 = pick from UV extent) */
	Map        []float32 /* the map array */
	Beam       []float32 /* the beam array */

	DoMap  MapState
	DoBeam BeamState
	MapGen  int /* observation generation the map was computed from */
	BeamGen int /* weight generation the beam was computed from */

	EBmin, EBmaj float64 /* estimated clean beam extents (rad) */
	EBpa         float64 /* estimated clean beam position angle (rad) */

	Maprms, Mapmean float64 /* statistics of the displayable area */
	Maxpix, Minpix  MapPix
	Noise           float64 /* estimated map noise (Jy/beam) */
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

/* allocate or resize the map and beam grids -----------------------------------
* args   : int nx,ny            I   grid dimensions (powers of two)
*          float64 xinc,yinc    I   cell sizes (rad, 0 = pick from UV extent)
* return : grid, or error on a bad size
* notes  : resizing discards the arrays and stamps both stale
*-----------------------------------------------------------------------------*/
func NewMapBeam(nx int, xinc float64, ny int, yinc float64) (*MapBeam, error) {
	if !isPow2(nx) || !isPow2(ny) || nx < 8 || ny < 8 {
		return nil, fmt.Errorf("%w: map dimensions %dx%d must be powers of two >= 8",
			ErrOutOfRange, nx, ny)
	}
	if xinc < 0.0 || yinc < 0.0 {
		return nil, fmt.Errorf("%w: negative cell size", ErrOutOfRange)
	}
	mb := &MapBeam{
		Nx: nx, Ny: ny, Xinc: xinc, Yinc: yinc,
		Map:  make([]float32, nx*ny),
		Beam: make([]float32, nx*ny),
	}
	return mb, nil
}

/* resize in place, reusing the descriptor held by the caller -----------------*/
func (mb *MapBeam) Resize(nx int, xinc float64, ny int, yinc float64) error {
	nmb, err := NewMapBeam(nx, xinc, ny, yinc)
	if err != nil {
		return err
	}
	*mb = *nmb
	return nil
}

/* map coordinate of a pixel centre -------------------------------------------*/
func (mb *MapBeam) PixToX(ix int) float64 {
	return float64(ix-mb.Nx/2) * mb.Xinc
}

func (mb *MapBeam) PixToY(iy int) float64 {
	return float64(iy-mb.Ny/2) * mb.Yinc
}

/* nearest pixel of a map coordinate, not clipped -----------------------------*/
func (mb *MapBeam) XToPix(x float64) int {
	return mb.Nx/2 + int(roundHalf(x/mb.Xinc))
}

func (mb *MapBeam) YToPix(y float64) int {
	return mb.Ny/2 + int(roundHalf(y/mb.Yinc))
}

func roundHalf(v float64) float64 {
	if v >= 0.0 {
		return float64(int(v + 0.5))
	}
	return -float64(int(-v + 0.5))
}

/* the displayable pixel range: the inner quarter of the grid -----------------*/
func (mb *MapBeam) Inner() (ixa, ixb, iya, iyb int) {
	return mb.Nx / 4, 3*mb.Nx/4 - 1, mb.Ny / 4, 3*mb.Ny/4 - 1
}

/* stamp both arrays stale ----------------------------------------------------*/
func (mb *MapBeam) Invalidate() {
	mb.DoMap = MapStale
	mb.DoBeam = BeamStale
}

/* true if the map holds a usable inversion of the current observation state --*/
func (mb *MapBeam) MapFresh(ob *Observation) bool {
	return mb != nil && mb.DoMap != MapStale && mb.MapGen == ob.DataGen()
}

func (mb *MapBeam) BeamFresh(ob *Observation) bool {
	return mb != nil && mb.DoBeam == BeamReady && mb.BeamGen == ob.WtGen()
}

/* verify that a grid exists, else ErrNoMap -----------------------------------*/
func needMap(op string, mb *MapBeam) error {
	if mb == nil || mb.Nx == 0 {
		Lprnterr("%s: no map grid - use mapsize first\n", op)
		return fmt.Errorf("%w: %s", ErrNoMap, op)
	}
	return nil
}
