/*------------------------------------------------------------------------------
* types.go : basic data types of the aperture synthesis pipeline
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/02 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"errors"
	"fmt"
	"sync/atomic"
)

/* error taxonomy -------------------------------------------------------------*/
var (
	ErrNoData        = errors.New("no UV data")           /* operation before observe */
	ErrNoMap         = errors.New("no map grid")          /* operation before mapsize */
	ErrStateRequired = errors.New("state required")       /* observation not prepared */
	ErrOutOfRange    = errors.New("out of range")         /* numeric input out of range */
	ErrParse         = errors.New("parse error")          /* malformed input text */
	ErrIo            = errors.New("io error")             /* filesystem failure */
	ErrNumeric       = errors.New("numeric failure")      /* solver failed to converge */
	ErrAborted       = errors.New("operation interrupted") /* abort signal seen */
)

/* level-triggered abort signal owned by the driver. Long operations poll it
 * at iteration boundaries and return ErrAborted with consistent state. */
type Abort struct {
	flag atomic.Bool
}

func (a *Abort) Raise() {
	if a != nil {
		a.flag.Store(true)
	}
}

func (a *Abort) Clear() {
	if a != nil {
		a.flag.Store(false)
	}
}

func (a *Abort) Raised() bool {
	return a != nil && a.flag.Load()
}

/* polarizations --------------------------------------------------------------*/
type Stokes int

const (
	NoPol Stokes = 0 /* no polarization chosen */
	SI    Stokes = 1 /* Stokes I */
	SQ    Stokes = 2
	SU    Stokes = 3
	SV    Stokes = 4
	RRPol Stokes = -1 /* circular correlator products */
	LLPol Stokes = -2
	RLPol Stokes = -3
	LRPol Stokes = -4
	XXPol Stokes = -5 /* linear correlator products */
	YYPol Stokes = -6
	XYPol Stokes = -7
	YXPol Stokes = -8
	PIPol Stokes = 5 /* polarized intensity sqrt(Q^2+U^2) */
)

var stokesNames = map[Stokes]string{
	SI: "I", SQ: "Q", SU: "U", SV: "V",
	RRPol: "RR", LLPol: "LL", RLPol: "RL", LRPol: "LR",
	XXPol: "XX", YYPol: "YY", XYPol: "XY", YXPol: "YX",
	PIPol: "PI",
}

func (s Stokes) String() string {
	if name, ok := stokesNames[s]; ok {
		return name
	}
	return ""
}

/* lookup a Stokes enumerator by name -----------------------------------------*/
func StokesID(name string) Stokes {
	for id, n := range stokesNames {
		if n == name {
			return id
		}
	}
	return NoPol
}

/* visibility data ------------------------------------------------------------*/

/* one raw correlation. The sign of Wt records the flagged status: Wt<=0.0
 * excludes the sample from all sums and a flag/unflag pair restores the
 * stored value bit for bit. */
type Cvis struct {
	Re, Im float32 /* real and imaginary parts (Jy) */
	Wt     float32 /* weight, <=0 means flagged */
}

func (v *Cvis) Flagged() bool {
	return v.Wt <= 0.0
}

type UVWCoord struct {
	U, V, W float64 /* projected baseline (light seconds) */
}

/* one visibility of the current stream, formed by GetIF from the selected
 * polarization and channels of one IF with all corrections applied */
type Visibility struct {
	Amp, Phs float64 /* amplitude (Jy) and phase (rad) */
	Wt       float64 /* weight, <=0 means flagged */
	ModAmp   float64 /* established (+continuum) model amplitude */
	ModPhs   float64 /* model phase */
	U, V, W  float64 /* baseline projection (wavelengths at the stream IF) */
	Bad      bool    /* excluded from all sums */
}

type Integration struct {
	UT   float64     /* time of integration (s relative to the reference date) */
	UVW  []UVWCoord  /* per baseline projections (light seconds) */
	Dat  []Cvis      /* raw correlations, nbase*nif*nchan*npol */
	Tcor [][]TelGain /* accumulated per-antenna corrections [nif][ntel] */
}

/* an unordered telescope pair. TelA < TelB always; the conjugate pair is
 * not stored, conjugation is applied where models are evaluated. */
type Baseline struct {
	TelA, TelB int
}

type Telescope struct {
	Name   string     /* station name */
	XYZ    [3]float64 /* geocentric coordinates (m) */
	AntWt  float64    /* self-cal solution weight */
	AntFix bool       /* hold the self-cal gain of this antenna at unity */
}

/* accumulated correction of one antenna in one IF. Corrections multiply the
 * raw data on read: Vcor = V * Amp(a)*Amp(b) * exp(i(Phs(a)-Phs(b))). */
type TelGain struct {
	Amp float64 /* amplitude correction */
	Phs float64 /* phase correction (rad) */
	Bad bool    /* antenna solution marked unusable */
}

/* baseline based complex offset applied by resoff ----------------------------*/
type Blcor struct {
	Amp float64 /* amplitude factor */
	Phs float64 /* phase offset (rad) */
}

/* a contiguous group of telescopes with shared geometry ----------------------*/
type Subarray struct {
	Tel     []Telescope   /* telescopes of the sub-array */
	Base    []Baseline    /* baselines of the sub-array */
	Integ   []Integration /* integrations ordered by time */
	ScanGap float64       /* inter-scan gap threshold (s) */
	Bcor    [][]Blcor     /* baseline offsets [nif][nbase] */

	nif, nchan, npol int /* data cube dimensions (copied from the observation) */
}

/* index of a raw correlation inside one integration --------------------------*/
func (sub *Subarray) Dindex(base, cif, ch, pol int) int {
	return ((base*sub.nif+cif)*sub.nchan+ch)*sub.npol + pol
}

/* find the index of a baseline given its two telescopes, -1 if absent --------*/
func (sub *Subarray) BaseIndex(ta, tb int) int {
	if ta > tb {
		ta, tb = tb, ta
	}
	for i, b := range sub.Base {
		if b.TelA == ta && b.TelB == tb {
			return i
		}
	}
	return -1
}

/* IF and channel selection ---------------------------------------------------*/
type IFrec struct {
	Freq float64 /* frequency of the first channel (Hz) */
	DF   float64 /* channel separation (Hz) */
	BW   float64 /* total bandwidth (Hz) */
	Coff int     /* offset of the first channel in the whole band */
}

/* an inclusive range of channel indexes within the whole band ----------------*/
type ChanRange struct {
	Ca, Cb int
}

/* the current stream selection -----------------------------------------------*/
type Stream struct {
	Pol     Stokes      /* the selected polarization */
	CL      []ChanRange /* canonical selected channel ranges */
	UVScale []float64   /* per IF: light seconds to wavelengths */
	Set     bool        /* true after the first successful select */
}

/* accumulated phase centre shift. All stored state is in the shifted frame
 * and only untransformed at I/O boundaries. */
type Geom struct {
	East, North float64 /* accumulated shift (rad) */
}

/* models ---------------------------------------------------------------------*/
type CmpType int

const (
	DeltaCmp  CmpType = 0 /* point component */
	GausCmp   CmpType = 1 /* elliptical gaussian */
	DiskCmp   CmpType = 2 /* uniform disk */
	SphereCmp CmpType = 3 /* optically thin sphere */
	RingCmp   CmpType = 4 /* thin ring */
	RectCmp   CmpType = 5 /* uniform rectangle */
)

/* free parameter bitmap used by modelfit -------------------------------------*/
const (
	FreeFlux   = 1 << iota /* flux is variable */
	FreeCent               /* x,y are variable */
	FreeMajor              /* major axis is variable */
	FreeRatio              /* axial ratio is variable */
	FreePhi                /* position angle is variable */
	FreeSpcInd             /* spectral index is variable */
)

type Modcmp struct {
	Type    CmpType
	Flux    float64 /* component flux (Jy) */
	X, Y    float64 /* position relative to the phase centre (rad) */
	Major   float64 /* FWHM major axis (rad) */
	Ratio   float64 /* axial ratio minor/major */
	Phi     float64 /* major axis position angle, north to east (rad) */
	Freq0   float64 /* reference frequency for the spectral index (Hz) */
	SpcInd  float64 /* spectral index */
	Freepar int     /* bitmap of variable parameters */
}

/* an ordered sequence of components. Components are stored in an indexed
 * slice arena so merge/shift/window become splice operations. */
type Model struct {
	Cmp  []Modcmp
	Flux float64 /* running total of component fluxes */
}

/* solver and gridding parameters ---------------------------------------------*/

/* self-calibration controls --------------------------------------------------*/
type Selfpar struct {
	Gauval       float64 /* selftaper value at Gaurad (0..1, 0=off) */
	Gaurad       float64 /* selftaper UV radius (wavelengths) */
	Maxamp       float64 /* selflims amplitude ratio clip (0=off) */
	Maxphs       float64 /* selflims phase clip (rad, 0=off) */
	Uvmin, Uvmax float64 /* solution UV range gate (wavelengths, 0=off) */
	Doflag       bool    /* flag baselines failing the closure check */
	Mintel       int     /* min telescopes of a closed solution array */
	Wtmin        float64 /* selfflag weight cutoff (0=off) */
}

func DefaultSelfpar() Selfpar {
	return Selfpar{Mintel: 3}
}

/* gridding and weighting controls --------------------------------------------*/
type InvPar struct {
	Uvmin, Uvmax float64 /* UV range gate (wavelengths, 0=off) */
	Gauval       float64 /* taper value at Gaurad (0..1, 0=off) */
	Gaurad       float64 /* taper UV radius (wavelengths) */
	Errpow       float64 /* error weighting exponent (<=0, 0=off) */
	Dorad        bool    /* radial weighting */
	Uvbin        float64 /* uniform weighting bin width (UV cells, 0=natural) */
	Uvhwhm       float64 /* gridding kernel half width (UV cells) */
	Zflux        float64 /* synthetic zero baseline flux (Jy, with Zwt>0) */
	Zwt          float64 /* synthetic zero baseline weight */
}

func DefaultInvPar() InvPar {
	return InvPar{Uvhwhm: 0.7}
}

/* clean controls -------------------------------------------------------------*/
type Clnpar struct {
	Niter  int     /* max number of iterations */
	Gain   float64 /* loop gain (0..1) */
	Cutoff float64 /* residual stopping level (Jy/beam, 0=count only) */
}

func DefaultClnpar() Clnpar {
	return Clnpar{Niter: 100, Gain: 0.05}
}

/* per-operation reports ------------------------------------------------------*/

/* informational record of a flagging event raised by the self-cal solver */
type FlagEvent struct {
	Nflag int /* number of visibilities flagged */
}

func (e FlagEvent) String() string {
	return fmt.Sprintf("flagged %d visibilities", e.Nflag)
}
