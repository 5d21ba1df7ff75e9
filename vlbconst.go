/*------------------------------------------------------------------------------
* vlbconst.go : library constants
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/02 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

const (
	VER_VLBIGO       = "0.0.1" /* library version */
	COPYRIGHT_VLBIGO = "Copyright (C) 2023\nAll rights reserved."

	PI     float64 = 3.141592653589793 /* pi */
	TWOPI  float64 = 2.0 * PI          /* 2.pi */
	HALFPI float64 = PI / 2.0          /* pi/2 */
	D2R            = (PI / 180.0)      /* deg to rad */
	R2D            = (180.0 / PI)      /* rad to deg */
	CLIGHT float64 = 299792458.0       /* speed of light (m/s) */

	RTOAS  = R2D * 3600.0    /* radians to arcsec */
	RTOMAS = RTOAS * 1000.0  /* radians to milli-arcsec */
	RTOAM  = R2D * 60.0      /* radians to arcmin */
	RTOH   = 12.0 / PI       /* radians to hours of time */
	STORAD = PI / 43200.0    /* seconds of time to radians */
	DAYSEC = 86400.0         /* seconds per day */

	MJD0 float64 = 2400000.5 /* JD of MJD=0 */
)

/* limits ---------------------------------------------------------------------*/
const (
	MAXTEL   = 256  /* max telescopes per sub-array */
	MAXIF    = 64   /* max IFs per observation */
	MAXCHAN  = 4096 /* max channels per IF */
	MAXNITER = 1000000 /* sanity ceiling on clean/modelfit iterations */
)

/* square helpers (ported) ----------------------------------------------------*/
func SQR(x float64) float64 {
	return x * x
}

func SQR32(x float32) float32 {
	return x * x
}
