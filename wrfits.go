/*------------------------------------------------------------------------------
* wrfits.go : FITS image output of the restored map
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/05/12 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
)

/* write the displayable quarter of the map as a FITS image ---------------------
* args   : string path      I   output file
* notes  : a 4 axis (RA,DEC,FREQ,STOKES) image of the inner quarter followed
*          by an AIPS CC binary table of the established model components.
*-----------------------------------------------------------------------------*/
func WriteMapFITS(ob *Observation, mb *MapBeam, path string) error {
	if err := needMap("wmap", mb); err != nil {
		return err
	}
	if mb.DoMap == MapStale {
		return fmt.Errorf("%w: nothing to write - run invert first", ErrStateRequired)
	}
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()
	bw := bufio.NewWriter(fp)
	defer bw.Flush()
	cw := &cardWriter{w: bw}

	ixa, ixb, iya, iyb := mb.Inner()
	nx := ixb - ixa + 1
	ny := iyb - iya + 1
	cw.logical("SIMPLE", true, "standard FITS")
	cw.integer("BITPIX", -32, "IEEE float image")
	cw.integer("NAXIS", 4, "")
	cw.integer("NAXIS1", nx, "")
	cw.integer("NAXIS2", ny, "")
	cw.integer("NAXIS3", 1, "")
	cw.integer("NAXIS4", 1, "")
	cw.str("OBJECT", ob.Name, "source name")
	cw.str("BUNIT", "JY/BEAM", "map units")
	cw.str("CTYPE1", "RA---"+ob.Proj.String(), "")
	cw.real("CRVAL1", ob.RA*R2D, "")
	/* RA increases to the east: negative pixel increment */
	cw.real("CDELT1", -mb.Xinc*R2D, "")
	cw.real("CRPIX1", float64(mb.Nx/2-ixa+1), "")
	cw.str("CTYPE2", "DEC--"+ob.Proj.String(), "")
	cw.real("CRVAL2", ob.Dec*R2D, "")
	cw.real("CDELT2", mb.Yinc*R2D, "")
	cw.real("CRPIX2", float64(mb.Ny/2-iya+1), "")
	cw.str("CTYPE3", "FREQ", "")
	cw.real("CRVAL3", ob.IFs[0].Freq, "")
	cw.str("CTYPE4", "STOKES", "")
	cw.real("CRVAL4", float64(SI), "")
	cw.real("BMAJ", mb.EBmaj*R2D, "clean beam major axis (deg)")
	cw.real("BMIN", mb.EBmin*R2D, "clean beam minor axis (deg)")
	cw.real("BPA", mb.EBpa*R2D, "clean beam position angle (deg)")
	cw.real("EPOCH", 2000.0, "")
	cw.real("NITER", float64(ob.Model.Ncmp()), "clean components")
	cw.history(fmt.Sprintf("DIFMAP Written on %s",
		time.Now().UTC().Format("Mon Jan  2 15:04:05 2006")))
	cw.card("END")
	if err = cw.pad(' '); err != nil {
		return err
	}

	buf := make([]byte, 4)
	/* FITS images store RA increasing leftward; flip the x order */
	for iy := iya; iy <= iyb; iy++ {
		for ix := ixb; ix >= ixa; ix-- {
			binary.BigEndian.PutUint32(buf, math.Float32bits(mb.Map[ix+iy*mb.Nx]))
			if _, err = bw.Write(buf); err != nil {
				return fmt.Errorf("%w: %v", ErrIo, err)
			}
		}
	}
	cw.nbyte += 4 * nx * ny
	if err = cw.pad(0); err != nil {
		return err
	}
	if err = writeCCTable(cw, bw, ob.Model); err != nil {
		return err
	}
	Lprintf("Writing clean map to FITS file: %s\n", path)
	return nil
}

/* write the AIPS CC clean component binary table -----------------------------*/
func writeCCTable(cw *cardWriter, bw *bufio.Writer, m *Model) error {
	const rowBytes = 7 * 4 /* FLUX DELTAX DELTAY MAJOR MINOR POSANGLE TYPE */
	cw.str("XTENSION", "BINTABLE", "binary table")
	cw.integer("BITPIX", 8, "")
	cw.integer("NAXIS", 2, "")
	cw.integer("NAXIS1", rowBytes, "bytes per row")
	cw.integer("NAXIS2", m.Ncmp(), "rows")
	cw.integer("PCOUNT", 0, "")
	cw.integer("GCOUNT", 1, "")
	cw.integer("TFIELDS", 7, "")
	cw.str("EXTNAME", "AIPS CC", "clean component table")
	for i, name := range []string{"FLUX", "DELTAX", "DELTAY", "MAJOR AX", "MINOR AX", "POSANGLE", "TYPE OBJ"} {
		cw.str(fmt.Sprintf("TTYPE%d", i+1), name, "")
		cw.str(fmt.Sprintf("TFORM%d", i+1), "1E", "")
	}
	cw.card("END")
	if err := cw.pad(' '); err != nil {
		return err
	}
	buf := make([]byte, 4)
	put := func(v float64) {
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
		bw.Write(buf)
	}
	for i := range m.Cmp {
		cmp := &m.Cmp[i]
		put(cmp.Flux)
		/* DELTAX follows the RA convention: east is negative x in FITS */
		put(-cmp.X * R2D)
		put(cmp.Y * R2D)
		put(cmp.Major * R2D)
		put(cmp.Major * cmp.Ratio * R2D)
		put(cmp.Phi * R2D)
		put(float64(cmp.Type))
	}
	cw.nbyte += rowBytes * m.Ncmp()
	return cw.pad(0)
}
