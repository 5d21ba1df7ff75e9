/*------------------------------------------------------------------------------
* uvfits.go : random groups UV FITS input and output
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/05/10 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const fitsBlock = 2880

/* card image helpers ---------------------------------------------------------*/

type cardWriter struct {
	w     io.Writer
	nbyte int
}

func (cw *cardWriter) card(s string) error {
	if len(s) > 80 {
		s = s[:80]
	}
	s = s + strings.Repeat(" ", 80-len(s))
	if _, err := io.WriteString(cw.w, s); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	cw.nbyte += 80
	return nil
}

func (cw *cardWriter) logical(key string, v bool, comment string) error {
	c := "F"
	if v {
		c = "T"
	}
	return cw.card(fmt.Sprintf("%-8s= %20s / %s", key, c, comment))
}

func (cw *cardWriter) integer(key string, v int, comment string) error {
	return cw.card(fmt.Sprintf("%-8s= %20d / %s", key, v, comment))
}

func (cw *cardWriter) real(key string, v float64, comment string) error {
	return cw.card(fmt.Sprintf("%-8s= %20s / %s", key, strconv.FormatFloat(v, 'E', 10, 64), comment))
}

func (cw *cardWriter) str(key, v, comment string) error {
	return cw.card(fmt.Sprintf("%-8s= '%-8s'           / %s", key, v, comment))
}

func (cw *cardWriter) history(line string) error {
	return cw.card("HISTORY " + line)
}

/* pad the output to a block boundary with the given fill ---------------------*/
func (cw *cardWriter) pad(fill byte) error {
	n := (fitsBlock - cw.nbyte%fitsBlock) % fitsBlock
	if n == 0 {
		return nil
	}
	b := make([]byte, n)
	if fill != 0 {
		for i := range b {
			b[i] = fill
		}
	}
	if _, err := cw.w.Write(b); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	cw.nbyte += n
	return nil
}

/* write the current observation as a random groups UV FITS file ----------------
* args   : string path      I   output file
*          bool doshift     I   undo the accumulated shift: bake the phase
*                               rotation into the data and move the header
*                               phase centre to the shifted position
* notes  : the calibrated data (antenna and baseline corrections applied)
*          are written; the header gains a difmap history line.
*-----------------------------------------------------------------------------*/
func (ob *Observation) WriteUVF(path string, doshift bool) error {
	if err := ob.needData("wobs"); err != nil {
		return err
	}
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()
	bw := bufio.NewWriter(fp)
	defer bw.Flush()
	cw := &cardWriter{w: bw}

	ra, dec := ob.RA, ob.Dec
	east, north := 0.0, 0.0
	if doshift && (ob.Geom.East != 0.0 || ob.Geom.North != 0.0) {
		east, north = ob.Geom.East, ob.Geom.North
		if ra, dec, err = ob.MapToSky(0.0, 0.0); err != nil {
			return err
		}
	}

	/* primary header */
	cw.logical("SIMPLE", true, "standard FITS")
	cw.integer("BITPIX", -32, "IEEE float data")
	cw.integer("NAXIS", 7, "")
	cw.integer("NAXIS1", 0, "random groups")
	cw.integer("NAXIS2", 3, "complex: real, imag, weight")
	cw.integer("NAXIS3", ob.NPol, "stokes axis")
	cw.integer("NAXIS4", ob.NChan, "frequency channels")
	cw.integer("NAXIS5", ob.NIF, "IFs")
	cw.integer("NAXIS6", 1, "RA")
	cw.integer("NAXIS7", 1, "DEC")
	cw.logical("GROUPS", true, "random groups UV data")
	cw.integer("PCOUNT", 6, "random parameters")
	cw.integer("GCOUNT", ob.Nrec(), "number of groups")
	cw.str("OBJECT", ob.Name, "source name")
	cw.str("CTYPE2", "COMPLEX", "")
	cw.real("CRVAL2", 1.0, "")
	cw.str("CTYPE3", "STOKES", "")
	cw.real("CRVAL3", float64(ob.Pols[0]), "first polarization code")
	if ob.NPol > 1 {
		cw.real("CDELT3", float64(ob.Pols[1]-ob.Pols[0]), "")
	} else {
		cw.real("CDELT3", -1.0, "")
	}
	cw.str("CTYPE4", "FREQ", "")
	cw.real("CRVAL4", ob.IFs[0].Freq, "frequency of first channel (Hz)")
	cw.real("CDELT4", ob.IFs[0].DF, "channel separation (Hz)")
	cw.real("CRPIX4", 1.0, "")
	cw.str("CTYPE5", "IF", "")
	cw.real("CRVAL5", 1.0, "")
	cw.str("CTYPE6", "RA", "")
	cw.real("CRVAL6", ra*R2D, "phase centre RA (deg)")
	cw.str("CTYPE7", "DEC", "")
	cw.real("CRVAL7", dec*R2D, "phase centre Dec (deg)")
	cw.str("CTYPE8", ob.Proj.String(), "projection")
	cw.str("PTYPE1", "UU", "baseline u (seconds)")
	cw.str("PTYPE2", "VV", "baseline v (seconds)")
	cw.str("PTYPE3", "WW", "baseline w (seconds)")
	cw.str("PTYPE4", "BASELINE", "256*ant1+ant2+0.01*(subarray-1)")
	cw.str("PTYPE5", "DATE", "julian date")
	cw.str("PTYPE6", "DATE", "day fraction")
	cw.real("PZERO5", ob.RefMJD+MJD0, "date offset")
	cw.real("EPOCH", 2000.0, "")
	cw.history(fmt.Sprintf("DIFMAP Read into difmap on %s",
		time.Now().UTC().Format("Mon Jan  2 15:04:05 2006")))
	cw.card("END")
	if err = cw.pad(' '); err != nil {
		return err
	}

	/* groups, ordered by sub-array then time then baseline */
	buf := make([]byte, 4)
	putf32 := func(v float64) error {
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
		_, werr := bw.Write(buf)
		return werr
	}
	for isub, sub := range ob.Sub {
		for t := range sub.Integ {
			integ := &sub.Integ[t]
			for b, base := range sub.Base {
				uvw := integ.UVW[b]
				putf32(uvw.U)
				putf32(uvw.V)
				putf32(uvw.W)
				putf32(float64(256*(base.TelA+1)+base.TelB+1) + 0.01*float64(isub))
				putf32(0.0)
				putf32(integ.UT / DAYSEC)
				for cif := 0; cif < ob.NIF; cif++ {
					ga := integ.Tcor[cif][base.TelA]
					gb := integ.Tcor[cif][base.TelB]
					bc := sub.Bcor[cif][b]
					cor := AmpPhs(ga.Amp*gb.Amp*bc.Amp, ga.Phs-gb.Phs+bc.Phs)
					for c := 0; c < ob.NChan; c++ {
						fch := ob.IFs[cif].Freq + float64(c)*ob.IFs[cif].DF
						rot := cor
						if east != 0.0 || north != 0.0 {
							u := uvw.U * fch
							v := uvw.V * fch
							rot *= AmpPhs(1.0, -TWOPI*(u*east+v*north))
						}
						for p := 0; p < ob.NPol; p++ {
							dv := integ.Dat[sub.Dindex(b, cif, c, p)]
							z := complex(float64(dv.Re), float64(dv.Im)) * rot
							putf32(real(z))
							putf32(imag(z))
							if err = putf32(float64(dv.Wt)); err != nil {
								return fmt.Errorf("%w: %v", ErrIo, err)
							}
						}
					}
				}
			}
		}
	}
	cw.nbyte += ob.Nrec() * 4 * (6 + 3*ob.NIF*ob.NChan*ob.NPol)
	if err = cw.pad(0); err != nil {
		return err
	}

	/* one antenna table extension per sub-array, then the IF layout */
	for isub, sub := range ob.Sub {
		if err = writeAnTable(cw, bw, sub, isub+1); err != nil {
			return err
		}
	}
	if ob.NIF > 1 {
		if err = writeFqTable(cw, bw, ob); err != nil {
			return err
		}
	}
	Lprintf("Writing UV FITS file: %s\n", path)
	return nil
}

/* write the AIPS FQ frequency table ------------------------------------------*/
func writeFqTable(cw *cardWriter, bw *bufio.Writer, ob *Observation) error {
	nif := ob.NIF
	rowBytes := 4 + 20*nif /* FRQSEL(1J) IF FREQ(nifD) CH WIDTH(nifE) BW(nifE) SIDEBAND(nifJ) */
	cw.str("XTENSION", "BINTABLE", "binary table")
	cw.integer("BITPIX", 8, "")
	cw.integer("NAXIS", 2, "")
	cw.integer("NAXIS1", rowBytes, "bytes per row")
	cw.integer("NAXIS2", 1, "rows")
	cw.integer("PCOUNT", 0, "")
	cw.integer("GCOUNT", 1, "")
	cw.integer("TFIELDS", 5, "")
	cw.str("EXTNAME", "AIPS FQ", "frequency table")
	cw.integer("NO_IF", nif, "number of IFs")
	cw.str("TTYPE1", "FRQSEL", "")
	cw.str("TFORM1", "1J", "")
	cw.str("TTYPE2", "IF FREQ", "")
	cw.str("TFORM2", fmt.Sprintf("%dD", nif), "")
	cw.str("TTYPE3", "CH WIDTH", "")
	cw.str("TFORM3", fmt.Sprintf("%dE", nif), "")
	cw.str("TTYPE4", "TOTAL BANDWIDTH", "")
	cw.str("TFORM4", fmt.Sprintf("%dE", nif), "")
	cw.str("TTYPE5", "SIDEBAND", "")
	cw.str("TFORM5", fmt.Sprintf("%dJ", nif), "")
	cw.card("END")
	if err := cw.pad(' '); err != nil {
		return err
	}
	b8 := make([]byte, 8)
	binary.BigEndian.PutUint32(b8[:4], 1)
	bw.Write(b8[:4])
	for i := 0; i < nif; i++ {
		binary.BigEndian.PutUint64(b8, math.Float64bits(ob.IFs[i].Freq-ob.IFs[0].Freq))
		bw.Write(b8)
	}
	for i := 0; i < nif; i++ {
		binary.BigEndian.PutUint32(b8[:4], math.Float32bits(float32(ob.IFs[i].DF)))
		bw.Write(b8[:4])
	}
	for i := 0; i < nif; i++ {
		binary.BigEndian.PutUint32(b8[:4], math.Float32bits(float32(ob.IFs[i].BW)))
		bw.Write(b8[:4])
	}
	for i := 0; i < nif; i++ {
		sb := int32(1)
		if ob.IFs[i].DF < 0.0 {
			sb = -1
		}
		binary.BigEndian.PutUint32(b8[:4], uint32(sb))
		if _, err := bw.Write(b8[:4]); err != nil {
			return fmt.Errorf("%w: %v", ErrIo, err)
		}
	}
	cw.nbyte += rowBytes
	return cw.pad(0)
}

/* write one AIPS AN binary table ---------------------------------------------*/
func writeAnTable(cw *cardWriter, bw *bufio.Writer, sub *Subarray, extver int) error {
	const rowBytes = 8 + 24 + 4 /* ANNAME(8A) STABXYZ(3D) NOSTA(1J) */
	cw.str("XTENSION", "BINTABLE", "binary table")
	cw.integer("BITPIX", 8, "")
	cw.integer("NAXIS", 2, "")
	cw.integer("NAXIS1", rowBytes, "bytes per row")
	cw.integer("NAXIS2", len(sub.Tel), "rows")
	cw.integer("PCOUNT", 0, "")
	cw.integer("GCOUNT", 1, "")
	cw.integer("TFIELDS", 3, "")
	cw.str("EXTNAME", "AIPS AN", "antenna table")
	cw.integer("EXTVER", extver, "sub-array number")
	cw.str("TTYPE1", "ANNAME", "")
	cw.str("TFORM1", "8A", "")
	cw.str("TTYPE2", "STABXYZ", "")
	cw.str("TFORM2", "3D", "")
	cw.str("TTYPE3", "NOSTA", "")
	cw.str("TFORM3", "1J", "")
	cw.card("END")
	if err := cw.pad(' '); err != nil {
		return err
	}
	b8 := make([]byte, 8)
	for i := range sub.Tel {
		tel := &sub.Tel[i]
		name := tel.Name
		if len(name) > 8 {
			name = name[:8]
		}
		name = name + strings.Repeat(" ", 8-len(name))
		io.WriteString(bw, name)
		for k := 0; k < 3; k++ {
			binary.BigEndian.PutUint64(b8, math.Float64bits(tel.XYZ[k]))
			bw.Write(b8)
		}
		binary.BigEndian.PutUint32(b8[:4], uint32(i+1))
		if _, err := bw.Write(b8[:4]); err != nil {
			return fmt.Errorf("%w: %v", ErrIo, err)
		}
	}
	cw.nbyte += rowBytes * len(sub.Tel)
	return cw.pad(0)
}

/* header parsing -------------------------------------------------------------*/

type fitsHdr map[string]string

func readHeader(r io.Reader) (fitsHdr, int, error) {
	hdr := make(fitsHdr)
	nread := 0
	done := false
	for !done {
		block := make([]byte, fitsBlock)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, 0, fmt.Errorf("%w: truncated FITS header: %v", ErrParse, err)
		}
		nread += fitsBlock
		for i := 0; i < fitsBlock; i += 80 {
			card := string(block[i : i+80])
			key := strings.TrimSpace(card[:8])
			if key == "END" {
				done = true
				break
			}
			if key == "" || key == "COMMENT" || key == "HISTORY" {
				continue
			}
			if len(card) > 10 && card[8] == '=' {
				val := strings.TrimSpace(card[10:])
				if i := strings.IndexByte(val, '/'); i >= 0 && !strings.HasPrefix(val, "'") {
					val = strings.TrimSpace(val[:i])
				} else if strings.HasPrefix(val, "'") {
					if j := strings.IndexByte(val[1:], '\''); j >= 0 {
						val = strings.TrimSpace(val[1 : j+1])
					}
				}
				hdr[key] = val
			}
		}
	}
	return hdr, nread, nil
}

func (h fitsHdr) geti(key string, def int) int {
	if v, ok := h[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (h fitsHdr) getf(key string, def float64) float64 {
	if v, ok := h[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (h fitsHdr) gets(key, def string) string {
	if v, ok := h[key]; ok {
		return v
	}
	return def
}

/* read a random groups UV FITS file into a new observation ---------------------
* args   : string path      I   input file
*          float64 binWidth I   pre-averaging time (s, 0: none)
*          bool scatter     I   derive weights from the sample scatter
* return : observation, error (ErrIo, ErrParse, ErrStateRequired)
*-----------------------------------------------------------------------------*/
func ReadUVF(path string, binWidth float64, scatter bool) (*Observation, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()
	r := bufio.NewReader(fp)

	hdr, _, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if hdr.gets("SIMPLE", "F") != "T" || hdr.gets("GROUPS", "F") != "T" {
		return nil, fmt.Errorf("%w: not a random groups UV FITS file", ErrParse)
	}
	naxis := hdr.geti("NAXIS", 0)
	/* locate the axes by type */
	npol, nchan, nif := 1, 1, 1
	var pol0, dpol float64 = float64(RRPol), -1.0
	var freq0, df float64
	var ra, dec float64
	for i := 2; i <= naxis; i++ {
		ctype := hdr.gets(fmt.Sprintf("CTYPE%d", i), "")
		n := hdr.geti(fmt.Sprintf("NAXIS%d", i), 1)
		switch ctype {
		case "COMPLEX":
			if n != 3 {
				return nil, fmt.Errorf("%w: unsupported complex axis of %d", ErrParse, n)
			}
		case "STOKES":
			npol = n
			pol0 = hdr.getf(fmt.Sprintf("CRVAL%d", i), pol0)
			dpol = hdr.getf(fmt.Sprintf("CDELT%d", i), dpol)
		case "FREQ":
			nchan = n
			freq0 = hdr.getf(fmt.Sprintf("CRVAL%d", i), 0.0)
			df = hdr.getf(fmt.Sprintf("CDELT%d", i), 0.0)
		case "IF":
			nif = n
		case "RA":
			ra = hdr.getf(fmt.Sprintf("CRVAL%d", i), 0.0) * D2R
		case "DEC":
			dec = hdr.getf(fmt.Sprintf("CRVAL%d", i), 0.0) * D2R
		case "":
		default:
			if i >= 8 {
				continue
			}
			return nil, fmt.Errorf("%w: unsupported axis type '%s'", ErrParse, ctype)
		}
	}
	pcount := hdr.geti("PCOUNT", 0)
	gcount := hdr.geti("GCOUNT", 0)
	if pcount < 5 || gcount < 1 {
		return nil, fmt.Errorf("%w: missing random parameters", ErrParse)
	}
	/* random parameter slots by type, honouring scales and offsets */
	type pslot struct {
		scal, zero float64
	}
	slots := make([]pslot, pcount)
	iUU, iVV, iWW, iBase := -1, -1, -1, -1
	var iDate []int
	for i := 1; i <= pcount; i++ {
		slots[i-1] = pslot{
			scal: hdr.getf(fmt.Sprintf("PSCAL%d", i), 1.0),
			zero: hdr.getf(fmt.Sprintf("PZERO%d", i), 0.0),
		}
		switch strings.ToUpper(hdr.gets(fmt.Sprintf("PTYPE%d", i), "")) {
		case "UU", "UU-L", "UU---SIN":
			iUU = i - 1
		case "VV", "VV-L", "VV---SIN":
			iVV = i - 1
		case "WW", "WW-L", "WW---SIN":
			iWW = i - 1
		case "BASELINE":
			iBase = i - 1
		case "DATE":
			iDate = append(iDate, i-1)
		}
	}
	if iUU < 0 || iVV < 0 || iBase < 0 || len(iDate) == 0 {
		return nil, fmt.Errorf("%w: required random parameters are missing", ErrParse)
	}
	proj := ProjSIN
	if p, perr := ProjID(hdr.gets("CTYPE8", "SIN")); perr == nil {
		proj = p
	}

	ifs := make([]IFrec, nif)
	for i := range ifs {
		ifs[i] = IFrec{
			Freq: freq0 + float64(i)*df*float64(nchan),
			DF:   df,
			BW:   df * float64(nchan),
			Coff: i * nchan,
		}
	}
	pols := make([]Stokes, npol)
	for i := range pols {
		pols[i] = Stokes(int(pol0 + float64(i)*dpol))
	}
	ob := NewObservation(hdr.gets("OBJECT", "unknown"), ra, dec, ifs, pols)
	ob.NChan = nchan
	ob.Proj = proj
	refJD := slots[iDate[0]].zero
	if refJD > 0.0 {
		ob.RefMJD = refJD - MJD0
	}

	/* group scan: the raw bytes of one group */
	ndata := 3 * npol * nchan * nif
	grp := make([]byte, 4*(pcount+ndata))
	var sub *Subarray
	subOf := make(map[int]*Subarray)
	var integ *Integration
	lastUT := math.Inf(-1)
	lastSub := -1
	maxTel := make(map[int]int)

	/* first pass: find the telescope count per sub-array */
	groups := make([][]byte, 0, gcount)
	for g := 0; g < gcount; g++ {
		b := make([]byte, len(grp))
		if _, err = io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("%w: truncated group data: %v", ErrParse, err)
		}
		groups = append(groups, b)
		bl := getf32(b, iBase)*slots[iBase].scal + slots[iBase].zero
		isub := int(100.0*(bl-math.Floor(bl)) + 0.5)
		code := int(math.Floor(bl))
		a1, a2 := code/256, code%256
		if a2 > maxTel[isub] {
			maxTel[isub] = a2
		}
		if a1 > maxTel[isub] {
			maxTel[isub] = a1
		}
	}

	/* skip the block padding that separates the groups from the extensions */
	ngrp := gcount * len(grp)
	if pad := (fitsBlock - ngrp%fitsBlock) % fitsBlock; pad > 0 {
		if _, err = io.CopyN(io.Discard, r, int64(pad)); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: %v", ErrIo, err)
		}
	}

	/* antenna tables give the real names and positions when present, and
	 * an FQ table the true per-IF frequency offsets */
	anTels, fqOff := readExtTables(r)
	if len(fqOff) == nif {
		for i := range ifs {
			ifs[i].Freq = freq0 + fqOff[i]
		}
		ob.IFs = ifs
	}

	subKeys := make([]int, 0, len(maxTel))
	for isub := range maxTel {
		subKeys = append(subKeys, isub)
	}
	sort.Ints(subKeys)
	for _, isub := range subKeys {
		tels := make([]Telescope, maxTel[isub])
		for i := range tels {
			tels[i] = Telescope{Name: fmt.Sprintf("AN%d", i+1), AntWt: 1.0}
		}
		if at, ok := anTels[isub+1]; ok {
			for i := range tels {
				if i < len(at) {
					tels[i] = at[i]
					tels[i].AntWt = 1.0
				}
			}
		}
		subOf[isub] = ob.AddSubarray(tels)
	}

	/* second pass: fill the store */
	for _, b := range groups {
		uu := getf32(b, iUU)*slots[iUU].scal + slots[iUU].zero
		vv := getf32(b, iVV)*slots[iVV].scal + slots[iVV].zero
		ww := 0.0
		if iWW >= 0 {
			ww = getf32(b, iWW)*slots[iWW].scal + slots[iWW].zero
		}
		bl := getf32(b, iBase)*slots[iBase].scal + slots[iBase].zero
		isub := int(100.0*(bl-math.Floor(bl)) + 0.5)
		code := int(math.Floor(bl))
		a1, a2 := code/256-1, code%256-1
		var ut float64
		for k, id := range iDate {
			v := getf32(b, id)*slots[id].scal + slots[id].zero
			if k == 0 && refJD > 0.0 {
				v -= refJD
			}
			ut += v
		}
		ut *= DAYSEC
		sub = subOf[isub]
		if sub == nil {
			return nil, fmt.Errorf("%w: group names sub-array %d with no antenna table", ErrParse, isub+1)
		}
		if ut != lastUT || isub != lastSub {
			integ = sub.AddInteg(ut)
			lastUT, lastSub = ut, isub
		}
		bidx := sub.BaseIndex(a1, a2)
		if bidx < 0 {
			return nil, fmt.Errorf("%w: baseline %d-%d outside the sub-array", ErrParse, a1+1, a2+1)
		}
		conj := a1 > a2
		integ.UVW[bidx] = UVWCoord{U: uu, V: vv, W: ww}
		if conj {
			integ.UVW[bidx] = UVWCoord{U: -uu, V: -vv, W: -ww}
		}
		/* axis order: complex innermost, then stokes, channel, IF */
		off := pcount
		for cif := 0; cif < nif; cif++ {
			for c := 0; c < nchan; c++ {
				for p := 0; p < npol; p++ {
					re := getf32(b, off)
					im := getf32(b, off+1)
					wt := getf32(b, off+2)
					off += 3
					if conj {
						im = -im
					}
					integ.Dat[sub.Dindex(bidx, cif, c, p)] = Cvis{
						Re: float32(re), Im: float32(im), Wt: float32(wt),
					}
				}
			}
		}
	}
	Lprintf("Reading UV FITS file: %s\n", path)
	Lprintf("%s\n", ob.Summary())
	if binWidth > 0.0 {
		if err = ob.UvAver(binWidth, scatter); err != nil {
			return nil, err
		}
	}
	return ob, nil
}

func getf32(b []byte, i int) float64 {
	return float64(math.Float32frombits(binary.BigEndian.Uint32(b[4*i : 4*i+4])))
}

/* read the binary table extensions following the group data ------------------
* AIPS AN tables map to sub-array telescope lists; an AIPS FQ table gives
* the per-IF frequency offsets from the reference frequency.
*-----------------------------------------------------------------------------*/
func readExtTables(r io.Reader) (map[int][]Telescope, []float64) {
	out := make(map[int][]Telescope)
	var fqOff []float64
	for {
		hdr, _, err := readHeader(r)
		if err != nil {
			return out, fqOff /* end of file */
		}
		rows := hdr.geti("NAXIS2", 0)
		rowBytes := hdr.geti("NAXIS1", 0)
		extver := hdr.geti("EXTVER", 1)
		name := hdr.gets("EXTNAME", "")
		nbyte := rows * rowBytes
		data := make([]byte, (nbyte+fitsBlock-1)/fitsBlock*fitsBlock)
		if _, err = io.ReadFull(r, data); err != nil {
			return out, fqOff
		}
		switch {
		case name == "AIPS AN" && rowBytes >= 36:
			tels := make([]Telescope, rows)
			for i := 0; i < rows; i++ {
				row := data[i*rowBytes : (i+1)*rowBytes]
				tels[i].Name = strings.TrimSpace(string(row[:8]))
				for k := 0; k < 3; k++ {
					tels[i].XYZ[k] = math.Float64frombits(binary.BigEndian.Uint64(row[8+8*k : 16+8*k]))
				}
				tels[i].AntWt = 1.0
			}
			out[extver] = tels
		case name == "AIPS FQ" && rows >= 1:
			nif := hdr.geti("NO_IF", (rowBytes-4)/20)
			if nif < 1 || rowBytes < 4+8*nif {
				continue
			}
			fqOff = make([]float64, nif)
			for i := 0; i < nif; i++ {
				fqOff[i] = math.Float64frombits(
					binary.BigEndian.Uint64(data[4+8*i : 12+8*i]))
			}
		}
	}
}
