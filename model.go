/*------------------------------------------------------------------------------
* model.go : model component lists, model visibilities and model files
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/10 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

/* model list operations ------------------------------------------------------*/

/* append one component -------------------------------------------------------*/
func (m *Model) Add(cmp Modcmp) {
	m.Cmp = append(m.Cmp, cmp)
	m.Flux += cmp.Flux
}

/* append all components of another model, leaving the source untouched -------*/
func (m *Model) AddModel(src *Model) {
	if src == nil {
		return
	}
	m.Cmp = append(m.Cmp, src.Cmp...)
	m.Flux += src.Flux
}

/* discard all components -----------------------------------------------------*/
func (m *Model) Clear() {
	m.Cmp = m.Cmp[:0]
	m.Flux = 0.0
}

func (m *Model) Ncmp() int {
	return len(m.Cmp)
}

/* shift all component centres ------------------------------------------------*/
func (m *Model) Shift(east, north float64) {
	for i := range m.Cmp {
		m.Cmp[i].X += east
		m.Cmp[i].Y += north
	}
}

/* recompute the running flux total after in-place edits ----------------------*/
func (m *Model) Reflux() {
	m.Flux = 0.0
	for i := range m.Cmp {
		m.Flux += m.Cmp[i].Flux
	}
}

/* establish the tentative models: newmod into model, cnewmod into cmod -------*/
func (ob *Observation) Keep() error {
	if err := ob.needSelect("keep"); err != nil {
		return err
	}
	/* avoid marking the map stale when there is nothing to establish */
	if ob.Newmod.Ncmp()+ob.Cnewmod.Ncmp() == 0 {
		return nil
	}
	ob.Model.AddModel(ob.Newmod)
	ob.Newmod.Clear()
	ob.Cmod.AddModel(ob.Cnewmod)
	ob.Cnewmod.Clear()
	/* the next invert must produce the modified residual map; the beam is
	 * unaffected */
	ob.MarkDirty(false)
	return nil
}

/* clear selected model sets ---------------------------------------------------
* args   : bool doold       I   clear the established model
*          bool donew       I   clear the tentative model
*          bool docont      I   clear the continuum models
*-----------------------------------------------------------------------------*/
func (ob *Observation) ClrMod(doold, donew, docont bool) error {
	if err := ob.needData("clrmod"); err != nil {
		return err
	}
	if doold && ob.Model.Ncmp() > 0 {
		ob.Model.Clear()
		ob.MarkDirty(false)
	}
	if donew {
		ob.Newmod.Clear()
	}
	if docont && ob.Cmod.Ncmp()+ob.Cnewmod.Ncmp() > 0 {
		ob.Cmod.Clear()
		ob.Cnewmod.Clear()
		ob.MarkDirty(false)
	}
	return nil
}

/* append an explicit component to the tentative model ------------------------*/
func (ob *Observation) AddCmp(cmp Modcmp) error {
	if err := ob.needData("addcmp"); err != nil {
		return err
	}
	if cmp.Ratio <= 0.0 {
		cmp.Ratio = 1.0
	}
	ob.Newmod.Add(cmp)
	return nil
}

/* model visibilities ---------------------------------------------------------*/

/* visibility of a component list at one UV point ------------------------------
* args   : []Modcmp cmps    I   components
*          float64 u,v      I   UV coordinates (wavelengths)
*          float64 freq     I   observing frequency (Hz)
* return : complex visibility (Jy)
* notes  : a point at (x,y) contributes flux*exp(-2.pi.i(u.x+v.y))
*-----------------------------------------------------------------------------*/
func ModVis(cmps []Modcmp, u, v, freq float64) complex128 {
	var sum complex128
	for i := range cmps {
		cmp := &cmps[i]
		flux := cmp.Flux
		if cmp.Freq0 > 0.0 && cmp.SpcInd != 0.0 {
			flux *= math.Pow(freq/cmp.Freq0, cmp.SpcInd)
		}
		env := cmpEnvelope(cmp, u, v)
		phs := -TWOPI * (u*cmp.X + v*cmp.Y)
		sum += AmpPhs(flux*env, phs)
	}
	return sum
}

/* the visibility envelope of an extended component ---------------------------*/
func cmpEnvelope(cmp *Modcmp, u, v float64) float64 {
	if cmp.Type == DeltaCmp || cmp.Major <= 0.0 {
		return 1.0
	}
	/* UV components along and across the major axis (PA north to east) */
	sphi, cphi := math.Sincos(cmp.Phi)
	ua := u*sphi + v*cphi
	ub := u*cphi - v*sphi
	ratio := cmp.Ratio
	if ratio <= 0.0 {
		ratio = 1.0
	}
	switch cmp.Type {
	case GausCmp:
		/* gaussian with FWHM major along the major axis */
		k := SQR(PI*cmp.Major) / (4.0 * math.Ln2)
		return math.Exp(-k * (SQR(ua) + SQR(ub*ratio)))
	case DiskCmp:
		x := PI * cmp.Major * math.Hypot(ua, ub*ratio)
		if x < 1e-12 {
			return 1.0
		}
		return 2.0 * math.J1(x) / x
	case SphereCmp:
		x := PI * cmp.Major * math.Hypot(ua, ub*ratio)
		if x < 1e-6 {
			return 1.0
		}
		return 3.0 * (math.Sin(x) - x*math.Cos(x)) / (x * x * x)
	case RingCmp:
		x := PI * cmp.Major * math.Hypot(ua, ub*ratio)
		return math.J0(x)
	case RectCmp:
		sinc := func(x float64) float64 {
			if math.Abs(x) < 1e-12 {
				return 1.0
			}
			return math.Sin(x) / x
		}
		return sinc(PI*cmp.Major*ua) * sinc(PI*cmp.Major*ratio*ub)
	}
	return 1.0
}

/* model files ----------------------------------------------------------------*/

/* write a model file. One component per line with columns
 *   flux radius theta major ratio phi type freq0 spcind
 * where radius,theta encode (x,y) in polar form (theta north to east) and a
 * 'v' suffix marks parameters that are free in model fitting. */
func WriteModel(path string, m *Model, ra, dec float64, units *SkyUnits) error {
	if units == nil {
		units = DefaultUnits()
	}
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()
	w := bufio.NewWriter(fp)
	defer w.Flush()

	fmt.Fprintf(w, "! Center RA: %s,  Dec: %s (2000.0)\n",
		FormatHMS(ra, 3), FormatDMS(dec, 3))
	fmt.Fprintf(w, "! Flux (Jy) Radius (%s)  Theta (deg)  Major (%s)  Axial ratio   Phi (deg) T  Freq (Hz)  SpecIndex\n",
		units.Map.Name, units.Map.Name)
	for i := range m.Cmp {
		cmp := &m.Cmp[i]
		radius := math.Hypot(cmp.X, cmp.Y)
		theta := 0.0
		if radius > 0.0 {
			theta = math.Atan2(cmp.X, cmp.Y)
		}
		col := func(val float64, free bool) string {
			s := strconv.FormatFloat(val, 'g', 7, 64)
			if free {
				s += "v"
			}
			return s
		}
		fmt.Fprintf(w, "%s %s %s",
			col(cmp.Flux, cmp.Freepar&FreeFlux != 0),
			col(units.RadToXY(radius), cmp.Freepar&FreeCent != 0),
			col(theta*R2D, cmp.Freepar&FreeCent != 0))
		if cmp.Type != DeltaCmp {
			fmt.Fprintf(w, " %s %s %s %d",
				col(units.RadToXY(cmp.Major), cmp.Freepar&FreeMajor != 0),
				col(cmp.Ratio, cmp.Freepar&FreeRatio != 0),
				col(cmp.Phi*R2D, cmp.Freepar&FreePhi != 0),
				int(cmp.Type))
			if cmp.Freq0 > 0.0 {
				fmt.Fprintf(w, " %s %s",
					col(cmp.Freq0, false),
					col(cmp.SpcInd, cmp.Freepar&FreeSpcInd != 0))
			}
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

/* parse one numeric model column, stripping a trailing free marker -----------*/
func modField(s string) (val float64, free bool, err error) {
	if strings.HasSuffix(s, "v") || strings.HasSuffix(s, "V") {
		free = true
		s = s[:len(s)-1]
	}
	val, err = strconv.ParseFloat(s, 64)
	if err != nil {
		err = fmt.Errorf("%w: bad model field '%s'", ErrParse, s)
	}
	return
}

/* read a model file written by WriteModel ------------------------------------*/
func ReadModel(path string, units *SkyUnits) (*Model, error) {
	if units == nil {
		units = DefaultUnits()
	}
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()

	m := &Model{}
	scan := bufio.NewScanner(fp)
	lineno := 0
	for scan.Scan() {
		lineno++
		line := strings.TrimSpace(scan.Text())
		if len(line) == 0 || line[0] == '!' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: %s line %d: too few columns", ErrParse, path, lineno)
		}
		var cmp Modcmp
		var radius, theta float64
		var free bool
		if cmp.Flux, free, err = modField(fields[0]); err != nil {
			return nil, err
		}
		if free {
			cmp.Freepar |= FreeFlux
		}
		if radius, free, err = modField(fields[1]); err != nil {
			return nil, err
		}
		if free {
			cmp.Freepar |= FreeCent
		}
		if theta, free, err = modField(fields[2]); err != nil {
			return nil, err
		}
		if free {
			cmp.Freepar |= FreeCent
		}
		radius = units.XYtoRad(radius)
		theta *= D2R
		cmp.X = radius * math.Sin(theta)
		cmp.Y = radius * math.Cos(theta)
		cmp.Ratio = 1.0
		if len(fields) >= 7 {
			if cmp.Major, free, err = modField(fields[3]); err != nil {
				return nil, err
			}
			if free {
				cmp.Freepar |= FreeMajor
			}
			cmp.Major = units.XYtoRad(cmp.Major)
			if cmp.Ratio, free, err = modField(fields[4]); err != nil {
				return nil, err
			}
			if free {
				cmp.Freepar |= FreeRatio
			}
			if cmp.Phi, free, err = modField(fields[5]); err != nil {
				return nil, err
			}
			if free {
				cmp.Freepar |= FreePhi
			}
			cmp.Phi *= D2R
			t, err := strconv.Atoi(fields[6])
			if err != nil || t < 0 || t > int(RectCmp) {
				return nil, fmt.Errorf("%w: %s line %d: bad component type '%s'",
					ErrParse, path, lineno, fields[6])
			}
			cmp.Type = CmpType(t)
		}
		if len(fields) >= 9 {
			if cmp.Freq0, _, err = modField(fields[7]); err != nil {
				return nil, err
			}
			if cmp.SpcInd, free, err = modField(fields[8]); err != nil {
				return nil, err
			}
			if free {
				cmp.Freepar |= FreeSpcInd
			}
		}
		m.Add(cmp)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return m, nil
}

/* multi-model table ----------------------------------------------------------*/

/* a mapping from selection keys (pol, canonical channel ranges) to the model
 * pair of that selection */
type Modtab struct {
	tab map[string]*modpair
}

type modpair struct {
	est, tent *Model
}

func NewModtab() *Modtab {
	return &Modtab{tab: make(map[string]*modpair)}
}

/* the canonical key of a selection -------------------------------------------*/
func selKey(pol Stokes, cl []ChanRange) string {
	var sb strings.Builder
	sb.WriteString(pol.String())
	for _, r := range cl {
		fmt.Fprintf(&sb, ":%d-%d", r.Ca, r.Cb)
	}
	return sb.String()
}

/* record the resident model pair of a selection ------------------------------*/
func (mt *Modtab) Record(pol Stokes, cl []ChanRange, est, tent *Model) {
	mt.tab[selKey(pol, cl)] = &modpair{est: est, tent: tent}
}

/* install the model pair of a selection, removing it from the table. A
 * selection never seen before gets a fresh empty pair. */
func (mt *Modtab) Install(pol Stokes, cl []ChanRange) (est, tent *Model) {
	key := selKey(pol, cl)
	if mp, ok := mt.tab[key]; ok {
		delete(mt.tab, key)
		return mp.est, mp.tent
	}
	return &Model{}, &Model{}
}

/* number of recorded selections ----------------------------------------------*/
func (mt *Modtab) Len() int {
	return len(mt.tab)
}

/* write the multi-model table, one section per selection key -----------------*/
func (mt *Modtab) Write(path string, units *SkyUnits) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()
	w := bufio.NewWriter(fp)
	defer w.Flush()

	keys := make([]string, 0, len(mt.tab))
	for k := range mt.tab {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		mp := mt.tab[key]
		fmt.Fprintf(w, "section %s\n", key)
		writeModcmps(w, mp.est, units)
		fmt.Fprintf(w, "tentative\n")
		writeModcmps(w, mp.tent, units)
		fmt.Fprintf(w, "end\n")
	}
	return nil
}

func writeModcmps(w *bufio.Writer, m *Model, units *SkyUnits) {
	if units == nil {
		units = DefaultUnits()
	}
	for i := range m.Cmp {
		cmp := &m.Cmp[i]
		radius := math.Hypot(cmp.X, cmp.Y)
		theta := 0.0
		if radius > 0.0 {
			theta = math.Atan2(cmp.X, cmp.Y)
		}
		fmt.Fprintf(w, "%.7g %.7g %.7g %.7g %.7g %.7g %d %.7g %.7g %d\n",
			cmp.Flux, units.RadToXY(radius), theta*R2D,
			units.RadToXY(cmp.Major), cmp.Ratio, cmp.Phi*R2D,
			int(cmp.Type), cmp.Freq0, cmp.SpcInd, cmp.Freepar)
	}
}

/* read a multi-model table written by Write ----------------------------------*/
func ReadModtab(path string, units *SkyUnits) (*Modtab, error) {
	if units == nil {
		units = DefaultUnits()
	}
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()

	mt := NewModtab()
	scan := bufio.NewScanner(fp)
	var key string
	var cur *modpair
	var dst *Model
	lineno := 0
	for scan.Scan() {
		lineno++
		line := strings.TrimSpace(scan.Text())
		if len(line) == 0 || line[0] == '!' {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "section":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: %s line %d: bad section header", ErrParse, path, lineno)
			}
			key = fields[1]
			cur = &modpair{est: &Model{}, tent: &Model{}}
			dst = cur.est
		case "tentative":
			if cur == nil {
				return nil, fmt.Errorf("%w: %s line %d: tentative outside section", ErrParse, path, lineno)
			}
			dst = cur.tent
		case "end":
			if cur == nil {
				return nil, fmt.Errorf("%w: %s line %d: end outside section", ErrParse, path, lineno)
			}
			mt.tab[key] = cur
			cur, dst = nil, nil
		default:
			if dst == nil {
				return nil, fmt.Errorf("%w: %s line %d: component outside section", ErrParse, path, lineno)
			}
			if len(fields) < 10 {
				return nil, fmt.Errorf("%w: %s line %d: too few columns", ErrParse, path, lineno)
			}
			var v [9]float64
			for i := 0; i < 9; i++ {
				if v[i], err = strconv.ParseFloat(fields[i], 64); err != nil {
					return nil, fmt.Errorf("%w: %s line %d: bad field '%s'",
						ErrParse, path, lineno, fields[i])
				}
			}
			freepar, err := strconv.Atoi(fields[9])
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d: bad freepar", ErrParse, path, lineno)
			}
			radius := units.XYtoRad(v[1])
			theta := v[2] * D2R
			dst.Add(Modcmp{
				Type: CmpType(int(v[6])), Flux: v[0],
				X: radius * math.Sin(theta), Y: radius * math.Cos(theta),
				Major: units.XYtoRad(v[3]), Ratio: v[4], Phi: v[5] * D2R,
				Freq0: v[7], SpcInd: v[8], Freepar: freepar,
			})
		}
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return mt, nil
}
