/*------------------------------------------------------------------------------
* obs.go : the observation - owner of visibilities, selection and models
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/06 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
)

/* the single mutable owner of one resident dataset. All mutations are
 * serialised by call order; the map/beam grid observes them through the
 * generation counters. */
type Observation struct {
	Name   string  /* source name */
	RefMJD float64 /* reference date of integration times (MJD) */
	RA     float64 /* phase centre right ascension (rad) */
	Dec    float64 /* phase centre declination (rad) */
	Proj   ProjType

	NIF   int /* number of IFs */
	NChan int /* channels per IF */
	NPol  int /* recorded polarizations */
	IFs   []IFrec
	Pols  []Stokes /* the recorded polarization axis */

	Sub []*Subarray

	Stream Stream /* the current selection */
	Geom   Geom   /* accumulated phase centre shift */

	Model   *Model /* established model */
	Newmod  *Model /* tentative model */
	Cmod    *Model /* established continuum model */
	Cnewmod *Model /* tentative continuum model */
	Mtab    *Modtab
	Multi   bool /* multi-model mode */

	Self Selfpar /* self-cal solver controls */

	AntBeam *AntennaBeam /* optional primary beam description */

	datagen  int    /* bumped by any mutation that invalidates the map */
	wtgen    int    /* bumped when weights or flags change */
	edits    []edOp /* buffered cursor edits */
	Modified bool   /* an edit session changed the store */
}

/* construct an empty observation; sub-arrays are added by AddSubarray ---------
* args   : string name      I   source name
*          float64 ra,dec   I   phase centre (rad)
*          []IFrec ifs      I   IF table
*          []Stokes pols    I   recorded polarization axis
* return : observation (no integrations yet)
*-----------------------------------------------------------------------------*/
func NewObservation(name string, ra, dec float64, ifs []IFrec, pols []Stokes) *Observation {
	ob := &Observation{
		Name: name, RA: ra, Dec: dec, Proj: ProjSIN,
		NIF: len(ifs), NChan: 1, NPol: len(pols),
		IFs: ifs, Pols: pols,
		Model: &Model{}, Newmod: &Model{},
		Cmod: &Model{}, Cnewmod: &Model{},
		Mtab: NewModtab(),
		Self: DefaultSelfpar(),
	}
	return ob
}

/* set the number of channels per IF (before any sub-array is added) ----------*/
func (ob *Observation) SetNChan(nchan int) error {
	if nchan < 1 || nchan > MAXCHAN {
		return fmt.Errorf("%w: nchan=%d", ErrOutOfRange, nchan)
	}
	for _, sub := range ob.Sub {
		if len(sub.Integ) > 0 {
			return fmt.Errorf("%w: channel count fixed after data are loaded", ErrStateRequired)
		}
	}
	ob.NChan = nchan
	return nil
}

/* add a sub-array of the given telescopes, with all pair baselines -----------*/
func (ob *Observation) AddSubarray(tels []Telescope) *Subarray {
	ntel := len(tels)
	sub := &Subarray{
		Tel:   append([]Telescope(nil), tels...),
		nif:   ob.NIF,
		nchan: ob.NChan,
		npol:  ob.NPol,
	}
	for i := 0; i < ntel-1; i++ {
		for j := i + 1; j < ntel; j++ {
			sub.Base = append(sub.Base, Baseline{TelA: i, TelB: j})
		}
	}
	for i := range sub.Tel {
		if sub.Tel[i].AntWt == 0.0 {
			sub.Tel[i].AntWt = 1.0
		}
	}
	sub.Bcor = make([][]Blcor, ob.NIF)
	for cif := 0; cif < ob.NIF; cif++ {
		sub.Bcor[cif] = make([]Blcor, len(sub.Base))
		for b := range sub.Bcor[cif] {
			sub.Bcor[cif][b] = Blcor{Amp: 1.0}
		}
	}
	ob.Sub = append(ob.Sub, sub)
	return sub
}

/* append an empty integration at the given time ------------------------------*/
func (sub *Subarray) AddInteg(ut float64) *Integration {
	nbase := len(sub.Base)
	integ := Integration{
		UT:   ut,
		UVW:  make([]UVWCoord, nbase),
		Dat:  make([]Cvis, nbase*sub.nif*sub.nchan*sub.npol),
		Tcor: make([][]TelGain, sub.nif),
	}
	for cif := 0; cif < sub.nif; cif++ {
		integ.Tcor[cif] = make([]TelGain, len(sub.Tel))
		for t := range integ.Tcor[cif] {
			integ.Tcor[cif][t] = TelGain{Amp: 1.0}
		}
	}
	sub.Integ = append(sub.Integ, integ)
	return &sub.Integ[len(sub.Integ)-1]
}

/* state queries --------------------------------------------------------------*/

func (ob *Observation) HaveData() bool {
	if ob == nil {
		return false
	}
	for _, sub := range ob.Sub {
		if len(sub.Integ) > 0 {
			return true
		}
	}
	return false
}

/* verify that data have been read, else ErrNoData ----------------------------*/
func (ob *Observation) needData(op string) error {
	if !ob.HaveData() {
		Lprnterr("%s: no UV data available\n", op)
		return fmt.Errorf("%w: %s", ErrNoData, op)
	}
	return nil
}

/* verify that a selection has been made, else ErrStateRequired ---------------*/
func (ob *Observation) needSelect(op string) error {
	if err := ob.needData(op); err != nil {
		return err
	}
	if !ob.Stream.Set {
		Lprnterr("%s: no polarization/channel selection has been made\n", op)
		return fmt.Errorf("%w: %s needs a prior select", ErrStateRequired, op)
	}
	return nil
}

/* total number of visibility records (integration x baseline) ----------------*/
func (ob *Observation) Nrec() int {
	n := 0
	for _, sub := range ob.Sub {
		n += len(sub.Integ) * len(sub.Base)
	}
	return n
}

/* staleness signalling -------------------------------------------------------*/

/* record a mutation of the store. A later invert observes it through the
 * generation counters. wts=true (sample weights or flags changed)
 * additionally invalidates the beam. */
func (ob *Observation) MarkDirty(wts bool) {
	ob.datagen++
	if wts {
		ob.wtgen++
	}
}

func (ob *Observation) DataGen() int {
	return ob.datagen
}

func (ob *Observation) WtGen() int {
	return ob.wtgen
}

/* scan handling --------------------------------------------------------------*/

/* set the inter-scan gap threshold of one or all sub-arrays ------------------
* args   : float64 seconds  I   gap above which two integrations start scans
*          int isub         I   sub-array index, or -1 for all
*-----------------------------------------------------------------------------*/
func (ob *Observation) SetScanGap(seconds float64, isub int) error {
	if err := ob.needData("scangap"); err != nil {
		return err
	}
	if seconds < 0.0 {
		return fmt.Errorf("%w: negative scan gap", ErrOutOfRange)
	}
	if isub >= len(ob.Sub) {
		return fmt.Errorf("%w: no sub-array %d", ErrOutOfRange, isub+1)
	}
	if isub < 0 {
		for _, sub := range ob.Sub {
			sub.ScanGap = seconds
		}
	} else {
		ob.Sub[isub].ScanGap = seconds
	}
	return nil
}

/* return the indexes at which each scan of a sub-array starts ----------------*/
func (sub *Subarray) ScanStarts() []int {
	gap := sub.ScanGap
	if gap <= 0.0 {
		gap = 3600.0 /* the default scan delimiting gap */
	}
	var starts []int
	for i := range sub.Integ {
		if i == 0 || sub.Integ[i].UT-sub.Integ[i-1].UT > gap {
			starts = append(starts, i)
		}
	}
	return starts
}

/* per-telescope self-cal controls --------------------------------------------*/

/* set the self-cal weight and hold status of a telescope by name -------------*/
func (ob *Observation) SelfAnt(name string, antwt float64, antfix bool) error {
	if err := ob.needData("selfant"); err != nil {
		return err
	}
	found := false
	for _, sub := range ob.Sub {
		for i := range sub.Tel {
			if sub.Tel[i].Name == name {
				sub.Tel[i].AntWt = antwt
				sub.Tel[i].AntFix = antfix
				found = true
			}
		}
	}
	if !found {
		return fmt.Errorf("%w: unknown telescope '%s'", ErrOutOfRange, name)
	}
	return nil
}

/* lookup a telescope index by name within a sub-array ------------------------*/
func (sub *Subarray) TelIndex(name string) int {
	for i := range sub.Tel {
		if sub.Tel[i].Name == name {
			return i
		}
	}
	return -1
}

/* a short descriptive line used by file headers and the shell ----------------*/
func (ob *Observation) Summary() string {
	ntel := 0
	for _, sub := range ob.Sub {
		ntel += len(sub.Tel)
	}
	return fmt.Sprintf("%s: %d sub-arrays, %d telescopes, %d IFs, %d channels, %d records",
		ob.Name, len(ob.Sub), ntel, ob.NIF, ob.NChan, ob.Nrec())
}
