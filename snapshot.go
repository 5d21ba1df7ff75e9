/*------------------------------------------------------------------------------
* snapshot.go : reproducible environment save and restore
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/05/15 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

/* one resident imaging session: the observation and its peer objects ---------*/
type Session struct {
	Ob    *Observation
	Map   *MapBeam
	Wins  *Winlist
	Inv   InvPar
	Cln   Clnpar
	Units *SkyUnits
	Abort *Abort
}

func NewSession() *Session {
	return &Session{
		Wins:  &Winlist{},
		Inv:   DefaultInvPar(),
		Cln:   DefaultClnpar(),
		Units: DefaultUnits(),
		Abort: &Abort{},
	}
}

/* write a deterministic command snapshot of the session ------------------------
* args   : string prefix    I   file name prefix
* notes  : prefix.par replays to the same state; prefix.uvf, prefix.mod,
*          prefix.cmod, prefix.win and prefix.mtab carry the bulk state.
*-----------------------------------------------------------------------------*/
func (s *Session) Save(prefix string) error {
	ob := s.Ob
	if ob == nil || !ob.HaveData() {
		return fmt.Errorf("%w: save", ErrNoData)
	}
	u := s.Units
	if err := ob.WriteUVF(prefix+".uvf", false); err != nil {
		return err
	}
	/* the established and tentative models in one file */
	allmod := &Model{}
	allmod.AddModel(ob.Model)
	allmod.AddModel(ob.Newmod)
	if allmod.Ncmp() > 0 {
		if err := WriteModel(prefix+".mod", allmod, ob.RA, ob.Dec, u); err != nil {
			return err
		}
	}
	cont := &Model{}
	cont.AddModel(ob.Cmod)
	cont.AddModel(ob.Cnewmod)
	if cont.Ncmp() > 0 {
		if err := WriteModel(prefix+".cmod", cont, ob.RA, ob.Dec, u); err != nil {
			return err
		}
	}
	if s.Wins.Nwin() > 0 {
		if err := s.Wins.Write(prefix+".win", u, false); err != nil {
			return err
		}
	}
	if ob.Multi && ob.Mtab.Len() > 0 {
		if err := ob.Mtab.Write(prefix+".mtab", u); err != nil {
			return err
		}
	}
	if s.Map != nil && s.Map.DoMap != MapStale {
		if err := WriteMapFITS(ob, s.Map, prefix+".fits"); err != nil {
			return err
		}
	}

	fp, err := os.Create(prefix + ".par")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()
	w := bufio.NewWriter(fp)
	defer w.Flush()

	fmt.Fprintf(w, "! Environment snapshot of %s\n", ob.Name)
	fmt.Fprintf(w, "mapunits %s\n", u.Map.Name)
	fmt.Fprintf(w, "observe %s.uvf\n", prefix)
	if ob.Multi {
		fmt.Fprintf(w, "multimodel true\n")
	}
	if ob.Stream.Set {
		fmt.Fprintf(w, "select %s", ob.Stream.Pol)
		for _, r := range ob.Stream.CL {
			fmt.Fprintf(w, ", %d, %d", r.Ca+1, r.Cb+1)
		}
		fmt.Fprintf(w, "\n")
	}
	if s.Map != nil && s.Map.Nx > 0 {
		fmt.Fprintf(w, "mapsize %d, %.10g, %d, %.10g\n",
			s.Map.Nx, u.RadToXY(s.Map.Xinc), s.Map.Ny, u.RadToXY(s.Map.Yinc))
	}
	fmt.Fprintf(w, "uvweight %.10g, %.10g, %v\n", s.Inv.Uvbin, s.Inv.Errpow, s.Inv.Dorad)
	if s.Inv.Gauval > 0.0 {
		fmt.Fprintf(w, "uvtaper %.10g, %.10g\n", s.Inv.Gauval, u.WavToUV(s.Inv.Gaurad))
	}
	if s.Inv.Uvmin > 0.0 || s.Inv.Uvmax > 0.0 {
		fmt.Fprintf(w, "uvrange %.10g, %.10g\n", u.WavToUV(s.Inv.Uvmin), u.WavToUV(s.Inv.Uvmax))
	}
	if s.Inv.Zwt > 0.0 {
		fmt.Fprintf(w, "uvzero %.10g, %.10g\n", s.Inv.Zflux, s.Inv.Zwt)
	}
	fmt.Fprintf(w, "clean %d, %.10g, %.10g\n", s.Cln.Niter, s.Cln.Gain, s.Cln.Cutoff)
	if ob.Self.Gauval > 0.0 {
		fmt.Fprintf(w, "selftaper %.10g, %.10g\n", ob.Self.Gauval, u.WavToUV(ob.Self.Gaurad))
	}
	if ob.Self.Maxamp > 0.0 || ob.Self.Maxphs > 0.0 {
		fmt.Fprintf(w, "selflims %.10g, %.10g\n", ob.Self.Maxamp, ob.Self.Maxphs*R2D)
	}
	if ob.Self.Doflag || ob.Self.Wtmin > 0.0 {
		fmt.Fprintf(w, "selfflag %v, %.10g\n", ob.Self.Doflag, ob.Self.Wtmin)
	}
	for isub, sub := range ob.Sub {
		if sub.ScanGap > 0.0 {
			fmt.Fprintf(w, "scangap %.10g, %d\n", sub.ScanGap, isub+1)
		}
		for i := range sub.Tel {
			tel := &sub.Tel[i]
			if tel.AntWt != 1.0 || tel.AntFix {
				fmt.Fprintf(w, "selfant %s, %v, %.10g\n", tel.Name, tel.AntFix, tel.AntWt)
			}
		}
	}
	if ob.Geom.East != 0.0 || ob.Geom.North != 0.0 {
		fmt.Fprintf(w, "shift %.12g, %.12g\n", u.RadToXY(ob.Geom.East), u.RadToXY(ob.Geom.North))
	}
	if ob.Model.Ncmp()+ob.Newmod.Ncmp() > 0 {
		fmt.Fprintf(w, "rmodel %s.mod\n", prefix)
	}
	if ob.Cmod.Ncmp()+ob.Cnewmod.Ncmp() > 0 {
		fmt.Fprintf(w, "cmodel %s.cmod\n", prefix)
	}
	if s.Wins.Nwin() > 0 {
		fmt.Fprintf(w, "rwins %s.win\n", prefix)
	}
	if ob.Multi && ob.Mtab.Len() > 0 {
		fmt.Fprintf(w, "rmtab %s.mtab\n", prefix)
	}
	Lprintf("Writing difmap environment to %s.par\n", prefix)
	return nil
}

/* restore a session saved by Save ---------------------------------------------
* Reads prefix.par and replays its restricted command set, loading the
* sibling files it names.
*-----------------------------------------------------------------------------*/
func (s *Session) Get(prefix string) error {
	fp, err := os.Open(prefix + ".par")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()
	scan := bufio.NewScanner(fp)
	lineno := 0
	for scan.Scan() {
		lineno++
		line := strings.TrimSpace(scan.Text())
		if len(line) == 0 || line[0] == '!' {
			continue
		}
		if err = s.Exec(line); err != nil {
			return fmt.Errorf("%s.par line %d: %w", prefix, lineno, err)
		}
	}
	if err = scan.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	Lprintf("Restored difmap environment from %s.par\n", prefix)
	return nil
}

/* split a command line into the verb and comma/space separated arguments ----*/
func splitCmd(line string) (string, []string) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

func argF(args []string, i int, def float64) (float64, error) {
	if i >= len(args) {
		return def, nil
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0.0, fmt.Errorf("%w: bad numeric argument '%s'", ErrParse, args[i])
	}
	return v, nil
}

func argI(args []string, i, def int) (int, error) {
	if i >= len(args) {
		return def, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%w: bad integer argument '%s'", ErrParse, args[i])
	}
	return v, nil
}

func argB(args []string, i int, def bool) (bool, error) {
	if i >= len(args) {
		return def, nil
	}
	switch strings.ToLower(args[i]) {
	case "true", "t", "1", "yes":
		return true, nil
	case "false", "f", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: bad boolean argument '%s'", ErrParse, args[i])
}

/* execute one snapshot command ------------------------------------------------
* The recognised verbs are the ones Save writes. Unknown verbs fail with
* ErrParse so that a corrupted file is noticed rather than half-applied.
*-----------------------------------------------------------------------------*/
func (s *Session) Exec(line string) error {
	verb, args := splitCmd(line)
	u := s.Units
	switch verb {
	case "rmodel", "cmodel", "rwins", "rmtab":
		if len(args) < 1 {
			return fmt.Errorf("%w: %s needs a file", ErrParse, verb)
		}
	}
	switch verb {
	case "mapunits":
		if len(args) > 0 {
			nu, err := SelectUnits(args[0])
			if err != nil {
				return err
			}
			s.Units = nu
		}
		return nil
	case "observe":
		if len(args) < 1 {
			return fmt.Errorf("%w: observe needs a file", ErrParse)
		}
		bin, err := argF(args, 1, 0.0)
		if err != nil {
			return err
		}
		sca, err := argB(args, 2, false)
		if err != nil {
			return err
		}
		ob, err := ReadUVF(args[0], bin, sca)
		if err != nil {
			return err
		}
		s.Ob = ob
		return nil
	case "multimodel":
		on, err := argB(args, 0, true)
		if err != nil {
			return err
		}
		if s.Ob == nil {
			return fmt.Errorf("%w: multimodel", ErrNoData)
		}
		s.Ob.Multi = on
		return nil
	case "select":
		if s.Ob == nil {
			return fmt.Errorf("%w: select", ErrNoData)
		}
		if len(args) < 1 {
			return fmt.Errorf("%w: select needs a polarization", ErrParse)
		}
		pol := StokesID(strings.ToUpper(args[0]))
		if pol == NoPol {
			return fmt.Errorf("%w: unknown polarization '%s'", ErrParse, args[0])
		}
		var cl []ChanRange
		for i := 1; i < len(args); i += 2 {
			ca, err := argI(args, i, 1)
			if err != nil {
				return err
			}
			cb, err := argI(args, i+1, ca)
			if err != nil {
				return err
			}
			cl = append(cl, ChanRange{Ca: ca - 1, Cb: cb - 1})
		}
		return s.Ob.Select(pol, cl)
	case "mapsize":
		nx, err := argI(args, 0, 0)
		if err != nil {
			return err
		}
		xinc, err := argF(args, 1, 0.0)
		if err != nil {
			return err
		}
		ny, err := argI(args, 2, nx)
		if err != nil {
			return err
		}
		yinc, err := argF(args, 3, xinc)
		if err != nil {
			return err
		}
		mb, err := NewMapBeam(nx, u.XYtoRad(xinc), ny, u.XYtoRad(yinc))
		if err != nil {
			return err
		}
		s.Map = mb
		return nil
	case "uvweight":
		var err error
		if s.Inv.Uvbin, err = argF(args, 0, s.Inv.Uvbin); err != nil {
			return err
		}
		if s.Inv.Errpow, err = argF(args, 1, s.Inv.Errpow); err != nil {
			return err
		}
		if s.Inv.Dorad, err = argB(args, 2, s.Inv.Dorad); err != nil {
			return err
		}
		return nil
	case "uvtaper":
		var err error
		if s.Inv.Gauval, err = argF(args, 0, 0.0); err != nil {
			return err
		}
		rad, err := argF(args, 1, 0.0)
		if err != nil {
			return err
		}
		s.Inv.Gaurad = u.UVtoWav(rad)
		return nil
	case "uvrange":
		vmin, err := argF(args, 0, 0.0)
		if err != nil {
			return err
		}
		vmax, err := argF(args, 1, 0.0)
		if err != nil {
			return err
		}
		s.Inv.Uvmin = u.UVtoWav(vmin)
		s.Inv.Uvmax = u.UVtoWav(vmax)
		return nil
	case "uvzero":
		var err error
		if s.Inv.Zflux, err = argF(args, 0, 0.0); err != nil {
			return err
		}
		if s.Inv.Zwt, err = argF(args, 1, 0.0); err != nil {
			return err
		}
		return nil
	case "clean":
		var err error
		if s.Cln.Niter, err = argI(args, 0, s.Cln.Niter); err != nil {
			return err
		}
		if s.Cln.Gain, err = argF(args, 1, s.Cln.Gain); err != nil {
			return err
		}
		if s.Cln.Cutoff, err = argF(args, 2, s.Cln.Cutoff); err != nil {
			return err
		}
		return nil
	case "selftaper":
		if s.Ob == nil {
			return fmt.Errorf("%w: selftaper", ErrNoData)
		}
		var err error
		if s.Ob.Self.Gauval, err = argF(args, 0, 0.0); err != nil {
			return err
		}
		rad, err := argF(args, 1, 0.0)
		if err != nil {
			return err
		}
		s.Ob.Self.Gaurad = u.UVtoWav(rad)
		return nil
	case "selflims":
		if s.Ob == nil {
			return fmt.Errorf("%w: selflims", ErrNoData)
		}
		var err error
		if s.Ob.Self.Maxamp, err = argF(args, 0, 0.0); err != nil {
			return err
		}
		deg, err := argF(args, 1, 0.0)
		if err != nil {
			return err
		}
		s.Ob.Self.Maxphs = deg * D2R
		return nil
	case "selfflag":
		if s.Ob == nil {
			return fmt.Errorf("%w: selfflag", ErrNoData)
		}
		var err error
		if s.Ob.Self.Doflag, err = argB(args, 0, false); err != nil {
			return err
		}
		if s.Ob.Self.Wtmin, err = argF(args, 1, 0.0); err != nil {
			return err
		}
		return nil
	case "scangap":
		if s.Ob == nil {
			return fmt.Errorf("%w: scangap", ErrNoData)
		}
		gap, err := argF(args, 0, 0.0)
		if err != nil {
			return err
		}
		isub, err := argI(args, 1, 0)
		if err != nil {
			return err
		}
		return s.Ob.SetScanGap(gap, isub-1)
	case "selfant":
		if s.Ob == nil {
			return fmt.Errorf("%w: selfant", ErrNoData)
		}
		if len(args) < 1 {
			return fmt.Errorf("%w: selfant needs a telescope", ErrParse)
		}
		fix, err := argB(args, 1, false)
		if err != nil {
			return err
		}
		wt, err := argF(args, 2, 1.0)
		if err != nil {
			return err
		}
		return s.Ob.SelfAnt(args[0], wt, fix)
	case "shift":
		if s.Ob == nil {
			return fmt.Errorf("%w: shift", ErrNoData)
		}
		dx, err := argF(args, 0, 0.0)
		if err != nil {
			return err
		}
		dy, err := argF(args, 1, 0.0)
		if err != nil {
			return err
		}
		return s.Ob.Shift(s.Wins, u.XYtoRad(dx), u.XYtoRad(dy))
	case "rmodel":
		if s.Ob == nil {
			return fmt.Errorf("%w: rmodel", ErrNoData)
		}
		m, err := ReadModel(args[0], u)
		if err != nil {
			return err
		}
		s.Ob.Model.Clear()
		s.Ob.Model.AddModel(m)
		s.Ob.MarkDirty(false)
		return nil
	case "cmodel":
		if s.Ob == nil {
			return fmt.Errorf("%w: cmodel", ErrNoData)
		}
		m, err := ReadModel(args[0], u)
		if err != nil {
			return err
		}
		s.Ob.Cmod.Clear()
		s.Ob.Cmod.AddModel(m)
		s.Ob.MarkDirty(false)
		return nil
	case "rwins":
		wl, err := ReadWinlist(args[0], u)
		if err != nil {
			return err
		}
		s.Wins = wl
		return nil
	case "rmtab":
		if s.Ob == nil {
			return fmt.Errorf("%w: rmtab", ErrNoData)
		}
		mt, err := ReadModtab(args[0], u)
		if err != nil {
			return err
		}
		s.Ob.Mtab = mt
		return nil
	}
	return fmt.Errorf("%w: unknown snapshot command '%s'", ErrParse, verb)
}
