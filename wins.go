/*------------------------------------------------------------------------------
* wins.go : clean windows
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/12 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

/* an axis aligned rectangle in map coordinates (rad) -------------------------*/
type Window struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

func (w *Window) Contains(x, y float64) bool {
	return x >= w.Xmin && x <= w.Xmax && y >= w.Ymin && y <= w.Ymax
}

/* the ordered list of clean windows ------------------------------------------*/
type Winlist struct {
	Win []Window
}

/* append a window, normalising the corner order ------------------------------*/
func (wl *Winlist) Add(xa, xb, ya, yb float64) *Window {
	if xa > xb {
		xa, xb = xb, xa
	}
	if ya > yb {
		ya, yb = yb, ya
	}
	wl.Win = append(wl.Win, Window{Xmin: xa, Xmax: xb, Ymin: ya, Ymax: yb})
	return &wl.Win[len(wl.Win)-1]
}

/* delete the window of the given index, or all windows when i<0 --------------*/
func (wl *Winlist) Delete(i int) error {
	if i < 0 {
		wl.Win = wl.Win[:0]
		return nil
	}
	if i >= len(wl.Win) {
		return fmt.Errorf("%w: no window %d", ErrOutOfRange, i+1)
	}
	wl.Win = append(wl.Win[:i], wl.Win[i+1:]...)
	return nil
}

func (wl *Winlist) Nwin() int {
	if wl == nil {
		return 0
	}
	return len(wl.Win)
}

/* true if the point lies inside the union of the windows ---------------------*/
func (wl *Winlist) Contains(x, y float64) bool {
	for i := range wl.Win {
		if wl.Win[i].Contains(x, y) {
			return true
		}
	}
	return false
}

/* shift all windows ----------------------------------------------------------*/
func (wl *Winlist) Shift(east, north float64) {
	for i := range wl.Win {
		wl.Win[i].Xmin += east
		wl.Win[i].Xmax += east
		wl.Win[i].Ymin += north
		wl.Win[i].Ymax += north
	}
}

/* delete model components relative to the windows -----------------------------
* args   : bool outside     I   true: delete components outside the windows
*                               false: delete components inside them
*-----------------------------------------------------------------------------*/
func (ob *Observation) WinMod(wl *Winlist, outside bool) error {
	if err := ob.needData("winmod"); err != nil {
		return err
	}
	if wl.Nwin() == 0 {
		Lprnterr("winmod: no clean windows are defined\n")
		return fmt.Errorf("%w: winmod needs windows", ErrStateRequired)
	}
	ndel := 0
	for _, m := range []*Model{ob.Model, ob.Newmod} {
		kept := m.Cmp[:0]
		for _, cmp := range m.Cmp {
			in := wl.Contains(cmp.X, cmp.Y)
			if in == outside {
				kept = append(kept, cmp)
			} else {
				ndel++
			}
		}
		m.Cmp = kept
		m.Reflux()
	}
	if ndel > 0 {
		ob.MarkDirty(false)
	}
	Lprintf("winmod: deleted %d model components\n", ndel)
	return nil
}

/* window files ---------------------------------------------------------------*/

/* write a clean window list. Each line holds xa xb ya yb in user map units;
 * legacy=true appends the historical emission flag column. */
func (wl *Winlist) Write(path string, units *SkyUnits, legacy bool) error {
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
	for i := range wl.Win {
		win := &wl.Win[i]
		fmt.Fprintf(w, "%.6g %.6g %.6g %.6g",
			units.RadToXY(win.Xmin), units.RadToXY(win.Xmax),
			units.RadToXY(win.Ymin), units.RadToXY(win.Ymax))
		if legacy {
			fmt.Fprintf(w, " 1")
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

/* read a clean window list written by Write ----------------------------------*/
func ReadWinlist(path string, units *SkyUnits) (*Winlist, error) {
	if units == nil {
		units = DefaultUnits()
	}
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer fp.Close()

	wl := &Winlist{}
	scan := bufio.NewScanner(fp)
	lineno := 0
	for scan.Scan() {
		lineno++
		line := strings.TrimSpace(scan.Text())
		if len(line) == 0 || line[0] == '!' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("%w: %s line %d: too few columns", ErrParse, path, lineno)
		}
		var v [4]float64
		for i := 0; i < 4; i++ {
			if v[i], err = strconv.ParseFloat(fields[i], 64); err != nil {
				return nil, fmt.Errorf("%w: %s line %d: bad field '%s'",
					ErrParse, path, lineno, fields[i])
			}
		}
		/* a trailing legacy emission flag is accepted and ignored */
		wl.Add(units.XYtoRad(v[0]), units.XYtoRad(v[1]),
			units.XYtoRad(v[2]), units.XYtoRad(v[3]))
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return wl, nil
}
