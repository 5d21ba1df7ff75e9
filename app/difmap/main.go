/*------------------------------------------------------------------------------
* difmap : interactive aperture synthesis imaging shell
*
* options : difmap [-k script][-x level][-t tracefile]
*
*           -k file   command script to play back before going interactive
*           -x level  debug trace level (0:off)
*           -t file   trace output file
*
* history : 2023/05/20 1.0  new
*-----------------------------------------------------------------------------*/
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vlbigo"
)

const PROGNAME = "difmap"

func main() {
	var script, traceFile, confFile string
	var traceLevel int

	root := &cobra.Command{
		Use:   PROGNAME,
		Short: "interactive aperture synthesis imaging of radio interferometer data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(script, traceFile, traceLevel, confFile)
		},
	}
	root.Flags().StringVarP(&script, "script", "k", "", "command script to play back")
	root.Flags().StringVarP(&traceFile, "trace", "t", "", "trace output file")
	root.Flags().IntVarP(&traceLevel, "level", "x", 0, "debug trace level (0:off)")
	root.Flags().StringVarP(&confFile, "conf", "c", "", "configuration file")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(script, traceFile string, traceLevel int, confFile string) error {
	/* configuration: flags override the config file */
	v := viper.New()
	v.SetDefault("trace.level", traceLevel)
	v.SetDefault("trace.file", traceFile)
	v.SetDefault("units", "mas")
	v.SetDefault("clean.niter", 100)
	v.SetDefault("clean.gain", 0.05)
	if confFile != "" {
		v.SetConfigFile(confFile)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}
	if traceLevel > 0 {
		v.Set("trace.level", traceLevel)
	}
	if traceFile != "" {
		v.Set("trace.file", traceFile)
	}
	if lv := v.GetInt("trace.level"); lv > 0 {
		vlbigo.TraceOpen(v.GetString("trace.file"))
		vlbigo.TraceLevel(lv)
		defer vlbigo.TraceClose()
	}

	s := vlbigo.NewSession()
	if u, err := vlbigo.SelectUnits(v.GetString("units")); err == nil {
		s.Units = u
	}
	s.Cln.Niter = v.GetInt("clean.niter")
	s.Cln.Gain = v.GetFloat64("clean.gain")

	/* the abort signal is level triggered; long loops poll it */
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)
	go func() {
		for range sigch {
			s.Abort.Raise()
		}
	}()

	if script != "" {
		if err := playScript(s, script); err != nil {
			return err
		}
	}
	if fi, _ := os.Stdin.Stat(); fi != nil && (fi.Mode()&os.ModeCharDevice) == 0 && script != "" {
		return nil
	}
	/* interactive loop */
	in := bufio.NewScanner(os.Stdin)
	fmt.Printf("%s: type commands, 'quit' to exit\n", PROGNAME)
	for {
		fmt.Printf("0>")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "quit" || line == "exit" {
			break
		}
		s.Abort.Clear()
		if err := exec(s, line); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
	return nil
}

func playScript(s *vlbigo.Session, path string) error {
	fp, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	scan := bufio.NewScanner(fp)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if len(line) == 0 || line[0] == '!' {
			continue
		}
		if err := exec(s, line); err != nil {
			return fmt.Errorf("%s: %w", line, err)
		}
	}
	return scan.Err()
}

func fields(line string) (string, []string) {
	fs := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fs) == 0 {
		return "", nil
	}
	return fs[0], fs[1:]
}

func ffloat(args []string, i int, def float64) float64 {
	if i >= len(args) {
		return def
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return def
	}
	return v
}

func fint(args []string, i, def int) int {
	if i >= len(args) {
		return def
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return def
	}
	return v
}

func fbool(args []string, i int, def bool) bool {
	if i >= len(args) {
		return def
	}
	switch strings.ToLower(args[i]) {
	case "true", "t", "1", "yes":
		return true
	case "false", "f", "0", "no":
		return false
	}
	return def
}

/* execute one command line. Operational verbs are handled here; the
 * environment verbs shared with the snapshot loader fall through to the
 * session interpreter. */
func exec(s *vlbigo.Session, line string) error {
	verb, args := fields(line)
	u := s.Units
	ob := s.Ob
	needsFile := map[string]bool{
		"wwins": true, "wmodel": true, "wmap": true, "wobs": true,
		"save": true, "get": true,
	}
	if needsFile[verb] && len(args) < 1 {
		return fmt.Errorf("%s needs a file name", verb)
	}
	switch verb {
	case "":
		return nil
	case "invert":
		return vlbigo.Invert(ob, s.Map, &s.Inv, s.Abort)
	case "clean":
		/* with arguments this both sets the defaults and runs */
		if len(args) > 0 {
			s.Cln.Niter = fint(args, 0, s.Cln.Niter)
			s.Cln.Gain = ffloat(args, 1, s.Cln.Gain)
			s.Cln.Cutoff = ffloat(args, 2, s.Cln.Cutoff)
		}
		if !s.Map.MapFresh(ob) {
			if err := vlbigo.Invert(ob, s.Map, &s.Inv, s.Abort); err != nil {
				return err
			}
		}
		_, err := vlbigo.Clean(ob, s.Map, s.Wins, &s.Cln, s.Abort)
		return err
	case "restore":
		bmin := u.XYtoRad(ffloat(args, 0, 0.0))
		bmaj := u.XYtoRad(ffloat(args, 1, 0.0))
		bpa := ffloat(args, 2, 0.0) * vlbigo.D2R
		noresid := fbool(args, 3, false)
		dosm := fbool(args, 4, true)
		if !s.Map.MapFresh(ob) {
			if err := vlbigo.Invert(ob, s.Map, &s.Inv, s.Abort); err != nil {
				return err
			}
		}
		return vlbigo.Restore(ob, s.Map, bmin, bmaj, bpa, noresid, dosm, s.Abort)
	case "keep":
		return ob.Keep()
	case "clrmod":
		return ob.ClrMod(fbool(args, 0, false), fbool(args, 1, true), fbool(args, 2, false))
	case "selfcal":
		_, err := ob.Selfcal(fbool(args, 0, false), true, fbool(args, 1, false),
			ffloat(args, 2, 0.0), s.Abort)
		return err
	case "gscale":
		_, err := ob.GScale(fbool(args, 0, false), s.Abort)
		return err
	case "addwin":
		if len(args) < 4 {
			return fmt.Errorf("addwin needs xa, xb, ya, yb")
		}
		s.Wins.Add(u.XYtoRad(ffloat(args, 0, 0)), u.XYtoRad(ffloat(args, 1, 0)),
			u.XYtoRad(ffloat(args, 2, 0)), u.XYtoRad(ffloat(args, 3, 0)))
		return nil
	case "delwin":
		return s.Wins.Delete(fint(args, 0, 0) - 1)
	case "winmod":
		return ob.WinMod(s.Wins, fbool(args, 0, false))
	case "peakwin":
		_, err := vlbigo.Peakwin(ob, s.Map, s.Wins, ffloat(args, 0, 1.0), fbool(args, 1, true))
		return err
	case "wwins":
		return s.Wins.Write(args[0], u, true)
	case "flag", "unflag":
		spec := ""
		if len(args) > 0 {
			spec = args[0]
		}
		_, err := ob.EditBaselines(spec, verb == "flag", fbool(args, 1, true),
			ffloat(args, 2, 0.0), ffloat(args, 3, 0.0))
		return err
	case "uvaver":
		return ob.UvAver(ffloat(args, 0, 0.0), fbool(args, 1, false))
	case "uncalib":
		return ob.Uncalib(fbool(args, 0, true), fbool(args, 1, true), fbool(args, 2, false))
	case "clroff":
		return ob.ClrOff(fbool(args, 0, true), fbool(args, 1, true))
	case "resoff":
		spec := ""
		if len(args) > 0 {
			spec = args[0]
		}
		return ob.ResOff(spec)
	case "unshift":
		return ob.Unshift(s.Wins)
	case "shiftto":
		if len(args) < 2 {
			return fmt.Errorf("shiftto needs ra, dec")
		}
		ra, err := vlbigo.ParseHMS(args[0])
		if err != nil {
			return err
		}
		dec, err := vlbigo.ParseDMS(args[1])
		if err != nil {
			return err
		}
		return ob.ShiftTo(s.Wins, ra, dec)
	case "modelfit":
		return ob.ModelFit(fint(args, 0, 20), s.Abort)
	case "addcmp":
		if len(args) < 3 {
			return fmt.Errorf("addcmp needs flux, x, y")
		}
		return ob.AddCmp(vlbigo.Modcmp{
			Type: vlbigo.CmpType(fint(args, 6, 0)),
			Flux: ffloat(args, 0, 0.0),
			X:    u.XYtoRad(ffloat(args, 1, 0.0)),
			Y:    u.XYtoRad(ffloat(args, 2, 0.0)),
			Major: u.XYtoRad(ffloat(args, 3, 0.0)),
			Ratio: ffloat(args, 4, 1.0),
			Phi:   ffloat(args, 5, 0.0) * vlbigo.D2R,
		})
	case "wmodel":
		all := &vlbigo.Model{}
		all.AddModel(ob.Model)
		all.AddModel(ob.Newmod)
		return vlbigo.WriteModel(args[0], all, ob.RA, ob.Dec, u)
	case "wmap":
		return vlbigo.WriteMapFITS(ob, s.Map, args[0])
	case "wobs":
		return ob.WriteUVF(args[0], fbool(args, 1, false))
	case "uvstat":
		st, err := ob.VisStats(argOr(args, 0, "amp"),
			u.UVtoWav(ffloat(args, 1, 0.0)), u.UVtoWav(ffloat(args, 2, 0.0)))
		if err != nil {
			return err
		}
		fmt.Printf("n=%d mean=%g sigma=%g scatter=%g min=%g max=%g\n",
			st.N, st.Mean, st.Sigma, st.Scatter, st.Min, st.Max)
		return nil
	case "moddif":
		_, _, _, err := ob.Moddif(u.UVtoWav(ffloat(args, 0, 0.0)), u.UVtoWav(ffloat(args, 1, 0.0)))
		return err
	case "save":
		return s.Save(args[0])
	case "get":
		return s.Get(args[0])
	case "header":
		fmt.Println(ob.Summary())
		return nil
	}
	return s.Exec(line)
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}
