/*------------------------------------------------------------------------------
* gainplot : solve and export self-calibration gains for monitoring
*
* options : gainplot [-e prefix][-amp][-float][-solint min]
*                    [-g pushgateway][-i influx-url][-o org][-b bucket][-a token]
*
*           -e prefix  saved difmap environment to load (prefix.par ...)
*           -amp       solve amplitudes as well as phases
*           -solint m  solution interval in minutes (0: per integration)
*           -g url     prometheus push gateway (empty: skip)
*           -i url     influxdb server url (empty: skip)
*
* history : 2023/05/22 1.0  new
*-----------------------------------------------------------------------------*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	influxdb "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"vlbigo"
)

const PROGNAME = "gainplot"

func main() {
	var (
		prefix  = flag.String("e", "", "saved difmap environment prefix")
		doamp   = flag.Bool("amp", false, "solve amplitudes as well as phases")
		dofloat = flag.Bool("float", false, "skip the amplitude normalisation")
		solint  = flag.Float64("solint", 0.0, "solution interval (minutes)")
		gateway = flag.String("g", "", "prometheus push gateway url")
		influx  = flag.String("i", "", "influxdb server url")
		org     = flag.String("o", "vlbi", "influxdb organisation")
		bucket  = flag.String("b", "gains", "influxdb bucket")
		token   = flag.String("a", "", "influxdb auth token")
	)
	flag.Parse()
	if *prefix == "" {
		fmt.Fprintf(os.Stderr, "%s: a saved environment is required (-e)\n", PROGNAME)
		os.Exit(1)
	}
	if err := run(*prefix, *doamp, *dofloat, *solint, *gateway, *influx, *org, *bucket, *token); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", PROGNAME, err)
		os.Exit(1)
	}
}

/* the mean gain correction of one antenna in one IF --------------------------*/
type gainRow struct {
	sub, cif int
	tel      string
	amp, phs float64
}

func run(prefix string, doamp, dofloat bool, solint float64,
	gateway, influx, org, bucket, token string) error {
	runID := uuid.New().String()
	s := vlbigo.NewSession()
	if err := s.Get(prefix); err != nil {
		return err
	}
	rep, err := s.Ob.Selfcal(doamp, true, dofloat, solint, s.Abort)
	if err != nil {
		return err
	}
	rows := collectGains(s.Ob)
	fmt.Printf("%s: run %s, %d intervals solved, %d gain rows\n",
		PROGNAME, runID, rep.Nsolved, len(rows))

	if gateway != "" {
		if err := pushGains(gateway, runID, rep, rows); err != nil {
			return err
		}
	}
	if influx != "" {
		if err := writeInflux(influx, org, bucket, token, runID, rows); err != nil {
			return err
		}
	}
	return nil
}

/* average the accumulated corrections over time ------------------------------*/
func collectGains(ob *vlbigo.Observation) []gainRow {
	var rows []gainRow
	for isub, sub := range ob.Sub {
		for cif := 0; cif < ob.NIF; cif++ {
			for a := range sub.Tel {
				var amp, phs float64
				n := 0
				for t := range sub.Integ {
					c := sub.Integ[t].Tcor[cif][a]
					if c.Bad {
						continue
					}
					amp += c.Amp
					phs += c.Phs
					n++
				}
				if n == 0 {
					continue
				}
				rows = append(rows, gainRow{
					sub: isub + 1, cif: cif + 1, tel: sub.Tel[a].Name,
					amp: amp / float64(n), phs: phs / float64(n),
				})
			}
		}
	}
	return rows
}

func pushGains(gateway, runID string, rep *vlbigo.SelfcalReport, rows []gainRow) error {
	ampG := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "selfcal_gain_amp",
		Help: "mean self-cal amplitude correction",
	}, []string{"antenna", "subarray", "ifno"})
	phsG := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "selfcal_gain_phase",
		Help: "mean self-cal phase correction (rad)",
	}, []string{"antenna", "subarray", "ifno"})
	rmsG := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "selfcal_rms",
		Help: "model-data rms after self-cal (Jy)",
	})
	for _, r := range rows {
		lab := prometheus.Labels{
			"antenna":  r.tel,
			"subarray": fmt.Sprintf("%d", r.sub),
			"ifno":     fmt.Sprintf("%d", r.cif),
		}
		ampG.With(lab).Set(r.amp)
		phsG.With(lab).Set(r.phs)
	}
	rmsG.Set(rep.RmsPost)
	return push.New(gateway, PROGNAME).
		Grouping("run", runID).
		Collector(ampG).Collector(phsG).Collector(rmsG).
		Push()
}

func writeInflux(url, org, bucket, token, runID string, rows []gainRow) error {
	client := influxdb.NewClient(url, token)
	defer client.Close()
	api := client.WriteAPIBlocking(org, bucket)
	now := time.Now()
	for _, r := range rows {
		p := influxdb.NewPointWithMeasurement("selfcal_gain").
			AddTag("run", runID).
			AddTag("antenna", r.tel).
			AddTag("subarray", fmt.Sprintf("%d", r.sub)).
			AddTag("ifno", fmt.Sprintf("%d", r.cif)).
			AddField("amp", r.amp).
			AddField("phase", r.phs).
			SetTime(now)
		if err := api.WritePoint(context.Background(), p); err != nil {
			return err
		}
	}
	return nil
}
