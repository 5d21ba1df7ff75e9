/*------------------------------------------------------------------------------
* logio.go : diagnostic and trace output
*
*          reworked from the Caltech difmap package of M.C.Shepherd
*
* history : 2023/04/02 1.0  new
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	fpTrace    *os.File /* file pointer of trace */
	levelTrace int      /* level of trace */
	lockTrace  sync.Mutex
	tickTrace  time.Time /* tick at traceopen */
)

/* user-facing diagnostic streams. Commands report through Lprintf/Lprnterr
 * rather than writing to os.Stdout directly, so that a driver can capture
 * or redirect the session transcript. */
var (
	logOut io.Writer = os.Stdout
	logErr io.Writer = os.Stderr
)

/* redirect the diagnostic streams --------------------------------------------*/
func LogOutput(out, errw io.Writer) {
	if out != nil {
		logOut = out
	}
	if errw != nil {
		logErr = errw
	}
}

/* write a line to the session transcript -------------------------------------*/
func Lprintf(format string, v ...interface{}) {
	fmt.Fprintf(logOut, format, v...)
}

/* write a line to the error stream -------------------------------------------*/
func Lprnterr(format string, v ...interface{}) {
	fmt.Fprintf(logErr, format, v...)
}

/* open trace file ------------------------------------------------------------*/
func TraceOpen(file string) {
	var err error
	lockTrace.Lock()
	defer lockTrace.Unlock()
	if fpTrace != nil && fpTrace != os.Stderr {
		fpTrace.Close()
	}
	if len(file) == 0 {
		fpTrace = os.Stderr
	} else if fpTrace, err = os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644); err != nil {
		fpTrace = os.Stderr
	}
	tickTrace = time.Now()
}

/* close trace file -----------------------------------------------------------*/
func TraceClose() {
	lockTrace.Lock()
	defer lockTrace.Unlock()
	if fpTrace != nil && fpTrace != os.Stderr {
		fpTrace.Close()
	}
	fpTrace = nil
}

/* set trace level ------------------------------------------------------------*/
func TraceLevel(level int) {
	levelTrace = level
}

/* output trace ---------------------------------------------------------------*/
func Trace(level int, format string, v ...interface{}) {
	if fpTrace == nil || level > levelTrace {
		return
	}
	lockTrace.Lock()
	defer lockTrace.Unlock()
	fmt.Fprintf(fpTrace, "%d %9.3f: ", level, time.Since(tickTrace).Seconds())
	fmt.Fprintf(fpTrace, format, v...)
}

/* output matrix to trace -----------------------------------------------------*/
func TraceMat(level int, a []float64, n, m, p, q int) {
	if fpTrace == nil || level > levelTrace {
		return
	}
	matfprint(a, n, m, p, q, fpTrace)
}
