/*------------------------------------------------------------------------------
* vlbmath.go : dense matrix and vector helpers
*
* notes  : matrices are stored by column-major order (fortran convention)
*
* history : 2023/04/02 1.0  new
*           2023/06/18 1.1  complex helpers for the antenna gain solver
*-----------------------------------------------------------------------------*/
package vlbigo

import (
	"fmt"
	"math"
	"math/cmplx"
	"os"
)

/* new matrix -----------------------------------------------------------------*/
func Mat(n, m int) []float64 {
	if n <= 0 || m <= 0 {
		return nil
	}
	return make([]float64, n*m)
}

/* new integer matrix ---------------------------------------------------------*/
func IMat(n, m int) []int {
	if n <= 0 || m <= 0 {
		return nil
	}
	return make([]int, n*m)
}

/* new zero matrix ------------------------------------------------------------*/
func Zeros(n, m int) []float64 {
	return Mat(n, m)
}

/* new identity matrix --------------------------------------------------------*/
func Eye(n int) []float64 {
	p := Zeros(n, n)
	for i := 0; i < n; i++ {
		p[i+i*n] = 1.0
	}
	return p
}

/* inner product --------------------------------------------------------------*/
func Dot(a, b []float64, n int) float64 {
	c := 0.0
	for n--; n >= 0; n-- {
		c += a[n] * b[n]
	}
	return c
}

/* euclid norm ----------------------------------------------------------------*/
func Norm(a []float64, n int) float64 {
	return math.Sqrt(Dot(a, a, n))
}

/* copy matrix ----------------------------------------------------------------*/
func MatCpy(A, B []float64, n, m int) {
	copy(A[:n*m], B[:n*m])
}

/* multiply matrix (C=alpha*A*B+beta*C) ----------------------------------------
* args   : char   *tr       I  transpose flags ("N":normal,"T":transpose)
*          int    n,k,m     I  size of (transposed) matrix A,B
*-----------------------------------------------------------------------------*/
func MatMul(tr string, n, k, m int, alpha float64, A, B []float64, beta float64, C []float64) {
	var (
		d    float64
		f    int
		i, j int
		x    int
	)
	if tr[0] == 'N' {
		if tr[1] == 'N' {
			f = 1
		} else {
			f = 2
		}
	} else {
		if tr[1] == 'N' {
			f = 3
		} else {
			f = 4
		}
	}
	for i = 0; i < n; i++ {
		for j = 0; j < k; j++ {
			d = 0.0
			switch f {
			case 1:
				for x = 0; x < m; x++ {
					d += A[i+x*n] * B[x+j*m]
				}
			case 2:
				for x = 0; x < m; x++ {
					d += A[i+x*n] * B[j+x*k]
				}
			case 3:
				for x = 0; x < m; x++ {
					d += A[x+i*m] * B[x+j*m]
				}
			case 4:
				for x = 0; x < m; x++ {
					d += A[x+i*m] * B[j+x*k]
				}
			}
			if beta == 0.0 {
				C[i+j*n] = alpha * d
			} else {
				C[i+j*n] = alpha*d + beta*C[i+j*n]
			}
		}
	}
}

/* LU decomposition -----------------------------------------------------------*/
func LUDcmp(A []float64, n int, indx []int, d *float64) int {
	var (
		big, s, tmp   float64
		i, imax, j, k int
	)
	vv := Mat(n, 1)

	*d = 1.0
	for i = 0; i < n; i++ {
		big = 0.0
		for j = 0; j < n; j++ {
			if tmp = math.Abs(A[i+j*n]); tmp > big {
				big = tmp
			}
		}
		if big > 0.0 {
			vv[i] = 1.0 / big
		} else {
			return -1
		}
	}
	for j = 0; j < n; j++ {
		for i = 0; i < j; i++ {
			s = A[i+j*n]
			for k = 0; k < i; k++ {
				s -= A[i+k*n] * A[k+j*n]
			}
			A[i+j*n] = s
		}
		big = 0.0
		for i = j; i < n; i++ {
			s = A[i+j*n]
			for k = 0; k < j; k++ {
				s -= A[i+k*n] * A[k+j*n]
			}
			A[i+j*n] = s
			if tmp = vv[i] * math.Abs(s); tmp >= big {
				big = tmp
				imax = i
			}
		}
		if j != imax {
			for k = 0; k < n; k++ {
				A[imax+k*n], A[j+k*n] = A[j+k*n], A[imax+k*n]
			}
			*d = -(*d)
			vv[imax] = vv[j]
		}
		indx[j] = imax
		if A[j+j*n] == 0.0 {
			return -1
		}
		if j != n-1 {
			tmp = 1.0 / A[j+j*n]
			for i = j + 1; i < n; i++ {
				A[i+j*n] *= tmp
			}
		}
	}
	return 0
}

/* LU back-substitution -------------------------------------------------------*/
func LUBksb(A []float64, n int, indx []int, b []float64) {
	var s float64

	ii := -1
	for i := 0; i < n; i++ {
		ip := indx[i]
		s = b[ip]
		b[ip] = b[i]
		if ii >= 0 {
			for j := ii; j < i; j++ {
				s -= A[i+j*n] * b[j]
			}
		} else if s != 0.0 {
			ii = i
		}
		b[i] = s
	}
	for i := n - 1; i >= 0; i-- {
		s = b[i]
		for j := i + 1; j < n; j++ {
			s -= A[i+j*n] * b[j]
		}
		b[i] = s / A[i+i*n]
	}
}

/* inverse of matrix ----------------------------------------------------------*/
func MatInv(A []float64, n int) int {
	var d float64

	indx := IMat(n, 1)
	B := Mat(n, n)
	MatCpy(B, A, n, n)
	if LUDcmp(B, n, indx, &d) != 0 {
		return -1
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			A[i+j*n] = 0.0
		}
		A[j+j*n] = 1.0
		LUBksb(B, n, indx, A[j*n:])
	}
	return 0
}

/* solve linear equation A*X=Y ------------------------------------------------*/
func Solve(tr string, A, Y []float64, n, m int, X []float64) int {
	var info int
	B := Mat(n, n)

	MatCpy(B, A, n, n)
	if info = MatInv(B, n); info == 0 {
		tmp := "NN"
		if tr[0] != 'N' {
			tmp = "TN"
		}
		MatMul(tmp, n, m, n, 1.0, B, Y, 0.0, X)
	}
	return info
}

/* least square estimation -----------------------------------------------------
* least square estimation by solving normal equation (x=(A*A')^-1*A*y)
* args   : double *A        I   transpose of (weighted) design matrix (n x m)
*          double *y        I   (weighted) measurements (m x 1)
*          int    n,m       I   number of parameters and measurements (n<=m)
*          double *x        O   estimated parameters (n x 1)
*          double *Q        O   estimated parameters covariance matrix (n x n)
* return : status (0:ok,0>:error)
* notes  : for weighted least square, replace A and y by A*w and w*y (w=W^(1/2))
*-----------------------------------------------------------------------------*/
func LSQ(A, y []float64, n, m int, x, Q []float64) int {
	var info int

	if m < n {
		return -1
	}
	Ay := Mat(n, 1)
	MatMul("NN", n, 1, m, 1.0, A, y, 0.0, Ay) /* Ay=A*y */
	MatMul("NT", n, n, m, 1.0, A, A, 0.0, Q)  /* Q=A*A' */
	if info = MatInv(Q, n); info == 0 {
		MatMul("NN", n, 1, n, 1.0, Q, Ay, 0.0, x) /* x=Q^-1*Ay */
	}
	return info
}

/* print matrix ---------------------------------------------------------------*/
func matfprint(A []float64, n, m, p, q int, fp *os.File) {
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			fmt.Fprintf(fp, " %*.*f", p, q, A[i+j*n])
		}
		fmt.Fprintf(fp, "\n")
	}
}

func MatPrint(A []float64, n, m, p, q int) {
	matfprint(A, n, m, p, q, os.Stdout)
}

/* complex helpers ------------------------------------------------------------*/

/* new complex vector ---------------------------------------------------------*/
func CVec(n int) []complex128 {
	if n <= 0 {
		return nil
	}
	return make([]complex128, n)
}

/* amp/phase to complex -------------------------------------------------------*/
func AmpPhs(amp, phs float64) complex128 {
	return cmplx.Rect(amp, phs)
}

/* wrap an angle into (-pi,pi] ------------------------------------------------*/
func WrapRad(phs float64) float64 {
	for phs > PI {
		phs -= TWOPI
	}
	for phs <= -PI {
		phs += TWOPI
	}
	return phs
}
