/*------------------------------------------------------------------------------
* vlbigo unit test driver : matrix and vector helpers
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"vlbigo"
)

func Test_matAlloc(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(vlbigo.Mat(0, 1))
	assert.Nil(vlbigo.Mat(1, 0))
	assert.NotNil(vlbigo.Mat(1, 1))
	a := vlbigo.Eye(4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if i == j {
				assert.Equal(1.0, a[i+j*4])
			} else {
				assert.Equal(0.0, a[i+j*4])
			}
		}
	}
}

func Test_dotNorm(t *testing.T) {
	assert := assert.New(t)
	a := []float64{1, 2, 3}
	b := []float64{4, 5, 6}
	assert.InDelta(32.0, vlbigo.Dot(a, b, 3), 1.0e-14)
	assert.InDelta(math.Sqrt(14.0), vlbigo.Norm(a, 3), 1.0e-14)
}

func Test_matMulForms(t *testing.T) {
	assert := assert.New(t)
	/* column-major A (2x2) and B (2x2) */
	A := []float64{1, 3, 2, 4} /* [[1 2][3 4]] */
	B := []float64{5, 7, 6, 8} /* [[5 6][7 8]] */
	C := vlbigo.Mat(2, 2)
	vlbigo.MatMul("NN", 2, 2, 2, 1.0, A, B, 0.0, C)
	assert.InDelta(19.0, C[0], 1.0e-12)
	assert.InDelta(43.0, C[1], 1.0e-12)
	assert.InDelta(22.0, C[2], 1.0e-12)
	assert.InDelta(50.0, C[3], 1.0e-12)

	/* A'*A is symmetric positive definite */
	D := vlbigo.Mat(2, 2)
	vlbigo.MatMul("TN", 2, 2, 2, 1.0, A, A, 0.0, D)
	assert.InDelta(D[1], D[2], 1.0e-12)
}

func Test_matInvSolve(t *testing.T) {
	assert := assert.New(t)
	A := []float64{4, 2, 2, 3} /* [[4 2][2 3]] spd */
	Ainv := append([]float64(nil), A...)
	assert.Equal(0, vlbigo.MatInv(Ainv, 2))
	/* A*Ainv = I */
	C := vlbigo.Mat(2, 2)
	vlbigo.MatMul("NN", 2, 2, 2, 1.0, A, Ainv, 0.0, C)
	assert.InDelta(1.0, C[0], 1.0e-12)
	assert.InDelta(0.0, C[1], 1.0e-12)
	assert.InDelta(0.0, C[2], 1.0e-12)
	assert.InDelta(1.0, C[3], 1.0e-12)

	/* a singular matrix is rejected */
	S := []float64{1, 2, 2, 4}
	assert.Equal(-1, vlbigo.MatInv(S, 2))
}

func Test_lsqLine(t *testing.T) {
	assert := assert.New(t)
	/* fit y = 2 + 3x through exact samples */
	xs := []float64{0, 1, 2, 3, 4}
	n, m := 2, len(xs)
	A := vlbigo.Mat(n, m)
	y := vlbigo.Mat(m, 1)
	for i, xv := range xs {
		A[0+i*n] = 1.0
		A[1+i*n] = xv
		y[i] = 2.0 + 3.0*xv
	}
	x := vlbigo.Mat(n, 1)
	Q := vlbigo.Mat(n, n)
	assert.Equal(0, vlbigo.LSQ(A, y, n, m, x, Q))
	assert.InDelta(2.0, x[0], 1.0e-10)
	assert.InDelta(3.0, x[1], 1.0e-10)

	/* fewer samples than parameters is an error */
	assert.Equal(-1, vlbigo.LSQ(A, y, 3, 2, x, Q))
}

func Test_wrapRad(t *testing.T) {
	assert := assert.New(t)
	assert.InDelta(0.0, vlbigo.WrapRad(2.0*vlbigo.PI), 1.0e-12)
	assert.InDelta(-vlbigo.PI/2.0, vlbigo.WrapRad(3.0*vlbigo.PI/2.0), 1.0e-12)
	assert.InDelta(0.5, vlbigo.WrapRad(0.5), 1.0e-12)
}
