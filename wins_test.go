/*------------------------------------------------------------------------------
* vlbigo unit test driver : clean windows
*-----------------------------------------------------------------------------*/
package vlbigo_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlbigo"
)

func Test_winlistOps(t *testing.T) {
	assert := assert.New(t)
	wl := &vlbigo.Winlist{}
	assert.False(wl.Contains(0.0, 0.0))

	/* corners are normalised on insertion */
	wl.Add(mas(2.0), mas(-2.0), mas(1.0), mas(-1.0))
	require.Equal(t, 1, wl.Nwin())
	assert.True(wl.Win[0].Xmin < wl.Win[0].Xmax)
	assert.True(wl.Contains(0.0, 0.0))
	assert.False(wl.Contains(mas(3.0), 0.0))

	wl.Add(mas(4.0), mas(6.0), mas(4.0), mas(6.0))
	assert.True(wl.Contains(mas(5.0), mas(5.0)))
	require.NoError(t, wl.Delete(1))
	assert.False(wl.Contains(mas(5.0), mas(5.0)))
	assert.ErrorIs(wl.Delete(5), vlbigo.ErrOutOfRange)
	require.NoError(t, wl.Delete(-1))
	assert.Equal(0, wl.Nwin())
}

func Test_winFileRoundTrip(t *testing.T) {
	assert := assert.New(t)
	wl := &vlbigo.Winlist{}
	wl.Add(mas(-2.5), mas(2.5), mas(-1.0), mas(3.0))
	wl.Add(mas(4.0), mas(6.0), mas(-6.0), mas(-4.0))

	path := filepath.Join(t.TempDir(), "test.win")
	require.NoError(t, wl.Write(path, nil, false))
	wl2, err := vlbigo.ReadWinlist(path, nil)
	require.NoError(t, err)
	require.Equal(t, wl.Nwin(), wl2.Nwin())
	for i := range wl.Win {
		assert.InDelta(wl.Win[i].Xmin, wl2.Win[i].Xmin, mas(1.0e-4))
		assert.InDelta(wl.Win[i].Ymax, wl2.Win[i].Ymax, mas(1.0e-4))
	}

	/* the legacy flag adds a trailing column that the reader ignores */
	require.NoError(t, wl.Write(path, nil, true))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		assert.Len(strings.Fields(line), 5)
	}
	wl3, err := vlbigo.ReadWinlist(path, nil)
	require.NoError(t, err)
	assert.Equal(wl.Nwin(), wl3.Nwin())
}

func Test_winFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.win")
	require.NoError(t, os.WriteFile(path, []byte("1 2 3\n"), 0644))
	_, err := vlbigo.ReadWinlist(path, nil)
	assert.ErrorIs(t, err, vlbigo.ErrParse)
}
