package testing

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/wwwserver/pkg/store/medium"
)

// Tree is the content every suite run starts from. Keys are file paths.
var Tree = map[string]string{
	"/index.html":     "<html>home</html>",
	"/docs/a.txt":     "alpha",
	"/docs/b.txt":     "bravo bravo",
	"/docs/sub/c.txt": "charlie",
	"/big.bin":        string(make([]byte, 1000)),
}

// MediumTestSuite checks the medium.Medium contract against any backend.
type MediumTestSuite struct {
	// NewMedium creates a medium holding tree.
	NewMedium func(t *testing.T, tree map[string]string) medium.Medium
}

// Run executes all tests in the suite.
func (suite *MediumTestSuite) Run(t *testing.T) {
	t.Run("Open", suite.RunOpenTests)
	t.Run("Read", suite.RunReadTests)
	t.Run("Directory", suite.RunDirectoryTests)
}

func (suite *MediumTestSuite) newMedium(t *testing.T) medium.Medium {
	t.Helper()
	m := suite.NewMedium(t, Tree)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// RunOpenTests covers kinds, sizes and missing paths.
func (suite *MediumTestSuite) RunOpenTests(t *testing.T) {
	ctx := context.Background()
	m := suite.newMedium(t)

	tests := []struct {
		path  string
		isDir bool
		size  int64
		name  string
	}{
		{"/", true, 0, "/"},
		{"/index.html", false, 17, "index.html"},
		{"/docs", true, 0, "docs"},
		{"/docs/", true, 0, "docs"},
		{"/docs/sub/c.txt", false, 7, "c.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := m.Open(ctx, tt.path)
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, tt.isDir, f.IsDir())
			assert.Equal(t, tt.size, f.Size())
			assert.Equal(t, tt.name, f.Name())

			ok, err := m.Exists(ctx, tt.path)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}

	_, err := m.Open(ctx, "/missing.html")
	assert.ErrorIs(t, err, medium.ErrNotFound)

	ok, err := m.Exists(ctx, "/docs/missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

// RunReadTests covers chunked reads, seeking and Available.
func (suite *MediumTestSuite) RunReadTests(t *testing.T) {
	ctx := context.Background()
	m := suite.newMedium(t)

	f, err := m.Open(ctx, "/big.bin")
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 300)
	total, reads := 0, 0
	for f.Available() {
		n, err := f.Read(ctx, buf)
		require.NoError(t, err)
		require.Greater(t, n, 0)
		total += n
		reads++
	}
	assert.Equal(t, 1000, total)
	assert.Equal(t, 4, reads)

	n, err := f.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	g, err := m.Open(ctx, "/docs/b.txt")
	require.NoError(t, err)
	defer g.Close()

	require.NoError(t, g.Seek(6))
	n, err = g.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "bravo", string(buf[:n]))
	assert.False(t, g.Available())

	assert.ErrorIs(t, g.Seek(100), medium.ErrInvalidOffset)
}

// RunDirectoryTests covers enumeration and rewinding.
func (suite *MediumTestSuite) RunDirectoryTests(t *testing.T) {
	ctx := context.Background()
	m := suite.newMedium(t)

	d, err := m.Open(ctx, "/docs")
	require.NoError(t, err)
	defer d.Close()

	first := collect(t, ctx, d)
	assert.ElementsMatch(t, []medium.DirEntry{
		{Name: "a.txt", Size: 5},
		{Name: "b.txt", Size: 11},
		{Name: "sub", IsDir: true},
	}, first)

	require.NoError(t, d.Rewind(ctx))
	assert.ElementsMatch(t, first, collect(t, ctx, d))

	f, err := m.Open(ctx, "/index.html")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.NextEntry(ctx)
	assert.ErrorIs(t, err, medium.ErrNotDirectory)
}

func collect(t *testing.T, ctx context.Context, d medium.File) []medium.DirEntry {
	t.Helper()
	var entries []medium.DirEntry
	for i := 0; i < 100; i++ {
		e, err := d.NextEntry(ctx)
		if errors.Is(err, io.EOF) {
			return entries
		}
		require.NoError(t, err)
		entries = append(entries, e)
	}
	t.Fatal("directory enumeration never ended")
	return nil
}
