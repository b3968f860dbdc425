package www

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/wwwserver/pkg/store/confstore/ini"
	confmemory "github.com/marmos91/wwwserver/pkg/store/confstore/memory"
)

// resolveAll runs a lookup to completion and returns the sections tried.
func resolveAll(t *testing.T, e *Engine, rec *recordingStore, key string) (lookupResult, string) {
	t.Helper()
	buf := make([]byte, 64)
	e.beginLookup()
	for i := 0; i < 100; i++ {
		result, n := e.resolve(context.Background(), key, buf)
		if result != lookupPending {
			return result, string(buf[:n])
		}
	}
	require.FailNow(t, "lookup never finished", "sections: %v", rec.sections)
	return lookupPending, ""
}

func newResolverEngine(sections map[string]map[string]string) (*Engine, *recordingStore) {
	rec := &recordingStore{Store: confmemory.New(sections)}
	e := New(Options{Listener: &fakeListener{}, Store: rec})
	return e, rec
}

func TestResolvePrefixOrder(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		wantSections []string
	}{
		{name: "nested file", url: "/a/b/c.txt", wantSections: []string{"/a/b/c.txt", "/a/b", "/a", "/"}},
		{name: "trailing slash", url: "/dir/", wantSections: []string{"/dir/", "/dir", "/"}},
		{name: "top level", url: "/x", wantSections: []string{"/x", "/"}},
		{name: "root", url: "/", wantSections: []string{"/"}},
		{name: "empty", url: "", wantSections: []string{"/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newResolverEngine(map[string]map[string]string{})
			e.setURLString(tt.url)

			result, _ := resolveAll(t, e, rec, keyHandler)
			assert.Equal(t, lookupNotFound, result)
			assert.Equal(t, tt.wantSections, rec.sections)
			assert.Equal(t, tt.url, e.URL(), "URL must be restored")
		})
	}
}

func TestResolveFindsNearestSection(t *testing.T) {
	e, rec := newResolverEngine(map[string]map[string]string{
		"/":       {"handler": "default"},
		"/secure": {"handler": "forbidden"},
	})
	e.setURLString("/secure/file.txt")

	result, value := resolveAll(t, e, rec, keyHandler)
	require.Equal(t, lookupFound, result)
	assert.Equal(t, "forbidden", value)
	assert.Equal(t, []string{"/secure/file.txt", "/secure"}, rec.sections)
	assert.Equal(t, "/secure/file.txt", e.URL())
}

func TestResolveSkipsSectionWithoutKey(t *testing.T) {
	e, rec := newResolverEngine(map[string]map[string]string{
		"/":     {"location": "/home/"},
		"/a/b":  {"handler": "default"},
		"/a/b/": {},
	})
	e.setURLString("/a/b/")

	result, value := resolveAll(t, e, rec, keyLocation)
	require.Equal(t, lookupFound, result)
	assert.Equal(t, "/home/", value)
	assert.Equal(t, []string{"/a/b/", "/a/b", "/a", "/"}, rec.sections)
}

func TestResolveStoreErrorEndsLookup(t *testing.T) {
	e, rec := newResolverEngine(map[string]map[string]string{"/": {"handler": "default"}})
	rec.err = errors.New("disk on fire")
	e.setURLString("/a/b")

	result, _ := resolveAll(t, e, rec, keyHandler)
	assert.Equal(t, lookupNotFound, result)
	assert.Len(t, rec.sections, 1)
	assert.Equal(t, "/a/b", e.URL())
}

func TestResolveIniStoreTakesSeveralSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.ini")
	require.NoError(t, os.WriteFile(path, []byte(
		"; site\n"+
			"[/]\n"+
			"handler = default\n"+
			"\n"+
			"[/pub]\n"+
			"handler = status\n"), 0o644))

	store, err := ini.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rec := &recordingStore{Store: store}
	e := New(Options{Listener: &fakeListener{}, Store: rec})
	e.setURLString("/pub/x")

	result, value := resolveAll(t, e, rec, keyHandler)
	require.Equal(t, lookupFound, result)
	assert.Equal(t, "status", value)
	assert.Greater(t, len(rec.sections), 2, "a file store needs one step per line")
	assert.Equal(t, "/pub/x", e.URL())
}

func TestGetValueSingleSection(t *testing.T) {
	e, _ := newResolverEngine(testSite())
	buf := make([]byte, 64)

	result, n := e.getValue(context.Background(), sectionMimeTypes, "html", buf)
	require.Equal(t, lookupFound, result)
	assert.Equal(t, "text/html", string(buf[:n]))

	e.lookup.store.Reset()
	result, _ = e.getValue(context.Background(), sectionMimeTypes, "exe", buf)
	assert.Equal(t, lookupNotFound, result)
}
