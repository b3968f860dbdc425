package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/wwwserver/pkg/store/confstore"
)

// Fixture is the site configuration every suite run starts from.
var Fixture = map[string]map[string]string{
	"/": {
		"handler": "default",
	},
	"/docs": {
		"error document 404": "/errors/docs-404.html",
	},
	"/old": {
		"handler":  "moved permanently",
		"location": "/new/",
	},
	"mime types": {
		"html":    "text/html",
		"txt":     "text/plain",
		"default": "application/octet-stream",
	},
}

// StoreTestSuite checks the confstore.Store contract against any backend.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T, sections map[string]map[string]string) confstore.Store {
//	            return mystore.New(sections)
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh store holding sections.
	NewStore func(t *testing.T, sections map[string]map[string]string) confstore.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Lookup", suite.RunLookupTests)
	t.Run("Resumable", suite.RunResumableTests)
	t.Run("Buffer", suite.RunBufferTests)
	t.Run("Closed", suite.RunClosedTests)
}

func (suite *StoreTestSuite) newStore(t *testing.T) confstore.Store {
	t.Helper()
	s := suite.NewStore(t, Fixture)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// RunLookupTests covers the three terminal outcomes.
func (suite *StoreTestSuite) RunLookupTests(t *testing.T) {
	ctx := context.Background()
	s := suite.newStore(t)

	tests := []struct {
		name    string
		section string
		key     string
		status  confstore.Status
		value   string
	}{
		{"root handler", "/", "handler", confstore.StatusFound, "default"},
		{"value with spaces", "/old", "handler", confstore.StatusFound, "moved permanently"},
		{"second key in section", "/old", "location", confstore.StatusFound, "/new/"},
		{"special section", "mime types", "txt", confstore.StatusFound, "text/plain"},
		{"missing key", "/docs", "handler", confstore.StatusKeyNotFound, ""},
		{"missing section", "/nowhere", "handler", confstore.StatusSectionNotFound, ""},
		{"section names are case sensitive", "/OLD", "handler", confstore.StatusSectionNotFound, ""},
		{"key names are case sensitive", "/", "Handler", confstore.StatusKeyNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 128)
			status, n, err := confstore.Lookup(ctx, s, tt.section, tt.key, buf)
			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
			if tt.status == confstore.StatusFound {
				assert.Equal(t, tt.value, string(buf[:n]))
			}
		})
	}
}

// RunResumableTests drives GetValue one step at a time the way the engine
// does and checks that a reset state starts a fresh lookup.
func (suite *StoreTestSuite) RunResumableTests(t *testing.T) {
	ctx := context.Background()
	s := suite.newStore(t)
	buf := make([]byte, 128)

	var st confstore.ReadState
	steps := 0
	for {
		status, n, err := s.GetValue(ctx, "mime types", "default", buf, &st)
		require.NoError(t, err)
		steps++
		require.Less(t, steps, 1000, "lookup never finished")
		if status == confstore.StatusInProgress {
			continue
		}
		require.Equal(t, confstore.StatusFound, status)
		assert.Equal(t, "application/octet-stream", string(buf[:n]))
		break
	}

	st.Reset()
	status, _, err := confstore.Lookup(ctx, s, "/", "handler", buf)
	require.NoError(t, err)
	assert.Equal(t, confstore.StatusFound, status)
}

// RunBufferTests checks that values larger than the buffer are rejected.
func (suite *StoreTestSuite) RunBufferTests(t *testing.T) {
	ctx := context.Background()
	s := suite.newStore(t)

	_, _, err := confstore.Lookup(ctx, s, "mime types", "default", make([]byte, 8))
	assert.ErrorIs(t, err, confstore.ErrBufferTooSmall)
}

// RunClosedTests checks that lookups fail after Close.
func (suite *StoreTestSuite) RunClosedTests(t *testing.T) {
	s := suite.NewStore(t, Fixture)
	require.NoError(t, s.Close())

	_, _, err := confstore.Lookup(context.Background(), s, "/", "handler", make([]byte, 64))
	assert.Error(t, err)
}
