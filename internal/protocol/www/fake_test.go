package www

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/wwwserver/internal/clock"
	"github.com/marmos91/wwwserver/pkg/store/confstore"
	confmemory "github.com/marmos91/wwwserver/pkg/store/confstore/memory"
	mediummemory "github.com/marmos91/wwwserver/pkg/store/medium/memory"
	"github.com/marmos91/wwwserver/pkg/transport"
)

// fakeClient is an in-memory transport.Client. Inbound bytes are queued up
// front; peerClosed marks that the peer sent everything it will send and full
// that the inbound buffer has no room left.
type fakeClient struct {
	in         []byte
	out        bytes.Buffer
	closed     bool
	peerClosed bool
	full       bool
	local      net.Addr
}

func newFakeClient(request string) *fakeClient {
	return &fakeClient{
		in:    []byte(request),
		local: &net.TCPAddr{IP: net.IPv4(192, 168, 1, 20), Port: 80},
	}
}

func (c *fakeClient) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c *fakeClient) Connected() bool {
	return !c.closed && (!c.peerClosed || len(c.in) > 0)
}

func (c *fakeClient) Buffered() int { return len(c.in) }

func (c *fakeClient) HasLine() bool {
	if len(c.in) == 0 {
		return false
	}
	return c.full || c.peerClosed || bytes.ContainsAny(c.in, "\r\n")
}

func (c *fakeClient) ReadByte() (byte, error) {
	if len(c.in) == 0 {
		return 0, transport.ErrNoData
	}
	b := c.in[0]
	c.in = c.in[1:]
	return b, nil
}

func (c *fakeClient) PeekByte() (byte, error) {
	if len(c.in) == 0 {
		return 0, transport.ErrNoData
	}
	return c.in[0], nil
}

func (c *fakeClient) LocalAddr() net.Addr  { return c.local }
func (c *fakeClient) RemoteAddr() net.Addr { return &net.TCPAddr{IP: net.IPv4(192, 168, 1, 99), Port: 40000} }

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

// fakeListener hands out queued clients.
type fakeListener struct {
	pending []transport.Client
}

func (l *fakeListener) push(c transport.Client) { l.pending = append(l.pending, c) }

func (l *fakeListener) Accept() (transport.Client, bool) {
	if len(l.pending) == 0 {
		return nil, false
	}
	c := l.pending[0]
	l.pending = l.pending[1:]
	return c, true
}

// recordingStore remembers every section it was asked about.
type recordingStore struct {
	confstore.Store
	sections []string
	err      error
}

func (s *recordingStore) GetValue(ctx context.Context, section, key string, buf []byte, st *confstore.ReadState) (confstore.Status, int, error) {
	s.sections = append(s.sections, section)
	if s.err != nil {
		return confstore.StatusInProgress, 0, s.err
	}
	return s.Store.GetValue(ctx, section, key, buf, st)
}

// testSite is the site configuration used by most engine tests.
func testSite() map[string]map[string]string {
	return map[string]map[string]string{
		"/": {
			"handler":            "default",
			"error document 404": "/errors/404.html",
		},
		"/secure": {
			"handler": "forbidden",
		},
		"/private": {
			"handler":            "forbidden",
			"error document 403": "/errors/403.html",
		},
		"/old": {
			"handler":  "moved permanently",
			"location": "/new/",
		},
		"/away": {
			"handler":  "temporary redirect",
			"location": "http://example.com/x",
		},
		"/lost": {
			"handler": "moved permanently",
		},
		"/status": {
			"handler": "status",
		},
		"/cgi-bin": {
			"handler": "cgi",
		},
		"/odd": {
			"handler": "no such handler",
		},
		"mime types": {
			"html":    "text/html",
			"txt":     "text/plain",
			"default": "application/octet-stream",
		},
	}
}

func testTree() map[string]string {
	return map[string]string{
		"/index.html":        "<html>home</html>",
		"/docs/Readme.TXT":   "read me",
		"/docs/guide.html":   "<p>guide</p>",
		"/docs/Images/a.bin": "\x00\x01",
		"/data.bin":          strings.Repeat("0123456789", 100),
		"/empty.txt":         "",
		"/noext":             "plain bytes",
		"/errors/404.html":   "custom not found",
		"/errors/403.html":   "custom forbidden",
		"/odd/page.txt":      "odd",
	}
}

type testEnv struct {
	engine   *Engine
	listener *fakeListener
	store    *confmemory.Store
	medium   *mediummemory.Medium
	clock    *clock.Manual
}

func newTestEnv(t *testing.T, opts ...func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		listener: &fakeListener{},
		store:    confmemory.New(testSite()),
		medium:   mediummemory.New(),
		clock:    clock.NewManual(1000),
	}
	for path, content := range testTree() {
		env.medium.WriteFile(path, []byte(content))
	}
	o := Options{
		Listener: env.listener,
		Store:    env.store,
		Medium:   env.medium,
		Clock:    env.clock,
	}
	for _, opt := range opts {
		opt(&o)
	}
	env.engine = New(o)
	return env
}

// run drives one request from accept to disconnect and returns the states
// seen at the end of every tick.
func (env *testEnv) run(t *testing.T, c *fakeClient, bufSize int) []State {
	t.Helper()
	env.listener.push(c)
	return env.finish(t, bufSize)
}

// finish drives the request in flight until the engine is idle again.
func (env *testEnv) finish(t *testing.T, bufSize int) []State {
	t.Helper()

	ctx := context.Background()
	buf := make([]byte, bufSize)
	var states []State
	for i := 0; i < 10_000; i++ {
		state := env.engine.ProcessRequest(ctx, buf)
		states = append(states, state)
		if state == StateNoClient {
			return states
		}
		if state == StateClosingConnection && env.engine.Stalled() {
			env.clock.Advance(clock.Micros(DefaultDrainDelay))
		}
	}
	require.FailNow(t, "request never finished", "states: %v", states)
	return nil
}

// response splits the client's output into the head and the body.
func response(t *testing.T, c *fakeClient) (string, string) {
	t.Helper()
	head, body, ok := strings.Cut(c.out.String(), "\r\n\r\n")
	require.True(t, ok, "no end of headers in %q", c.out.String())
	return head, body
}

func countState(states []State, s State) int {
	n := 0
	for _, st := range states {
		if st == s {
			n++
		}
	}
	return n
}
