package www

import (
	"bytes"
	"context"

	"github.com/marmos91/wwwserver/internal/logger"
	"github.com/marmos91/wwwserver/pkg/store/confstore"
)

// prefixMark records which section of the URL the resolver is trying.
type prefixMark int

const (
	// prefixNone: the full URL.
	prefixNone prefixMark = iota
	// prefixTruncated: url[:cut], the URL up to one of its slashes.
	prefixTruncated
	// prefixRoot: the "/" section, tried last and once.
	prefixRoot
)

// lookup is the resolver substate. The URL itself is never modified while
// walking, so ending a lookup only has to drop the marker.
type lookup struct {
	mark  prefixMark
	cut   int
	store confstore.ReadState
}

type lookupResult int

const (
	lookupPending lookupResult = iota
	lookupFound
	lookupNotFound
)

// beginLookup resets the resolver for a new key. An empty URL goes straight
// to the root section.
func (e *Engine) beginLookup() {
	e.lookup = lookup{}
	if len(e.url) == 0 {
		e.lookup.mark = prefixRoot
	}
}

// prefix returns the URL prefix the resolver is currently trying.
func (e *Engine) prefix() []byte {
	switch e.lookup.mark {
	case prefixTruncated:
		return e.url[:e.lookup.cut]
	case prefixRoot:
		return []byte(rootSection)
	default:
		return e.url
	}
}

// resolve performs one step of looking up key for the current URL, walking
// from the full URL to its parent directories and finally "/". It must be
// called with the same key until it stops returning lookupPending. On
// lookupFound the value occupies buf[:n].
func (e *Engine) resolve(ctx context.Context, key string, buf []byte) (lookupResult, int) {
	section := e.prefix()

	status, n, err := e.store.GetValue(ctx, string(section), key, buf, &e.lookup.store)
	if err != nil {
		logger.Warn("conn=%s lookup [%s] %s: %v", e.connID, section, key, err)
		e.endLookup()
		return lookupNotFound, 0
	}

	switch status {
	case confstore.StatusInProgress:
		return lookupPending, 0
	case confstore.StatusFound:
		e.endLookup()
		return lookupFound, n
	}

	if e.lookup.mark == prefixRoot || bytes.Equal(section, []byte(rootSection)) {
		e.endLookup()
		return lookupNotFound, 0
	}

	slash := bytes.LastIndexByte(section, '/')
	if slash < 0 {
		e.endLookup()
		return lookupNotFound, 0
	}

	e.lookup.store.Reset()
	if slash == 0 {
		e.lookup.mark = prefixRoot
	} else {
		e.lookup.mark = prefixTruncated
		e.lookup.cut = slash
	}
	return lookupPending, 0
}

// endLookup restores the URL view to the full URL.
func (e *Engine) endLookup() {
	e.lookup.mark = prefixNone
	e.lookup.cut = 0
}

// getValue performs one step of a single-section lookup, with no prefix walk.
func (e *Engine) getValue(ctx context.Context, section, key string, buf []byte) (lookupResult, int) {
	status, n, err := e.store.GetValue(ctx, section, key, buf, &e.lookup.store)
	if err != nil {
		logger.Warn("conn=%s lookup [%s] %s: %v", e.connID, section, key, err)
		return lookupNotFound, 0
	}
	switch status {
	case confstore.StatusInProgress:
		return lookupPending, 0
	case confstore.StatusFound:
		return lookupFound, n
	default:
		return lookupNotFound, 0
	}
}
