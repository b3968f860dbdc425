package www

import "github.com/marmos91/wwwserver/pkg/transport"

// ReadLine consumes one line from c into buf and returns its length. The line
// ends at '\n' or '\r'; the other byte of a CRLF or LFCR pair is discarded
// when it is already buffered. buf[n] is set to 0.
//
// Nothing is consumed and ErrNoData is returned until the client reports a
// complete line. If the line does not fit in len(buf)-1 bytes, or the client's
// inbound buffer runs dry before the terminator while the peer is still
// connected, ErrBufferTooShort is returned and the rest of the line stays
// unread; the contents of buf are then only meaningful up to n.
func ReadLine(c transport.Client, buf []byte) (int, error) {
	if len(buf) < MinBufferSize {
		return 0, ErrBufferTooShort
	}
	if !c.HasLine() {
		return 0, ErrNoData
	}

	n := 0
	for {
		b, err := c.ReadByte()
		if err != nil {
			if c.Connected() {
				// The inbound buffer was full before the terminator arrived.
				buf[n] = 0
				return n, ErrBufferTooShort
			}
			// Final bytes before the peer closed.
			break
		}

		if b == '\n' || b == '\r' {
			partner := byte('\n')
			if b == '\n' {
				partner = '\r'
			}
			if p, err := c.PeekByte(); err == nil && p == partner {
				_, _ = c.ReadByte()
			}
			break
		}

		buf[n] = b
		n++
		if n == len(buf)-1 {
			if p, err := c.PeekByte(); err == nil && (p == '\n' || p == '\r') {
				continue
			}
			buf[n] = 0
			return n, ErrBufferTooShort
		}
	}

	buf[n] = 0
	return n, nil
}

// SplitAndTerminate replaces the first delim in s with 0 and returns its
// index, or -1 when s has no delim. s[:i] is then the token before the
// delimiter and s[i+1:] the remainder.
func SplitAndTerminate(s []byte, delim byte) int {
	for i, b := range s {
		if b == delim {
			s[i] = 0
			return i
		}
	}
	return -1
}
