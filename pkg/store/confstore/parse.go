package confstore

import "bytes"

// LineKind classifies one line of an INI document.
type LineKind int

const (
	LineBlank LineKind = iota
	LineSection
	LineKeyValue
	LineInvalid
)

// ParseLine classifies an INI line with any trailing line terminator already
// removed. For sections name is the text between the brackets; for key/value
// pairs name is the key and value the text after the first '=' or ':'. All
// returned slices alias line and are trimmed of surrounding white space.
//
// Lines whose first non-blank byte is ';' or '#' are comments and report as
// LineBlank.
func ParseLine(line []byte) (kind LineKind, name, value []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] == ';' || line[0] == '#' {
		return LineBlank, nil, nil
	}

	if line[0] == '[' {
		end := bytes.IndexByte(line, ']')
		if end < 0 {
			return LineInvalid, nil, nil
		}
		return LineSection, bytes.TrimSpace(line[1:end]), nil
	}

	sep := bytes.IndexAny(line, "=:")
	if sep <= 0 {
		return LineInvalid, nil, nil
	}
	return LineKeyValue, bytes.TrimSpace(line[:sep]), bytes.TrimSpace(line[sep+1:])
}
