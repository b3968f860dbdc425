package badger

// Key layout
//
//	Prefix  Key format                    Value
//	"sec:"  sec:<section>                 empty (section marker)
//	"val:"  val:<section>\x00<key>        value bytes
//
// Section names may contain any byte except NUL, so NUL separates the
// section from the key.
const (
	prefixSection = "sec:"
	prefixValue   = "val:"
)

func keySection(section string) []byte {
	return []byte(prefixSection + section)
}

func keyValue(section, key string) []byte {
	b := make([]byte, 0, len(prefixValue)+len(section)+1+len(key))
	b = append(b, prefixValue...)
	b = append(b, section...)
	b = append(b, 0)
	return append(b, key...)
}

func keyValuePrefix(section string) []byte {
	b := make([]byte, 0, len(prefixValue)+len(section)+1)
	b = append(b, prefixValue...)
	b = append(b, section...)
	return append(b, 0)
}
