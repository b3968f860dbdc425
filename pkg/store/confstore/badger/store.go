// Package badger implements a confstore.Store persisted in BadgerDB.
//
// Sections are imported from INI documents with Import and looked up with a
// single point read per GetValue call.
package badger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/wwwserver/pkg/store/confstore"
)

// Config configures the BadgerDB store.
type Config struct {
	// DBPath is the database directory. Ignored when InMemory is set.
	DBPath string
	// InMemory keeps the database in RAM only.
	InMemory bool
}

// Store is a BadgerDB-backed site configuration.
type Store struct {
	db *badger.DB
}

// New opens or creates the database.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.DBPath)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) GetValue(ctx context.Context, section, key string, buf []byte, _ *confstore.ReadState) (confstore.Status, int, error) {
	if err := ctx.Err(); err != nil {
		return confstore.StatusInProgress, 0, err
	}

	status := confstore.StatusSectionNotFound
	n := 0

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyValue(section, key))
		if err == nil {
			if int(item.ValueSize()) > len(buf) {
				return confstore.ErrBufferTooSmall
			}
			value, err := item.ValueCopy(buf[:0])
			if err != nil {
				return err
			}
			status, n = confstore.StatusFound, len(value)
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if _, err := txn.Get(keySection(section)); err == nil {
			status = confstore.StatusKeyNotFound
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrDBClosed) {
			err = confstore.ErrClosed
		}
		return confstore.StatusInProgress, 0, fmt.Errorf("lookup [%s] %s: %w", section, key, err)
	}
	return status, n, nil
}

// Set stores one value, creating the section marker as needed.
func (s *Store) Set(ctx context.Context, section, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keySection(section), nil); err != nil {
			return err
		}
		return txn.Set(keyValue(section, key), []byte(value))
	})
}

// DeleteSection removes a section and all of its keys.
func (s *Store) DeleteSection(ctx context.Context, section string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyValuePrefix(section)

		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return txn.Delete(keySection(section))
	})
}

// Sections lists the section names in key order.
func (s *Store) Sections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sections []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixSection)

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			sections = append(sections, string(it.Item().Key()[len(prefixSection):]))
		}
		return nil
	})
	return sections, err
}

// Import reads an INI document and writes every section and key. Existing
// entries with the same names are overwritten; other entries are kept.
// It returns the number of key/value pairs written.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	wb := s.db.NewWriteBatch()
	count := 0
	fail := func(err error) (int, error) {
		wb.Cancel()
		return count, err
	}

	scanner := bufio.NewScanner(r)
	section := ""
	inSection := false

	for lineNo := 1; scanner.Scan(); lineNo++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		kind, name, value := confstore.ParseLine(scanner.Bytes())
		switch kind {
		case confstore.LineSection:
			section, inSection = string(name), true
			if err := wb.Set(keySection(section), nil); err != nil {
				return fail(err)
			}
		case confstore.LineKeyValue:
			if !inSection {
				return fail(fmt.Errorf("line %d: key outside of a section: %w", lineNo, confstore.ErrSyntax))
			}
			if err := wb.Set(keyValue(section, string(name)), append([]byte(nil), value...)); err != nil {
				return fail(err)
			}
			count++
		case confstore.LineInvalid:
			return fail(fmt.Errorf("line %d: %w", lineNo, confstore.ErrSyntax))
		}
	}
	if err := scanner.Err(); err != nil {
		return fail(fmt.Errorf("read INI document: %w", err))
	}

	if err := wb.Flush(); err != nil {
		return count, fmt.Errorf("write sections: %w", err)
	}
	return count, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
