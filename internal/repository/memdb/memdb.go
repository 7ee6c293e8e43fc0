// Package memdb implements the entity stores on an in-process go-memdb
// database. It backs the memory store driver and hermetic tests.
package memdb

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/hashicorp/go-memdb"
)

// Table and index names.
const (
	PersonTable  = "person"
	ArticleTable = "article"
	AuditTable   = "entity_audit"

	ID         = "id"
	ByPersonID = "person_id"
	ByEventID  = "event_id"
)

// Schema returns the memdb schema for every table.
func Schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			PersonTable: {
				Name: PersonTable,
				Indexes: map[string]*memdb.IndexSchema{
					ID: {
						Name:    ID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
				},
			},
			ArticleTable: {
				Name: ArticleTable,
				Indexes: map[string]*memdb.IndexSchema{
					ID: {
						Name:    ID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					ByPersonID: {
						Name:    ByPersonID,
						Indexer: &memdb.IntFieldIndex{Field: "PersonID"},
					},
				},
			},
			AuditTable: {
				Name: AuditTable,
				Indexes: map[string]*memdb.IndexSchema{
					ID: {
						Name:    ID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					ByEventID: {
						Name:    ByEventID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "EventID"},
					},
				},
			},
		},
	}
}

// Store owns the in-memory database and the identity sequences.
type Store struct {
	db *memdb.MemDB

	personSeq  atomic.Int64
	articleSeq atomic.Int64
	auditSeq   atomic.Int64
}

// New creates an empty Store.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(Schema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

type txnKey struct{}

// WithinTx runs fn in one write transaction. memdb admits a single writer,
// so transactions are serialized. Nested calls reuse the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txn, ok := ctx.Value(txnKey{}).(*memdb.Txn); ok && txn != nil {
		return fn(ctx)
	}

	txn := s.db.Txn(true)
	if err := fn(context.WithValue(ctx, txnKey{}, txn)); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	return nil
}

// write runs fn in the transaction bound to ctx or in a new one.
func (s *Store) write(ctx context.Context, fn func(txn *memdb.Txn) error) error {
	return s.WithinTx(ctx, func(ctx context.Context) error {
		return fn(ctx.Value(txnKey{}).(*memdb.Txn))
	})
}

// read returns the transaction bound to ctx or a fresh read snapshot.
func (s *Store) read(ctx context.Context) *memdb.Txn {
	if txn, ok := ctx.Value(txnKey{}).(*memdb.Txn); ok && txn != nil {
		return txn
	}
	return s.db.Txn(false)
}

func first[R any](txn *memdb.Txn, table, index string, args ...any) (R, bool, error) {
	var zero R
	raw, err := txn.First(table, index, args...)
	if err != nil {
		return zero, false, err
	}
	if raw == nil {
		return zero, false, nil
	}
	row, ok := raw.(R)
	if !ok {
		return zero, false, fmt.Errorf("cannot cast %s row", table)
	}
	return row, true, nil
}

func all[R any](txn *memdb.Txn, table string) ([]R, error) {
	it, err := txn.Get(table, ID)
	if err != nil {
		return nil, err
	}
	var rows []R
	for raw := it.Next(); raw != nil; raw = it.Next() {
		row, ok := raw.(R)
		if !ok {
			return nil, fmt.Errorf("cannot cast %s row", table)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// field extracts a sortable value from a row: int64, *string or time.Time.
type field[R any] func(row R) any

// sortRows orders rows by sorts, falling back to id ascending. Nulls sort
// last ascending and first descending.
func sortRows[R any](rows []R, sorts []model.Sort, fields map[string]field[R]) error {
	for _, o := range sorts {
		if _, ok := fields[o.Property]; !ok {
			return fmt.Errorf("unsupported sort property %q", o.Property)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range sorts {
			get := fields[o.Property]
			c := compareValues(get(rows[i]), get(rows[j]))
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return compareValues(fields[ID](rows[i]), fields[ID](rows[j])) < 0
	})
	return nil
}

// compareValues treats nil strings as greater than any value.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case int64:
		return cmp.Compare(av, b.(int64))
	case time.Time:
		return av.Compare(b.(time.Time))
	case string:
		return strings.Compare(av, b.(string))
	case *string:
		bv := b.(*string)
		switch {
		case av == nil && bv == nil:
			return 0
		case av == nil:
			return 1
		case bv == nil:
			return -1
		default:
			return strings.Compare(*av, *bv)
		}
	}
	return 0
}

// paginate slices rows to req and wraps them in a page.
func paginate[R any, T any](rows []R, req model.PageRequest, convert func(R) T) *model.Page[T] {
	total := len(rows)
	start := req.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := total
	if req.Size > 0 && req.Size < total-start {
		end = start + req.Size
	}

	content := make([]T, 0, end-start)
	for _, row := range rows[start:end] {
		content = append(content, convert(row))
	}
	return &model.Page[T]{Content: content, Total: int64(total), Page: req.Page, Size: req.Size}
}
