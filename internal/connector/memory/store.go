// Package memory implements an in-process connector used by tests and by
// the getting-started scenario of §8: a table is just a slice of rows
// guarded by a mutex, with no pushdown cost model beyond "everything is
// free". It is the simplest possible connector and therefore also the
// reference implementation every other connector in this tree is checked
// against.
package memory

import (
	"fmt"
	"sync"

	"ansilo/internal/data"
	"ansilo/internal/entity"
)

// Row is one mutable record of a Table. Handles address rows by pointer;
// there is no row id distinct from the declared attributes (see
// planner.GetRowIdExprs).
type Row struct {
	Values  []data.Value
	deleted bool
}

// Table is one named, schema-bound collection of rows.
type Table struct {
	mu     sync.RWMutex
	Entity *entity.Config
	Rows   []*Row
}

func NewTable(cfg *entity.Config) *Table {
	return &Table{Entity: cfg}
}

func (t *Table) columnIndex(attrID string) (int, error) {
	for i, a := range t.Entity.Attributes {
		if a.ID == attrID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("memory: entity %q has no attribute %q", t.Entity.ID, attrID)
}

// Insert appends a new row built from an attribute-id -> Value map, filling
// any attribute not present with its null value.
func (t *Table) Insert(values map[string]data.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row := make([]data.Value, len(t.Entity.Attributes))
	for i, a := range t.Entity.Attributes {
		if v, ok := values[a.ID]; ok {
			row[i] = v
		} else {
			row[i] = data.NewNull(a.Type)
		}
	}
	t.Rows = append(t.Rows, &Row{Values: row})
	return nil
}

// Snapshot returns a read-locked, shallow copy of the live (non-deleted)
// rows for scanning.
func (t *Table) Snapshot() []*Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if !r.deleted {
			out = append(out, r)
		}
	}
	return out
}

func (t *Table) UpdateRow(r *Row, set map[string]data.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for attrID, v := range set {
		idx, err := t.columnIndex(attrID)
		if err != nil {
			continue
		}
		r.Values[idx] = v
	}
}

func (t *Table) DeleteRow(r *Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r.deleted = true
}

// Database is a named collection of Tables, analogous to one connector
// instance's worth of configured entities.
type Database struct {
	mu     sync.RWMutex
	tables map[entity.ID]*Table
}

func NewDatabase() *Database {
	return &Database{tables: map[entity.ID]*Table{}}
}

func (d *Database) CreateTable(cfg *entity.Config) *Table {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := NewTable(cfg)
	d.tables[cfg.ID] = t
	return t
}

func (d *Database) Table(id entity.ID) (*Table, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[id]
	return t, ok
}

func (d *Database) Tables() []*Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Table, 0, len(d.tables))
	for _, t := range d.tables {
		out = append(out, t)
	}
	return out
}
