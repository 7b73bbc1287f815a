package rates

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"sasu-tax/core/determinism"
	"sasu-tax/internal/errors"
)

//go:embed tables/*.hcl
var builtinTables embed.FS

// Registry maps tax years to rate tables.
// Safe for concurrent use; the tables themselves are immutable.
type Registry struct {
	mu     sync.RWMutex
	tables map[int]*Table
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tables: make(map[int]*Table)}
}

// Builtin returns a registry holding the embedded rate tables
func Builtin() (*Registry, error) {
	r := NewRegistry()

	names, err := fs.Glob(builtinTables, "tables/*.hcl")
	if err != nil {
		return nil, errors.Internal("failed to list built-in rate tables", err)
	}
	sort.Strings(names)

	for _, name := range names {
		src, err := builtinTables.ReadFile(name)
		if err != nil {
			return nil, errors.Internal(fmt.Sprintf("failed to read %s", name), err)
		}
		table, err := Parse(src, name)
		if err != nil {
			return nil, err
		}
		r.Register(table)
	}
	return r, nil
}

// Register adds a table, replacing any table for the same year
func (r *Registry) Register(table *Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table.Year()] = table
}

// LoadDir parses every *.hcl file in dir and registers the tables.
// Files are applied in name order; later files win for the same year.
func (r *Registry) LoadDir(dir string) ([]int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.hcl"))
	if err != nil {
		return nil, errors.Config(fmt.Sprintf("invalid rates directory %s", dir), err)
	}
	sort.Strings(paths)

	loaded := make([]int, 0, len(paths))
	for _, path := range paths {
		table, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		r.Register(table)
		loaded = append(loaded, table.Year())
	}
	return loaded, nil
}

// Get returns the table for a year
func (r *Registry) Get(year int) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.tables[year]
	if !ok {
		return nil, errors.NotFound("rate table", strconv.Itoa(year))
	}
	return table, nil
}

// Latest returns the table for the most recent year
func (r *Registry) Latest() (*Table, error) {
	years := r.Years()
	if len(years) == 0 {
		return nil, errors.NotFound("rate table", "latest")
	}
	return r.Get(years[len(years)-1])
}

// Years returns the registered years in ascending order
func (r *Registry) Years() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return determinism.SortedInts(r.tables)
}

// Tables returns every table ordered by year
func (r *Registry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	years := determinism.SortedInts(r.tables)
	out := make([]*Table, 0, len(years))
	for _, year := range years {
		out = append(out, r.tables[year])
	}
	return out
}
