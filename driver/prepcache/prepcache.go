// Package prepcache is the process-wide statement-text to prepared-id cache
// consulted before every Execute and repopulated transparently on UNPREPARED.
package prepcache

import "sync"

// Entry is the cached prepared form of one statement: its 16-byte id plus
// the set of node ids that are known to have it prepared. mu guards
// PreparedOn, since reporter goroutines on different nodes can mark the
// same statement prepared concurrently.
type Entry struct {
	ID         [16]byte
	mu         sync.Mutex
	PreparedOn map[string]struct{}
}

// markPreparedOn records nodeID under the entry's lock.
func (e *Entry) markPreparedOn(nodeID string) {
	e.mu.Lock()
	e.PreparedOn[nodeID] = struct{}{}
	e.mu.Unlock()
}

// isPreparedOn reports whether nodeID is recorded under the entry's lock.
func (e *Entry) isPreparedOn(nodeID string) bool {
	e.mu.Lock()
	_, ok := e.PreparedOn[nodeID]
	e.mu.Unlock()
	return ok
}

// Cache is a concurrent statement-text keyed prepared-statement cache.
// Zero value is ready to use.
type Cache struct {
	m sync.Map // string -> *Entry
}

// GetOrInsert returns the cached entry for statement, creating one with id
// if absent. The bool reports whether the entry already existed.
func (c *Cache) GetOrInsert(statement string, id [16]byte) (*Entry, bool) {
	entry := &Entry{ID: id, PreparedOn: make(map[string]struct{})}
	actual, loaded := c.m.LoadOrStore(statement, entry)
	return actual.(*Entry), loaded
}

// Get returns the cached entry for statement, if any.
func (c *Cache) Get(statement string) (*Entry, bool) {
	v, ok := c.m.Load(statement)
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

// MarkPrepared records that nodeID has this statement prepared.
func (c *Cache) MarkPrepared(statement string, id [16]byte, nodeID string) *Entry {
	entry, _ := c.GetOrInsert(statement, id)
	entry.markPreparedOn(nodeID)
	return entry
}

// IsPreparedOn reports whether nodeID is known to have statement prepared.
func (c *Cache) IsPreparedOn(statement, nodeID string) bool {
	entry, ok := c.Get(statement)
	if !ok {
		return false
	}
	return entry.isPreparedOn(nodeID)
}

// StatementFor reverse-looks-up the cached statement text for a prepared id,
// used by the reporter to rebuild a PREPARE frame after an UNPREPARED error.
func (c *Cache) StatementFor(id [16]byte) (string, bool) {
	var stmt string
	var found bool
	c.m.Range(func(key, value any) bool {
		entry := value.(*Entry)
		if entry.ID == id {
			stmt = key.(string)
			found = true
			return false
		}
		return true
	})
	return stmt, found
}
