package store

// Stats counts the work a Store has done since it was opened.
type Stats struct {
	Flushes       int64 // batched executions of an insert channel
	RowsFlushed   int64 // rows written by those flushes
	DirectInserts int64 // rows written immediately (batching off)
	Lookups       int64 // single-row lookups sent to the database
	BufferHits    int64 // lookups answered from a buffer
	Prepares      int64 // statements prepared
}

// Stats returns a snapshot of the store's counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
