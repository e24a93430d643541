package audit

import (
	"sync"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
)

var _ core.Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor keeps audit records in memory. Used in tests and as the
// backing for the recent-records read surface in single-instance setups.
type InMemoryAuditor struct {
	mu      sync.Mutex
	records []core.AuditRecord
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return &InMemoryAuditor{
		records: make([]core.AuditRecord, 0),
	}
}

func (i *InMemoryAuditor) Record(rec core.AuditRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.records = append(i.records, rec)
	return nil
}

// GetRecent returns the newest records, up to limit.
func (i *InMemoryAuditor) GetRecent(limit int) ([]core.AuditRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit > len(i.records) {
		limit = len(i.records)
	}
	start := len(i.records) - limit
	records := make([]core.AuditRecord, limit)
	copy(records, i.records[start:])

	return records, nil
}

// Find returns the newest records passing the filter, up to limit.
func (i *InMemoryAuditor) Find(filter func(rec core.AuditRecord) bool, limit int) ([]core.AuditRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var matches []core.AuditRecord
	for _, rec := range i.records {
		if filter(rec) {
			matches = append(matches, rec)
		}
	}

	if len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}

	return matches, nil
}

func (i *InMemoryAuditor) Close() error {
	return nil // nothing to close :)
}
