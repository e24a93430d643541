package audit

import "github.com/abusaleh34/secure-cas-commercial/internal/core"

var _ core.Auditor = (*NoopAuditor)(nil)

// NoopAuditor discards every record. Used when auditing is disabled.
type NoopAuditor struct{}

func NewNoopAuditor() *NoopAuditor {
	return &NoopAuditor{}
}

func (n *NoopAuditor) Record(rec core.AuditRecord) error {
	// noop
	return nil
}

func (n *NoopAuditor) Close() error {
	// nothing to close
	return nil
}
