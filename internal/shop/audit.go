// ABOUTME: Best-effort audit recording for shop operations
// ABOUTME: Failures are logged and never returned to the caller

package shop

import (
	"context"

	"github.com/2389/shopkeeper/internal/store"
)

// Record appends an audit entry. Errors are logged and dropped.
func (s *Service) Record(ctx context.Context, actorID string, action store.AuditAction, targetType, targetID string, detail map[string]any) {
	entry := &store.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	}
	if err := s.store.AppendAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to append audit log", "action", action, "target", targetType+"/"+targetID, "error", err)
	}
}

// AuditLog returns recorded entries matching the filter, newest first.
func (s *Service) AuditLog(ctx context.Context, f store.AuditFilter) ([]store.AuditEntry, error) {
	return s.store.ListAuditLog(ctx, f)
}
