package output

import (
	"context"

	"github.com/crimson-sun/healthguard/internal/model"
)

// Output defines the interface for audit record destinations.
// Implementations must preserve the order of Write calls.
type Output interface {
	Write(ctx context.Context, rec model.AuditRecord) error
	Close() error
}
