package fiscal

import (
	"context"

	"github.com/fiscaltms/backend/internal/domain/fiscal"
	"github.com/google/uuid"
)

// NFeParser turns raw NFe XML into the typed summary the import flow
// consumes. Implemented by infrastructure/nfe.
type NFeParser interface {
	Parse(data []byte) (*fiscal.NFeSummary, error)
}

// XMLArchive stores raw fiscal XML for the legally required retention
// period and returns the storage location. Implemented by
// infrastructure/storage.
type XMLArchive interface {
	Store(ctx context.Context, organizationID uuid.UUID, fiscalKey string, xml []byte) (string, error)
}
