package storage

import (
	"context"
	"fmt"
	"sync"

	fiscalapp "github.com/fiscaltms/backend/internal/application/fiscal"
	"github.com/google/uuid"
)

// Ensure StubXMLArchive implements XMLArchive
var _ fiscalapp.XMLArchive = (*StubXMLArchive)(nil)

// StubXMLArchive is an in-memory XMLArchive used when no object storage is
// configured. Documents imported against it still get a deterministic URI,
// but the XML only survives for the lifetime of the process.
type StubXMLArchive struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string][]byte
}

// NewStubXMLArchive creates a new in-memory archive
func NewStubXMLArchive(bucket string) *StubXMLArchive {
	if bucket == "" {
		bucket = "fiscal-xml"
	}
	return &StubXMLArchive{
		bucket:  bucket,
		objects: make(map[string][]byte),
	}
}

// Store keeps the XML in memory and returns the URI it would have on S3
func (a *StubXMLArchive) Store(_ context.Context, organizationID uuid.UUID, fiscalKey string, xml []byte) (string, error) {
	if fiscalKey == "" {
		return "", fmt.Errorf("fiscal key is required")
	}
	if len(xml) == 0 {
		return "", fmt.Errorf("xml content is required")
	}

	key := fmt.Sprintf("%s/%s.xml", organizationID, fiscalKey)

	a.mu.Lock()
	a.objects[key] = append([]byte(nil), xml...)
	a.mu.Unlock()

	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// Fetch returns a previously stored XML
func (a *StubXMLArchive) Fetch(_ context.Context, organizationID uuid.UUID, fiscalKey string) ([]byte, error) {
	key := fmt.Sprintf("%s/%s.xml", organizationID, fiscalKey)

	a.mu.RLock()
	defer a.mu.RUnlock()

	xml, ok := a.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return append([]byte(nil), xml...), nil
}

// Size returns the number of stored objects
func (a *StubXMLArchive) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}
