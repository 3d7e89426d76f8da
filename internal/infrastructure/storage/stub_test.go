package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubXMLArchive_Store(t *testing.T) {
	t.Run("returns deterministic URI", func(t *testing.T) {
		archive := NewStubXMLArchive("fiscal-xml")
		orgID := uuid.New()
		fiscalKey := "35230111222333000181550010000000011123456786"

		uri, err := archive.Store(context.Background(), orgID, fiscalKey, []byte("<nfeProc/>"))

		assert.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("s3://fiscal-xml/%s/%s.xml", orgID, fiscalKey), uri)
		assert.Equal(t, 1, archive.Size())
	})

	t.Run("rejects empty fiscal key", func(t *testing.T) {
		archive := NewStubXMLArchive("")

		_, err := archive.Store(context.Background(), uuid.New(), "", []byte("<nfeProc/>"))

		assert.Error(t, err)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		archive := NewStubXMLArchive("")

		_, err := archive.Store(context.Background(), uuid.New(), "key", nil)

		assert.Error(t, err)
	})

	t.Run("overwrites on re-import of the same key", func(t *testing.T) {
		archive := NewStubXMLArchive("fiscal-xml")
		orgID := uuid.New()
		fiscalKey := "35230111222333000181550010000000011123456786"

		_, err := archive.Store(context.Background(), orgID, fiscalKey, []byte("<old/>"))
		require.NoError(t, err)
		_, err = archive.Store(context.Background(), orgID, fiscalKey, []byte("<new/>"))
		require.NoError(t, err)

		xml, err := archive.Fetch(context.Background(), orgID, fiscalKey)
		assert.NoError(t, err)
		assert.Equal(t, []byte("<new/>"), xml)
		assert.Equal(t, 1, archive.Size())
	})
}

func TestStubXMLArchive_Fetch(t *testing.T) {
	t.Run("returns error for unknown object", func(t *testing.T) {
		archive := NewStubXMLArchive("fiscal-xml")

		_, err := archive.Fetch(context.Background(), uuid.New(), "missing")

		assert.Error(t, err)
	})
}
