package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFExtractor(t *testing.T) {
	extractor := NewPDFExtractor()

	t.Run("Empty data yields empty extraction without error", func(t *testing.T) {
		extraction, err := extractor.Extract(nil, "Fallback Title")
		assert.NoError(t, err, "Expected Extract to not return an error for empty data")
		require.NotNil(t, extraction, "Expected a non-nil extraction")
		assert.Empty(t, extraction.Text, "Expected no text for empty data")
		assert.Equal(t, "Fallback Title", extraction.Title, "Expected fallback title")
		assert.Zero(t, extraction.PageCount, "Expected no pages for empty data")
	})

	t.Run("Unparseable data yields empty extraction without error", func(t *testing.T) {
		extraction, err := extractor.Extract([]byte("this is not a pdf document"), "Fallback Title")
		assert.NoError(t, err, "Expected Extract to not return an error for garbage data")
		require.NotNil(t, extraction, "Expected a non-nil extraction")
		assert.Empty(t, extraction.Text, "Expected no text for garbage data")
		assert.Equal(t, "Fallback Title", extraction.Title, "Expected fallback title")
	})
}
