package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_StringAndParse(t *testing.T) {
	for _, typ := range AllTypes() {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err, "Every type name must round-trip")
		assert.Equal(t, typ, parsed)
	}

	_, err := ParseType("bogus")
	assert.Error(t, err)
}

func TestAllTypes_EnumerationOrder(t *testing.T) {
	assert.Equal(t, []Type{SearchResult, PageText, SearchHighlight, PdfRender, Thumbnail}, AllTypes())
}

func TestEntry_AgeAndIdle(t *testing.T) {
	now := time.Now()
	entry := Entry{CreatedAt: now.Add(-10 * time.Minute), AccessedAt: now.Add(-2 * time.Minute)}

	assert.Equal(t, 10*time.Minute, entry.Age(now))
	assert.Equal(t, 2*time.Minute, entry.Idle(now))
}
