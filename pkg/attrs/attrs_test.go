package attrs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	id := uuid.New()
	list := []any{"actor", "staff@example.org", "count", 3, "registration_id", id}

	assert.Equal(t, "staff@example.org", ExtractString(list, "actor"))
	assert.Equal(t, id.String(), ExtractString(list, "registration_id"))
	assert.Equal(t, "", ExtractString(list, "count"))
	assert.Equal(t, "", ExtractString(list, "missing"))
	assert.Equal(t, "", ExtractString([]any{"dangling"}, "dangling"))
}

func TestDetails(t *testing.T) {
	list := []any{"actor", "staff@example.org", "refund_id", "re_123", "count", 2}
	got := Details(list, "actor")
	assert.Equal(t, map[string]string{"refund_id": "re_123"}, got)
}
