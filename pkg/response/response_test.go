package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess(t *testing.T) {
	resp := Success(map[string]int{"created": 2})

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"created":2}}`, string(body))
}

func TestErrorEnvelope(t *testing.T) {
	resp := ErrorWithDetails(ErrCodeConflict, "cannot delete event", "2 tickets")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
	assert.Equal(t, "2 tickets", resp.Error.Details)
	assert.Nil(t, resp.Data)
}

func TestPaginated(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		perPage   int
		total     int64
		wantPages int
		wantPage  int
	}{
		{"exact", 1, 10, 20, 2, 1},
		{"remainder", 2, 10, 21, 3, 2},
		{"empty", 1, 10, 0, 0, 1},
		{"page floor", 0, 10, 5, 1, 1},
		{"zero per page", 1, 0, 5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Paginated([]string{}, tt.page, tt.perPage, tt.total)
			meta, ok := resp.Meta.(*PaginationMeta)
			require.True(t, ok)
			assert.Equal(t, tt.wantPages, meta.TotalPages)
			assert.Equal(t, tt.wantPage, meta.Page)
		})
	}
}
