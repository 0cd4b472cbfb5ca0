package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_JSON(t *testing.T) {
	joined := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		identity   Identity
		wantLeftAt bool
	}{
		{
			name:     "online identity omits leftAt",
			identity: Identity{ID: "a", Name: "Alice", Online: true, JoinedAt: joined},
		},
		{
			name:       "offline identity carries leftAt",
			identity:   Identity{ID: "a", Name: "Alice", JoinedAt: joined, LeftAt: joined.Add(time.Minute)},
			wantLeftAt: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.identity)
			require.NoError(t, err)

			var fields map[string]any
			require.NoError(t, json.Unmarshal(data, &fields))
			_, hasLeftAt := fields["leftAt"]
			assert.Equal(t, tt.wantLeftAt, hasLeftAt)
			assert.Contains(t, fields, "joinedAt")
		})
	}
}
