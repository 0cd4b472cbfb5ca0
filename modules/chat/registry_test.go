package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		avatar   string
		wantName string
		wantErr  error
	}{
		{name: "valid name", input: "Alice", avatar: "cat", wantName: "Alice"},
		{name: "name is trimmed", input: "  Bob  ", wantName: "Bob"},
		{name: "blank name", input: "   ", wantErr: ErrNameEmpty},
		{name: "empty name", input: "", wantErr: ErrNameEmpty},
		{name: "name too long", input: strings.Repeat("a", MaxNameLength+1), wantErr: ErrNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			identity, err := r.Register(tt.input, tt.avatar)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrValidation)
				assert.Equal(t, 0, r.Len())
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, identity.ID)
			assert.Equal(t, tt.wantName, identity.Name)
			assert.Equal(t, tt.avatar, identity.Avatar)
			assert.True(t, identity.Online)
			assert.False(t, identity.JoinedAt.IsZero())

			stored, ok := r.Lookup(identity.ID)
			require.True(t, ok)
			assert.Equal(t, identity, stored)
		})
	}
}

func TestRegistry_RegisterAssignsDistinctIDs(t *testing.T) {
	r := NewRegistry()
	a, err := r.Register("Alice", "")
	require.NoError(t, err)
	b, err := r.Register("Alice", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	alice, err := r.Register("Alice", "")
	require.NoError(t, err)

	left, changed := r.Unregister(alice.ID)
	assert.True(t, changed)
	assert.False(t, left.Online)
	assert.False(t, left.LeftAt.IsZero())

	_, changed = r.Unregister(alice.ID)
	assert.False(t, changed, "second unregister is a no-op")

	_, changed = r.Unregister("unknown")
	assert.False(t, changed)

	stored, ok := r.Lookup(alice.ID)
	require.True(t, ok, "offline identities stay resolvable")
	assert.False(t, stored.Online)
	assert.Equal(t, 0, r.OnlineCount())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ListOthers(t *testing.T) {
	r := NewRegistry()
	r.now = fixedClock()

	alice, _ := r.Register("Alice", "")
	bob, _ := r.Register("Bob", "")
	carol, _ := r.Register("Carol", "")
	dave, _ := r.Register("Dave", "")
	r.Unregister(dave.ID)

	others := r.ListOthers(alice.ID)
	require.Len(t, others, 2)
	assert.Equal(t, bob.ID, others[0].ID)
	assert.Equal(t, carol.ID, others[1].ID)

	online := r.ListOnline()
	assert.Len(t, online, 3)
	assert.Equal(t, alice.ID, online[0].ID)
	assert.Equal(t, 3, r.OnlineCount())
}
