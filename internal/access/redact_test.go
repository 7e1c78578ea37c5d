package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nucleo/internal/store"
)

func TestRedactSnapshot(t *testing.T) {
	t.Run("masks sensitive fields and keeps the rest", func(t *testing.T) {
		got := redactSnapshot(store.Record{
			"email":        "ann@acme.example",
			"password":     "secret123",
			"refreshToken": "rt-abc",
			"total":        42,
		})

		assert.Equal(t, "ann@acme.example", got["email"])
		assert.Equal(t, RedactionMarker, got["password"])
		assert.Equal(t, RedactionMarker, got["refreshToken"])
		assert.Equal(t, 42, got["total"])
	})

	t.Run("nil record stays nil", func(t *testing.T) {
		assert.Nil(t, redactSnapshot(nil))
	})

	t.Run("does not alias nested values", func(t *testing.T) {
		src := store.Record{"lines": []any{map[string]any{"qty": 1}}}
		got := redactSnapshot(src)

		require.NotNil(t, got["lines"])
		got["lines"].([]any)[0].(map[string]any)["qty"] = 99
		assert.Equal(t, 1, src["lines"].([]any)[0].(map[string]any)["qty"])
	})
}

func TestChangedFields(t *testing.T) {
	tests := []struct {
		name string
		old  map[string]any
		new  map[string]any
		want []string
	}{
		{
			name: "single value change",
			old:  map[string]any{"id": "1", "name": "Old Name"},
			new:  map[string]any{"id": "1", "name": "New Name"},
			want: []string{"name"},
		},
		{
			name: "identical snapshots yield nothing",
			old:  map[string]any{"id": "1", "name": "Same"},
			new:  map[string]any{"id": "1", "name": "Same"},
			want: nil,
		},
		{
			name: "added and removed keys both count",
			old:  map[string]any{"id": "1", "legacy": true},
			new:  map[string]any{"id": "1", "status": "active"},
			want: []string{"legacy", "status"},
		},
		{
			name: "numeric type drift is not a change",
			old:  map[string]any{"total": 120},
			new:  map[string]any{"total": float64(120)},
			want: nil,
		},
		{
			name: "nested structures compare deeply",
			old:  map[string]any{"address": map[string]any{"city": "Austin"}},
			new:  map[string]any{"address": map[string]any{"city": "Dallas"}},
			want: []string{"address"},
		},
		{
			name: "redacted markers on both sides cancel out",
			old:  map[string]any{"password": RedactionMarker, "email": "a@b.c"},
			new:  map[string]any{"password": RedactionMarker, "email": "x@b.c"},
			want: []string{"email"},
		},
		{
			name: "result is sorted",
			old:  map[string]any{"zeta": 1, "alpha": 1, "mid": 1},
			new:  map[string]any{"zeta": 2, "alpha": 2, "mid": 2},
			want: []string{"alpha", "mid", "zeta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, changedFields(tt.old, tt.new))
		})
	}
}

func TestSnapshotKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, snapshotKeys(map[string]any{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, snapshotKeys(nil))
}
