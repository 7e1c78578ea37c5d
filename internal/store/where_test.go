package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhereMatch(t *testing.T) {
	rec := Record{"companyId": "acme", "isShared": true, "qty": 5, "name": "Hex Bolt"}

	cases := []struct {
		name  string
		where Where
		want  bool
	}{
		{"empty matches everything", Where{}, true},
		{"eq hit", Eq("companyId", "acme"), true},
		{"eq miss", Eq("companyId", "globex"), false},
		{"eq nil matches absent field", Eq("deletedAt", nil), true},
		{"ne on absent field", Ne("deletedAt", "x"), true},
		{"in hit", In("companyId", []string{"globex", "acme"}), true},
		{"in miss", In("companyId", []string{"globex"}), false},
		{"contains", Contains("name", "Bolt"), true},
		{"numeric comparison", Gt("qty", 4.5), true},
		{"comparison on absent field", Lt("missing", 1), false},
		{"and requires all branches", All(Eq("companyId", "acme"), Eq("isShared", false)), false},
		{"or requires one branch", Any(Eq("companyId", "globex"), Eq("isShared", true)), true},
		{
			"read-filter shape",
			All(Eq("qty", 5), Any(Eq("companyId", "globex"), Eq("isShared", true))),
			true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.where.Match(rec))
		})
	}
}

func TestAllAnyDropEmptyClauses(t *testing.T) {
	require.True(t, All().IsEmpty())
	require.True(t, Any(Where{}, Where{}).IsEmpty())

	// A single surviving clause collapses without an extra nesting level.
	w := All(Where{}, Eq("a", 1))
	require.Len(t, w.Conds, 1)
	require.Empty(t, w.And)
}
