package agreement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReconcile covers single and dual pass records.
func TestReconcile(t *testing.T) {
	cases := []struct {
		name   string
		record MapRecord
		kind   LabelKind
		codes  []string
	}{
		{"single pass", MapRecord{"A": "['CAR']"}, LabelCategories, []string{"CAR"}},
		{"single pass missing", MapRecord{"A": ""}, LabelNone, nil},
		{"union of passes", MapRecord{"A": "['CAR']", "A_2": "['LIM', 'CAR']"}, LabelCategories, []string{"CAR", "LIM"}},
		{"second pass missing", MapRecord{"A": "['COD']", "A_2": ""}, LabelCategories, []string{"COD"}},
		{"first pass missing", MapRecord{"A": "", "A_2": "['FAM']"}, LabelCategories, []string{"FAM"}},
		{"both none", MapRecord{"A": "O", "A_2": "O"}, LabelNone, nil},
		{"both missing", MapRecord{"A": "", "A_2": "nan"}, LabelNone, nil},
		{"none and codes", MapRecord{"A": "O", "A_2": "['CAR']"}, LabelCategories, []string{"CAR"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := Reconcile(tc.record, "A")
			require.NoError(t, err)
			assert.Equal(t, tc.kind, l.Kind())
			assert.Equal(t, tc.codes, l.Codes())
			assert.False(t, l.IsMissing())
		})
	}
}

// TestReconcilePasses_Idempotent verifies that reconciling a pass with itself
// returns the pass.
func TestReconcilePasses_Idempotent(t *testing.T) {
	for _, l := range []Label{NoneLabel(), CategoriesLabel("CAR"), CategoriesLabel("LIM", "COD")} {
		assert.Equal(t, l, ReconcilePasses(l, l), l.String())
	}
}

func TestReconcile_Errors(t *testing.T) {
	_, err := Reconcile(MapRecord{"B": "O"}, "A")
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Reconcile(MapRecord{"A": "O", "A_2": "['CAR'"}, "A")
	assert.ErrorIs(t, err, ErrMalformedLabel)
}

func TestReconcileColumn(t *testing.T) {
	tbl := decode(t, ",note_name,A,A_2\n0,1,['CAR'],\n1,2,,['LIM']\n2,3,O,\n")

	labels, err := ReconcileColumn(tbl, "A")
	require.NoError(t, err)
	require.Len(t, labels, 3)
	assert.Equal(t, []string{"CAR"}, labels[0].Codes())
	assert.Equal(t, []string{"LIM"}, labels[1].Codes())
	assert.True(t, labels[2].IsNone())

	_, err = ReconcileColumn(tbl, "Z")
	assert.ErrorIs(t, err, ErrMissingColumn)
}
