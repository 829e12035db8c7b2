package agreement

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioCSV holds three annotators over five notes. A marks LIM on notes 1
// and 2, B on notes 2 and 3; C labeled only notes 1 to 3.
const scenarioCSV = `,note_name,A,B,C
0,1,['LIM'],O,O
1,2,"['LIM', 'CAR']",['LIM'],O
2,3,O,['LIM'],O
3,4,O,O,
4,5,O,['COD'],
`

func scenarioConfig() Config {
	cfg := Config{Annotators: []string{"A", "B", "C"}, Categories: []string{"LIM", "CIM", "COD"}}
	cfg.ApplyDefaults()
	return cfg
}

func findKappa(t *testing.T, results []KappaResult, op1, op2, label string) KappaResult {
	t.Helper()
	for _, r := range results {
		if r.Op1 == op1 && r.Op2 == op2 && r.Label == label {
			return r
		}
	}
	t.Fatalf("no result for %s/%s %s", op1, op2, label)
	return KappaResult{}
}

// ---------------------------------------------------------------------------
// CohenKappa
// ---------------------------------------------------------------------------

// TestCohenKappa_TwoByTwo checks the A/B LIM contingency: one shared
// positive, two disagreements, two shared negatives.
func TestCohenKappa_TwoByTwo(t *testing.T) {
	a := []string{"LIM", "LIM", "O", "O", "O"}
	b := []string{"O", "LIM", "LIM", "O", "O"}

	k, err := CohenKappa(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/6.0, k, 1e-12)
}

// TestCohenKappa_Symmetric verifies kappa(a, b) == kappa(b, a).
func TestCohenKappa_Symmetric(t *testing.T) {
	a := []string{"CAR", "O", "O", "CAR", "O", "CAR", "O"}
	b := []string{"CAR", "CAR", "O", "O", "O", "CAR", "CAR"}

	ab, err := CohenKappa(a, b)
	require.NoError(t, err)
	ba, err := CohenKappa(b, a)
	require.NoError(t, err)
	assert.InDelta(t, ab, ba, 1e-12)
}

func TestCohenKappa_PerfectAndChance(t *testing.T) {
	a := []string{"CAR", "O", "CAR", "O"}
	k, err := CohenKappa(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, k, 1e-12)

	k, err = CohenKappa([]string{"CAR", "CAR", "O", "O"}, []string{"CAR", "O", "CAR", "O"})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, k, 1e-12)
}

// TestCohenKappa_Undefined verifies NaN when chance disagreement is zero.
func TestCohenKappa_Undefined(t *testing.T) {
	k, err := CohenKappa([]string{"O", "O", "O"}, []string{"O", "O", "O"})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(k))

	k, err = CohenKappa(nil, nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(k))

	_, err = CohenKappa([]string{"O"}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

// ---------------------------------------------------------------------------
// PairwiseKappa
// ---------------------------------------------------------------------------

func TestPairwiseKappa_Scenario(t *testing.T) {
	results, err := PairwiseKappa(decode(t, scenarioCSV), scenarioConfig())
	require.NoError(t, err)
	require.Len(t, results, 9)

	ab := findKappa(t, results, "A", "B", "LIM")
	assert.Equal(t, 5, ab.NumOverlap)
	assert.InDelta(t, 1.0/6.0, ab.Kappa, 1e-12)
	assert.Equal(t, 2, ab.Op1Count)
	assert.Equal(t, 2, ab.Op2Count)

	// CIM is present whenever CAR or LIM is, which here matches LIM.
	cim := findKappa(t, results, "A", "B", "CIM")
	assert.InDelta(t, 1.0/6.0, cim.Kappa, 1e-12)

	cod := findKappa(t, results, "A", "B", "COD")
	assert.InDelta(t, 0.0, cod.Kappa, 1e-12)
	assert.Equal(t, 0, cod.Op1Count)
	assert.Equal(t, 1, cod.Op2Count)

	ac := findKappa(t, results, "A", "C", "LIM")
	assert.Equal(t, 3, ac.NumOverlap)
	assert.InDelta(t, 0.0, ac.Kappa, 1e-12)

	bc := findKappa(t, results, "B", "C", "COD")
	assert.True(t, math.IsNaN(bc.Kappa))
}

// TestPairwiseKappa_OrderAndSymmetry verifies roster order and that swapping
// the roster swaps the pair without changing kappa.
func TestPairwiseKappa_OrderAndSymmetry(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Annotators = []string{"A", "B"}
	forward, err := PairwiseKappa(decode(t, scenarioCSV), cfg)
	require.NoError(t, err)

	cfg.Annotators = []string{"B", "A"}
	backward, err := PairwiseKappa(decode(t, scenarioCSV), cfg)
	require.NoError(t, err)

	require.Len(t, forward, len(cfg.Categories))
	require.Len(t, backward, len(forward))
	for i := range forward {
		assert.Equal(t, "A", forward[i].Op1)
		assert.Equal(t, "B", backward[i].Op1)
		assert.Equal(t, cfg.Categories[i], forward[i].Label)
		assert.InDelta(t, forward[i].Kappa, backward[i].Kappa, 1e-12)
		assert.Equal(t, forward[i].Op1Count, backward[i].Op2Count)
	}
}

// TestPairwiseKappa_SecondPass verifies that a second pass is merged into
// the annotator's labels before comparing.
func TestPairwiseKappa_SecondPass(t *testing.T) {
	tbl := decode(t, `,note_name,A,A_2,B
0,1,O,['LIM'],['LIM']
1,2,O,,O
`)
	cfg := Config{Annotators: []string{"A", "B"}, Categories: []string{"LIM"}}
	cfg.ApplyDefaults()

	results, err := PairwiseKappa(tbl, cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Kappa, 1e-12)
	assert.Equal(t, 1, results[0].Op1Count)
}

// TestPairwiseKappa_SkipsDisjointPairs verifies that pairs without shared
// items produce no rows.
func TestPairwiseKappa_SkipsDisjointPairs(t *testing.T) {
	tbl := decode(t, ",note_name,A,B\n0,1,O,\n1,2,,O\n")
	cfg := Config{Annotators: []string{"A", "B"}, Categories: []string{"LIM"}}
	cfg.ApplyDefaults()

	results, err := PairwiseKappa(tbl, cfg)
	require.NoError(t, err)
	assert.Empty(t, results)

	overlaps, err := Overlaps(tbl, cfg)
	require.NoError(t, err)
	assert.Equal(t, []PairOverlap{{Op1: "A", Op2: "B", Items: 0}}, overlaps)
}

// TestPairwiseKappa_TokenRowsShareNotes verifies that overlap counts notes
// while the comparison uses every row of the shared notes.
func TestPairwiseKappa_TokenRowsShareNotes(t *testing.T) {
	tbl := decode(t, `,note_name,A,B
0,1,['CAR'],['CAR']
1,1,O,O
2,1,O,['CAR']
`)
	cfg := Config{Annotators: []string{"A", "B"}, Categories: []string{"CAR"}}
	cfg.ApplyDefaults()

	results, err := PairwiseKappa(tbl, cfg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].NumOverlap)
	assert.Equal(t, 1, results[0].Op1Count)
	assert.Equal(t, 2, results[0].Op2Count)
}

func TestPairwiseKappa_Errors(t *testing.T) {
	tbl := decode(t, scenarioCSV)

	cfg := scenarioConfig()
	cfg.Annotators = []string{"A"}
	_, err := PairwiseKappa(tbl, cfg)
	assert.ErrorIs(t, err, ErrNoAnnotators)

	cfg.Annotators = []string{"A", "Z"}
	_, err = PairwiseKappa(tbl, cfg)
	assert.ErrorIs(t, err, ErrMissingColumn)

	bad := decode(t, ",note_name,A,B\n0,1,['CAR',O\n")
	cfg.Annotators = []string{"A", "B"}
	_, err = PairwiseKappa(bad, cfg)
	assert.ErrorIs(t, err, ErrMalformedLabel)
}

func TestKappaTable(t *testing.T) {
	tbl := KappaTable([]KappaResult{
		{Op1: "A", Op2: "B", NumOverlap: 5, Label: "LIM", Kappa: 0.5, Op1Count: 2, Op2Count: 3},
		{Op1: "A", Op2: "B", NumOverlap: 5, Label: "COD", Kappa: math.NaN()},
	})

	assert.Equal(t, KappaColumns, tbl.Columns())
	assert.Equal(t, "0.5", tbl.Cell(0, "kappa"))
	assert.Equal(t, "", tbl.Cell(1, "kappa"))
	assert.Equal(t, "1", tbl.Index(1))
}
