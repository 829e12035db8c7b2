package agreement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMergeNoteLabels_Composite verifies that the composite is the OR of its
// bases on each side independently.
func TestMergeNoteLabels_Composite(t *testing.T) {
	car := decode(t, ",note_name,CAR,CAR:machine\n0,10,1,0\n1,11,0,0\n2,12,0,1\n")
	lim := decode(t, ",note_name,LIM,LIM:machine\n0,10,0,1\n1,11,0,0\n")

	merged, err := MergeNoteLabels([]LabeledTable{{Code: "CAR", Table: car}, {Code: "LIM", Table: lim}}, DefaultComposite)
	require.NoError(t, err)

	assert.Equal(t, []string{"note_name", "CAR", "CAR:machine", "LIM", "LIM:machine", "CIM", "CIM:machine"}, merged.Columns())
	require.Equal(t, 3, merged.Len())

	assert.Equal(t, "1", merged.Cell(0, "CIM"))
	assert.Equal(t, "1", merged.Cell(0, "CIM:machine"))
	assert.Equal(t, "0", merged.Cell(1, "CIM"))
	assert.Equal(t, "0", merged.Cell(1, "CIM:machine"))

	// note 12 has no LIM row; the missing base counts as 0.
	assert.Equal(t, "", merged.Cell(2, "LIM"))
	assert.Equal(t, "0", merged.Cell(2, "CIM"))
	assert.Equal(t, "1", merged.Cell(2, "CIM:machine"))
}

func TestMergeNoteLabels_Errors(t *testing.T) {
	_, err := MergeNoteLabels(nil, DefaultComposite)
	assert.ErrorIs(t, err, ErrNoInputs)

	car := decode(t, ",note_name,CAR,CAR:machine\n0,10,1,0\n")
	_, err = MergeNoteLabels([]LabeledTable{{Code: "CAR", Table: car}}, DefaultComposite)
	assert.ErrorIs(t, err, ErrMissingColumn, "LIM base is absent")

	_, err = MergeNoteLabels([]LabeledTable{{Code: "LIM", Table: car}}, DefaultComposite)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

// TestMergeTokenLabels verifies tag to indicator conversion and the token
// columns of the first input.
func TestMergeTokenLabels(t *testing.T) {
	car := decode(t, `,token,note_name,start,end,manual_ann,machine_ann
0,wishes,7,0,6,CAR,O
1,dnr,7,7,10,O,O
`)
	lim := decode(t, `,token,note_name,start,end,manual_ann,machine_ann
0,wishes,7,0,6,O,O
1,dnr,7,7,10,LIM,LIM
`)

	merged, err := MergeTokenLabels([]LabeledTable{{Code: "CAR", Table: car}, {Code: "LIM", Table: lim}}, DefaultComposite)
	require.NoError(t, err)

	assert.Equal(t, []string{"token", "note_name", "start", "end", "CAR", "CAR:machine", "LIM", "LIM:machine", "CIM", "CIM:machine"}, merged.Columns())
	assert.Equal(t, []string{"1", "0", "0", "0", "1", "0"}, rowCells(merged, 0, "CAR", "CAR:machine", "LIM", "LIM:machine", "CIM", "CIM:machine"))
	assert.Equal(t, []string{"0", "0", "1", "1", "1", "1"}, rowCells(merged, 1, "CAR", "CAR:machine", "LIM", "LIM:machine", "CIM", "CIM:machine"))

	// inputs are not modified
	assert.Equal(t, "CAR", car.Cell(0, "manual_ann"))
}

func rowCells(t *Table, i int, columns ...string) []string {
	out := make([]string, len(columns))
	for j, c := range columns {
		out[j] = t.Cell(i, c)
	}
	return out
}

func TestParseLabeledPath(t *testing.T) {
	p, err := ParseLabeledPath("LIM=results/lim/notes.csv")
	require.NoError(t, err)
	assert.Equal(t, LabeledPath{Code: "LIM", Path: "results/lim/notes.csv"}, p)

	p, err = ParseLabeledPath("results/CAR_note_labels.csv")
	require.NoError(t, err)
	assert.Equal(t, "CAR", p.Code)

	_, err = ParseLabeledPath("x/ab")
	assert.Error(t, err)
}

// TestDeriveComposite_Custom verifies that any configured composite works,
// not only the default one.
func TestDeriveComposite_Custom(t *testing.T) {
	tbl := decode(t, ",COD,COD:machine,FAM,FAM:machine\n0,0,1,1,0\n")

	require.NoError(t, DeriveComposite(tbl, Composite{Name: "ANY", Of: []string{"COD", "FAM"}}))
	assert.Equal(t, "1", tbl.Cell(0, "ANY"))
	assert.Equal(t, "1", tbl.Cell(0, "ANY:machine"))
}
