package agreement

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taggerOutput = `patient text_101_a.txt 0 7 O O
full text_101_a.txt 8 12 B-COD I-COD

code text_102_b.txt 13 17 I-COD O
`

func TestConvertNeuroNER(t *testing.T) {
	tbl, err := ConvertNeuroNER(strings.NewReader(taggerOutput))
	require.NoError(t, err)

	assert.Equal(t, TokenColumns, tbl.Columns())
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "101", tbl.Cell(1, "note_name"))
	assert.Equal(t, "COD", tbl.Cell(1, "manual_ann"))
	assert.Equal(t, "COD", tbl.Cell(1, "machine_ann"))
	assert.Equal(t, "O", tbl.Cell(0, "machine_ann"))
	assert.Equal(t, "102", tbl.Cell(2, "note_name"))
	assert.Equal(t, "2", tbl.Index(2))
}

func TestConvertNeuroNER_Errors(t *testing.T) {
	_, err := ConvertNeuroNER(strings.NewReader("only three fields\n"))
	assert.ErrorIs(t, err, ErrRaggedRow)

	_, err = ConvertNeuroNER(strings.NewReader("tok doc 0 3 O O\n"))
	assert.Error(t, err)

	_, err = ConvertNeuroNER(strings.NewReader("tok text_1_a 0 3 COD O\n"))
	assert.ErrorIs(t, err, ErrMalformedLabel)
}

func TestExtractNoteLevelLabels(t *testing.T) {
	tokens, err := ConvertNeuroNER(strings.NewReader(taggerOutput))
	require.NoError(t, err)

	notes, err := ExtractNoteLevelLabels(tokens, "COD")
	require.NoError(t, err)

	assert.Equal(t, []string{"note_name", "COD", "COD:machine"}, notes.Columns())
	require.Equal(t, 2, notes.Len())
	assert.Equal(t, []string{"101", "1", "1"}, rowCells(notes, 0, "note_name", "COD", "COD:machine"))
	assert.Equal(t, []string{"102", "1", "0"}, rowCells(notes, 1, "note_name", "COD", "COD:machine"))
}

func TestNoteLengthStats(t *testing.T) {
	tbl := decode(t, ",note_name\n0,a\n1,b\n2,b\n3,c\n4,c\n5,c\n6,d\n7,d\n8,d\n9,d\n")

	s, err := NoteLengthStats(tbl)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Notes)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, 1.75, s.Q25, 1e-12)
	assert.InDelta(t, 3.25, s.Q75, 1e-12)

	empty, err := NoteLengthStats(decode(t, ",note_name\n"))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(empty.Mean))

	_, err = NoteLengthStats(decode(t, ",token\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestCountTokensPerClass(t *testing.T) {
	car := decode(t, ",token,machine_ann\n0,wishes,CAR\n1,dnr,O\n2,wishes,CAR\n3,family,O\n")
	lim := decode(t, ",token,machine_ann\n0,wishes,O\n1,dnr,LIM\n2,wishes,O\n3,family,O\n")
	inputs := []LabeledTable{{Code: "CAR", Table: car}, {Code: "LIM", Table: lim}}

	counts, err := CountTokensPerClass(inputs, []string{"CAR", "LIM", "CIM"}, []Composite{DefaultComposite})
	require.NoError(t, err)
	require.Len(t, counts, 3)

	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, 1, counts[0].Unique)
	assert.Equal(t, []TokenFrequency{{Token: "wishes", Count: 2}}, counts[0].Frequencies)

	cim := counts[2]
	assert.Equal(t, 3, cim.Count)
	assert.Equal(t, 2, cim.Unique)
	assert.Equal(t, []TokenFrequency{{Token: "wishes", Count: 2}, {Token: "dnr", Count: 1}}, cim.Frequencies)

	summary := TokenCountTable(counts)
	assert.Equal(t, []string{"CIM", "3", "2"}, rowCells(summary, 2, "label", "count", "unique"))

	freq := FrequencyTable(cim.Frequencies)
	assert.Equal(t, "token", freq.IndexName)
	assert.Equal(t, "wishes", freq.Index(0))

	_, err = CountTokensPerClass(inputs, []string{"COD"}, []Composite{DefaultComposite})
	assert.Error(t, err)
}

// TestCountTokensPerClass_EveryComposite verifies that a composite other than
// the first configured one is counted over its bases, not as a plain code.
func TestCountTokensPerClass_EveryComposite(t *testing.T) {
	car := decode(t, ",token,machine_ann\n0,wishes,CAR\n1,dnr,O\n2,family,O\n")
	lim := decode(t, ",token,machine_ann\n0,wishes,O\n1,dnr,LIM\n2,family,O\n")
	fam := decode(t, ",token,machine_ann\n0,wishes,O\n1,dnr,O\n2,family,FAM\n")
	inputs := []LabeledTable{{Code: "CAR", Table: car}, {Code: "LIM", Table: lim}, {Code: "FAM", Table: fam}}
	composites := []Composite{DefaultComposite, {Name: "ANY", Of: []string{"CAR", "FAM"}}}

	counts, err := CountTokensPerClass(inputs, []string{"CIM", "ANY"}, composites)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, "ANY", counts[1].Label)
	assert.Equal(t, 2, counts[1].Count)
	assert.Equal(t, []TokenFrequency{{Token: "family", Count: 1}, {Token: "wishes", Count: 1}}, counts[1].Frequencies)
}
