package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRecordsColumnOrder(t *testing.T) {
	rs := RecordSet{
		{"code": "1", "zeta": 1.0, "product_name": "a"},
		{"code": "2", "alpha": true},
	}

	tab := FromRecords(rs, []string{"code", "product_name", "brands"})

	// Preferred names that occur come first, extras follow sorted; "brands"
	// never occurs so it is absent entirely.
	assert.Equal(t, []string{"code", "product_name", "alpha", "zeta"}, tab.Cols)
	require.Equal(t, 2, tab.NumRows())

	assert.Equal(t, "a", tab.Rows[0][1])
	assert.Nil(t, tab.Rows[1][1])
	assert.Nil(t, tab.Rows[0][2])
	assert.Equal(t, true, tab.Rows[1][2])
}

func TestColKind(t *testing.T) {
	tab := &Table{
		Cols: []string{"num", "text", "mixed", "allnull"},
		Rows: []Row{
			{1.0, "a", 1.0, nil},
			{nil, nil, "b", nil},
		},
	}

	assert.Equal(t, KindNumber, tab.ColKind(0))
	assert.Equal(t, KindText, tab.ColKind(1))
	assert.Equal(t, KindText, tab.ColKind(2))
	// All-null behaves like an empty numeric column.
	assert.Equal(t, KindNumber, tab.ColKind(3))
}

func TestCloneIsIndependent(t *testing.T) {
	tab := &Table{Cols: []string{"a"}, Rows: []Row{{"x"}}}
	cp := tab.Clone()
	cp.Rows[0][0] = "y"
	cp.Cols[0] = "b"

	assert.Equal(t, "x", tab.Rows[0][0])
	assert.Equal(t, "a", tab.Cols[0])
}

func TestAsNumber(t *testing.T) {
	for _, v := range []any{1.5, float32(1.5), 1, int32(1), int64(1)} {
		_, ok := AsNumber(v)
		assert.True(t, ok, "%T", v)
	}
	for _, v := range []any{"1.5", true, nil, []any{1.0}} {
		_, ok := AsNumber(v)
		assert.False(t, ok, "%T", v)
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "12.5", Stringify(12.5))
	// Barcodes must not collapse into scientific notation.
	assert.Equal(t, "3017620422003", Stringify(3017620422003.0))
}
