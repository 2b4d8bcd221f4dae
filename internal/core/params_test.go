package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamTable_AddRemove(t *testing.T) {
	t.Run("new table has one empty enabled row", func(t *testing.T) {
		table := NewParamTable()
		require.Equal(t, 1, table.Len())
		assert.Equal(t, ParamRow{IsEnable: true}, *table.Row(0))
	})

	t.Run("Add appends", func(t *testing.T) {
		table := NewParamTable()
		row := table.Add()
		assert.Equal(t, 2, table.Len())
		assert.Same(t, row, table.Row(1))
	})

	t.Run("Remove deletes by identity", func(t *testing.T) {
		table := NewParamTable()
		first := table.Row(0)
		second := table.Add()
		second.Key = "k"

		assert.True(t, table.Remove(first))
		assert.Equal(t, 1, table.Len())
		assert.Same(t, second, table.Row(0))
	})

	t.Run("Remove of nil or absent row is a no-op", func(t *testing.T) {
		table := NewParamTable()
		assert.False(t, table.Remove(nil))
		assert.False(t, table.Remove(&ParamRow{}))
		assert.Equal(t, 1, table.Len())
	})

	t.Run("Row out of range is nil", func(t *testing.T) {
		table := NewParamTable()
		assert.Nil(t, table.Row(5))
		assert.Nil(t, table.Row(-1))
	})
}

func TestParamTable_EnabledKeyValueMap(t *testing.T) {
	table := &ParamTable{}
	table.Append(ParamRow{Key: "a", Value: "1", IsEnable: true})
	table.Append(ParamRow{Key: "b", Value: "2", IsEnable: false})
	table.Append(ParamRow{Key: "", Value: "3", IsEnable: true})
	table.Append(ParamRow{Key: "f", Value: "/tmp/x", IsFile: true, IsEnable: true})
	table.Append(ParamRow{Key: "a", Value: "4", IsEnable: true})

	assert.Equal(t, map[string]string{"a": "4"}, table.EnabledKeyValueMap())
}

func TestParamTable_ExcludesDisabledAndKeyless(t *testing.T) {
	cases := []ParamRow{
		{Key: "x", Value: "1", IsEnable: false},
		{Key: "x", Value: "1", IsEnable: false, IsFile: true},
		{Key: "", Value: "1", IsEnable: true},
		{Key: "", Value: "1", IsEnable: true, IsFile: true},
	}
	for _, row := range cases {
		table := &ParamTable{}
		table.Append(row)
		assert.Empty(t, table.EnabledKeyValueMap(), "%+v", row)
		assert.Nil(t, table.UploadRow(), "%+v", row)
	}
}

func TestParamTable_UploadRow(t *testing.T) {
	t.Run("returns first qualifying row", func(t *testing.T) {
		table := &ParamTable{}
		table.Append(ParamRow{Key: "skip", Value: "/a", IsFile: true, IsEnable: false})
		first := table.Append(ParamRow{Key: "file", Value: "/b", IsFile: true, IsEnable: true})
		table.Append(ParamRow{Key: "other", Value: "/c", IsFile: true, IsEnable: true})

		assert.Same(t, first, table.UploadRow())

		row, ok := UploadRow(table.Snapshot())
		require.True(t, ok)
		assert.Equal(t, "file", row.Key)
	})

	t.Run("none when no file rows", func(t *testing.T) {
		table := NewParamTable()
		table.Row(0).Key = "a"
		assert.Nil(t, table.UploadRow())
		_, ok := UploadRow(table.Snapshot())
		assert.False(t, ok)
	})
}

func TestEnabledFields(t *testing.T) {
	rows := []ParamRow{
		{Key: "b", Value: "1", IsEnable: true},
		{Key: "a", Value: "2", IsEnable: true},
		{Key: "b", Value: "3", IsEnable: true},
		{Key: "c", Value: "4", IsEnable: false},
	}
	fields := EnabledFields(rows)
	require.Len(t, fields, 3)
	assert.Equal(t, "b", fields[0].Key)
	assert.Equal(t, "3", fields[2].Value)
}

func TestFoldFields(t *testing.T) {
	rows := []ParamRow{
		{Key: "x", Value: "1", IsEnable: true},
		{Key: "y", Value: "a", IsEnable: true},
		{Key: "x", Value: "2", IsEnable: true},
	}
	assert.Equal(t, []ParamRow{
		{Key: "x", Value: "2", IsEnable: true},
		{Key: "y", Value: "a", IsEnable: true},
	}, FoldFields(rows))
	assert.Equal(t, "1", rows[0].Value)
	assert.Equal(t, "x=2&y=a", EncodeForm(rows))
	assert.Empty(t, FoldFields(nil))
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"true", true},
		{"TRUE", true},
		{" True ", true},
		{"false", false},
		{"yes", false},
		{"1", false},
		{"", false},
		{"tru", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBool(tt.in))
		})
	}
}

func TestSetCell(t *testing.T) {
	row := NewParamRow()

	require.NoError(t, SetCell(row, ColumnKey, "file"))
	require.NoError(t, SetCell(row, ColumnValue, "/tmp/a.txt"))
	require.NoError(t, SetCell(row, ColumnIsFile, "True"))
	require.NoError(t, SetCell(row, ColumnIsEnable, "garbage"))

	assert.Equal(t, ParamRow{Key: "file", Value: "/tmp/a.txt", IsFile: true, IsEnable: false}, *row)

	err := SetCell(row, "color", "red")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	text, err := Cell(*row, ColumnIsFile)
	require.NoError(t, err)
	assert.Equal(t, "true", text)
	text, _ = Cell(*row, ColumnIsEnable)
	assert.Equal(t, "false", text)
	_, err = Cell(*row, "color")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestParamTable_Replace(t *testing.T) {
	table := NewParamTable()
	old := table.Row(0)

	table.Replace([]ParamRow{
		{Key: "a", Value: "1", IsEnable: true},
		{Key: "b", Value: "2"},
	})

	assert.Equal(t, 2, table.Len())
	assert.False(t, table.Remove(old))
	assert.Equal(t, map[string]string{"a": "1"}, table.EnabledKeyValueMap())

	table.Replace(nil)
	assert.Equal(t, 0, table.Len())
}
