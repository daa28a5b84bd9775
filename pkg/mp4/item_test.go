package mp4

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemWriteParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		item Item
	}{
		{
			name: "fourcc single value",
			item: NewItem(FourccIdent(FourccTitle), UTF8("My Book")),
		},
		{
			name: "fourcc multi value",
			item: NewItem(FourccIdent(FourccGenre), UTF8("Fiction"), UTF8("Audiobook")),
		},
		{
			name: "freeform",
			item: NewItem(AppleFreeformIdent("MEDIA_TYPE"), UTF8("Audiobook")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.item.write(&buf))

			raw := buf.Bytes()
			r := bytes.NewReader(raw)
			children, err := scanChildren(r, 0, uint64(len(raw)))
			require.NoError(t, err)
			rec, ok := findChild(children, outerFourccFor(tt.item))
			require.True(t, ok)

			got, err := readItemAtom(r, rec)
			require.NoError(t, err)
			assert.True(t, got.Ident.Equal(tt.item.Ident))
			require.Len(t, got.Data, len(tt.item.Data))
			for i := range tt.item.Data {
				assert.Equal(t, tt.item.Data[i].Type, got.Data[i].Type)
				assert.Equal(t, tt.item.Data[i].Text, got.Data[i].Text)
			}
		})
	}
}

func TestItemEmpty(t *testing.T) {
	assert.True(t, Item{Ident: FourccIdent(FourccTitle)}.empty())
	assert.False(t, NewItem(FourccIdent(FourccTitle), UTF8("x")).empty())
}

func TestMergeItems(t *testing.T) {
	var items []Item
	items = mergeItems(items, NewItem(FourccIdent(FourccGenre), UTF8("Fiction")))
	items = mergeItems(items, NewItem(FourccIdent(FourccGenre), UTF8("Audiobook")))
	items = mergeItems(items, NewItem(FourccIdent(FourccTitle), UTF8("My Book")))

	require.Len(t, items, 2)
	assert.Equal(t, []Data{UTF8("Fiction"), UTF8("Audiobook")}, items[0].Data)
	assert.Equal(t, "My Book", items[1].Data[0].Text)
}

func TestItemListSetGetRemove(t *testing.T) {
	var l ItemList

	l.Set(FourccIdent(FourccTitle), UTF8("First"))
	got, ok := l.Get(FourccIdent(FourccTitle))
	require.True(t, ok)
	assert.Equal(t, "First", got.Data[0].Text)

	l.Set(FourccIdent(FourccTitle), UTF8("Second"))
	got, ok = l.Get(FourccIdent(FourccTitle))
	require.True(t, ok)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "Second", got.Data[0].Text)

	l.Add(FourccIdent(FourccGenre), UTF8("Fiction"))
	l.Add(FourccIdent(FourccGenre), UTF8("Mystery"))
	got, ok = l.Get(FourccIdent(FourccGenre))
	require.True(t, ok)
	assert.Len(t, got.Data, 2)

	l.Remove(FourccIdent(FourccTitle))
	_, ok = l.Get(FourccIdent(FourccTitle))
	assert.False(t, ok)

	assert.Len(t, l.Items(), 1)
}

func TestItemListSetWithNoDataRemoves(t *testing.T) {
	var l ItemList
	l.Set(FourccIdent(FourccTitle), UTF8("First"))
	l.Set(FourccIdent(FourccTitle))
	_, ok := l.Get(FourccIdent(FourccTitle))
	assert.False(t, ok)
}

func outerFourccFor(it Item) Fourcc {
	if it.Ident.Freeform {
		return FourccFreeform
	}
	return it.Ident.Fourcc
}
