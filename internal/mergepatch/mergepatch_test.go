package mergepatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testFields = []Field{
	{Name: "name", Kind: String, OnNull: KeepOnNull},
	{Name: "description", Kind: String, OnNull: ClearOnNull},
	{Name: "price", Kind: Int, OnNull: RejectNull},
	{Name: "books", Kind: IntMap, OnNull: KeepOnNull},
}

func TestApplyString(t *testing.T) {
	changes, err := Apply([]byte(`{"name": "Algorithms"}`), testFields)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "Algorithms", changes["name"].Str)
	assert.False(t, changes["name"].Clear)
}

func TestApplyAbsentFieldsUntouched(t *testing.T) {
	changes, err := Apply([]byte(`{}`), testFields)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestApplyNullKeeps(t *testing.T) {
	// A null on a KeepOnNull field produces no change at all.
	changes, err := Apply([]byte(`{"name": null}`), testFields)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestApplyNullClears(t *testing.T) {
	changes, err := Apply([]byte(`{"description": null}`), testFields)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, changes["description"].Clear)
}

func TestApplyNullRejects(t *testing.T) {
	_, err := Apply([]byte(`{"price": null}`), testFields)
	assert.ErrorIs(t, err, ErrBadPatch)
}

func TestApplyIntTruncates(t *testing.T) {
	changes, err := Apply([]byte(`{"price": 12.9}`), testFields)
	require.NoError(t, err)
	assert.Equal(t, 12, changes["price"].Num)
}

func TestApplyIntMap(t *testing.T) {
	changes, err := Apply([]byte(`{"books": {"a": 1, "b": 2}}`), testFields)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, changes["books"].Map)
}

func TestApplyIDRejected(t *testing.T) {
	_, err := Apply([]byte(`{"id": 5, "name": "x"}`), testFields)
	assert.ErrorIs(t, err, ErrImmutableID)

	// Even a null id counts as an attempt to change identity.
	_, err = Apply([]byte(`{"id": null}`), testFields)
	assert.ErrorIs(t, err, ErrImmutableID)
}

func TestApplyTypeMismatch(t *testing.T) {
	cases := map[string]string{
		"string field":  `{"name": 7}`,
		"int field":     `{"price": "cheap"}`,
		"map field":     `{"books": [1, 2]}`,
		"map value":     `{"books": {"a": "x"}}`,
		"not an object": `[1, 2, 3]`,
		"not json":      `{"name": `,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Apply([]byte(doc), testFields)
			assert.ErrorIs(t, err, ErrBadPatch)
		})
	}
}

func TestApplyAllOrNothing(t *testing.T) {
	// One bad field poisons the whole patch; the good field must not leak.
	changes, err := Apply([]byte(`{"name": "ok", "price": "bad"}`), testFields)
	assert.ErrorIs(t, err, ErrBadPatch)
	assert.Nil(t, changes)
}

func TestApplyUnknownFieldsIgnored(t *testing.T) {
	changes, err := Apply([]byte(`{"name": "ok", "publisher": "ignored"}`), testFields)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Contains(t, changes, "name")
}

func TestApplyProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		doc := map[string]interface{}{}
		if rapid.Bool().Draw(t, "hasName") {
			doc["name"] = rapid.String().Draw(t, "name")
		}
		if rapid.Bool().Draw(t, "hasPrice") {
			doc["price"] = rapid.IntRange(-1000, 1000).Draw(t, "price")
		}
		body, err := json.Marshal(doc)
		require.NoError(t, err)

		changes, err := Apply(body, testFields)
		require.NoError(t, err)

		// Every change corresponds to a field present in the document and
		// carries the document's value.
		for name := range changes {
			_, present := doc[name]
			assert.True(t, present)
		}
		if v, ok := doc["price"]; ok {
			assert.Equal(t, v.(int), changes["price"].Num)
		}
		if v, ok := doc["name"]; ok {
			assert.Equal(t, v.(string), changes["name"].Str)
		}
	})
}
