package wire

import (
	. "testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRoundTripPreservesKeyOrder(t *T) {
	src := `{"z":1,"a":2,"m":3}`
	v, err := ParseValue([]byte(src))
	require.Nil(t, err)
	require.Equal(t, Object, v.Kind)

	var keys []string
	for _, p := range v.ObjectVal {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)

	out, err := Marshal(v)
	require.Nil(t, err)
	assert.Equal(t, src, string(out))
}

func TestValueNestedArraysAndObjects(t *T) {
	src := `{"list":[1,"two",true,null,{"nested":"yes"}]}`
	v, err := ParseValue([]byte(src))
	require.Nil(t, err)

	list, ok := v.Get("list")
	require.True(t, ok)
	require.Len(t, list.ArrayVal, 5)
	assert.Equal(t, Number, list.ArrayVal[0].Kind)
	assert.Equal(t, String, list.ArrayVal[1].Kind)
	assert.Equal(t, Bool, list.ArrayVal[2].Kind)
	assert.True(t, list.ArrayVal[3].IsNull())
	assert.Equal(t, Object, list.ArrayVal[4].Kind)

	out, err := Marshal(v)
	require.Nil(t, err)
	assert.Equal(t, src, string(out))
}

func TestValueTrailingDataRejected(t *T) {
	_, err := ParseValue([]byte(`{}{}`))
	assert.NotNil(t, err)
}
