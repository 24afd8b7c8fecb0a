package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type optionalProbe struct {
	Name     Optional[string]   `json:"name,omitzero"`
	ParentID Optional[*uint64]  `json:"parent_id,omitzero"`
	Tags     Optional[[]string] `json:"tags,omitzero"`
}

func TestOptional_Marshal(t *testing.T) {
	out, err := json.Marshal(optionalProbe{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(out))

	out, err = json.Marshal(optionalProbe{
		Name:     Some(""),
		ParentID: Some[*uint64](nil),
		Tags:     Some([]string{}),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"","parent_id":null,"tags":[]}`, string(out))
}

func TestOptional_Unmarshal(t *testing.T) {
	var absent optionalProbe
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.False(t, absent.ParentID.Present())

	var cleared optionalProbe
	require.NoError(t, json.Unmarshal([]byte(`{"parent_id":null}`), &cleared))
	parent, ok := cleared.ParentID.Get()
	assert.True(t, ok)
	assert.Nil(t, parent)

	var set optionalProbe
	require.NoError(t, json.Unmarshal([]byte(`{"parent_id":7,"name":"x"}`), &set))
	parent, ok = set.ParentID.Get()
	require.True(t, ok)
	require.NotNil(t, parent)
	assert.Equal(t, uint64(7), *parent)
	assert.Equal(t, "x", set.Name.OrElse("default"))
	assert.Equal(t, "default", absent.Name.OrElse("default"))
}
