package esign

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAttrs_YAMLKeepsOrder(t *testing.T) {
	src := `
recipients:
  signers:
    - role_name: Buyer
  carbon_copies:
    - role_name: Agent
  agents: []
documents:
  - document_id: "1"
    page_count: 2
`
	a := NewAttrs()
	require.NoError(t, yaml.Unmarshal([]byte(src), a))

	assert.Equal(t, []string{"recipients", "documents"}, a.Keys())
	assert.Equal(t, []string{"signers", "carbon_copies", "agents"}, a.Node("recipients").Keys())

	doc := a.List("documents")[0].(*Attrs)
	assert.Equal(t, "1", doc.String("document_id"))
	v, _ := doc.Get("page_count")
	assert.Equal(t, 2, v)
}

func TestAttrs_YAMLRoundTrip(t *testing.T) {
	a := AttrsOf("z", "last", "a", AttrsOf("y", true, "b", []any{1, "two"}))

	out, err := yaml.Marshal(a)
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(out), "z:"), strings.Index(string(out), "a:"))

	back := NewAttrs()
	require.NoError(t, yaml.Unmarshal(out, back))
	if diff := cmp.Diff(a.ToMap(), back.ToMap()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, a.Keys(), back.Keys())
}

func TestAttrs_JSON(t *testing.T) {
	a, err := DecodeJSON(strings.NewReader(`{"b": 1, "a": 2.5, "c": {"x": null, "y": [true]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, a.Keys())

	b, _ := a.Get("b")
	assert.Equal(t, 1, b)
	f, _ := a.Get("a")
	assert.Equal(t, 2.5, f)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":2.5,"c":{"x":null,"y":[true]}}`, string(out))

	var back Attrs
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, a.Keys(), back.Keys())

	_, err = DecodeJSON(strings.NewReader(`[1, 2]`))
	assert.Error(t, err)
}

func TestAttrs_CloneIsDeep(t *testing.T) {
	a := AttrsOf("n", AttrsOf("v", "1"), "l", []any{AttrsOf("v", "2")})
	c := a.Clone()

	c.Node("n").Set("v", "changed")
	c.List("l")[0].(*Attrs).Set("v", "changed")

	assert.Equal(t, "1", a.Node("n").String("v"))
	assert.Equal(t, "2", a.List("l")[0].(*Attrs).String("v"))
}

func TestAttrs_WithoutOnlyMerge(t *testing.T) {
	a := AttrsOf("a", 1, "b", 2, "c", 3)

	assert.Equal(t, []string{"a", "c"}, a.Without("b").Keys())
	assert.Equal(t, []string{"a", "c"}, a.Only("c", "a").Keys())
	assert.Equal(t, 3, a.Len())

	a.Merge(AttrsOf("b", 20, "d", 4))
	assert.Equal(t, []string{"a", "b", "c", "d"}, a.Keys())
	assert.Equal(t, "20", a.String("b"))

	a.Delete("a")
	assert.False(t, a.Has("a"))
	assert.Equal(t, []string{"b", "c", "d"}, a.Keys())
}

func TestAttrs_RenameKeys(t *testing.T) {
	a := AttrsOf("Outer", AttrsOf("Inner", []any{AttrsOf("Deep", 1)}))
	lower := a.RenameKeys(strings.ToLower)

	inner := lower.Node("outer").List("inner")[0].(*Attrs)
	assert.True(t, inner.Has("deep"))
	assert.True(t, a.Has("Outer"))
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "true"},
		{false, "false"},
		{42, "42"},
		{int64(-7), "-7"},
		{2.5, "2.5"},
		{3.0, "3"},
		{json.Number("12"), "12"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonical(tt.in), "Canonical(%#v)", tt.in)
	}
}
