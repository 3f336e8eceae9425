package typeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeMapStringAny(t *testing.T) {
	m, ok := SafeMapStringAny(map[string]any{"a": 1})
	assert.True(t, ok)
	assert.Equal(t, 1, m["a"])

	_, ok = SafeMapStringAny(nil)
	assert.False(t, ok)

	_, ok = SafeMapStringAny("not a map")
	assert.False(t, ok)

	def := map[string]any{"fallback": true}
	assert.Equal(t, def, SafeMapStringAnyDefault(42, def))
}

func TestSafeString(t *testing.T) {
	s, ok := SafeString("hello")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	_, ok = SafeString(nil)
	assert.False(t, ok)

	_, ok = SafeString(7)
	assert.False(t, ok)

	assert.Equal(t, "default", SafeStringDefault(nil, "default"))
	assert.Equal(t, "x", SafeStringDefault("x", "default"))
}

func TestSafeInt_HandlesJSONNumbers(t *testing.T) {
	// JSON unmarshaling produces float64 for all numbers.
	i, ok := SafeInt(float64(5))
	assert.True(t, ok)
	assert.Equal(t, 5, i)

	i, ok = SafeInt(3)
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	_, ok = SafeInt("5")
	assert.False(t, ok)

	assert.Equal(t, 9, SafeIntDefault(nil, 9))
}

func TestSafeFloat64(t *testing.T) {
	f, ok := SafeFloat64(6000)
	assert.True(t, ok)
	assert.Equal(t, 6000.0, f)

	f, ok = SafeFloat64(99.7)
	assert.True(t, ok)
	assert.Equal(t, 99.7, f)

	assert.Equal(t, 12.0, SafeFloat64Default("bad", 12.0))
}

func TestSafeStringSlice(t *testing.T) {
	s, ok := SafeStringSlice([]string{"a", "b"})
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, s)

	// JSON produces []any of strings.
	s, ok = SafeStringSlice([]any{"x", "y"})
	assert.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, s)

	_, ok = SafeStringSlice([]any{"x", 1})
	assert.False(t, ok)

	_, ok = SafeStringSlice(nil)
	assert.False(t, ok)
}

func TestCollectionLen(t *testing.T) {
	assert.Equal(t, 2, CollectionLen([]any{"a", "b"}))
	assert.Equal(t, 3, CollectionLen(map[string]any{"a": 1, "b": 2, "c": 3}))
	assert.Equal(t, 1, CollectionLen([]string{"a"}))
	assert.Equal(t, 2, CollectionLen([]map[string]any{{}, {}}))
	assert.Equal(t, 0, CollectionLen(nil))
	assert.Equal(t, 0, CollectionLen("string"))
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"header": map[string]any{
			"BUKRS": "2000",
			"count": float64(5),
		},
	}

	v, ok := GetNestedValue(data, "header.BUKRS")
	assert.True(t, ok)
	assert.Equal(t, "2000", v)

	s, ok := GetNestedString(data, "header.BUKRS")
	assert.True(t, ok)
	assert.Equal(t, "2000", s)

	i, ok := GetNestedInt(data, "header.count")
	assert.True(t, ok)
	assert.Equal(t, 5, i)

	_, ok = GetNestedValue(data, "header.MISSING")
	assert.False(t, ok)

	_, ok = GetNestedValue(data, "header.BUKRS.too_deep")
	assert.False(t, ok)

	_, ok = GetNestedValue(nil, "header")
	assert.False(t, ok)

	_, ok = GetNestedValue(data, "")
	assert.False(t, ok)
}
