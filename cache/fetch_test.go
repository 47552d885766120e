package cache

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetAs(t *testing.T) {
	c := newTestCache(t, testConfig())
	c.Put("s", "hello")

	val, ok := GetAs[string](c, "s")
	assert.True(t, ok)
	assert.Equal(t, "hello", val)

	_, ok = GetAs[int](c, "s")
	assert.False(t, ok)

	_, ok = GetAs[string](c, "absent")
	assert.False(t, ok)
}

func TestFetchPopulatesOnMiss(t *testing.T) {
	c := newTestCache(t, testConfig())
	calls := 0
	produce := func() (string, error) {
		calls++
		return "value", nil
	}

	val, err := Fetch(c, "k", produce)
	assert.NoError(t, err)
	assert.Equal(t, "value", val)

	val, err = Fetch(c, "k", produce)
	assert.NoError(t, err)
	assert.Equal(t, "value", val)
	assert.Equal(t, 1, calls)
}

func TestFetchErrorNotCached(t *testing.T) {
	c := newTestCache(t, testConfig())
	boom := errors.New("boom")
	_, err := Fetch(c, "k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Exists("k"))
}
