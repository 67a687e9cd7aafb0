package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHookRegistry_RunsInOrder(t *testing.T) {
	r := NewHookRegistry[string]()
	var got []string
	r.On(func(_ context.Context, e string) { got = append(got, "a:"+e) })
	r.On(func(_ context.Context, e string) { got = append(got, "b:"+e) })

	r.Run(context.Background(), "x")

	assert.Equal(t, []string{"a:x", "b:x"}, got)
	assert.Equal(t, 2, r.Len())
}

func TestHookRegistry_PanicDoesNotStopOthers(t *testing.T) {
	r := NewHookRegistry[int]()
	called := false
	r.On(func(context.Context, int) { panic("boom") })
	r.On(func(context.Context, int) { called = true })

	assert.NotPanics(t, func() { r.Run(context.Background(), 1) })
	assert.True(t, called)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, 10, NormalizeLimit(10))
}
