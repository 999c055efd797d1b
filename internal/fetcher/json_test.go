package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func drain[T any](items <-chan T, errs <-chan error) ([]T, error) {
	var out []T
	for item := range items {
		out = append(out, item)
	}
	return out, <-errs
}

func TestDecodeJSONArray(t *testing.T) {
	r := strings.NewReader(`[{"id":1,"name":"a"},{"id":2,"name":"b"}]`)
	items, errs := DecodeJSONArray[jsonItem](context.Background(), r)

	got, err := drain(items, errs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, jsonItem{ID: 1, Name: "a"}, got[0])
	assert.Equal(t, jsonItem{ID: 2, Name: "b"}, got[1])
}

func TestDecodeJSONArrayEmpty(t *testing.T) {
	items, errs := DecodeJSONArray[jsonItem](context.Background(), strings.NewReader(`[]`))
	got, err := drain(items, errs)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeJSONArrayNotAnArray(t *testing.T) {
	items, errs := DecodeJSONArray[jsonItem](context.Background(), strings.NewReader(`{"dados":[]}`))
	got, err := drain(items, errs)
	require.Error(t, err)
	assert.Empty(t, got)
	assert.Contains(t, err.Error(), "expected array")
}

func TestDecodeJSONArrayTruncated(t *testing.T) {
	r := strings.NewReader(`[{"id":1,"name":"a"},{"id":2,`)
	items, errs := DecodeJSONArray[jsonItem](context.Background(), r)

	got, err := drain(items, errs)
	require.Error(t, err, "a truncated stream surfaces after the valid prefix")
	assert.Len(t, got, 1)
}

func TestDecodeJSONArrayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, errs := DecodeJSONArray[jsonItem](ctx, strings.NewReader(`[{"id":1,"name":"a"}]`))
	_, err := drain(items, errs)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
