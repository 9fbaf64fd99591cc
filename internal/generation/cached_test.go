package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/cache"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
)

type countingGenerator struct {
	calls int
	text  string
	err   error
}

func (g *countingGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &Response{Text: g.text + " " + req.Instruction, Citations: 1}, nil
}

func TestCachedGenerator_HitAfterMiss(t *testing.T) {
	mem := cache.NewMemoryClient(100)
	defer mem.Close()
	next := &countingGenerator{text: "answer"}
	g := NewCachedGenerator(next, mem, time.Hour, observability.NopLogger())
	ctx := context.Background()

	first, err := g.Generate(ctx, Request{Instruction: "a"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := g.Generate(ctx, Request{Instruction: "a"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Citations, second.Citations)
	assert.Equal(t, 1, next.calls)

	// any change to the request is a different key
	_, err = g.Generate(ctx, Request{Instruction: "a", Retrieval: RetrievalParams{SearchType: "HYBRID"}})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedGenerator_ErrorsNotCached(t *testing.T) {
	mem := cache.NewMemoryClient(100)
	defer mem.Close()
	next := &countingGenerator{err: errors.New("boom")}
	g := NewCachedGenerator(next, mem, time.Hour, observability.NopLogger())

	_, err := g.Generate(context.Background(), Request{Instruction: "a"})
	require.Error(t, err)
	_, err = g.Generate(context.Background(), Request{Instruction: "a"})
	require.Error(t, err)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, 0, mem.Len())
}

func TestCachedGenerator_CorruptEntry(t *testing.T) {
	mem := cache.NewMemoryClient(100)
	defer mem.Close()
	req := Request{Instruction: "a"}
	key, err := RequestKey(req)
	require.NoError(t, err)
	require.NoError(t, mem.Set(context.Background(), key, []byte("not json"), time.Hour))

	next := &countingGenerator{text: "fresh"}
	g := NewCachedGenerator(next, mem, time.Hour, observability.NopLogger())
	resp, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, "fresh a", resp.Text)
}

func TestRequestKey(t *testing.T) {
	k1, err := RequestKey(Request{Instruction: "a"})
	require.NoError(t, err)
	k2, _ := RequestKey(Request{Instruction: "a"})
	k3, _ := RequestKey(Request{Instruction: "b"})

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Regexp(t, `^gen:[0-9a-f]{64}$`, k1)
}
