package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps the slot as encoded JSON so every save goes through the
// same path a real store does.
type memStore struct {
	body []byte
	err  error
	puts int
}

func (s *memStore) CreateSchema(context.Context) error { return nil }
func (s *memStore) DropSchema(context.Context) error   { s.body = nil; return nil }

func (s *memStore) GetDocument(context.Context) (*Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.body == nil {
		return nil, nil
	}
	return Decode(s.body)
}

func (s *memStore) PutDocument(_ context.Context, doc *Document) error {
	if s.err != nil {
		return s.err
	}
	g, err := Restore(doc)
	if err != nil {
		return err
	}
	body, err := Save(g)
	if err != nil {
		return err
	}
	s.body = body
	s.puts++
	return nil
}

func (s *memStore) DeleteDocument(context.Context) error { s.body = nil; return nil }

func TestLoadPipeline_Empty(t *testing.T) {
	_, err := LoadPipeline(context.Background(), &memStore{})
	assert.True(t, errors.Is(err, ErrNoPipeline))
}

func TestSaveLoadPipeline(t *testing.T) {
	ctx := context.Background()
	s := &memStore{}
	g := buildSample(t)

	require.NoError(t, SavePipeline(ctx, s, g))
	loaded, err := LoadPipeline(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, g.Nodes(), loaded.Nodes())
	assert.Equal(t, g.Edges(), loaded.Edges())

	// A second save replaces the slot.
	require.NoError(t, SavePipeline(ctx, s, NewGraph()))
	loaded, err = LoadPipeline(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.NodeCount())

	require.NoError(t, s.DeleteDocument(ctx))
	_, err = LoadPipeline(ctx, s)
	assert.True(t, errors.Is(err, ErrNoPipeline))
}

func TestSavePipeline_RejectsCorrupt(t *testing.T) {
	s := &memStore{}
	g := Assemble([]Node{relayNode("a")}, []Edge{link("e", "a", "a")})

	err := SavePipeline(context.Background(), s, g)
	assert.True(t, errors.Is(err, ErrCorruptPipeline))
	assert.Zero(t, s.puts, "nothing is written")
}

func TestPipeline_StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	s := &memStore{err: boom}

	err := SavePipeline(ctx, s, NewGraph())
	assert.ErrorIs(t, err, boom)

	_, err = LoadPipeline(ctx, s)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrNoPipeline))
}
