package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEditor_RandomEditsStayValid drives an editor with random operations
// and checks the graph after every step.
func TestEditor_RandomEditsStayValid(t *testing.T) {
	ctx := context.Background()
	toolNames := []string{"relay", "counter", "source", "sink"}
	rejections := []error{ErrInvalidEndpoint, ErrSelfLoop, ErrTypeMismatch, ErrPortOccupied, ErrCycleDetected}

	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7919))
		ed := NewEditor(testTools(), WithIDGenerator(sequentialIDs("s")))
		g := NewGraph()

		for step := 0; step < 300; step++ {
			nodes := g.Nodes()
			switch op := rng.IntN(10); {
			case op < 3 || len(nodes) < 2:
				_, err := ed.AddNode(ctx, g, toolNames[rng.IntN(len(toolNames))], Position{X: rng.Float64() * 1000, Y: rng.Float64() * 1000})
				require.NoError(t, err)
			case op < 7:
				src := nodes[rng.IntN(len(nodes))]
				dst := nodes[rng.IntN(len(nodes))]
				if len(src.Outputs) == 0 || len(dst.Inputs) == 0 {
					continue
				}
				before := g.EdgeCount()
				_, err := ed.AddConnection(g, Connection{
					SourceNodeID: src.ID,
					SourcePort:   src.Outputs[rng.IntN(len(src.Outputs))].Name,
					TargetNodeID: dst.ID,
					TargetPort:   dst.Inputs[rng.IntN(len(dst.Inputs))].Name,
				})
				if err != nil {
					assert.True(t, isOneOf(err, rejections), "seed %d step %d: unexpected error %v", seed, step, err)
					assert.Equal(t, before, g.EdgeCount())
				}
			case op < 8:
				ed.RemoveNode(g, nodes[rng.IntN(len(nodes))].ID)
			case op < 9:
				if edges := g.Edges(); len(edges) > 0 {
					ed.RemoveConnection(g, edges[rng.IntN(len(edges))].ID)
				}
			default:
				require.NoError(t, ed.MoveNode(g, nodes[rng.IntN(len(nodes))].ID, Position{X: rng.Float64(), Y: rng.Float64()}))
			}

			require.Nil(t, Validate(g), "seed %d step %d", seed, step)
		}

		data, err := Save(g)
		require.NoError(t, err)
		loaded, err := Load(data)
		require.NoError(t, err)
		assert.Equal(t, g.Nodes(), loaded.Nodes(), "seed %d", seed)
		assert.Equal(t, g.Edges(), loaded.Edges(), "seed %d", seed)
	}
}

func isOneOf(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// FuzzLoad checks that Load never panics and only ever returns a valid
// graph or one of its two documented errors.
func FuzzLoad(f *testing.F) {
	seeds := []string{
		`{"nodes":[],"edges":[]}`,
		`{"nodes":[{"id":"a","toolName":"relay","outputs":[{"name":"out","dataType":"string"}]},{"id":"b","toolName":"relay","inputs":[{"name":"in","dataType":"string"}]}],"edges":[{"id":"e","sourceNodeId":"a","sourcePort":"out","targetNodeId":"b","targetPort":"in"}]}`,
		`{"nodes":[{"id":"1","data":{"label":"search","outputs":[{"name":"results","type":"string"}]}}],"edges":[{"id":"x","source":"1","target":"1"}]}`,
		`{"nodes":{},"edges":[]}`,
		`null`,
		``,
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		g, err := Load(data)
		if err != nil {
			if !errors.Is(err, ErrMalformedDocument) && !errors.Is(err, ErrCorruptPipeline) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}
		if v := Validate(g); v != nil {
			t.Fatalf("Load returned an invalid graph: %v", v)
		}
		if _, err := Save(g); err != nil {
			t.Fatalf("save after load: %v", err)
		}
	})
}
