package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// ErrIndexEmpty is returned when searching an index that holds no descriptors.
var ErrIndexEmpty = errors.New("index not initialized")

// IndexHit is one approximate nearest-neighbor result.
type IndexHit struct {
	DescriptorID int64
	IdentityID   int64
	Distance     float32 // Euclidean distance as computed by the graph
}

// DescriptorIndex wraps the HNSW graph for Euclidean descriptor search.
// It is built once per snapshot and never mutated afterwards.
type DescriptorIndex struct {
	graph              *hnsw.Graph[int64]
	descriptorIdentity map[int64]int64 // descriptor ID -> identity ID
	dim                int
	mu                 sync.RWMutex
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// BuildDescriptorIndex builds an index over every descriptor of the given identities.
func BuildDescriptorIndex(records []IdentityRecord) *DescriptorIndex {
	idx := &DescriptorIndex{
		descriptorIdentity: make(map[int64]int64),
	}

	var g *hnsw.Graph[int64]
	for i := range records {
		for _, d := range records[i].Descriptors {
			if len(d.Vector) == 0 {
				continue
			}
			if g == nil {
				g = newGraph()
				idx.dim = len(d.Vector)
			}
			// The graph requires a single dimensionality.
			if len(d.Vector) != idx.dim {
				continue
			}
			g.Add(hnsw.MakeNode(d.ID, d.Vector))
			idx.descriptorIdentity[d.ID] = records[i].Identity.ID
		}
	}
	idx.graph = g
	return idx
}

// Search finds the k nearest descriptors to the query.
// Searches hold the exclusive lock.
func (h *DescriptorIndex) Search(query []float32, k int) ([]IndexHit, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.graph == nil {
		return nil, ErrIndexEmpty
	}
	if k <= 0 {
		return nil, nil
	}
	if len(query) != h.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(query), h.dim)
	}

	neighbors := h.graph.Search(query, k)
	hits := make([]IndexHit, 0, len(neighbors))
	for _, n := range neighbors {
		hits = append(hits, IndexHit{
			DescriptorID: n.Key,
			IdentityID:   h.descriptorIdentity[n.Key],
			Distance:     hnsw.EuclideanDistance(query, n.Value),
		})
	}
	return hits, nil
}

// Count returns the number of indexed descriptors.
func (h *DescriptorIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.descriptorIdentity)
}

// IsEmpty returns true if the index has no graph data.
func (h *DescriptorIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil
}
