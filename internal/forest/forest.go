// Package forest implements a random-forest regressor: bootstrap-aggregated
// CART regression trees with variance-reduction splits. It exists because the
// prediction engine needs a tree-ensemble model that can be fit in-process,
// persisted as a blob, and evaluated on held-out data; the package exposes
// only Fit and Predict plus gob-friendly exported state.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Config holds the forest hyperparameters.
type Config struct {
	// NumTrees is the number of bootstrap trees in the ensemble.
	NumTrees int
	// MaxDepth bounds tree depth; the root is depth 0.
	MaxDepth int
	// MinLeaf is the minimum number of samples in a leaf.
	MinLeaf int
	// Seed makes bootstrap sampling reproducible.
	Seed uint64
}

// DefaultConfig returns the production hyperparameters: 200 trees, depth 12,
// minimum leaf size 3, fixed seed.
func DefaultConfig() Config {
	return Config{
		NumTrees: 200,
		MaxDepth: 12,
		MinLeaf:  3,
		Seed:     42,
	}
}

// Node is one node of a flattened regression tree. Leaf nodes carry the mean
// target of their training samples in Value; internal nodes route on
// Feature/Threshold into the Left/Right node indices.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Leaf      bool
}

// Tree is a single CART regression tree stored as a flat node array, which
// keeps the gob encoding compact and avoids pointer chasing on predict.
type Tree struct {
	Nodes []Node
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a fitted ensemble. All fields are exported for gob persistence;
// a Forest is immutable after Fit and safe for concurrent Predict calls.
type Forest struct {
	Trees       []Tree
	NumFeatures int
}

// Fit trains a forest on the feature matrix X and target vector y.
// Every row of X must have the same length. Returns an error on a
// degenerate input (no rows, no columns, or mismatched lengths).
func Fit(X [][]float64, y []float64, cfg Config) (*Forest, error) {
	if len(X) == 0 {
		return nil, errors.New("forest: empty feature matrix")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("forest: %d rows but %d targets", len(X), len(y))
	}
	p := len(X[0])
	if p == 0 {
		return nil, errors.New("forest: zero-width feature matrix")
	}
	for i, row := range X {
		if len(row) != p {
			return nil, fmt.Errorf("forest: row %d has %d columns, want %d", i, len(row), p)
		}
	}
	if cfg.NumTrees <= 0 || cfg.MaxDepth <= 0 || cfg.MinLeaf <= 0 {
		return nil, fmt.Errorf("forest: invalid config %+v", cfg)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))

	f := &Forest{
		Trees:       make([]Tree, cfg.NumTrees),
		NumFeatures: p,
	}

	n := len(X)
	for t := 0; t < cfg.NumTrees; t++ {
		// Bootstrap sample with replacement, same size as the dataset.
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.IntN(n)
		}

		b := &treeBuilder{
			X:        X,
			y:        y,
			maxDepth: cfg.MaxDepth,
			minLeaf:  cfg.MinLeaf,
		}
		b.build(idx, 0)
		f.Trees[t] = Tree{Nodes: b.nodes}
	}

	return f, nil
}

// Predict returns the ensemble mean for one feature vector. The vector must
// have the width the forest was trained with.
func (f *Forest) Predict(x []float64) (float64, error) {
	if len(x) != f.NumFeatures {
		return 0, fmt.Errorf("forest: vector has %d features, model expects %d", len(x), f.NumFeatures)
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees)), nil
}

// treeBuilder grows one tree depth-first into a flat node slice.
type treeBuilder struct {
	X        [][]float64
	y        []float64
	maxDepth int
	minLeaf  int
	nodes    []Node
}

// build appends the subtree for the given sample indices and returns its
// node index.
func (b *treeBuilder) build(idx []int, depth int) int {
	mean := b.meanOf(idx)

	if depth >= b.maxDepth || len(idx) < 2*b.minLeaf {
		return b.leaf(mean)
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return b.leaf(mean)
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	// Reserve the internal node before recursing so children land after it.
	nodeIdx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: feature, Threshold: threshold})
	leftIdx := b.build(left, depth+1)
	rightIdx := b.build(right, depth+1)
	b.nodes[nodeIdx].Left = leftIdx
	b.nodes[nodeIdx].Right = rightIdx
	return nodeIdx
}

func (b *treeBuilder) leaf(value float64) int {
	b.nodes = append(b.nodes, Node{Leaf: true, Value: value})
	return len(b.nodes) - 1
}

func (b *treeBuilder) meanOf(idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	return sum / float64(len(idx))
}

// bestSplit scans every feature for the split that minimizes the summed
// within-node squared error, honoring the minimum leaf size. Returns
// ok=false when no valid split improves on the parent (e.g. constant
// features or constant targets).
func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	p := len(b.X[idx[0]])

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	bestSSE := math.Inf(1)
	order := make([]int, n)

	for f := 0; f < p; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool {
			return b.X[order[a]][f] < b.X[order[c]][f]
		})

		var leftSum, leftSq float64
		for pos := 0; pos < n-1; pos++ {
			i := order[pos]
			leftSum += b.y[i]
			leftSq += b.y[i] * b.y[i]

			nl := pos + 1
			nr := n - nl
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}

			// Skip tied feature values; a threshold between equal values
			// would not separate the samples.
			cur := b.X[order[pos]][f]
			next := b.X[order[pos+1]][f]
			if cur == next {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) +
				(rightSq - rightSum*rightSum/float64(nr))

			if sse < bestSSE {
				bestSSE = sse
				feature = f
				threshold = (cur + next) / 2
				ok = true
			}
		}
	}

	if !ok || bestSSE >= parentSSE {
		return 0, 0, false
	}
	return feature, threshold, true
}
