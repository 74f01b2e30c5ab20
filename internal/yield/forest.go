package yield

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// ForestConfig controls the random forest regressor.
type ForestConfig struct {
	// Trees is the number of bootstrapped trees (default: 200)
	Trees int

	// Seed makes bootstrap sampling reproducible (default: 42)
	Seed int64

	// MinSamplesSplit is the smallest node that may still be split (default: 2)
	MinSamplesSplit int

	// MaxDepth limits tree depth; 0 grows trees until leaves are pure
	MaxDepth int
}

// DefaultForestConfig returns the configuration the yield model is trained with.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:           200,
		Seed:            42,
		MinSamplesSplit: 2,
	}
}

var ErrNoObservations = errors.New("no observations to train on")

// Forest trains random forest regressors over (year, month, tenor).
// Year is split on thresholds; month and tenor are categorical and split on
// equality, so a month or tenor never seen in training follows the
// "not equal" branch everywhere.
type Forest struct {
	config ForestConfig
}

var (
	_ Trainer = (*Forest)(nil)
	_ Tunable = (*Forest)(nil)
)

func NewForest(config ForestConfig) *Forest {
	def := DefaultForestConfig()
	if config.Trees <= 0 {
		config.Trees = def.Trees
	}
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = def.MinSamplesSplit
	}
	return &Forest{config: config}
}

// Settings identifies the forest configuration.
func (f *Forest) Settings() string {
	c := f.config
	return fmt.Sprintf("forest:trees=%d:seed=%d:min_split=%d:max_depth=%d",
		c.Trees, c.Seed, c.MinSamplesSplit, c.MaxDepth)
}

// Train fits the forest. The result is a *ForestModel.
func (f *Forest) Train(ctx context.Context, obs []Observation) (Oracle, error) {
	if len(obs) == 0 {
		return nil, ErrNoObservations
	}

	ds := newDataset(obs)
	rng := rand.New(rand.NewSource(f.config.Seed))
	model := &ForestModel{trees: make([]tree, 0, f.config.Trees)}

	for t := 0; t < f.config.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("train forest: %w", err)
		}
		sample := make([]int, len(obs))
		for i := range sample {
			sample[i] = rng.Intn(len(obs))
		}
		b := &treeBuilder{ds: ds, config: f.config}
		b.build(sample, 0)
		model.trees = append(model.trees, b.nodes)
	}

	return model, nil
}

// ForestModel is a trained forest. It is safe for concurrent use.
type ForestModel struct {
	trees []tree
}

var _ Oracle = (*ForestModel)(nil)

// Predict averages the predictions of every tree.
func (m *ForestModel) Predict(year, month, tenor int) (float64, error) {
	if m == nil || len(m.trees) == 0 {
		return 0, errors.New("model not trained")
	}
	var sum float64
	for _, t := range m.trees {
		sum += t.predict(float64(year), month, tenor)
	}
	return sum / float64(len(m.trees)), nil
}

// Trees returns the number of trees in the model.
func (m *ForestModel) Trees() int {
	return len(m.trees)
}

type splitKind uint8

const (
	splitYear splitKind = iota
	splitMonth
	splitTenor
)

type node struct {
	leaf      bool
	value     float64
	kind      splitKind
	threshold float64 // year <= threshold goes left
	category  int     // month/tenor == category goes left
	left      int
	right     int
}

type tree []node

func (t tree) predict(year float64, month, tenor int) float64 {
	i := 0
	for {
		n := t[i]
		if n.leaf {
			return n.value
		}
		var goLeft bool
		switch n.kind {
		case splitYear:
			goLeft = year <= n.threshold
		case splitMonth:
			goLeft = month == n.category
		case splitTenor:
			goLeft = tenor == n.category
		}
		if goLeft {
			i = n.left
		} else {
			i = n.right
		}
	}
}

type dataset struct {
	years  []float64
	months []int
	tenors []int
	ys     []float64
}

func newDataset(obs []Observation) *dataset {
	ds := &dataset{
		years:  make([]float64, len(obs)),
		months: make([]int, len(obs)),
		tenors: make([]int, len(obs)),
		ys:     make([]float64, len(obs)),
	}
	for i, o := range obs {
		ds.years[i] = float64(o.Year)
		ds.months[i] = o.Month
		ds.tenors[i] = o.Tenor
		ds.ys[i] = o.Yield
	}
	return ds
}

type treeBuilder struct {
	ds     *dataset
	config ForestConfig
	nodes  tree
}

type split struct {
	kind      splitKind
	threshold float64
	category  int
	sse       float64
}

// build grows the subtree for idx and returns its node index.
func (b *treeBuilder) build(idx []int, depth int) int {
	mean := b.mean(idx)

	at := len(b.nodes)
	b.nodes = append(b.nodes, node{leaf: true, value: mean})

	if len(idx) < b.config.MinSamplesSplit || b.pure(idx) {
		return at
	}
	if b.config.MaxDepth > 0 && depth >= b.config.MaxDepth {
		return at
	}

	parentSSE := b.sse(idx, mean)
	best, ok := b.bestSplit(idx, mean)
	if !ok || best.sse >= parentSSE*(1-1e-9) {
		return at
	}

	var left, right []int
	for _, i := range idx {
		if b.goesLeft(best, i) {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[at] = node{
		kind:      best.kind,
		threshold: best.threshold,
		category:  best.category,
		left:      l,
		right:     r,
	}
	return at
}

func (b *treeBuilder) goesLeft(s split, i int) bool {
	switch s.kind {
	case splitYear:
		return b.ds.years[i] <= s.threshold
	case splitMonth:
		return b.ds.months[i] == s.category
	default:
		return b.ds.tenors[i] == s.category
	}
}

func (b *treeBuilder) mean(idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += b.ds.ys[i]
	}
	return sum / float64(len(idx))
}

// sse is the sum of squared deviations from mean.
func (b *treeBuilder) sse(idx []int, mean float64) float64 {
	var total float64
	for _, i := range idx {
		d := b.ds.ys[i] - mean
		total += d * d
	}
	return total
}

// pure reports whether every target in idx is identical.
func (b *treeBuilder) pure(idx []int) bool {
	first := b.ds.ys[idx[0]]
	for _, i := range idx[1:] {
		if b.ds.ys[i] != first {
			return false
		}
	}
	return true
}

// centeredMoments sums y-mean and its square over idx.
func (b *treeBuilder) centeredMoments(idx []int, mean float64) (sum, sq float64) {
	for _, i := range idx {
		d := b.ds.ys[i] - mean
		sum += d
		sq += d * d
	}
	return sum, sq
}

// bestSplit scans year thresholds, then month and tenor categories. The first
// split with the lowest SSE wins, which keeps training deterministic. Targets
// are centred on the node mean before the sums are taken.
func (b *treeBuilder) bestSplit(idx []int, mean float64) (split, bool) {
	var best split
	found := false
	consider := func(s split) {
		if !found || s.sse < best.sse {
			best = s
			found = true
		}
	}

	totalSum, totalSq := b.centeredMoments(idx, mean)
	total := float64(len(idx))

	sorted := append([]int(nil), idx...)
	sort.SliceStable(sorted, func(a, c int) bool {
		return b.ds.years[sorted[a]] < b.ds.years[sorted[c]]
	})
	var lSum, lSq float64
	for k := 0; k < len(sorted)-1; k++ {
		y := b.ds.ys[sorted[k]] - mean
		lSum += y
		lSq += y * y
		cur, next := b.ds.years[sorted[k]], b.ds.years[sorted[k+1]]
		if cur == next {
			continue
		}
		ln := float64(k + 1)
		rn := total - ln
		rSum, rSq := totalSum-lSum, totalSq-lSq
		consider(split{
			kind:      splitYear,
			threshold: (cur + next) / 2,
			sse:       (lSq - lSum*lSum/ln) + (rSq - rSum*rSum/rn),
		})
	}

	for _, kind := range []splitKind{splitMonth, splitTenor} {
		values := b.ds.months
		if kind == splitTenor {
			values = b.ds.tenors
		}
		type agg struct{ n, sum, sq float64 }
		groups := map[int]*agg{}
		for _, i := range idx {
			g, ok := groups[values[i]]
			if !ok {
				g = &agg{}
				groups[values[i]] = g
			}
			y := b.ds.ys[i] - mean
			g.n++
			g.sum += y
			g.sq += y * y
		}
		if len(groups) < 2 {
			continue
		}
		cats := make([]int, 0, len(groups))
		for c := range groups {
			cats = append(cats, c)
		}
		sort.Ints(cats)
		for _, c := range cats {
			g := groups[c]
			rn := total - g.n
			rSum, rSq := totalSum-g.sum, totalSq-g.sq
			consider(split{
				kind:     kind,
				category: c,
				sse:      (g.sq - g.sum*g.sum/g.n) + (rSq - rSum*rSum/rn),
			})
		}
	}

	return best, found
}
