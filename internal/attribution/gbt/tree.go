// Package gbt implements gradient-boosted regression trees fit against the
// logistic loss, used by the attribution engine's GBT model family
// (spec.md §4.5). No boosting library (xgboost/lightgbm/catboost
// bindings) or general ML library appears anywhere in the example corpus
// (confirmed by grep across _examples/), so this is a from-scratch,
// stdlib-only CART implementation; see DESIGN.md.
package gbt

// Tree is a single CART regression tree: a binary split tree over feature
// indices and thresholds, with a constant leaf value.
type Tree struct {
	nodes []treeNode
}

type treeNode struct {
	// Leaf nodes have feature == -1.
	feature     int
	threshold   float64
	value       float64 // leaf output, unused on internal nodes
	left, right int      // child node indices; -1 if leaf
	cover       float64  // sum of Hessians of training rows reaching this node
}

// Predict returns the leaf value reached by routing x through the tree.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.left == -1 {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// The accessors below expose the node structure read-only, for the SHAP
// package's Saabas-style decision-path traversal — it needs the raw split
// structure, not just point predictions.

// Root is the index of the tree's root node.
func (t *Tree) Root() int { return 0 }

// IsLeaf reports whether node i is a leaf.
func (t *Tree) IsLeaf(i int) bool { return t.nodes[i].left == -1 }

// Feature returns the split feature index at internal node i.
func (t *Tree) Feature(i int) int { return t.nodes[i].feature }

// Threshold returns the split threshold at internal node i.
func (t *Tree) Threshold(i int) float64 { return t.nodes[i].threshold }

// Left returns the left child index of internal node i.
func (t *Tree) Left(i int) int { return t.nodes[i].left }

// Right returns the right child index of internal node i.
func (t *Tree) Right(i int) int { return t.nodes[i].right }

// Value returns the leaf value at node i.
func (t *Tree) Value(i int) float64 { return t.nodes[i].value }

// CoverOf returns the sum of the Hessians of the training rows that reached
// node i during fitting, used as the SHAP algorithm's node "cover" weight.
func (t *Tree) CoverOf(i int) float64 { return t.nodes[i].cover }

// split candidates are evaluated at the midpoint between consecutive
// distinct sorted values of a feature, the standard CART thresholding
// rule.
type splitCandidate struct {
	feature   int
	threshold float64
	gain      float64
	leftIdx   []int
	rightIdx  []int
}

// fitTree grows one CART tree of at most maxDepth against gradients g and
// Hessians h (Newton-boosting targets: leaf value = -sum(g)/(sum(h)+lambda)),
// following the standard XGBoost-style split-gain objective
// gain = 0.5*(GL^2/(HL+lambda) + GR^2/(HR+lambda) - G^2/(H+lambda)) - this
// is the textbook formulation, not copied from any specific example.
func fitTree(features [][]float64, g, h []float64, maxDepth int, lambda, minChildWeight float64) *Tree {
	t := &Tree{}
	root := make([]int, len(g))
	for i := range root {
		root[i] = i
	}
	buildNode(t, features, g, h, root, 0, maxDepth, lambda, minChildWeight)
	return t
}

func buildNode(t *Tree, features [][]float64, g, h []float64, idx []int, depth, maxDepth int, lambda, minChildWeight float64) int {
	nodeIdx := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{feature: -1, left: -1, right: -1})

	sumG, sumH := sumGH(g, h, idx)
	leafVal := -sumG / (sumH + lambda)
	t.nodes[nodeIdx].cover = sumH

	if depth >= maxDepth || len(idx) < 2 {
		t.nodes[nodeIdx].value = leafVal
		return nodeIdx
	}

	best := bestSplit(features, g, h, idx, lambda, minChildWeight)
	if best == nil {
		t.nodes[nodeIdx].value = leafVal
		return nodeIdx
	}

	leftChild := buildNode(t, features, g, h, best.leftIdx, depth+1, maxDepth, lambda, minChildWeight)
	rightChild := buildNode(t, features, g, h, best.rightIdx, depth+1, maxDepth, lambda, minChildWeight)

	t.nodes[nodeIdx].feature = best.feature
	t.nodes[nodeIdx].threshold = best.threshold
	t.nodes[nodeIdx].left = leftChild
	t.nodes[nodeIdx].right = rightChild
	return nodeIdx
}

func sumGH(g, h []float64, idx []int) (float64, float64) {
	var sg, sh float64
	for _, i := range idx {
		sg += g[i]
		sh += h[i]
	}
	return sg, sh
}

func bestSplit(features [][]float64, g, h []float64, idx []int, lambda, minChildWeight float64) *splitCandidate {
	if len(idx) == 0 {
		return nil
	}
	numFeatures := len(features[idx[0]])
	totalG, totalH := sumGH(g, h, idx)
	parentScore := totalG * totalG / (totalH + lambda)

	var best *splitCandidate
	for f := 0; f < numFeatures; f++ {
		sorted := append([]int(nil), idx...)
		sortByFeature(sorted, features, f)

		var leftG, leftH float64
		for pos := 0; pos < len(sorted)-1; pos++ {
			i := sorted[pos]
			leftG += g[i]
			leftH += h[i]

			cur := features[i][f]
			next := features[sorted[pos+1]][f]
			if cur == next {
				continue
			}
			rightG, rightH := totalG-leftG, totalH-leftH
			if leftH < minChildWeight || rightH < minChildWeight {
				continue
			}

			gain := 0.5*(leftG*leftG/(leftH+lambda)+rightG*rightG/(rightH+lambda)) - 0.5*parentScore
			if best == nil || gain > best.gain {
				threshold := (cur + next) / 2
				best = &splitCandidate{
					feature:   f,
					threshold: threshold,
					gain:      gain,
					leftIdx:   append([]int(nil), sorted[:pos+1]...),
					rightIdx:  append([]int(nil), sorted[pos+1:]...),
				}
			}
		}
	}
	if best == nil || best.gain <= 0 {
		return nil
	}
	return best
}

func sortByFeature(idx []int, features [][]float64, f int) {
	// Simple insertion sort: split candidate evaluation runs per boosting
	// round against a dataset size the attribution engine keeps in the
	// thousands, not millions, so O(n^2) here is not the bottleneck —
	// the per-rally simulation loop is.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && features[idx[j-1]][f] > features[idx[j]][f]; j-- {
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
}
