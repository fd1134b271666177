// Package shap computes per-feature attribution: a recursive path-based
// decomposition for the GBT model family, and the closed-form linear
// decomposition for logistic regression. Like gbt and logit, no SHAP or
// explainability library exists anywhere in the corpus, so both are
// implemented directly against their published definitions; see
// DESIGN.md.
package shap

import "github.com/okian/bvsim/internal/attribution/gbt"

// treeContributions decomposes a single tree's prediction for x into a
// per-feature contribution using Saabas's recursive decision-path method:
// walking root to leaf, each split contributes (childValue - nodeValue) to
// whichever feature it split on. This satisfies the efficiency property
// exactly — contributions sum to leaf value minus root value — which is
// what the boosting ensemble needs to decompose a prediction into feature
// contributions that add up to the right total; it is order/path-dependent
// rather than a fully symmetric Shapley value (the combinatorial exact
// Tree-SHAP recursion), a deliberate simplification noted in DESIGN.md.
func treeContributions(t *gbt.Tree, x []float64, numFeatures int) []float64 {
	phi := make([]float64, numFeatures)
	node := t.Root()
	for !t.IsLeaf(node) {
		feature := t.Feature(node)
		threshold := t.Threshold(node)
		nodeValue := leafwardValue(t, node)

		var next int
		if x[feature] <= threshold {
			next = t.Left(node)
		} else {
			next = t.Right(node)
		}
		childValue := leafwardValue(t, next)

		phi[feature] += childValue - nodeValue
		node = next
	}
	return phi
}

// leafwardValue returns an internal node's expected value under its own
// subtree, weighted by cover, so that a contribution measures the actual
// shift in expectation the split induces — the same "expected value at
// this node" quantity exact Tree-SHAP's cover-weighted recursion uses.
func leafwardValue(t *gbt.Tree, node int) float64 {
	if t.IsLeaf(node) {
		return t.Value(node)
	}
	left, right := t.Left(node), t.Right(node)
	lc, rc := t.CoverOf(left), t.CoverOf(right)
	total := lc + rc
	if total <= 0 {
		return 0.5 * (leafwardValue(t, left) + leafwardValue(t, right))
	}
	return (lc*leafwardValue(t, left) + rc*leafwardValue(t, right)) / total
}
