package shap

import (
	"github.com/okian/bvsim/internal/attribution/gbt"
	"github.com/okian/bvsim/internal/attribution/logit"
)

// GBTContributions returns per-feature SHAP-style contributions for x
// against a full boosted ensemble: the sum, across every tree, of each
// tree's learning-rate-scaled path contribution (treeContributions).
func GBTContributions(m *gbt.Model, x []float64, numFeatures int) []float64 {
	phi := make([]float64, numFeatures)
	for _, t := range m.Trees {
		tc := treeContributions(t, x, numFeatures)
		for i, v := range tc {
			phi[i] += m.LearningRate * v
		}
	}
	return phi
}

// LogisticContributions returns the closed-form linear SHAP decomposition
// for a logistic model: on the log-odds scale, contribution_i = weight_i *
// (x_i - baseline_i), which sums exactly to (eta(x) - eta(baseline)) by
// linearity — logistic regression's SHAP value has a closed form precisely
// because the model itself is linear in its inputs before the sigmoid.
func LogisticContributions(m *logit.Model, x, baseline []float64) []float64 {
	phi := make([]float64, len(m.Weights))
	for i, w := range m.Weights {
		phi[i] = w * (x[i] - baseline[i])
	}
	return phi
}
