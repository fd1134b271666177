package logit

import "math"

// DefaultLambdaGrid is the regularization strengths spec.md §4.5's 5-fold
// CV sweeps, spaced geometrically as is conventional for a ridge penalty
// grid.
func DefaultLambdaGrid() []float64 {
	return []float64{0.001, 0.01, 0.1, 1, 10, 100}
}

// FitCV runs k-fold cross-validation over grid and refits on the full
// dataset with whichever lambda minimized mean holdout log loss.
func FitCV(features [][]float64, y []float64, grid []float64, k int) (*Model, float64) {
	folds := stratifiedFolds(y, k)

	bestLambda := grid[0]
	bestLoss := math.Inf(1)

	for _, lambda := range grid {
		var totalLoss float64
		for _, fold := range folds {
			trainX, trainY, testX, testY := splitFold(features, y, fold)
			if len(trainY) == 0 || len(testY) == 0 {
				continue
			}
			m := Fit(trainX, trainY, lambda)
			totalLoss += logLoss(m, testX, testY)
		}
		meanLoss := totalLoss / float64(len(folds))
		if meanLoss < bestLoss {
			bestLoss = meanLoss
			bestLambda = lambda
		}
	}

	return Fit(features, y, bestLambda), bestLambda
}

// stratifiedFolds partitions row indices into k folds preserving each
// fold's class balance, the same stratification spec.md §4.5 requires for
// the 80/20 holdout split.
func stratifiedFolds(y []float64, k int) [][]int {
	var pos, neg []int
	for i, v := range y {
		if v == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}

	folds := make([][]int, k)
	for i, idx := range pos {
		folds[i%k] = append(folds[i%k], idx)
	}
	for i, idx := range neg {
		folds[i%k] = append(folds[i%k], idx)
	}
	return folds
}

func splitFold(features [][]float64, y []float64, testIdx []int) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	inTest := make(map[int]bool, len(testIdx))
	for _, i := range testIdx {
		inTest[i] = true
	}
	for i := range y {
		if inTest[i] {
			testX = append(testX, features[i])
			testY = append(testY, y[i])
		} else {
			trainX = append(trainX, features[i])
			trainY = append(trainY, y[i])
		}
	}
	return
}

func logLoss(m *Model, x [][]float64, y []float64) float64 {
	var sum float64
	for i := range x {
		p := clampProba(m.PredictProba(x[i]))
		if y[i] == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(x))
}
