/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package tsa

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// cluster partitions the rows of periods into k groups, returning the
// cluster assignment per row and the representative rows (centroids for
// k-means, medoids for k-medoids).
func cluster(periods *mat.Dense, k int, method ClusterMethod) (assignment []int, centers *mat.Dense, err error) {
	rows, _ := periods.Dims()
	if k < 1 || k > rows {
		return nil, nil, fmt.Errorf("tsa: invalid cluster count %d for %d periods", k, rows)
	}
	switch method {
	case KMedoids:
		return kMedoids(periods, k)
	default:
		return kMeans(periods, k)
	}
}

const maxIterations = 100

func kMeans(periods *mat.Dense, k int) ([]int, *mat.Dense, error) {
	rows, cols := periods.Dims()
	rng := rand.New(rand.NewSource(1))
	centers := mat.NewDense(k, cols, nil)
	seedRows(periods, k, rng, centers)

	assignment := make([]int, rows)
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for r := 0; r < rows; r++ {
			row := mat.Row(nil, r, periods)
			best, bestDist := 0, math.Inf(1)
			for c := 0; c < k; c++ {
				d := sqDist(row, mat.Row(nil, c, centers))
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignment[r] != best {
				changed = true
			}
			assignment[r] = best
		}
		if !recomputeCentroids(periods, assignment, k, centers) {
			// an empty cluster was re-seeded; keep iterating
			changed = true
		}
		if !changed && iter > 0 {
			break
		}
	}
	return assignment, centers, nil
}

func kMedoids(periods *mat.Dense, k int) ([]int, *mat.Dense, error) {
	rows, cols := periods.Dims()
	rng := rand.New(rand.NewSource(1))
	medoidIdx := make([]int, k)
	perm := rng.Perm(rows)
	copy(medoidIdx, perm[:k])

	assignment := make([]int, rows)
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for r := 0; r < rows; r++ {
			row := mat.Row(nil, r, periods)
			best, bestDist := 0, math.Inf(1)
			for c, mi := range medoidIdx {
				d := sqDist(row, mat.Row(nil, mi, periods))
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignment[r] != best {
				changed = true
			}
			assignment[r] = best
		}
		for c := range medoidIdx {
			var members []int
			for r, a := range assignment {
				if a == c {
					members = append(members, r)
				}
			}
			if len(members) == 0 {
				continue
			}
			medoidIdx[c] = bestMedoid(periods, members)
		}
		if !changed && iter > 0 {
			break
		}
	}
	centers := mat.NewDense(k, cols, nil)
	for c, mi := range medoidIdx {
		centers.SetRow(c, mat.Row(nil, mi, periods))
	}
	return assignment, centers, nil
}

// bestMedoid returns the row index within members minimizing the sum of
// squared distances to every other member of the cluster.
func bestMedoid(periods *mat.Dense, members []int) int {
	best, bestCost := members[0], math.Inf(1)
	for _, i := range members {
		ri := mat.Row(nil, i, periods)
		var cost float64
		for _, j := range members {
			cost += sqDist(ri, mat.Row(nil, j, periods))
		}
		if cost < bestCost {
			best, bestCost = i, cost
		}
	}
	return best
}

func seedRows(periods *mat.Dense, k int, rng *rand.Rand, centers *mat.Dense) {
	rows, _ := periods.Dims()
	perm := rng.Perm(rows)
	for c := 0; c < k; c++ {
		centers.SetRow(c, mat.Row(nil, perm[c%rows], periods))
	}
}

func recomputeCentroids(periods *mat.Dense, assignment []int, k int, centers *mat.Dense) bool {
	rows, cols := periods.Dims()
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, cols)
	}
	for r := 0; r < rows; r++ {
		c := assignment[r]
		row := mat.Row(nil, r, periods)
		floats.Add(sums[c], row)
		counts[c]++
	}
	ok := true
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			ok = false
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		centers.SetRow(c, sums[c])
	}
	return ok
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
