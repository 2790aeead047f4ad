/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Package tsa reduces per-element hourly series to representative
// operational time steps (spec.md §4.3): it clusters periods of a year by
// k-means or k-medoids, optionally keeping extreme periods, and produces
// the duration and the cyclic base→operational sequence that the
// timesteps.Grid needs.
package tsa

import (
	"context"
	"fmt"
	"math"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/spatialmodel/zengarden/internal/hash"
)

// ClusterMethod selects the clustering algorithm, matching
// analysis.cluster_method in spec.md §6.
type ClusterMethod int

const (
	KMeans ClusterMethod = iota
	KMedoids
)

// Config holds the aggregation parameters from analysis (spec.md §6).
type Config struct {
	HoursPerPeriod int
	Representative int // T, target number of representative operational steps
	Method         ClusterMethod
	KeepExtremePeriods bool
	Conduct        bool // system.conduct_time_series_aggregation
	// Representation carries analysis.representation ("meanRepresentation"
	// or "segmentedRepresentation"); Aggregate does not read it and
	// performs no yearly/operational refinement for either value.
	Representation string
}

// RawSeries is one element-attribute-location hourly series for a single
// year, keyed as (element, attribute, location, hour) in spec.md §4.3.
type RawSeries struct {
	Element   string
	Attribute string
	Location  string
	Hours     []float64 // length H
}

// Result is the aggregator's output for one element: the representative
// operational steps, their durations, and the sequence that reconstructs
// the original year.
type Result struct {
	Sequence  []int                          // base hour (0..H-1) -> operational step
	Duration  []float64                      // per operational step, in hours
	Series    map[string]map[string][]float64 // attribute -> location -> aggregated series (len == len(Duration))
}

// Excluded lists (element, attribute) pairs that bypass clustering and are
// instead aggregated manually by averaging (k-means) or median (k-medoids)
// across the hours assigned to each cluster.
type Excluded map[[2]string]bool

// Aggregator runs the clustering procedure and memoizes results per
// (element, version, raw-series content hash) key so that repeated rolling-horizon calls with
// unchanged raw series are free, grounded on the teacher's use of
// ctessum/requestcache to memoize expensive per-entity computations.
type Aggregator struct {
	cfg   Config
	cache *requestcache.Cache
}

// New constructs an Aggregator. workers bounds the cache's concurrent
// computation workers.
func New(cfg Config, workers int) *Aggregator {
	a := &Aggregator{cfg: cfg}
	a.cache = requestcache.NewCache(a.process, workers, requestcache.Memory(256))
	return a
}

// clusterRequest is the cache payload for one element's aggregation: the
// raw series plus the exclusion list.
type clusterRequest struct {
	series []RawSeries
	excl   Excluded
}

// Aggregate reduces series (all for the same element, one year, shape
// (locations, H)) to representative operational steps. The cache key is the
// element name, the caller-supplied version (bumped e.g. between
// rolling-horizon years), and a content hash of the raw series themselves,
// so a caller that forgets to bump version still gets a fresh result if the
// underlying data actually changed.
func (a *Aggregator) Aggregate(element string, series []RawSeries, excl Excluded, version int) (*Result, error) {
	key := fmt.Sprintf("%s/%d/%s", element, version, hash.Hash(series))
	req := a.cache.NewRequest(context.Background(), clusterRequest{series: series, excl: excl}, key)
	v, err := req.Result()
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (a *Aggregator) process(_ context.Context, payload interface{}) (interface{}, error) {
	r := payload.(clusterRequest)
	return a.aggregate(r.series, r.excl)
}

func (a *Aggregator) aggregate(series []RawSeries, excl Excluded) (*Result, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("tsa: no series supplied")
	}
	h := len(series[0].Hours)
	for _, s := range series {
		if len(s.Hours) != h {
			return nil, fmt.Errorf("tsa: series %s/%s/%s has length %d, want %d", s.Element, s.Attribute, s.Location, len(s.Hours), h)
		}
	}

	if allConstant(series) {
		return identityResult(series, h, 1), nil
	}

	if !a.cfg.Conduct || a.cfg.Representative >= h {
		return identityResult(series, h, h), nil
	}

	hpp := a.cfg.HoursPerPeriod
	if hpp <= 0 {
		hpp = 1
	}
	if h%hpp != 0 {
		logrus.Warnf("tsa: hours_per_period %d does not evenly divide %d hours; truncating final period", hpp, h)
	}
	numPeriods := h / hpp
	numClusters := a.cfg.Representative / hpp
	if numClusters < 1 {
		numClusters = 1
	}
	if numClusters > numPeriods {
		numClusters = numPeriods
	}

	// Build the clustering matrix (non-excluded attributes only): one row
	// per period, one column per (attribute, location, hour-within-period).
	clusterAttrs := clusteredAttributes(series, excl)
	periods := mat.NewDense(numPeriods, len(clusterAttrs)*hpp, nil)
	for col, key := range clusterAttrs {
		s := findSeries(series, key)
		for p := 0; p < numPeriods; p++ {
			for hh := 0; hh < hpp; hh++ {
				periods.Set(p, col*hpp+hh, s.Hours[p*hpp+hh])
			}
		}
	}

	assignment, centers, err := cluster(periods, numClusters, a.cfg.Method)
	if err != nil {
		return nil, err
	}
	if a.cfg.KeepExtremePeriods {
		assignment, centers, numClusters = retainExtremePeriods(periods, assignment, centers)
	}

	occurrences := make([]int, numClusters)
	for _, c := range assignment {
		occurrences[c]++
	}
	duration := make([]float64, numClusters)
	for c, n := range occurrences {
		duration[c] = float64(hpp * n)
	}

	sequence := make([]int, h)
	for p, c := range assignment {
		for hh := 0; hh < hpp; hh++ {
			idx := p*hpp + hh
			if idx < h {
				sequence[idx] = c
			}
		}
	}
	// Any trailing hours left over from a non-evenly-dividing period count
	// land in the last period's cluster.
	for idx := numPeriods * hpp; idx < h; idx++ {
		sequence[idx] = assignment[numPeriods-1]
	}

	out := &Result{Sequence: sequence, Duration: duration, Series: map[string]map[string][]float64{}}
	for col, key := range clusterAttrs {
		attr, loc := key[0], key[1]
		if out.Series[attr] == nil {
			out.Series[attr] = map[string][]float64{}
		}
		vals := make([]float64, numClusters)
		for c := 0; c < numClusters; c++ {
			vals[c] = centers.At(c, col*hpp) // representative value for the period (first hour of the centroid/medoid block)
		}
		out.Series[attr][loc] = vals
	}

	for _, s := range series {
		if !excl[[2]string{s.Element, s.Attribute}] {
			continue
		}
		vals := manualAggregate(s.Hours, assignment, numClusters, hpp, a.cfg.Method)
		if out.Series[s.Attribute] == nil {
			out.Series[s.Attribute] = map[string][]float64{}
		}
		out.Series[s.Attribute][s.Location] = vals
	}

	return out, nil
}

func clusteredAttributes(series []RawSeries, excl Excluded) [][2]string {
	var out [][2]string
	for _, s := range series {
		if excl[[2]string{s.Element, s.Attribute}] {
			continue
		}
		key := [2]string{s.Attribute, s.Location}
		dup := false
		for _, k := range out {
			if k == key {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, key)
		}
	}
	return out
}

func findSeries(series []RawSeries, key [2]string) *RawSeries {
	for i := range series {
		if series[i].Attribute == key[0] && series[i].Location == key[1] {
			return &series[i]
		}
	}
	return nil
}

// allConstant reports whether every series has zero variance across hours,
// in which case clustering is bypassed entirely (spec.md §4.3).
func allConstant(series []RawSeries) bool {
	for _, s := range series {
		if len(s.Hours) < 2 {
			continue
		}
		var st stats.Stats
		for _, v := range s.Hours {
			st.Update(v)
		}
		if st.SampleVariance() > 0 {
			return false
		}
	}
	return true
}

// identityResult builds the no-aggregation result: each operational step
// is one base hour (or, for the constant-series case, a single step
// spanning the whole year).
func identityResult(series []RawSeries, h, numSteps int) *Result {
	sequence := make([]int, h)
	duration := make([]float64, numSteps)
	if numSteps == 1 {
		duration[0] = float64(h)
	} else {
		for i := range sequence {
			sequence[i] = i
			duration[i] = 1
		}
	}
	out := &Result{Sequence: sequence, Duration: duration, Series: map[string]map[string][]float64{}}
	for _, s := range series {
		if out.Series[s.Attribute] == nil {
			out.Series[s.Attribute] = map[string][]float64{}
		}
		if numSteps == 1 {
			out.Series[s.Attribute][s.Location] = []float64{floats.Sum(s.Hours) / float64(h)}
		} else {
			out.Series[s.Attribute][s.Location] = append([]float64(nil), s.Hours...)
		}
	}
	return out
}

// manualAggregate produces the excluded-series aggregation: per-cluster
// mean (k-means) or median (k-medoids) of the hours assigned to it.
func manualAggregate(hours []float64, assignment []int, numClusters, hpp int, method ClusterMethod) []float64 {
	buckets := make([][]float64, numClusters)
	for p, c := range assignment {
		for hh := 0; hh < hpp; hh++ {
			idx := p*hpp + hh
			if idx < len(hours) {
				buckets[c] = append(buckets[c], hours[idx])
			}
		}
	}
	out := make([]float64, numClusters)
	for c, b := range buckets {
		if len(b) == 0 {
			continue
		}
		if method == KMedoids {
			out[c] = median(b)
		} else {
			out[c] = floats.Sum(b) / float64(len(b))
		}
	}
	return out
}

// retainExtremePeriods breaks the period containing the single highest and
// the single lowest clustered value out of whatever cluster the clustering
// pass assigned them to, giving each its own singleton cluster whose
// representative is the period's own raw values rather than a centroid
// smoothed across its neighbors (spec.md §4.3 "optionally retaining extreme
// periods" — capacity-adequacy constraints need the true peak/trough, not
// an averaged stand-in).
func retainExtremePeriods(periods *mat.Dense, assignment []int, centers *mat.Dense) ([]int, *mat.Dense, int) {
	maxPeriod, minPeriod := extremePeriods(periods)
	var extra []int
	for _, p := range []int{maxPeriod, minPeriod} {
		if p >= 0 {
			extra = append(extra, p)
		}
	}
	if len(extra) == 0 {
		rows, _ := centers.Dims()
		return assignment, centers, rows
	}

	rows, cols := centers.Dims()
	out := mat.NewDense(rows+len(extra), cols, nil)
	out.Copy(centers)
	newAssignment := append([]int(nil), assignment...)
	for i, p := range extra {
		row := make([]float64, cols)
		mat.Row(row, p, periods)
		out.SetRow(rows+i, row)
		newAssignment[p] = rows + i
	}
	return newAssignment, out, rows + len(extra)
}

// extremePeriods returns the row index holding the single highest value and
// the row index holding the single lowest value in periods, or -1 if the
// matrix is empty or the two coincide (a single period cannot be split into
// two singleton clusters).
func extremePeriods(periods *mat.Dense) (maxPeriod, minPeriod int) {
	maxPeriod, minPeriod = -1, -1
	maxVal, minVal := math.Inf(-1), math.Inf(1)
	rows, cols := periods.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := periods.At(r, c)
			if v > maxVal {
				maxVal, maxPeriod = v, r
			}
			if v < minVal {
				minVal, minPeriod = v, r
			}
		}
	}
	if maxPeriod == minPeriod {
		minPeriod = -1
	}
	return maxPeriod, minPeriod
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	floats.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
