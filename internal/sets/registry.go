/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

zengarden is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.
*/

// Package sets implements the index registry: named sets of identifiers,
// indexed sub-sets keyed by a parent set, and the custom-index-set product
// used to lay out parameters, variables and constraints.
package sets

import (
	"fmt"
	"sort"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"
)

// Set is a flat, named collection of identifiers.
type Set struct {
	Name   string
	Doc    string
	Parent string // name of the set this one is indexed by, "" if flat
	data   map[string][]string
	order  *btree.BTree // orders Set.data keys for stable, sorted iteration
}

type setItem string

func (a setItem) Less(b btree.Item) bool { return a < b.(setItem) }

// Registry stores every named set declared for one optimization run.
//
// Index Registry (spec.md §4.1): named sets (carriers, nodes, edges,
// technologies by kind, time steps, capacity types), indexed sub-sets
// (e.g. existing_ids[tech]), and utilities to enumerate tuples from set
// products and mask them by predicates.
type Registry struct {
	sets map[string]*Set
}

// NewRegistry returns an empty index registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*Set)}
}

// AddSet declares a named set. If parent is non-empty, data is interpreted
// as indexed: data[""] is ignored and callers instead populate entries with
// AddIndexedMember. Re-adding a set name logs a warning and overwrites the
// previous definition, matching the "duplicate set name" Warning of
// spec.md §7.
func (r *Registry) AddSet(name string, flat []string, doc, parent string) {
	if _, exists := r.sets[name]; exists {
		logrus.Warnf("sets: set %q already declared; overwriting", name)
	}
	s := &Set{
		Name:   name,
		Doc:    doc,
		Parent: parent,
		data:   make(map[string][]string),
		order:  btree.New(8),
	}
	if parent == "" {
		s.data[""] = append([]string(nil), flat...)
		s.order.ReplaceOrInsert(setItem(""))
	}
	r.sets[name] = s
}

// AddIndexedMember appends id to the sub-set of name keyed by parentKey.
// name must have been declared with a non-empty parent set name.
func (r *Registry) AddIndexedMember(name, parentKey, id string) error {
	s, ok := r.sets[name]
	if !ok {
		return fmt.Errorf("sets: unknown set %q", name)
	}
	if _, seen := s.data[parentKey]; !seen {
		s.order.ReplaceOrInsert(setItem(parentKey))
	}
	s.data[parentKey] = append(s.data[parentKey], id)
	return nil
}

// Members returns the flat contents of a non-indexed set, in declaration
// order. Requesting an unknown set name is fatal, per spec.md §4.1.
func (r *Registry) Members(name string) ([]string, error) {
	s, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("sets: unknown set %q", name)
	}
	if s.Parent != "" {
		return nil, fmt.Errorf("sets: set %q is indexed by %q; use IndexedMembers", name, s.Parent)
	}
	return s.data[""], nil
}

// IndexedMembers returns the sub-set of name keyed by parentKey, e.g.
// existing_ids["wind_onshore"].
func (r *Registry) IndexedMembers(name, parentKey string) ([]string, error) {
	s, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("sets: unknown set %q", name)
	}
	return s.data[parentKey], nil
}

// SortedKeys returns the parent keys of an indexed set in ascending sorted
// order, backed by the set's btree so large per-technology existing-id
// tables enumerate without re-sorting on every call.
func (r *Registry) SortedKeys(name string) ([]string, error) {
	s, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("sets: unknown set %q", name)
	}
	out := make([]string, 0, s.order.Len())
	s.order.Ascend(func(it btree.Item) bool {
		out = append(out, string(it.(setItem)))
		return true
	})
	return out, nil
}

// Has reports whether name has been declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.sets[name]
	return ok
}

// Tuple is one element of a custom index set's Cartesian product.
type Tuple []string

// CustomSet is the result of CreateCustomSet: an ordered list of dimension
// names and the tuples that survive the product/indexing expansion.
type CustomSet struct {
	Dims   []string
	Tuples []Tuple
}

// CreateCustomSet expands the filtered Cartesian product over setNames.
//
// Policy (spec.md §4.1): when an inner set is indexed by an outer set
// already present earlier in setNames, the inner set is iterated per outer
// key instead of taking the full product; otherwise the full product of the
// named sets is emitted.
func (r *Registry) CreateCustomSet(setNames ...string) (*CustomSet, error) {
	for _, n := range setNames {
		if !r.Has(n) {
			return nil, fmt.Errorf("sets: unknown set %q in custom set %v", n, setNames)
		}
	}
	seen := make(map[string]bool, len(setNames))
	tuples := []Tuple{{}}
	for _, name := range setNames {
		s := r.sets[name]
		var next []Tuple
		if s.Parent != "" && seen[s.Parent] {
			parentPos := indexOf(setNames, s.Parent)
			for _, t := range tuples {
				key := t[parentPos]
				members, err := r.IndexedMembers(name, key)
				if err != nil {
					return nil, err
				}
				for _, m := range members {
					next = append(next, append(append(Tuple{}, t...), m))
				}
			}
		} else {
			members, err := r.Members(name)
			if err != nil && s.Parent != "" {
				// Indexed set referenced without its parent present: union
				// over every parent key.
				keys, kerr := r.SortedKeys(name)
				if kerr != nil {
					return nil, kerr
				}
				var all []string
				for _, k := range keys {
					ms, _ := r.IndexedMembers(name, k)
					all = append(all, ms...)
				}
				members = all
			} else if err != nil {
				return nil, err
			}
			for _, t := range tuples {
				for _, m := range members {
					next = append(next, append(append(Tuple{}, t...), m))
				}
			}
		}
		tuples = next
		seen[name] = true
	}
	return &CustomSet{Dims: append([]string(nil), setNames...), Tuples: tuples}, nil
}

func indexOf(ss []string, v string) int {
	for i, s := range ss {
		if s == v {
			return i
		}
	}
	return -1
}

// DimensionVectors converts a tuple list into one []string per dimension,
// the layout the Parameter Store and Variable/Constraint Builder expect
// when constructing a coordinate-shaped array.
func (cs *CustomSet) DimensionVectors() map[string][]string {
	out := make(map[string][]string, len(cs.Dims))
	for d, dim := range cs.Dims {
		vec := make([]string, len(cs.Tuples))
		for i, t := range cs.Tuples {
			vec[i] = t[d]
		}
		out[dim] = vec
	}
	return out
}

// Mask returns a boolean slice, one entry per tuple, true where predicate
// accepts the tuple. Used to mark which coordinates of a rectangle are
// active before creating variables or constraints over it.
func (cs *CustomSet) Mask(predicate func(Tuple) bool) []bool {
	mask := make([]bool, len(cs.Tuples))
	for i, t := range cs.Tuples {
		mask[i] = predicate(t)
	}
	return mask
}

// Sort returns a copy of cs with tuples sorted lexicographically; useful for
// deterministic output ordering independent of set-declaration order.
func (cs *CustomSet) Sort() *CustomSet {
	out := &CustomSet{Dims: cs.Dims, Tuples: append([]Tuple(nil), cs.Tuples...)}
	sort.Slice(out.Tuples, func(i, j int) bool {
		for k := range out.Tuples[i] {
			if out.Tuples[i][k] != out.Tuples[j][k] {
				return out.Tuples[i][k] < out.Tuples[j][k]
			}
		}
		return false
	})
	return out
}
