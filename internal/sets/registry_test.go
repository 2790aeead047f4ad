/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package sets

import "testing"

func TestCreateCustomSetFullProduct(t *testing.T) {
	r := NewRegistry()
	r.AddSet("carriers", []string{"electricity", "hydrogen"}, "", "")
	r.AddSet("nodes", []string{"a", "b"}, "", "")

	cs, err := r.CreateCustomSet("carriers", "nodes")
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.Tuples) != 4 {
		t.Fatalf("got %d tuples, want 4", len(cs.Tuples))
	}
}

func TestCreateCustomSetIndexedSet(t *testing.T) {
	r := NewRegistry()
	r.AddSet("technologies", []string{"wind", "solar"}, "", "")
	r.AddSet("existing_ids", nil, "", "technologies")
	must(t, r.AddIndexedMember("existing_ids", "wind", "gen1"))
	must(t, r.AddIndexedMember("existing_ids", "wind", "gen2"))
	must(t, r.AddIndexedMember("existing_ids", "solar", "gen1"))

	cs, err := r.CreateCustomSet("technologies", "existing_ids")
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.Tuples) != 3 {
		t.Fatalf("got %d tuples, want 3 (2 wind generations + 1 solar generation)", len(cs.Tuples))
	}
	for _, tup := range cs.Tuples {
		if tup[0] == "wind" && tup[1] == "gen2" {
			return
		}
	}
	t.Fatalf("expected (wind, gen2) among tuples, got %v", cs.Tuples)
}

func TestCreateCustomSetUnknownSet(t *testing.T) {
	r := NewRegistry()
	if _, err := r.CreateCustomSet("nope"); err == nil {
		t.Fatal("expected error for unknown set name")
	}
}

func TestMask(t *testing.T) {
	r := NewRegistry()
	r.AddSet("nodes", []string{"a", "b", "c"}, "", "")
	cs, err := r.CreateCustomSet("nodes")
	if err != nil {
		t.Fatal(err)
	}
	mask := cs.Mask(func(tup Tuple) bool { return tup[0] != "b" })
	if mask[0] != true || mask[1] != false || mask[2] != true {
		t.Fatalf("unexpected mask %v", mask)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
