/*
Copyright © 2024 the zengarden authors.
This file is part of zengarden.

zengarden is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package technology

import "fmt"

// ConversionSpec adds the conversion-technology attributes of spec.md §3.
type ConversionSpec struct {
	InputCarriers, OutputCarriers []string
	ConversionEfficiency          map[string]float64 // per output carrier
}

// TransportSpec adds the transport-technology attributes of spec.md §3.
type TransportSpec struct {
	Distance map[string]float64 // per edge
	LossFlow float64
}

// StorageSpec adds the storage-technology attributes of spec.md §3.
type StorageSpec struct {
	SelfDischarge float64
}

// FlowSample is the per-step flow data a ReferenceFlow computation reads;
// callers populate it from the relevant technology-kind variables before
// evaluating opex/carbon per spec.md §4.6 op 8.
type FlowSample struct {
	InputConversionFlow, OutputConversionFlow float64 // conversion
	TransportFlow                             float64 // transport
	ChargeFlow, DischargeFlow                 float64 // storage
}

// ReferenceFlow returns the reference flow of spec.md §4.6 op 8: input- or
// output-conversion flow for conversion (depending on whether the
// reference carrier is an input or an output), transport flow for
// transport, and charge+discharge for storage.
func ReferenceFlow(spec Spec, conv *ConversionSpec, sample FlowSample) (float64, error) {
	switch spec.Kind {
	case Conversion:
		ref := spec.ReferenceCarrier()
		if conv == nil {
			return 0, fmt.Errorf("technology: %s is a conversion technology but no ConversionSpec was supplied", spec.Name)
		}
		if contains(conv.OutputCarriers, ref) {
			return sample.OutputConversionFlow, nil
		}
		if contains(conv.InputCarriers, ref) {
			return sample.InputConversionFlow, nil
		}
		return 0, fmt.Errorf("technology: %s's reference carrier %q is neither an input nor an output", spec.Name, ref)
	case Transport:
		return sample.TransportFlow, nil
	case Storage:
		return sample.ChargeFlow + sample.DischargeFlow, nil
	default:
		return 0, fmt.Errorf("technology: unknown kind %v", spec.Kind)
	}
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// Siblings returns the names of other technologies sharing tech's
// reference carrier within the same Kind class — the set the "unbounded
// market share" term of spec.md §4.6 op 6 sums over, per SPEC_FULL.md §4's
// clarification: conversion-with-conversion, storage-with-storage,
// transport-with-transport, never across kinds.
func Siblings(tech Spec, all []Spec) []Spec {
	var out []Spec
	ref := tech.ReferenceCarrier()
	for _, other := range all {
		if other.Name == tech.Name || other.Kind != tech.Kind {
			continue
		}
		if other.ReferenceCarrier() == ref {
			out = append(out, other)
		}
	}
	return out
}

// CapexAnnualized computes the annualized capex accrual of spec.md §4.6
// op 7, folding in the transport double-capex behavior spelled out in
// spec.md §9: when doubleCapexTransport is set, both capexSpecific and
// capexPerDistance terms are present and both are annualized; when unset,
// exactly one of them (capexSpecific) is present and the other is zero.
func CapexAnnualized(rate DiscountRate, lifetime float64, capexSpecific, capexPerDistance, distance float64, isTransport, doubleCapexTransport bool) float64 {
	a := AnnuityFactor(rate, lifetime)
	if !isTransport {
		return a * capexSpecific
	}
	if doubleCapexTransport {
		return a * (capexSpecific + capexPerDistance*distance)
	}
	return a * capexSpecific
}
