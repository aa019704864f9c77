// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package labcalc holds the laboratory formulas. The reference backend uses
// them to compute stored values and the client uses them for display-only
// previews, so both agree on rounding.
//
// Every function takes and returns pointers: nil means "not measured" and
// propagates, so a formula with a missing input yields nil rather than 0.
package labcalc

import "math"

// NitrogenFactor converts HCl milliequivalents to grams of nitrogen (x100).
const NitrogenFactor = 1.4

// Round rounds half away from zero to places decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Ptr returns a pointer to v.
func Ptr(v float64) *float64 {
	return &v
}

func rounded(v float64, places int) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return Ptr(Round(v, places))
}

// Mean averages values when all are present, rounded to places.
func Mean(places int, values ...*float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		if v == nil {
			return nil
		}
		sum += *v
	}
	return rounded(sum/float64(len(values)), places)
}

// MeanPresent averages the non-nil values, rounded to places. nil when
// every value is nil.
func MeanPresent(places int, values ...*float64) *float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return rounded(sum/float64(n), places)
}

// HumidityAverage is (h1+h2)/2 rounded to 3 decimals.
func HumidityAverage(h1, h2 *float64) *float64 {
	return Mean(3, h1, h2)
}

// FDRAverage is the mean of three penetration readings rounded to 3
// decimals.
func FDRAverage(f1, f2, f3 *float64) *float64 {
	return Mean(3, f1, f2, f3)
}

// NitrogenTotal is c*b*1.4/a rounded to 2 decimals, where a is the sample
// weight in g, b the HCl normality and c the HCl volume in cm3.
func NitrogenTotal(a, b, c *float64) *float64 {
	if a == nil || b == nil || c == nil || *a == 0 {
		return nil
	}
	return rounded(*c**b*NitrogenFactor / *a, 2)
}

// DryWeight is a*(100-H)/100 rounded to 3 decimals, H the humidity in %.
func DryWeight(a, humidity *float64) *float64 {
	if a == nil || humidity == nil {
		return nil
	}
	return rounded(*a*(100-*humidity)/100, 3)
}

// NitrogenDry is c*b*1.4/dryWeight rounded to 2 decimals.
func NitrogenDry(b, c, dryWeight *float64) *float64 {
	if b == nil || c == nil || dryWeight == nil || *dryWeight == 0 {
		return nil
	}
	return rounded(*c**b*NitrogenFactor / *dryWeight, 2)
}

// AshPercent is (c-a)/(b-a)*100 rounded to 2 decimals, where a is the empty
// crucible, b crucible plus sample and c crucible plus ash. nil when b == a.
func AshPercent(a, b, c *float64) *float64 {
	if a == nil || b == nil || c == nil || *b == *a {
		return nil
	}
	return rounded((*c-*a)/(*b-*a)*100, 2)
}

// FormulacionInput are the measured formulation inputs. Fractions are
// decimals (0.7 for 70%).
type FormulacionInput struct {
	Peso          *float64
	HpromEntrada  *float64
	PorcNEntrada  *float64
	PorcCzEntrada *float64
	CKg           *float64
}

// FormulacionResult are the derived formulation values.
type FormulacionResult struct {
	MsKg     *float64
	NKg      *float64
	PorcNMs  *float64
	CzKg     *float64
	PorcCzMs *float64
	CKg      *float64
	CNRatio  *float64
	MosKg    *float64
}

// Formulacion computes dry matter, nitrogen, ash and organic matter of a
// formulation. Values that cannot be computed are nil.
func Formulacion(in FormulacionInput) FormulacionResult {
	var out FormulacionResult
	if in.Peso == nil || in.HpromEntrada == nil {
		return out
	}

	out.MsKg = rounded(*in.Peso*(1-*in.HpromEntrada), 3)
	ms := out.MsKg
	if ms == nil {
		return out
	}

	if in.PorcNEntrada != nil && *ms > 0 {
		out.NKg = rounded(*ms**in.PorcNEntrada, 3)
		if out.NKg != nil {
			out.PorcNMs = rounded(*out.NKg / *ms * 100, 2)
		}
	}

	if in.PorcCzEntrada != nil && *ms > 0 {
		out.CzKg = rounded(*ms**in.PorcCzEntrada, 3)
		if out.CzKg != nil {
			out.PorcCzMs = rounded(*out.CzKg / *ms * 100, 2)
			if mos := Round(*ms-*out.CzKg, 3); mos >= 0 {
				out.MosKg = Ptr(mos)
			}
		}
		out.CKg = in.CKg
		if in.CKg != nil && out.NKg != nil && *out.NKg > 0 {
			out.CNRatio = rounded(*in.CKg / *out.NKg, 2)
		}
	}
	return out
}
