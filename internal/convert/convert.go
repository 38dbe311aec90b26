// Package convert implements the conversion and promotion subsystem of
// SPEC_FULL.md §4.7, grounded on plum/promotion.py: convert() is itself a
// dispatched function (self-hosted on internal/function/internal/resolver),
// and promote() folds pairwise promotion rules to find a common target
// type for a set of values.
package convert

import (
	"fmt"
	"reflect"

	"github.com/plumdispatch/plum/internal/function"
	"github.com/plumdispatch/plum/internal/method"
	"github.com/plumdispatch/plum/internal/predicate"
	"github.com/plumdispatch/plum/internal/signature"
)

// converter is the dispatched Function backing Convert: each registered
// method is a (source-type, target-type) -> value conversion, keyed by a
// two-argument signature whose second argument is a Literal predicate over
// the target reflect.Type (Go has no runtime "the type itself as a value"
// distinct from reflect.Type, so the target is passed as a
// reflect.Type-valued literal argument, the idiomatic analog of the
// original implementation's dispatch on `(type(obj), new_type)`).
var converter = function.New("plum.convert")

func init() {
	// Wire internal/function's return-type conversion to this package's
	// Convert, so every dispatched call's declared return type is honored
	// without function importing convert directly (which would cycle).
	function.DefaultConverter = func(value interface{}, target reflect.Type) (interface{}, error) {
		if target == nil {
			return value, nil
		}
		if value == nil {
			return value, nil
		}
		if reflect.TypeOf(value).AssignableTo(target) {
			return value, nil
		}
		return Convert(value, target)
	}

	registerDefaultConversions()
}

// ConversionNotFoundError reports that no registered conversion method (and
// no identity/assignability shortcut) could take value to target.
type ConversionNotFoundError struct {
	Value  interface{}
	Target reflect.Type
}

func (e *ConversionNotFoundError) Error() string {
	return fmt.Sprintf("convert: no method to convert %T to %s", e.Value, e.Target)
}

// AddConversionMethod registers a function of shape func(S) T as a
// conversion from S to T. Panics are not used for a bad shape; callers pass
// a reflect.Type-derived signature so a mismatched fn surfaces at
// registration time via the returned error.
func AddConversionMethod(target reflect.Type, fn interface{}) error {
	implType := reflect.TypeOf(fn)
	if implType.Kind() != reflect.Func || implType.NumIn() != 1 || implType.NumOut() < 1 {
		return fmt.Errorf("convert: conversion method must have shape func(S) T, got %s", implType)
	}
	sourceType := implType.In(0)
	sig := signature.New(0,
		predicate.Nominal{Class: sourceType},
		predicate.NewLiteral(target),
	)
	wrapped := reflect.ValueOf(func(v interface{}, _ reflect.Type) interface{} {
		out := reflect.ValueOf(fn).Call([]reflect.Value{reflect.ValueOf(v)})
		return out[0].Interface()
	})
	converter.Register(method.New(sig, target, "plum.convert", wrapped))
	return nil
}

// Convert converts value to target, via an identity/assignability shortcut
// when possible, then via the dispatched converter registered by
// AddConversionMethod.
func Convert(value interface{}, target reflect.Type) (interface{}, error) {
	if target == nil {
		return value, nil
	}
	if value == nil {
		return nil, nil
	}
	if reflect.TypeOf(value).AssignableTo(target) {
		return value, nil
	}
	results, err := converter.Call(value, target)
	if err != nil {
		return nil, &ConversionNotFoundError{Value: value, Target: target}
	}
	return results[0], nil
}

// promotionRules maps an unordered pair of types to the common type both
// should be converted to, following plum/promotion.py's _promotion_rule
// table. AddPromotionRule registers both (a, b) and (b, a) unless a == b,
// matching the original implementation's symmetry handling.
var promotionRules = map[[2]reflect.Type]reflect.Type{}

// AddPromotionRule declares that when values of types a and b are promoted
// together, both should be converted to common. Registered symmetrically:
// promoting (b, a) yields the same common type as promoting (a, b).
func AddPromotionRule(a, b, common reflect.Type) {
	promotionRules[[2]reflect.Type{a, b}] = common
	if a != b {
		promotionRules[[2]reflect.Type{b, a}] = common
	}
}

// PromotionNotFoundError reports that no promotion rule covers the given
// pair of types.
type PromotionNotFoundError struct {
	A, B reflect.Type
}

func (e *PromotionNotFoundError) Error() string {
	return fmt.Sprintf("convert: no promotion rule for (%s, %s)", e.A, e.B)
}

// Promote folds values pairwise through the promotion-rule table to find a
// single common type, then converts every value to it. With fewer than two
// values, Promote returns values unchanged (there is nothing to reconcile).
func Promote(values ...interface{}) ([]interface{}, error) {
	if len(values) < 2 {
		return values, nil
	}

	common := reflect.TypeOf(values[0])
	for _, v := range values[1:] {
		t := reflect.TypeOf(v)
		rule, ok := promotionRules[[2]reflect.Type{common, t}]
		if !ok {
			if common == t {
				continue
			}
			return nil, &PromotionNotFoundError{A: common, B: t}
		}
		common = rule
	}

	out := make([]interface{}, len(values))
	for i, v := range values {
		converted, err := Convert(v, common)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

// registerDefaultConversions seeds the handful of conversions the original
// implementation ships out of the box (plum/promotion.py module level):
// widening numeric conversions a host commonly needs before any
// domain-specific conversion methods are registered.
func registerDefaultConversions() {
	mustRegister(reflect.TypeOf(float64(0)), func(v int) float64 { return float64(v) })
	mustRegister(reflect.TypeOf(float64(0)), func(v int32) float64 { return float64(v) })
	mustRegister(reflect.TypeOf(float64(0)), func(v int64) float64 { return float64(v) })
	mustRegister(reflect.TypeOf(int64(0)), func(v int) int64 { return int64(v) })
	mustRegister(reflect.TypeOf(""), func(v []byte) string { return string(v) })
	mustRegister(reflect.TypeOf([]byte(nil)), func(v string) []byte { return []byte(v) })

	AddPromotionRule(reflect.TypeOf(int(0)), reflect.TypeOf(float64(0)), reflect.TypeOf(float64(0)))
	AddPromotionRule(reflect.TypeOf(int32(0)), reflect.TypeOf(float64(0)), reflect.TypeOf(float64(0)))
	AddPromotionRule(reflect.TypeOf(int64(0)), reflect.TypeOf(float64(0)), reflect.TypeOf(float64(0)))
	AddPromotionRule(reflect.TypeOf(int(0)), reflect.TypeOf(int64(0)), reflect.TypeOf(int64(0)))
}

func mustRegister(target reflect.Type, fn interface{}) {
	if err := AddConversionMethod(target, fn); err != nil {
		panic(err)
	}
}
