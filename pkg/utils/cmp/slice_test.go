package cmp_test

import (
	"testing"

	"github.com/eutrials/triald/pkg/utils/cmp"
)

func TestSliceEq(t *testing.T) {
	t.Run("sliceeq detect two slices are equal", func(t *testing.T) {
		a := []string{"a", "b", "c"}
		b := []string{"a", "b", "c"}
		if !cmp.SliceEq(a, b) {
			t.Error("two slices are not equal, unexpectedly.")
		}
		if !cmp.SliceEq(b, a) {
			t.Error("two slices are not equal, unexpectedly.")
		}
	})
	t.Run("sliceeq detect two slices in different order are not equal", func(t *testing.T) {
		a := []string{"a", "b", "c"}
		b := []string{"c", "b", "a"}
		if cmp.SliceEq(a, b) {
			t.Error("two slices are equal, unexpectedly.")
		}
	})
	t.Run("sliceeq detect two slices with different length are not equal", func(t *testing.T) {
		a := []string{"a", "b", "c"}
		b := []string{"a", "b"}
		if cmp.SliceEq(a, b) {
			t.Error("two slices are equal, unexpectedly.")
		}
	})
}

func TestSliceContentEq(t *testing.T) {
	t.Run("slicecontenteq ignores order", func(t *testing.T) {
		a := []int{1, 2, 3}
		b := []int{3, 1, 2}
		if !cmp.SliceContentEq(a, b) {
			t.Error("two slices have different content, unexpectedly.")
		}
	})
	t.Run("slicecontenteq counts duplications", func(t *testing.T) {
		a := []int{1, 1, 2}
		b := []int{1, 2, 2}
		if cmp.SliceContentEq(a, b) {
			t.Error("two slices have same content, unexpectedly.")
		}
	})
}
