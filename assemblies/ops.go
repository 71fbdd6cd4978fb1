package assemblies

import (
	"fmt"

	"github.com/dapello/brainio/ndarray"
)

// Squeeze removes dimensions of size 1, all of them if none are named.
func (a *Assembly) Squeeze(dims ...string) (*Assembly, error) {
	arr, err := a.arr.Squeeze(dims...)
	if err != nil {
		return nil, err
	}
	return a.derive(arr), nil
}

// Transpose reorders dimensions; with none given the order is reversed.
func (a *Assembly) Transpose(dims ...string) (*Assembly, error) {
	arr, err := a.arr.Transpose(dims...)
	if err != nil {
		return nil, err
	}
	return a.derive(arr), nil
}

// Map applies fn to every element.
func (a *Assembly) Map(fn func(float64) float64) *Assembly {
	return a.derive(a.arr.Map(fn))
}

// Sub subtracts b elementwise, broadcasting b over dimensions it lacks.
func (a *Assembly) Sub(b *Assembly) (*Assembly, error) {
	arr, err := ndarray.Combine(a.arr, b.arr, func(x, y float64) float64 { return x - y })
	if err != nil {
		return nil, fmt.Errorf("subtract: %w", err)
	}
	return a.derive(arr), nil
}

// Add adds b elementwise, broadcasting b over dimensions it lacks.
func (a *Assembly) Add(b *Assembly) (*Assembly, error) {
	arr, err := ndarray.Combine(a.arr, b.arr, func(x, y float64) float64 { return x + y })
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	return a.derive(arr), nil
}

// Reduce applies fn over the named dimensions, all of them if none are named.
func (a *Assembly) Reduce(fn ndarray.ReduceFunc, dims ...string) (*Assembly, error) {
	arr, err := a.arr.Reduce(fn, dims...)
	if err != nil {
		return nil, err
	}
	return a.derive(arr), nil
}

func (a *Assembly) Mean(dims ...string) (*Assembly, error) {
	return a.Reduce(ndarray.Mean, dims...)
}

func (a *Assembly) Sum(dims ...string) (*Assembly, error) {
	return a.Reduce(ndarray.Sum, dims...)
}

func (a *Assembly) Std(dims ...string) (*Assembly, error) {
	return a.Reduce(ndarray.Std, dims...)
}
