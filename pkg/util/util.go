package util

import (
	"math"
)

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func ReverseG[T any](arr []T) []T {
	copyArr := make([]T, len(arr)) // should do on the copy )
	copy(copyArr, arr)
	for i, j := 0, len(copyArr)-1; i < j; i, j = i+1, j-1 {
		copyArr[i], copyArr[j] = copyArr[j], copyArr[i]
	}
	return copyArr
}

// UnionOrdered appends the items of b missing from a, keeping first-seen order.
func UnionOrdered[T comparable](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	seen := make(map[T]struct{}, len(a)+len(b))
	for _, s := range [][]T{a, b} {
		for _, v := range s {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// CollapseRepeats drops consecutive duplicates.
func CollapseRepeats[T comparable](arr []T) []T {
	out := make([]T, 0, len(arr))
	for i, v := range arr {
		if i > 0 && arr[i-1] == v {
			continue
		}
		out = append(out, v)
	}
	return out
}
