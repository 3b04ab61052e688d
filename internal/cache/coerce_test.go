package cache

import (
	"encoding/json"
	"math"
	"testing"
)

func TestToInt64(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{nil, 0},
		{7, 7},
		{int32(-3), -3},
		{uint64(math.MaxUint64), math.MaxInt64},
		{3.9, 3},
		{math.NaN(), 0},
		{true, 1},
		{json.Number("15"), 15},
		{json.Number("2.5"), 2},
		{"12abc", 12},
		{"  -4 ", -4},
		{"abc", 0},
		{[]byte("9"), 9},
		{"99999999999999999999", math.MaxInt64},
		{struct{}{}, 0},
	}
	for _, tc := range cases {
		if got := ToInt64(tc.in); got != tc.want {
			t.Fatalf("ToInt64(%#v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
