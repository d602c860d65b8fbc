package infra

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAscComparator(t *testing.T) {
	testcases := []struct {
		name     string
		i, j     int
		expected int64
	}{
		{"equal", 3, 3, 0},
		{"less", 1, 3, -1},
		{"greater", 5, 3, 1},
		{"negative", -7, 2, -1},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			require.Equal(tt, tc.expected, AscComparator(tc.i, tc.j))
			require.Equal(tt, -tc.expected, DescComparator(tc.i, tc.j))
		})
	}
}

func TestAscComparator_String(t *testing.T) {
	require.Equal(t, int64(-1), AscComparator("abc", "abd"))
	require.Equal(t, int64(1), AscComparator("b", "abc"))
	require.Equal(t, int64(0), AscComparator("", ""))
}
