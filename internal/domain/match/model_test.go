package match

import "testing"

func TestNextStatus_Monotonic(t *testing.T) {
	t.Parallel()

	cases := []struct {
		current  Status
		reported Status
		want     Status
	}{
		{StatusNotStarted, StatusNotStarted, StatusNotStarted},
		{StatusNotStarted, StatusLive, StatusLive},
		{StatusNotStarted, StatusCompleted, StatusCompleted},
		{StatusLive, StatusNotStarted, StatusLive},
		{StatusLive, StatusCompleted, StatusCompleted},
		{StatusCompleted, StatusLive, StatusCompleted},
		{StatusCompleted, StatusNotStarted, StatusCompleted},
	}

	for _, tc := range cases {
		if got := NextStatus(tc.current, tc.reported); got != tc.want {
			t.Fatalf("NextStatus(%s, %s) = %s, want %s", tc.current, tc.reported, got, tc.want)
		}
	}
}
