package cobalt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/expgridgo/internal/launcher/status"
)

func TestParseQstatStates(t *testing.T) {
	cases := []struct {
		out  string
		want status.Status
	}{
		{"State\n=====\nrunning\n", status.Running},
		{"State\n=====\nexiting\n", status.Running},
		{"State\n=====\nqueued\n", status.Paused},
		{"State\n=====\nstarting\n", status.Paused},
		{"State\n=====\nkilling\n", status.Cancelled},
		// A drained job leaves the queue entirely.
		{"", status.Completed},
		{"State\n=====\n", status.Completed},
	}
	for _, tc := range cases {
		s, err := parseQstat(tc.out)
		require.NoError(t, err, "output %q", tc.out)
		assert.Equal(t, tc.want, s, "output %q", tc.out)
	}
}

func TestParseQstatUnknownState(t *testing.T) {
	_, err := parseQstat("State\n=====\nmelting\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cobalt state")
}
