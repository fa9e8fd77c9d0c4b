package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/expgridgo/internal/launcher"
	"github.com/vk/expgridgo/internal/launcher/status"
	"github.com/vk/expgridgo/internal/settings"
)

func TestRunAndStatus(t *testing.T) {
	ctx := context.Background()
	l := New()

	step := launcher.NewStep("quick", t.TempDir(), settings.New("sh", "-c", "true"))
	id, err := l.Run(ctx, step)
	require.NoError(t, err)

	deadline := time.Now().Add(10 * time.Second)
	for {
		s, err := l.Status(ctx, id)
		require.NoError(t, err)
		if status.Terminal(s) {
			assert.Equal(t, status.Completed, s)
			break
		}
		require.True(t, time.Now().Before(deadline), "step did not finish in time")
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRunRejectsBatchSteps(t *testing.T) {
	ctx := context.Background()
	l := New()

	bs := settings.NewSbatchSettings(1, "", "", "")
	step := launcher.NewBatchStep("batch", t.TempDir(), bs, []string{"a.out"})

	_, err := l.Run(ctx, step)
	require.ErrorIs(t, err, launcher.ErrLauncher)
	assert.Contains(t, err.Error(), "cannot submit batch steps")
}
