package codec

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PipesStdinToStdout(t *testing.T) {
	out, err := run(context.Background(), []byte("swordfish"), "cat")
	require.NoError(t, err)
	assert.Equal(t, "swordfish", string(out))
}

func TestRun_FailureIsCodecError(t *testing.T) {
	_, err := run(context.Background(), nil, "false")
	require.ErrorIs(t, err, common.ErrCodec)
}

func TestRun_MissingBinaryIsCodecError(t *testing.T) {
	_, err := run(context.Background(), nil, "definitely-not-a-real-binary-3141")
	require.ErrorIs(t, err, common.ErrCodec)
}

func TestRun_DeadlineIsCodecTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := run(ctx, nil, "sleep", "5")
	require.ErrorIs(t, err, common.ErrCodecTimeout)
}
