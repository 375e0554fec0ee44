package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

type fakeView struct {
	executed []string
}

func (v *fakeView) Readiness(types.ContextID) (types.Readiness, error) {
	return types.ReadinessComplete, nil
}

func (v *fakeView) ExecuteInContext(_ context.Context, _ types.ContextID, code string) error {
	v.executed = append(v.executed, code)
	return nil
}

func TestHostRefUnbound(t *testing.T) {
	ref := &hostRef{}

	_, err := ref.Readiness("tab-1")
	assert.ErrorIs(t, err, navigation.ErrContextGone)
	assert.ErrorIs(t, ref.ExecuteInContext(context.Background(), "tab-1", "1"), navigation.ErrContextGone)
}

func TestHostRefBindsBeforeStart(t *testing.T) {
	ref := &hostRef{}
	v := &fakeView{}

	started := false
	ref.bind(v, func() {
		started = true
		// The first navigation's callbacks must already reach the host
		r, err := ref.Readiness("tab-1")
		require.NoError(t, err)
		assert.Equal(t, types.ReadinessComplete, r)
		require.NoError(t, ref.ExecuteInContext(context.Background(), "tab-1", "run()"))
	})

	assert.True(t, started)
	assert.Equal(t, []string{"run()"}, v.executed)
}
