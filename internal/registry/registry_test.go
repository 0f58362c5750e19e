package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/orchd/internal/adapter"
	"github.com/fyrsmithlabs/orchd/internal/engine"
	"github.com/fyrsmithlabs/orchd/internal/state"
)

func sdlcConstructor() (engine.Plugin, error) {
	return engine.New(engine.Config{
		StudyID:      "study-1",
		WorkItemSeed: state.WorkItem{Repository: "acme/widgets"},
		Adapter:      adapter.NewSim(),
	})
}

func TestRegistry_Create(t *testing.T) {
	reg := New(nil)
	reg.Register("sdlc", sdlcConstructor)

	plugin, err := reg.Create("sdlc")
	require.NoError(t, err)
	require.NotNil(t, plugin)

	// The returned value carries the full plugin contract.
	assert.False(t, plugin.IsComplete())
	assert.NotEmpty(t, plugin.AvailableActions())
	def, ok := plugin.PrimaryAction()
	require.True(t, ok)
	assert.NotNil(t, plugin.SuggestedParams(def))
	require.NotNil(t, plugin.Snapshot())

	// Each Create yields an independent instance.
	other, err := reg.Create("sdlc")
	require.NoError(t, err)
	assert.NotSame(t, plugin, other)
}

func TestRegistry_CreateUnknown(t *testing.T) {
	reg := New(nil)

	_, err := reg.Create("kanban")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Contains(t, err.Error(), `"kanban"`)
}

func TestRegistry_ConstructorError(t *testing.T) {
	reg := New(nil)
	wantErr := errors.New("bad settings")
	reg.Register("broken", func() (engine.Plugin, error) {
		return nil, wantErr
	})

	_, err := reg.Create("broken")
	assert.ErrorIs(t, err, wantErr)
}

func TestRegistry_RegisterOverwriteWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	reg := New(zap.New(core))

	reg.Register("sdlc", sdlcConstructor)
	assert.Equal(t, 0, logs.Len())

	reg.Register("sdlc", sdlcConstructor)
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "overwriting")
	assert.Equal(t, "sdlc", entries[0].ContextMap()["id"])
}

func TestRegistry_IDsSorted(t *testing.T) {
	reg := New(nil)
	reg.Register("sdlc", sdlcConstructor)
	reg.Register("hotfix", sdlcConstructor)
	reg.Register("release", sdlcConstructor)

	assert.Equal(t, []string{"hotfix", "release", "sdlc"}, reg.IDs())
}

func TestRegistry_Clear(t *testing.T) {
	reg := New(nil)
	reg.Register("sdlc", sdlcConstructor)

	reg.Clear()
	assert.Empty(t, reg.IDs())
	_, err := reg.Create("sdlc")
	assert.ErrorIs(t, err, ErrUnknownType)
}
