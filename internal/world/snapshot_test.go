package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
)

func TestSnapshot_RoundTripThroughWorld(t *testing.T) {
	codec, err := NewSnapshotCodec()
	require.NoError(t, err)
	defer codec.Close()

	src := NewWorld(DefaultConfig())
	pos := vec.ChunkPos{X: -3, Y: 0, Z: 7}
	_, err = src.LoadChunk(pos)
	require.NoError(t, err)
	require.True(t, src.SetVoxel(-3*64+5, 20, 7*64+9, voxel.NewFull(8, 15, 2, 77)))

	data, err := src.SnapshotChunk(pos, codec)
	require.NoError(t, err)
	assert.Less(t, len(data), voxel.ChunkBytes/10, "Суперплоский чанк должен хорошо сжиматься")

	dst := newTestWorld()
	restored, err := dst.RestoreChunk(data, codec)
	require.NoError(t, err)
	assert.Equal(t, pos, restored)

	want := make([]voxel.Voxel, voxel.ChunkVolume)
	got := make([]voxel.Voxel, voxel.ChunkVolume)
	require.True(t, src.CopyChunkVoxels(pos, want))
	require.True(t, dst.CopyChunkVoxels(pos, got))
	assert.Equal(t, want, got)

	_, err = dst.RestoreChunk(data, codec)
	assert.True(t, errors.Is(err, ErrChunkExists))
}

func TestSnapshot_Errors(t *testing.T) {
	codec, err := NewSnapshotCodec()
	require.NoError(t, err)
	defer codec.Close()

	w := newTestWorld()
	_, err = w.SnapshotChunk(vec.ChunkPos{}, codec)
	assert.True(t, errors.Is(err, ErrChunkNotLoaded))

	_, err = codec.Decode([]byte("junk"))
	assert.True(t, errors.Is(err, ErrBadSnapshot))

	data, err := codec.Encode(vec.ChunkPos{}, make([]voxel.Voxel, voxel.ChunkVolume))
	require.NoError(t, err)
	_, err = codec.Decode(data[:len(data)-3])
	assert.True(t, errors.Is(err, ErrBadSnapshot), "Обрезанные данные не должны декодироваться")

	_, err = codec.Encode(vec.ChunkPos{}, make([]voxel.Voxel, 10))
	assert.Error(t, err)
}
