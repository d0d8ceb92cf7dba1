package world

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
)

var (
	// ErrChunkNotLoaded: снимок запрошен для незагруженного чанка
	ErrChunkNotLoaded = errors.New("чанк не загружен")
	// ErrBadSnapshot: данные снимка повреждены или имеют чужой формат
	ErrBadSnapshot = errors.New("некорректный снимок чанка")
)

// Заголовок снимка: сигнатура и позиция чанка (3 x int64, little endian)
var snapshotMagic = [4]byte{'V', 'X', 'C', '1'}

const snapshotHeaderSize = 4 + 3*8

// SnapshotCodec сжимает и восстанавливает воксели чанка в памяти.
// Кодер и декодер zstd переиспользуются, EncodeAll/DecodeAll безопасны для параллельного вызова.
type SnapshotCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewSnapshotCodec создаёт кодек
func NewSnapshotCodec() (*SnapshotCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(2*voxel.ChunkBytes))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &SnapshotCodec{enc: enc, dec: dec}, nil
}

// Close освобождает ресурсы кодека
func (c *SnapshotCodec) Close() {
	c.enc.Close()
	c.dec.Close()
}

// Encode упаковывает воксели чанка
func (c *SnapshotCodec) Encode(pos vec.ChunkPos, voxels []voxel.Voxel) ([]byte, error) {
	if len(voxels) != voxel.ChunkVolume {
		return nil, fmt.Errorf("encode chunk %s: %d вокселей вместо %d", pos, len(voxels), voxel.ChunkVolume)
	}

	raw := make([]byte, voxel.ChunkBytes)
	for i, v := range voxels {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}

	out := make([]byte, snapshotHeaderSize, snapshotHeaderSize+4096)
	copy(out, snapshotMagic[:])
	binary.LittleEndian.PutUint64(out[4:], uint64(pos.X))
	binary.LittleEndian.PutUint64(out[12:], uint64(pos.Y))
	binary.LittleEndian.PutUint64(out[20:], uint64(pos.Z))
	return c.enc.EncodeAll(raw, out), nil
}

// Decode восстанавливает чанк из снимка. Возвращённый чанк не принадлежит миру.
func (c *SnapshotCodec) Decode(data []byte) (*Chunk, error) {
	if len(data) < snapshotHeaderSize || [4]byte(data[:4]) != snapshotMagic {
		return nil, ErrBadSnapshot
	}
	pos := vec.ChunkPos{
		X: int64(binary.LittleEndian.Uint64(data[4:])),
		Y: int64(binary.LittleEndian.Uint64(data[12:])),
		Z: int64(binary.LittleEndian.Uint64(data[20:])),
	}

	raw, err := c.dec.DecodeAll(data[snapshotHeaderSize:], make([]byte, 0, voxel.ChunkBytes))
	if err != nil {
		return nil, fmt.Errorf("decode chunk %s: %w", pos, errors.Join(ErrBadSnapshot, err))
	}
	if len(raw) != voxel.ChunkBytes {
		return nil, fmt.Errorf("decode chunk %s: %d байт: %w", pos, len(raw), ErrBadSnapshot)
	}

	chunk := NewChunk(pos)
	voxels := chunk.Voxels()
	for i := range voxels {
		voxels[i] = voxel.Voxel(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return chunk, nil
}

// SnapshotChunk копирует чанк под разделяемой блокировкой и сжимает копию
func (w *World) SnapshotChunk(pos vec.ChunkPos, codec *SnapshotCodec) ([]byte, error) {
	buf := make([]voxel.Voxel, voxel.ChunkVolume)
	if !w.CopyChunkVoxels(pos, buf) {
		return nil, fmt.Errorf("snapshot chunk %s: %w", pos, ErrChunkNotLoaded)
	}
	return codec.Encode(pos, buf)
}

// RestoreChunk вставляет чанк из снимка. Занятая позиция даёт ErrChunkExists.
func (w *World) RestoreChunk(data []byte, codec *SnapshotCodec) (vec.ChunkPos, error) {
	chunk, err := codec.Decode(data)
	if err != nil {
		return vec.ChunkPos{}, err
	}
	if err := w.InsertChunk(chunk.Position, chunk); err != nil {
		return chunk.Position, err
	}
	return chunk.Position, nil
}
