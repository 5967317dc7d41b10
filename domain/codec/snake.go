package codec

import (
	"github.com/pkg/errors"
	"github.com/tonkeeper/tongo/boc"
)

// SnakeChunkSize is the payload of one snake cell once the 8-bit prefix is accounted for.
const SnakeChunkSize = (MaxCellBits - 8) / 8

// EncodeSnake stores prefix followed by data, SnakeChunkSize bytes per cell,
// every cell referencing the next one.
func EncodeSnake(prefix byte, data []byte) (*boc.Cell, error) {
	chunks := make([][]byte, 0, len(data)/SnakeChunkSize+1)
	for len(data) > SnakeChunkSize {
		chunks = append(chunks, data[:SnakeChunkSize])
		data = data[SnakeChunkSize:]
	}
	chunks = append(chunks, data)

	var next *boc.Cell
	for i := len(chunks) - 1; i >= 0; i-- {
		b := NewBuilder()
		if i == 0 {
			b.WriteUint(uint64(prefix), 8)
		}
		b.WriteBytes(chunks[i])
		if next != nil {
			b.WriteRef(next)
		}
		cell, err := b.Cell()
		if err != nil {
			return nil, errors.Wrapf(err, "snake chunk %d", i)
		}
		next = cell
	}
	return next, nil
}

// DecodeSnake checks the leading prefix and concatenates the chained payloads.
func DecodeSnake(c *boc.Cell, prefix byte) ([]byte, error) {
	s := NewSlice(c)
	tag, err := s.ReadUint(8)
	if err != nil {
		return nil, err
	}
	if byte(tag) != prefix {
		return nil, errors.Wrapf(ErrorCellUnderflow, "snake prefix 0x%02x, expected 0x%02x", tag, prefix)
	}
	return readSnakeTail(s)
}

func readSnakeTail(s *Slice) ([]byte, error) {
	res := make([]byte, 0, SnakeChunkSize)
	for depth := 0; ; depth++ {
		if s.BitsLeft()%8 != 0 {
			return nil, errors.Wrapf(ErrorCellUnderflow, "snake cell %d holds %d bits", depth, s.BitsLeft())
		}
		chunk, err := s.ReadBytes(s.BitsLeft() / 8)
		if err != nil {
			return nil, err
		}
		res = append(res, chunk...)

		if s.RefsLeft() == 0 {
			return res, nil
		}
		if s.RefsLeft() > 1 {
			return nil, errors.Wrapf(ErrorCellUnderflow, "snake cell %d has %d references", depth, s.RefsLeft())
		}
		next, err := s.ReadRef()
		if err != nil {
			return nil, err
		}
		s = NewSlice(next)
	}
}
