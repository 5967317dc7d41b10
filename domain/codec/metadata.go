package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"jetton/domain"
	"strings"

	"github.com/pkg/errors"
	"github.com/tonkeeper/tongo/boc"
)

const snakeDataPrefix = byte(0x00)

// MetadataKey is the 256-bit dictionary key of an on-chain entry. A name
// written as "0x" followed by 64 hex digits is taken as the hash itself.
func MetadataKey(name string) []byte {
	if raw, ok := rawMetadataKey(name); ok {
		return raw
	}
	h := sha256.Sum256([]byte(name))
	return h[:]
}

func rawMetadataKey(name string) ([]byte, bool) {
	if !strings.HasPrefix(name, "0x") || len(name) != 66 {
		return nil, false
	}
	raw, err := hex.DecodeString(name[2:])
	return raw, err == nil
}

func EncodeMetadata(m domain.Metadata) (*boc.Cell, error) {
	if !m.OnChain {
		return EncodeSnake(domain.MetadataOffChain, []byte(m.Uri))
	}

	dict := NewDict(256)
	for name, value := range m.Entries {
		cell, err := EncodeSnake(snakeDataPrefix, value)
		if err != nil {
			return nil, errors.Wrapf(err, "metadata entry '%v'", name)
		}
		if err = dict.SetBytes(MetadataKey(name), cell); err != nil {
			return nil, err
		}
	}

	b := NewBuilder()
	b.WriteUint(uint64(domain.MetadataOnChain), 8)
	dict.Store(b)
	return b.Cell()
}

func DecodeMetadata(c *boc.Cell) (domain.Metadata, error) {
	s := NewSlice(c)
	kind, err := s.ReadUint(8)
	if err != nil {
		return domain.Metadata{}, err
	}

	switch byte(kind) {
	case domain.MetadataOffChain:
		uri, err := readSnakeTail(s)
		if err != nil {
			return domain.Metadata{}, err
		}
		return domain.NewOffChainMetadata(string(uri)), nil

	case domain.MetadataOnChain:
		dict, err := LoadDict(s, 256)
		if err != nil {
			return domain.Metadata{}, err
		}

		names := make(map[string]string, len(domain.KnownMetadataKeys))
		for _, name := range domain.KnownMetadataKeys {
			names[hex.EncodeToString(MetadataKey(name))] = name
		}

		res := domain.Metadata{OnChain: true, Entries: make(map[string][]byte, dict.Len())}
		for _, key := range dict.Keys() {
			hash := hex.EncodeToString(BitsToBytes(key))
			name, known := names[hash]
			if !known {
				name = "0x" + hash
			}
			cell, _ := dict.Get(key)
			value, err := DecodeSnake(cell, snakeDataPrefix)
			if err != nil {
				return domain.Metadata{}, errors.Wrapf(err, "metadata entry '%v'", name)
			}
			res.Entries[name] = value
		}
		return res, nil
	}

	return domain.Metadata{}, errors.Wrapf(ErrorCellUnderflow, "unknown metadata type %d", kind)
}
