package codec

import (
	"math/bits"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tonkeeper/tongo/boc"
)

// Dict is a HashmapE with fixed-width keys and referenced values (HashmapE n ^Cell).
// Keys are kept as bit strings so every width is supported and the lexical order
// of the strings is the numeric order of the keys.
type Dict struct {
	keyBits int
	items   map[string]*boc.Cell
}

func NewDict(keyBits int) *Dict {
	return &Dict{keyBits: keyBits, items: make(map[string]*boc.Cell)}
}

func (d *Dict) KeyBits() int {
	return d.keyBits
}

func (d *Dict) Len() int {
	return len(d.items)
}

func (d *Dict) Set(key []bool, value *boc.Cell) error {
	k, err := d.key(key)
	if err != nil {
		return err
	}
	d.items[k] = value
	return nil
}

func (d *Dict) Get(key []bool) (*boc.Cell, bool) {
	k, err := d.key(key)
	if err != nil {
		return nil, false
	}
	v, ok := d.items[k]
	return v, ok
}

func (d *Dict) Delete(key []bool) {
	if k, err := d.key(key); err == nil {
		delete(d.items, k)
	}
}

// Keys returns the keys in ascending numeric order.
func (d *Dict) Keys() [][]bool {
	strs := d.sortedKeys()
	res := make([][]bool, len(strs))
	for i, k := range strs {
		res[i] = stringToBits(k)
	}
	return res
}

func (d *Dict) SetUint(key uint64, value *boc.Cell) error {
	return d.Set(UintToBits(key, d.keyBits), value)
}

func (d *Dict) GetUint(key uint64) (*boc.Cell, bool) {
	return d.Get(UintToBits(key, d.keyBits))
}

func (d *Dict) DeleteUint(key uint64) {
	d.Delete(UintToBits(key, d.keyBits))
}

func (d *Dict) SetBytes(key []byte, value *boc.Cell) error {
	return d.Set(BytesToBits(key), value)
}

func (d *Dict) GetBytes(key []byte) (*boc.Cell, bool) {
	return d.Get(BytesToBits(key))
}

func (d *Dict) key(key []bool) (string, error) {
	if len(key) != d.keyBits {
		return "", errors.Wrapf(ErrorCellOverflow, "dictionary key of %d bits, expected %d", len(key), d.keyBits)
	}
	return bitsToString(key), nil
}

func (d *Dict) sortedKeys() []string {
	keys := make([]string, 0, len(d.items))
	for k := range d.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store writes the HashmapE: a 0 bit when empty, else a 1 bit and the root reference.
func (d *Dict) Store(b *Builder) {
	if len(d.items) == 0 {
		b.WriteBit(false)
		return
	}
	root, err := d.buildNode(d.sortedKeys(), 0, d.keyBits)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return
	}
	b.WriteBit(true)
	b.WriteRef(root)
}

// LoadDict reads a HashmapE with the given key width.
func LoadDict(s *Slice, keyBits int) (*Dict, error) {
	d := NewDict(keyBits)
	root, err := s.ReadMaybeRef()
	if err != nil || root == nil {
		return d, err
	}
	err = d.parseNode(root, keyBits, "")
	if err != nil {
		return nil, err
	}
	return d, nil
}

// buildNode encodes keys (sorted, sharing the first `from` bits) with m bits left.
func (d *Dict) buildNode(keys []string, from, m int) (*boc.Cell, error) {
	b := NewBuilder()
	if len(keys) == 1 {
		writeLabel(b, keys[0][from:], m)
		b.WriteRef(d.items[keys[0]])
		return b.Cell()
	}

	first, last := keys[0][from:], keys[len(keys)-1][from:]
	p := 0
	for p < len(first) && first[p] == last[p] {
		p++
	}
	writeLabel(b, first[:p], m)

	split := sort.Search(len(keys), func(i int) bool {
		return keys[i][from+p] == '1'
	})
	left, err := d.buildNode(keys[:split], from+p+1, m-p-1)
	if err != nil {
		return nil, err
	}
	right, err := d.buildNode(keys[split:], from+p+1, m-p-1)
	if err != nil {
		return nil, err
	}
	b.WriteRef(left)
	b.WriteRef(right)
	return b.Cell()
}

func (d *Dict) parseNode(c *boc.Cell, m int, prefix string) error {
	s := NewSlice(c)
	label, err := readLabel(s, m)
	if err != nil {
		return err
	}
	prefix += label
	rest := m - len(label)

	if rest == 0 {
		value, err := s.ReadRef()
		if err != nil {
			return err
		}
		d.items[prefix] = value
		return nil
	}

	left, err := s.ReadRef()
	if err != nil {
		return err
	}
	right, err := s.ReadRef()
	if err != nil {
		return err
	}
	if err = d.parseNode(left, rest-1, prefix+"0"); err != nil {
		return err
	}
	return d.parseNode(right, rest-1, prefix+"1")
}

// writeLabel picks the shortest of hml_short, hml_long and hml_same.
func writeLabel(b *Builder, label string, m int) {
	n := len(label)
	k := bits.Len(uint(m))

	shortLen := 2*n + 2
	longLen := 2 + k + n
	sameLen := -1
	if n > 0 && (strings.Count(label, "0") == n || strings.Count(label, "1") == n) {
		sameLen = 3 + k
	}

	switch {
	case sameLen >= 0 && sameLen < shortLen && sameLen < longLen:
		b.WriteUint(0b11, 2)
		b.WriteBit(label[0] == '1')
		b.WriteUint(uint64(n), k)
	case shortLen <= longLen:
		b.WriteBit(false)
		for i := 0; i < n; i++ {
			b.WriteBit(true)
		}
		b.WriteBit(false)
		b.WriteBits(stringToBits(label))
	default:
		b.WriteUint(0b10, 2)
		b.WriteUint(uint64(n), k)
		b.WriteBits(stringToBits(label))
	}
}

func readLabel(s *Slice, m int) (string, error) {
	k := bits.Len(uint(m))

	first, err := s.ReadBit()
	if err != nil {
		return "", err
	}

	var n int
	if !first {
		// hml_short: unary length
		for {
			bit, err := s.ReadBit()
			if err != nil {
				return "", err
			}
			if !bit {
				break
			}
			n++
		}
	} else {
		same, err := s.ReadBit()
		if err != nil {
			return "", err
		}
		if same {
			v, err := s.ReadBit()
			if err != nil {
				return "", err
			}
			l, err := s.ReadUint(k)
			if err != nil {
				return "", err
			}
			if int(l) > m {
				return "", errors.Wrapf(ErrorCellUnderflow, "label of %d bits exceeds %d", l, m)
			}
			ch := "0"
			if v {
				ch = "1"
			}
			return strings.Repeat(ch, int(l)), nil
		}
		l, err := s.ReadUint(k)
		if err != nil {
			return "", err
		}
		n = int(l)
	}

	if n > m {
		return "", errors.Wrapf(ErrorCellUnderflow, "label of %d bits exceeds %d", n, m)
	}
	label, err := s.ReadBits(n)
	if err != nil {
		return "", err
	}
	return bitsToString(label), nil
}

func UintToBits(v uint64, n int) []bool {
	res := make([]bool, n)
	for i := 0; i < n; i++ {
		shift := n - 1 - i
		if shift < 64 {
			res[i] = (v>>uint(shift))&1 == 1
		}
	}
	return res
}

func BitsToUint(key []bool) uint64 {
	var v uint64
	for _, bit := range key {
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v
}

func BytesToBits(data []byte) []bool {
	res := make([]bool, 0, len(data)*8)
	for _, v := range data {
		for i := 7; i >= 0; i-- {
			res = append(res, (v>>uint(i))&1 == 1)
		}
	}
	return res
}

func BitsToBytes(key []bool) []byte {
	res := make([]byte, (len(key)+7)/8)
	for i, bit := range key {
		if bit {
			res[i/8] |= 1 << uint(7-i%8)
		}
	}
	return res
}

func bitsToString(key []bool) string {
	var sb strings.Builder
	sb.Grow(len(key))
	for _, bit := range key {
		if bit {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func stringToBits(s string) []bool {
	res := make([]bool, len(s))
	for i := range s {
		res[i] = s[i] == '1'
	}
	return res
}
