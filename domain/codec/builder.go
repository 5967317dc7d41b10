package codec

import (
	"jetton/domain"
	"math/big"

	"github.com/pkg/errors"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

const (
	MaxCellBits = 1023
	MaxCellRefs = 4
)

var (
	ErrorCellOverflow  = domain.Abort(domain.ExitMalformedRecord)
	ErrorCellUnderflow = domain.Abort(domain.ExitMalformedRecord)
)

// Builder writes into a fresh cell and keeps the first error, so a sequence of
// writes can be checked once with Cell().
type Builder struct {
	cell *boc.Cell
	bits int
	refs int
	err  error
}

func NewBuilder() *Builder {
	return &Builder{cell: boc.NewCell()}
}

func (b *Builder) BitsLeft() int {
	return MaxCellBits - b.bits
}

func (b *Builder) RefsLeft() int {
	return MaxCellRefs - b.refs
}

func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) Cell() (*boc.Cell, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cell, nil
}

func (b *Builder) reserve(n int) bool {
	if b.err != nil {
		return false
	}
	if n < 0 || b.bits+n > MaxCellBits {
		b.err = errors.Wrapf(ErrorCellOverflow, "writing %d bits with %d left", n, b.BitsLeft())
		return false
	}
	b.bits += n
	return true
}

func (b *Builder) fail(err error, format string, args ...interface{}) {
	if b.err == nil && err != nil {
		b.err = errors.Wrapf(domain.Abort(domain.ExitMalformedRecord), format+": %v", append(args, err)...)
	}
}

func (b *Builder) WriteUint(v uint64, n int) {
	if n < 64 && v>>uint(n) != 0 {
		if b.err == nil {
			b.err = errors.Wrapf(ErrorCellOverflow, "value %d does not fit in %d bits", v, n)
		}
		return
	}
	if !b.reserve(n) {
		return
	}
	b.fail(b.cell.WriteUint(v, n), "write uint%d", n)
}

func (b *Builder) WriteInt(v int64, n int) {
	limit := int64(1) << uint(n-1)
	if n < 64 && (v < -limit || v >= limit) {
		if b.err == nil {
			b.err = errors.Wrapf(ErrorCellOverflow, "value %d does not fit in int%d", v, n)
		}
		return
	}
	if !b.reserve(n) {
		return
	}
	b.fail(b.cell.WriteInt(v, n), "write int%d", n)
}

func (b *Builder) WriteBit(v bool) {
	if !b.reserve(1) {
		return
	}
	b.fail(b.cell.WriteBit(v), "write bit")
}

func (b *Builder) WriteBits(bits []bool) {
	for _, bit := range bits {
		b.WriteBit(bit)
	}
}

func (b *Builder) WriteBytes(data []byte) {
	if b.err == nil && len(data)*8 > b.BitsLeft() {
		b.err = errors.Wrapf(ErrorCellOverflow, "writing %d bytes with %d bits left", len(data), b.BitsLeft())
		return
	}
	for _, v := range data {
		b.WriteUint(uint64(v), 8)
	}
}

// WriteCoins stores a VarUInteger 16: a 4-bit byte length followed by the value.
func (b *Builder) WriteCoins(v *big.Int) {
	if err := domain.CheckAmount(v); err != nil {
		if b.err == nil {
			b.err = errors.Wrapf(domain.Abort(domain.ExitAmountOverflow), "coins %v", v)
		}
		return
	}
	data := v.Bytes()
	b.WriteUint(uint64(len(data)), 4)
	b.WriteBytes(data)
}

func (b *Builder) WriteGrams(v tlb.Grams) {
	b.WriteCoins(new(big.Int).SetUint64(uint64(v)))
}

// WriteAddress stores addr_std, or addr_none for a nil address.
func (b *Builder) WriteAddress(addr *tongo.AccountID) {
	if addr == nil {
		b.WriteUint(0, 2)
		return
	}
	b.WriteUint(0b10, 2)
	b.WriteBit(false)
	b.WriteInt(int64(addr.Workchain), 8)
	b.WriteBytes(addr.Address[:])
}

func (b *Builder) WriteRef(c *boc.Cell) {
	if b.err != nil {
		return
	}
	if c == nil {
		b.err = errors.Wrap(ErrorCellOverflow, "nil reference")
		return
	}
	if b.refs >= MaxCellRefs {
		b.err = errors.Wrap(ErrorCellOverflow, "too many references")
		return
	}
	b.refs++
	b.fail(b.cell.AddRef(c), "add ref")
}

func (b *Builder) WriteMaybeRef(c *boc.Cell) {
	b.WriteBit(c != nil)
	if c != nil {
		b.WriteRef(c)
	}
}

// WriteEither stores a payload inline when it fits, otherwise as a reference.
func (b *Builder) WriteEither(c *boc.Cell) {
	if c == nil {
		b.WriteBit(false)
		return
	}
	s := NewSlice(c)
	if s.BitsLeft()+1 <= b.BitsLeft() && s.RefsLeft() <= b.RefsLeft() {
		b.WriteBit(false)
		b.WriteSlice(s)
		return
	}
	b.WriteBit(true)
	b.WriteRef(c)
}

// WriteSlice copies what is left of s.
func (b *Builder) WriteSlice(s *Slice) {
	for s.BitsLeft() > 0 && b.err == nil {
		bit, err := s.ReadBit()
		if err != nil {
			b.err = err
			return
		}
		b.WriteBit(bit)
	}
	for s.RefsLeft() > 0 && b.err == nil {
		ref, err := s.ReadRef()
		if err != nil {
			b.err = err
			return
		}
		b.WriteRef(ref)
	}
}

// Slice reads a cell from its beginning.
type Slice struct {
	cell *boc.Cell
}

func NewSlice(c *boc.Cell) *Slice {
	c.ResetCounters()
	return &Slice{cell: c}
}

func (s *Slice) BitsLeft() int {
	return s.cell.BitsAvailableForRead()
}

func (s *Slice) RefsLeft() int {
	return s.cell.RefsAvailableForRead()
}

func (s *Slice) IsEmpty() bool {
	return s.BitsLeft() == 0 && s.RefsLeft() == 0
}

func (s *Slice) need(n int) error {
	if n > s.BitsLeft() {
		return errors.Wrapf(ErrorCellUnderflow, "reading %d bits with %d left", n, s.BitsLeft())
	}
	return nil
}

func (s *Slice) ReadUint(n int) (uint64, error) {
	if err := s.need(n); err != nil {
		return 0, err
	}
	v, err := s.cell.ReadUint(n)
	if err != nil {
		return 0, errors.Wrapf(ErrorCellUnderflow, "read uint%d: %v", n, err)
	}
	return v, nil
}

func (s *Slice) ReadInt(n int) (int64, error) {
	if err := s.need(n); err != nil {
		return 0, err
	}
	v, err := s.cell.ReadInt(n)
	if err != nil {
		return 0, errors.Wrapf(ErrorCellUnderflow, "read int%d: %v", n, err)
	}
	return v, nil
}

func (s *Slice) ReadBit() (bool, error) {
	if err := s.need(1); err != nil {
		return false, err
	}
	v, err := s.cell.ReadBit()
	if err != nil {
		return false, errors.Wrapf(ErrorCellUnderflow, "read bit: %v", err)
	}
	return v, nil
}

func (s *Slice) ReadBytes(n int) ([]byte, error) {
	if err := s.need(n * 8); err != nil {
		return nil, err
	}
	res := make([]byte, n)
	for i := range res {
		v, err := s.ReadUint(8)
		if err != nil {
			return nil, err
		}
		res[i] = byte(v)
	}
	return res, nil
}

func (s *Slice) ReadCoins() (*big.Int, error) {
	l, err := s.ReadUint(4)
	if err != nil {
		return nil, err
	}
	data, err := s.ReadBytes(int(l))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(data), nil
}

func (s *Slice) ReadGrams() (tlb.Grams, error) {
	v, err := s.ReadCoins()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errors.Wrapf(domain.Abort(domain.ExitAmountOverflow), "grams %v", v)
	}
	return tlb.Grams(v.Uint64()), nil
}

// ReadAddress returns nil for addr_none. Only addr_std without anycast is accepted.
func (s *Slice) ReadAddress() (*tongo.AccountID, error) {
	tag, err := s.ReadUint(2)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0b00:
		return nil, nil
	case 0b10:
	default:
		return nil, errors.Wrapf(ErrorCellUnderflow, "unsupported address tag %02b", tag)
	}

	anycast, err := s.ReadBit()
	if err != nil {
		return nil, err
	}
	if anycast {
		return nil, errors.Wrap(ErrorCellUnderflow, "anycast addresses are not supported")
	}

	workchain, err := s.ReadInt(8)
	if err != nil {
		return nil, err
	}
	hash, err := s.ReadBytes(32)
	if err != nil {
		return nil, err
	}

	res := tongo.AccountID{Workchain: int32(workchain)}
	copy(res.Address[:], hash)
	return &res, nil
}

// ReadRequiredAddress fails on addr_none.
func (s *Slice) ReadRequiredAddress() (tongo.AccountID, error) {
	addr, err := s.ReadAddress()
	if err != nil {
		return tongo.AccountID{}, err
	}
	if addr == nil {
		return tongo.AccountID{}, errors.Wrap(ErrorCellUnderflow, "address is required")
	}
	return *addr, nil
}

func (s *Slice) ReadRef() (*boc.Cell, error) {
	if s.RefsLeft() == 0 {
		return nil, errors.Wrap(ErrorCellUnderflow, "no reference left")
	}
	ref, err := s.cell.NextRef()
	if err != nil {
		return nil, errors.Wrapf(ErrorCellUnderflow, "next ref: %v", err)
	}
	return ref, nil
}

func (s *Slice) ReadMaybeRef() (*boc.Cell, error) {
	present, err := s.ReadBit()
	if err != nil || !present {
		return nil, err
	}
	return s.ReadRef()
}

// ReadEither returns an inline payload copied into its own cell, or the referenced one.
// An empty inline payload yields nil.
func (s *Slice) ReadEither() (*boc.Cell, error) {
	isRef, err := s.ReadBit()
	if err != nil {
		return nil, err
	}
	if isRef {
		return s.ReadRef()
	}
	if s.IsEmpty() {
		return nil, nil
	}
	b := NewBuilder()
	b.WriteSlice(s)
	return b.Cell()
}

// ReadBits returns the next n bits one per element.
func (s *Slice) ReadBits(n int) ([]bool, error) {
	if err := s.need(n); err != nil {
		return nil, err
	}
	res := make([]bool, n)
	for i := range res {
		bit, err := s.ReadBit()
		if err != nil {
			return nil, err
		}
		res[i] = bit
	}
	return res, nil
}

// Hash is the representation hash of a cell.
func Hash(c *boc.Cell) ([32]byte, error) {
	var res [32]byte
	h, err := c.Hash()
	if err != nil {
		return res, errors.Wrapf(domain.Abort(domain.ExitMalformedRecord), "hash: %v", err)
	}
	copy(res[:], h)
	return res, nil
}
