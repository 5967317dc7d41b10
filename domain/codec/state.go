package codec

import (
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
)

const BaseWorkchain = int32(0)

// StateInit is the code and initial data an actor address is derived from.
type StateInit struct {
	Code *boc.Cell
	Data *boc.Cell
}

// ToCell stores split_depth:none special:none code:^Cell data:^Cell library:empty.
func (si *StateInit) ToCell() (*boc.Cell, error) {
	b := NewBuilder()
	b.WriteBit(false)
	b.WriteBit(false)
	b.WriteMaybeRef(si.Code)
	b.WriteMaybeRef(si.Data)
	b.WriteBit(false)
	return b.Cell()
}

func DeriveAddress(workchain int32, si *StateInit) (tongo.AccountID, error) {
	cell, err := si.ToCell()
	if err != nil {
		return tongo.AccountID{}, err
	}
	hash, err := Hash(cell)
	if err != nil {
		return tongo.AccountID{}, err
	}
	res := tongo.AccountID{Workchain: workchain}
	copy(res.Address[:], hash[:])
	return res, nil
}

// CodeCell is the code cell of an actor kind. Actors are executed natively, so the
// cell only has to identify the kind and give every kind a distinct hash.
func CodeCell(name string) (*boc.Cell, error) {
	return EncodeSnake(0xc0, []byte(name))
}

func MustCodeCell(name string) *boc.Cell {
	cell, err := CodeCell(name)
	if err != nil {
		panic(err)
	}
	return cell
}

// CodeName returns the kind stored in a code cell.
func CodeName(code *boc.Cell) (string, error) {
	name, err := DecodeSnake(code, 0xc0)
	return string(name), err
}
