package codec

import (
	"jetton/domain"
	"math/big"

	"github.com/pkg/errors"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

// Body is a message body that knows its op code and layout.
type Body interface {
	Opcode() uint32
	ToCell() (*boc.Cell, error)
}

func header(op uint32, queryId uint64) *Builder {
	b := NewBuilder()
	b.WriteUint(uint64(op), 32)
	b.WriteUint(queryId, 64)
	return b
}

// PeekOp returns the op code of a body, 0 for an empty one.
func PeekOp(c *boc.Cell) (uint32, error) {
	if c == nil {
		return 0, nil
	}
	s := NewSlice(c)
	if s.BitsLeft() < 32 {
		return 0, nil
	}
	op, err := s.ReadUint(32)
	return uint32(op), err
}

func readHeader(c *boc.Cell, expected uint32) (*Slice, uint64, error) {
	if c == nil {
		return nil, 0, errors.Wrapf(ErrorCellUnderflow, "empty body for op %v", domain.OpName(expected))
	}
	s := NewSlice(c)
	op, err := s.ReadUint(32)
	if err != nil {
		return nil, 0, err
	}
	if uint32(op) != expected {
		return nil, 0, errors.Wrapf(domain.Abort(domain.ExitWrongOp), "op %v, expected %v", domain.OpName(uint32(op)), domain.OpName(expected))
	}
	queryId, err := s.ReadUint(64)
	if err != nil {
		return nil, 0, err
	}
	return s, queryId, nil
}

// BouncedHeader reads the prefix of a bounced body: the original op and query id.
// The returned slice holds what is left of the original body.
func BouncedHeader(c *boc.Cell) (uint32, uint64, *Slice, error) {
	s := NewSlice(c)
	prefix, err := s.ReadUint(32)
	if err != nil {
		return 0, 0, nil, err
	}
	if uint32(prefix) != domain.OpBounced {
		return 0, 0, nil, errors.Wrapf(ErrorCellUnderflow, "bounced body prefix 0x%08x", prefix)
	}
	op, err := s.ReadUint(32)
	if err != nil {
		return 0, 0, nil, err
	}
	queryId, err := s.ReadUint(64)
	if err != nil {
		return 0, 0, nil, err
	}
	return uint32(op), queryId, s, nil
}

//-------------------------------------------------------------------
// Wallet operations

type TransferBody struct {
	QueryId             uint64
	Amount              *big.Int
	Destination         tongo.AccountID
	ResponseDestination *tongo.AccountID
	CustomPayload       *boc.Cell
	ForwardAmount       tlb.Grams
	ForwardPayload      *boc.Cell
}

func (body *TransferBody) Opcode() uint32 { return domain.OpTransfer }

func (body *TransferBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpTransfer, body.QueryId)
	b.WriteCoins(body.Amount)
	b.WriteAddress(&body.Destination)
	b.WriteAddress(body.ResponseDestination)
	b.WriteMaybeRef(body.CustomPayload)
	b.WriteGrams(body.ForwardAmount)
	b.WriteEither(body.ForwardPayload)
	return b.Cell()
}

func ParseTransferBody(c *boc.Cell) (*TransferBody, error) {
	s, queryId, err := readHeader(c, domain.OpTransfer)
	if err != nil {
		return nil, err
	}
	body := &TransferBody{QueryId: queryId}
	if body.Amount, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if body.Destination, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if body.ResponseDestination, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	if body.CustomPayload, err = s.ReadMaybeRef(); err != nil {
		return nil, err
	}
	if body.ForwardAmount, err = s.ReadGrams(); err != nil {
		return nil, err
	}
	if body.ForwardPayload, err = s.ReadEither(); err != nil {
		return nil, err
	}
	return body, nil
}

type InternalTransferBody struct {
	QueryId         uint64
	Amount          *big.Int
	From            *tongo.AccountID
	ResponseAddress *tongo.AccountID
	ForwardAmount   tlb.Grams
	ForwardPayload  *boc.Cell
}

func (body *InternalTransferBody) Opcode() uint32 { return domain.OpInternalTransfer }

func (body *InternalTransferBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpInternalTransfer, body.QueryId)
	b.WriteCoins(body.Amount)
	b.WriteAddress(body.From)
	b.WriteAddress(body.ResponseAddress)
	b.WriteGrams(body.ForwardAmount)
	b.WriteEither(body.ForwardPayload)
	return b.Cell()
}

func ParseInternalTransferBody(c *boc.Cell) (*InternalTransferBody, error) {
	s, queryId, err := readHeader(c, domain.OpInternalTransfer)
	if err != nil {
		return nil, err
	}
	body := &InternalTransferBody{QueryId: queryId}
	if body.Amount, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if body.From, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	if body.ResponseAddress, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	if body.ForwardAmount, err = s.ReadGrams(); err != nil {
		return nil, err
	}
	if body.ForwardPayload, err = s.ReadEither(); err != nil {
		return nil, err
	}
	return body, nil
}

type TransferNotificationBody struct {
	QueryId        uint64
	Amount         *big.Int
	Sender         *tongo.AccountID
	ForwardPayload *boc.Cell
}

func (body *TransferNotificationBody) Opcode() uint32 { return domain.OpTransferNotification }

func (body *TransferNotificationBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpTransferNotification, body.QueryId)
	b.WriteCoins(body.Amount)
	b.WriteAddress(body.Sender)
	b.WriteEither(body.ForwardPayload)
	return b.Cell()
}

func ParseTransferNotificationBody(c *boc.Cell) (*TransferNotificationBody, error) {
	s, queryId, err := readHeader(c, domain.OpTransferNotification)
	if err != nil {
		return nil, err
	}
	body := &TransferNotificationBody{QueryId: queryId}
	if body.Amount, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if body.Sender, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	if body.ForwardPayload, err = s.ReadEither(); err != nil {
		return nil, err
	}
	return body, nil
}

type ExcessesBody struct {
	QueryId uint64
}

func (body *ExcessesBody) Opcode() uint32 { return domain.OpExcesses }

func (body *ExcessesBody) ToCell() (*boc.Cell, error) {
	return header(domain.OpExcesses, body.QueryId).Cell()
}

type BurnBody struct {
	QueryId             uint64
	Amount              *big.Int
	ResponseDestination *tongo.AccountID
	CustomPayload       *boc.Cell
}

func (body *BurnBody) Opcode() uint32 { return domain.OpBurn }

func (body *BurnBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpBurn, body.QueryId)
	b.WriteCoins(body.Amount)
	b.WriteAddress(body.ResponseDestination)
	b.WriteMaybeRef(body.CustomPayload)
	return b.Cell()
}

func ParseBurnBody(c *boc.Cell) (*BurnBody, error) {
	s, queryId, err := readHeader(c, domain.OpBurn)
	if err != nil {
		return nil, err
	}
	body := &BurnBody{QueryId: queryId}
	if body.Amount, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if body.ResponseDestination, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	if body.CustomPayload, err = s.ReadMaybeRef(); err != nil {
		return nil, err
	}
	return body, nil
}

type BurnNotificationBody struct {
	QueryId             uint64
	Amount              *big.Int
	Sender              tongo.AccountID
	ResponseDestination *tongo.AccountID
}

func (body *BurnNotificationBody) Opcode() uint32 { return domain.OpBurnNotification }

func (body *BurnNotificationBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpBurnNotification, body.QueryId)
	b.WriteCoins(body.Amount)
	b.WriteAddress(&body.Sender)
	b.WriteAddress(body.ResponseDestination)
	return b.Cell()
}

func ParseBurnNotificationBody(c *boc.Cell) (*BurnNotificationBody, error) {
	s, queryId, err := readHeader(c, domain.OpBurnNotification)
	if err != nil {
		return nil, err
	}
	body := &BurnNotificationBody{QueryId: queryId}
	if body.Amount, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if body.Sender, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if body.ResponseDestination, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	return body, nil
}

//-------------------------------------------------------------------
// Discovery

type ProvideWalletAddressBody struct {
	QueryId        uint64
	Owner          tongo.AccountID
	IncludeAddress bool
}

func (body *ProvideWalletAddressBody) Opcode() uint32 { return domain.OpProvideWalletAddress }

func (body *ProvideWalletAddressBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpProvideWalletAddress, body.QueryId)
	b.WriteAddress(&body.Owner)
	b.WriteBit(body.IncludeAddress)
	return b.Cell()
}

func ParseProvideWalletAddressBody(c *boc.Cell) (*ProvideWalletAddressBody, error) {
	s, queryId, err := readHeader(c, domain.OpProvideWalletAddress)
	if err != nil {
		return nil, err
	}
	body := &ProvideWalletAddressBody{QueryId: queryId}
	if body.Owner, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if body.IncludeAddress, err = s.ReadBit(); err != nil {
		return nil, err
	}
	return body, nil
}

type TakeWalletAddressBody struct {
	QueryId       uint64
	WalletAddress *tongo.AccountID
	Owner         *tongo.AccountID
}

func (body *TakeWalletAddressBody) Opcode() uint32 { return domain.OpTakeWalletAddress }

func (body *TakeWalletAddressBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpTakeWalletAddress, body.QueryId)
	b.WriteAddress(body.WalletAddress)
	var ownerCell *boc.Cell
	if body.Owner != nil {
		ob := NewBuilder()
		ob.WriteAddress(body.Owner)
		cell, err := ob.Cell()
		if err != nil {
			return nil, err
		}
		ownerCell = cell
	}
	b.WriteMaybeRef(ownerCell)
	return b.Cell()
}

func ParseTakeWalletAddressBody(c *boc.Cell) (*TakeWalletAddressBody, error) {
	s, queryId, err := readHeader(c, domain.OpTakeWalletAddress)
	if err != nil {
		return nil, err
	}
	body := &TakeWalletAddressBody{QueryId: queryId}
	if body.WalletAddress, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	ownerCell, err := s.ReadMaybeRef()
	if err != nil {
		return nil, err
	}
	if ownerCell != nil {
		if body.Owner, err = NewSlice(ownerCell).ReadAddress(); err != nil {
			return nil, err
		}
	}
	return body, nil
}

//-------------------------------------------------------------------
// Minter administration

type MintBody struct {
	QueryId     uint64
	Destination tongo.AccountID
	TotalValue  tlb.Grams
	Transfer    InternalTransferBody
}

func (body *MintBody) Opcode() uint32 { return domain.OpMint }

func (body *MintBody) ToCell() (*boc.Cell, error) {
	transfer, err := body.Transfer.ToCell()
	if err != nil {
		return nil, err
	}
	b := header(domain.OpMint, body.QueryId)
	b.WriteAddress(&body.Destination)
	b.WriteGrams(body.TotalValue)
	b.WriteRef(transfer)
	return b.Cell()
}

// ParseMintBody also returns the cell of the carried internal transfer, which the
// minter forwards as is.
func ParseMintBody(c *boc.Cell) (*MintBody, *boc.Cell, error) {
	s, queryId, err := readHeader(c, domain.OpMint)
	if err != nil {
		return nil, nil, err
	}
	body := &MintBody{QueryId: queryId}
	if body.Destination, err = s.ReadRequiredAddress(); err != nil {
		return nil, nil, err
	}
	if body.TotalValue, err = s.ReadGrams(); err != nil {
		return nil, nil, err
	}
	transferCell, err := s.ReadRef()
	if err != nil {
		return nil, nil, err
	}
	transfer, err := ParseInternalTransferBody(transferCell)
	if err != nil {
		return nil, nil, errors.Wrap(domain.Abort(domain.ExitMalformedRecord), err.Error())
	}
	body.Transfer = *transfer
	return body, transferCell, nil
}

type ChangeAdminBody struct {
	QueryId  uint64
	NewAdmin tongo.AccountID
}

func (body *ChangeAdminBody) Opcode() uint32 { return domain.OpChangeAdmin }

func (body *ChangeAdminBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpChangeAdmin, body.QueryId)
	b.WriteAddress(&body.NewAdmin)
	return b.Cell()
}

func ParseChangeAdminBody(c *boc.Cell) (*ChangeAdminBody, error) {
	s, queryId, err := readHeader(c, domain.OpChangeAdmin)
	if err != nil {
		return nil, err
	}
	body := &ChangeAdminBody{QueryId: queryId}
	body.NewAdmin, err = s.ReadRequiredAddress()
	return body, err
}

type ChangeContentBody struct {
	QueryId uint64
	Content *boc.Cell
}

func (body *ChangeContentBody) Opcode() uint32 { return domain.OpChangeContent }

func (body *ChangeContentBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpChangeContent, body.QueryId)
	b.WriteRef(body.Content)
	return b.Cell()
}

func ParseChangeContentBody(c *boc.Cell) (*ChangeContentBody, error) {
	s, queryId, err := readHeader(c, domain.OpChangeContent)
	if err != nil {
		return nil, err
	}
	body := &ChangeContentBody{QueryId: queryId}
	body.Content, err = s.ReadRef()
	return body, err
}

type ChangeAntiBotBody struct {
	QueryId    uint64
	NewAntiBot tongo.AccountID
}

func (body *ChangeAntiBotBody) Opcode() uint32 { return domain.OpChangeAntiBot }

func (body *ChangeAntiBotBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpChangeAntiBot, body.QueryId)
	b.WriteAddress(&body.NewAntiBot)
	return b.Cell()
}

func ParseChangeAntiBotBody(c *boc.Cell) (*ChangeAntiBotBody, error) {
	s, queryId, err := readHeader(c, domain.OpChangeAntiBot)
	if err != nil {
		return nil, err
	}
	body := &ChangeAntiBotBody{QueryId: queryId}
	body.NewAntiBot, err = s.ReadRequiredAddress()
	return body, err
}

//-------------------------------------------------------------------
// Anti-bot protocol

// TransferDetails is the part of a transfer that travels untouched through the policy round trip.
type TransferDetails struct {
	Destination         tongo.AccountID
	ResponseDestination *tongo.AccountID
	ForwardAmount       tlb.Grams
	ForwardPayload      *boc.Cell
}

func (d *TransferDetails) ToCell() (*boc.Cell, error) {
	b := NewBuilder()
	b.WriteAddress(&d.Destination)
	b.WriteAddress(d.ResponseDestination)
	b.WriteGrams(d.ForwardAmount)
	b.WriteEither(d.ForwardPayload)
	return b.Cell()
}

func ParseTransferDetails(c *boc.Cell) (*TransferDetails, error) {
	s := NewSlice(c)
	d := &TransferDetails{}
	var err error
	if d.Destination, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if d.ResponseDestination, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	if d.ForwardAmount, err = s.ReadGrams(); err != nil {
		return nil, err
	}
	if d.ForwardPayload, err = s.ReadEither(); err != nil {
		return nil, err
	}
	return d, nil
}

// TransferCheckBody asks the policy whether a transfer may proceed. The amount comes
// first so that it survives the truncation of a bounced body.
type TransferCheckBody struct {
	QueryId             uint64
	Amount              *big.Int
	Owner               tongo.AccountID
	IsWhiteList         int32
	LastTransactionTime uint64
	Details             *boc.Cell
}

func (body *TransferCheckBody) Opcode() uint32 { return domain.OpPreTransferCheck }

func (body *TransferCheckBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpPreTransferCheck, body.QueryId)
	b.WriteCoins(body.Amount)
	b.WriteAddress(&body.Owner)
	b.WriteInt(int64(body.IsWhiteList), 32)
	b.WriteUint(body.LastTransactionTime, 64)
	b.WriteRef(body.Details)
	return b.Cell()
}

func ParseTransferCheckBody(c *boc.Cell) (*TransferCheckBody, error) {
	s, queryId, err := readHeader(c, domain.OpPreTransferCheck)
	if err != nil {
		return nil, err
	}
	body := &TransferCheckBody{QueryId: queryId}
	if body.Amount, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if body.Owner, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	flag, err := s.ReadInt(32)
	if err != nil {
		return nil, err
	}
	body.IsWhiteList = int32(flag)
	if body.LastTransactionTime, err = s.ReadUint(64); err != nil {
		return nil, err
	}
	if body.Details, err = s.ReadRef(); err != nil {
		return nil, err
	}
	return body, nil
}

type ExecuteTransferBody struct {
	QueryId  uint64
	Approved bool
	Amount   *big.Int
	Details  *boc.Cell
}

func (body *ExecuteTransferBody) Opcode() uint32 { return domain.OpExecuteTransfer }

func (body *ExecuteTransferBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpExecuteTransfer, body.QueryId)
	b.WriteBit(body.Approved)
	b.WriteCoins(body.Amount)
	b.WriteMaybeRef(body.Details)
	return b.Cell()
}

func ParseExecuteTransferBody(c *boc.Cell) (*ExecuteTransferBody, error) {
	s, queryId, err := readHeader(c, domain.OpExecuteTransfer)
	if err != nil {
		return nil, err
	}
	body := &ExecuteTransferBody{QueryId: queryId}
	if body.Approved, err = s.ReadBit(); err != nil {
		return nil, err
	}
	if body.Amount, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if body.Details, err = s.ReadMaybeRef(); err != nil {
		return nil, err
	}
	return body, nil
}

type UpdateWhiteListBody struct {
	QueryId      uint64
	User         tongo.AccountID
	ForwardValue tlb.Grams
	Flag         int32
}

func (body *UpdateWhiteListBody) Opcode() uint32 { return domain.OpUpdateWhiteList }

func (body *UpdateWhiteListBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpUpdateWhiteList, body.QueryId)
	b.WriteAddress(&body.User)
	b.WriteGrams(body.ForwardValue)
	b.WriteInt(int64(body.Flag), 32)
	return b.Cell()
}

func ParseUpdateWhiteListBody(c *boc.Cell) (*UpdateWhiteListBody, error) {
	s, queryId, err := readHeader(c, domain.OpUpdateWhiteList)
	if err != nil {
		return nil, err
	}
	body := &UpdateWhiteListBody{QueryId: queryId}
	if body.User, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if body.ForwardValue, err = s.ReadGrams(); err != nil {
		return nil, err
	}
	flag, err := s.ReadInt(32)
	if err != nil {
		return nil, err
	}
	body.Flag = int32(flag)
	return body, nil
}

type SetWhiteListBody struct {
	QueryId uint64
	User    tongo.AccountID
	Flag    int32
}

func (body *SetWhiteListBody) Opcode() uint32 { return domain.OpSetWhiteList }

func (body *SetWhiteListBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpSetWhiteList, body.QueryId)
	b.WriteAddress(&body.User)
	b.WriteInt(int64(body.Flag), 32)
	return b.Cell()
}

func ParseSetWhiteListBody(c *boc.Cell) (*SetWhiteListBody, error) {
	s, queryId, err := readHeader(c, domain.OpSetWhiteList)
	if err != nil {
		return nil, err
	}
	body := &SetWhiteListBody{QueryId: queryId}
	if body.User, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	flag, err := s.ReadInt(32)
	if err != nil {
		return nil, err
	}
	body.Flag = int32(flag)
	return body, nil
}

type SetMinterBody struct {
	QueryId uint64
	Minter  tongo.AccountID
}

func (body *SetMinterBody) Opcode() uint32 { return domain.OpSetMinter }

func (body *SetMinterBody) ToCell() (*boc.Cell, error) {
	b := header(domain.OpSetMinter, body.QueryId)
	b.WriteAddress(&body.Minter)
	return b.Cell()
}

func ParseSetMinterBody(c *boc.Cell) (*SetMinterBody, error) {
	s, queryId, err := readHeader(c, domain.OpSetMinter)
	if err != nil {
		return nil, err
	}
	body := &SetMinterBody{QueryId: queryId}
	body.Minter, err = s.ReadRequiredAddress()
	return body, err
}
