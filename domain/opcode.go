package domain

import "fmt"

const (
	OpTransfer             = uint32(0x0f8a7ea5)
	OpTransferNotification = uint32(0x7362d09c)
	OpInternalTransfer     = uint32(0x178d4519)
	OpExcesses             = uint32(0xd53276db)
	OpBurn                 = uint32(0x595f07bc)
	OpBurnNotification     = uint32(0x7bdd97de)
	OpProvideWalletAddress = uint32(0x2c76b973)
	OpTakeWalletAddress    = uint32(0xd1735400)

	OpMint          = uint32(21)
	OpChangeAdmin   = uint32(3)
	OpChangeContent = uint32(4)
	OpChangeAntiBot = uint32(5)

	OpPreTransferCheck = uint32(961)
	OpExecuteTransfer  = uint32(962)
	OpUpdateWhiteList  = uint32(963)
	OpSetWhiteList     = uint32(964)
	OpSetMinter        = uint32(965)

	// Prefix of every bounced message body.
	OpBounced = uint32(0xffffffff)
)

var opNames = map[uint32]string{
	OpTransfer:             "transfer",
	OpTransferNotification: "transfer_notification",
	OpInternalTransfer:     "internal_transfer",
	OpExcesses:             "excesses",
	OpBurn:                 "burn",
	OpBurnNotification:     "burn_notification",
	OpProvideWalletAddress: "provide_wallet_address",
	OpTakeWalletAddress:    "take_wallet_address",
	OpMint:                 "mint",
	OpChangeAdmin:          "change_admin",
	OpChangeContent:        "change_content",
	OpChangeAntiBot:        "change_anti_bot",
	OpPreTransferCheck:     "pre_transfer_check",
	OpExecuteTransfer:      "execute_transfer",
	OpUpdateWhiteList:      "update_white_list",
	OpSetWhiteList:         "set_white_list",
	OpSetMinter:            "set_minter",
	OpBounced:              "bounced",
}

func OpName(op uint32) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", op)
}
