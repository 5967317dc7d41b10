package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ExitCode is the numeric abort code of a transaction, as reported by the substrate.
type ExitCode int32

const (
	ExitOk               ExitCode = 0
	ExitAmountOverflow   ExitCode = 5
	ExitMalformedRecord  ExitCode = 9
	ExitComputeFunds     ExitCode = 13
	ExitActionPhase      ExitCode = 37
	ExitNotAdmin         ExitCode = 73
	ExitUnauthorizedBurn ExitCode = 74
	ExitDiscoveryFee     ExitCode = 75
	ExitWrongWorkchain   ExitCode = 333
	ExitNotOwner         ExitCode = 705
	ExitBalanceError     ExitCode = 706
	ExitNotEnoughGas     ExitCode = 707
	ExitInvalidSender    ExitCode = 708
	ExitNotEnoughTon     ExitCode = 709
	ExitInvalidForward   ExitCode = 710
	ExitNotAnAuthority   ExitCode = 900
	ExitPerTradeLimit    ExitCode = 901
	ExitPerBlockLimit    ExitCode = 902
	ExitTimeDilation     ExitCode = 903
	ExitNotAuthorized    ExitCode = 904
	ExitWrongOp          ExitCode = 0xffff
)

var exitLabels = map[ExitCode]string{
	ExitOk:               "Ok",
	ExitAmountOverflow:   "AmountOverflow",
	ExitMalformedRecord:  "MalformedRecord",
	ExitComputeFunds:     "ComputeFunds",
	ExitActionPhase:      "ActionPhase",
	ExitNotAdmin:         "NotAdmin",
	ExitUnauthorizedBurn: "UnauthorizedBurn",
	ExitDiscoveryFee:     "DiscoveryFeeNotMatched",
	ExitWrongWorkchain:   "WrongWorkchain",
	ExitNotOwner:         "NotOwner",
	ExitBalanceError:     "BalanceError",
	ExitNotEnoughGas:     "NotEnoughGas",
	ExitInvalidSender:    "InvalidSender",
	ExitNotEnoughTon:     "NotEnoughTon",
	ExitInvalidForward:   "InvalidForwardValue",
	ExitNotAnAuthority:   "NotAnAuthority",
	ExitPerTradeLimit:    "PerTradeLimitExceeded",
	ExitPerBlockLimit:    "PerBlockLimitExceeded",
	ExitTimeDilation:     "TimeDilationNotEnough",
	ExitNotAuthorized:    "NotAuthorized",
	ExitWrongOp:          "WrongOp",
}

func (c ExitCode) String() string {
	if label, ok := exitLabels[c]; ok {
		return label
	}
	return fmt.Sprintf("Exit(%d)", int32(c))
}

func (c ExitCode) IsOk() bool {
	return c == ExitOk
}

type ExitError struct {
	Code ExitCode
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("aborted with exit code %d (%v)", int32(e.Code), e.Code)
}

func Abort(code ExitCode) error {
	return &ExitError{Code: code}
}

// ExitCodeOf classifies an error returned while handling a message. Errors that
// carry no exit code come from record (de)serialization and map to MalformedRecord.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitOk
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitMalformedRecord
}

var ErrorUnknownExitCode = fmt.Errorf("unknown exit code")

// ParseExitCode accepts a label (case insensitive) or a decimal code.
func ParseExitCode(s string) (ExitCode, error) {
	s = strings.TrimSpace(s)
	for code, label := range exitLabels {
		if strings.EqualFold(label, s) {
			return code, nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w '%v'", ErrorUnknownExitCode, s)
	}
	return ExitCode(n), nil
}
