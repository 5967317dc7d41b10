package domain

import (
	"fmt"
	"jetton/domain/util"
	"strings"
	"time"

	"github.com/tonkeeper/tongo/tlb"
)

const (
	StepMint           = "mint"
	StepTransfer       = "transfer"
	StepBurn           = "burn"
	StepWhiteList      = "whitelist"
	StepAdvance        = "advance"
	StepProvideAddress = "provide_wallet_address"
	StepChangeAdmin    = "change_admin"
	StepChangeAntiBot  = "change_anti_bot"
	StepFund           = "fund"
)

var ErrorUnknownStep = fmt.Errorf("unknown scenario action")

// ScenarioStep is one entry of the 'scenario' configuration list. Addresses may be
// principal names. Amount is in jettons, Value and Forward in TON.
type ScenarioStep struct {
	Action  string `mapstructure:"action" json:"action"`
	From    string `mapstructure:"from" json:"from,omitempty"`
	To      string `mapstructure:"to" json:"to,omitempty"`
	Amount  string `mapstructure:"amount" json:"amount,omitempty"`
	Forward string `mapstructure:"forward" json:"forward,omitempty"`
	Value   string `mapstructure:"value" json:"value,omitempty"`
	Flag    int32  `mapstructure:"flag" json:"flag,omitempty"`
	Advance string `mapstructure:"advance" json:"advance,omitempty"`
	Expect  string `mapstructure:"expect" json:"expect,omitempty"`
}

func (step ScenarioStep) Validate() error {
	switch strings.ToLower(step.Action) {
	case StepMint, StepTransfer, StepBurn:
		if _, err := ParseAmount(step.Amount, util.JettonDecimals); err != nil {
			return err
		}
	case StepAdvance:
		if _, err := time.ParseDuration(step.Advance); err != nil {
			return err
		}
		return nil
	case StepWhiteList, StepProvideAddress, StepChangeAdmin, StepChangeAntiBot, StepFund:
	default:
		return fmt.Errorf("%w '%v'", ErrorUnknownStep, step.Action)
	}
	if _, _, err := step.Expected(); err != nil {
		return err
	}
	if _, err := step.ValueGrams(0); err != nil {
		return err
	}
	_, err := step.ForwardGrams()
	return err
}

// ValueGrams is the attached TON value, or fallback when the step leaves it empty.
func (step ScenarioStep) ValueGrams(fallback tlb.Grams) (tlb.Grams, error) {
	return parseTon(step.Value, fallback)
}

func (step ScenarioStep) ForwardGrams() (tlb.Grams, error) {
	return parseTon(step.Forward, 0)
}

// Expected is the exit code the step must end with, when the step names one.
func (step ScenarioStep) Expected() (ExitCode, bool, error) {
	if strings.TrimSpace(step.Expect) == "" {
		return ExitOk, false, nil
	}
	code, err := ParseExitCode(step.Expect)
	return code, err == nil, err
}

func (step ScenarioStep) AdvanceSeconds() uint64 {
	d, _ := time.ParseDuration(step.Advance)
	return uint64(d / time.Second)
}

func parseTon(s string, fallback tlb.Grams) (tlb.Grams, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	v, err := ParseAmount(s, 9)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, ErrorAmountOverflow
	}
	return tlb.Grams(v.Uint64()), nil
}

func TonToGrams(ton string) tlb.Grams {
	v, err := parseTon(ton, 0)
	if err != nil {
		panic(err)
	}
	return v
}
