package domain

import (
	"crypto/ed25519"
	"fmt"
	"jetton/domain/util"
	"log"
	"math/big"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/wallet"
)

const (
	MainNetwork = "mainnet"
	TestNetwork = "testnet"
)

var (
	ErrorInvalidNetwork = fmt.Errorf("network must be equal to 'mainnet' or 'testnet' only")

	ErrorMnemonicConflict    = fmt.Errorf("only one of mnemonic or mnemonic_url must be defined")
	ErrorReadingMnemonicFile = fmt.Errorf("error in reading mnemonic file")

	ErrorInvalidProcessInterval = fmt.Errorf("invalid time interval for request processing")
	ErrorInvalidAuditInterval   = fmt.Errorf("invalid time interval for audit process")

	ErrorInvalidPolicyMode   = fmt.Errorf("anti_bot.policy_mode must be equal to 'embedded' or 'external' only")
	ErrorInvalidAntiBotLimit = fmt.Errorf("invalid anti-bot limit")
	ErrorInvalidAntiBotTime  = fmt.Errorf("invalid anti-bot time setting")
	ErrorInvalidFee          = fmt.Errorf("invalid fee setting")

	ErrorInvalidMinterAddress = fmt.Errorf("invalid minter address")
	ErrorInvalidAdminAddress  = fmt.Errorf("invalid admin address")
	ErrorInvalidAntiBotOwner  = fmt.Errorf("invalid anti-bot owner address")
	ErrorInvalidScenario      = fmt.Errorf("invalid scenario")
)

var (
	TrailingSlashRE = regexp.MustCompile("/+$")
)

var (
	dbUri       string
	network     string
	logLevel    string
	metricsAddr string

	mnemonic               string
	mnemonic_url           string
	driverWalletPrivateKey ed25519.PrivateKey

	minterAddress   string
	minterAccountId *tongo.AccountID

	adminAccountId        tongo.AccountID
	antiBotOwnerAccountId tongo.AccountID
	contentUri            string

	fees         FeeSchedule
	policyMode   PolicyMode
	policyLimits PolicyLimits
	disableAfter time.Duration

	processInterval time.Duration
	auditInterval   time.Duration
	maxRetry        int

	scenario []ScenarioStep
)

func init() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("network", TestNetwork)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("metrics_addr", ":9090")
	viper.SetDefault("ledger.admin", "admin")
	viper.SetDefault("ledger.anti_bot_owner", "admin")
	viper.SetDefault("fees.forward_fee", uint64(DefaultFeeSchedule().ForwardFee))
	viper.SetDefault("fees.compute_fee", uint64(DefaultFeeSchedule().ComputeFee))
	viper.SetDefault("anti_bot.policy_mode", string(PolicyEmbedded))
	viper.SetDefault("anti_bot.per_trade", "1")
	viper.SetDefault("anti_bot.per_block", "1000")
	viper.SetDefault("anti_bot.block_interval", "5s")
	viper.SetDefault("anti_bot.time_limit", "10s")
	viper.SetDefault("anti_bot.disable_after", "1h")
	viper.SetDefault("process_interval", "10s")
	viper.SetDefault("audit_interval", "1m")
	viper.SetDefault("max_retry", 3)
}

func ReadConfig(filePath string) {
	viper.SetConfigFile(filePath)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("⚠️ Failed reading config file: %v\n", err.Error())
	}

	err := initializeVariables()
	if err != nil {
		log.Fatalf("Configuration error - %v\n", err.Error())
	}
}

// This method processes the configuration parameters and keeps the processed values
// in some variables for later accesses rapidly.
func initializeVariables() error {
	var err error

	// Database stuff
	dbUri = TrailingSlashRE.ReplaceAllString(viper.GetString("service_db_uri"), "")

	// Network stuff
	network = strings.TrimSpace(strings.ToLower(viper.GetString("network")))
	if strings.Compare(network, MainNetwork) != 0 && strings.Compare(network, TestNetwork) != 0 {
		return ErrorInvalidNetwork
	}

	logLevel = strings.TrimSpace(strings.ToLower(viper.GetString("log_level")))
	metricsAddr = strings.TrimSpace(viper.GetString("metrics_addr"))

	// Live minter, used by inspect and send only
	minterAccountId = nil
	minterAddress = strings.TrimSpace(viper.GetString("minter_address"))
	if minterAddress != "" {
		accid, err := ParseAccountId(minterAddress)
		if err != nil {
			return ErrorInvalidMinterAddress
		}
		minterAccountId = &accid
	}

	// Driver wallet stuff, optional unless messages are sent to a live network
	mnemonic = strings.TrimSpace(viper.GetString("mnemonic"))
	mnemonic_url = strings.TrimSpace(viper.GetString("mnemonic_url"))
	if mnemonic != "" && mnemonic_url != "" {
		return ErrorMnemonicConflict
	}

	driverWalletPrivateKey = nil
	seed := mnemonic
	if mnemonic_url != "" {
		seed, err = readMnemonicFile(mnemonic_url)
		if err != nil {
			return ErrorReadingMnemonicFile
		}
	}
	if seed != "" {
		driverWalletPrivateKey, err = wallet.SeedToPrivateKey(strings.TrimSpace(seed))
		if err != nil {
			log.Printf("Failed to get private key - %v\n", err.Error())
			return err
		}
	}

	// Ledger principals
	adminAccountId, err = ResolveAccountId(viper.GetString("ledger.admin"))
	if err != nil {
		return ErrorInvalidAdminAddress
	}
	antiBotOwnerAccountId, err = ResolveAccountId(viper.GetString("ledger.anti_bot_owner"))
	if err != nil {
		return ErrorInvalidAntiBotOwner
	}
	contentUri = strings.TrimSpace(viper.GetString("ledger.content_uri"))

	//---------------------------------------------------------------
	// fees
	forwardFee := viper.GetUint64("fees.forward_fee")
	computeFee := viper.GetUint64("fees.compute_fee")
	if forwardFee == 0 || computeFee == 0 {
		return ErrorInvalidFee
	}
	fees = FeeSchedule{ForwardFee: tlb.Grams(forwardFee), ComputeFee: tlb.Grams(computeFee)}

	//---------------------------------------------------------------
	// anti-bot
	policyMode = PolicyMode(strings.TrimSpace(strings.ToLower(viper.GetString("anti_bot.policy_mode"))))
	if policyMode != PolicyEmbedded && policyMode != PolicyExternal {
		return ErrorInvalidPolicyMode
	}

	var perTrade, perBlock *big.Int
	perTrade, err = ParseAmount(viper.GetString("anti_bot.per_trade"), util.JettonDecimals)
	if err != nil {
		return fmt.Errorf("%w: per_trade - %v", ErrorInvalidAntiBotLimit, err)
	}
	perBlock, err = ParseAmount(viper.GetString("anti_bot.per_block"), util.JettonDecimals)
	if err != nil {
		return fmt.Errorf("%w: per_block - %v", ErrorInvalidAntiBotLimit, err)
	}

	var blockInterval, timeLimit time.Duration
	if blockInterval, err = time.ParseDuration(viper.GetString("anti_bot.block_interval")); err != nil || blockInterval < 0 {
		return fmt.Errorf("%w: block_interval", ErrorInvalidAntiBotTime)
	}
	if timeLimit, err = time.ParseDuration(viper.GetString("anti_bot.time_limit")); err != nil || timeLimit < 0 {
		return fmt.Errorf("%w: time_limit", ErrorInvalidAntiBotTime)
	}
	if disableAfter, err = time.ParseDuration(viper.GetString("anti_bot.disable_after")); err != nil || disableAfter < 0 {
		return fmt.Errorf("%w: disable_after", ErrorInvalidAntiBotTime)
	}

	policyLimits = PolicyLimits{
		PerTrade:      perTrade,
		PerBlock:      perBlock,
		BlockInterval: uint64(blockInterval / time.Second),
		TimeLimit:     uint64(timeLimit / time.Second),
	}

	//---------------------------------------------------------------
	// process interval
	strValue := viper.GetString("process_interval")
	processInterval, err = time.ParseDuration(strValue)
	if err != nil || processInterval <= 0 {
		return ErrorInvalidProcessInterval
	}

	//---------------------------------------------------------------
	// audit interval
	strValue = viper.GetString("audit_interval")
	auditInterval, err = time.ParseDuration(strValue)
	if err != nil || auditInterval <= 0 {
		return ErrorInvalidAuditInterval
	}

	maxRetry = viper.GetInt("max_retry")

	//---------------------------------------------------------------
	// scenario
	scenario = nil
	if err = viper.UnmarshalKey("scenario", &scenario); err != nil {
		return fmt.Errorf("%w - %v", ErrorInvalidScenario, err)
	}
	for i, step := range scenario {
		if err = step.Validate(); err != nil {
			return fmt.Errorf("%w: step %v - %v", ErrorInvalidScenario, i+1, err)
		}
	}

	return nil
}

func readMnemonicFile(filePath string) (string, error) {

	fileContent, err := os.ReadFile(filePath)
	if err != nil {
		log.Printf("Failed to read mmnemonic file - %v\n", err.Error())
		return "", err
	}

	// Convert []byte to string
	content := string(fileContent)
	return content, nil
}

//-------------------------------------------------------------------
// Normal configuration values

func GetDbUri() string {
	return dbUri
}

func GetNetwork() string {
	return network
}

func GetLogLevel() string {
	return logLevel
}

func GetMetricsAddr() string {
	return metricsAddr
}

func GetMinterAccountId() *tongo.AccountID {
	return minterAccountId
}

func GetDriverWalletPrivateKey() ed25519.PrivateKey {
	return driverWalletPrivateKey
}

func GetAdminAccountId() tongo.AccountID {
	return adminAccountId
}

func GetAntiBotOwnerAccountId() tongo.AccountID {
	return antiBotOwnerAccountId
}

func GetContentUri() string {
	return contentUri
}

func GetFeeSchedule() FeeSchedule {
	return fees
}

func GetPolicyMode() PolicyMode {
	return policyMode
}

func GetDisableAfter() time.Duration {
	return disableAfter
}

func GetProcessInterval() time.Duration {
	return processInterval
}

func GetAuditInterval() time.Duration {
	return auditInterval
}

func GetMaxRetry() int {
	return maxRetry
}

func GetScenario() []ScenarioStep {
	return scenario
}

//-------------------------------------------------------------------
// Processed values

// GetPolicyLimits returns the configured limits with the disable time counted from now.
func GetPolicyLimits(now uint64) PolicyLimits {
	res := policyLimits
	res.PerTrade = new(big.Int).Set(policyLimits.PerTrade)
	res.PerBlock = new(big.Int).Set(policyLimits.PerBlock)
	res.DisableTime = now + uint64(disableAfter/time.Second)
	return res
}

// -------------------------------------------------------------------
// Evaluating values

func IsTestNet() bool {
	return strings.Compare(network, TestNetwork) == 0
}

func HasDriverWallet() bool {
	return driverWalletPrivateKey != nil
}
