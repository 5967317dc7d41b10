package cmd

import (
	"database/sql"
	"jetton/domain"
	"jetton/domain/contract"
	"jetton/infrastructure/dbhandler"
	"jetton/infrastructure/logger"
	"jetton/infrastructure/sandbox"
	"jetton/interface/repository"
	"jetton/usecase"
	"log"
	"strings"
	"time"

	"github.com/tonkeeper/tongo/liteapi"
	"github.com/tonkeeper/tongo/wallet"
	"go.uber.org/zap"
)

// Value credited to the configured principals so that they can pay for their messages.
var principalFunding = domain.TonToGrams("1000")

// ledgerDependencyInject builds and deploys the sandbox ledger from the configuration.
func ledgerDependencyInject() {
	var err error
	zapLogger, err = logger.New(domain.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}

	now := uint64(time.Now().Unix())
	ledgerSandbox = sandbox.New(domain.GetFeeSchedule(), contract.DefaultRegistry(), zapLogger, now)
	ledgerInteractor = usecase.NewLedgerInteractor(ledgerSandbox)

	admin := domain.GetAdminAccountId()
	antiBotOwner := domain.GetAntiBotOwnerAccountId()
	ledgerInteractor.Fund(admin, principalFunding)
	if antiBotOwner != admin {
		ledgerInteractor.Fund(antiBotOwner, principalFunding)
	}

	_, err = ledgerInteractor.Deploy(usecase.DeployParams{
		Admin:        admin,
		AntiBotOwner: antiBotOwner,
		Mode:         domain.GetPolicyMode(),
		Limits:       domain.GetPolicyLimits(now),
		Content:      domain.NewOffChainMetadata(domain.GetContentUri()),
	})
	if err != nil {
		log.Fatalf("Unable to deploy the ledger - %v\n", err.Error())
	}
}

// defaultDependencyInject wires the service: database, repositories and the use cases over the ledger.
func defaultDependencyInject() {
	var err error
	dbURI := domain.GetDbUri()
	dbPool, err = sql.Open("postgres", dbURI)
	if err != nil {
		log.Fatal(err)
	}
	dbPool.SetMaxOpenConns(20)
	dbPool.SetMaxIdleConns(5)
	dbPool.SetConnMaxIdleTime(1 * time.Minute)
	dbPool.SetConnMaxLifetime(4 * time.Hour)

	dbHandler := dbhandler.DBHandler{DB: dbPool, MaxRetry: domain.GetMaxRetry()}
	if err = repository.EnsureSchema(dbHandler); err != nil {
		log.Fatalf("Unable to prepare the database - %v\n", err.Error())
	}

	journalRepository = repository.NewJournalRepository(dbHandler)
	requestRepository := repository.NewRequestRepository(dbHandler)
	memoRepository := repository.NewMemoRepository(dbHandler)

	memoInteractor = usecase.NewMemoInteractor(memoRepository)
	journalInteractor = usecase.NewJournalInteractor(journalRepository)
	requestInteractor = usecase.NewRequestInteractor(ledgerInteractor, journalInteractor, requestRepository)
	auditInteractor = usecase.NewAuditInteractor(ledgerInteractor, memoInteractor)
}

// networkDependencyInject connects to the configured live network, and to the driver wallet when a mnemonic is set.
func networkDependencyInject() {
	var err error
	switch strings.ToLower(domain.GetNetwork()) {
	case domain.MainNetwork:
		tongoClient, err = liteapi.NewClientWithDefaultMainnet()
	case domain.TestNetwork:
		tongoClient, err = liteapi.NewClientWithDefaultTestnet()
	default:
		log.Fatalf("⛔️ Configuration paramet 'network' must be either 'mainnet' or 'testnet' only.")
	}

	if err != nil {
		log.Fatal("Unable to create tongo client: ", err)
	}

	chainInteractor = usecase.NewChainInteractor(tongoClient)

	if !domain.HasDriverWallet() {
		return
	}
	driverWallet, err = wallet.New(domain.GetDriverWalletPrivateKey(), wallet.V4R2, 0, nil, tongoClient)
	if err != nil {
		log.Fatalf("Unable to connect to driver wallet - %v\n", err.Error())
	}
	messengerInteractor = usecase.NewMessengerInteractor(tongoClient, &driverWallet)
}

var dbPool *sql.DB
var zapLogger *zap.Logger
var ledgerSandbox *sandbox.Sandbox
var tongoClient *liteapi.Client
var driverWallet wallet.Wallet
var journalRepository *repository.JournalRepository
var ledgerInteractor *usecase.LedgerInteractor
var journalInteractor *usecase.JournalInteractor
var requestInteractor *usecase.RequestInteractor
var auditInteractor *usecase.AuditInteractor
var memoInteractor *usecase.MemoInteractor
var chainInteractor *usecase.ChainInteractor
var messengerInteractor *usecase.MessengerInteractor
