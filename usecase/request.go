package usecase

import (
	"fmt"
	"jetton/domain"
	"jetton/interface/exporter"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrorInvalidRequestKind = fmt.Errorf("request kind cannot be queued")

type RequestStore interface {
	Insert(request domain.LedgerRequest) (*domain.LedgerRequest, error)
	Find(id string) (*domain.LedgerRequest, error)
	FindAllTriable(maxRetry int) ([]domain.LedgerRequest, error)
	SetState(id string, state string) error
	SetRetrying(id string, timestamp time.Time) error
	SetProcessed(id string, state string, exitCode int32, traceId string, timestamp time.Time) error
}

// RequestInteractor runs the queued ledger requests. A request the ledger aborted is
// final ('failed'); a request that could not be submitted goes to 'error' and is
// retried until max_retry.
type RequestInteractor struct {
	ledger            *LedgerInteractor
	journalInteractor *JournalInteractor
	requestRepository RequestStore
}

func NewRequestInteractor(ledger *LedgerInteractor,
	journalInteractor *JournalInteractor,
	requestRepository RequestStore) *RequestInteractor {
	return &RequestInteractor{
		ledger:            ledger,
		journalInteractor: journalInteractor,
		requestRepository: requestRepository,
	}
}

func (interactor *RequestInteractor) Enqueue(kind, sender string, payload domain.RequestPayload) (*domain.LedgerRequest, error) {
	request := domain.LedgerRequest{
		Id:         uuid.NewString(),
		Kind:       strings.ToLower(strings.TrimSpace(kind)),
		Sender:     sender,
		Payload:    payload,
		State:      domain.RequestStateNew,
		CreateTime: time.Now(),
	}
	if request.Kind == domain.StepAdvance {
		return nil, ErrorInvalidRequestKind
	}
	if err := request.Step().Validate(); err != nil {
		return nil, err
	}

	result, err := interactor.requestRepository.Insert(request)
	if err != nil {
		exporter.IncErrorCount()
		log.Printf("🔴 inserting request - %v\n", err.Error())
		return nil, err
	}
	return result, nil
}

func (interactor *RequestInteractor) Find(id string) (*domain.LedgerRequest, error) {
	return interactor.requestRepository.Find(id)
}

// ProcessTriable applies the pending requests in creation order and returns how many reached a final state.
func (interactor *RequestInteractor) ProcessTriable(maxRetry int) (int, error) {
	requests, err := interactor.requestRepository.FindAllTriable(maxRetry)
	if err != nil {
		exporter.IncErrorCount()
		log.Printf("🔴 loading requests - %v\n", err.Error())
		return 0, err
	}

	processed := 0
	for i := range requests {
		if interactor.process(&requests[i]) {
			processed++
		}
	}
	return processed, nil
}

func (interactor *RequestInteractor) process(request *domain.LedgerRequest) bool {
	if err := interactor.requestRepository.SetRetrying(request.Id, time.Now()); err != nil {
		// another processor took it
		log.Printf("🟡 taking request %v - %v\n", request.Id, err.Error())
		return false
	}

	trace, err := interactor.ledger.Apply(request.Step())
	if err != nil {
		exporter.IncErrorCount()
		exporter.ObserveRequest(request.Kind, domain.RequestStateError)
		log.Printf("🔴 applying request %v [%v] - %v\n", request.Id, request.Kind, err.Error())
		if err := interactor.requestRepository.SetState(request.Id, domain.RequestStateError); err != nil {
			log.Printf("🔴 setting request %v state - %v\n", request.Id, err.Error())
		}
		return false
	}

	state, code, traceId := domain.RequestStateDone, domain.ExitOk, ""
	if trace != nil {
		if err := interactor.journalInteractor.Record(trace); err != nil {
			log.Printf("⚠️ request %v is applied but its journal is incomplete\n", request.Id)
		}
		traceId = trace.Id
		code = trace.FirstExitCode()
		if !code.IsOk() {
			state = domain.RequestStateFailed
		}
	}

	exporter.ObserveRequest(request.Kind, state)
	if err := interactor.requestRepository.SetProcessed(request.Id, state, int32(code), traceId, time.Now()); err != nil {
		exporter.IncErrorCount()
		log.Printf("🔴 setting request %v processed - %v\n", request.Id, err.Error())
		return false
	}

	if state == domain.RequestStateDone {
		log.Printf("✅ request %v [%v] done\n", request.Id, request.Kind)
	} else {
		log.Printf("❌ request %v [%v] exited with %v\n", request.Id, request.Kind, code)
	}
	return true
}
