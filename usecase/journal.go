package usecase

import (
	"jetton/domain"
	"jetton/interface/exporter"
	"log"
)

type JournalStore interface {
	InsertAll(entries []domain.JournalEntry) error
	FindByTrace(traceId string) ([]domain.JournalEntry, error)
}

// JournalInteractor persists the transactions of executed traces and feeds the metrics.
// Without a store it only counts.
type JournalInteractor struct {
	store JournalStore
}

func NewJournalInteractor(store JournalStore) *JournalInteractor {
	return &JournalInteractor{
		store: store,
	}
}

func (interactor *JournalInteractor) Record(traces ...*domain.Trace) error {
	for _, trace := range traces {
		if trace == nil {
			continue
		}

		entries := make([]domain.JournalEntry, 0, len(trace.Transactions))
		for _, tx := range trace.Transactions {
			exporter.ObserveTransaction(tx)
			entries = append(entries, tx.ToJournalEntry())
		}

		if interactor.store == nil {
			continue
		}
		if err := interactor.store.InsertAll(entries); err != nil {
			exporter.IncErrorCount()
			log.Printf("🔴 storing journal of trace %v - %v\n", trace.Id, err.Error())
			return err
		}
	}
	return nil
}

func (interactor *JournalInteractor) Trace(traceId string) ([]domain.JournalEntry, error) {
	if interactor.store == nil {
		return nil, nil
	}
	return interactor.store.FindByTrace(traceId)
}
