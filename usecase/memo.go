package usecase

import (
	"jetton/domain"
	"time"
)

const (
	AuditMemoKey = "audit"
)

type MemoStore interface {
	Save(key string, memo domain.Memorable, at time.Time) (*domain.Memo, error)
	Load(key string) (*domain.Memo, error)
}

type MemoInteractor struct {
	memoRepository MemoStore
}

func NewMemoInteractor(memoRepository MemoStore) *MemoInteractor {
	interactor := &MemoInteractor{
		memoRepository: memoRepository,
	}
	return interactor
}

// GetAuditMemo returns the zero memo when no audit was stored yet.
func (interactor *MemoInteractor) GetAuditMemo() (*domain.AuditMemo, error) {
	var auditMemo domain.AuditMemo
	memo, err := interactor.memoRepository.Load(AuditMemoKey)
	if err != nil || memo == nil {
		return &auditMemo, err
	}

	err = auditMemo.FromJson(memo.Memo)
	return &auditMemo, err
}

func (interactor *MemoInteractor) SetAuditMemo(auditMemo *domain.AuditMemo) error {
	_, err := interactor.memoRepository.Save(AuditMemoKey, auditMemo, time.Now())
	return err
}
