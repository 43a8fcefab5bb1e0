// internal/service/card_service_test.go
package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

func saveCards(t *testing.T, h *ledgerHarness, accountID string, refs ...string) []*domain.PaymentMethod {
	t.Helper()
	var saved []*domain.PaymentMethod
	for _, ref := range refs {
		h.processor.addCard(ref, "visa", "4242")
		pm, err := h.cards.SaveCard(context.Background(), accountID, ref)
		require.NoError(t, err)
		saved = append(saved, pm)
	}
	return saved
}

func TestSaveCard(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstCardBecomesDefault", func(t *testing.T) {
		h := newLedgerHarness()
		account := h.store.addAccount("cards@example.com")

		saved := saveCards(t, h, account.ID, "pm_1", "pm_2")
		assert.True(t, saved[0].IsDefault)
		assert.False(t, saved[1].IsDefault)
		assert.Equal(t, "visa", saved[0].Brand)
		assert.Equal(t, "4242", saved[0].Last4)
		assert.Equal(t, []string{saved[0].ID}, h.store.defaultCards(account.ID))

		card, err := h.processor.GetPaymentMethod(ctx, "pm_1")
		require.NoError(t, err)
		assert.NotEmpty(t, card.CustomerID, "card is attached to the account's customer")
	})

	t.Run("DuplicateIsConflict", func(t *testing.T) {
		h := newLedgerHarness()
		account := h.store.addAccount("cards@example.com")
		saveCards(t, h, account.ID, "pm_1")

		_, err := h.cards.SaveCard(ctx, account.ID, "pm_1")
		assert.ErrorIs(t, err, util.ErrConflict)
	})

	t.Run("UnknownPaymentMethod", func(t *testing.T) {
		h := newLedgerHarness()
		account := h.store.addAccount("cards@example.com")

		_, err := h.cards.SaveCard(ctx, account.ID, "pm_missing")
		assert.ErrorIs(t, err, util.ErrInvalidInput)

		_, err = h.cards.SaveCard(ctx, account.ID, "")
		assert.ErrorIs(t, err, util.ErrInvalidInput)
	})

	t.Run("CardOfAnotherCustomer", func(t *testing.T) {
		h := newLedgerHarness()
		account := h.store.addAccount("cards@example.com")
		h.processor.addCard("pm_x", "visa", "1111")
		h.processor.cards["pm_x"].CustomerID = "cus_other"

		_, err := h.cards.SaveCard(ctx, account.ID, "pm_x")
		assert.ErrorIs(t, err, util.ErrConflict)
	})
}

func TestSetDefaultCard(t *testing.T) {
	ctx := context.Background()
	h := newLedgerHarness()
	account := h.store.addAccount("cards@example.com")
	other := h.store.addAccount("other@example.com")
	saved := saveCards(t, h, account.ID, "pm_1", "pm_2", "pm_3")
	foreign := saveCards(t, h, other.ID, "pm_foreign")

	chosen, err := h.cards.SetDefaultCard(ctx, account.ID, saved[2].ID)
	require.NoError(t, err)
	assert.True(t, chosen.IsDefault)
	assert.Equal(t, []string{saved[2].ID}, h.store.defaultCards(account.ID))

	cards, err := h.cards.ListCards(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, saved[2].ID, cards[0].ID, "default card is listed first")

	_, err = h.cards.SetDefaultCard(ctx, account.ID, foreign[0].ID)
	assert.ErrorIs(t, err, util.ErrCardNotFound)
	assert.Equal(t, []string{foreign[0].ID}, h.store.defaultCards(other.ID))

	_, err = h.cards.SetDefaultCard(ctx, account.ID, "missing")
	assert.ErrorIs(t, err, util.ErrCardNotFound)
	assert.Equal(t, []string{saved[2].ID}, h.store.defaultCards(account.ID))
}

func TestDeleteCard(t *testing.T) {
	ctx := context.Background()

	t.Run("DeletingDefaultPromotesOldestRemaining", func(t *testing.T) {
		h := newLedgerHarness()
		account := h.store.addAccount("cards@example.com")
		saved := saveCards(t, h, account.ID, "pm_1", "pm_2", "pm_3")

		require.NoError(t, h.cards.DeleteCard(ctx, account.ID, saved[0].ID))
		assert.Equal(t, []string{saved[1].ID}, h.store.defaultCards(account.ID))
		assert.Contains(t, h.processor.detached, "pm_1")
	})

	t.Run("DeletingNonDefaultKeepsDefault", func(t *testing.T) {
		h := newLedgerHarness()
		account := h.store.addAccount("cards@example.com")
		saved := saveCards(t, h, account.ID, "pm_1", "pm_2")

		require.NoError(t, h.cards.DeleteCard(ctx, account.ID, saved[1].ID))
		assert.Equal(t, []string{saved[0].ID}, h.store.defaultCards(account.ID))
	})

	t.Run("DeletingLastCardLeavesNone", func(t *testing.T) {
		h := newLedgerHarness()
		account := h.store.addAccount("cards@example.com")
		saved := saveCards(t, h, account.ID, "pm_1")

		require.NoError(t, h.cards.DeleteCard(ctx, account.ID, saved[0].ID))
		cards, err := h.cards.ListCards(ctx, account.ID)
		require.NoError(t, err)
		assert.Empty(t, cards)
	})

	t.Run("ForeignCardNotFound", func(t *testing.T) {
		h := newLedgerHarness()
		account := h.store.addAccount("cards@example.com")
		other := h.store.addAccount("other@example.com")
		foreign := saveCards(t, h, other.ID, "pm_f")

		err := h.cards.DeleteCard(ctx, account.ID, foreign[0].ID)
		assert.ErrorIs(t, err, util.ErrCardNotFound)
		assert.Empty(t, h.processor.detached)
	})
}

func TestDeleteCardDetachFailureKeepsCard(t *testing.T) {
	ctx := context.Background()
	mockExecutor := new(MockDBExecutor)
	mockAccountRepo := new(MockAccountRepository)
	mockCardRepo := new(MockPaymentMethodRepository)
	mockProcessor := new(MockProcessor)
	mockTxController := new(MockTxController)
	svc := NewCardService(new(MockDBBeginner), mockExecutor, mockAccountRepo, mockCardRepo, mockProcessor, nil, mockTxFuncs(mockTxController))

	card := &domain.PaymentMethod{ID: "card-1", AccountID: "acc-1", ExternalRef: "pm_1", IsDefault: true}
	mockCardRepo.On("GetPaymentMethodByID", ctx, mockExecutor, "card-1").Return(card, nil).Once()
	mockProcessor.On("DetachPaymentMethod", ctx, "pm_1").Return(errors.New("stripe down")).Once()

	err := svc.DeleteCard(ctx, "acc-1", "card-1")
	assert.ErrorIs(t, err, util.ErrUpstream)
	mockCardRepo.AssertNotCalled(t, "DeletePaymentMethod", mock.Anything, mock.Anything, mock.Anything)
	mockTxController.AssertNotCalled(t, "Commit")
}

// MockPaymentMethodRepository is a mock implementation of repository.PaymentMethodRepository.
type MockPaymentMethodRepository struct {
	mock.Mock
}

func (m *MockPaymentMethodRepository) CreatePaymentMethod(ctx context.Context, q repository.DBExecutor, pm *domain.PaymentMethod) error {
	return m.Called(ctx, q, pm).Error(0)
}

func (m *MockPaymentMethodRepository) GetPaymentMethodByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.PaymentMethod, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) ListPaymentMethodsByAccount(ctx context.Context, q repository.DBExecutor, accountID string) ([]domain.PaymentMethod, error) {
	args := m.Called(ctx, q, accountID)
	return args.Get(0).([]domain.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) CountPaymentMethodsByAccount(ctx context.Context, q repository.DBExecutor, accountID string) (int, error) {
	args := m.Called(ctx, q, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentMethodRepository) DeletePaymentMethod(ctx context.Context, q repository.DBExecutor, id string) error {
	return m.Called(ctx, q, id).Error(0)
}

func (m *MockPaymentMethodRepository) ClearDefaultPaymentMethods(ctx context.Context, q repository.DBExecutor, accountID string) error {
	return m.Called(ctx, q, accountID).Error(0)
}

func (m *MockPaymentMethodRepository) SetDefaultPaymentMethod(ctx context.Context, q repository.DBExecutor, id string) error {
	return m.Called(ctx, q, id).Error(0)
}

func (m *MockPaymentMethodRepository) FirstRemainingPaymentMethod(ctx context.Context, q repository.DBExecutor, accountID string) (*domain.PaymentMethod, error) {
	args := m.Called(ctx, q, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentMethod), args.Error(1)
}
