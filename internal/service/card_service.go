// internal/service/card_service.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

// CardService manages saved payment methods. Every change to which card is the
// default runs under a lock on the owning account row, so an account with cards
// always has exactly one default.
type CardService interface {
	CreateSetupIntent(ctx context.Context, accountID string) (*payment.SetupIntent, error)
	SaveCard(ctx context.Context, accountID, paymentMethodRef string) (*domain.PaymentMethod, error)
	ListCards(ctx context.Context, accountID string) ([]domain.PaymentMethod, error)
	SetDefaultCard(ctx context.Context, accountID, cardID string) (*domain.PaymentMethod, error)
	DeleteCard(ctx context.Context, accountID, cardID string) error
}

type cardService struct {
	tx          txRunner
	dbExecutor  repository.DBExecutor
	accountRepo repository.AccountRepository
	cardRepo    repository.PaymentMethodRepository
	processor   payment.Processor
	customers   customerLinker
	logger      *zap.Logger
}

// NewCardService creates a new instance of CardService.
func NewCardService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	accountRepo repository.AccountRepository,
	cardRepo repository.PaymentMethodRepository,
	processor payment.Processor,
	logger *zap.Logger,
	txFuncs TxFuncs,
) CardService {
	logger = componentLogger(logger, "cards")
	return &cardService{
		tx:          txRunner{dbBeginner: dbBeginner, funcs: txFuncs},
		dbExecutor:  dbExecutor,
		accountRepo: accountRepo,
		cardRepo:    cardRepo,
		processor:   processor,
		customers: customerLinker{
			dbExecutor:  dbExecutor,
			accountRepo: accountRepo,
			processor:   processor,
			logger:      logger,
		},
		logger: logger,
	}
}

func (s *cardService) getAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return account, nil
}

// CreateSetupIntent prepares the processor to collect a new card for the account.
func (s *cardService) CreateSetupIntent(ctx context.Context, accountID string) (*payment.SetupIntent, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	customerID, err := s.customers.ensure(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("create setup intent: %w", err)
	}

	setupIntent, err := s.processor.CreateSetupIntent(ctx, customerID)
	if err != nil {
		return nil, asUpstream("create setup intent", err)
	}
	return setupIntent, nil
}

// SaveCard records a processor payment method for the account. Display
// attributes are copied once here. The first card becomes the default.
func (s *cardService) SaveCard(ctx context.Context, accountID, paymentMethodRef string) (*domain.PaymentMethod, error) {
	if paymentMethodRef == "" {
		return nil, fmt.Errorf("payment_method_id is required: %w", util.ErrInvalidInput)
	}

	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	customerID, err := s.customers.ensure(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("save card: %w", err)
	}

	card, err := s.processor.GetPaymentMethod(ctx, paymentMethodRef)
	if err != nil {
		return nil, asUpstream("save card: get payment method", err)
	}
	switch card.CustomerID {
	case customerID:
	case "":
		if err := s.processor.AttachPaymentMethod(ctx, paymentMethodRef, customerID); err != nil {
			return nil, asUpstream("save card: attach payment method", err)
		}
	default:
		return nil, fmt.Errorf("payment method belongs to another customer: %w", util.ErrConflict)
	}

	var saved *domain.PaymentMethod
	err = s.tx.within(ctx, "save card", func(q repository.DBExecutor) error {
		if err := s.accountRepo.LockAccount(ctx, q, accountID); err != nil {
			return fmt.Errorf("save card: failed to lock account: %w", err)
		}
		count, err := s.cardRepo.CountPaymentMethodsByAccount(ctx, q, accountID)
		if err != nil {
			return fmt.Errorf("save card: %w", err)
		}

		pm := domain.NewPaymentMethod(accountID, card.ID, card.Brand, card.Last4, card.ExpMonth, card.ExpYear, count == 0)
		if err := s.cardRepo.CreatePaymentMethod(ctx, q, pm); err != nil {
			if util.IsError(err, util.ErrDuplicateEntry) {
				return fmt.Errorf("card is already saved: %w", util.ErrConflict)
			}
			return fmt.Errorf("save card: %w", err)
		}
		saved = pm
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Card saved",
		zap.String("account_id", accountID),
		zap.String("card_id", saved.ID),
		zap.Bool("is_default", saved.IsDefault),
	)
	return saved, nil
}

// ListCards returns the account's cards, default first.
func (s *cardService) ListCards(ctx context.Context, accountID string) ([]domain.PaymentMethod, error) {
	if _, err := s.getAccount(ctx, accountID); err != nil {
		return nil, err
	}
	cards, err := s.cardRepo.ListPaymentMethodsByAccount(ctx, s.dbExecutor, accountID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// ownedCard loads a card and hides cards of other accounts behind ErrCardNotFound.
func (s *cardService) ownedCard(ctx context.Context, q repository.DBExecutor, accountID, cardID string) (*domain.PaymentMethod, error) {
	if cardID == "" {
		return nil, fmt.Errorf("card id is required: %w", util.ErrInvalidInput)
	}
	pm, err := s.cardRepo.GetPaymentMethodByID(ctx, q, cardID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card %s: %w", cardID, err)
	}
	if pm.AccountID != accountID {
		return nil, util.ErrCardNotFound
	}
	return pm, nil
}

func (s *cardService) lockAccount(ctx context.Context, q repository.DBExecutor, accountID string) error {
	if err := s.accountRepo.LockAccount(ctx, q, accountID); err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return util.ErrAccountNotFound
		}
		return fmt.Errorf("failed to lock account %s: %w", accountID, err)
	}
	return nil
}

// SetDefaultCard clears the default flag on every card of the account and sets
// it on cardID, in one transaction.
func (s *cardService) SetDefaultCard(ctx context.Context, accountID, cardID string) (*domain.PaymentMethod, error) {
	var chosen *domain.PaymentMethod
	err := s.tx.within(ctx, "set default card", func(q repository.DBExecutor) error {
		if err := s.lockAccount(ctx, q, accountID); err != nil {
			return err
		}
		pm, err := s.ownedCard(ctx, q, accountID, cardID)
		if err != nil {
			return err
		}
		if err := s.cardRepo.ClearDefaultPaymentMethods(ctx, q, accountID); err != nil {
			return fmt.Errorf("set default card: %w", err)
		}
		if err := s.cardRepo.SetDefaultPaymentMethod(ctx, q, pm.ID); err != nil {
			return fmt.Errorf("set default card: %w", err)
		}
		pm.IsDefault = true
		chosen = pm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chosen, nil
}

// DeleteCard detaches the card at the processor and then removes it. If it was
// the default, the oldest remaining card takes over.
func (s *cardService) DeleteCard(ctx context.Context, accountID, cardID string) error {
	pm, err := s.ownedCard(ctx, s.dbExecutor, accountID, cardID)
	if err != nil {
		return err
	}

	if err := s.processor.DetachPaymentMethod(ctx, pm.ExternalRef); err != nil {
		return asUpstream("delete card: detach payment method", err)
	}

	err = s.tx.within(ctx, "delete card", func(q repository.DBExecutor) error {
		if err := s.lockAccount(ctx, q, accountID); err != nil {
			return err
		}
		current, err := s.ownedCard(ctx, q, accountID, cardID)
		if err != nil {
			return err
		}
		if err := s.cardRepo.DeletePaymentMethod(ctx, q, current.ID); err != nil {
			return fmt.Errorf("delete card: %w", err)
		}
		if !current.IsDefault {
			return nil
		}

		next, err := s.cardRepo.FirstRemainingPaymentMethod(ctx, q, accountID)
		if err != nil {
			if util.IsError(err, util.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("delete card: %w", err)
		}
		if err := s.cardRepo.SetDefaultPaymentMethod(ctx, q, next.ID); err != nil {
			return fmt.Errorf("delete card: failed to promote %s: %w", next.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Card deleted", zap.String("account_id", accountID), zap.String("card_id", cardID))
	return nil
}
