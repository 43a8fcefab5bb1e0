// internal/service/fakes_test.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/events"
	"wallet-ledger/internal/payment"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

var errNoSQL = errors.New("fake store does not run SQL")

// fakeTx satisfies db.TxController and repository.DBExecutor. The in-memory
// repositories ignore the executor they are handed.
type fakeTx struct {
	commits   *atomic.Int64
	rollbacks *atomic.Int64
	done      bool
}

func (t *fakeTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.commits.Add(1)
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.rollbacks.Add(1)
	return nil
}

func (t *fakeTx) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}
func (t *fakeTx) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return errNoSQL
}
func (t *fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (t *fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return &sql.Row{} }

// memStore is an in-memory implementation of the account, top-up and payment
// method repositories. Every method holds mu, so TransitionFromPending behaves
// like the guarded UPDATE: exactly one caller sees the PENDING row.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	topUps   map[string]*domain.TopUp
	cards    map[string]*domain.PaymentMethod
	seq      int

	listPendingCalls int

	credits   atomic.Int64
	commits   atomic.Int64
	rollbacks atomic.Int64
}

var (
	_ repository.AccountRepository       = (*memStore)(nil)
	_ repository.TopUpRepository         = (*memStore)(nil)
	_ repository.PaymentMethodRepository = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*domain.Account{},
		topUps:   map[string]*domain.TopUp{},
		cards:    map[string]*domain.PaymentMethod{},
	}
}

func (s *memStore) txFuncs() TxFuncs {
	return TxFuncs{
		Begin: func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return &fakeTx{commits: &s.commits, rollbacks: &s.rollbacks}, nil
		},
		Commit:   db.CommitTx,
		Rollback: db.RollbackTx,
	}
}

func (s *memStore) executor() repository.DBExecutor {
	return &fakeTx{commits: &s.commits, rollbacks: &s.rollbacks}
}

func (s *memStore) addAccount(email string) *domain.Account {
	account := domain.NewAccount(email, "Test User", "hash")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return account
}

func (s *memStore) addTopUp(accountID string, amount int64, ref string) *domain.TopUp {
	topUp := domain.NewTopUp(accountID, amount, "usd", ref)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topUps[ref] = topUp
	return topUp
}

// backdate moves a top-up's creation time into the past.
func (s *memStore) backdate(ref string, age time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topUps[ref].CreatedAt = s.topUps[ref].CreatedAt.Add(-age)
}

func (s *memStore) balance(accountID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[accountID].Balance
}

func (s *memStore) status(ref string) domain.TopUpStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topUps[ref].Status
}

func (s *memStore) defaultCards(accountID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, c := range s.cards {
		if c.AccountID == accountID && c.IsDefault {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (s *memStore) CreateAccount(_ context.Context, _ repository.DBExecutor, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return util.ErrDuplicateEntry
		}
	}
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *memStore) GetAccountByID(_ context.Context, _ repository.DBExecutor, id string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) GetAccountByEmail(_ context.Context, _ repository.DBExecutor, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, util.ErrNotFound
}

func (s *memStore) LockAccount(_ context.Context, _ repository.DBExecutor, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return util.ErrNotFound
	}
	return nil
}

func (s *memStore) SetProcessorCustomerID(_ context.Context, _ repository.DBExecutor, id, customerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return "", util.ErrNotFound
	}
	if a.HasProcessorCustomer() {
		return *a.ProcessorCustomerID, nil
	}
	a.ProcessorCustomerID = &customerID
	return customerID, nil
}

func (s *memStore) CreditBalance(_ context.Context, _ repository.DBExecutor, id string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return util.ErrNotFound
	}
	a.Balance += amount
	s.credits.Add(1)
	return nil
}

func (s *memStore) CreateTopUp(_ context.Context, _ repository.DBExecutor, topUp *domain.TopUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topUps[topUp.ExternalRef]; ok {
		return util.ErrDuplicateEntry
	}
	cp := *topUp
	s.topUps[topUp.ExternalRef] = &cp
	return nil
}

func (s *memStore) GetTopUpByExternalRef(_ context.Context, _ repository.DBExecutor, externalRef string) (*domain.TopUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topUps[externalRef]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) TransitionFromPending(_ context.Context, _ repository.DBExecutor, externalRef string, status domain.TopUpStatus) (*domain.TopUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topUps[externalRef]
	if !ok || t.Status != domain.TopUpStatusPending {
		return nil, util.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (s *memStore) sortedTopUps(keep func(*domain.TopUp) bool) []domain.TopUp {
	var out []domain.TopUp
	for _, t := range s.topUps {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerTopUp(out[i], out[j]) })
	return out
}

func newerTopUp(a, b domain.TopUp) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *memStore) ListPendingTopUps(_ context.Context, _ repository.DBExecutor, createdBefore time.Time, after *repository.PendingCursor, limit int) ([]domain.TopUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listPendingCalls++
	out := s.sortedTopUps(func(t *domain.TopUp) bool {
		if t.Status != domain.TopUpStatusPending || t.CreatedAt.After(createdBefore) {
			return false
		}
		return after == nil || newerTopUp(domain.TopUp{CreatedAt: after.CreatedAt, ID: after.ID}, *t)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) CountPendingTopUps(_ context.Context, _ repository.DBExecutor) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.topUps {
		if t.Status == domain.TopUpStatusPending {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListTopUpsByAccount(_ context.Context, _ repository.DBExecutor, accountID string, limit, offset int) ([]domain.TopUp, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sortedTopUps(func(t *domain.TopUp) bool { return t.AccountID == accountID })
	total := int64(len(all))
	if offset >= len(all) {
		return []domain.TopUp{}, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *memStore) CreatePaymentMethod(_ context.Context, _ repository.DBExecutor, pm *domain.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.ExternalRef == pm.ExternalRef {
			return util.ErrDuplicateEntry
		}
	}
	// Distinct creation times keep "oldest first" deterministic.
	s.seq++
	cp := *pm
	cp.CreatedAt = cp.CreatedAt.Add(time.Duration(s.seq) * time.Millisecond)
	s.cards[pm.ID] = &cp
	return nil
}

func (s *memStore) GetPaymentMethodByID(_ context.Context, _ repository.DBExecutor, id string) (*domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) accountCards(accountID string) []domain.PaymentMethod {
	var out []domain.PaymentMethod
	for _, c := range s.cards {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memStore) ListPaymentMethodsByAccount(_ context.Context, _ repository.DBExecutor, accountID string) ([]domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.accountCards(accountID)
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsDefault && !out[j].IsDefault })
	return out, nil
}

func (s *memStore) CountPaymentMethodsByAccount(_ context.Context, _ repository.DBExecutor, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accountCards(accountID)), nil
}

func (s *memStore) DeletePaymentMethod(_ context.Context, _ repository.DBExecutor, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return util.ErrNotFound
	}
	delete(s.cards, id)
	return nil
}

func (s *memStore) ClearDefaultPaymentMethods(_ context.Context, _ repository.DBExecutor, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.AccountID == accountID {
			c.IsDefault = false
		}
	}
	return nil
}

func (s *memStore) SetDefaultPaymentMethod(_ context.Context, _ repository.DBExecutor, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return util.ErrNotFound
	}
	c.IsDefault = true
	return nil
}

func (s *memStore) FirstRemainingPaymentMethod(_ context.Context, _ repository.DBExecutor, accountID string) (*domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := s.accountCards(accountID)
	if len(cards) == 0 {
		return nil, util.ErrNotFound
	}
	return &cards[0], nil
}

// fakeProcessor keeps intents, customers and cards in memory. Webhook parsing
// is delegated to parser, normally the real Stripe adapter.
type fakeProcessor struct {
	mu        sync.Mutex
	seq       int
	intents   map[string]payment.IntentStatus
	cards     map[string]*payment.Card
	detached  []string
	statusErr map[string]error
	intentErr error
	parser    interface {
		ParseWebhook(payload []byte, signatureHeader string) (*payment.Event, error)
	}
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		intents:   map[string]payment.IntentStatus{},
		cards:     map[string]*payment.Card{},
		statusErr: map[string]error{},
	}
}

func (p *fakeProcessor) next(prefix string) string {
	p.seq++
	return fmt.Sprintf("%s_%d", prefix, p.seq)
}

func (p *fakeProcessor) setStatus(intentID string, status payment.IntentStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[intentID] = status
}

func (p *fakeProcessor) CreateCustomer(context.Context, string, string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next("cus"), nil
}

func (p *fakeProcessor) CreatePaymentIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.intentErr != nil {
		return nil, p.intentErr
	}
	id := p.next("pi")
	p.intents[id] = payment.IntentPending
	return &payment.Intent{ID: id, ClientSecret: id + "_secret", Status: payment.IntentPending, Amount: req.Amount}, nil
}

func (p *fakeProcessor) GetPaymentIntentStatus(_ context.Context, intentID string) (payment.IntentStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.statusErr[intentID]; err != nil {
		return "", err
	}
	status, ok := p.intents[intentID]
	if !ok {
		return "", fmt.Errorf("no such intent %s: %w", intentID, util.ErrUpstream)
	}
	return status, nil
}

func (p *fakeProcessor) CreateSetupIntent(_ context.Context, customerID string) (*payment.SetupIntent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &payment.SetupIntent{ClientSecret: p.next("seti") + "_secret", CustomerID: customerID}, nil
}

func (p *fakeProcessor) addCard(id, brand, last4 string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cards[id] = &payment.Card{ID: id, Brand: brand, Last4: last4, ExpMonth: 12, ExpYear: 2030}
}

func (p *fakeProcessor) GetPaymentMethod(_ context.Context, id string) (*payment.Card, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.cards[id]
	if !ok {
		return nil, fmt.Errorf("payment method %s: %w", id, util.ErrInvalidInput)
	}
	cp := *c
	return &cp, nil
}

func (p *fakeProcessor) AttachPaymentMethod(_ context.Context, id, customerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cards[id].CustomerID = customerID
	return nil
}

func (p *fakeProcessor) DetachPaymentMethod(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detached = append(p.detached, id)
	if c, ok := p.cards[id]; ok {
		c.CustomerID = ""
	}
	return nil
}

func (p *fakeProcessor) ParseWebhook(payload []byte, signatureHeader string) (*payment.Event, error) {
	return p.parser.ParseWebhook(payload, signatureHeader)
}

func (p *fakeProcessor) Configured() (bool, bool) { return true, p.parser != nil }

// recordingPublisher keeps every published settlement event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SettlementEvent
	err    error
}

func (p *recordingPublisher) PublishSettlement(_ context.Context, event events.SettlementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
