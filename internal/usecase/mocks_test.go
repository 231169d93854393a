// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/adapter"
	"jobboard-billing/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) add(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
}

// memPlanRepo provides in-memory plans.
type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan

	errFind error // simulate lookup failures
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{store: make(map[string]*model.Plan)}
}

func (m *memPlanRepo) Save(ctx context.Context, _ repository.Tx, plan *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *plan
	m.store[plan.ID] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Plan, error) {
	if m.errFind != nil {
		return nil, m.errFind
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) ListAll(ctx context.Context, _ repository.Tx) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Plan, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// memPaymentRepo implements PaymentRepository with the same conditional-update
// semantics the real store has.
type memPaymentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Payment

	saveErr error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *memPaymentRepo) Save(ctx context.Context, _ repository.Tx, p *model.Payment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByGatewayOrderID(ctx context.Context, _ repository.Tx, orderID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.GatewayOrderID != nil && *p.GatewayOrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) FindByGatewayPaymentID(ctx context.Context, _ repository.Tx, paymentID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.GatewayPaymentID != nil && *p.GatewayPaymentID == paymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) UpdateStatusIfPending(ctx context.Context, _ repository.Tx, id string, status model.PaymentStatus, gatewayPaymentID, failureReason *string, paidAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if gatewayPaymentID != nil {
		v := *gatewayPaymentID
		p.GatewayPaymentID = &v
	}
	if failureReason != nil {
		v := *failureReason
		p.FailureReason = &v
	}
	if paidAt != nil {
		v := *paidAt
		p.PaidAt = &v
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPaymentRepo) LinkSubscription(ctx context.Context, _ repository.Tx, paymentID, subscriptionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[paymentID]
	if !ok || p.SubscriptionID != nil {
		return false, nil
	}
	v := subscriptionID
	p.SubscriptionID = &v
	return true, nil
}

func (m *memPaymentRepo) ListPendingOlderThan(ctx context.Context, _ repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memPaymentRepo) SumByPeriod(ctx context.Context, _ repository.Tx, period string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum float64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusSuccess {
			sum += p.Amount
		}
	}
	return sum, nil
}

func (m *memPaymentRepo) get(id string) *model.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// memSubRepo enforces the one-active-per-user constraint the way the partial
// unique index does.
type memSubRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) Save(ctx context.Context, _ repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Status == model.SubscriptionStatusActive {
		for _, other := range m.store {
			if other.ID != s.ID && other.UserID == s.UserID && other.Status == model.SubscriptionStatusActive {
				return domain.ErrAlreadyExists
			}
		}
	}
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSubRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubRepo) FindActiveByUser(ctx context.Context, _ repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	for _, s := range m.store {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive && s.EndDate.After(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubRepo) ListByUser(ctx context.Context, _ repository.Tx, userID string) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubRepo) CancelActiveByUser(ctx context.Context, _ repository.Tx, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, s := range m.store {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			s.Status = model.SubscriptionStatusCancelled
			s.UpdatedAt = time.Now()
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (m *memSubRepo) MarkExpired(ctx context.Context, _ repository.Tx, asOf time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && s.EndDate.Before(asOf) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memSubRepo) CountActiveByPlan(ctx context.Context, _ repository.Tx) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive {
			out[s.PlanID]++
		}
	}
	return out, nil
}

// memInvoiceRepo enforces the unique payment_id constraint.
type memInvoiceRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Invoice // by payment id

	saveErr error
	// simulate a lookup that misses while a concurrent insert is in flight
	findMissOnce bool
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{store: make(map[string]*model.Invoice)}
}

func (m *memInvoiceRepo) Save(ctx context.Context, _ repository.Tx, inv *model.Invoice) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[inv.PaymentID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *inv
	m.store[inv.PaymentID] = &cp
	return nil
}

func (m *memInvoiceRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.store {
		if inv.ID == id {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memInvoiceRepo) FindByPaymentID(ctx context.Context, _ repository.Tx, paymentID string) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findMissOnce {
		m.findMissOnce = false
		return nil, domain.ErrNotFound
	}
	inv, ok := m.store[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoiceRepo) UpdateStatus(ctx context.Context, _ repository.Tx, id string, status model.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.store {
		if inv.ID == id {
			inv.Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

// fakeGateway is a function-field gateway so each test controls exactly the
// behavior it needs.
type fakeGateway struct {
	createOrderFn      func(ctx context.Context, amount float64, currency, receipt string) (*adapter.GatewayOrder, error)
	fetchOrderFn       func(ctx context.Context, orderID string) (*adapter.OrderState, error)
	verifyPaymentSigFn func(orderID, paymentID, signature string) bool
	verifyWebhookSigFn func(rawPayload []byte, signatureHeader string) bool
}

func (f *fakeGateway) Name() string  { return "fake" }
func (f *fakeGateway) KeyID() string { return "key_test" }

func (f *fakeGateway) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*adapter.GatewayOrder, error) {
	if f.createOrderFn != nil {
		return f.createOrderFn(ctx, amount, currency, receipt)
	}
	return &adapter.GatewayOrder{ID: "order_" + receipt, Amount: int64(amount * 100), Currency: currency, Status: "created"}, nil
}

func (f *fakeGateway) FetchOrderStatus(ctx context.Context, orderID string) (*adapter.OrderState, error) {
	if f.fetchOrderFn != nil {
		return f.fetchOrderFn(ctx, orderID)
	}
	return &adapter.OrderState{}, nil
}

func (f *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if f.verifyPaymentSigFn != nil {
		return f.verifyPaymentSigFn(orderID, paymentID, signature)
	}
	return true
}

func (f *fakeGateway) VerifyWebhookSignature(rawPayload []byte, signatureHeader string) bool {
	if f.verifyWebhookSigFn != nil {
		return f.verifyWebhookSigFn(rawPayload, signatureHeader)
	}
	return true
}

// memFileStore records stored documents by filename.
type memFileStore struct {
	mu    sync.Mutex
	files map[string][]byte

	storeErr error
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[string][]byte)}
}

func (m *memFileStore) Store(ctx context.Context, data []byte, filename string) (string, error) {
	if m.storeErr != nil {
		return "", m.storeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filename] = data
	return "https://files.test/" + filename, nil
}

// recordingNotifier captures dispatched events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []adapter.NotificationKind
}

func (r *recordingNotifier) Notify(ctx context.Context, userID string, kind adapter.NotificationKind, payload map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
	return nil
}

func (r *recordingNotifier) kinds() []adapter.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]adapter.NotificationKind, len(r.events))
	copy(out, r.events)
	return out
}

// syncNotifUC dispatches inline so tests see effects without a worker pool.
func newSyncNotifUC(n adapter.Notifier) NotificationUseCase {
	return NewNotificationUseCase(n, nil, newTestLogger())
}

// memTxManager runs the callback without a real transaction and records the
// outcome, so tests can assert that transactional flows commit or roll back.
type memTxManager struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := fn(ctx, repository.NoTX)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}
