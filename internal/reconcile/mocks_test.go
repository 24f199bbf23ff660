package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"orderkeeper-be/internal/events"
	"orderkeeper-be/internal/order"
	"orderkeeper-be/internal/payment"

	"github.com/stretchr/testify/mock"
)

// --- testify mocks ---

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) ListAwaitingVerification(ctx context.Context, now time.Time, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderService) ListExpired(ctx context.Context, now time.Time, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderService) MarkPaid(ctx context.Context, o *order.Order, channel string) (bool, error) {
	args := m.Called(ctx, o, channel)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderService) MarkFailed(ctx context.Context, o *order.Order, reason events.CancelReason) (bool, error) {
	args := m.Called(ctx, o, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderService) ConfirmByReference(ctx context.Context, reference, channel string) (*order.Order, bool, error) {
	args := m.Called(ctx, reference, channel)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*order.Order), args.Bool(1), args.Error(2)
}

func (m *MockOrderService) FailByReference(ctx context.Context, reference string) (*order.Order, bool, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*order.Order), args.Bool(1), args.Error(2)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*payment.Verification, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Verification), args.Error(1)
}

// --- in-memory order store ---

type movement struct {
	OrderID   int64
	VariantID string
	Quantity  int
}

// memStore mimics the Postgres repository: every method behaves as if it ran
// in its own transaction, and ConfirmPaid re-checks the status under the lock.
type memStore struct {
	mu        sync.Mutex
	orders    map[int64]*order.Order
	items     map[int64][]order.OrderItem
	stock     map[string]int
	movements []movement

	// beforeConfirm runs after the caller fetched the order and before the
	// paid transition takes the lock.
	beforeConfirm func(orderID int64)
}

func newMemStore() *memStore {
	return &memStore{
		orders: make(map[int64]*order.Order),
		items:  make(map[int64][]order.OrderItem),
		stock:  make(map[string]int),
	}
}

func (s *memStore) addOrder(o *order.Order, items ...order.OrderItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	s.items[o.ID] = items
}

func (s *memStore) get(id int64) order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

func (s *memStore) movementsFor(orderID int64) []movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []movement
	for _, m := range s.movements {
		if m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) stockOf(variantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[variantID]
}

func (s *memStore) find(match func(o *order.Order) bool, limit int) []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*order.Order
	for _, o := range s.orders {
		if o.Status == order.StatusPending && o.PaymentStatus == order.PaymentStatusPending && match(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *memStore) FindAwaitingVerification(ctx context.Context, from, to time.Time, limit int) ([]*order.Order, error) {
	return s.find(func(o *order.Order) bool {
		return o.Reference() != "" && o.CreatedAt.After(from) && !o.CreatedAt.After(to)
	}, limit), nil
}

func (s *memStore) FindExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*order.Order, error) {
	return s.find(func(o *order.Order) bool {
		return !o.CreatedAt.After(cutoff)
	}, limit), nil
}

func (s *memStore) GetByReference(ctx context.Context, reference string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.Reference() == reference {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (s *memStore) ConfirmPaid(ctx context.Context, orderID int64, channel string, paidAt time.Time) (bool, error) {
	if hook := s.beforeConfirm; hook != nil {
		hook(orderID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return false, order.ErrOrderNotFound
	}
	if o.Status != order.StatusPending || o.PaymentStatus != order.PaymentStatusPending {
		return false, nil
	}

	for _, item := range s.items[orderID] {
		dup := false
		for _, m := range s.movements {
			if m.OrderID == orderID && m.VariantID == item.VariantID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		s.stock[item.VariantID] -= item.Quantity
		s.movements = append(s.movements, movement{OrderID: orderID, VariantID: item.VariantID, Quantity: -item.Quantity})
	}

	o.Status = order.StatusProcessing
	o.PaymentStatus = order.PaymentStatusPaid
	o.PaidAt = &paidAt
	o.PaymentMethod = &channel
	return true, nil
}

func (s *memStore) CancelPending(ctx context.Context, orderID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.Status != order.StatusPending || o.PaymentStatus != order.PaymentStatusPending {
		return false, nil
	}
	o.Status = order.StatusCancelled
	o.PaymentStatus = order.PaymentStatusFailed
	return true, nil
}
