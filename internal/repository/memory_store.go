package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lib/pq"

	"github.com/vaidashi/garment-order-tracker/internal/models"
)

// MemoryStore implements Store in process memory. Transactions are fully
// serialized and work on a copy of the state that replaces the committed
// state only when fn succeeds, so it behaves like the PostgreSQL store under
// row locking. Used for local runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	users       map[string]*models.User
	products    map[string]*models.Product
	orders      map[string]*models.Order
	events      map[string][]*models.TrackingEvent
	outbox      map[int64]*models.OutboxMessage
	deadLetters map[int64]*models.DeadLetterMessage

	nextEventID      int64
	nextOutboxID     int64
	nextDeadLetterID int64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		users:       make(map[string]*models.User),
		products:    make(map[string]*models.Product),
		orders:      make(map[string]*models.Order),
		events:      make(map[string][]*models.TrackingEvent),
		outbox:      make(map[int64]*models.OutboxMessage),
		deadLetters: make(map[int64]*models.DeadLetterMessage),
	}}
}

func (s *memState) clone() *memState {
	c := *s
	c.users = cloneMap(s.users)
	c.products = cloneMap(s.products)
	c.orders = cloneMap(s.orders)
	c.events = cloneMap(s.events)
	c.outbox = cloneMap(s.outbox)
	c.deadLetters = cloneMap(s.deadLetters)
	return &c
}

// cloneMap copies the map only. Values are replaced, never mutated in place.
func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyProduct(p *models.Product) *models.Product {
	c := *p
	c.Images = append(pq.StringArray{}, p.Images...)
	return &c
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	return &c
}

func copyEvent(e *models.TrackingEvent) *models.TrackingEvent {
	c := *e
	return &c
}

func copyOutbox(m *models.OutboxMessage) *models.OutboxMessage {
	c := *m
	c.Payload = append([]byte(nil), m.Payload...)
	return &c
}

func copyDeadLetter(m *models.DeadLetterMessage) *models.DeadLetterMessage {
	c := *m
	c.Payload = append([]byte(nil), m.Payload...)
	return &c
}

// WithTx runs fn against a private copy of the state and commits it on success
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{state: work}); err != nil {
		return err
	}

	// A caller that gave up while fn ran must not see a partial commit later.
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = work
	return nil
}

func (s *MemoryStore) read(ctx context.Context, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (user *models.User, err error) {
	err = s.read(ctx, func(st *memState) error {
		user, err = (&memTx{state: st}).GetUser(ctx, id)
		return err
	})
	return user, err
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var found *models.User

	err := s.read(ctx, func(st *memState) error {
		email = models.NormalizeEmail(email)
		for _, u := range st.users {
			if u.Email == email {
				found = copyUser(u)
				return nil
			}
		}
		return ErrNotFound
	})
	return found, err
}

func (s *MemoryStore) ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error) {
	users := []*models.User{}

	err := s.read(ctx, func(st *memState) error {
		for _, u := range st.users {
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			if filter.Status != "" && u.Status != filter.Status {
				continue
			}
			users = append(users, copyUser(u))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(users, func(i, j int) bool {
		return newerFirst(users[i].CreatedAt.UnixNano(), users[j].CreatedAt.UnixNano(), users[i].ID, users[j].ID)
	})
	return page(users, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (product *models.Product, err error) {
	err = s.read(ctx, func(st *memState) error {
		product, err = (&memTx{state: st}).GetProductForUpdate(ctx, id)
		return err
	})
	return product, err
}

func (s *MemoryStore) ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	products := []*models.Product{}

	err := s.read(ctx, func(st *memState) error {
		for _, p := range st.products {
			if filter.OwnerID != "" && p.OwnerID != filter.OwnerID {
				continue
			}
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if filter.FeaturedOnly && !p.Featured {
				continue
			}
			if filter.HomeOnly && !p.ShowOnHome {
				continue
			}
			products = append(products, copyProduct(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(products, func(i, j int) bool {
		return newerFirst(products[i].CreatedAt.UnixNano(), products[j].CreatedAt.UnixNano(), products[i].ID, products[j].ID)
	})
	return page(products, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (order *models.Order, err error) {
	err = s.read(ctx, func(st *memState) error {
		order, err = (&memTx{state: st}).GetOrderForUpdate(ctx, id)
		return err
	})
	return order, err
}

func (s *MemoryStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	orders := []*models.Order{}

	err := s.read(ctx, func(st *memState) error {
		for _, o := range st.orders {
			if matchesOrder(o, filter) {
				orders = append(orders, copyOrder(o))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(orders, func(i, j int) bool {
		return newerFirst(orders[i].CreatedAt.UnixNano(), orders[j].CreatedAt.UnixNano(), orders[i].ID, orders[j].ID)
	})
	return page(orders, filter.Limit, filter.Offset), nil
}

func matchesOrder(o *models.Order, f OrderFilter) bool {
	if f.BuyerID != "" && o.BuyerID != f.BuyerID {
		return false
	}
	if f.ManagerID != "" && o.ManagerID != f.ManagerID {
		return false
	}
	if f.ProductID != "" && o.ProductID != f.ProductID {
		return false
	}
	if f.ApprovedOnly && o.ApprovedAt == nil {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
		return false
	}
	if containsStatus(f.ExcludeStatuses, o.Status) {
		return false
	}
	return true
}

func containsStatus(list []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func newerFirst(ti, tj int64, idi, idj string) bool {
	if ti != tj {
		return ti > tj
	}
	return idi > idj
}

func page[T any](items []T, limit, offset int) []T {
	if offset = normalizeOffset(offset); offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit = normalizeLimit(limit); limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *MemoryStore) ListTrackingEvents(ctx context.Context, orderID string) ([]*models.TrackingEvent, error) {
	events := []*models.TrackingEvent{}

	err := s.read(ctx, func(st *memState) error {
		for _, e := range st.events[orderID] {
			events = append(events, copyEvent(e))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

// memTx operates on a private state copy owned by one WithTx call
type memTx struct {
	state *memState
}

func (t *memTx) GetUser(_ context.Context, id string) (*models.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (t *memTx) CreateUser(_ context.Context, user *models.User) error {
	if _, exists := t.state.users[user.ID]; exists {
		return fmt.Errorf("%w: users_pkey", ErrDuplicate)
	}
	for _, u := range t.state.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: users_email_key", ErrDuplicate)
		}
	}
	t.state.users[user.ID] = copyUser(user)
	return nil
}

func (t *memTx) UpdateUser(_ context.Context, user *models.User) error {
	if _, ok := t.state.users[user.ID]; !ok {
		return ErrNotFound
	}
	t.state.users[user.ID] = copyUser(user)
	return nil
}

func (t *memTx) GetProductForUpdate(_ context.Context, id string) (*models.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProduct(p), nil
}

func checkProduct(p *models.Product) error {
	if p.AvailableQuantity < 0 || p.MinimumOrderQuantity < 1 || !p.Price.IsPositive() {
		return fmt.Errorf("%w: products check constraint violated", ErrDatabase)
	}
	return nil
}

func (t *memTx) CreateProduct(_ context.Context, product *models.Product) error {
	if _, exists := t.state.products[product.ID]; exists {
		return fmt.Errorf("%w: products_pkey", ErrDuplicate)
	}
	if err := checkProduct(product); err != nil {
		return err
	}
	t.state.products[product.ID] = copyProduct(product)
	return nil
}

func (t *memTx) UpdateProduct(_ context.Context, product *models.Product) error {
	if _, ok := t.state.products[product.ID]; !ok {
		return ErrNotFound
	}
	if err := checkProduct(product); err != nil {
		return err
	}
	t.state.products[product.ID] = copyProduct(product)
	return nil
}

func (t *memTx) SetProductQuantity(_ context.Context, id string, quantity int) error {
	p, ok := t.state.products[id]
	if !ok {
		return ErrNotFound
	}
	updated := copyProduct(p)
	updated.AvailableQuantity = quantity
	updated.UpdatedAt = models.GetCurrentTime()
	if err := checkProduct(updated); err != nil {
		return err
	}
	t.state.products[id] = updated
	return nil
}

func (t *memTx) DeleteProduct(_ context.Context, id string) error {
	if _, ok := t.state.products[id]; !ok {
		return ErrNotFound
	}
	delete(t.state.products, id)
	return nil
}

func (t *memTx) CountActiveOrdersForProduct(_ context.Context, productID string) (int, error) {
	count := 0
	for _, o := range t.state.orders {
		if o.ProductID == productID && !o.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (t *memTx) GetOrderForUpdate(_ context.Context, id string) (*models.Order, error) {
	o, ok := t.state.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

func (t *memTx) CreateOrder(_ context.Context, order *models.Order) error {
	if _, exists := t.state.orders[order.ID]; exists {
		return fmt.Errorf("%w: orders_pkey", ErrDuplicate)
	}
	t.state.orders[order.ID] = copyOrder(order)
	return nil
}

func (t *memTx) UpdateOrderStatus(_ context.Context, order *models.Order) error {
	existing, ok := t.state.orders[order.ID]
	if !ok {
		return ErrNotFound
	}
	updated := copyOrder(existing)
	updated.Status = order.Status
	updated.ApprovedAt = order.ApprovedAt
	updated.UpdatedAt = order.UpdatedAt
	t.state.orders[order.ID] = updated
	return nil
}

func (t *memTx) LastTrackingEvent(_ context.Context, orderID string) (*models.TrackingEvent, error) {
	events := t.state.events[orderID]
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return copyEvent(events[len(events)-1]), nil
}

func (t *memTx) AppendTrackingEvent(_ context.Context, event *models.TrackingEvent) error {
	if _, ok := t.state.orders[event.OrderID]; !ok {
		return fmt.Errorf("%w: tracking_events_order_id_fkey", ErrDatabase)
	}
	t.state.nextEventID++
	event.ID = t.state.nextEventID

	existing := t.state.events[event.OrderID]
	events := make([]*models.TrackingEvent, len(existing), len(existing)+1)
	copy(events, existing)
	t.state.events[event.OrderID] = append(events, copyEvent(event))
	return nil
}

func (t *memTx) CreateOutboxMessage(_ context.Context, message *models.OutboxMessage) error {
	t.state.nextOutboxID++
	message.ID = t.state.nextOutboxID
	t.state.outbox[message.ID] = copyOutbox(message)
	return nil
}

var _ Store = (*MemoryStore)(nil)
