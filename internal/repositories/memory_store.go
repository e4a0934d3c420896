package repositories

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// memoryData holds every table of a MemoryStore. seq records insertion order per ID so that
// listings stay stable when timestamps collide.
type memoryData struct {
	products   map[string]models.Product
	categories map[string]models.Category
	cartItems  map[string]models.CartItem
	orders     map[string]models.Order
	orderItems map[string]models.OrderItem
	users      map[string]models.User
	seq        map[string]uint64
	nextSeq    uint64
}

func (d *memoryData) clone() *memoryData {
	return &memoryData{
		products:   maps.Clone(d.products),
		categories: maps.Clone(d.categories),
		cartItems:  maps.Clone(d.cartItems),
		orders:     maps.Clone(d.orders),
		orderItems: maps.Clone(d.orderItems),
		users:      maps.Clone(d.users),
		seq:        maps.Clone(d.seq),
		nextSeq:    d.nextSeq,
	}
}

func (d *memoryData) stamp(id string) {
	d.nextSeq++
	d.seq[id] = d.nextSeq
}

// MemoryStore is an in-memory implementation of Store used by tests.
// Transactions are serialized and rolled back by restoring a snapshot, so writes made outside
// WithinTx while a transaction is rolling back are lost with it.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *memoryData
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memoryData{
			products:   make(map[string]models.Product),
			categories: make(map[string]models.Category),
			cartItems:  make(map[string]models.CartItem),
			orders:     make(map[string]models.Order),
			orderItems: make(map[string]models.OrderItem),
			users:      make(map[string]models.User),
			seq:        make(map[string]uint64),
		},
	}
}

func (s *MemoryStore) Products() ProductRepository { return &MockProductRepository{s} }
func (s *MemoryStore) Categories() CategoryRepository { return &MockCategoryRepository{s} }
func (s *MemoryStore) Carts() CartRepository { return &MockCartRepository{s} }
func (s *MemoryStore) Orders() OrderRepository { return &MockOrderRepository{s} }
func (s *MemoryStore) Users() UserRepository { return &MockUserRepository{s} }

// WithinTx runs fn against the store itself and restores the pre-transaction snapshot if fn fails.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) bySeqAsc(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool { return s.data.seq[ids[i]] < s.data.seq[ids[j]] })
}

// MockProductRepository is the in-memory implementation of ProductRepository.
type MockProductRepository struct{ s *MemoryStore }

// GetAll returns products, newest first.
func (r *MockProductRepository) GetAll(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]string, 0, len(r.s.data.products))
	for id, p := range r.s.data.products {
		if filter.CategoryID != "" && (p.CategoryID == nil || *p.CategoryID != filter.CategoryID) {
			continue
		}
		ids = append(ids, id)
	}
	r.s.bySeqAsc(ids)

	productList := make([]models.Product, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		productList = append(productList, r.s.data.products[ids[i]])
	}
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	product, ok := r.s.data.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return &product, nil
}

func (r *MockProductRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, product := range r.s.data.products {
		if product.Slug == slug {
			return &product, nil
		}
	}
	return nil, fmt.Errorf("product with slug %s: %w", slug, ErrNotFound)
}

// Create adds a new product.
func (r *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if _, exists := r.s.data.products[product.ID]; exists {
		return fmt.Errorf("failed to create product: duplicate ID %s", product.ID)
	}
	for _, other := range r.s.data.products {
		if product.Slug != "" && other.Slug == product.Slug {
			return fmt.Errorf("failed to create product: duplicate slug %s", product.Slug)
		}
	}
	now := time.Now()
	product.CreatedAt, product.UpdatedAt = now, now
	r.s.data.products[product.ID] = *product
	r.s.data.stamp(product.ID)
	return nil
}

// Update modifies an existing product.
func (r *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.data.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	r.s.data.products[product.ID] = *product
	return nil
}

// Delete removes a product by its ID and drops it from every cart.
func (r *MockProductRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.products[id]; !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	delete(r.s.data.products, id)
	for itemID, item := range r.s.data.cartItems {
		if item.ProductID == id {
			delete(r.s.data.cartItems, itemID)
		}
	}
	return nil
}

// MockCategoryRepository is the in-memory implementation of CategoryRepository.
type MockCategoryRepository struct{ s *MemoryStore }

func (r *MockCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	categories := make([]models.Category, 0, len(r.s.data.categories))
	for _, c := range r.s.data.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (r *MockCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	category, ok := r.s.data.categories[id]
	if !ok {
		return nil, fmt.Errorf("category with ID %s: %w", id, ErrNotFound)
	}
	return &category, nil
}

func (r *MockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, category := range r.s.data.categories {
		if category.Slug == slug {
			return &category, nil
		}
	}
	return nil, fmt.Errorf("category with slug %s: %w", slug, ErrNotFound)
}

func (r *MockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	for _, other := range r.s.data.categories {
		if category.Slug != "" && other.Slug == category.Slug {
			return fmt.Errorf("failed to create category: duplicate slug %s", category.Slug)
		}
	}
	now := time.Now()
	category.CreatedAt, category.UpdatedAt = now, now
	r.s.data.categories[category.ID] = *category
	r.s.data.stamp(category.ID)
	return nil
}

// MockCartRepository is the in-memory implementation of CartRepository.
type MockCartRepository struct{ s *MemoryStore }

// withProduct joins the live product, as the GORM preload does. Callers hold the read lock.
func (r *MockCartRepository) withProduct(item models.CartItem) models.CartItem {
	if product, ok := r.s.data.products[item.ProductID]; ok {
		item.Product = &product
	}
	return item
}

func (r *MockCartRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var ids []string
	for id, item := range r.s.data.cartItems {
		if item.UserID == userID {
			ids = append(ids, id)
		}
	}
	r.s.bySeqAsc(ids)

	items := make([]models.CartItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, r.withProduct(r.s.data.cartItems[id]))
	}
	return items, nil
}

func (r *MockCartRepository) GetByID(ctx context.Context, id string) (*models.CartItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	item, ok := r.s.data.cartItems[id]
	if !ok {
		return nil, fmt.Errorf("cart item with ID %s: %w", id, ErrNotFound)
	}
	item = r.withProduct(item)
	return &item, nil
}

func (r *MockCartRepository) GetByUserAndProduct(ctx context.Context, userID, productID string) (*models.CartItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, item := range r.s.data.cartItems {
		if item.UserID == userID && item.ProductID == productID {
			item = r.withProduct(item)
			return &item, nil
		}
	}
	return nil, fmt.Errorf("cart item for product %s: %w", productID, ErrNotFound)
}

func (r *MockCartRepository) Create(ctx context.Context, item *models.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.data.cartItems {
		if other.UserID == item.UserID && other.ProductID == item.ProductID {
			return fmt.Errorf("failed to create cart item: product %s already in cart", item.ProductID)
		}
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now()
	item.CreatedAt, item.UpdatedAt = now, now
	stored := *item
	stored.Product = nil
	r.s.data.cartItems[item.ID] = stored
	r.s.data.stamp(item.ID)
	return nil
}

func (r *MockCartRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.data.cartItems[id]
	if !ok {
		return fmt.Errorf("cart item with ID %s: %w", id, ErrNotFound)
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	r.s.data.cartItems[id] = item
	return nil
}

func (r *MockCartRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.cartItems[id]; !ok {
		return fmt.Errorf("cart item with ID %s: %w", id, ErrNotFound)
	}
	delete(r.s.data.cartItems, id)
	return nil
}

func (r *MockCartRepository) DeleteItems(ctx context.Context, userID string, ids []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if item, ok := r.s.data.cartItems[id]; ok && item.UserID == userID {
			delete(r.s.data.cartItems, id)
			deleted++
		}
	}
	return deleted, nil
}

// MockOrderRepository is the in-memory implementation of OrderRepository.
type MockOrderRepository struct{ s *MemoryStore }

// assemble attaches items and customer to a stored order. Callers hold the read lock.
func (r *MockOrderRepository) assemble(order models.Order, withCustomer bool) models.Order {
	var itemIDs []string
	for id, item := range r.s.data.orderItems {
		if item.OrderID == order.ID {
			itemIDs = append(itemIDs, id)
		}
	}
	items := make([]models.OrderItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		items = append(items, r.s.data.orderItems[id])
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	order.Items = items

	if withCustomer {
		if user, ok := r.s.data.users[order.UserID]; ok {
			user.Password = ""
			order.User = &user
		}
	}
	return order
}

func (r *MockOrderRepository) newestFirst(match func(models.Order) bool, withCustomer bool) []models.Order {
	var ids []string
	for id, order := range r.s.data.orders {
		if match(order) {
			ids = append(ids, id)
		}
	}
	r.s.bySeqAsc(ids)

	orders := make([]models.Order, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		orders = append(orders, r.assemble(r.s.data.orders[ids[i]], withCustomer))
	}
	return orders
}

// Create adds a new order without its items.
func (r *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	stored := *order
	stored.Items, stored.User = nil, nil
	r.s.data.orders[order.ID] = stored
	r.s.data.stamp(order.ID)
	return nil
}

func (r *MockOrderRepository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range items {
		if _, ok := r.s.data.orders[items[i].OrderID]; !ok {
			return fmt.Errorf("failed to create order items: order %s: %w", items[i].OrderID, ErrNotFound)
		}
	}
	now := time.Now()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
		items[i].CreatedAt = now
		r.s.data.orderItems[items[i].ID] = items[i]
	}
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, ok := r.s.data.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	order = r.assemble(order, true)
	return &order, nil
}

func (r *MockOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.newestFirst(func(o models.Order) bool { return o.UserID == userID }, false), nil
}

// ListAll returns all orders.
func (r *MockOrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.newestFirst(func(models.Order) bool { return true }, true), nil
}

// UpdateStatus updates the status of an order if it is still from.
func (r *MockOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	order, ok := r.s.data.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	if order.Status != from {
		return fmt.Errorf("order %s is no longer %s: %w", id, from, ErrConflict)
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	r.s.data.orders[id] = order
	return nil
}

// MockUserRepository is the in-memory implementation of UserRepository.
type MockUserRepository struct{ s *MemoryStore }

func (r *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.data.users {
		if other.Username == user.Username || other.Email == user.Email {
			return fmt.Errorf("failed to create user: duplicate username or email")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.data.users[user.ID] = *user
	r.s.data.stamp(user.ID)
	return nil
}

func (r *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find("username", username, func(u models.User) bool { return u.Username == username })
}

func (r *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find("email", email, func(u models.User) bool { return u.Email == email })
}

func (r *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find("id", id, func(u models.User) bool { return u.ID == id })
}

func (r *MockUserRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.data.users[id]
	if !ok {
		return fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
	}
	user.Role = role
	user.UpdatedAt = time.Now()
	r.s.data.users[id] = user
	return nil
}

func (r *MockUserRepository) find(column, value string, match func(models.User) bool) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.data.users {
		if match(user) {
			return &user, nil
		}
	}
	return nil, fmt.Errorf("user with %s %s: %w", column, value, ErrNotFound)
}
