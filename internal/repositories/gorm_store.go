package repositories

import (
	"context"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// GORMStore is the relational Store backed by a *gorm.DB.
type GORMStore struct {
	db         *gorm.DB
	products   *GORMProductRepository
	categories *GORMCategoryRepository
	carts      *GORMCartRepository
	orders     *GORMOrderRepository
	users      *GORMUserRepository
}

// NewGORMStore creates a Store whose repositories share db.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{
		db:         db,
		products:   NewGORMProductRepository(db),
		categories: NewGORMCategoryRepository(db),
		carts:      NewGORMCartRepository(db),
		orders:     NewGORMOrderRepository(db),
		users:      NewGORMUserRepository(db),
	}
}

// Migrate creates or updates the schema. It is idempotent.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}

func (s *GORMStore) Products() ProductRepository { return s.products }
func (s *GORMStore) Categories() CategoryRepository { return s.categories }
func (s *GORMStore) Carts() CartRepository { return s.carts }
func (s *GORMStore) Orders() OrderRepository { return s.orders }
func (s *GORMStore) Users() UserRepository { return s.users }

// WithinTx runs fn inside a database transaction.
func (s *GORMStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMStore(tx))
	})
}
