package services_test

import (
	"context"
	"fmt"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockCategoryRepository is a mock implementation of repositories.CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	args := m.Called()
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	args := m.Called(category)
	return args.Error(0)
}

var (
	admin    = models.Identity{UserID: "admin-1", Username: "admin", Role: models.RoleAdmin}
	customer = models.Identity{UserID: "user-1", Username: "lan", Role: models.RoleCustomer}
)

func newProductService() (*services.ProductService, *MockProductRepository, *MockCategoryRepository) {
	products, categories := new(MockProductRepository), new(MockCategoryRepository)
	return services.NewProductService(products, categories, zerolog.Nop()), products, categories
}

func TestProductService_ListProducts(t *testing.T) {
	service, products, categories := newProductService()
	ctx := context.Background()

	expectedProducts := []models.Product{
		{ID: "1", Name: "Product A", Price: decimal.NewFromInt(10000), Stock: 100},
		{ID: "2", Name: "Product B", Price: decimal.NewFromInt(20000), Stock: 50},
	}
	products.On("GetAll", repositories.ProductFilter{}).Return(expectedProducts, nil).Once()

	got, err := service.ListProducts(ctx, "")
	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, got)

	categories.On("GetBySlug", "feeding").Return(&models.Category{ID: "c-1", Slug: "feeding"}, nil).Once()
	products.On("GetAll", repositories.ProductFilter{CategoryID: "c-1"}).Return(expectedProducts[:1], nil).Once()
	got, err = service.ListProducts(ctx, "feeding")
	assert.NoError(t, err)
	assert.Len(t, got, 1)

	categories.On("GetBySlug", "toys").Return(nil, fmt.Errorf("category toys: %w", repositories.ErrNotFound)).Once()
	_, err = service.ListProducts(ctx, "toys")
	assert.ErrorIs(t, err, services.ErrNotFound)

	products.AssertExpectations(t)
	categories.AssertExpectations(t)
}

func TestProductService_GetProductBySlug(t *testing.T) {
	service, products, _ := newProductService()
	ctx := context.Background()

	expectedProduct := &models.Product{ID: "1", Name: "Bottle", Slug: "bottle"}
	products.On("GetBySlug", "bottle").Return(expectedProduct, nil).Once()
	product, err := service.GetProductBySlug(ctx, "bottle")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	products.On("GetBySlug", "missing").Return(nil, repositories.ErrNotFound).Once()
	_, err = service.GetProductBySlug(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)

	products.On("GetByID", "x").Return(nil, fmt.Errorf("connection refused")).Once()
	_, err = service.GetProductByID(ctx, "x")
	var storeErr *services.StoreError
	assert.ErrorAs(t, err, &storeErr)
	products.AssertExpectations(t)
}

func TestProductService_CreateProduct(t *testing.T) {
	service, products, categories := newProductService()
	ctx := context.Background()

	product := &models.Product{Name: "  Baby Bottle 250ml ", Price: decimal.NewFromInt(299000), Stock: 10}
	products.On("GetBySlug", "baby-bottle-250ml").Return(nil, repositories.ErrNotFound).Once()
	products.On("Create", product).Return(nil).Once()

	err := service.CreateProduct(ctx, admin, product)
	assert.NoError(t, err)
	assert.Equal(t, "Baby Bottle 250ml", product.Name)
	assert.Equal(t, "baby-bottle-250ml", product.Slug)
	products.AssertExpectations(t)

	// Customers cannot manage the catalog
	err = service.CreateProduct(ctx, customer, &models.Product{Name: "Blocked", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, services.ErrForbidden)

	// Field validation
	var validationErr *services.ValidationError
	err = service.CreateProduct(ctx, admin, &models.Product{Name: "Toy", Price: decimal.NewFromInt(1), Discount: 120})
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "Discount")

	err = service.CreateProduct(ctx, admin, &models.Product{Name: "Toy car", Price: decimal.NewFromInt(-1)})
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "Price")

	err = service.CreateProduct(ctx, admin, &models.Product{Name: "Toy car", Price: decimal.NewFromInt(1), Stock: -3})
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "Stock")

	// Unknown category
	missing := "c-404"
	categories.On("GetByID", missing).Return(nil, repositories.ErrNotFound).Once()
	err = service.CreateProduct(ctx, admin, &models.Product{Name: "Toy car", Price: decimal.NewFromInt(1), CategoryID: &missing})
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "CategoryID")

	// Duplicate slug
	products.On("GetBySlug", "toy-car").Return(&models.Product{ID: "other"}, nil).Once()
	err = service.CreateProduct(ctx, admin, &models.Product{Name: "Toy car", Price: decimal.NewFromInt(1)})
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "Slug")

	products.AssertExpectations(t)
	categories.AssertExpectations(t)
}

func TestProductService_UpdateProduct(t *testing.T) {
	service, products, _ := newProductService()
	ctx := context.Background()

	product := &models.Product{ID: "p-1", Name: "Bottle", Slug: "bottle", Price: decimal.NewFromInt(250000), Stock: 4}
	products.On("GetByID", "p-1").Return(&models.Product{ID: "p-1", Name: "Bottle", Slug: "bottle"}, nil).Once()
	products.On("GetBySlug", "bottle").Return(&models.Product{ID: "p-1"}, nil).Once()
	products.On("Update", product).Return(nil).Once()
	assert.NoError(t, service.UpdateProduct(ctx, admin, product))

	products.On("GetByID", "p-404").Return(nil, repositories.ErrNotFound).Once()
	err := service.UpdateProduct(ctx, admin, &models.Product{ID: "p-404", Name: "Nothing", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, services.ErrNotFound)

	products.AssertExpectations(t)
}

func TestProductService_DeleteProduct(t *testing.T) {
	service, products, _ := newProductService()
	ctx := context.Background()

	products.On("Delete", "1").Return(nil).Once()
	assert.NoError(t, service.DeleteProduct(ctx, admin, "1"))

	products.On("Delete", "99").Return(fmt.Errorf("product with ID 99: %w", repositories.ErrNotFound)).Once()
	assert.ErrorIs(t, service.DeleteProduct(ctx, admin, "99"), services.ErrNotFound)

	assert.ErrorIs(t, service.DeleteProduct(ctx, models.Identity{}, "1"), services.ErrUnauthenticated)
	products.AssertExpectations(t)
}

func TestProductService_Categories(t *testing.T) {
	service, _, categories := newProductService()
	ctx := context.Background()

	category := &models.Category{Name: "Feeding Time"}
	categories.On("GetBySlug", "feeding-time").Return(nil, repositories.ErrNotFound).Once()
	categories.On("Create", category).Return(nil).Once()
	require.NoError(t, service.CreateCategory(ctx, admin, category))
	assert.Equal(t, "feeding-time", category.Slug)

	categories.On("GetBySlug", "feeding-time").Return(category, nil).Once()
	got, err := service.GetCategoryBySlug(ctx, "feeding-time")
	require.NoError(t, err)
	assert.Equal(t, "Feeding Time", got.Name)

	categories.On("GetAll").Return([]models.Category{*category}, nil).Once()
	all, err := service.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, service.CreateCategory(ctx, customer, &models.Category{Name: "Toys"}), services.ErrForbidden)
	categories.AssertExpectations(t)
}
