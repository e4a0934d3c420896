package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ProductService handles business logic related to the catalog.
type ProductService struct {
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	validate   *validator.Validate
	log        zerolog.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(products repositories.ProductRepository, categories repositories.CategoryRepository, log zerolog.Logger) *ProductService {
	return &ProductService{
		products:   products,
		categories: categories,
		validate:   validator.New(),
		log:        log.With().Str("service", "catalog").Logger(),
	}
}

// ListProducts returns all products, or only those in the category with categorySlug when it is set.
func (s *ProductService) ListProducts(ctx context.Context, categorySlug string) ([]models.Product, error) {
	filter := repositories.ProductFilter{}
	if categorySlug != "" {
		category, err := s.categories.GetBySlug(ctx, categorySlug)
		if err != nil {
			return nil, storeErr("get category", err)
		}
		filter.CategoryID = category.ID
	}
	products, err := s.products.GetAll(ctx, filter)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	return products, nil
}

// GetProductBySlug retrieves a single product by its slug.
func (s *ProductService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr("get product", err)
	}
	return product, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get product", err)
	}
	return product, nil
}

// ListCategories returns every category.
func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return categories, nil
}

// GetCategoryBySlug retrieves a single category by its slug.
func (s *ProductService) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr("get category", err)
	}
	return category, nil
}

// CreateProduct adds a product to the catalog. The slug is derived from the name when empty.
func (s *ProductService) CreateProduct(ctx context.Context, id models.Identity, product *models.Product) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if err := s.prepareProduct(ctx, product); err != nil {
		return err
	}
	if err := s.ensureSlugFree(ctx, product.Slug, ""); err != nil {
		return err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return storeErr("create product", err)
	}
	s.log.Info().Str("product_id", product.ID).Str("slug", product.Slug).Msg("product created")
	return nil
}

// UpdateProduct replaces the editable fields of an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, id models.Identity, product *models.Product) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if _, err := s.products.GetByID(ctx, product.ID); err != nil {
		return storeErr("get product", err)
	}
	if err := s.prepareProduct(ctx, product); err != nil {
		return err
	}
	if err := s.ensureSlugFree(ctx, product.Slug, product.ID); err != nil {
		return err
	}
	if err := s.products.Update(ctx, product); err != nil {
		return storeErr("update product", err)
	}
	s.log.Info().Str("product_id", product.ID).Msg("product updated")
	return nil
}

// DeleteProduct deletes a product by its ID, together with any cart lines referencing it.
func (s *ProductService) DeleteProduct(ctx context.Context, id models.Identity, productID string) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return storeErr("delete product", err)
	}
	s.log.Info().Str("product_id", productID).Msg("product deleted")
	return nil
}

// CreateCategory adds a category. The slug is derived from the name when empty.
func (s *ProductService) CreateCategory(ctx context.Context, id models.Identity, category *models.Category) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	category.Name = strings.TrimSpace(category.Name)
	if err := validateStruct(s.validate, category); err != nil {
		return err
	}
	if category.Slug == "" {
		category.Slug = models.Slugify(category.Name)
	}
	if _, err := s.categories.GetBySlug(ctx, category.Slug); err == nil {
		return newValidationError("Slug", fmt.Sprintf("Slug '%s' is already in use", category.Slug))
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return storeErr("check category slug", err)
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return storeErr("create category", err)
	}
	s.log.Info().Str("category_id", category.ID).Str("slug", category.Slug).Msg("category created")
	return nil
}

func (s *ProductService) prepareProduct(ctx context.Context, product *models.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if err := validateStruct(s.validate, product); err != nil {
		return err
	}
	if product.Price.IsNegative() {
		return newValidationError("Price", "Price must not be negative")
	}
	if product.OriginalPrice.Valid && product.OriginalPrice.Decimal.IsNegative() {
		return newValidationError("OriginalPrice", "OriginalPrice must not be negative")
	}
	if product.Slug == "" {
		product.Slug = models.Slugify(product.Name)
	}
	if product.CategoryID != nil {
		if *product.CategoryID == "" {
			product.CategoryID = nil
		} else if _, err := s.categories.GetByID(ctx, *product.CategoryID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return newValidationError("CategoryID", fmt.Sprintf("Category '%s' does not exist", *product.CategoryID))
			}
			return storeErr("get category", err)
		}
	}
	return nil
}

func (s *ProductService) ensureSlugFree(ctx context.Context, slug, ownID string) error {
	existing, err := s.products.GetBySlug(ctx, slug)
	switch {
	case err == nil && existing.ID != ownID:
		return newValidationError("Slug", fmt.Sprintf("Slug '%s' is already in use", slug))
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return storeErr("check product slug", err)
	}
	return nil
}
