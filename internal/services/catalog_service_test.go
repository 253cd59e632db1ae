// internal/services/catalog_service_test.go
package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/testutil"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type CatalogServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	db      *gorm.DB
	storage *testutil.Storage
	catalog *services.CatalogService
}

func (suite *CatalogServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = testutil.NewDB(suite.T(), testutil.Config())
	suite.storage = testutil.NewStorage()
	suite.catalog = services.NewCatalogService(suite.db, suite.storage, nil)
}

func (suite *CatalogServiceTestSuite) newProduct(images int) *models.Product {
	product, err := suite.catalog.CreateProduct(suite.ctx, &services.CreateProductRequest{
		Name:        "Backpack",
		Description: "Waterproof",
		Price:       decimal.RequireFromString("59.90"),
		Stock:       4,
	}, testutil.PNG("front.png"))
	suite.Require().NoError(err)

	for i := 1; i < images; i++ {
		product, err = suite.catalog.AddImage(suite.ctx, product.ID, testutil.PNG("side.png"))
		suite.Require().NoError(err)
	}
	return product
}

func (suite *CatalogServiceTestSuite) TestCreateProduct() {
	product := suite.newProduct(1)

	suite.Require().Len(product.Images, 1)
	suite.Contains(suite.storage.Objects, product.Images[0].StorageKey)

	stored, err := suite.catalog.GetProduct(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.Equal("Backpack", stored.Name)
	suite.Equal(4, stored.Stock)
}

func (suite *CatalogServiceTestSuite) TestCreateProductValidation() {
	valid := services.CreateProductRequest{
		Name:        "Backpack",
		Description: "Waterproof",
		Price:       decimal.NewFromInt(10),
	}
	missingCategory := uuid.New()

	cases := map[string]struct {
		mutate func(*services.CreateProductRequest)
		image  *services.FileUpload
		kind   utils.ErrorKind
	}{
		"no name":          {func(r *services.CreateProductRequest) { r.Name = "" }, testutil.PNG("a.png"), utils.KindValidation},
		"zero price":       {func(r *services.CreateProductRequest) { r.Price = decimal.Zero }, testutil.PNG("a.png"), utils.KindValidation},
		"negative stock":   {func(r *services.CreateProductRequest) { r.Stock = -1 }, testutil.PNG("a.png"), utils.KindValidation},
		"no image":         {func(r *services.CreateProductRequest) {}, nil, utils.KindValidation},
		"not an image":     {func(r *services.CreateProductRequest) {}, &services.FileUpload{Filename: "a.png", Content: []byte("text")}, utils.KindValidation},
		"unknown category": {func(r *services.CreateProductRequest) { r.CategoryID = &missingCategory }, testutil.PNG("a.png"), utils.KindNotFound},
	}
	for name, tc := range cases {
		req := valid
		tc.mutate(&req)
		_, err := suite.catalog.CreateProduct(suite.ctx, &req, tc.image)
		suite.Equal(tc.kind, utils.KindOf(err), name)
	}
	suite.Empty(suite.storage.Objects)
}

func (suite *CatalogServiceTestSuite) TestUpdateProductWritesOnlyProvidedFields() {
	product := suite.newProduct(1)

	// Stock moves underneath the admin edit
	suite.Require().NoError(suite.db.Model(&models.Product{}).Where("id = ?", product.ID).UpdateColumn("stock", 1).Error)

	name := "Daypack"
	updated, err := suite.catalog.UpdateProduct(suite.ctx, product.ID, &services.UpdateProductRequest{Name: &name})
	suite.Require().NoError(err)
	suite.Equal("Daypack", updated.Name)
	suite.Equal(1, updated.Stock)

	negative := -3
	_, err = suite.catalog.UpdateProduct(suite.ctx, product.ID, &services.UpdateProductRequest{Stock: &negative})
	suite.Equal(utils.KindValidation, utils.KindOf(err))

	_, err = suite.catalog.UpdateProduct(suite.ctx, uuid.New(), &services.UpdateProductRequest{Name: &name})
	suite.Equal(utils.KindNotFound, utils.KindOf(err))
}

func (suite *CatalogServiceTestSuite) TestDeleteImageKeepsRowWhenStorageFails() {
	product := suite.newProduct(2)
	failing := product.Images[1]
	suite.storage.FailDelete[failing.StorageKey] = errors.New("boom")

	err := suite.catalog.DeleteImage(suite.ctx, product.ID, failing.ID)
	suite.Equal(utils.KindExternalService, utils.KindOf(err))

	stored, err := suite.catalog.GetProduct(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.Len(stored.Images, 2)

	delete(suite.storage.FailDelete, failing.StorageKey)
	suite.Require().NoError(suite.catalog.DeleteImage(suite.ctx, product.ID, failing.ID))

	stored, err = suite.catalog.GetProduct(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.Len(stored.Images, 1)

	err = suite.catalog.DeleteImage(suite.ctx, product.ID, uuid.New())
	suite.Equal(utils.KindNotFound, utils.KindOf(err))
}

func (suite *CatalogServiceTestSuite) TestDeleteProduct() {
	product := suite.newProduct(3)

	suite.Require().NoError(suite.catalog.DeleteProduct(suite.ctx, product.ID))
	suite.Len(suite.storage.DeletedKeys(), 3)

	_, err := suite.catalog.GetProduct(suite.ctx, product.ID)
	suite.Equal(utils.KindNotFound, utils.KindOf(err))
}

func (suite *CatalogServiceTestSuite) TestDeleteProductPartialImageFailure() {
	product := suite.newProduct(3)
	failing := product.Images[2]
	suite.storage.FailDelete[failing.StorageKey] = errors.New("boom")

	err := suite.catalog.DeleteProduct(suite.ctx, product.ID)
	suite.Equal(utils.KindExternalService, utils.KindOf(err))

	stored, err := suite.catalog.GetProduct(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.Require().Len(stored.Images, 1)
	suite.Equal(failing.ID, stored.Images[0].ID)
}

func (suite *CatalogServiceTestSuite) TestDeleteProductKeepsImageAddedMeanwhile() {
	product := suite.newProduct(1)
	original := product.Images[0]

	var added *models.Product
	var addErr error
	var once sync.Once
	suite.storage.OnDelete = func(key string) {
		once.Do(func() {
			added, addErr = suite.catalog.AddImage(suite.ctx, product.ID, testutil.PNG("late.png"))
		})
	}

	err := suite.catalog.DeleteProduct(suite.ctx, product.ID)
	suite.Require().NoError(addErr)
	suite.Equal(utils.KindConflict, utils.KindOf(err))
	late := added.Images[len(added.Images)-1]

	stored, err := suite.catalog.GetProduct(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.Require().Len(stored.Images, 1)
	suite.Equal(late.ID, stored.Images[0].ID)
	suite.Contains(suite.storage.Objects, late.StorageKey)
	suite.Equal([]string{original.StorageKey}, suite.storage.DeletedKeys())

	// A retry removes the late image too
	suite.storage.OnDelete = nil
	suite.Require().NoError(suite.catalog.DeleteProduct(suite.ctx, product.ID))
	_, err = suite.catalog.GetProduct(suite.ctx, product.ID)
	suite.Equal(utils.KindNotFound, utils.KindOf(err))
}

func (suite *CatalogServiceTestSuite) TestToggleFeaturedConcurrently() {
	product := suite.newProduct(1)

	const toggles = 6
	results := make([]bool, toggles)
	errs := make([]error, toggles)
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = suite.catalog.ToggleFeatured(suite.ctx, product.ID)
		}(i)
	}
	wg.Wait()

	on := 0
	for i := 0; i < toggles; i++ {
		suite.Require().NoError(errs[i])
		if results[i] {
			on++
		}
	}
	suite.Equal(toggles/2, on)

	stored, err := suite.catalog.GetProduct(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.False(stored.IsFeatured)
}

func (suite *CatalogServiceTestSuite) TestToggleFeatured() {
	product := suite.newProduct(1)

	featured, err := suite.catalog.ToggleFeatured(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.True(featured)

	featured, err = suite.catalog.ToggleFeatured(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.False(featured)

	_, err = suite.catalog.ToggleFeatured(suite.ctx, uuid.New())
	suite.Equal(utils.KindNotFound, utils.KindOf(err))
}

func (suite *CatalogServiceTestSuite) TestDeleteCategoryDetachesProducts() {
	category, err := suite.catalog.CreateCategory(suite.ctx, &services.CreateCategoryRequest{Name: "Bags"})
	suite.Require().NoError(err)

	product := suite.newProduct(1)
	_, err = suite.catalog.UpdateProduct(suite.ctx, product.ID, &services.UpdateProductRequest{CategoryID: &category.ID})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.catalog.DeleteCategory(suite.ctx, category.ID))

	stored, err := suite.catalog.GetProduct(suite.ctx, product.ID)
	suite.Require().NoError(err)
	suite.Nil(stored.CategoryID)

	err = suite.catalog.DeleteCategory(suite.ctx, category.ID)
	suite.Equal(utils.KindNotFound, utils.KindOf(err))
}

func TestCatalogServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceTestSuite))
}

func TestCategoriesAreListedByName(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, testutil.Config())
	catalog := services.NewCatalogService(db, testutil.NewStorage(), nil)

	for _, name := range []string{"Shoes", "Bags", "Kitchen"} {
		_, err := catalog.CreateCategory(ctx, &services.CreateCategoryRequest{Name: name})
		require.NoError(t, err)
	}
	_, err := catalog.CreateCategory(ctx, &services.CreateCategoryRequest{Name: " "})
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))

	categories, err := catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Bags", categories[0].Name)
	assert.Equal(t, "Shoes", categories[2].Name)
}
