package usecase

import (
	"context"
	"log/slog"
	"testing"

	"store/internal/domain/model"
	repo "store/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newProductUsecaseForTest() (*ProductUsecase, *MockProductRepository, *MockVariantRepository, *MockInventoryRepository, *MockAuditLogRepository) {
	products := new(MockProductRepository)
	variants := new(MockVariantRepository)
	inventory := new(MockInventoryRepository)
	audits := new(MockAuditLogRepository)
	uc := NewProductUsecase(products, variants, inventory, audits, slog.Default())
	return uc, products, variants, inventory, audits
}

func TestListPublic_NormalizesPaging(t *testing.T) {
	uc, products, _, _, _ := newProductUsecaseForTest()

	products.On("ListPublic", mock.Anything, repo.ProductListQuery{Page: 1, Limit: 20}).
		Return([]model.Product{}, int64(0), nil)

	out, err := uc.ListPublic(context.Background(), ProductListInput{Page: 0, Limit: 1000})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 20, out.Limit)
}

func TestAdminCreate_RequiresVariant(t *testing.T) {
	uc, products, _, _, _ := newProductUsecaseForTest()

	_, err := uc.AdminCreate(context.Background(), SaveProductInput{Name: "Tee"})

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "at least one product variant is required", he.Message)
	products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminUpdate_OrderedVariantKeepsColorAndSize(t *testing.T) {
	uc, products, variants, _, _ := newProductUsecaseForTest()
	ctx := context.Background()

	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Name: "Tee"}, nil)
	products.On("Update", mock.Anything, mock.Anything).Return(nil)
	variants.On("ListByProductID", mock.Anything, int64(1)).Return([]model.ProductVariant{
		{ID: 100, ProductID: 1, Price: 19.99, Stock: 5, Color: "black", Size: "M"},
	}, nil)
	variants.On("OrderCount", mock.Anything, int64(100)).Return(int64(3), nil)

	_, err := uc.AdminUpdate(ctx, 1, 1, SaveProductInput{
		Name: "Tee",
		Variants: []VariantInput{
			{ID: 100, Price: 19.99, Stock: 5, Color: "white", Size: "M"},
		},
	})

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "variant with orders can only change price and stock", he.Message)
	variants.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAdminUpdate_StockChangeIsAudited(t *testing.T) {
	uc, products, variants, _, audits := newProductUsecaseForTest()
	ctx := context.Background()

	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Name: "Tee"}, nil)
	products.On("Update", mock.Anything, mock.Anything).Return(nil)
	variants.On("ListByProductID", mock.Anything, int64(1)).Return([]model.ProductVariant{
		{ID: 100, ProductID: 1, Price: 19.99, Stock: 5, Color: "black", Size: "M"},
	}, nil)
	variants.On("OrderCount", mock.Anything, int64(100)).Return(int64(3), nil)
	variants.On("Update", mock.Anything, mock.MatchedBy(func(v model.ProductVariant) bool {
		return v.ID == 100 && v.Stock == 12 && v.Color == "black"
	})).Return(nil)
	audits.On("Create", mock.Anything, mock.MatchedBy(func(a model.AuditLog) bool {
		return a.Action == model.AuditActionUpdateStock &&
			a.ActorUserID == int64(9) &&
			a.ResourceID == int64(100) &&
			a.BeforeJSON == `{"stock":5}` &&
			a.AfterJSON == `{"stock":12}`
	})).Return(nil)

	_, err := uc.AdminUpdate(ctx, 9, 1, SaveProductInput{
		Name: "Tee",
		Variants: []VariantInput{
			{ID: 100, Price: 19.99, Stock: 12, Color: "black", Size: "M"},
		},
	})

	require.NoError(t, err)
	audits.AssertExpectations(t)
}

func TestAdminUpdate_OrderedVariantSurvivesOmission(t *testing.T) {
	uc, products, variants, _, _ := newProductUsecaseForTest()
	ctx := context.Background()

	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Name: "Tee"}, nil)
	products.On("Update", mock.Anything, mock.Anything).Return(nil)
	variants.On("ListByProductID", mock.Anything, int64(1)).Return([]model.ProductVariant{
		{ID: 100, ProductID: 1, Price: 19.99, Stock: 5, Color: "black", Size: "M"},
	}, nil)
	variants.On("OrderCount", mock.Anything, int64(100)).Return(int64(1), nil)
	variants.On("Create", mock.Anything, mock.MatchedBy(func(v model.ProductVariant) bool {
		return v.ProductID == 1 && v.Color == "white"
	})).Return(model.ProductVariant{ID: 101}, nil)

	_, err := uc.AdminUpdate(ctx, 9, 1, SaveProductInput{
		Name: "Tee",
		Variants: []VariantInput{
			{ID: 0, Price: 24.99, Stock: 3, Color: "white", Size: "L"},
		},
	})

	require.NoError(t, err)
	variants.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAdminSetStock_WritesAuditLog(t *testing.T) {
	uc, _, variants, inventory, audits := newProductUsecaseForTest()

	variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, Stock: 5}, nil)
	inventory.On("SetStock", mock.Anything, int64(100), int64(0)).Return(nil)
	audits.On("Create", mock.Anything, mock.MatchedBy(func(a model.AuditLog) bool {
		return a.Action == model.AuditActionUpdateStock &&
			a.BeforeJSON == `{"stock":5}` &&
			a.AfterJSON == `{"stock":0}`
	})).Return(nil)

	err := uc.AdminSetStock(context.Background(), 9, 100, 0)

	require.NoError(t, err)
	audits.AssertExpectations(t)
}

func TestAdminSetStock_NegativeRejected(t *testing.T) {
	uc, _, _, inventory, _ := newProductUsecaseForTest()

	err := uc.AdminSetStock(context.Background(), 9, 100, -1)

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "stock must not be negative", he.Message)
	inventory.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything)
}
