package usecase_test

import (
	"context"
	"testing"

	"shopapi/internal/apperror"
	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var (
	buyer = usecase.ActingUser{ID: 42, Role: model.RoleUser}
	admin = usecase.ActingUser{ID: 1, Role: model.RoleAdmin}
)

func validCreateInput() usecase.CreateOrderInput {
	return usecase.CreateOrderInput{
		Items: []usecase.CreateOrderItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		ShippingAddress: model.Address{
			Street: "1-2-3 Chuo", City: "Osaka", State: "Osaka",
			PostalCode: "540-0001", Country: "JP",
		},
		PaymentMethod: "credit_card",
		ShippingPrice: 10,
		TaxPrice:      5,
	}
}

// =====================
// Create
// =====================

func TestOrderUsecase_Create_EmptyItems(t *testing.T) {
	r := newTestRepos()
	uc := usecase.NewOrderUsecase(r.tx)

	in := validCreateInput()
	in.Items = nil

	_, err := uc.Create(context.Background(), buyer, in)
	assert.True(t, apperror.IsValidation(err))
	r.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestOrderUsecase_Create_InvalidQuantity(t *testing.T) {
	r := newTestRepos()
	uc := usecase.NewOrderUsecase(r.tx)

	in := validCreateInput()
	in.Items[0].Quantity = 0

	_, err := uc.Create(context.Background(), buyer, in)
	assert.True(t, apperror.IsValidation(err))
}

func TestOrderUsecase_Create_InvalidPaymentMethod(t *testing.T) {
	r := newTestRepos()
	uc := usecase.NewOrderUsecase(r.tx)

	in := validCreateInput()
	in.PaymentMethod = "check"

	_, err := uc.Create(context.Background(), buyer, in)
	assert.True(t, apperror.IsValidation(err))
	assertErrContains(t, err, "payment method")
}

func TestOrderUsecase_Create_ComputesTotal(t *testing.T) {
	// 2*100 + 1*50 + 送料10 + 税5 = 265
	r := newTestRepos()

	r.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Product A", Price: 100, Stock: 10, IsActive: true}, nil)
	r.products.On("FindByID", mock.Anything, int64(2)).
		Return(model.Product{ID: 2, Name: "Product B", Price: 50, Stock: 5, IsActive: true}, nil)

	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(2)).Return(true, nil)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(2), int64(1)).Return(true, nil)

	r.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.TotalPrice == 265 &&
			o.Status == model.OrderStatusPending &&
			o.RefundStatus == model.RefundStatusNone &&
			o.UserID == buyer.ID
	})).Return(int64(77), nil)
	r.items.On("CreateBulk", mock.Anything, int64(77), mock.Anything).Return(nil)

	uc := usecase.NewOrderUsecase(r.tx)

	out, err := uc.Create(context.Background(), buyer, validCreateInput())
	assert.NoError(t, err)
	assert.Equal(t, int64(77), out.ID)
	assert.Equal(t, "pending", out.Status)
	assert.Equal(t, int64(265), out.TotalPrice)

	// 単価は注文時のスナップショット
	if assert.Len(t, out.Items, 2) {
		assert.Equal(t, int64(100), out.Items[0].UnitPrice)
		assert.Equal(t, int64(200), out.Items[0].LineTotal)
		assert.Equal(t, "Product A", out.Items[0].Name)
		assert.Equal(t, int64(50), out.Items[1].UnitPrice)
	}

	r.orders.AssertExpectations(t)
	r.inventory.AssertExpectations(t)
	r.items.AssertExpectations(t)
}

func TestOrderUsecase_Create_CallerSuppliedTotal(t *testing.T) {
	r := newTestRepos()

	r.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Product A", Price: 100, Stock: 10, IsActive: true}, nil)
	r.products.On("FindByID", mock.Anything, int64(2)).
		Return(model.Product{ID: 2, Name: "Product B", Price: 50, Stock: 5, IsActive: true}, nil)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	r.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.TotalPrice == 1000
	})).Return(int64(5), nil)
	r.items.On("CreateBulk", mock.Anything, int64(5), mock.Anything).Return(nil)

	uc := usecase.NewOrderUsecase(r.tx)

	in := validCreateInput()
	total := int64(1000)
	in.TotalPrice = &total

	out, err := uc.Create(context.Background(), buyer, in)
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), out.TotalPrice)
	r.orders.AssertExpectations(t)
}

func TestOrderUsecase_Create_InsufficientStock(t *testing.T) {
	r := newTestRepos()

	r.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Product A", Price: 100, Stock: 1, IsActive: true}, nil)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(2)).Return(false, nil)

	uc := usecase.NewOrderUsecase(r.tx)

	_, err := uc.Create(context.Background(), buyer, validCreateInput())
	assert.True(t, apperror.IsConflict(err))
	assertErrContains(t, err, "insufficient stock")
	assertErrContains(t, err, "requested 2, available 1")

	// 失敗したら注文は作られない
	r.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderUsecase_Create_SecondProductMissing(t *testing.T) {
	// 2件目で失敗したらトランザクションごと失敗し、1件目の在庫減算も残らない
	r := newTestRepos()

	r.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Product A", Price: 100, Stock: 10, IsActive: true}, nil)
	r.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(2)).Return(true, nil)
	r.products.On("FindByID", mock.Anything, int64(2)).
		Return(model.Product{}, repo.ErrNotFound)

	uc := usecase.NewOrderUsecase(r.tx)

	_, err := uc.Create(context.Background(), buyer, validCreateInput())
	assert.True(t, apperror.IsNotFound(err))
	assertErrContains(t, err, "product 2")

	r.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	r.items.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_Create_InactiveProduct(t *testing.T) {
	r := newTestRepos()

	r.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Product A", Price: 100, Stock: 10, IsActive: false}, nil)

	uc := usecase.NewOrderUsecase(r.tx)

	_, err := uc.Create(context.Background(), buyer, validCreateInput())
	assert.True(t, apperror.IsNotFound(err))
	r.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// Cancel
// =====================

func pendingOrder(id int64, userID int64) model.Order {
	return model.Order{
		ID:     id,
		UserID: userID,
		Status: model.OrderStatusPending,
	}
}

func TestOrderUsecase_Cancel_RestoresStock(t *testing.T) {
	r := newTestRepos()
	orderID := int64(10)

	r.orders.On("FindByID", mock.Anything, orderID).Return(pendingOrder(orderID, buyer.ID), nil)
	r.items.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{
		{OrderID: orderID, ProductID: 1, Quantity: 2, UnitPriceSnapshot: 100},
		{OrderID: orderID, ProductID: 2, Quantity: 1, UnitPriceSnapshot: 50},
	}, nil)
	r.inventory.On("IncreaseStock", mock.Anything, int64(1), int64(2)).Return(nil)
	r.inventory.On("IncreaseStock", mock.Anything, int64(2), int64(1)).Return(nil)
	r.orders.On("UpdateFields", mock.Anything, orderID, mock.MatchedBy(func(fields map[string]any) bool {
		_, hasCancelledAt := fields["cancelled_at"]
		return fields["status"] == model.OrderStatusCancelled && hasCancelledAt
	})).Return(nil)

	uc := usecase.NewOrderUsecase(r.tx)

	out, err := uc.Cancel(context.Background(), buyer, orderID)
	assert.NoError(t, err)
	assert.Equal(t, "cancelled", out.Status)
	assert.NotNil(t, out.CancelledAt)

	r.inventory.AssertExpectations(t)
	r.orders.AssertExpectations(t)
}

func TestOrderUsecase_Cancel_GuardTerminalStatuses(t *testing.T) {
	cases := []struct {
		name   string
		status model.OrderStatus
	}{
		{"shipped", model.OrderStatusShipped},
		{"delivered", model.OrderStatusDelivered},
		{"already cancelled", model.OrderStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRepos()
			o := pendingOrder(10, buyer.ID)
			o.Status = tc.status
			r.orders.On("FindByID", mock.Anything, int64(10)).Return(o, nil)

			uc := usecase.NewOrderUsecase(r.tx)

			_, err := uc.Cancel(context.Background(), buyer, 10)
			assert.True(t, apperror.IsConflict(err))

			// 注文も在庫も触らない
			r.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
			r.orders.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderUsecase_Cancel_NotOwner(t *testing.T) {
	r := newTestRepos()
	r.orders.On("FindByID", mock.Anything, int64(10)).Return(pendingOrder(10, int64(999)), nil)

	uc := usecase.NewOrderUsecase(r.tx)

	_, err := uc.Cancel(context.Background(), buyer, 10)
	assert.True(t, apperror.IsAuthorization(err))
	r.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_Cancel_AdminCanCancelAnyOrder(t *testing.T) {
	r := newTestRepos()
	orderID := int64(10)

	r.orders.On("FindByID", mock.Anything, orderID).Return(pendingOrder(orderID, buyer.ID), nil)
	r.items.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{}, nil)
	r.orders.On("UpdateFields", mock.Anything, orderID, mock.Anything).Return(nil)

	uc := usecase.NewOrderUsecase(r.tx)

	out, err := uc.Cancel(context.Background(), admin, orderID)
	assert.NoError(t, err)
	assert.Equal(t, "cancelled", out.Status)
}

func TestOrderUsecase_Cancel_MissingProductSkipped(t *testing.T) {
	// 商品が消えている場合はその分の在庫戻しだけ飛ばす
	r := newTestRepos()
	orderID := int64(10)

	r.orders.On("FindByID", mock.Anything, orderID).Return(pendingOrder(orderID, buyer.ID), nil)
	r.items.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{
		{OrderID: orderID, ProductID: 1, Quantity: 2},
		{OrderID: orderID, ProductID: 2, Quantity: 1},
	}, nil)
	r.inventory.On("IncreaseStock", mock.Anything, int64(1), int64(2)).Return(repo.ErrNotFound)
	r.inventory.On("IncreaseStock", mock.Anything, int64(2), int64(1)).Return(nil)
	r.orders.On("UpdateFields", mock.Anything, orderID, mock.Anything).Return(nil)

	uc := usecase.NewOrderUsecase(r.tx)

	_, err := uc.Cancel(context.Background(), buyer, orderID)
	assert.NoError(t, err)
	r.inventory.AssertExpectations(t)
	r.orders.AssertExpectations(t)
}

func TestOrderUsecase_Cancel_NotFound(t *testing.T) {
	r := newTestRepos()
	r.orders.On("FindByID", mock.Anything, int64(99)).Return(model.Order{}, repo.ErrNotFound)

	uc := usecase.NewOrderUsecase(r.tx)

	_, err := uc.Cancel(context.Background(), buyer, 99)
	assert.True(t, apperror.IsNotFound(err))
}

// =====================
// GetDetail / ListMine
// =====================

func TestOrderUsecase_GetDetail_ForeignOrderForbidden(t *testing.T) {
	r := newTestRepos()
	r.orders.On("FindByID", mock.Anything, int64(10)).Return(pendingOrder(10, int64(999)), nil)

	uc := usecase.NewOrderUsecase(r.tx)

	_, err := uc.GetDetail(context.Background(), buyer, 10)
	assert.True(t, apperror.IsAuthorization(err))
}

func TestOrderUsecase_GetDetail_IncludesNotes(t *testing.T) {
	r := newTestRepos()
	orderID := int64(10)

	r.orders.On("FindByID", mock.Anything, orderID).Return(pendingOrder(orderID, buyer.ID), nil)
	r.items.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderItem{
		{OrderID: orderID, ProductID: 1, Quantity: 1, UnitPriceSnapshot: 100, ProductNameSnapshot: "Product A"},
	}, nil)
	r.notes.On("ListByOrderID", mock.Anything, orderID).Return([]model.OrderNote{
		{OrderID: orderID, Text: "left at the door", AuthorUserID: admin.ID},
	}, nil)

	uc := usecase.NewOrderUsecase(r.tx)

	out, err := uc.GetDetail(context.Background(), buyer, orderID)
	assert.NoError(t, err)
	if assert.Len(t, out.Notes, 1) {
		assert.Equal(t, "left at the door", out.Notes[0].Text)
	}
}

func TestOrderUsecase_ListMine(t *testing.T) {
	r := newTestRepos()

	r.orders.On("ListByUserID", mock.Anything, buyer.ID).Return([]model.Order{
		{ID: 10, UserID: buyer.ID, Status: model.OrderStatusPending},
		{ID: 11, UserID: buyer.ID, Status: model.OrderStatusDelivered},
	}, nil)
	r.items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{}, nil)
	r.items.On("ListByOrderID", mock.Anything, int64(11)).Return([]model.OrderItem{}, nil)

	uc := usecase.NewOrderUsecase(r.tx)

	outs, err := uc.ListMine(context.Background(), buyer)
	assert.NoError(t, err)
	assert.Len(t, outs, 2)
	r.orders.AssertExpectations(t)
}
