package handler

import (
	"net/http"
	"strconv"

	"shopapi/internal/config"
	"shopapi/internal/domain/model"
	"shopapi/internal/middleware"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type OrderHandler struct {
	uc      *usecase.OrderUsecase
	invoice *usecase.InvoiceUsecase
	logger  *zap.Logger
}

func NewOrderHandler(uc *usecase.OrderUsecase, invoice *usecase.InvoiceUsecase, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{uc: uc, invoice: invoice, logger: logger}
}

type addressRequest struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

func (a addressRequest) toModel() model.Address {
	return model.Address{
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type orderItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gte=1"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress addressRequest     `json:"shippingAddress" validate:"required"`
	BillingAddress  *addressRequest    `json:"billingAddress" validate:"omitempty"`
	PaymentMethod   string             `json:"paymentMethod" validate:"required"`
	ShippingPrice   int64              `json:"shippingPrice" validate:"gte=0"`
	TaxPrice        int64              `json:"taxPrice" validate:"gte=0"`
	Discount        int64              `json:"discount" validate:"gte=0"`
	TotalPrice      *int64             `json:"totalPrice" validate:"omitempty,gte=0"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("", h.create)
	g.GET("/myorders", h.listMine)
	g.GET("/:id", h.detail)
	g.PATCH("/:id/cancel", h.cancel)
	g.GET("/:id/invoice", h.generateInvoice)
}

func (h *OrderHandler) create(c echo.Context) error {
	actor, ok := getActingUser(c)
	if !ok {
		return writeFail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.logger, err)
	}

	in := usecase.CreateOrderInput{
		Items:           make([]usecase.CreateOrderItemInput, 0, len(req.Items)),
		ShippingAddress: req.ShippingAddress.toModel(),
		PaymentMethod:   req.PaymentMethod,
		ShippingPrice:   req.ShippingPrice,
		TaxPrice:        req.TaxPrice,
		Discount:        req.Discount,
		TotalPrice:      req.TotalPrice,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, usecase.CreateOrderItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}
	if req.BillingAddress != nil {
		billing := req.BillingAddress.toModel()
		in.BillingAddress = &billing
	}

	out, err := h.uc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return writeSuccess(c, http.StatusCreated, out)
}

func (h *OrderHandler) listMine(c echo.Context) error {
	actor, ok := getActingUser(c)
	if !ok {
		return writeFail(c, http.StatusUnauthorized, "unauthorized")
	}

	outs, err := h.uc.ListMine(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return writeSuccess(c, http.StatusOK, outs)
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := getActingUser(c)
	if !ok {
		return writeFail(c, http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseOrderID(c)
	if err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.GetDetail(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return writeSuccess(c, http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	actor, ok := getActingUser(c)
	if !ok {
		return writeFail(c, http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseOrderID(c)
	if err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.uc.Cancel(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return writeSuccess(c, http.StatusOK, out)
}

func (h *OrderHandler) generateInvoice(c echo.Context) error {
	actor, ok := getActingUser(c)
	if !ok {
		return writeFail(c, http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseOrderID(c)
	if err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid id")
	}

	out, err := h.invoice.Generate(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return writeSuccess(c, http.StatusOK, out)
}

func parseOrderID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
