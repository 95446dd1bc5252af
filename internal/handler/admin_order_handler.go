package handler

import (
	"net/http"
	"strconv"

	"shopapi/internal/config"
	"shopapi/internal/middleware"
	repo "shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 管理者専用の注文操作（一覧・ステータス更新・メモ・返金）
type AdminOrderHandler struct {
	uc     *usecase.AdminOrderUsecase
	logger *zap.Logger
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase, logger *zap.Logger) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, logger: logger}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type addNoteRequest struct {
	Note string `json:"note" validate:"required"`
}

type processRefundRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.AdminRoleGuard())

	g.GET("", h.list)
	g.PATCH("/:id/status", h.updateStatus)
	g.POST("/:id/notes", h.addNote)
	g.POST("/:id/refund", h.processRefund)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	actor, ok := getActingUser(c)
	if !ok {
		return writeFail(c, http.StatusUnauthorized, "unauthorized")
	}

	f := repo.OrderListFilter{Page: 1, Limit: 50}
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return writeFail(c, http.StatusBadRequest, "invalid page")
		}
		f.Page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return writeFail(c, http.StatusBadRequest, "invalid limit")
		}
		f.Limit = l
	}
	f.Status = c.QueryParam("status")
	if v := c.QueryParam("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return writeFail(c, http.StatusBadRequest, "invalid userId")
		}
		f.UserID = &id
	}

	outs, err := h.uc.List(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return writeSuccess(c, http.StatusOK, outs)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	actor, ok := getActingUser(c)
	if !ok {
		return writeFail(c, http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseOrderID(c)
	if err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid id")
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.logger, err)
	}

	if err := h.uc.UpdateStatus(c.Request().Context(), actor, id, req.Status); err != nil {
		return writeError(c, h.logger, err)
	}
	return writeSuccess(c, http.StatusOK, echo.Map{"orderId": id, "status": req.Status})
}

func (h *AdminOrderHandler) addNote(c echo.Context) error {
	actor, ok := getActingUser(c)
	if !ok {
		return writeFail(c, http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseOrderID(c)
	if err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid id")
	}

	var req addNoteRequest
	if err := c.Bind(&req); err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.logger, err)
	}

	out, err := h.uc.AddNote(c.Request().Context(), actor, id, req.Note)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return writeSuccess(c, http.StatusOK, out)
}

func (h *AdminOrderHandler) processRefund(c echo.Context) error {
	actor, ok := getActingUser(c)
	if !ok {
		return writeFail(c, http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseOrderID(c)
	if err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid id")
	}

	var req processRefundRequest
	if err := c.Bind(&req); err != nil {
		return writeFail(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.logger, err)
	}

	out, err := h.uc.ProcessRefund(c.Request().Context(), actor, id, req.Amount, req.Reason)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return writeSuccess(c, http.StatusOK, out)
}
