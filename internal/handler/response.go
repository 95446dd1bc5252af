package handler

import (
	"net/http"

	"shopapi/internal/apperror"
	"shopapi/internal/domain/model"
	"shopapi/internal/middleware"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// レスポンスは成功 {"status":"success","data":...}、
// 失敗 {"status":"fail","message":...}（5xxはstatus=error）の封筒に揃える。

type successResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type failResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeSuccess(c echo.Context, code int, data any) error {
	return c.JSON(code, successResponse{Status: "success", Data: data})
}

func writeFail(c echo.Context, code int, message string) error {
	return c.JSON(code, failResponse{Status: "fail", Message: message})
}

func writeError(c echo.Context, logger *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case apperror.IsValidation(err), apperror.IsConflict(err):
		return writeFail(c, http.StatusBadRequest, err.Error())
	case apperror.IsNotFound(err):
		return writeFail(c, http.StatusNotFound, err.Error())
	case apperror.IsAuthorization(err):
		return writeFail(c, http.StatusForbidden, err.Error())
	}

	//想定外の失敗は原因をログに残して中身はクライアントに返さない
	logger.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Request().URL.Path),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, failResponse{Status: "error", Message: "internal error"})
}

// 認証ミドルウェアがcontextに入れた本人情報を取り出す
func getActingUser(c echo.Context) (usecase.ActingUser, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return usecase.ActingUser{}, false
	}
	role, ok := c.Get(middleware.CtxUserRoleKey).(string)
	if !ok || role == "" {
		return usecase.ActingUser{}, false
	}
	return usecase.ActingUser{ID: id, Role: model.Role(role)}, true
}
