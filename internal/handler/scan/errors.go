package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"neoscanner/internal/core/model"
	"neoscanner/internal/model/base"
	"neoscanner/internal/pkg/logger"
	"neoscanner/internal/pkg/utils"
	historyRepo "neoscanner/internal/repo/redis"
)

// errBadRequest 请求参数绑定或校验失败
type errBadRequest struct {
	err error
}

func (e *errBadRequest) Error() string { return e.err.Error() }
func (e *errBadRequest) Unwrap() error { return e.err }

// statusFor 将错误映射为 HTTP 状态码与提示信息
func statusFor(err error) (int, string) {
	var bad *errBadRequest
	var rl *model.RangeTooLargeError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "Invalid request parameters"
	case errors.As(err, &rl):
		return http.StatusBadRequest, "Target range too large"
	case model.IsRequestError(err):
		return http.StatusBadRequest, "Invalid scan target or port specification"
	case errors.Is(err, historyRepo.ErrRecordNotFound):
		return http.StatusNotFound, "Scan record not found"
	case errors.Is(err, historyRepo.ErrHistoryDisabled):
		return http.StatusNotFound, "Scan history is disabled"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Scan interrupted"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeError 统一错误响应，5xx 记录错误日志，4xx 记录警告
func writeError(c *gin.Context, operation string, err error) {
	code, message := statusFor(err)
	clientIP := utils.GetClientIP(c)
	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = c.GetHeader("X-Request-ID")
	}

	if code >= http.StatusInternalServerError {
		logger.LogError(err, requestID, clientIP, c.Request.URL.Path, c.Request.Method, map[string]interface{}{
			"operation":   operation,
			"status_code": code,
		})
	} else {
		logger.WithFields(logrus.Fields{
			"operation":   operation,
			"path":        c.Request.URL.Path,
			"client_ip":   clientIP,
			"request_id":  requestID,
			"status_code": code,
			"error":       err.Error(),
		}).Warn("扫描请求被拒绝")
	}

	c.JSON(code, base.Failed(code, message, errors.New(errorDetail(err))))
}

// errorDetail 校验错误按字段展开，其余直接使用错误文本
func errorDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fieldMessage(fe))
		}
		return strings.Join(parts, "; ")
	}
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntax) || errors.As(err, &typeErr) {
		return "invalid JSON body: " + err.Error()
	}
	return err.Error()
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "portspec":
		return fmt.Sprintf("%s %q is not a valid port specification", field, fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}
