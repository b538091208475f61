package scan

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// maxBodyBytes 请求体大小上限
const maxBodyBytes = 64 << 10

// bindRequest 先读取 query，再用 JSON body 覆盖同名字段，最后统一校验
func bindRequest(c *gin.Context, req interface{}) error {
	if err := binding.MapFormWithTag(req, c.Request.URL.Query(), "form"); err != nil {
		return &errBadRequest{err: err}
	}

	if c.Request.Body != nil && !strings.Contains(c.ContentType(), "form") {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			return &errBadRequest{err: err}
		}
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, req); err != nil {
				return &errBadRequest{err: err}
			}
		}
	}

	if err := binding.Validator.ValidateStruct(req); err != nil {
		return &errBadRequest{err: err}
	}
	return nil
}
