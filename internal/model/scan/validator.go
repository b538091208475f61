package scan

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"neoscanner/internal/core/pipeline"
)

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验引擎注册自定义规则，可重复调用
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("portspec", validatePortSpec)
		}
	})
}

// validatePortSpec 端口表达式语法校验，数量上限由 runner 按配置检查
func validatePortSpec(fl validator.FieldLevel) bool {
	_, err := pipeline.ParsePortSpec(fl.Field().String())
	return err == nil
}
