/**
 * 通用响应结构体
 * @author: sun977
 * @date: 2025.10.21
 * @description: 通用API响应结构
 * @func: 定义了API响应的通用结构，包含状态码、状态、消息、数据、错误信息
 */

package base

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// APIResponse 通用API响应结构
type APIResponse struct {
	Code    int         `json:"code"`            // 响应状态码
	Status  string      `json:"status"`          // 响应状态："success" 或 "failed"
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据，可选
	Error   string      `json:"error,omitempty"` // 错误信息，可选
}

// Success 构造成功响应
func Success(code int, message string, data interface{}) APIResponse {
	return APIResponse{Code: code, Status: StatusSuccess, Message: message, Data: data}
}

// Failed 构造失败响应
func Failed(code int, message string, err error) APIResponse {
	resp := APIResponse{Code: code, Status: StatusFailed, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
