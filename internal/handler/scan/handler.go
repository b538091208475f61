/**
 * 扫描处理器层:扫描 HTTP 请求处理
 * @author: Sun977
 * @date: 2026.01.26
 * @description: 绑定并校验请求 DTO，提交扫描任务，将报告转换为响应结构
 * @func: 端口扫描、漏洞扫描、SSL 检查、历史查询
 */
package scan

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"neoscanner/internal/core/model"
	"neoscanner/internal/model/base"
	scanModel "neoscanner/internal/model/scan"
	scanService "neoscanner/internal/service/scan"
)

// ScanHandler 扫描处理器
type ScanHandler struct {
	scanService scanService.ScanService
}

// NewScanHandler 创建扫描处理器实例
func NewScanHandler(scanService scanService.ScanService) *ScanHandler {
	scanModel.RegisterValidators()
	return &ScanHandler{
		scanService: scanService,
	}
}

// scanRequest 三种扫描请求的共同行为
type scanRequest interface {
	ToTask() *model.Task
}

// run 绑定请求并执行扫描，失败时已写入错误响应
func (h *ScanHandler) run(c *gin.Context, operation string, req scanRequest) (*model.ScanReport, bool) {
	if err := bindRequest(c, req); err != nil {
		writeError(c, operation, err)
		return nil, false
	}

	report, err := h.scanService.Scan(c.Request.Context(), req.ToTask())
	if err != nil {
		writeError(c, operation, err)
		return nil, false
	}
	return report, true
}

// ScanPorts 端口扫描
// @Summary 端口扫描
// @Description TCP Connect 探测目标端口并识别服务
// @Tags scan
// @Param target query string true "IP/域名/CIDR"
// @Param ports query string false "端口表达式，默认 1-1000"
// @Success 200 {object} scanModel.PortScanResponse
// @Failure 400 {object} base.APIResponse
// @Router /scan/ports [post]
func (h *ScanHandler) ScanPorts(c *gin.Context) {
	var req scanModel.PortScanRequest
	report, ok := h.run(c, "scan_ports", &req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scanModel.NewPortScanResponse(report))
}

// ScanVulnerabilities 漏洞扫描
// @Summary 漏洞扫描
// @Description 端口探测、服务识别、TLS 检查、暴露面检查后按规则匹配风险
// @Tags scan
// @Param target query string true "IP/域名/CIDR"
// @Param ports query string false "端口表达式，默认 1-1000"
// @Success 200 {object} scanModel.VulnScanResponse
// @Failure 400 {object} base.APIResponse
// @Router /scan/vulnerabilities [post]
func (h *ScanHandler) ScanVulnerabilities(c *gin.Context) {
	var req scanModel.VulnScanRequest
	report, ok := h.run(c, "scan_vulnerabilities", &req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scanModel.NewVulnScanResponse(report))
}

// ScanSSL TLS 检查
// @Summary SSL/TLS 检查
// @Tags scan
// @Param target query string true "域名/IP，可写成 host:port"
// @Param port query int false "端口，默认 443"
// @Success 200 {object} scanModel.SSLScanResponse
// @Failure 400 {object} base.APIResponse
// @Router /scan/ssl [post]
func (h *ScanHandler) ScanSSL(c *gin.Context) {
	var req scanModel.SSLScanRequest
	report, ok := h.run(c, "scan_ssl", &req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scanModel.NewSSLScanResponse(report))
}

// ListScans 最近的扫描记录
// @Router /scans [get]
func (h *ScanHandler) ListScans(c *gin.Context) {
	var req scanModel.ListScansRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, "list_scans", &errBadRequest{err: err})
		return
	}

	records, err := h.scanService.ListScans(c.Request.Context(), req.Limit)
	if err != nil {
		writeError(c, "list_scans", err)
		return
	}
	c.JSON(http.StatusOK, base.Success(http.StatusOK, "ok", scanModel.ScanListResponse{
		Total: len(records),
		Items: records,
	}))
}

// GetScan 单条扫描记录
// @Router /scans/{id} [get]
func (h *ScanHandler) GetScan(c *gin.Context) {
	record, err := h.scanService.GetScan(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "get_scan", err)
		return
	}
	c.JSON(http.StatusOK, base.Success(http.StatusOK, "ok", record))
}
