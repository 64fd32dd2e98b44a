package gemini

import (
	"context"
	"net"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 180 * time.Second

// HTTPOptions 传输层配置
type HTTPOptions struct {
	// PreferIPv4 部分网络环境下 IPv6 出口不可用
	PreferIPv4 bool
	Timeout    time.Duration
}

// NewHTTPClient 创建调用模型 API 的 HTTP 客户端
// 图像生成耗时长，响应头超时单独放宽
func NewHTTPClient(opts HTTPOptions) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if opts.PreferIPv4 {
				return dialer.DialContext(ctx, "tcp4", addr)
			}
			return dialer.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
