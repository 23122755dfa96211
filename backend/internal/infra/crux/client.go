// Package crux 封装 Chrome UX Report API 的查询客户端。
package crux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"crux-monitor-app/backend/internal/config"
)

const (
	// defaultBaseURL 为 CrUX records API 的默认入口地址。
	defaultBaseURL = "https://chromeuxreport.googleapis.com/v1"
	// defaultTimeout 控制单次 HTTP 请求的默认超时时间。
	defaultTimeout = 30 * time.Second

	envAPIKey  = "CRUX_API_KEY"
	envBaseURL = "CRUX_API_BASE_URL"
)

// APIError 封装 CrUX 返回的错误响应，便于上层识别。
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Error 实现 error 接口。
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Status != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Status)
	}
	return e.Message
}

// Options 描述构造客户端所需的配置。
type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// LoadOptionsFromEnv 从环境变量读取 CrUX 配置。
// API Key 缺失属于致命的启动配置错误，而不是调用期错误。
func LoadOptionsFromEnv() (Options, error) {
	config.LoadEnvFiles()

	key := strings.TrimSpace(os.Getenv(envAPIKey))
	if key == "" {
		return Options{}, fmt.Errorf("%s not set", envAPIKey)
	}

	return Options{
		APIKey:  key,
		BaseURL: strings.TrimSpace(os.Getenv(envBaseURL)),
	}, nil
}

// Client 封装与 CrUX API 的 HTTP 交互。
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient 构造 CrUX 客户端，默认 30 秒超时。
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("crux api key is required")
	}

	client := &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client, nil
}

// IsOrigin 判断字符串是否只包含 scheme+host（无路径、查询与锚点）。
// 满足条件的走 origin 查询，其余一律按完整 URL 查询。
func IsOrigin(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	rootPath := u.Path == "" || u.Path == "/"
	return rootPath && u.RawQuery == "" && u.Fragment == ""
}

// QueryRecord 查询单个站点的聚合性能记录。
// 核心步骤：判定 origin/url → 发起 queryRecord 请求 → 非 2xx 统一归一化为 *APIError，
// 成功时返回解析结果并在 Raw 中保留原始报文。
func (c *Client) QueryRecord(ctx context.Context, urlOrOrigin string) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(urlOrOrigin) == "" {
		return nil, fmt.Errorf("url or origin is required")
	}

	reqBody := queryRequest{}
	if IsOrigin(urlOrOrigin) {
		reqBody.Origin = urlOrOrigin
	} else {
		reqBody.URL = urlOrOrigin
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/records:queryRecord?key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, parseAPIError(resp.StatusCode, rawBody)
	}

	var parsed Response
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	parsed.Raw = rawBody
	return &parsed, nil
}

// parseAPIError 将非 2xx 响应归一化为 *APIError。
// 错误体解析失败时退化为由 HTTP 状态行合成的消息。
func parseAPIError(status int, payload []byte) error {
	var envelope struct {
		Error *APIError `json:"error"`
	}

	if err := json.Unmarshal(payload, &envelope); err == nil &&
		envelope.Error != nil && envelope.Error.Message != "" {
		apiErr := *envelope.Error
		if apiErr.Code == 0 {
			apiErr.Code = status
		}
		return &apiErr
	}

	return &APIError{
		Code:    status,
		Message: fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
		Status:  "ERROR",
	}
}
