// Package llm 外部文本生成服务客户端（OpenAI / Gemini）
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/config"
)

var (
	ErrNotConfigured = errors.New("llm: provider not configured")
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Provider 根据系统提示和用户输入生成回复
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// New 按配置创建 Provider，未配置时返回 ErrNotConfigured
func New(cfg config.ChatbotConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	client := newHTTPClient(cfg.MaxRetries, cfg.Timeout())
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAI(client, cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "gemini":
		return NewGemini(client, cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, ErrNotConfigured
	}
}

func newHTTPClient(maxRetries int, timeout time.Duration) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	if maxRetries < 0 {
		maxRetries = 0
	}
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = leveledLogger{entry: log.WithField("component", "llm")}
	return rc
}

// leveledLogger 将 retryablehttp 日志转到 logrus
type leveledLogger struct {
	entry *log.Entry
}

func (l leveledLogger) fields(kv []interface{}) *log.Entry {
	e := l.entry
	for i := 0; i+1 < len(kv); i += 2 {
		e = e.WithField(fmt.Sprint(kv[i]), kv[i+1])
	}
	return e
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.fields(kv).Error(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.fields(kv).Debug(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.fields(kv).Debug(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.fields(kv).Warn(msg) }

func postJSON(ctx context.Context, client *retryablehttp.Client, url string, headers map[string]string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("llm: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
