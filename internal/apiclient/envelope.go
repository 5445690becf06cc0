package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// Envelope 是后端统一的响应格式
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// FetchInto 发送请求并把响应中的 data 解码到 out。响应体为空时 out 保持不变。
func FetchInto(ctx context.Context, c *Client, path string, out any, opts ...Option) (*Envelope, error) {
	body, err := c.Fetch(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	env := &Envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env, fmt.Errorf("解析响应数据失败: %w", err)
		}
	}

	return env, nil
}
