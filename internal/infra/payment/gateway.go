package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bookstore/internal/domain/model"
)

// HTTPGateway は決済ゲートウェイの照会APIを叩く。
// リクエスト: POST {url} {"txn_ref": "..."}
// レスポンス: {"status": "pending|paid|failed|canceled"}
type HTTPGateway struct {
	url    string
	client *http.Client
}

func NewHTTPGateway(url string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type queryRequest struct {
	TxnRef string `json:"txn_ref"`
}

type queryResponse struct {
	Status string `json:"status"`
}

func (g *HTTPGateway) QueryStatus(ctx context.Context, txnRef string) (model.PaymentStatus, error) {
	body, err := json.Marshal(queryRequest{TxnRef: txnRef})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gateway: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("gateway returned %d: %s", res.StatusCode, bytes.TrimSpace(msg))
	}

	var out queryResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}

	status := model.PaymentStatus(out.Status)
	switch status {
	case model.PaymentStatusPending, model.PaymentStatusPaid, model.PaymentStatusFailed, model.PaymentStatusCanceled:
		return status, nil
	}
	return "", fmt.Errorf("gateway returned unknown status %q", out.Status)
}

// 代引きは外部に問い合わせる先が無い。完了時に注文側で paid にする。
type CODGateway struct{}

func (CODGateway) QueryStatus(ctx context.Context, txnRef string) (model.PaymentStatus, error) {
	return model.PaymentStatusPending, nil
}
