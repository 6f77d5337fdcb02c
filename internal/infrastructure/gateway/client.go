// Package gateway wraps the external payment gateway API: mandate-based
// debit intents, connected-account transfers and refunds.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/config"
)

type HTTPGatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGatewayClient(cfg config.GatewayConfig) application.GatewayClient {
	return &HTTPGatewayClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

func (c *HTTPGatewayClient) CreateDebit(ctx context.Context, req application.DebitRequest, idempotencyKey string) (*application.DebitResponse, error) {
	url := fmt.Sprintf("%s/v1/debits", c.baseURL)
	return sendRequest[application.DebitRequest, application.DebitResponse](c, ctx, http.MethodPost, url, &req, idempotencyKey)
}

func (c *HTTPGatewayClient) CaptureDebit(ctx context.Context, intentID string) (*application.DebitResponse, error) {
	url := fmt.Sprintf("%s/v1/debits/%s/capture", c.baseURL, intentID)
	return sendRequest[any, application.DebitResponse](c, ctx, http.MethodPost, url, nil, "")
}

func (c *HTTPGatewayClient) CancelDebit(ctx context.Context, intentID string) (*application.DebitResponse, error) {
	url := fmt.Sprintf("%s/v1/debits/%s/cancel", c.baseURL, intentID)
	return sendRequest[any, application.DebitResponse](c, ctx, http.MethodPost, url, nil, "")
}

func (c *HTTPGatewayClient) RetrieveDebit(ctx context.Context, intentID string) (*application.DebitResponse, error) {
	url := fmt.Sprintf("%s/v1/debits/%s", c.baseURL, intentID)
	return sendRequest[any, application.DebitResponse](c, ctx, http.MethodGet, url, nil, "")
}

func (c *HTTPGatewayClient) CreateTransfer(ctx context.Context, req application.TransferRequest, idempotencyKey string) (*application.TransferResponse, error) {
	url := fmt.Sprintf("%s/v1/transfers", c.baseURL)
	return sendRequest[application.TransferRequest, application.TransferResponse](c, ctx, http.MethodPost, url, &req, idempotencyKey)
}

func (c *HTTPGatewayClient) RetrieveMandateStatus(ctx context.Context, payerHandle string) (application.MandateStatus, error) {
	url := fmt.Sprintf("%s/v1/mandates/%s", c.baseURL, payerHandle)
	resp, err := sendRequest[any, mandateStatusResponse](c, ctx, http.MethodGet, url, nil, "")
	if err != nil {
		if gwErr, ok := application.IsGatewayError(err); ok && gwErr.StatusCode == http.StatusNotFound {
			return application.MandateNone, nil
		}
		return "", err
	}
	return application.MandateStatus(resp.Status), nil
}

func (c *HTTPGatewayClient) RetrieveAccountStatus(ctx context.Context, payeeHandle string) (*application.AccountStatus, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s", c.baseURL, payeeHandle)
	return sendRequest[any, application.AccountStatus](c, ctx, http.MethodGet, url, nil, "")
}

func (c *HTTPGatewayClient) Refund(ctx context.Context, req application.RefundRequest, idempotencyKey string) (*application.RefundResponse, error) {
	url := fmt.Sprintf("%s/v1/refunds", c.baseURL)
	return sendRequest[application.RefundRequest, application.RefundResponse](c, ctx, http.MethodPost, url, &req, idempotencyKey)
}

type mandateStatusResponse struct {
	Status string `json:"status"`
}

type gatewayErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func sendRequest[Req any, Resp any](c *HTTPGatewayClient, ctx context.Context, method, url string, reqBody *Req, idempotencyKey string) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var gwErrResp gatewayErrorResponse
		if err := json.Unmarshal(body, &gwErrResp); err != nil {
			return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, &application.GatewayError{
			Code:       gwErrResp.Err,
			Message:    gwErrResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var gwResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&gwResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &gwResp, nil
}
