// Package gateway is the HTTP client for the payment gateway's refund and
// settlement APIs. All amounts cross this boundary in minor currency
// units.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	SpeedNormal  = "normal"
	SpeedOptimum = "optimum"
)

// Error is a failure reported by the gateway itself, carried separately
// from transport errors so callers can tell the two apart.
type Error struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Description)
}

type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

// NewClient builds a gateway client. The timeout bounds every outbound
// call; no call blocks indefinitely.
func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: timeout},
	}
}

// RefundRequest initiates a refund against a captured payment.
type RefundRequest struct {
	Amount int64             `json:"amount"`
	Speed  string            `json:"speed,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

// RefundResult is the gateway's record of the refund.
type RefundResult struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	SpeedRequested string `json:"speed_requested"`
	AcquirerData   struct {
		ARN string `json:"arn"`
	} `json:"acquirer_data"`
}

// Refund asks the gateway to refund part or all of a captured payment.
func (c *Client) Refund(ctx context.Context, gatewayPaymentID string, req RefundRequest) (RefundResult, error) {
	var result RefundResult
	path := fmt.Sprintf("/v1/payments/%s/refund", gatewayPaymentID)
	if err := c.do(ctx, http.MethodPost, path, nil, req, &result); err != nil {
		return RefundResult{}, err
	}
	return result, nil
}

// SettlementParams pages through settlement batches. From and To are Unix
// seconds.
type SettlementParams struct {
	Count int
	Skip  int
	From  int64
	To    int64
}

// Settlement is one gateway payout batch.
type Settlement struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Fees      int64  `json:"fees"`
	Tax       int64  `json:"tax"`
	UTR       string `json:"utr"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// ListSettlements returns one page of settlement batches. The gateway
// reports no total count; callers infer has-more from the page length.
func (c *Client) ListSettlements(ctx context.Context, p SettlementParams) ([]Settlement, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(p.Count))
	q.Set("skip", strconv.Itoa(p.Skip))
	if p.From > 0 {
		q.Set("from", strconv.FormatInt(p.From, 10))
	}
	if p.To > 0 {
		q.Set("to", strconv.FormatInt(p.To, 10))
	}

	var page struct {
		Items []Settlement `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/settlements", q, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// ReconParams pages through the recon items of a settlement cycle.
type ReconParams struct {
	Year  int
	Month int
	Count int
	Skip  int
}

// ReconItem is one payment, refund or adjustment inside a settlement.
type ReconItem struct {
	EntityType   string `json:"type"`
	EntityID     string `json:"entity_id"`
	Amount       int64  `json:"amount"`
	Fee          int64  `json:"fee"`
	Tax          int64  `json:"tax"`
	SettlementID string `json:"settlement_id"`
	SettledAt    int64  `json:"settled_at"`
}

// ListReconItems returns one page of recon items for a settlement cycle.
func (c *Client) ListReconItems(ctx context.Context, p ReconParams) ([]ReconItem, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(p.Year))
	q.Set("month", strconv.Itoa(p.Month))
	q.Set("count", strconv.Itoa(p.Count))
	q.Set("skip", strconv.Itoa(p.Skip))

	var page struct {
		Items []ReconItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/settlements/recon/combined", q, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return &Error{
			StatusCode:  resp.StatusCode,
			Code:        failure.Error.Code,
			Description: failure.Error.Description,
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("gateway response decode failed: %w", err)
		}
	}
	return nil
}
