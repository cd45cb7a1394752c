// integrations/qrcode/qrtiger.go
package qrcode

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ambassador-program/services"

	"github.com/go-resty/resty/v2"
)

const (
	gatewayName = "qrtiger"
	logoURL     = "https://media.qrtiger.com/images/2025/09/logo-(1)_82.png"
)

// QRTigerClient creates dynamic QR campaigns, renames them and files them
// into the configured folder.
type QRTigerClient struct {
	http     *resty.Client
	folderID string
}

func NewQRTigerClient(baseURL, apiKey, folderID string, timeout time.Duration) *QRTigerClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &QRTigerClient{http: client, folderID: folderID}
}

func campaignPayload(targetURL string) map[string]any {
	return map[string]any{
		"qrType":     "qr2",
		"qrCategory": "url",
		"qrUrl":      targetURL,
		"qrName":     "referral",
		"qr": map[string]any{
			"colorDark":           "rgb(0,0,0)",
			"colorType":           "SINGLE_COLOR",
			"frameColor":          "#054080",
			"frameColor2":         "#3a74c5",
			"frameColorStyleType": "SINGLE_COLOR",
			"frameText":           "Scan me",
			"eye_outer":           "eyeOuter2",
			"eye_inner":           "eyeInner1",
			"size":                500,
			"qrData":              "pattern0",
			"transparentBkg":      false,
			"logo":                logoURL,
		},
	}
}

// CreateCampaign returns the campaign's qrId.
func (c *QRTigerClient) CreateCampaign(ctx context.Context, targetURL, name string) (string, error) {
	var created struct {
		QRID string `json:"qrId"`
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(campaignPayload(targetURL)).SetResult(&created).Post("/campaign/")
	if err := classify("create_campaign", resp, err); err != nil {
		return "", err
	}
	if created.QRID == "" {
		return "", &services.GatewayError{Gateway: gatewayName, Operation: "create_campaign", Status: resp.StatusCode(), Err: fmt.Errorf("response carried no qrId")}
	}

	var edited struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	resp, err = c.http.R().
		SetContext(ctx).
		SetPathParam("id", created.QRID).
		SetBody(map[string]string{"qrName": name}).
		SetResult(&edited).
		Post("/campaign/edit/{id}/")
	if err := classify("rename_campaign", resp, err); err != nil {
		return "", err
	}

	if c.folderID != "" && edited.Data.ID != "" {
		resp, err = c.http.R().
			SetContext(ctx).
			SetPathParam("folder", c.folderID).
			SetBody(map[string]any{"qrIds": []string{edited.Data.ID}}).
			Post("/folder/move/{folder}")
		if err := classify("move_campaign", resp, err); err != nil {
			return "", err
		}
	}
	return created.QRID, nil
}

func classify(operation string, resp *resty.Response, err error) error {
	if err != nil {
		return &services.GatewayError{Gateway: gatewayName, Operation: operation, Transient: true, Err: err}
	}
	if !resp.IsError() {
		return nil
	}
	code := resp.StatusCode()
	return &services.GatewayError{
		Gateway:   gatewayName,
		Operation: operation,
		Status:    code,
		Transient: code == http.StatusTooManyRequests || code >= http.StatusInternalServerError,
		Err:       fmt.Errorf("%s", strings.TrimSpace(resp.String())),
	}
}
