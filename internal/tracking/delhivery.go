package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultRequestTimeout = 10 * time.Second

// DelhiveryProvider опрашивает трекинг-API Delhivery по HTTP.
type DelhiveryProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logrus.Entry
}

// NewDelhiveryProvider создаёт провайдера с таймаутом запроса.
func NewDelhiveryProvider(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *DelhiveryProvider {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DelhiveryProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithField("component", "tracking.delhivery"),
	}
}

// delhiveryResponse — сырой ответ API до нормализации.
type delhiveryResponse struct {
	ShipmentData []struct {
		Shipment struct {
			AWB    string `json:"AWB"`
			Status struct {
				Status       string `json:"Status"`
				StatusDate   string `json:"StatusDateTime"`
				Location     string `json:"StatusLocation"`
				Instructions string `json:"Instructions"`
			} `json:"Status"`
			ExpectedDeliveryDate string `json:"ExpectedDeliveryDate"`
			Scans                []struct {
				ScanDetail struct {
					Scan         string `json:"Scan"`
					ScanDateTime string `json:"ScanDateTime"`
					Location     string `json:"ScannedLocation"`
					StatusCode   string `json:"StatusCode"`
				} `json:"ScanDetail"`
			} `json:"Scans"`
		} `json:"Shipment"`
	} `json:"ShipmentData"`
}

const delhiveryTimeLayout = "2006-01-02T15:04:05"

// GetTracking выполняет запрос и нормализует ответ.
func (p *DelhiveryProvider) GetTracking(ctx context.Context, trackingNumber string) (*domain.TrackingRecord, error) {
	endpoint := fmt.Sprintf("%s/api/v1/packages/json/?waybill=%s", p.baseURL, url.QueryEscape(trackingNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build tracking request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Token "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.KindUpstreamUnavailable, "courier provider unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.Errorf(domain.KindNotFound, "tracking number %s not found", trackingNumber)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, "courier provider returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, domain.Errorf(domain.KindInternal, "unexpected courier provider status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.Wrap(domain.KindUpstreamUnavailable, "read courier response", err)
	}

	var raw delhiveryResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, domain.Wrap(domain.KindInternal, "parse courier response", err)
	}

	if len(raw.ShipmentData) == 0 {
		return nil, domain.Errorf(domain.KindNotFound, "tracking number %s not found", trackingNumber)
	}

	return p.mapToRecord(trackingNumber, raw), nil
}

func (p *DelhiveryProvider) mapToRecord(trackingNumber string, raw delhiveryResponse) *domain.TrackingRecord {
	shipment := raw.ShipmentData[0].Shipment

	record := &domain.TrackingRecord{
		TrackingNumber: trackingNumber,
		Courier:        DefaultCourier,
		CurrentStatus:  shipment.Status.Status,
		Events:         make([]domain.TrackingEvent, 0, len(shipment.Scans)),
	}

	if shipment.ExpectedDeliveryDate != "" {
		if eta, err := time.Parse(delhiveryTimeLayout, shipment.ExpectedDeliveryDate); err == nil {
			record.EstimatedDelivery = &eta
		} else {
			p.logger.WithField("value", shipment.ExpectedDeliveryDate).
				Warn("unparseable expected delivery date")
		}
	}

	for _, scan := range shipment.Scans {
		detail := scan.ScanDetail
		date, err := time.Parse(delhiveryTimeLayout, detail.ScanDateTime)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"value": detail.ScanDateTime,
				"scan":  detail.Scan,
			}).Warn("unparseable scan timestamp, event kept with zero time")
		}
		record.Events = append(record.Events, domain.TrackingEvent{
			Date:     date,
			Text:     detail.Scan,
			Location: detail.Location,
			Code:     detail.StatusCode,
		})
	}

	return record
}

// SupportsCourier — адаптер обслуживает только delhivery.
func (p *DelhiveryProvider) SupportsCourier(courierName string) bool {
	return courierName == DefaultCourier
}

var _ Provider = (*DelhiveryProvider)(nil)
