package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/lifecycle"
)

type handler struct {
	engine  *lifecycle.Engine
	tracker domain.CourierTracker
	logger  *log.Entry
}

// actorFrom извлекает актора из заголовков. Механика сессий вне рамок
// сервиса: аутентификация происходит выше по цепочке, сюда приходит
// уже проверенная личность.
func actorFrom(c *gin.Context) domain.Actor {
	role := domain.RoleCustomer
	if strings.EqualFold(c.GetHeader("X-User-Role"), string(domain.RoleAdmin)) {
		role = domain.RoleAdmin
	}
	return domain.Actor{
		ID:   c.GetHeader("X-User-Id"),
		Role: role,
	}
}

// errorBody — стабильная форма ошибки: машинная категория плюс сообщение,
// без внутренних деталей.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (h *handler) writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindInvalidInput:
		status = http.StatusBadRequest
	case domain.KindInvalidTransition:
		status = http.StatusConflict
	case domain.KindUpstreamUnavailable:
		status = http.StatusServiceUnavailable
	}

	message := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		// Наружу уходит только сообщение без обёрнутой причины.
		message = de.Message
	}
	if kind == domain.KindInternal {
		h.logger.WithError(err).Error("internal error")
		message = "internal error"
	}

	c.JSON(status, gin.H{"error": errorBody{Kind: string(kind), Message: message}})
}

// orderResponse — проекция заказа для ответа API.
type orderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"order_number"`
	CustomerID     string              `json:"customer_id"`
	Status         string              `json:"status"`
	PaymentMethod  string              `json:"payment_method"`
	PaymentStatus  string              `json:"payment_status"`
	Currency       string              `json:"currency"`
	SubtotalMinor  int64               `json:"subtotal_minor"`
	ShippingMinor  int64               `json:"shipping_minor"`
	TaxMinor       int64               `json:"tax_minor"`
	TotalMinor     int64               `json:"total_minor"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	CourierService string              `json:"courier_service,omitempty"`
	Items          []orderItemResponse `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
	OrderType  string `json:"order_type"`
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			OrderType:  string(item.OrderType),
		})
	}
	return orderResponse{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerID:     order.CustomerID,
		Status:         string(order.Status),
		PaymentMethod:  string(order.PaymentMethod),
		PaymentStatus:  string(order.PaymentStatus),
		Currency:       order.Currency,
		SubtotalMinor:  order.SubtotalMinor,
		ShippingMinor:  order.ShippingMinor,
		TaxMinor:       order.TaxMinor,
		TotalMinor:     order.TotalMinor,
		TrackingNumber: order.TrackingNumber,
		CourierService: order.CourierService,
		Items:          items,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

// getOrder — GET /v1/orders/:id. Трекинг добавляется по возможности:
// его недоступность не роняет чтение.
func (h *handler) getOrder(c *gin.Context) {
	projection, err := h.engine.Get(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	body := gin.H{"order": toOrderResponse(projection.Order)}
	if projection.Tracking != nil {
		body["tracking"] = projection.Tracking
	}
	if projection.TrackingUnavailable {
		body["tracking_unavailable"] = true
	}
	c.JSON(http.StatusOK, body)
}

// getAuditTrail — GET /v1/orders/:id/audit.
func (h *handler) getAuditTrail(c *gin.Context) {
	records, err := h.engine.AuditTrail(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	type auditResponse struct {
		ID        string         `json:"id"`
		ActorID   string         `json:"actor_id"`
		Action    string         `json:"action"`
		Details   map[string]any `json:"details,omitempty"`
		CreatedAt time.Time      `json:"created_at"`
	}

	body := make([]auditResponse, 0, len(records))
	for _, record := range records {
		body = append(body, auditResponse{
			ID:        record.ID,
			ActorID:   record.ActorID,
			Action:    string(record.Action),
			Details:   record.Details,
			CreatedAt: record.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"audit": body})
}

// confirmOrder — POST /v1/orders/:id/confirm.
func (h *handler) confirmOrder(c *gin.Context) {
	order, err := h.engine.Confirm(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": toOrderResponse(order)})
}

type shipRequest struct {
	TrackingNumber string `json:"tracking_number"`
	CourierService string `json:"courier_service"`
}

// shipOrder — POST /v1/orders/:id/ship.
func (h *handler) shipOrder(c *gin.Context) {
	var req shipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.E(domain.KindInvalidInput, "malformed request body"))
		return
	}

	order, err := h.engine.Ship(c.Request.Context(), c.Param("id"),
		req.TrackingNumber, req.CourierService, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": toOrderResponse(order)})
}

// cancelOrder — POST /v1/orders/:id/cancel.
func (h *handler) cancelOrder(c *gin.Context) {
	order, err := h.engine.Cancel(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": toOrderResponse(order)})
}

// deliverOrder — POST /v1/orders/:id/deliver.
func (h *handler) deliverOrder(c *gin.Context) {
	order, err := h.engine.MarkDelivered(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": toOrderResponse(order)})
}

type forceTrackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
	CourierService string `json:"courier_service"`
	Status         string `json:"status"`
}

// forceTracking — POST /v1/orders/:id/tracking, привилегированная коррекция.
func (h *handler) forceTracking(c *gin.Context) {
	var req forceTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.E(domain.KindInvalidInput, "malformed request body"))
		return
	}

	order, err := h.engine.ForceTracking(c.Request.Context(), c.Param("id"),
		req.TrackingNumber, req.CourierService, req.Status, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": toOrderResponse(order)})
}

type returnRequestBody struct {
	Reason string `json:"reason"`
}

// requestReturn — POST /v1/orders/:id/returns.
func (h *handler) requestReturn(c *gin.Context) {
	var req returnRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.E(domain.KindInvalidInput, "malformed request body"))
		return
	}

	request, err := h.engine.RequestReturn(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"return": gin.H{
		"id":         request.ID,
		"order_id":   request.OrderID,
		"status":     string(request.Status),
		"reason":     request.Reason,
		"created_at": request.CreatedAt,
	}})
}

// trackPackage — GET /v1/tracking/:number?courier=...
func (h *handler) trackPackage(c *gin.Context) {
	if h.tracker == nil {
		h.writeError(c, domain.E(domain.KindUpstreamUnavailable, "tracking is not enabled"))
		return
	}

	record, err := h.tracker.Track(c.Request.Context(), c.Param("number"), c.Query("courier"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracking": record})
}

type trackBatchRequest struct {
	TrackingNumbers []string `json:"tracking_numbers"`
	Courier         string   `json:"courier"`
}

// trackBatch — POST /v1/tracking/batch. Всегда один результат либо одна
// ошибка на каждый вход; один сбойный номер не роняет весь батч.
func (h *handler) trackBatch(c *gin.Context) {
	if h.tracker == nil {
		h.writeError(c, domain.E(domain.KindUpstreamUnavailable, "tracking is not enabled"))
		return
	}

	var req trackBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.E(domain.KindInvalidInput, "malformed request body"))
		return
	}
	if len(req.TrackingNumbers) == 0 {
		h.writeError(c, domain.E(domain.KindInvalidInput, "tracking_numbers must not be empty"))
		return
	}

	results := h.tracker.TrackMany(c.Request.Context(), req.TrackingNumbers, req.Courier)
	c.JSON(http.StatusOK, gin.H{"results": results})
}
