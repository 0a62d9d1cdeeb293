package domain

import "time"

// TrackingEvent — одно событие в истории перемещений отправления.
type TrackingEvent struct {
	Date     time.Time `json:"date"`
	Text     string    `json:"text"`
	Location string    `json:"location"`
	Code     string    `json:"code"`
}

// TrackingRecord — нормализованный ответ курьерского провайдера.
type TrackingRecord struct {
	TrackingNumber    string          `json:"tracking_number"`
	Courier           string          `json:"courier"`
	CurrentStatus     string          `json:"current_status"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	Events            []TrackingEvent `json:"events"`
}

// TrackingResult — элемент ответа батч-запроса: либо запись, либо ошибка
// по конкретному номеру. Ошибка одного номера не роняет весь батч.
type TrackingResult struct {
	TrackingNumber string          `json:"tracking_number"`
	Record         *TrackingRecord `json:"record,omitempty"`
	Err            string          `json:"error,omitempty"`
}
