// internal/types/response.go
package types

import "time"

// Status результат операции в ответе.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Stage этап подготовки обмена.
type Stage string

const (
	StageStart      Stage = "START"
	StageConnecting Stage = "CONNECTING"
	StageQuoting    Stage = "QUOTING"
	StageBuilding   Stage = "BUILDING"
	StageReady      Stage = "READY"
	StageFailed     Stage = "FAILED"

	// этапы исполнения
	StageValidating Stage = "VALIDATING"
	StageSubmitting Stage = "SUBMITTING"
	StageConfirming Stage = "CONFIRMING"
	StageConfirmed  Stage = "CONFIRMED"
)

// Metadata присутствует в каждом ответе, в том числе в ответе с ошибкой.
type Metadata struct {
	QuoteID    string `json:"quoteId"`
	PreparedAt int64  `json:"preparedAt"`
	ExpiresAt  int64  `json:"expiresAt"`
	Stage      Stage  `json:"stage,omitempty"`
}

// Expired котировка непригодна к отправке, когда now > ExpiresAt.
func (m Metadata) Expired(now time.Time) bool {
	return now.UnixMilli() > m.ExpiresAt
}

// NewFailureMetadata метаданные для ответа без котировки: пустой quoteId
// и реальные временные метки.
func NewFailureMetadata(now time.Time, stage Stage) Metadata {
	return Metadata{
		PreparedAt: now.UnixMilli(),
		ExpiresAt:  now.Add(QuoteValidity).UnixMilli(),
		Stage:      stage,
	}
}

// ResponseData полезная нагрузка успешного ответа.
type ResponseData struct {
	Quote            *Quote            `json:"quote,omitempty"`
	SwapInstructions *SwapInstructions `json:"swapInstructions,omitempty"`
	Signature        string            `json:"signature,omitempty"`
}

// SwapResponse единая форма ответа для quote, prepare и execute.
type SwapResponse struct {
	Status    Status        `json:"status"`
	Data      *ResponseData `json:"data,omitempty"`
	Error     string        `json:"error,omitempty"`
	Metadata  Metadata      `json:"metadata"`
	Signature string        `json:"signature,omitempty"`
}

// Succeeded ответ содержит данные.
func (r SwapResponse) Succeeded() bool {
	return r.Status == StatusSuccess && r.Data != nil
}

// SuccessResponse собирает успешный ответ.
func SuccessResponse(data *ResponseData, meta Metadata) SwapResponse {
	return SwapResponse{Status: StatusSuccess, Data: data, Metadata: meta}
}

// ErrorResponse собирает ответ с ошибкой; сообщение очищается всегда.
func ErrorResponse(err error, meta Metadata) SwapResponse {
	return SwapResponse{
		Status:   StatusError,
		Error:    SanitizeError(err),
		Metadata: meta,
	}
}
