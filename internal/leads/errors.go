package leads

import (
	"encoding/json"
	"net/http"

	"github.com/corprag/leadgate/internal/form"
)

// Code is the machine-readable error identifier returned to the page.
type Code string

const (
	CodeForbiddenOrigin       Code = "FORBIDDEN_ORIGIN"
	CodeRateLimited           Code = "RATE_LIMITED"
	CodeInvalidPayload        Code = "INVALID_PAYLOAD"
	CodeUnexpectedFields      Code = "UNEXPECTED_FIELDS"
	CodeValidationError       Code = "VALIDATION_ERROR"
	CodeCSRFMismatch          Code = "CSRF_MISMATCH"
	CodeTelegramNotConfigured Code = "TELEGRAM_NOT_CONFIGURED"
	CodeTelegramUnavailable   Code = "TELEGRAM_UNAVAILABLE"
	CodeInternalError         Code = "INTERNAL_ERROR"
)

// User-facing messages.  Internal details never go into these.
const (
	msgForbiddenOrigin  = "Неверный источник запроса."
	msgRateLimited      = "Слишком много запросов. Попробуйте чуть позже."
	msgUnreadableBody   = "Не удалось прочитать тело запроса."
	msgBadSize          = "Некорректный размер запроса."
	msgBadJSON          = "Некорректный JSON."
	msgNotObject        = "Ожидался JSON-объект."
	msgUnexpectedFields = "Запрос содержит неподдерживаемые поля."
	msgValidation       = "Проверьте корректность заполнения полей."
	msgCSRFMismatch     = "Сессия формы устарела. Обновите страницу и попробуйте снова."
	msgNotConfigured    = "Приём заявок временно недоступен. Попробуйте позже."
	msgUnavailable      = "Не удалось отправить заявку. Повторите попытку через минуту."
	msgUsePOST          = "Используйте метод POST."
	msgInternal         = "Внутренняя ошибка сервера. Попробуйте позже."
)

// APIError is the body of every failed response.
type APIError struct {
	Code    Code             `json:"code"`
	Message string           `json:"message"`
	Fields  form.FieldErrors `json:"fields,omitempty"`
}

type errorEnvelope struct {
	OK    bool     `json:"ok"`
	Error APIError `json:"error"`
}

type successEnvelope struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"requestId,omitempty"`
	CSRFToken string `json:"csrfToken,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code Code, msg string, fields form.FieldErrors) {
	writeJSON(w, status, errorEnvelope{
		Error: APIError{Code: code, Message: msg, Fields: fields},
	})
}
