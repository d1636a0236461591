package contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Ответы сервера
const (
	MsgReceived      = "¡Mensaje recibido! Gracias por contactarnos."
	MsgMissingFields = "Faltan campos requeridos"
	MsgInvalidJSON   = "JSON inválido"
	MsgTooManyTries  = "Demasiadas solicitudes. Intenta más tarde."
)

// Сообщения формы на странице
const (
	MsgClientRequired     = "Por favor, completa todos los campos requeridos"
	MsgClientInvalidEmail = "Introduce un correo electrónico válido."
)

var (
	ErrInvalidJSON   = errors.New(MsgInvalidJSON)
	ErrMissingFields = errors.New(MsgMissingFields)

	ErrClientRequired     = errors.New(MsgClientRequired)
	ErrClientInvalidEmail = errors.New(MsgClientInvalidEmail)
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Submission заявка с формы контактов
type Submission struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Service    string    `json:"service,omitempty"`
	Message    string    `json:"message"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Parse разбирает тело запроса. Пустое тело считается пустым объектом.
// Обязательные поля name, email, message должны быть непустыми (в смысле JSON:
// не null, не false, не 0, не пустая строка).
func Parse(body []byte) (*Submission, error) {
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if raw == nil {
		return nil, ErrInvalidJSON
	}

	fields, ok := raw.(map[string]any)
	if !ok || !truthy(fields["name"]) || !truthy(fields["email"]) || !truthy(fields["message"]) {
		return nil, ErrMissingFields
	}

	return &Submission{
		ID:         uuid.NewString(),
		Name:       text(fields["name"]),
		Email:      text(fields["email"]),
		Service:    text(fields["service"]),
		Message:    text(fields["message"]),
		ReceivedAt: time.Now(),
	}, nil
}

// ValidateClient повторяет проверку формы на странице перед отправкой
func ValidateClient(name, email, message string) error {
	if name == "" || email == "" || message == "" {
		return ErrClientRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrClientInvalidEmail
	}
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	default:
		// Объекты и массивы истинны даже пустыми
		return true
	}
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
