package contact

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitio/sitio/internal/logger"
	"github.com/sitio/sitio/internal/worker"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"valid", `{"name":"Ana","email":"a@b.com","service":"web","message":"hi"}`, nil},
		{"empty name", `{"name":"","email":"a@b.com","message":"hi"}`, ErrMissingFields},
		{"missing message", `{"name":"Ana","email":"a@b.com"}`, ErrMissingFields},
		{"empty body", ``, ErrMissingFields},
		{"empty object", `{}`, ErrMissingFields},
		{"array", `[1,2]`, ErrMissingFields},
		{"zero name", `{"name":0,"email":"a@b.com","message":"hi"}`, ErrMissingFields},
		{"numeric name", `{"name":5,"email":"a@b.com","message":"hi"}`, nil},
		{"broken", `{"name":`, ErrInvalidJSON},
		{"trailing garbage", `{} x`, ErrInvalidJSON},
		{"null", `null`, ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.body))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, s.ID)
			assert.Equal(t, "a@b.com", s.Email)
		})
	}
}

func TestParse_NumericFieldsAsText(t *testing.T) {
	s, err := Parse([]byte(`{"name":5,"email":"a@b.com","message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "5", s.Name)
}

func TestValidateClient(t *testing.T) {
	assert.NoError(t, ValidateClient("Ana", "ana@correo.es", "Hola"))
	assert.ErrorIs(t, ValidateClient("", "ana@correo.es", "Hola"), ErrClientRequired)
	assert.ErrorIs(t, ValidateClient("Ana", "ana@correo", "Hola"), ErrClientInvalidEmail)
	assert.ErrorIs(t, ValidateClient("Ana", "ana @correo.es", "Hola"), ErrClientInvalidEmail)
	assert.Equal(t, MsgClientInvalidEmail, ValidateClient("Ana", "a@@b.c", "x").Error())
}

func TestPoolNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(io.Discard)

	pool := worker.NewPool(1, 10)
	n := NewPoolNotifier(pool)
	pool.Start()

	s, err := Parse([]byte(`{"name":"<b>Ana</b>","email":"a@b.com","message":"<script>alert(1)</script>hola"}`))
	require.NoError(t, err)
	require.NoError(t, n.Notify(s))
	pool.Close()

	out := buf.String()
	assert.Contains(t, out, "Contact received: id="+s.ID)
	assert.Contains(t, out, `name="Ana"`)
	assert.Contains(t, out, `message="hola"`)
	assert.NotContains(t, out, "<script>")
	assert.Equal(t, int64(1), pool.Stats().CompletedTasks)

	assert.Error(t, n.Notify(s), "closed pool rejects notifications")
}
