package config

import (
	"bytes"
	"errors"
	"testing"
	"time"

	mail "github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("SMTP_HOST", "")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "safasajha", cfg.MongoDatabase)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 20, cfg.ReportDailyLimit)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "@every 1m", cfg.DeliverySpec)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.MailEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("REPORT_DAILY_LIMIT", "5")
	t.Setenv("NOTIFY_WORKERS", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://safasajha.np, https://admin.safasajha.np ,")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.ReportDailyLimit)
	assert.Equal(t, 2, cfg.NotifyWorkers)
	assert.Equal(t, []string{"https://safasajha.np", "https://admin.safasajha.np"}, cfg.CORSOrigins)
	assert.True(t, cfg.RedisEnabled())
}

func TestValidate_RequiresSecrets(t *testing.T) {
	err := (&Config{ReportDailyLimit: 1}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGODB_URI")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	err = (&Config{MongoURI: "mongodb://x", JWTSecret: "s"}).Validate()
	assert.Error(t, err)
}

func TestMailer_Send(t *testing.T) {
	var sent []*mail.Message
	m := &Mailer{from: "SafaSajha <no-reply@safasajha.np>", send: func(msg *mail.Message) error {
		sent = append(sent, msg)
		return nil
	}}

	require.NoError(t, m.Send("sita@example.com", "Pickup Reminder", "Your pickup is <tomorrow>"))
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"sita@example.com"}, sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Pickup Reminder"}, sent[0].GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "&lt;tomorrow&gt;")

	assert.Error(t, m.Send("", "x", "y"))
}

func TestMailer_SendError(t *testing.T) {
	m := &Mailer{send: func(*mail.Message) error { return errors.New("dial tcp: refused") }}
	assert.Error(t, m.Send("sita@example.com", "x", "y"))
}

func TestNewMailer_DialsConfiguredServer(t *testing.T) {
	m := NewMailer(&Config{SMTPHost: "127.0.0.1", SMTPPort: 1, SMTPFrom: "no-reply@safasajha.np"})
	require.NotNil(t, m.send)
	assert.Error(t, m.Send("sita@example.com", "Pickup Reminder", "soon"))
}
