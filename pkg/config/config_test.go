package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONTACT_CHANNEL", "")
	t.Setenv("EMERGENCY_INITIAL_RADIUS_KM", "")
	t.Setenv("RATE_LIMIT_TRUST_FORWARD_HEADER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.RateLimit.TrustForwardHeader)

	assert.Equal(t, 15.0, cfg.Emergency.InitialRadiusKm)
	assert.Equal(t, 25.0, cfg.Emergency.EscalationRadiusKm)
	assert.Equal(t, 2, cfg.Emergency.MinProviders)
	assert.Equal(t, 15, cfg.Emergency.ResourceLimit)
	assert.Equal(t, 4*time.Hour, cfg.Emergency.AlertTTL)
	assert.Equal(t, 5, cfg.Emergency.MaxInfoNotifications)
	assert.Equal(t, "simulated", cfg.Contact.Channel)
	assert.Equal(t, "jeevanpath", cfg.Database.Database)
}

func TestLoad_EmergencyOverrides(t *testing.T) {
	t.Setenv("EMERGENCY_INITIAL_RADIUS_KM", "10")
	t.Setenv("EMERGENCY_ESCALATION_RADIUS_KM", "40")
	t.Setenv("EMERGENCY_ALERT_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.Emergency.InitialRadiusKm)
	assert.Equal(t, 40.0, cfg.Emergency.EscalationRadiusKm)
	assert.Equal(t, 2*time.Hour, cfg.Emergency.AlertTTL)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "escalation smaller than initial radius",
			env:  map[string]string{"EMERGENCY_INITIAL_RADIUS_KM": "20", "EMERGENCY_ESCALATION_RADIUS_KM": "5"},
			want: "EMERGENCY_ESCALATION_RADIUS_KM",
		},
		{
			name: "whatsapp channel without credentials",
			env:  map[string]string{"CONTACT_CHANNEL": "whatsapp", "WHATSAPP_ACCESS_TOKEN": "", "WHATSAPP_PHONE_NUMBER_ID": ""},
			want: "WHATSAPP_ACCESS_TOKEN",
		},
		{
			name: "unknown channel",
			env:  map[string]string{"CONTACT_CHANNEL": "pigeon"},
			want: "unknown CONTACT_CHANNEL",
		},
		{
			name: "typesense enabled without key",
			env:  map[string]string{"TYPESENSE_ENABLED": "true", "TYPESENSE_API_KEY": ""},
			want: "TYPESENSE_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "jp", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=jp sslmode=require", cfg.DatabaseDSN())
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvAsList("ALLOWED_ORIGINS", []string{"*"}))

	t.Setenv("ALLOWED_ORIGINS", " , ")
	assert.Equal(t, []string{"*"}, getEnvAsList("ALLOWED_ORIGINS", []string{"*"}))
}
