package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvusHold/shopmail/internal/events/domain"
)

func TestLogger_Publish(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogger(zerolog.New(&buf))
	tenant := uuid.New()

	err := pub.Publish(context.Background(), domain.Event{
		Type:     domain.TypeTransportDegraded,
		TenantID: tenant,
		Meta:     map[string]string{"host": "mail.example.com"},
		Time:     time.Now(),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, domain.TypeTransportDegraded, line["type"])
	assert.Equal(t, tenant.String(), line["tenant_id"])
	meta, ok := line["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mail.example.com", meta["host"])
}
