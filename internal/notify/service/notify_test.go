package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	ndomain "github.com/corvusHold/shopmail/internal/notify/domain"
)

type captureSender struct {
	profile mdomain.SenderProfile
	result  mdomain.SendResult
	tenant  uuid.UUID
	msg     mdomain.OutboundMessage
}

func (c *captureSender) SendMail(ctx context.Context, tenantID uuid.UUID, msg mdomain.OutboundMessage) mdomain.SendResult {
	c.tenant, c.msg = tenantID, msg
	return c.result
}

func (c *captureSender) Profile(ctx context.Context, tenantID uuid.UUID) mdomain.SenderProfile {
	return c.profile
}

func TestStatusChanged(t *testing.T) {
	cs := &captureSender{
		profile: mdomain.SenderProfile{ShopName: "Handy Klinik", Email: "kontakt@handyklinik.test"},
		result:  mdomain.SendResult{Success: true, MessageID: "<1@x>"},
	}
	s := New(cs, zerolog.Nop())
	tenant := uuid.New()

	res, err := s.StatusChanged(context.Background(), tenant, ndomain.StatusChange{
		CustomerName:  "Frau <Müller>",
		CustomerEmail: "mueller@example.com",
		OrderNumber:   "R-1001",
		Device:        "iPhone 13",
		OldStatus:     ndomain.StatusInRepair,
		NewStatus:     ndomain.StatusReady,
		TrackingURL:   "https://handyklinik.test/a/R-1001",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.Equal(t, tenant, cs.tenant)
	assert.Equal(t, []string{"mueller@example.com"}, cs.msg.To)
	assert.Equal(t, "kontakt@handyklinik.test", cs.msg.ReplyTo)
	assert.Equal(t, "Auftrag R-1001: Abholbereit", cs.msg.Subject)
	assert.Empty(t, cs.msg.From, "From is left to the dispatcher")

	assert.Contains(t, cs.msg.HTML, "In Reparatur")
	assert.Contains(t, cs.msg.HTML, "Abholbereit")
	assert.Contains(t, cs.msg.HTML, "Frau &lt;Müller&gt;")
	assert.Contains(t, cs.msg.HTML, "Handy Klinik")
	assert.Contains(t, cs.msg.Text, "In Reparatur -> Abholbereit")
	assert.Contains(t, cs.msg.Text, "https://handyklinik.test/a/R-1001")
	assert.Equal(t, "status_change", cs.msg.Headers["X-Shopmail-Notification"])
}

func TestStatusChanged_UnknownStatusAndFailure(t *testing.T) {
	cs := &captureSender{
		profile: mdomain.SenderProfile{ShopName: "Reparaturservice"},
		result:  mdomain.SendResult{Success: false, Error: "smtp send failed after fallback"},
	}
	s := New(cs, zerolog.Nop())

	res, err := s.StatusChanged(context.Background(), uuid.New(), ndomain.StatusChange{
		CustomerEmail: "kunde@example.com",
		OrderNumber:   "R-7",
		NewStatus:     "custom_state",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Auftrag R-7: custom_state", cs.msg.Subject)
	assert.Contains(t, cs.msg.Text, "liebe Kundin, lieber Kunde")
	assert.Empty(t, cs.msg.ReplyTo)
}

func TestFeedbackRequest(t *testing.T) {
	cs := &captureSender{
		profile: mdomain.SenderProfile{ShopName: "Laptop Doktor"},
		result:  mdomain.SendResult{Success: true, UsedFallback: true},
	}
	s := New(cs, zerolog.Nop())

	res, err := s.FeedbackRequest(context.Background(), uuid.New(), ndomain.FeedbackRequest{
		CustomerName:  "Jan",
		CustomerEmail: "jan@example.com",
		OrderNumber:   "R-42",
		FeedbackURL:   "https://g.page/r/laptopdoktor/review",
	})
	require.NoError(t, err)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "Wie zufrieden waren Sie mit Laptop Doktor?", cs.msg.Subject)
	assert.Contains(t, cs.msg.HTML, `href="https://g.page/r/laptopdoktor/review"`)
	assert.Contains(t, cs.msg.Text, "Hallo Jan,")
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Storniert", ndomain.StatusLabel(ndomain.StatusCancelled))
	assert.Equal(t, "x", ndomain.StatusLabel("x"))
}
