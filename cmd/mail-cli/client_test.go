package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://shopmail.test"

func TestMailClient_SendDecodesBadGateway(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var gotAuth string
	var gotBody SendRequest
	httpmock.RegisterResponder("POST", testBaseURL+"/v1/tenants/t-1/mail/send",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			_ = json.NewDecoder(req.Body).Decode(&gotBody)
			return httpmock.NewStringResponse(http.StatusBadGateway,
				`{"success":false,"used_fallback":true,"degraded":false,"error":"smtp send failed after fallback"}`), nil
		})

	c := &MailClient{BaseURL: testBaseURL, Token: "tok", Tenant: "t-1"}
	res, err := c.Send(SendRequest{To: []string{"kunde@example.com"}, Subject: "Hallo", Text: "x"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, []string{"kunde@example.com"}, gotBody.To)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestMailClient_ErrorResponse(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("DELETE", testBaseURL+"/v1/mail/cache",
		httpmock.NewStringResponder(http.StatusForbidden, `{"error":"forbidden"}`))

	c := &MailClient{BaseURL: testBaseURL}
	err := c.ClearAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (403): forbidden")
}

func TestMailClient_TestConnectionOmitsConfig(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var body map[string]any
	httpmock.RegisterResponder("POST", testBaseURL+"/v1/tenants/t-2/mail/test-connection",
		func(req *http.Request) (*http.Response, error) {
			_ = json.NewDecoder(req.Body).Decode(&body)
			return httpmock.NewStringResponse(http.StatusOK,
				`{"success":true,"message":"SMTP-Verbindung zu smtp.example.com:587 erfolgreich"}`), nil
		})

	c := &MailClient{BaseURL: testBaseURL, Tenant: "t-2"}
	res, err := c.TestConnection(nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Nil(t, body["config"])
}

func TestMailClient_StatusAndClearTenant(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testBaseURL+"/v1/tenants/t-3/mail/status",
		httpmock.NewStringResponder(http.StatusOK, `{"cached":true,"source":"tenant","host":"smtp.handyklinik.test","port":465,"degraded":false}`))
	httpmock.RegisterResponder("DELETE", testBaseURL+"/v1/tenants/t-3/mail/cache",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	c := &MailClient{BaseURL: testBaseURL, Tenant: "t-3"}
	st, err := c.Status()
	require.NoError(t, err)
	assert.True(t, st.Cached)
	assert.Equal(t, "tenant", st.Source)
	assert.Equal(t, 465, st.Port)

	require.NoError(t, c.ClearTenant())
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("abcd"))
	assert.Equal(t, "abcd****mnop", maskToken("abcdefghmnop"))
}
