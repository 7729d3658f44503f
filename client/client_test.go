package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Daskott/safecircle/alert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method, path, auth string
	body               map[string]interface{}
}

func newTestServer(t *testing.T, status int, response string, requests *[]recordedRequest) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{}
		json.NewDecoder(r.Body).Decode(&body)
		*requests = append(*requests, recordedRequest{r.Method, r.URL.Path, r.Header.Get("Authorization"), body})

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(status)
		rw.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestReportOptions(t *testing.T) {
	requests := []recordedRequest{}
	server := newTestServer(t, http.StatusOK,
		`{"errors":[],"success":true,"data":[{"name":"Fire","contacts":["+15550001"],"procedure":"Evacuate"}]}`, &requests)

	options, err := New(server.URL, "token").ReportOptions(context.Background())
	require.Nil(t, err)

	assert.Equal(t, []alert.ReportOption{{Name: "Fire", Contacts: []string{"+15550001"}, Procedure: "Evacuate"}}, options)
	assert.Equal(t, "GET", requests[0].method)
	assert.Equal(t, "/contact/report-options", requests[0].path)
	assert.Equal(t, "Bearer token", requests[0].auth)
}

func TestReportOptionsFallsBackToDefaults(t *testing.T) {
	requests := []recordedRequest{}
	server := newTestServer(t, http.StatusOK, `{"errors":[],"success":true,"data":[]}`, &requests)

	options, err := New(server.URL, "token").ReportOptions(context.Background())
	require.Nil(t, err)
	assert.Equal(t, alert.DefaultReportOptions(), options)
}

func TestSendWhatsAppMessagesAndHistory(t *testing.T) {
	requests := []recordedRequest{}
	server := newTestServer(t, http.StatusOK, `{"errors":[],"success":true}`, &requests)
	client := New(server.URL+"/", "token")

	err := client.SendWhatsAppMessages(context.Background(), "Fire", "Evacuate", "https://maps", []string{"+15550001", "+15550002"})
	require.Nil(t, err)

	err = client.AddHistory(context.Background(), "Fire", "+15550001", "Evacuate")
	require.Nil(t, err)

	require.Len(t, requests, 2)
	assert.Equal(t, "/contact/send-whatsapp-messages", requests[0].path)
	assert.Equal(t, []interface{}{"+15550001", "+15550002"}, requests[0].body["contacts"])
	assert.Equal(t, "https://maps", requests[0].body["locationLink"])

	assert.Equal(t, "/auth/history", requests[1].path)
	assert.Equal(t, "+15550001", requests[1].body["phoneNumber"])
	assert.Equal(t, "Fire", requests[1].body["type"])
}

func TestLoginSetsToken(t *testing.T) {
	requests := []recordedRequest{}
	server := newTestServer(t, http.StatusOK, `{"errors":[],"success":true,"data":{"token":"new-token"}}`, &requests)
	client := New(server.URL, "")

	token, err := client.Login(context.Background(), "stark@avengers.com", "very-secure")
	require.Nil(t, err)
	assert.Equal(t, "new-token", token)

	client.History(context.Background())
	assert.Equal(t, "Bearer new-token", requests[1].auth)
}

func TestErrors(t *testing.T) {
	requests := []recordedRequest{}
	server := newTestServer(t, http.StatusUnauthorized, `{"errors":["invalid token provided"],"success":false}`, &requests)

	_, err := New(server.URL, "expired").ReportOptions(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))

	server = newTestServer(t, http.StatusBadRequest, `{"errors":["invalid credentials"],"success":false}`, &requests)
	_, err = New(server.URL, "").Login(context.Background(), "stark@avengers.com", "wrong")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}
