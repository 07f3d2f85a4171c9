package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwell-funnel/backend/config"
)

func TestRenderInterpolatesMetadata(t *testing.T) {
	data := DataFromMetadata(map[string]string{
		"webinar_title": "Write Your First Draft",
		"webinar_date":  "2025-08-21T18:00:00Z",
	}, "https://inkwell.example")

	out, err := Render("webinar-confirmation", data)
	require.NoError(t, err)

	assert.Equal(t, "You're registered: Write Your First Draft", out.Subject)
	assert.Contains(t, out.Text, "Thursday, August 21 at 6:00 PM UTC")
	assert.Contains(t, out.HTML, "https://inkwell.example/webinar")
	assert.Contains(t, out.Text, "https://inkwell.example/webinar")
}

func TestRenderAllScheduleTemplates(t *testing.T) {
	data := DataFromMetadata(map[string]string{
		"webinar_title": "Title",
		"webinar_date":  "2025-08-21T18:00:00Z",
		"product_type":  "workbook",
		"expires_at":    "2026-08-21T18:00:00Z",
	}, "https://inkwell.example")

	for name := range defs {
		out, err := Render(name, data)
		require.NoError(t, err, name)
		assert.NotEmpty(t, out.Subject, name)
		assert.NotEmpty(t, out.HTML, name)
	}
}

func TestRenderUnknownTemplateFails(t *testing.T) {
	_, err := Render("nonexistent-template", TemplateData{})
	assert.Error(t, err)
}

func TestDataFromMetadataKeepsUnparseableTimestamps(t *testing.T) {
	data := DataFromMetadata(map[string]string{"webinar_date": "soon"}, "")
	assert.Equal(t, "soon", data.WebinarDate)
}

func TestPostmarkSenderPostsMessage(t *testing.T) {
	var got postmarkRequest
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Postmark-Server-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewPostmarkSender("pm-token", srv.URL)
	err := s.Send(context.Background(), Message{
		From:    "Inkwell <hello@inkwell.example>",
		To:      "reader@example.com",
		Subject: "Hi",
		HTML:    "<p>Hi</p>",
		Text:    "Hi",
	})

	require.NoError(t, err)
	assert.Equal(t, "pm-token", token)
	assert.Equal(t, "reader@example.com", got.To)
	assert.Equal(t, "Hi", got.Subject)
}

func TestPostmarkSenderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(postmarkResponse{ErrorCode: 300, Message: "invalid to address"})
	}))
	defer srv.Close()

	s := NewPostmarkSender("pm-token", srv.URL)
	err := s.Send(context.Background(), Message{To: "bad"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid to address")
}

func TestFromConfigFallsBackToLogSender(t *testing.T) {
	s := FromConfig(config.EmailConfig{}, zap.NewNop())
	_, ok := s.(*LogSender)
	assert.True(t, ok)
}

func TestFromHeader(t *testing.T) {
	assert.Equal(t, "Inkwell <hello@inkwell.example>", FromHeader(config.EmailConfig{
		FromName:    "Inkwell",
		FromAddress: "hello@inkwell.example",
	}))
	assert.Equal(t, "hello@inkwell.example", FromHeader(config.EmailConfig{FromAddress: "hello@inkwell.example"}))
}
