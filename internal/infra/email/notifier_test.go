package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifyFailure(t *testing.T) {
	n := NewSMTPNotifier("mailhog", 1025, "noreply@truthscan.local", zap.NewNop())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, n.NotifyFailure(context.Background(), "user@example.com", "job-1", "u/clip.mp4", "frame extraction failed"))

	assert.Equal(t, "mailhog:1025", gotAddr)
	assert.Equal(t, "noreply@truthscan.local", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: TruthScan - Media Analysis Failed [Job job-1]")
	assert.Contains(t, string(gotMsg), "Media: u/clip.mp4")
	assert.Contains(t, string(gotMsg), "Error: frame extraction failed")
}

func TestNotifyFailureSendError(t *testing.T) {
	n := NewSMTPNotifier("mailhog", 1025, "noreply@truthscan.local", zap.NewNop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := n.NotifyFailure(context.Background(), "user@example.com", "job-1", "k", "e")
	assert.ErrorContains(t, err, "connection refused")
}
