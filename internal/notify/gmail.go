package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mail-expense-intake/internal/config"
)

const maxSendAttempts = 3

// Gmail sends summaries through the Gmail API
type Gmail struct {
	userEmail string
	send      func(ctx context.Context, msg *gmail.Message) error
	sleep     func(time.Duration)
	now       func() time.Time
}

// NewGmail creates a Gmail notifier from an OAuth2 refresh token
func NewGmail(ctx context.Context, cfg config.NotifyConfig) (*Gmail, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	user := cfg.UserEmail
	return &Gmail{
		userEmail: user,
		send: func(ctx context.Context, msg *gmail.Message) error {
			_, err := service.Users.Messages.Send(user, msg).Context(ctx).Do()
			return err
		},
		sleep: time.Sleep,
		now:   time.Now,
	}, nil
}

// NotifyStaged composes and sends the summary, backing off on quota errors
func (g *Gmail) NotifyStaged(ctx context.Context, s Summary) error {
	raw, err := ComposeSummary(g.userEmail, s, g.now())
	if err != nil {
		return err
	}
	message := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		err := g.send(ctx, message)
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"message_id": s.MessageID,
				"to":         s.To,
			}).Info("Sent intake summary")
			return nil
		}

		lastErr = err
		logrus.Warnf("Failed to send summary (attempt %d/%d): %v", attempt, maxSendAttempts, err)

		if !isQuotaError(err) || ctx.Err() != nil {
			break
		}
		if attempt < maxSendAttempts {
			waitTime := time.Duration(attempt*attempt) * time.Second
			logrus.Infof("Rate limited, waiting %v before retry", waitTime)
			g.sleep(waitTime)
		}
	}
	return fmt.Errorf("failed to send summary: %w", lastErr)
}

func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate")
}
