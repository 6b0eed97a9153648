package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Conte777/affiliate-relay/pkg/pacing"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
)

const promptTimeout = 2 * time.Minute

// consoleAuthenticator implements auth.UserAuthenticator. The login code is
// always read from the console; the 2FA password comes from configuration
// and is prompted for only when not configured.
type consoleAuthenticator struct {
	phone    string
	password string
	input    *bufio.Reader
	output   io.Writer
	logger   zerolog.Logger
}

func newConsoleAuthenticator(phone, password string, in io.Reader, out io.Writer, logger zerolog.Logger) *consoleAuthenticator {
	return &consoleAuthenticator{
		phone:    phone,
		password: password,
		input:    bufio.NewReader(in),
		output:   out,
		logger:   logger,
	}
}

func (a *consoleAuthenticator) Phone(_ context.Context) (string, error) {
	return a.phone, nil
}

func (a *consoleAuthenticator) Password(ctx context.Context) (string, error) {
	if a.password != "" {
		return a.password, nil
	}
	a.logger.Info().Msg("2FA is enabled, requesting password")
	return a.prompt(ctx, "Enter 2FA password: ")
}

func (a *consoleAuthenticator) Code(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
	a.logger.Info().Msg("authentication code has been sent")
	return a.prompt(ctx, "Enter authentication code: ")
}

func (a *consoleAuthenticator) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return errors.New("account is not registered, sign up is not supported")
}

func (a *consoleAuthenticator) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported")
}

// prompt reads one trimmed line, bounded by ctx and promptTimeout
func (a *consoleAuthenticator) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(a.output, label)

	lineChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		line, err := a.input.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			errChan <- fmt.Errorf("failed to read input: %w", err)
			return
		}
		lineChan <- strings.TrimSpace(line)
	}()

	timer := time.NewTimer(promptTimeout)
	defer timer.Stop()

	select {
	case line := <-lineChan:
		return line, nil
	case err := <-errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("input cancelled: %w", ctx.Err())
	case <-timer.C:
		return "", fmt.Errorf("input timeout")
	}
}

var _ auth.UserAuthenticator = (*consoleAuthenticator)(nil)

// nonRetryableAuthErrors fail the login immediately
var nonRetryableAuthErrors = []string{
	"PHONE_NUMBER_BANNED",
	"PHONE_NUMBER_INVALID",
	"API_ID_INVALID",
	"API_ID_PUBLISHED_FLOOD",
	"AUTH_TOKEN_INVALID",
	"PASSWORD_HASH_INVALID",
}

func isNonRetryableAuthError(err error) bool {
	for _, code := range nonRetryableAuthErrors {
		if tgerr.Is(err, code) {
			return true
		}
	}
	return false
}

// authenticateWithRetry runs the login flow, waiting out FLOOD_WAIT and
// retrying transient failures with exponential backoff
func (c *MTProtoClient) authenticateWithRetry(ctx context.Context, client authClient, maxRetries int) error {
	var lastErr error
	baseDelay := 1 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		flow := auth.NewFlow(c.authenticator, auth.SendCodeOptions{})
		err := client.IfNecessary(ctx, flow)
		if err == nil {
			c.logger.Info().Msg("authentication successful")
			return nil
		}
		lastErr = err

		if isNonRetryableAuthError(err) {
			return fmt.Errorf("non-retryable authentication error: %w", err)
		}

		if wait, ok := tgerr.AsFloodWait(err); ok {
			c.logger.Warn().
				Int("attempt", attempt+1).
				Dur("wait_duration", wait).
				Msg("flood wait during authentication")
			if err := pacing.Sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if tgerr.Is(err, "SESSION_REVOKED") {
			c.logger.Error().Msg("session has been revoked, starting a fresh login")
			if err := c.storage.DeleteSession(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("failed to delete revoked session")
			}
			continue
		}

		if tgerr.Is(err, "PHONE_CODE_INVALID") {
			c.logger.Error().Msg("invalid phone code provided")
			continue
		}

		delay := baseDelay * (1 << attempt)
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}

		c.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("retry_delay", delay).
			Msg("authentication failed, retrying")

		if err := pacing.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("authentication failed after %d attempts: %w", maxRetries, lastErr)
}

// authClient is the part of *auth.Client used by the login flow
type authClient interface {
	IfNecessary(ctx context.Context, flow auth.Flow) error
}
