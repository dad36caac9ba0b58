package http_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/cpf-camaras/market/internal/market/mail"
	"github.com/cpf-camaras/market/pkg/marketsdk"
	"github.com/stretchr/testify/require"
)

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.member("juan@metalsur.test", env.chamber("Cámara de Rosario"), "")

	res, err := env.requestReset(juan)
	require.NoError(t, err)
	require.Equal(t, "accepted", res.Status)
	require.Contains(t, res.Message, "20 minutos")

	msg, ok := env.mail.Last()
	require.True(t, ok)
	require.Equal(t, "juan@metalsur.test", msg.To)
	require.Len(t, msg.Code, 8)

	require.NoError(t, env.client.VerifyPasswordReset(ctx, juan, msg.Code))
	require.NoError(t, env.client.ConfirmPasswordReset(ctx, juan, msg.Code, "NuevaClave9"))

	_, err = env.client.Login(ctx, "juan@metalsur.test", "NuevaClave9")
	require.NoError(t, err)

	err = env.client.ConfirmPasswordReset(ctx, juan, msg.Code, "OtraClave77")
	requireAPIError(t, err, marketsdk.ErrorCodeResetUsed)
}

func TestPasswordResetRequestAnswersUniformly(t *testing.T) {
	env := newTestEnv(t)
	env.member("juan@metalsur.test", env.chamber("Cámara de Rosario"), "")

	matched, err := env.requestReset(juan)
	require.NoError(t, err)

	stranger, err := env.requestReset(marketsdk.ResetClaims{
		FullName: "Ana Gómez",
		Company:  "Textil Norte",
		Phone:    "11 4444 5555",
	})
	require.NoError(t, err)

	// A second matching request inside the minimum interval is refused
	// internally and must still look the same.
	again, err := env.requestReset(juan)
	require.NoError(t, err)

	require.Equal(t, matched, stranger)
	require.Equal(t, matched, again)
	require.Len(t, env.mail.Sent(), 1)
}

// gatedNotifier holds every delivery until release is closed.
type gatedNotifier struct {
	mail.Recorder
	release chan struct{}
}

func (g *gatedNotifier) SendResetCode(ctx context.Context, msg mail.ResetCodeMessage) error {
	<-g.release
	return g.Recorder.SendResetCode(ctx, msg)
}

func TestPasswordResetRequestAnswersBeforeDelivery(t *testing.T) {
	env := newTestEnv(t)
	env.member("juan@metalsur.test", env.chamber("Cámara de Rosario"), "")

	gate := &gatedNotifier{release: make(chan struct{})}
	env.router.ResetService.Notifier = gate
	t.Cleanup(func() {
		select {
		case <-gate.release:
		default:
			close(gate.release)
		}
	})

	res, err := env.client.RequestPasswordReset(context.Background(), juan)
	require.NoError(t, err)
	require.Equal(t, "accepted", res.Status)
	require.Empty(t, gate.Sent())

	close(gate.release)
	env.router.WaitPending()
	msg, ok := gate.Last()
	require.True(t, ok)
	require.Equal(t, "juan@metalsur.test", msg.To)
}

func TestPasswordResetRequestWithoutSMTPStillAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.mail.Unconfigured = true
	env.member("juan@metalsur.test", env.chamber("Cámara de Rosario"), "")

	res, err := env.requestReset(juan)
	require.NoError(t, err)
	require.Equal(t, "accepted", res.Status)
	require.Empty(t, env.mail.Sent())
}

func TestPasswordResetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.member("juan@metalsur.test", env.chamber("Cámara de Rosario"), "")

	var body marketsdk.ErrorResponse
	status := env.call(http.MethodPost, "/v1/password-reset/request", "", url.Values{"company": {"X"}}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, marketsdk.ErrorCodeInvalidRequest, body.Error)

	err := env.client.VerifyPasswordReset(ctx, juan, "ABCDEF12")
	requireAPIError(t, err, marketsdk.ErrorCodeResetNotFound)

	_, err = env.requestReset(juan)
	require.NoError(t, err)

	err = env.client.VerifyPasswordReset(ctx, juan, "00000000")
	requireAPIError(t, err, marketsdk.ErrorCodeResetInvalid)

	msg, _ := env.mail.Last()
	status = env.call(http.MethodPost, "/v1/password-reset/confirm", "", url.Values{
		"full_name":            {juan.FullName},
		"company":              {juan.Company},
		"phone":                {juan.Phone},
		"code":                 {msg.Code},
		"new_password":         {"NuevaClave9"},
		"new_password_confirm": {"NuevaClave8"},
	}, &body)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, marketsdk.ErrorCodeInvalidRequest, body.Error)
}

func TestPasswordResetWeakPasswordKeepsCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.member("juan@metalsur.test", env.chamber("Cámara de Rosario"), "")

	_, err := env.requestReset(juan)
	require.NoError(t, err)
	msg, _ := env.mail.Last()

	err = env.client.ConfirmPasswordReset(ctx, juan, msg.Code, "corta")
	requireAPIError(t, err, marketsdk.ErrorCodeWeakPassword)

	require.NoError(t, env.client.VerifyPasswordReset(ctx, juan, msg.Code))
}

func TestPasswordResetIsRateLimitedByIP(t *testing.T) {
	env := newTestEnv(t)

	stranger := url.Values{"full_name": {"Nadie"}, "company": {"Ninguna"}}
	var last int
	for range 20 {
		last = env.call(http.MethodPost, "/v1/password-reset/request", "", stranger, nil)
		if last == http.StatusTooManyRequests {
			break
		}
		require.Equal(t, http.StatusAccepted, last)
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}
