package workflow

import (
	"context"
	"log/slog"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// SignAuth requests a challenge for the signer's address and signs it as-is.
// The signature is returned unchanged for use as a bearer token on a single
// privileged call. There are no retries.
func SignAuth(ctx context.Context, client interfaces.AuthMessenger, signer interfaces.IdentitySigner) (interfaces.AuthToken, error) {
	if signer == nil {
		return "", interfaces.ErrMissingPrivateKey
	}

	address := signer.Address()
	message, err := client.AuthMessage(ctx, address)
	if err != nil {
		return "", &interfaces.AuthChallengeError{Address: address, Err: err}
	}

	signature, err := signer.SignMessage(message)
	if err != nil {
		return "", &interfaces.SigningError{Err: err}
	}

	return interfaces.AuthToken(signature), nil
}

func signAuthLogged(ctx context.Context, client interfaces.AuthMessenger, signer interfaces.IdentitySigner, log *slog.Logger) (interfaces.AuthToken, error) {
	token, err := SignAuth(ctx, client, signer)
	if err != nil {
		log.Error("Failed to obtain auth token", "err", err)
		return "", err
	}
	log.Debug("Obtained auth token", slog.String("token", token.Short()))
	return token, nil
}
