package service

import (
	"sync"
	"time"

	dErrors "agentgate/pkg/domain-errors"

	"agentgate/internal/token"
)

// DevTokenAuthority mints short-lived access tokens that bypass the session
// store on verification. It exists only in development: main constructs it
// when the environment allows it and production wiring never does, so no
// request-parsing path can reach the bypass there.
//
// Minted token IDs are remembered in memory; a dev token is only honored by
// the process that minted it.
type DevTokenAuthority struct {
	codec *token.Codec

	mu     sync.RWMutex
	minted map[string]struct{}
}

func NewDevTokenAuthority(codec *token.Codec) *DevTokenAuthority {
	return &DevTokenAuthority{
		codec:  codec,
		minted: make(map[string]struct{}),
	}
}

// Mint issues a storeless access token for the given identity.
func (a *DevTokenAuthority) Mint(claims token.Claims, ttl time.Duration) (string, error) {
	signed, err := a.codec.Sign(claims, ttl)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not mint development token")
	}
	verified, err := a.codec.Verify(signed)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not mint development token")
	}
	a.mu.Lock()
	a.minted[verified.ID] = struct{}{}
	a.mu.Unlock()
	return signed, nil
}

// Recognizes reports whether the claims belong to a token this authority
// minted. Signature and expiry have already been checked by the codec.
func (a *DevTokenAuthority) Recognizes(claims *token.Claims) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.minted[claims.ID]
	return ok
}
