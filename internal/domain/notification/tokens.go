package notification

import "sync"

// tokenPreviewLen is how much of a registered token the ack echoes back
// for confirmation display. The full token is never returned.
const tokenPreviewLen = 20

// TokenRegistry associates user identifiers with device push tokens.
// Registration is advisory: the authoritative binding happens when a
// push is dispatched with a token supplied on that call. The registry
// exists so clients that registered up front can omit the token later.
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewTokenRegistry creates an empty token registry.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[string]string)}
}

// TokenAck confirms a registration. Token is truncated.
type TokenAck struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Register stores the token for the user, silently overwriting any
// previous registration. It never fails for well-formed pairs.
func (r *TokenRegistry) Register(userID, token string) TokenAck {
	r.mu.Lock()
	r.tokens[userID] = token
	r.mu.Unlock()

	return TokenAck{UserID: userID, Token: truncateToken(token)}
}

// Lookup returns the registered token for the user, if any.
func (r *TokenRegistry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[userID]
	return token, ok
}

func truncateToken(token string) string {
	if len(token) <= tokenPreviewLen {
		return token
	}
	return token[:tokenPreviewLen] + "..."
}
