// internal/auth/operator.go
package auth

import "crypto/subtle"

// OperatorKey guards maintenance endpoints. An empty key disables them.
type OperatorKey struct {
	key []byte
}

func NewOperatorKey(key string) OperatorKey {
	return OperatorKey{key: []byte(key)}
}

func (k OperatorKey) Enabled() bool {
	return len(k.key) > 0
}

// Matches compares presented against the configured key in constant time.
func (k OperatorKey) Matches(presented string) bool {
	if !k.Enabled() {
		return false
	}
	return subtle.ConstantTimeCompare(k.key, []byte(presented)) == 1
}
