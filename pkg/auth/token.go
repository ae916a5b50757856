package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"esupchat/pkg/config"
)

// Session tokens are stateless: `<userID>.<expiry unix>.<hex hmac>` where
// the mac covers "<userID>.<expiry>" under a configured signing key.
// Rotated-out keys stay in the verification set until their sessions age
// out.

// MintSession returns a signed session token for userID valid for ttl.
func MintSession(userID string, ttl time.Duration) (string, error) {
	key := config.PrimarySigningKey()
	if key == "" {
		return "", fmt.Errorf("no session signing key configured")
	}
	exp := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("%s.%d", userID, exp)
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return payload + "." + hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySession validates a session token against every configured signing
// key and returns the embedded user id.
func VerifySession(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed session token")
	}
	userID, expStr, sig := parts[0], parts[1], parts[2]
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed session token")
	}
	if time.Now().Unix() > exp {
		return "", fmt.Errorf("session expired")
	}
	keys := config.GetSigningKeys()
	if len(keys) == 0 {
		return "", fmt.Errorf("no session signing keys configured")
	}
	payload := userID + "." + expStr
	for k := range keys {
		mac := hmac.New(sha256.New, []byte(k))
		mac.Write([]byte(payload))
		expected := hex.EncodeToString(mac.Sum(nil))
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return userID, nil
		}
	}
	return "", fmt.Errorf("invalid session signature")
}
