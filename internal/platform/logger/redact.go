package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const redacted = "[REDACTED]"

var (
	secretKeyParts = []string{"token", "authorization", "password", "secret", "api_key", "apikey"}
	// Owner ids are hashed so a request can be followed across lines
	// without the log naming whose library it touched.
	hashedKeys = map[string]bool{"actor_id": true, "owner_id": true, "requester_id": true}
)

type redactor struct {
	enabled bool
	salt    string
}

// LOG_REDACTION_ENABLED defaults on; LOG_HASH_SALT salts hashed ids.
func redactorFromEnv() redactor {
	r := redactor{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		r.enabled = false
	}
	return r
}

func (r redactor) apply(kv []interface{}) []interface{} {
	if !r.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key := strings.ToLower(strings.TrimSpace(stringify(out[i])))
		out[i+1] = r.value(key, out[i+1])
	}
	return out
}

func (r redactor) value(key string, val interface{}) interface{} {
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return redacted
		}
	}
	if hashedKeys[key] {
		return r.hash(stringify(val))
	}
	if s, ok := val.(string); ok && looksLikeJWT(s) {
		return redacted
	}
	return val
}

func (r redactor) hash(raw string) string {
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
