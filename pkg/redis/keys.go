package redis

import "strings"

const namespace = "sf"

// key joins parts under the namespace, skipping blanks.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

// RateLimitKey holds a fixed window counter.
func (c *Client) RateLimitKey(scope string) string {
	return key("rate_limit", scope)
}

// LocalUsersKey is the record set of a device's local credential store.
func (c *Client) LocalUsersKey(deviceID string) string {
	return key("local", deviceID, "users")
}

// LocalSessionKey holds the logged-in pointer of a device's local store.
func (c *Client) LocalSessionKey(deviceID string) string {
	return key("local", deviceID, "logged_in_user")
}

// CartKey is the blob cart of an owner: an email, user:<id> or
// guest:<device id>.
func (c *Client) CartKey(owner string) string {
	return key("cart", owner)
}

func (c *Client) PasswordResetKey(token string) string {
	return key("password_reset", token)
}

// IdempotencyKey scopes a client supplied Idempotency-Key to a replay policy
// and its owner.
func (c *Client) IdempotencyKey(scope, id string) string {
	return key("idempotency", scope, id)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return key("session", "access", accessID)
}
