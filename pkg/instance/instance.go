package instance

import "github.com/cyglobaltech/storefront-backend/pkg/env"

// GetID names the running process in logs. Platform dyno names win over the
// configured id.
func GetID() string {
	return env.First("local", "DYNO", "STOREFRONT_INSTANCE_ID")
}
