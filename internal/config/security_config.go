package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// RouteSecurityConfig maps named HTTP routes to their required security level.
// Routes missing from the map require an access token.
var RouteSecurityConfig = map[string]SecurityLevel{
	"stripe-webhook":   SecurityPublic,
	"payment-success":  SecurityAccess,
	"payment-cancel":   SecurityPublic,
	"health":           SecurityPublic,
	"create-payment":   SecurityAccess,
	"list-payments":    SecurityAccess,
	"get-payment":      SecurityAccess,
	"create-rental":    SecurityAccess,
	"return-rental":    SecurityAccess,
	"list-rentals":     SecurityAccess,
	"get-rental":       SecurityAccess,
	"adjust-inventory": SecurityAccess,
}

// GetSecurityLevel returns the security level for a route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, ok := RouteSecurityConfig[route]; ok {
		return level
	}
	return SecurityAccess
}
