package audit

import "strings"

// ActionResource holds the audit action and resource for one HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// Route overrides where the generic derivation would be misleading.
var routeOverrides = map[string]ActionResource{
	"POST /v1/auth/otp/send":   {Action: "otp_send", Resource: "otp"},
	"POST /v1/auth/otp/verify": {Action: "otp_verify", Resource: "otp"},
	"POST /v1/auth/refresh":    {Action: "token_refresh", Resource: "session"},
	"POST /v1/auth/logout":     {Action: "logout", Resource: "session"},
	"DELETE /v1/auth/sessions": {Action: "logout_all", Resource: "session"},
}

// ParseRoute returns the audit action and resource for an HTTP method and
// route pattern (e.g. "DELETE /v1/auth/sessions/:id" -> delete/session).
func ParseRoute(method, route string) ActionResource {
	key := method + " " + route
	if ar, ok := routeOverrides[key]; ok {
		return ar
	}
	resource := routeResource(route)
	switch method {
	case "GET":
		return ActionResource{Action: "get", Resource: resource}
	case "POST":
		return ActionResource{Action: "create", Resource: resource}
	case "PUT", "PATCH":
		return ActionResource{Action: "update", Resource: resource}
	case "DELETE":
		return ActionResource{Action: "delete", Resource: resource}
	default:
		return ActionResource{Action: strings.ToLower(method), Resource: resource}
	}
}

// routeResource picks the last static path segment and singularizes it:
// /v1/auth/sessions/:id -> session.
func routeResource(route string) string {
	segments := strings.Split(strings.Trim(route, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		s := segments[i]
		if s == "" || strings.HasPrefix(s, ":") || strings.HasPrefix(s, "*") {
			continue
		}
		return strings.TrimSuffix(s, "s")
	}
	return "unknown"
}
