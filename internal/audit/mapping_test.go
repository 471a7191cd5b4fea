package audit

import "testing"

func TestParseRoute(t *testing.T) {
	cases := []struct {
		method, route string
		want          ActionResource
	}{
		{"POST", "/v1/auth/otp/send", ActionResource{"otp_send", "otp"}},
		{"POST", "/v1/auth/otp/verify", ActionResource{"otp_verify", "otp"}},
		{"POST", "/v1/auth/refresh", ActionResource{"token_refresh", "session"}},
		{"POST", "/v1/auth/logout", ActionResource{"logout", "session"}},
		{"DELETE", "/v1/auth/sessions", ActionResource{"logout_all", "session"}},
		{"GET", "/v1/auth/sessions", ActionResource{"get", "session"}},
		{"DELETE", "/v1/auth/sessions/:id", ActionResource{"delete", "session"}},
		{"GET", "/v1/auth/stats", ActionResource{"get", "stat"}},
		{"PATCH", "/v1/notes/:id", ActionResource{"update", "note"}},
		{"OPTIONS", "/v1/auth/sessions", ActionResource{"options", "session"}},
		{"GET", "/", ActionResource{"get", "unknown"}},
	}
	for _, tc := range cases {
		got := ParseRoute(tc.method, tc.route)
		if got != tc.want {
			t.Errorf("ParseRoute(%s %s) = %+v, want %+v", tc.method, tc.route, got, tc.want)
		}
	}
}
