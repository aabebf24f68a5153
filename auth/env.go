package auth

import (
	"context"
	"os"
)

// envCookieVars maps environment variable names to cookie names.
var envCookieVars = map[string]string{
	"INSTAGRAM_SESSIONID": "sessionid",
	"INSTAGRAM_CSRFTOKEN": "csrftoken",
}

// EnvSource reads session cookies from environment variables.
type EnvSource struct{}

// Cookies returns session cookies from INSTAGRAM_* environment variables.
func (EnvSource) Cookies(_ context.Context) (map[string]string, error) {
	cookies := make(map[string]string)
	for envVar, cookieName := range envCookieVars {
		if value := os.Getenv(envVar); value != "" {
			cookies[cookieName] = value
		}
	}

	if len(cookies) == 0 {
		return nil, nil //nolint:nilnil // no env vars set is not an error
	}
	return cookies, nil
}

// EnvVars returns the environment variable names this source reads.
// Useful for help messages.
func EnvVars() []string {
	vars := make([]string, 0, len(envCookieVars))
	for envVar := range envCookieVars {
		vars = append(vars, envVar)
	}
	return vars
}
