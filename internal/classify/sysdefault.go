package classify

import (
	"net/http"
	"strings"
)

type sysSignature struct {
	label      string
	serverHint string
	bodyHints  []string
}

var sysDefaults = []sysSignature{
	{label: "Nginx Default", serverHint: "nginx", bodyHints: []string{"welcome to nginx"}},
	{label: "Apache Default", serverHint: "apache", bodyHints: []string{"it works!", "apache2 ubuntu default page"}},
	{label: "IIS Default", serverHint: "microsoft-iis", bodyHints: []string{"iis windows server"}},
}

// matchSysDefault reports whether status/headers/body look like an
// unconfigured web-server default page rather than an application
// response.
func matchSysDefault(status int, headers http.Header, body []byte) (label string, ok bool) {
	if status < 400 || status >= 600 {
		return "", false
	}
	server := strings.ToLower(headers.Get("Server"))
	lowerBody := strings.ToLower(string(body))

	for _, sig := range sysDefaults {
		if sig.serverHint != "" && !strings.Contains(server, sig.serverHint) {
			continue
		}
		for _, hint := range sig.bodyHints {
			if strings.Contains(lowerBody, hint) {
				return sig.label, true
			}
		}
	}
	return "", false
}
