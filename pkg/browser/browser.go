// Package browser opens the OAuth consent page in the user's default browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Open opens rawURL in the default browser. Only http and https URLs are
// passed to the system launcher.
func Open(rawURL string) error {
	name, args, err := launcher(runtime.GOOS, rawURL)
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start() // #nosec G204 -- URL validated by launcher
}

// launcher returns the platform command that opens rawURL.
func launcher(goos, rawURL string) (string, []string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", nil, fmt.Errorf("unsupported URL scheme: %q (only http and https allowed)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", nil, fmt.Errorf("invalid URL: missing host")
	}

	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{rawURL}, nil
	case "darwin":
		return "open", []string{rawURL}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
