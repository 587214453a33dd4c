package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const callbackPath = "/callback"

// CallbackServer receives the provider redirect on localhost.
type CallbackServer struct {
	addr string
}

// NewCallbackServer creates a callback server bound to localhost:port.
func NewCallbackServer(port int) *CallbackServer {
	return &CallbackServer{addr: fmt.Sprintf("127.0.0.1:%d", port)}
}

// RedirectURL is the redirect URL to register with the provider for port.
func RedirectURL(port int) string {
	return fmt.Sprintf("http://localhost:%d%s", port, callbackPath)
}

type callbackResult struct {
	code string
	err  error
}

// WaitForCallback serves until one callback arrives, ctx is done or timeout elapses.
// The callback's state must equal state.
func (s *CallbackServer) WaitForCallback(ctx context.Context, state string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server: %w", err)
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		res := checkCallback(r, state)
		if res.err != nil {
			http.Error(w, "Authorization failed: "+res.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprintln(w, "Authorization complete. You can close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("timed out waiting for authorization: %w", ctx.Err())
		}
		return "", ctx.Err()
	}
}

func checkCallback(r *http.Request, state string) callbackResult {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return callbackResult{err: fmt.Errorf("%w: %s", ErrAuthorizationDenied, e)}
	}
	if q.Get("state") != state {
		return callbackResult{err: ErrInvalidState}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: ErrMissingCode}
	}
	return callbackResult{code: code}
}
