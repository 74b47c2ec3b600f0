package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"wassette/internal/sandbox"
)

// handleOutboundHTTP backs the guest-visible wasi:http/outgoing-handler
// import. It is registered once on the shared runtime at engine
// construction; every call carries its own sandbox snapshot via the
// context, so a policy mutation between loads takes effect on the next
// call without re-linking the component.
func (h *Handle) handleOutboundHTTP(ctx context.Context, method, rawURL string, body []byte) (int, []byte, error) {
	cc, ok := callContextFrom(ctx)
	if !ok {
		return 0, nil, fmt.Errorf("outbound http called outside a component invocation")
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid outbound url: %w", err)
	}

	if !cc.sandbox.AllowsHost(target.Hostname()) {
		return 0, nil, &sandbox.PermissionDeniedError{
			Identity:  cc.identity,
			Operation: "network",
			Target:    target.Hostname(),
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("building outbound request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("outbound request to %s failed: %w", target.Hostname(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading outbound response from %s: %w", target.Hostname(), err)
	}
	return resp.StatusCode, respBody, nil
}
