package kouhai

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LiveProbe reports whether a channel is currently streaming.
type LiveProbe func(channel string) (bool, error)

const defaultProbeBase = "https://decapi.me"

// NewHTTPLiveProbe builds a probe against a decapi-compatible uptime
// endpoint.  An empty base selects the public instance.
func NewHTTPLiveProbe(base string) LiveProbe {
	if base == "" {
		base = defaultProbeBase
	}
	client := &http.Client{Timeout: 2 * time.Second}
	return func(channel string) (bool, error) {
		url := fmt.Sprintf("%s/twitch/uptime/%s?offline_msg=OFFLINE", base, channel)
		resp, err := client.Get(url)
		if err != nil {
			return false, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("uptime probe: unexpected status %s", resp.Status)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if err != nil {
			return false, err
		}
		return strings.TrimSpace(string(body)) != "OFFLINE", nil
	}
}
