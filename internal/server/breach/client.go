package breach

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const prefixLen = 5

// RangeClient queries a k-anonymity password range API. Only the first five
// hex characters of the SHA-1 digest are sent; the suffix is matched locally.
type RangeClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewRangeClient returns a client for baseURL (for example
// "https://api.pwnedpasswords.com/range/"). Each lookup is bounded by timeout.
func NewRangeClient(baseURL string, timeout time.Duration) *RangeClient {
	return &RangeClient{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// Digest returns the upper-case hex SHA-1 of password split into the
// prefix that is sent and the suffix that is kept.
func Digest(password string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(password))
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	return h[:prefixLen], h[prefixLen:]
}

// Breached reports whether password appears in the corpus.
func (c *RangeClient) Breached(ctx context.Context, password string) (bool, error) {
	prefix, suffix := Digest(password)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+prefix, nil)
	if err != nil {
		return false, fmt.Errorf("build range request: %w", err)
	}
	req.Header.Set("Add-Padding", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("range request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("range request: unexpected status %d", resp.StatusCode)
	}

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		candidate, count, _ := strings.Cut(line, ":")
		// padded responses carry zero-count decoys
		if strings.EqualFold(candidate, suffix) && strings.TrimSpace(count) != "0" {
			return true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return false, fmt.Errorf("read range response: %w", err)
	}
	return false, nil
}
