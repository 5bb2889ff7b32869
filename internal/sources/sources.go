// Package sources contains the per-API adapters plugged into the
// collector framework. Each adapter implements only the two narrow
// operations the framework delegates: fetch a raw payload and parse it.
package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrRequestFailed = errors.New("source request failed")
	ErrBadStatus     = errors.New("unexpected status code")
)

const defaultTimeout = 10 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET and decodes the JSON body into out.
func getJSON(client *http.Client, req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode, req.URL.Host)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrRequestFailed, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding body: %v", ErrRequestFailed, err)
	}
	return nil
}
