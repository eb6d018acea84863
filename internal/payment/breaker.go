package payment

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// newBreaker guards calls to an external payment gateway. Transport errors
// and 5xx responses count as failures; after five consecutive failures the
// breaker opens for thirty seconds so checkout traffic is not held hostage by
// a dead gateway.
func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// doGuarded sends the request through the breaker. Gateway-side failures are
// surfaced as errors so the breaker can trip on them.
func doGuarded(cb *gobreaker.CircuitBreaker[*http.Response], client *http.Client, req *http.Request) (*http.Response, error) {
	return cb.Execute(func() (*http.Response, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}
		return resp, nil
	})
}
