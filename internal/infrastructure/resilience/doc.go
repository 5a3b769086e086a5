/*
Package resilience guards upstream origins with circuit breakers.

The rewriting proxy and the screenshot API client fetch from hosts the
backend does not control. A host that keeps failing is short-circuited for a
while instead of tying up request goroutines on every review frame that
references it.

A Group keeps one Breaker per upstream host, created on first use:

	hosts := resilience.NewGroup(resilience.Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	body, err := resilience.Do(hosts.Get(u.Host), func() ([]byte, error) {
		return fetch(ctx, u.String())
	})

IsSuccessful decides what counts against a host. A reviewer closing a frame
cancels the request context; that, and upstream 4xx answers, are the
client's business and never open the breaker.

States follow the usual cycle:

	Closed --[ReadyToTrip]--> Open --[Timeout]--> Half-Open --[MaxRequests ok]--> Closed
	                                                  |
	                                              [failure] --> Open
*/
package resilience
