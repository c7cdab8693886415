// Package resilience groups the fault tolerance helpers used around the
// upstream news provider: a circuit breaker that stops calling a failing
// provider and a bounded retry for transient transport errors.
//
//	cb := circuitbreaker.New(circuitbreaker.ProviderConfig("marketaux"))
//	err := retry.WithBackoff(ctx, retry.ProviderConfig(), func() error {
//	    _, err := cb.Execute(func() (interface{}, error) { return nil, call(ctx) })
//	    return err
//	})
package resilience
