// Package resilience provides reliability and fault tolerance patterns for
// the application: bounded retry with deterministic exponential backoff, and
// per-resource circuit breakers that stop hammering a failing dependency.
//
// Usage example:
//
//	breaker := registry.ForHost("api.example.com")
//	_, err := breaker.Execute(func() (interface{}, error) {
//	    return nil, executor.Do(ctx, retry.CrawlConfig(), "crawl", func() error {
//	        return callRemote()
//	    })
//	})
package resilience
