// Saturn is a resilience gateway for chat-completion requests across
// LLM providers.
//
// It routes each request through a learned provider order, rotating
// credentials, tripping circuit breakers, rewriting content-policy
// rejections, and recording an audit ledger of every decision.
//
// Usage:
//
//	# Validate a configuration file
//	saturn validate --config /path/to/saturn.yaml
//
//	# Analyze provider performance over the last day
//	saturn analyze --config /path/to/saturn.yaml
//
//	# Show version information
//	saturn version
package main

func main() {
	Execute()
}
