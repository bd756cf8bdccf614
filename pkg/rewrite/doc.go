// Package rewrite defines the prompt-mitigation contract used after a
// content-policy rejection.
//
// The failover engine invokes a Rewriter at most once per request: given
// the original conversation, the rewriter produces a revised conversation
// the provider may accept, or fails with a RewriteFailedError. The
// TemplateRewriter is the rule-based reference implementation.
package rewrite
