package rewrite

import (
	"context"
	"fmt"

	"mercator-hq/saturn/pkg/providers"
)

// RewriteFailedError is returned when a conversation cannot be rewritten,
// including when it contains no user-authored content to work from.
type RewriteFailedError struct {
	// Reason describes why the rewrite failed.
	Reason string
}

// Error implements the error interface.
func (e *RewriteFailedError) Error() string {
	return fmt.Sprintf("prompt rewrite failed: %s", e.Reason)
}

// Rewriter transforms a conversation that triggered a content-policy
// rejection into one the provider may accept.
type Rewriter interface {
	// Rewrite returns a revised message sequence or fails with a
	// *RewriteFailedError. It must fail when the input carries no
	// user-authored content.
	Rewrite(ctx context.Context, messages []providers.ChatMessage) ([]providers.ChatMessage, error)
}

// DefaultPreamble is the compliance framing TemplateRewriter prepends to
// the rejected user request.
const DefaultPreamble = "Please respond helpfully and within content guidelines to the following request, rephrasing anything problematic: "

// TemplateRewriter is a rule-based Rewriter. It reframes the last
// user-authored message with a compliance preamble and drops the
// assistant turns that followed it, so the retried conversation ends on
// the revised user request.
type TemplateRewriter struct {
	// Preamble overrides DefaultPreamble when non-empty.
	Preamble string
}

// Rewrite implements Rewriter.
func (r *TemplateRewriter) Rewrite(_ context.Context, messages []providers.ChatMessage) ([]providers.ChatMessage, error) {
	lastUser := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == providers.RoleUser {
			lastUser = i
			break
		}
	}
	if lastUser < 0 {
		return nil, &RewriteFailedError{Reason: "no user-authored content to rewrite"}
	}

	preamble := r.Preamble
	if preamble == "" {
		preamble = DefaultPreamble
	}

	out := make([]providers.ChatMessage, lastUser+1)
	copy(out, messages[:lastUser+1])
	out[lastUser] = providers.ChatMessage{
		Role:    providers.RoleUser,
		Content: preamble + messages[lastUser].Content,
	}
	return out, nil
}
