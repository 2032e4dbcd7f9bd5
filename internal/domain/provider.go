package domain

import "context"

// TranslationProvider translates a market's title and description in a single
// call.
type TranslationProvider interface {
	Translate(ctx context.Context, req TranslationRequest) (TranslationResult, error)
}
