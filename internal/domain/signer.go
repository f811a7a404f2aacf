package domain

import "context"

type signerKey struct{}

// WithSigner returns a context carrying the account that authenticated the
// current request.
func WithSigner(ctx context.Context, id AccountID) context.Context {
	return context.WithValue(ctx, signerKey{}, id)
}

// SignerFromContext returns the authenticated account, if any.
func SignerFromContext(ctx context.Context) (AccountID, bool) {
	id, ok := ctx.Value(signerKey{}).(AccountID)
	return id, ok && id != ""
}
