package testutil

import (
	"net/http"

	"escrowd/pkg/domain"
	"escrowd/pkg/requestcontext"
)

// WithCaller marks the request as authenticated for address, as the session
// middleware would.
func WithCaller(req *http.Request, address domain.Address) *http.Request {
	ctx := req.Context()
	caller := requestcontext.Caller(ctx)
	caller.Address = address
	return req.WithContext(requestcontext.WithCaller(ctx, caller))
}

// WithAdmin grants the administrative capability, as the admin token
// middleware would.
func WithAdmin(req *http.Request) *http.Request {
	ctx := req.Context()
	caller := requestcontext.Caller(ctx)
	caller.Admin = true
	return req.WithContext(requestcontext.WithCaller(ctx, caller))
}
