package controllers

import (
	"context"

	"milorg-admin/apperr"
	"milorg-admin/auth"
	"milorg-admin/metrics"
)

type observedVerifier struct {
	next    auth.Verifier
	metrics *metrics.Metrics
}

// ObservedVerifier counts verification outcomes by error code.
func ObservedVerifier(next auth.Verifier, m *metrics.Metrics) auth.Verifier {
	if m == nil {
		return next
	}
	return observedVerifier{next: next, metrics: m}
}

func (v observedVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	identity, err := v.next.Verify(ctx, token)
	if err != nil {
		v.metrics.ObserveVerification(metrics.ResultFailure, apperr.From(err).Code)
		return nil, err
	}
	v.metrics.ObserveVerification(metrics.ResultSuccess, "")
	return identity, nil
}
