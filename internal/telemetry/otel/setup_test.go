package otel

import (
	"context"
	"testing"
)

func TestNewProviders_EmptyEndpointIsNoop(t *testing.T) {
	p, err := NewProviders(context.Background(), "", "notevault-auth", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	if p.TracerProvider == nil || p.MeterProvider == nil || p.LoggerProvider == nil {
		t.Fatal("providers should be non-nil even without an endpoint")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	cases := []string{"://bad", "http://"}
	for _, endpoint := range cases {
		if _, err := NewProviders(context.Background(), endpoint, "notevault-auth", false); err == nil {
			t.Errorf("NewProviders(%q) should fail", endpoint)
		}
	}
}

func TestNewProviders_EndpointWithPath(t *testing.T) {
	// Exporter construction does not dial; a well-formed endpoint must succeed
	// and the path component must be tolerated.
	p, err := NewProviders(context.Background(), "http://localhost:4317/v1/traces", "notevault-auth", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	cancel()
	_ = p.Shutdown(ctx)
}

func TestSetGlobal_NilSafe(t *testing.T) {
	p := &Providers{}
	p.SetGlobal()
}
