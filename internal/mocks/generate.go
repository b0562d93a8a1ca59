// Package mocks provides mock implementations for testing the session core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces. The mocks are generated using go:generate directives.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockCredentialStore(ctrl)
//	store.EXPECT().Load(gomock.Any()).Return(state, nil)
//
// Hand-written func-field doubles for the API ports live in the auth
// subpackage; they are lighter for tests that just script responses.
package mocks

// Generate mock for CredentialStore interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/shopdesk/shopdesk-go/internal/ports CredentialStore

// Generate mock for SubscriptionAPI interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=subscription_api_mock.go github.com/shopdesk/shopdesk-go/internal/ports SubscriptionAPI
