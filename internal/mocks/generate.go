// Package mocks provides mock implementations for testing the cached query
// surface.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the repository ports. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockUserRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), "u1").Return(user, nil)
package mocks

// Generate mocks for the repository interfaces from internal/ports.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=repos_mock.go github.com/quillchat/quill/internal/ports UserRepository,ChatRepository,DocumentRepository
