package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JamesPrial/bookstore-api/pkg/books"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreateBook(ctx context.Context, title, author string, year int) (*books.Book, error) {
	args := m.Called(ctx, title, author, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*books.Book), args.Error(1)
}

func (m *MockBackend) GetBook(ctx context.Context, id string) (*books.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*books.Book), args.Error(1)
}

func (m *MockBackend) ListBooks(ctx context.Context, skip, limit int) ([]books.Book, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]books.Book), args.Error(1)
}

func (m *MockBackend) UpdateBook(ctx context.Context, id string, upd books.BookUpdate) (*books.Book, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*books.Book), args.Error(1)
}

func (m *MockBackend) DeleteBook(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) SearchBooks(ctx context.Context, filter books.BookFilter) ([]books.Book, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]books.Book), args.Error(1)
}

func (m *MockBackend) HealthCheck(ctx context.Context) books.HealthStatus {
	args := m.Called(ctx)
	return args.Get(0).(books.HealthStatus)
}

func (m *MockBackend) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}
