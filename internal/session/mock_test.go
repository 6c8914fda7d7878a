package session

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	args := m.Called(ctx, query, k)
	res, _ := args.Get(0).(domain.RetrievalResult)
	return res, args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
