package mocks

import "github.com/stretchr/testify/mock"

type TokenGeneratorMock struct {
	mock.Mock
}

func (m *TokenGeneratorMock) Generate(telegramID string) (string, error) {
	args := m.Called(telegramID)
	return args.String(0), args.Error(1)
}
