package detail

import (
	"go.uber.org/zap"

	"github.com/angainor/hwmalloc/internal/concurrency"
)

func newTestStack(capacity int) *concurrency.Stack[Block] {
	return concurrency.NewStack[Block](capacity)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
