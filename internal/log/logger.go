package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.Mutex
	logger = zap.NewNop()
)

// Init builds the process logger (JSON in prod, console in dev) and installs
// it as the package logger. Safe to call again from tests.
func Init(prod bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if prod {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return l, nil
}

func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func Sync() {
	_ = L().Sync()
}
