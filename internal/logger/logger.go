package logger

import (
	"go.uber.org/zap"
)

// Init configures the global zap logger. Production config in all envs except
// development, where human-readable console output is more useful.
func Init(env string) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)

	if env == "development" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(log)
	return log, nil
}
