// Package logging builds the shared zap logger.
package logging

import "go.uber.org/zap"

// New returns a console-encoded sugared logger. With debug set, the
// development config is used and Debug-level messages are emitted;
// otherwise production config at Info level.
func New(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Encoding = "console"

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
