package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/onsi/ginkgo/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewTestLogger installs a development logger that writes to GinkgoWriter at
// TRACE verbosity, so output only shows for failing specs.
func NewTestLogger() logr.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(ginkgo.GinkgoWriter), zapcore.Level(-TRACE))
	l := zapr.NewLogger(zap.New(core))
	SetLogger(l)
	return l
}
