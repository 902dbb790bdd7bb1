package biz

import "github.com/kart-io/logger"

// Logger 业务组件使用的日志接口，core.Logger 满足该接口。
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// globalLogger 延迟到调用时取全局日志，启动后 SetGlobal 的替换也能生效。
type globalLogger struct{}

func (globalLogger) Infow(msg string, kv ...interface{})  { logger.Global().Infow(msg, kv...) }
func (globalLogger) Warnw(msg string, kv ...interface{})  { logger.Global().Warnw(msg, kv...) }
func (globalLogger) Errorw(msg string, kv ...interface{}) { logger.Global().Errorw(msg, kv...) }

func orGlobal(l Logger) Logger {
	if l == nil {
		return globalLogger{}
	}
	return l
}
