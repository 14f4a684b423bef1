package errreport

import (
	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Reporter 错误上报，fire-and-forget，不返回错误
type Reporter interface {
	Error(msg string, err error, fields ...zap.Field)
	Close()
}

type Config struct {
	Token       string
	Environment string
	CodeVersion string
}

type reporter struct {
	tl      *zap.Logger
	rollbar *rollbar.Client
}

// New token 为空时只写日志
func New(cfg Config, tl *zap.Logger) Reporter {
	r := &reporter{tl: tl}
	if cfg.Token != "" {
		r.rollbar = rollbar.New(cfg.Token, cfg.Environment, cfg.CodeVersion, "", "")
	}
	return r
}

func (r *reporter) Error(msg string, err error, fields ...zap.Field) {
	r.tl.Error(msg, append(fields, zap.Error(err))...)
	if r.rollbar == nil {
		return
	}
	extras := make(map[string]interface{}, len(fields)+1)
	extras["message"] = msg
	for k, v := range zapFieldsToMap(fields) {
		extras[k] = v
	}
	r.rollbar.ErrorWithExtras(rollbar.ERR, err, extras)
}

func (r *reporter) Close() {
	if r.rollbar != nil {
		r.rollbar.Close()
	}
}

func zapFieldsToMap(fields []zap.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}
