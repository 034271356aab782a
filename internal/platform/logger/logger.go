package logger

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
	redact        bool
}

// New builds a logger for the given mode. "test" yields a no-op logger.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "test":
		return &Logger{SugaredLogger: zap.NewNop().Sugar(), redact: true}, nil
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar(), redact: true}, nil
}

// Nop is used where a caller did not supply a logger.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), redact: true}
}

// WithoutRedaction disables value redaction. Only meant for local debugging.
func (l *Logger) WithoutRedaction() *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger, redact: false}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, l.sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, l.sanitizeKVs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.sanitizeKVs(keysAndValues)...), redact: l.redact}
}

func (l *Logger) sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 || !l.redact {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := strings.TrimSpace(strings.ToLower(toString(kv[i])))
		out = append(out, toString(kv[i]), sanitizeValue(key, kv[i+1]))
	}
	return out
}

func sanitizeValue(key string, val interface{}) interface{} {
	if isRedactKey(key) {
		return "[REDACTED]"
	}
	switch v := val.(type) {
	case string:
		return redactURLToken(v)
	case error:
		return redactURLToken(v.Error())
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = sanitizeValue(strings.ToLower(strings.TrimSpace(k)), inner)
		}
		return out
	default:
		return val
	}
}

func isRedactKey(key string) bool {
	if key == "" {
		return false
	}
	for _, s := range []string{"token", "authorization", "password", "secret", "api_key", "apikey", "cookie"} {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// redactURLToken masks the token query parameter of any URL embedded in s.
// Upstream errors from net/http quote the full request URL.
func redactURLToken(s string) string {
	if !strings.Contains(s, "token=") {
		return s
	}
	fields := strings.Fields(s)
	for i, f := range fields {
		if !strings.Contains(f, "token=") {
			continue
		}
		trimmed := strings.Trim(f, `"':,`)
		u, err := url.Parse(trimmed)
		if err != nil || u.RawQuery == "" {
			continue
		}
		q := u.Query()
		if q.Has("token") {
			q.Set("token", "REDACTED")
			u.RawQuery = q.Encode()
			fields[i] = strings.Replace(f, trimmed, u.String(), 1)
		}
	}
	return strings.Join(fields, " ")
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
