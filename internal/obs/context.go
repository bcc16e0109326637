package obs

import (
	"context"
	"sort"
	"sync"
)

type logFieldsKey struct{}

type logFields struct {
	mu     sync.Mutex
	values map[string]string
}

// WithLogFields returns a context that collects fields for the request's access log line.
func WithLogFields(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, logFieldsKey{}, &logFields{values: map[string]string{}})
}

// AddLogField attaches key=value to the access log line of the request carried by ctx.
// It is a no-op when ctx was not prepared by RequestLogger.
func AddLogField(ctx context.Context, key, value string) {
	if ctx == nil || key == "" || value == "" {
		return
	}
	f, ok := ctx.Value(logFieldsKey{}).(*logFields)
	if !ok {
		return
	}
	f.mu.Lock()
	f.values[key] = value
	f.mu.Unlock()
}

// LogFieldsFromContext returns the collected fields as sorted key/value pairs.
func LogFieldsFromContext(ctx context.Context) [][2]string {
	if ctx == nil {
		return nil
	}
	f, ok := ctx.Value(logFieldsKey{}).(*logFields)
	if !ok {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][2]string, 0, len(f.values))
	for k, v := range f.values {
		out = append(out, [2]string{k, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
