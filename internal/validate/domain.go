package validate

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Result - вердикт по хосту перед запуском дорогого пайплайна
type Result struct {
	Exists     bool
	Offline    bool // DNS не ответил вовремя - не значит что домена нет
	Suggestion string
	Details    string
}

type cachedResult struct {
	result Result
	expiry time.Time
}

// типичные опечатки в TLD
var tldSuggestions = map[string]string{
	".con":  ".com",
	".cmo":  ".com",
	".ocm":  ".com",
	".comm": ".com",
	".se1":  ".se",
	".nte":  ".net",
}

// Validator проверяет существование домена через DNS с кешем на хост.
// Положительный и "not found" вердикты живут дольше, "offline" - короче:
// недоступность резолвера обычно временная.
type Validator struct {
	mu      sync.Mutex
	cache   map[string]cachedResult
	timeout time.Duration

	foundTTL   time.Duration
	offlineTTL time.Duration

	lookup func(ctx context.Context, host string) ([]string, error)
	now    func() time.Time

	logger *zap.Logger
}

type Config struct {
	Timeout    time.Duration
	FoundTTL   time.Duration
	OfflineTTL time.Duration
}

func New(cfg Config, logger *zap.Logger) *Validator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.FoundTTL <= 0 {
		cfg.FoundTTL = time.Hour
	}
	if cfg.OfflineTTL <= 0 {
		cfg.OfflineTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	resolver := &net.Resolver{}
	return &Validator{
		cache:      make(map[string]cachedResult),
		timeout:    cfg.Timeout,
		foundTTL:   cfg.FoundTTL,
		offlineTTL: cfg.OfflineTTL,
		lookup:     resolver.LookupHost,
		now:        time.Now,
		logger:     logger,
	}
}

func (v *Validator) Validate(ctx context.Context, hostname string) Result {
	hostname = strings.ToLower(strings.TrimSpace(hostname))

	v.mu.Lock()
	if c, ok := v.cache[hostname]; ok && v.now().Before(c.expiry) {
		v.mu.Unlock()
		return c.result
	}
	v.mu.Unlock()

	result := v.check(ctx, hostname)

	ttl := v.foundTTL
	if result.Offline {
		ttl = v.offlineTTL
	}

	v.mu.Lock()
	v.cache[hostname] = cachedResult{result: result, expiry: v.now().Add(ttl)}
	v.mu.Unlock()

	return result
}

// check гоняет DNS lookup наперегонки с таймером. Брошенный lookup
// довисает в фоне, его результат просто выкидывается.
func (v *Validator) check(ctx context.Context, hostname string) Result {
	type lookupOutcome struct {
		addrs []string
		err   error
	}

	done := make(chan lookupOutcome, 1)
	go func() {
		addrs, err := v.lookup(ctx, hostname)
		done <- lookupOutcome{addrs: addrs, err: err}
	}()

	timer := time.NewTimer(v.timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		v.logger.Debug("dns lookup timed out", zap.String("host", hostname))
		return Result{Offline: true, Details: "dns lookup timed out"}

	case out := <-done:
		if out.err != nil {
			var dnsErr *net.DNSError
			if errors.As(out.err, &dnsErr) && dnsErr.IsNotFound {
				return Result{
					Exists:     false,
					Suggestion: suggestFor(hostname),
					Details:    "host not found",
				}
			}
			// временная ошибка резолвера
			return Result{Offline: true, Details: out.err.Error()}
		}
		return Result{Exists: true, Details: "resolved to " + strings.Join(out.addrs, ", ")}
	}
}

func suggestFor(hostname string) string {
	for typo, fix := range tldSuggestions {
		if strings.HasSuffix(hostname, typo) {
			return strings.TrimSuffix(hostname, typo) + fix
		}
	}
	return ""
}
