package client

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
)

// TestDefaultOptions validates the default options values
func TestDefaultOptions(t *testing.T) {
	opts := defaultOptions()

	if opts.timeout != 30*time.Second {
		t.Errorf("default timeout should be 30s, got %v", opts.timeout)
	}
	if opts.maxRetries != 0 {
		t.Errorf("default maxRetries should be 0, got %d", opts.maxRetries)
	}
	if opts.retryWaitMin != 1*time.Second {
		t.Errorf("default retryWaitMin should be 1s, got %v", opts.retryWaitMin)
	}
	if opts.retryWaitMax != 30*time.Second {
		t.Errorf("default retryWaitMax should be 30s, got %v", opts.retryWaitMax)
	}
	if opts.bcryptCost != bcrypt.DefaultCost {
		t.Errorf("default bcryptCost should be %d, got %d", bcrypt.DefaultCost, opts.bcryptCost)
	}
	if opts.activeStrategy != ActiveDefault {
		t.Errorf("default strategy should be ActiveDefault, got %v", opts.activeStrategy)
	}
	if opts.deprecatedOperations {
		t.Error("deprecated operations should be off by default")
	}
	if opts.logger == nil || opts.now == nil {
		t.Error("logger and clock must be set")
	}
}

// TestOptionFunctions tests individual option functions
func TestOptionFunctions(t *testing.T) {
	fixed := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		opt  Option
		want func(*Options) bool
	}{
		{
			name: "WithBaseURL",
			opt:  WithBaseURL("http://localhost:8055"),
			want: func(o *Options) bool { return o.baseURL == "http://localhost:8055" },
		},
		{
			name: "WithTimeout",
			opt:  WithTimeout(15 * time.Second),
			want: func(o *Options) bool { return o.timeout == 15*time.Second },
		},
		{
			name: "WithMaxRetries",
			opt:  WithMaxRetries(7),
			want: func(o *Options) bool { return o.maxRetries == 7 },
		},
		{
			name: "WithRetryWait",
			opt:  WithRetryWait(200*time.Millisecond, 45*time.Second),
			want: func(o *Options) bool {
				return o.retryWaitMin == 200*time.Millisecond && o.retryWaitMax == 45*time.Second
			},
		},
		{
			name: "WithInstitutions",
			opt:  WithInstitutions(InstitutionTable{"uu": "Utrecht University"}),
			want: func(o *Options) bool { return o.institutions.Lookup("uu") == "Utrecht University" },
		},
		{
			name: "WithActiveStrategy",
			opt:  WithActiveStrategy(ActiveByMembership),
			want: func(o *Options) bool { return o.activeStrategy == ActiveByMembership },
		},
		{
			name: "WithDeprecatedOperations",
			opt:  WithDeprecatedOperations(),
			want: func(o *Options) bool { return o.deprecatedOperations },
		},
		{
			name: "WithBcryptCost",
			opt:  WithBcryptCost(bcrypt.MinCost),
			want: func(o *Options) bool { return o.bcryptCost == bcrypt.MinCost },
		},
		{
			name: "WithClock",
			opt:  WithClock(func() time.Time { return fixed }),
			want: func(o *Options) bool { return o.now().Equal(fixed) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions()
			tt.opt(opts)
			if !tt.want(opts) {
				t.Errorf("option %s did not apply correctly", tt.name)
			}
		})
	}
}

// TestOptionOverwriting tests that later options overwrite earlier ones
func TestOptionOverwriting(t *testing.T) {
	opts := defaultOptions()
	WithTimeout(10 * time.Second)(opts)
	WithTimeout(20 * time.Second)(opts)

	if opts.timeout != 20*time.Second {
		t.Errorf("expected timeout 20s, got %v", opts.timeout)
	}
}

// TestNilOptionsAreIgnored tests that nil logger and clock keep the defaults
func TestNilOptionsAreIgnored(t *testing.T) {
	opts := defaultOptions()
	logger := opts.logger

	WithLogger(nil)(opts)
	WithClock(nil)(opts)

	if opts.logger != logger {
		t.Error("nil logger replaced the default")
	}
	if opts.now == nil {
		t.Error("nil clock replaced the default")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	opts := defaultOptions()
	WithLogger(logger)(opts)
	opts.logger.Debug("hello", "k", "v")

	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("expected log output, got %q", buf.String())
	}
}

func TestActiveStrategyString(t *testing.T) {
	tests := map[ActiveStrategy]string{
		ActiveDefault:      "default",
		ActiveByFlag:       "flag",
		ActiveByMembership: "membership",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
