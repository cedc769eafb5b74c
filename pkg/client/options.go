package client

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

// Default production hosts.
const (
	DefaultDirectusURL = "https://admin.eshdavinci.nl"
	DefaultLassieURL   = "https://lassie.eshdavinci.nl"
)

// ActiveStrategy selects how GetMemberList(ctx, true) decides which
// members are active.
type ActiveStrategy int

const (
	// ActiveDefault picks the strategy that suits the backend: membership
	// join for Directus, the active flag for Lassie.
	ActiveDefault ActiveStrategy = iota
	// ActiveByFlag filters the member list on its active flag.
	ActiveByFlag
	// ActiveByMembership keeps members holding a membership that expires
	// today or later.
	ActiveByMembership
)

func (s ActiveStrategy) String() string {
	switch s {
	case ActiveByFlag:
		return "flag"
	case ActiveByMembership:
		return "membership"
	default:
		return "default"
	}
}

// Options configures the client behavior.
type Options struct {
	baseURL              string
	timeout              time.Duration
	httpClient           api.HttpRequestDoer
	logger               *log.Logger
	maxRetries           int
	retryWaitMin         time.Duration
	retryWaitMax         time.Duration
	institutions         InstitutionTable
	activeStrategy       ActiveStrategy
	deprecatedOperations bool
	bcryptCost           int
	now                  func() time.Time
}

func defaultOptions() *Options {
	return &Options{
		timeout:      30 * time.Second,
		logger:       log.New(io.Discard),
		maxRetries:   0,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 30 * time.Second,
		institutions: DefaultInstitutions(),
		bcryptCost:   bcrypt.DefaultCost,
		now:          time.Now,
	}
}

// Option configures the client.
type Option func(*Options)

// WithBaseURL overrides the production host of the selected backend.
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.baseURL = url
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client. The timeout option does not
// apply to a client supplied this way.
func WithHTTPClient(doer api.HttpRequestDoer) Option {
	return func(o *Options) {
		o.httpClient = doer
	}
}

// WithLogger sets the logger for request tracing. Requests are logged at
// debug level; credentials and PIN hashes are never logged.
func WithLogger(l *log.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts for read
// requests. Default is 0: failures surface immediately.
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.maxRetries = n
	}
}

// WithRetryWait sets the min/max retry backoff duration.
// Default is 1s min, 30s max.
func WithRetryWait(min, max time.Duration) Option {
	return func(o *Options) {
		o.retryWaitMin = min
		o.retryWaitMax = max
	}
}

// WithInstitutions replaces the institution code table used by GetMember.
func WithInstitutions(table InstitutionTable) Option {
	return func(o *Options) {
		o.institutions = table
	}
}

// WithActiveStrategy overrides how active members are selected.
func WithActiveStrategy(s ActiveStrategy) Option {
	return func(o *Options) {
		o.activeStrategy = s
	}
}

// WithDeprecatedOperations enables UpdatePerson, GetMembershipsByID and
// GetPayableMembershipsByID. Without it they return ErrNotImplemented.
func WithDeprecatedOperations() Option {
	return func(o *Options) {
		o.deprecatedOperations = true
	}
}

// WithBcryptCost sets the cost used when hashing new PINs.
func WithBcryptCost(cost int) Option {
	return func(o *Options) {
		o.bcryptCost = cost
	}
}

// WithClock sets the function used to determine today's date.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.now = now
		}
	}
}
