package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

// boardMarker identifies board committees by name.
const boardMarker = "Board"

// Client is the membership API client.
//
// A Client is safe for concurrent use by multiple goroutines. Its
// configuration is fixed at construction; calls share nothing else.
type Client struct {
	backend backend
	opts    *Options
}

// NewDirectus creates a client for the Directus REST backend, authenticated
// with a static access token.
func NewDirectus(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}

	options, err := buildOptions(DefaultDirectusURL, opts)
	if err != nil {
		return nil, err
	}

	// Pre-allocate auth header to avoid allocation on every request
	authHeader := "Bearer " + token
	raw, err := api.NewDirectusClient(options.baseURL,
		api.WithHTTPClient(httpDoer(options)),
		api.WithRequestEditorFn(func(_ context.Context, req *http.Request) error {
			req.Header.Set("Authorization", authHeader)
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Client{
		backend: &directusBackend{
			caller:       caller{retrier: newRetrier(options), logger: options.logger.WithPrefix("directus")},
			raw:          raw,
			institutions: options.institutions,
		},
		opts: options,
	}, nil
}

// NewLassie creates a client for the legacy Lassie RPC backend. Every
// request is signed with key and secret.
func NewLassie(key, secret string, opts ...Option) (*Client, error) {
	if key == "" {
		return nil, errors.New("key cannot be empty")
	}
	if secret == "" {
		return nil, errors.New("secret cannot be empty")
	}

	options, err := buildOptions(DefaultLassieURL, opts)
	if err != nil {
		return nil, err
	}

	raw, err := api.NewLassieClient(options.baseURL,
		api.WithHTTPClient(httpDoer(options)),
		api.WithRequestEditorFn(api.NewSigner(key, secret).Editor()),
	)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Client{
		backend: &lassieBackend{
			caller:       caller{retrier: newRetrier(options), logger: options.logger.WithPrefix("lassie")},
			raw:          raw,
			institutions: options.institutions,
		},
		opts: options,
	}, nil
}

func buildOptions(defaultURL string, opts []Option) (*Options, error) {
	options := defaultOptions()
	options.baseURL = defaultURL
	for _, opt := range opts {
		opt(options)
	}

	// Validate options
	if options.baseURL == "" {
		return nil, errors.New("baseURL cannot be empty")
	}
	if options.timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	if options.maxRetries < 0 {
		return nil, errors.New("maxRetries cannot be negative")
	}
	if options.retryWaitMin <= 0 {
		return nil, errors.New("retryWaitMin must be positive")
	}
	if options.retryWaitMax <= 0 {
		return nil, errors.New("retryWaitMax must be positive")
	}
	if options.retryWaitMin >= options.retryWaitMax {
		return nil, errors.New("retryWaitMin must be less than retryWaitMax")
	}
	if options.bcryptCost < bcrypt.MinCost || options.bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if options.institutions == nil {
		options.institutions = InstitutionTable{}
	}
	return options, nil
}

func httpDoer(options *Options) api.HttpRequestDoer {
	if options.httpClient != nil {
		return options.httpClient
	}
	return &http.Client{Timeout: options.timeout}
}

// Backend returns the name of the backend this client talks to.
func (c *Client) Backend() string {
	return c.backend.kind()
}

// GetNameByID returns the display name of a member.
func (c *Client) GetNameByID(ctx context.Context, id int) (string, error) {
	m, err := c.backend.member(ctx, id)
	if err != nil {
		return "", err
	}
	return m.Name(), nil
}

// GetListOfNames maps member ids to display names, optionally for active
// members only.
func (c *Client) GetListOfNames(ctx context.Context, active bool) (map[int]string, error) {
	members, err := c.GetMemberList(ctx, active)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name()
	}
	return names, nil
}

// GetMemberList returns all members, or only the active ones. Which
// members count as active depends on the ActiveStrategy.
func (c *Client) GetMemberList(ctx context.Context, active bool) ([]Member, error) {
	if !active {
		return c.backend.members(ctx)
	}

	switch c.activeStrategy() {
	case ActiveByFlag:
		members, err := c.backend.members(ctx)
		if err != nil {
			return nil, err
		}
		return slices.DeleteFunc(members, func(m Member) bool { return !m.Active }), nil
	default:
		ids, err := c.backend.activeMemberIDs(ctx, c.today())
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []Member{}, nil
		}
		return c.backend.membersByID(ctx, ids)
	}
}

func (c *Client) today() time.Time {
	return c.opts.now()
}

func (c *Client) activeStrategy() ActiveStrategy {
	if c.opts.activeStrategy != ActiveDefault {
		return c.opts.activeStrategy
	}
	return c.backend.defaultActiveStrategy()
}

// Authenticate checks a PIN against the stored hash. A member without a
// PIN never authenticates; that is not an error.
func (c *Client) Authenticate(ctx context.Context, id int, password string) (bool, error) {
	hash, err := c.backend.pinHash(ctx, id)
	if err != nil {
		return false, err
	}
	ok := verifyPassword(hash, password)
	c.opts.logger.Debug("authenticate", "member", id, "ok", ok)
	return ok, nil
}

// HasToSetPassword reports whether the member has no PIN yet.
func (c *Client) HasToSetPassword(ctx context.Context, id int) (bool, error) {
	hash, err := c.backend.pinHash(ctx, id)
	if err != nil {
		return false, err
	}
	return hash == "", nil
}

// SetNewPassword hashes password and stores it as the member's PIN,
// replacing any previous one.
func (c *Client) SetNewPassword(ctx context.Context, id int, password string) (bool, error) {
	hash, err := hashPassword(password, c.opts.bcryptCost)
	if err != nil {
		return false, err
	}
	if err := c.backend.setPinHash(ctx, id, hash); err != nil {
		return false, err
	}
	return true, nil
}

// CreatePerson creates a member and its address. The join date is today.
// The returned member carries the generated ids.
func (c *Client) CreatePerson(ctx context.Context, p NewPerson) (*Member, error) {
	if p.FirstName == "" || p.LastName == "" {
		return nil, errors.New("first and last name are required")
	}
	m, err := c.backend.createPerson(ctx, p, c.today())
	if err != nil {
		return nil, err
	}
	if m.ID <= 0 {
		return nil, fmt.Errorf("%w: created member has no id", ErrUnexpectedResponse)
	}
	c.opts.logger.Info("member created", "member", m.ID)
	return &m, nil
}

// GetMember returns the full record of a member, including board status.
// A failing sub-request fails the whole call.
func (c *Client) GetMember(ctx context.Context, id int) (*MemberDetail, error) {
	detail, err := c.backend.memberDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	boards, err := c.backend.committeesNamed(ctx, boardMarker)
	if err != nil {
		return nil, err
	}
	if len(boards) > 0 {
		seats, err := c.backend.activeCommitteeSeats(ctx, detail.ID, boards, c.today())
		if err != nil {
			return nil, err
		}
		detail.IsBoard = seats > 0
	}
	return &detail, nil
}

// UpdatePerson changes fields of a member.
//
// Deprecated: only available with WithDeprecatedOperations.
func (c *Client) UpdatePerson(ctx context.Context, id int, u PersonUpdate) (bool, error) {
	if !c.opts.deprecatedOperations {
		return false, notImplemented("UpdatePerson")
	}
	if u.empty() {
		return false, errors.New("update has no fields")
	}
	if err := c.backend.updatePerson(ctx, id, u); err != nil {
		return false, err
	}
	return true, nil
}

// GetMembershipsByID lists the memberships of a member.
//
// Deprecated: only available with WithDeprecatedOperations.
func (c *Client) GetMembershipsByID(ctx context.Context, id int) ([]Membership, error) {
	if !c.opts.deprecatedOperations {
		return nil, notImplemented("GetMembershipsByID")
	}
	return c.backend.memberships(ctx, id, c.today())
}

// GetPayableMembershipsByID lists the memberships of a member that are
// open for payment.
//
// Deprecated: only available with WithDeprecatedOperations, and only on
// the Lassie backend.
func (c *Client) GetPayableMembershipsByID(ctx context.Context, id int) ([]Membership, error) {
	if !c.opts.deprecatedOperations {
		return nil, notImplemented("GetPayableMembershipsByID")
	}
	return c.backend.payableMemberships(ctx, id)
}
