package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TestNewDirectus tests the NewDirectus() constructor with various scenarios
func TestNewDirectus(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		opts     []Option
		wantErr  bool
		errMsg   string
		validate func(t *testing.T, c *Client)
	}{
		{
			name:    "valid client with default options",
			token:   "tok",
			wantErr: false,
			validate: func(t *testing.T, c *Client) {
				if c.opts.baseURL != DefaultDirectusURL {
					t.Errorf("expected baseURL %s, got %s", DefaultDirectusURL, c.opts.baseURL)
				}
				if c.opts.timeout != 30*time.Second {
					t.Errorf("expected timeout 30s, got %v", c.opts.timeout)
				}
				if c.Backend() != "directus" {
					t.Errorf("expected directus backend, got %s", c.Backend())
				}
				if c.activeStrategy() != ActiveByMembership {
					t.Errorf("expected membership strategy, got %v", c.activeStrategy())
				}
			},
		},
		{
			name:    "empty token returns error",
			token:   "",
			wantErr: true,
			errMsg:  "token cannot be empty",
		},
		{
			name:    "empty baseURL returns error",
			token:   "tok",
			opts:    []Option{WithBaseURL("")},
			wantErr: true,
			errMsg:  "baseURL cannot be empty",
		},
		{
			name:    "custom baseURL",
			token:   "tok",
			opts:    []Option{WithBaseURL("http://localhost:8055")},
			wantErr: false,
			validate: func(t *testing.T, c *Client) {
				if c.opts.baseURL != "http://localhost:8055" {
					t.Errorf("expected custom baseURL, got %s", c.opts.baseURL)
				}
			},
		},
		{
			name:    "zero timeout returns error",
			token:   "tok",
			opts:    []Option{WithTimeout(0)},
			wantErr: true,
			errMsg:  "timeout must be positive",
		},
		{
			name:    "negative maxRetries returns error",
			token:   "tok",
			opts:    []Option{WithMaxRetries(-1)},
			wantErr: true,
			errMsg:  "maxRetries cannot be negative",
		},
		{
			name:    "retryWaitMin equal to max returns error",
			token:   "tok",
			opts:    []Option{WithRetryWait(time.Second, time.Second)},
			wantErr: true,
			errMsg:  "retryWaitMin must be less than retryWaitMax",
		},
		{
			name:    "zero retryWaitMin returns error",
			token:   "tok",
			opts:    []Option{WithRetryWait(0, time.Second)},
			wantErr: true,
			errMsg:  "retryWaitMin must be positive",
		},
		{
			name:    "bcrypt cost out of range",
			token:   "tok",
			opts:    []Option{WithBcryptCost(bcrypt.MaxCost + 1)},
			wantErr: true,
			errMsg:  "bcrypt cost must be between 4 and 31",
		},
		{
			name:    "strategy override",
			token:   "tok",
			opts:    []Option{WithActiveStrategy(ActiveByFlag)},
			wantErr: false,
			validate: func(t *testing.T, c *Client) {
				if c.activeStrategy() != ActiveByFlag {
					t.Errorf("expected flag strategy, got %v", c.activeStrategy())
				}
			},
		},
		{
			name:    "nil institutions become an empty table",
			token:   "tok",
			opts:    []Option{WithInstitutions(nil)},
			wantErr: false,
			validate: func(t *testing.T, c *Client) {
				if c.opts.institutions == nil {
					t.Fatal("expected non-nil table")
				}
				if got := c.opts.institutions.Lookup("tue"); got != UnknownInstitution {
					t.Errorf("expected %q, got %q", UnknownInstitution, got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewDirectus(tt.token, tt.opts...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if tt.errMsg != "" && err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("client is nil")
			}
			if tt.validate != nil {
				tt.validate(t, c)
			}
		})
	}
}

// TestNewLassie tests the NewLassie() constructor
func TestNewLassie(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		secret  string
		wantErr string
	}{
		{name: "valid", key: "k", secret: "s"},
		{name: "empty key", key: "", secret: "s", wantErr: "key cannot be empty"},
		{name: "empty secret", key: "k", secret: "", wantErr: "secret cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewLassie(tt.key, tt.secret)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("expected error %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.opts.baseURL != DefaultLassieURL {
				t.Errorf("expected baseURL %s, got %s", DefaultLassieURL, c.opts.baseURL)
			}
			if c.Backend() != "lassie" {
				t.Errorf("expected lassie backend, got %s", c.Backend())
			}
			if c.activeStrategy() != ActiveByFlag {
				t.Errorf("expected flag strategy, got %v", c.activeStrategy())
			}
		})
	}
}

// TestNewDirectusAuthorizationHeader validates that the token is sent as a bearer token
func TestNewDirectusAuthorizationHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":1,"first_name":"Anna","last_name":"Smit"}}`))
	}))
	defer server.Close()

	c, err := NewDirectus("test-token", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	name, err := c.GetNameByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetNameByID: %v", err)
	}
	if name != "Anna Smit" {
		t.Errorf("expected 'Anna Smit', got %q", name)
	}
	if got != "Bearer test-token" {
		t.Errorf("expected Authorization header 'Bearer test-token', got %q", got)
	}
}

// TestNewClientTimeout validates timeout option is applied to HTTP client
func TestNewClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, err := NewDirectus("tok", WithBaseURL(server.URL), WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = c.GetNameByID(context.Background(), 1)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if IsNotFound(err) || IsPermissionDenied(err) || IsServiceError(err) {
		t.Errorf("expected transport error, got %T: %v", err, err)
	}
}

// TestWithHTTPClientOverridesTimeout validates that a supplied doer is used as is
func TestWithHTTPClientOverridesTimeout(t *testing.T) {
	doer := &countingDoer{inner: http.DefaultClient}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":1,"first_name":"A","last_name":"B"}}`))
	}))
	defer server.Close()

	c, err := NewDirectus("tok", WithBaseURL(server.URL), WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if _, err := c.GetNameByID(context.Background(), 1); err != nil {
		t.Fatalf("GetNameByID: %v", err)
	}
	if doer.calls != 1 {
		t.Errorf("expected 1 call through the custom doer, got %d", doer.calls)
	}
}

type countingDoer struct {
	inner *http.Client
	calls int
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls++
	return d.inner.Do(req)
}

// BenchmarkNewDirectus benchmarks client creation
func BenchmarkNewDirectus(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, err := NewDirectus("tok", WithTimeout(30*time.Second))
		if err != nil {
			b.Fatalf("failed to create client: %v", err)
		}
	}
}
