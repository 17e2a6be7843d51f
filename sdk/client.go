package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Storage keys used for session state.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Token is an access token issued by the platform's login endpoint.
type Token struct {
	AccessToken   string `json:"access_token"`
	TokenType     string `json:"token_type"`
	ExpiresIn     int    `json:"expires_in"`
	SlidingWindow int    `json:"sliding_window,omitempty"`
	// ExpireTime is the absolute expiry in Unix seconds.
	ExpireTime int64 `json:"expire_time,omitempty"`
}

// Expired reports whether the token is past its expiry. Tokens without an
// expiry never expire on the client side.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpireTime > 0 && now.Unix() >= t.ExpireTime
}

// User is the signed-in platform user.
type User struct {
	ID          string              `json:"id,omitempty"`
	UserName    string              `json:"userName"`
	Email       string              `json:"email,omitempty"`
	DisplayName string              `json:"displayName,omitempty"`
	Roles       []string            `json:"roles,omitempty"`
	Permissions map[string][]string `json:"permissions,omitempty"`
	IsAnonymous bool                `json:"isAnonymous,omitempty"`
}

// App is the entry point to the platform. It owns the transport, session
// storage and event adapters and exposes one client per platform module.
// All methods are safe for concurrent use as long as the configured
// adapters are.
//
// Example:
//
//	app, err := sdk.New("my-api-key", sdk.DefaultOptions().
//	    WithBaseURL("https://api.example.com"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if _, err := app.Membership.Login(ctx, "alice", "secret"); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := app.Articles.Find(ctx, &sdk.QueryOptions{Page: 1, RecordsPerPage: 10})
type App struct {
	apiKey     string
	apiURL     string
	options    *Options
	httpClient HTTPClient
	storage    StorageHandler
	events     EventHandler
	urlFactory URLFactory
	observer   Observer
	logger     logrus.FieldLogger

	Articles      *ArticleClient
	Membership    *MembershipClient
	Commerce      *CommerceClient
	KeyValues     *KeyValueClient
	ValueSets     *ValueSetClient
	Resources     *DynamicResourceClient
	Files         *FileClient
	MediaVaults   *MediaVaultClient
	Notifications *NotificationClient
	Templates     *Resource
	AppSettings   *Settings
	Metering      *MeteringClient
	Profiles      *ProfileClient
}

// New creates an App for apiKey. A nil opts uses DefaultOptions; nil
// fields of a non-nil opts fall back to their defaults.
func New(apiKey string, opts *Options) (*App, error) {
	if apiKey == "" {
		return nil, NewError(ErrorTypeValidation, "API key cannot be empty", ErrInvalidConfig)
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		apiKey:     apiKey,
		apiURL:     strings.TrimRight(opts.BaseURL, "/") + "/" + opts.APIVersion + "/" + apiKey + "/",
		options:    opts,
		httpClient: opts.HTTPClient(),
		storage:    opts.StorageHandler(),
		events:     opts.EventHandler(),
		urlFactory: opts.URLFactory,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}
	if a.httpClient == nil || a.storage == nil || a.events == nil {
		return nil, NewError(ErrorTypeValidation, "adapter factory returned nil", ErrInvalidConfig)
	}

	a.Articles = newArticleClient(a)
	a.Membership = newMembershipClient(a)
	a.Commerce = newCommerceClient(a)
	a.KeyValues = newKeyValueClient(a)
	a.ValueSets = newValueSetClient(a)
	a.Resources = newDynamicResourceClient(a)
	a.Files = newFileClient(a)
	a.MediaVaults = newMediaVaultClient(a)
	a.Notifications = newNotificationClient(a)
	a.Templates = NewResource(a, "templates")
	a.AppSettings = NewSettings(a, "application-settings")
	a.Metering = newMeteringClient(a)
	a.Profiles = newProfileClient(a)

	return a, nil
}

// APIKey returns the key the App was created with.
func (a *App) APIKey() string {
	return a.apiKey
}

// APIURL returns the base URL every module path is resolved against,
// e.g. "https://api.example.com/v1/my-api-key/".
func (a *App) APIURL() string {
	return a.apiURL
}

// HTTPClient returns the transport adapter.
func (a *App) HTTPClient() HTTPClient {
	return a.httpClient
}

// Storage returns the session store.
func (a *App) Storage() StorageHandler {
	return a.storage
}

// Events returns the session event bus. Subscribe to EventTokenUpdated,
// EventTokenExpired and EventUserUpdated here.
func (a *App) Events() EventHandler {
	return a.events
}

// Token returns the stored access token, or nil when none is stored.
func (a *App) Token(ctx context.Context) (*Token, error) {
	value, ok, err := a.storage.Get(ctx, TokenKey)
	if err != nil || !ok || value == nil {
		return nil, err
	}
	if token, ok := value.(*Token); ok {
		return token, nil
	}
	var token Token
	if err := convertValue(value, &token); err != nil {
		return nil, NewError(ErrorTypeParse, "stored token is malformed", err)
	}
	return &token, nil
}

// UpdateToken stores token and announces EventTokenUpdated. A nil token
// removes the stored one and announces EventTokenExpired.
func (a *App) UpdateToken(ctx context.Context, token *Token) error {
	if token == nil {
		if err := a.storage.Remove(ctx, TokenKey); err != nil {
			return err
		}
		a.trigger(EventTokenExpired, nil)
		return nil
	}
	if token.ExpireTime == 0 && token.ExpiresIn > 0 {
		token.ExpireTime = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second).Unix()
	}
	if err := a.storage.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	a.trigger(EventTokenUpdated, token)
	return nil
}

// User returns the stored user, or nil when none is stored.
func (a *App) User(ctx context.Context) (*User, error) {
	value, ok, err := a.storage.Get(ctx, UserKey)
	if err != nil || !ok || value == nil {
		return nil, err
	}
	if user, ok := value.(*User); ok {
		return user, nil
	}
	var user User
	if err := convertValue(value, &user); err != nil {
		return nil, NewError(ErrorTypeParse, "stored user is malformed", err)
	}
	return &user, nil
}

// SetUser stores user and announces EventUserUpdated. A nil user removes
// the stored one.
func (a *App) SetUser(ctx context.Context, user *User) error {
	var err error
	if user == nil {
		err = a.storage.Remove(ctx, UserKey)
	} else {
		err = a.storage.Set(ctx, UserKey, user)
	}
	if err != nil {
		return err
	}
	a.trigger(EventUserUpdated, user)
	return nil
}

// Do sends one request to path, relative to APIURL, and returns the
// response. A non-2xx status returns both the response and an *Error
// wrapping the *APIError.
//
// Example:
//
//	resp, err := app.Do(ctx, http.MethodGet, "articles", url.Values{"page": {"2"}}, nil)
func (a *App) Do(ctx context.Context, method, path string, query url.Values, body interface{}) (*Response, error) {
	return a.send(ctx, method, path, nil, query, body)
}

// send resolves route with params, attaches headers and the bearer token,
// and executes the request. route is reported to the observer unexpanded.
func (a *App) send(ctx context.Context, method, route string, params []string, query url.Values, body interface{}) (*Response, error) {
	start := time.Now()
	a.observer.OnRequestStart(method, route)

	resp, err := a.exchange(ctx, method, buildPath(route, params...), query, body)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	duration := time.Since(start)
	a.observer.OnRequestEnd(method, route, status, duration, err)

	entry := a.logger.WithFields(logrus.Fields{
		"method":      method,
		"route":       route,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Debug("request failed")
	} else {
		entry.Debug("request completed")
	}

	return resp, err
}

func (a *App) exchange(ctx context.Context, method, path string, query url.Values, body interface{}) (*Response, error) {
	base, rel := joinURL(a.apiURL, path)
	target, err := a.urlFactory(rel, base)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		merged := target.Query()
		for key, values := range query {
			for _, value := range values {
				merged.Add(key, value)
			}
		}
		target.RawQuery = merged.Encode()
	}

	req := NewRequest(method, target, body)
	for key, value := range a.options.Headers {
		req.Headers.Set(key, value)
	}
	req.Headers.Set("Accept", "application/json")

	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token != nil && token.AccessToken != "" {
		tokenType := token.TokenType
		if tokenType == "" {
			tokenType = "bearer"
		}
		req.Headers.Set("Authorization", tokenType+" "+token.AccessToken)
	}

	start := time.Now()
	resp, err := a.httpClient.Request(ctx, req)
	errCtx := &ErrorContext{URL: target.String(), Method: method, Duration: time.Since(start)}
	if err != nil {
		var sdkErr *Error
		if errors.As(err, &sdkErr) {
			return nil, sdkErr.WithContext(errCtx)
		}
		return nil, err
	}

	if !resp.OK() {
		apiErr := parseAPIError(resp.StatusCode, resp.Raw())
		sdkErr := apiErr.ToError().WithContext(errCtx)
		sdkErr.RequestID = resp.Headers.Get("X-Request-ID")
		if resp.StatusCode == http.StatusUnauthorized && token != nil {
			if expErr := a.UpdateToken(ctx, nil); expErr != nil {
				a.logger.WithError(expErr).Warn("failed to clear expired token")
			}
		}
		return resp, sdkErr
	}

	return resp, nil
}

func (a *App) trigger(name string, data interface{}) {
	a.observer.OnEvent(name)
	a.events.TriggerEvent(name, data)
}
