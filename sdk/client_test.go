package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockStorage is a testify mock for StorageHandler.
type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Get(ctx context.Context, key string) (interface{}, bool, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Bool(1), args.Error(2)
}

func (m *mockStorage) Set(ctx context.Context, key string, value interface{}) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockStorage) Remove(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStorage) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestNew_Defaults(t *testing.T) {
	app, err := New("my-key", nil)
	require.NoError(t, err)

	assert.Equal(t, "my-key", app.APIKey())
	assert.Equal(t, "http://localhost:8080/v1/my-key/", app.APIURL())
	assert.IsType(t, &nativeHTTPClient{}, app.HTTPClient())
	assert.IsType(t, &InMemoryStorageHandler{}, app.Storage())
	assert.IsType(t, &EventEmitter{}, app.Events())
	assert.NotNil(t, app.Articles)
	assert.NotNil(t, app.Membership)
	assert.NotNil(t, app.Commerce)
	assert.NotNil(t, app.Profiles)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New("key", &Options{BaseURL: "ftp://example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New("key", &Options{HTTPClient: func() HTTPClient { return nil }})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_PartialOverrideKeepsDefaults(t *testing.T) {
	ms := newMockServer(t)
	ms.onJSON("GET "+ms.apiPrefix()+"articles", http.StatusOK, map[string]interface{}{"item": []interface{}{}})

	custom := NewInMemoryStorageHandler()
	factoryCalls := 0
	app, err := New(testAPIKey, &Options{
		BaseURL: ms.URL,
		StorageHandler: func() StorageHandler {
			factoryCalls++
			return custom
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, factoryCalls)
	assert.Same(t, custom, app.Storage())
	assert.IsType(t, &nativeHTTPClient{}, app.HTTPClient())
	assert.IsType(t, &EventEmitter{}, app.Events())

	// Default transport and URL factory work.
	resp, err := app.Articles.Find(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Default event handler works and the custom store is used.
	var announced interface{}
	app.Events().AddEvent(EventTokenUpdated, func(data interface{}) { announced = data })
	token := &Token{AccessToken: "t1", TokenType: "bearer"}
	require.NoError(t, app.UpdateToken(context.Background(), token))
	assert.Same(t, token, announced)

	stored, ok, err := custom.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, token, stored)
}

func TestNew_CustomAdapters(t *testing.T) {
	var seen *Request
	client := HTTPClientFunc(func(_ context.Context, req *Request) (*Response, error) {
		seen = req
		return &Response{Request: req, StatusCode: http.StatusOK}, nil
	})
	urlCalls := 0

	app, err := New("k", &Options{
		BaseURL:    "https://api.example.com",
		HTTPClient: func() HTTPClient { return client },
		URLFactory: func(path, base string) (*url.URL, error) {
			urlCalls++
			return DefaultURLFactory(path, base)
		},
	})
	require.NoError(t, err)

	_, err = app.Articles.Get(context.Background(), "a 1", nil)
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, 1, urlCalls)
	assert.Equal(t, "https://api.example.com/v1/k/articles/a%201", seen.URL.String())
	assert.Equal(t, "application/json", seen.Headers.Get("Accept"))
}

func TestApp_TokenLifecycle(t *testing.T) {
	ctx := context.Background()
	app, err := New("k", nil)
	require.NoError(t, err)

	var events []string
	app.Events().AddEvent(EventTokenUpdated, func(interface{}) { events = append(events, EventTokenUpdated) })
	app.Events().AddEvent(EventTokenExpired, func(interface{}) { events = append(events, EventTokenExpired) })

	token, err := app.Token(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)

	require.NoError(t, app.UpdateToken(ctx, &Token{AccessToken: "abc", TokenType: "bearer", ExpiresIn: 3600}))
	token, err = app.Token(ctx)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "abc", token.AccessToken)
	assert.NotZero(t, token.ExpireTime)

	require.NoError(t, app.UpdateToken(ctx, nil))
	token, err = app.Token(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)

	assert.Equal(t, []string{EventTokenUpdated, EventTokenExpired}, events)
}

func TestApp_TokenFromSerializedStore(t *testing.T) {
	store := &mockStorage{}
	store.On("Get", mock.Anything, TokenKey).Return(map[string]interface{}{
		"access_token": "from-redis",
		"token_type":   "bearer",
	}, true, nil)
	store.On("Get", mock.Anything, UserKey).Return(map[string]interface{}{
		"userName": "alice",
		"roles":    []interface{}{"admin"},
	}, true, nil)

	app, err := New("k", &Options{StorageHandler: func() StorageHandler { return store }})
	require.NoError(t, err)

	token, err := app.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-redis", token.AccessToken)

	user, err := app.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UserName)
	assert.Equal(t, []string{"admin"}, user.Roles)

	store.AssertExpectations(t)
}

func TestApp_StorageErrorsPropagate(t *testing.T) {
	storeErr := errors.New("store down")
	store := &mockStorage{}
	store.On("Get", mock.Anything, TokenKey).Return(nil, false, storeErr)
	store.On("Set", mock.Anything, UserKey, mock.Anything).Return(storeErr)

	app, err := New("k", &Options{StorageHandler: func() StorageHandler { return store }})
	require.NoError(t, err)

	_, err = app.Token(context.Background())
	assert.ErrorIs(t, err, storeErr)

	_, err = app.Articles.Find(context.Background(), nil)
	assert.ErrorIs(t, err, storeErr)

	fired := false
	app.Events().AddEvent(EventUserUpdated, func(interface{}) { fired = true })
	err = app.SetUser(context.Background(), &User{UserName: "bob"})
	assert.ErrorIs(t, err, storeErr)
	assert.False(t, fired)
}

func TestApp_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	app, err := New("k", nil)
	require.NoError(t, err)

	var announced []interface{}
	app.Events().AddEvent(EventUserUpdated, func(data interface{}) { announced = append(announced, data) })

	user := &User{ID: "u1", UserName: "alice"}
	require.NoError(t, app.SetUser(ctx, user))
	got, err := app.User(ctx)
	require.NoError(t, err)
	assert.Same(t, user, got)

	require.NoError(t, app.SetUser(ctx, nil))
	got, err = app.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.Len(t, announced, 2)
	assert.Same(t, user, announced[0])
	assert.Nil(t, announced[1])
}

func TestApp_AttachesHeaders(t *testing.T) {
	ms := newMockServer(t)
	ms.onJSON("GET "+ms.apiPrefix()+"articles", http.StatusOK, map[string]interface{}{})

	app := newTestApp(t, ms, DefaultOptions().WithHeader("X-Tenant-ID", "t-1"))
	ctx := context.Background()

	_, err := app.Articles.Find(ctx, nil)
	require.NoError(t, err)
	got := ms.lastRequest(t)
	assert.Empty(t, got.Headers.Get("Authorization"))
	assert.Equal(t, "t-1", got.Headers.Get("X-Tenant-ID"))

	require.NoError(t, app.UpdateToken(ctx, &Token{AccessToken: "abc", TokenType: "bearer"}))
	_, err = app.Articles.Find(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "bearer abc", ms.lastRequest(t).Headers.Get("Authorization"))

	require.NoError(t, app.UpdateToken(ctx, &Token{AccessToken: "xyz"}))
	_, err = app.Articles.Find(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "bearer xyz", ms.lastRequest(t).Headers.Get("Authorization"))
}

func TestApp_UnauthorizedExpiresToken(t *testing.T) {
	ms := newMockServer(t)
	ms.onError("GET "+ms.apiPrefix()+"articles", http.StatusUnauthorized, "token expired")

	app := newTestApp(t, ms, nil)
	ctx := context.Background()

	expired := 0
	app.Events().AddEvent(EventTokenExpired, func(interface{}) { expired++ })

	// Without a token a 401 leaves nothing to expire.
	_, err := app.Articles.Find(ctx, nil)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 0, expired)

	require.NoError(t, app.UpdateToken(ctx, &Token{AccessToken: "old"}))
	resp, err := app.Articles.Find(ctx, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, expired)

	token, err := app.Token(ctx)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestApp_ErrorResponses(t *testing.T) {
	ms := newMockServer(t)
	ms.on("GET "+ms.apiPrefix()+"articles/missing", func(w http.ResponseWriter, _ *http.Request) (int, interface{}) {
		w.Header().Set("X-Request-ID", "req-42")
		return http.StatusNotFound, map[string]string{"error": "article not found", "code": "NOT_FOUND"}
	})
	ms.onJSON("GET "+ms.apiPrefix()+"articles/broken", http.StatusInternalServerError, map[string]string{"message": "boom"})

	app := newTestApp(t, ms, nil)
	ctx := context.Background()

	resp, err := app.Articles.Get(ctx, "missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsRetryable(err))

	var sdkErr *Error
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, ErrorTypeClient, sdkErr.Type)
	assert.Equal(t, "NOT_FOUND", sdkErr.Code)
	assert.Equal(t, "req-42", sdkErr.RequestID)
	require.NotNil(t, sdkErr.Context)
	assert.Equal(t, http.MethodGet, sdkErr.Context.Method)
	assert.Contains(t, sdkErr.Context.URL, "/articles/missing")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "article not found", apiErr.Message)

	_, err = app.Articles.Get(ctx, "broken", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerError)
	assert.True(t, IsRetryable(err))
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestApp_NetworkErrorCarriesContext(t *testing.T) {
	app, err := New("k", &Options{
		BaseURL: "http://127.0.0.1:1",
	})
	require.NoError(t, err)

	_, err = app.KeyValues.Get(context.Background(), "motd", nil)
	require.Error(t, err)

	var sdkErr *Error
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, ErrorTypeNetwork, sdkErr.Type)
	require.NotNil(t, sdkErr.Context)
	assert.Equal(t, "http://127.0.0.1:1/v1/k/key-values/motd", sdkErr.Context.URL)
}

func TestApp_DoMergesQuery(t *testing.T) {
	ms := newMockServer(t)
	ms.onJSON("GET "+ms.apiPrefix()+"search", http.StatusOK, []string{})

	app := newTestApp(t, ms, nil)
	_, err := app.Do(context.Background(), http.MethodGet, "search?lang=en", url.Values{"q": {"go lang"}}, nil)
	require.NoError(t, err)

	got := ms.lastRequest(t)
	values, err := url.ParseQuery(got.Query)
	require.NoError(t, err)
	assert.Equal(t, "en", values.Get("lang"))
	assert.Equal(t, "go lang", values.Get("q"))
}

func TestApp_ObserverAndLogger(t *testing.T) {
	ms := newMockServer(t)
	ms.onJSON("GET "+ms.apiPrefix()+"articles/", http.StatusOK, map[string]string{"id": "x"})

	metrics := NewMetricsCollector()
	app := newTestApp(t, ms, DefaultOptions().WithObserver(metrics))
	ctx := context.Background()

	_, err := app.Articles.Get(ctx, "a1", nil)
	require.NoError(t, err)
	_, err = app.Articles.Get(ctx, "a2", nil)
	require.NoError(t, err)
	require.NoError(t, app.SetUser(ctx, &User{UserName: "u"}))

	snapshot := metrics.GetMetrics()
	requests := snapshot["requests"].(map[string]int64)
	assert.Equal(t, int64(2), requests["GET articles/{0}"])
	statuses := snapshot["statuses"].(map[int]int64)
	assert.Equal(t, int64(2), statuses[http.StatusOK])
	events := snapshot["events"].(map[string]int64)
	assert.Equal(t, int64(1), events[EventUserUpdated])
}

func TestApp_CustomHTTPClientWithDataOnly(t *testing.T) {
	var calls int
	client := HTTPClientFunc(func(ctx context.Context, req *Request) (*Response, error) {
		calls++
		switch {
		case req.Method == http.MethodPost:
			return &Response{
				Request:    req,
				StatusCode: http.StatusOK,
				StatusText: "OK",
				Data:       map[string]interface{}{"access_token": "tok", "token_type": "bearer"},
			}, nil
		default:
			return &Response{
				Request:    req,
				StatusCode: http.StatusNotFound,
				StatusText: "Not Found",
				Data:       map[string]interface{}{"error": "article missing"},
			}, nil
		}
	})

	app, err := New("key", &Options{HTTPClient: func() HTTPClient { return client }})
	require.NoError(t, err)
	ctx := context.Background()

	token, err := app.Membership.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "tok", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)

	decoded, err := DecodeAs[map[string]interface{}](&Response{Data: map[string]interface{}{"title": "Hello"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello", decoded["title"])

	_, err = app.Articles.Get(ctx, "a1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "article missing")
	assert.Equal(t, 2, calls)
}
