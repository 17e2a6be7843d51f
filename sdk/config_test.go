package sdk

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, "http://localhost:8080", opts.BaseURL)
	assert.Equal(t, "v1", opts.APIVersion)
	assert.NotNil(t, opts.HTTPClient)
	assert.NotNil(t, opts.StorageHandler)
	assert.NotNil(t, opts.EventHandler)
	assert.NotNil(t, opts.URLFactory)
	assert.IsType(t, &NoopObserver{}, opts.Observer)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Headers)
}

func TestOptionsBuilder(t *testing.T) {
	logger := logrus.New()
	observer := NewMetricsCollector()
	storage := NewInMemoryStorageHandler()

	opts := DefaultOptions().
		WithBaseURL("https://api.example.com").
		WithAPIVersion("v2").
		WithHeader("X-A", "1").
		WithHeader("X-B", "2").
		WithObserver(observer).
		WithLogger(logger).
		WithStorageHandler(func() StorageHandler { return storage })

	assert.Equal(t, "https://api.example.com", opts.BaseURL)
	assert.Equal(t, "v2", opts.APIVersion)
	assert.Equal(t, map[string]string{"X-A": "1", "X-B": "2"}, opts.Headers)
	assert.Same(t, observer, opts.Observer)
	assert.Same(t, logger, opts.Logger)
	assert.Same(t, storage, opts.StorageHandler())

	app, err := New("key", opts)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v2/key/", app.APIURL())
}

func TestOptionsValidate(t *testing.T) {
	t.Run("fills every missing field", func(t *testing.T) {
		opts := &Options{}
		require.NoError(t, opts.Validate())

		assert.Equal(t, "http://localhost:8080", opts.BaseURL)
		assert.Equal(t, "v1", opts.APIVersion)
		assert.IsType(t, &nativeHTTPClient{}, opts.HTTPClient())
		assert.IsType(t, &InMemoryStorageHandler{}, opts.StorageHandler())
		assert.IsType(t, &EventEmitter{}, opts.EventHandler())
		assert.NotNil(t, opts.URLFactory)
		assert.NotNil(t, opts.Headers)
		assert.NotNil(t, opts.Observer)
		assert.NotNil(t, opts.Logger)
	})

	t.Run("each default factory builds a fresh instance", func(t *testing.T) {
		opts := &Options{}
		require.NoError(t, opts.Validate())
		assert.NotSame(t, opts.StorageHandler(), opts.StorageHandler())
		assert.NotSame(t, opts.EventHandler(), opts.EventHandler())
	})

	t.Run("rejects non-http base URL", func(t *testing.T) {
		opts := &Options{BaseURL: "localhost:8080"}
		err := opts.Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("trailing slash is tolerated", func(t *testing.T) {
		app, err := New("k", &Options{BaseURL: "https://api.example.com/"})
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/v1/k/", app.APIURL())
	})
}
