package sdk

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Factories for the replaceable adapters. App calls each factory once,
// when it is constructed.
type (
	HTTPClientFactory     func() HTTPClient
	StorageHandlerFactory func() StorageHandler
	EventHandlerFactory   func() EventHandler
)

// Options holds the configuration for an App.
// Every field is optional; nil factories fall back to the defaults.
//
// Options can be built using the fluent builder pattern:
//
//	opts := sdk.DefaultOptions().
//	    WithBaseURL("https://api.example.com").
//	    WithStorageHandler(func() sdk.StorageHandler {
//	        return cache.NewRedisStorage(rdb, "baas")
//	    })
//
//	app, err := sdk.New("my-api-key", opts)
type Options struct {
	// BaseURL is the root URL of the platform API.
	// Default: "http://localhost:8080"
	BaseURL string

	// APIVersion is the version segment placed between BaseURL and the API key.
	// Default: "v1"
	APIVersion string

	// HTTPClient builds the transport adapter.
	// Default: NewHTTPClient
	HTTPClient HTTPClientFactory

	// StorageHandler builds the session store.
	// Default: NewInMemoryStorageHandler
	StorageHandler StorageHandlerFactory

	// EventHandler builds the session event bus.
	// Default: NewEventEmitter
	EventHandler EventHandlerFactory

	// URLFactory resolves module paths against the API URL.
	// Default: DefaultURLFactory
	URLFactory URLFactory

	// Headers are custom headers to include in all requests.
	// Example: {"X-Request-ID": "12345"}
	Headers map[string]string

	// Observer for monitoring operations.
	// If nil, NoopObserver is used.
	Observer Observer

	// Logger receives debug output for every request.
	// If nil, output is discarded.
	Logger logrus.FieldLogger
}

// DefaultOptions returns Options with every adapter set to its default.
func DefaultOptions() *Options {
	return &Options{
		BaseURL:        "http://localhost:8080",
		APIVersion:     "v1",
		HTTPClient:     func() HTTPClient { return NewHTTPClient() },
		StorageHandler: func() StorageHandler { return NewInMemoryStorageHandler() },
		EventHandler:   func() EventHandler { return NewEventEmitter() },
		URLFactory:     DefaultURLFactory,
		Headers:        make(map[string]string),
		Observer:       &NoopObserver{},
		Logger:         discardLogger(),
	}
}

// WithBaseURL sets the root URL of the platform API.
// The URL should include the protocol (http/https).
func (o *Options) WithBaseURL(url string) *Options {
	o.BaseURL = url
	return o
}

// WithAPIVersion sets the version path segment.
func (o *Options) WithAPIVersion(version string) *Options {
	o.APIVersion = version
	return o
}

// WithHTTPClient replaces the transport adapter.
//
// Example:
//
//	opts := sdk.DefaultOptions().
//	    WithHTTPClient(func() sdk.HTTPClient {
//	        return telemetry.InstrumentHTTPClient(sdk.NewHTTPClient(), tracer)
//	    })
func (o *Options) WithHTTPClient(factory HTTPClientFactory) *Options {
	o.HTTPClient = factory
	return o
}

// WithStorageHandler replaces the session store.
func (o *Options) WithStorageHandler(factory StorageHandlerFactory) *Options {
	o.StorageHandler = factory
	return o
}

// WithEventHandler replaces the session event bus.
func (o *Options) WithEventHandler(factory EventHandlerFactory) *Options {
	o.EventHandler = factory
	return o
}

// WithURLFactory replaces the URL factory.
func (o *Options) WithURLFactory(factory URLFactory) *Options {
	o.URLFactory = factory
	return o
}

// WithHeader adds a custom header to be sent with all requests.
//
// Example:
//
//	opts := sdk.DefaultOptions().
//	    WithHeader("X-Tenant-ID", "tenant-123")
func (o *Options) WithHeader(key, value string) *Options {
	if o.Headers == nil {
		o.Headers = make(map[string]string)
	}
	o.Headers[key] = value
	return o
}

// WithObserver sets a custom observer for monitoring SDK operations.
func (o *Options) WithObserver(observer Observer) *Options {
	o.Observer = observer
	return o
}

// WithLogger sets the logger used for request debug output.
func (o *Options) WithLogger(logger logrus.FieldLogger) *Options {
	o.Logger = logger
	return o
}

// Validate validates the options and sets defaults for missing values.
// This is called automatically by New.
//
// Returns ErrInvalidConfig if BaseURL is not an http(s) URL.
func (o *Options) Validate() error {
	if o.BaseURL == "" {
		o.BaseURL = "http://localhost:8080"
	}
	if !strings.HasPrefix(o.BaseURL, "http://") && !strings.HasPrefix(o.BaseURL, "https://") {
		return NewError(ErrorTypeValidation, "base URL must use http or https: "+o.BaseURL, ErrInvalidConfig)
	}
	if o.APIVersion == "" {
		o.APIVersion = "v1"
	}
	if o.HTTPClient == nil {
		o.HTTPClient = func() HTTPClient { return NewHTTPClient() }
	}
	if o.StorageHandler == nil {
		o.StorageHandler = func() StorageHandler { return NewInMemoryStorageHandler() }
	}
	if o.EventHandler == nil {
		o.EventHandler = func() EventHandler { return NewEventEmitter() }
	}
	if o.URLFactory == nil {
		o.URLFactory = DefaultURLFactory
	}
	if o.Headers == nil {
		o.Headers = make(map[string]string)
	}
	if o.Observer == nil {
		o.Observer = &NoopObserver{}
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	return nil
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
