// Package sdk is a Go client for a hosted backend-as-a-service platform.
// It exposes one client per platform module (articles, membership,
// commerce, files, key/value, value sets, dynamic resources, media vault,
// notifications, templates, application settings, metering, profiles) on
// top of three replaceable adapters.
//
// # Adapters
//
//   - HTTPClient performs one HTTP exchange per call. The default opens a
//     fresh connection for every request, never follows redirects and never
//     retries.
//   - StorageHandler keeps session state (access token, current user). The
//     default is an in-memory map; internal/cache and internal/database
//     provide Redis and Postgres versions.
//   - EventHandler announces session changes (EventTokenUpdated,
//     EventTokenExpired, EventUserUpdated). The default dispatches
//     synchronously in-process; internal/queue fans events out over NATS.
//
// # Basic Usage
//
//	app, err := sdk.New("my-api-key", sdk.DefaultOptions().
//	    WithBaseURL("https://api.example.com"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	app.Events().AddEvent(sdk.EventTokenExpired, func(interface{}) {
//	    log.Println("session expired")
//	})
//
//	if _, err := app.Membership.Login(ctx, "alice", "secret"); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := app.Articles.Find(ctx, &sdk.QueryOptions{Page: 1, RecordsPerPage: 10})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	page, err := sdk.DecodePage[Article](resp)
//
// # Replacing adapters
//
// Each adapter slot in Options takes a factory. Slots left nil keep their
// default:
//
//	opts := &sdk.Options{
//	    BaseURL: "https://api.example.com",
//	    StorageHandler: func() sdk.StorageHandler {
//	        return cache.NewRedisStorage(rdb, "baas:session")
//	    },
//	}
//	app, err := sdk.New("my-api-key", opts)
//
// # Error Handling
//
// A request that got no response returns an *Error of type
// ErrorTypeNetwork (or ErrorTypeTimeout) wrapping the transport error. A
// non-2xx status returns the Response together with an *Error wrapping an
// *APIError:
//
//	resp, err := app.KeyValues.Get(ctx, "motd", nil)
//	if sdk.IsNotFound(err) {
//	    // key was never written
//	}
//
// A 401 on a request that carried a token clears the stored token and
// fires EventTokenExpired.
//
// # Futures
//
// Go starts a request on its own goroutine and returns a ResponseFuture
// that resolves exactly once:
//
//	future := sdk.Go(ctx, app.HTTPClient(), req)
//	resp, err := future.Await(ctx)
package sdk
