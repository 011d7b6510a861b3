// Package conduit provides a dynamic request-processing engine for Go.
//
// Conduit is a library — not a service. Import it into your application to
// serve user-defined REST endpoints backed by proxying, native controllers,
// sandboxed inline scripts, or declarative data transforms, plus inbound
// webhook ingestion and outbound webhook delivery with retries.
//
// Key features:
//   - Persisted endpoint definitions with per-endpoint auth, rate limiting,
//     response caching, and JSON Schema validation
//   - Inbound webhooks with token auth, IP allow-lists, and field mapping
//   - Outbound webhooks with templated payloads, HMAC signatures, and
//     exponential backoff retries
//   - Composable store pattern with Redis and in-memory backends
//   - Full audit trail of endpoint, ingest, and dispatch activity
//
// Quick start:
//
//	c, err := conduit.New(
//	    conduit.WithStore(memoryStore),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c.Endpoints().Create(ctx, endpoint.Input{
//	    Name:         "orders",
//	    Namespace:    "shop/v1",
//	    Route:        "/orders",
//	    Methods:      []string{"GET"},
//	    CallbackType: endpoint.CallbackProxy,
//	    TargetURL:    "https://internal.example.com/orders",
//	})
//
//	c.Start(ctx)
//	http.ListenAndServe(":8080", c.Router())
package conduit
