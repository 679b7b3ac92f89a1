// Package httpc is a blocking HTTP/1.1 client engine with explicit
// control over every step: no hidden goroutines, no implicit retries,
// no ambient global client.
//
// Highlights
//   - Wire codec: byte-exact request encoding and response parsing
//     with Content-Length and chunked framing, header size limits,
//     and request-splitting rejection.
//   - Connection pool: bounded idle set per destination with lazy
//     idle-timeout eviction; broken or close-framed connections are
//     never reused.
//   - Pipeline: redirect handling with method rewrite, per-operation
//     timeout budgets, and a status-as-error policy.
//   - Typed builders: bodyless methods (GET, HEAD, DELETE, OPTIONS)
//     cannot take a body, body methods (POST, PUT, PATCH) must.
//   - Pluggable Transport and Resolver; plain TCP out of the box,
//     TLS and proxies belong to the Transport implementation.
//   - Observability: plug-in Logger and Meter interfaces.
//
// Quick start:
//
//	c := httpc.New(httpc.Config{Timeout: 5 * time.Second})
//	defer c.Close()
//	res, err := c.Get("http://example.org/").
//	    Header("Accept", "text/html").
//	    Call(ctx)
//	if err != nil { log.Fatal(err) }
//	fmt.Println(res.StatusCode, res.Text())
//
// Posting a body:
//
//	res, err := c.Post("http://example.org/api").
//	    ContentType("application/json").
//	    Send(ctx, []byte(`{"name":"test"}`))
package httpc
