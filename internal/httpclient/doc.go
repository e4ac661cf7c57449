// Package httpclient builds the HTTP clients shared through the client pool and
// the requests issued by request steps.
//
// Requests are described after interpolation has run, so the builder only
// validates and assembles them:
//
//	builder, err := httpclient.NewRequestBuilder("post", "http://localhost/api", headers, body)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx)
//
// [NewClient] creates one client per pooled origin, with the run's timeout and
// optional certificate checking disabled:
//
//	client := httpclient.NewClient(10*time.Second, false)
//	resp, err := client.Do(req)
package httpclient
