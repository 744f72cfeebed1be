// Package main hosts the fbscraper service entrypoint.
//
// Architecture overview:
//   - CLI: cobra commands. "prepare" verifies the browser runtime (cache
//     directory, binary discovery, cookies file, launch probe) and exits
//     non-zero with a remediation hint when a check fails. "serve" runs the
//     same checks first unless --skip-prepare is given, then starts the API.
//   - HTTP API: internal/api.Server exposes health, metrics, scrape and parse
//     endpoints on a chi router. Requests are validated against configured
//     limits before any browser work starts.
//   - Browser session: internal/browser owns one long-lived Chromedp browser
//     process; each scrape opens a fresh tab, applies the user agent and
//     session cookies, and tears the tab down afterwards.
//   - Scrape pipeline: internal/scraper navigates the mobile post URL, scrolls
//     until the comment stream stops growing or the limit is reached, then
//     hands the final DOM to the goquery-based parser. Debug screenshots go to
//     the configured blob store (memory/local/GCS).
//   - Persistence & fanout: scrape history is recorded to Postgres or an
//     in-memory store; a compact Pub/Sub notification is published per scrape
//     when a topic is configured. Progress events are batched by the hub and
//     fanned out to log and Prometheus sinks.
//   - Configuration & plumbing: Viper populates config from env (FBSCRAPER_*)
//     and files; zap provides structured logging; Prometheus metrics are
//     exported via middleware and the /metrics handler.
//
// Operational notes:
//   - Concurrency model: scrapes run on the caller's request goroutine against
//     the shared browser process; tabs are isolated per scrape. Shutdown is
//     coordinated via context cancellation from serve down to the tab loop.
//   - Run locally: go run ./cmd/fbscraper serve --config config.yaml (or rely
//     solely on FBSCRAPER_* env overrides).
//   - Containers: the server listens on server.host:server.port (0.0.0.0:8000
//     by default) and reacts to SIGTERM for graceful drain.
package main
