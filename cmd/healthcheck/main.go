// Command healthcheck probes /healthz on the local tribute server and exits
// non-zero when it is not healthy. It is meant for container health checks.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"time"
)

func main() {
	client := &http.Client{Timeout: 3 * time.Second}
	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(), nil)
	if err != nil {
		os.Exit(1)
	}
	resp, err := client.Do(req)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

// healthURL mirrors the server's HOST/PORT resolution. A wildcard bind
// address is probed on localhost.
func healthURL() string {
	host := os.Getenv("HOST")
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = os.Getenv("RENDER_PORT")
	}
	if port == "" {
		port = "5000"
	}
	return "http://" + net.JoinHostPort(host, port) + "/healthz"
}
