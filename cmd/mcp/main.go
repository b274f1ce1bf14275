package main

import (
	"bufio"
	"net/http"
	"os"
	"strings"
	"time"

	xlog "eclreports/internal/log"
)

func main() {
	// stdout carries the protocol, logs must go to stderr
	xlog.Configure(xlog.Config{Output: os.Stderr, Service: "eclreports-mcp"})
	logger := xlog.WithComponent("mcp")

	baseURL := strings.TrimRight(getEnv("ECL_API_URL", "http://localhost:8080/api/v1"), "/")
	server := NewMCPServer(baseURL, &http.Client{Timeout: 15 * time.Second}, bufio.NewReader(os.Stdin), bufio.NewWriter(os.Stdout))

	logger.Info().Str("api", baseURL).Msg("mcp shim server starting")
	if err := server.Serve(); err != nil {
		logger.Fatal().Err(err).Msg("mcp server failed")
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
