// cmd/botctl is the operator CLI for the bot engine's control API.
//
// Usage:
//
//	go run ./cmd/botctl --addr=http://localhost:8080 status
//	go run ./cmd/botctl trades --limit=20
//	go run ./cmd/botctl run
//	go run ./cmd/botctl config '{"leverage": 10}'
//
// Mutating commands (toggle, run, reset, config) send a TOTP code generated
// from TOTP_SECRET when the server has one configured.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pquerna/otp/totp"
)

func main() {
	log.SetFlags(0)

	addr := flag.String("addr", envOr("BOTCTL_ADDR", "http://localhost:8080"), "Control API base URL")
	account := flag.Int64("account", 1, "Account ID")
	limit := flag.Int("limit", 50, "Row limit for trades/logs")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	c := &client{
		base:    strings.TrimRight(*addr, "/"),
		account: *account,
		http:    &http.Client{Timeout: *timeout},
	}

	var err error
	switch cmd {
	case "status":
		err = c.get(fmt.Sprintf("/api/v1/status?account=%d", c.account))
	case "trades":
		err = c.get(fmt.Sprintf("/api/v1/trades?account=%d&limit=%d", c.account, *limit))
	case "logs":
		err = c.get(fmt.Sprintf("/api/v1/logs?account=%d&limit=%d", c.account, *limit))
	case "snapshot":
		err = c.get(fmt.Sprintf("/api/v1/snapshot?account=%d", c.account))
	case "toggle":
		err = c.post(fmt.Sprintf("/api/v1/toggle?account=%d", c.account), nil)
	case "run":
		err = c.post(fmt.Sprintf("/api/v1/run?account=%d", c.account), nil)
	case "reset":
		err = c.post(fmt.Sprintf("/api/v1/reset?account=%d", c.account), nil)
	case "config":
		if flag.NArg() < 2 {
			log.Fatal("config requires a JSON patch argument")
		}
		patch := flag.Arg(1)
		if !json.Valid([]byte(patch)) {
			log.Fatalf("invalid JSON patch: %s", patch)
		}
		err = c.post(fmt.Sprintf("/api/v1/config?account=%d", c.account), []byte(patch))
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("botctl %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: botctl [flags] status|trades|logs|snapshot|toggle|run|reset|config <json>")
	flag.PrintDefaults()
	os.Exit(2)
}

type client struct {
	base    string
	account int64
	http    *http.Client
}

func (c *client) get(path string) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func (c *client) post(path string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// Generate a fresh TOTP code per request when a secret is configured.
	if secret := totpSecret(); secret != "" {
		code, err := totp.GenerateCode(secret, time.Now())
		if err != nil {
			return fmt.Errorf("totp generate: %w", err)
		}
		req.Header.Set("X-TOTP-Code", code)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

// printResponse pretty-prints JSON bodies and reports non-2xx statuses.
func printResponse(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func totpSecret() string {
	godotenv.Load()
	return os.Getenv("TOTP_SECRET")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
