package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/raizel-hub/academic-assistant/internal/bootstrap"
)

// errCheckFailed makes the process exit non-zero after the report is printed.
var errCheckFailed = errors.New("check failed")

// ══════════════════════════════════════════════════════════════════════════════
// CHECK-CSV
// ══════════════════════════════════════════════════════════════════════════════

func newCheckCSVCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "check-csv",
		Short: "Check that the four record files exist and parse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Records.Dir = dir
			}

			out := cmd.OutOrStdout()
			failed := false
			for _, report := range bootstrap.OpenCSV(cfg, a.log).Check(cmd.Context()) {
				fmt.Fprintf(out, "Checking %s...\n", report.Table)
				fmt.Fprintln(out, report.String())
				if !report.OK() {
					failed = true
				}
			}
			if failed {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the record files (default RECORDS_DIR)")
	return cmd
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECK-SERVER
// ══════════════════════════════════════════════════════════════════════════════

func newCheckServerCmd(a *app) *cobra.Command {
	var (
		baseURL string
		reg     string
		message string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check-server",
		Short: "Check that a running server is healthy and answers chat messages",
		Long: `Calls GET /health and, when --reg is given, logs in as that student and
sends one chat message through POST /api/chat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &serverChecker{
				base:   strings.TrimRight(baseURL, "/"),
				client: &http.Client{Timeout: timeout},
				out:    cmd.OutOrStdout(),
			}

			if err := c.health(); err != nil {
				fmt.Fprintf(c.out, "Health check failed: %v\n", err)
				return errCheckFailed
			}
			if reg == "" {
				return nil
			}

			reply, err := c.chat(reg, message)
			if err != nil {
				fmt.Fprintf(c.out, "Chat check failed: %v\n", err)
				return errCheckFailed
			}
			fmt.Fprintf(c.out, "Chat OK: %s\n", reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:5000", "server base URL")
	cmd.Flags().StringVar(&reg, "reg", "", "registration number to log in with for the chat check")
	cmd.Flags().StringVar(&message, "message", "hello", "chat message to send")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "timeout per request")
	return cmd
}

type serverChecker struct {
	base   string
	client *http.Client
	out    io.Writer
}

func (c *serverChecker) health() error {
	resp, err := c.client.Get(c.base + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var status struct {
		Healthy bool   `json:"healthy"`
		Message string `json:"message"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode /health: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !status.Healthy {
		return fmt.Errorf("status %d: %s", resp.StatusCode, status.Message)
	}
	fmt.Fprintf(c.out, "Server healthy (version %s): %s\n", status.Version, status.Message)
	return nil
}

func (c *serverChecker) chat(reg, message string) (string, error) {
	var login struct {
		Token string `json:"token"`
	}
	if err := c.postJSON("/login", "", map[string]string{"registration_number": reg}, &login); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var reply struct {
		Response string `json:"response"`
	}
	if err := c.postJSON("/api/chat", login.Token, map[string]string{"message": message}, &reply); err != nil {
		return "", err
	}
	if reply.Response == "" {
		return "", errors.New("empty response")
	}
	return reply.Response, nil
}

func (c *serverChecker) postJSON(path, token string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
