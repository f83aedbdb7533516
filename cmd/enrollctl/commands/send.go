package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/course-enrollment/pkg/webhook"
)

// send: sign a payload and POST it to a running service.
func sendCmd() *cobra.Command {
	var (
		target   string
		file     string
		courseID string
		userID   string
		badSig   bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Args:  cobra.NoArgs,
		Short: "Sign a payload and deliver it to the webhook endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" && !badSig {
				return errNoSecret
			}
			body, err := payloadFrom(cmd, file, courseID, userID)
			if err != nil {
				return err
			}
			if target == "" {
				target = fmt.Sprintf("http://localhost:%d%s", cfg.HTTPPort, cfg.WebhookPath)
			}

			sig := webhook.Sign([]byte(secret), body)
			if badSig {
				sig = webhook.Sign([]byte("not-the-secret"), body)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(cfg.SignatureHeader, sig)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("deliver webhook: %w", err)
			}
			defer resp.Body.Close()
			reply, _ := io.ReadAll(resp.Body)

			log.Debug("webhook delivered", "url", target, "status", resp.StatusCode)
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.StatusCode, bytes.TrimSpace(reply))
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "url", "", "webhook URL (default from config)")
	cmd.Flags().BoolVar(&badSig, "bad-signature", false, "sign with a wrong secret to exercise rejection")
	payloadFlags(cmd, &file, &courseID, &userID)
	return cmd
}
