package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/course-enrollment/pkg/webhook"
)

var errNoSecret = errors.New("no webhook secret: use --secret or set PAYSTACK_SECRET_KEY")

// sign: print the signature header value for a payload.
func signCmd() *cobra.Command {
	var (
		file     string
		courseID string
		userID   string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Args:  cobra.NoArgs,
		Short: "Compute the webhook signature for a payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errNoSecret
			}
			body, err := payloadFrom(cmd, file, courseID, userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), webhook.Sign([]byte(secret), body))
			return nil
		},
	}
	payloadFlags(cmd, &file, &courseID, &userID)
	return cmd
}

func payloadFlags(cmd *cobra.Command, file, courseID, userID *string) {
	cmd.Flags().StringVarP(file, "file", "f", "", "raw payload file, - for stdin")
	cmd.Flags().StringVar(courseID, "course", "", "course id for a generated charge.success payload")
	cmd.Flags().StringVar(userID, "user", "", "user id for a generated charge.success payload")
	cmd.MarkFlagsMutuallyExclusive("file", "course")
	cmd.MarkFlagsMutuallyExclusive("file", "user")
}

func payloadFrom(cmd *cobra.Command, file, courseID, userID string) ([]byte, error) {
	if file != "" {
		return readBody(cmd.InOrStdin(), file)
	}
	if courseID == "" || userID == "" {
		return nil, fmt.Errorf("either --file or both --course and --user are required")
	}
	return chargeSuccess(courseID, userID)
}
