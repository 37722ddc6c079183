package token

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/infusio/infusio/internal/application/ticket/usecases"
	"github.com/infusio/infusio/internal/infrastructure/config"
	replytoken "github.com/infusio/infusio/internal/infrastructure/token"
)

var (
	env        string
	configPath string
	ticketID   string
	userID     string
)

// NewCommand returns the reply token tools. They use the configured
// support.reply_secret, so tokens minted here are accepted by the webhook.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and inspect reply tokens",
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	sign := &cobra.Command{
		Use:   "sign",
		Short: "Print the reply token and reply address for a ticket",
		RunE:  runSign,
	}
	sign.Flags().StringVar(&ticketID, "ticket", "", "Ticket ID")
	sign.Flags().StringVar(&userID, "user", "", "Ticket owner ID")
	_ = sign.MarkFlagRequired("ticket")

	verify := &cobra.Command{
		Use:   "verify <token>",
		Short: "Check a reply token and print the ticket it names",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}

	cmd.AddCommand(sign, verify)
	return cmd
}

func loadSigner() (*config.Config, *replytoken.Signer, error) {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	signer, err := replytoken.NewSigner(cfg.Support.ReplySecret)
	if err != nil {
		return nil, nil, err
	}
	return cfg, signer, nil
}

func runSign(cmd *cobra.Command, args []string) error {
	cfg, signer, err := loadSigner()
	if err != nil {
		return err
	}

	tok := signer.MintReplyToken(ticketID, userID)
	mailCfg := usecases.SupportMailConfig{
		InboundLocalPart: cfg.Support.InboundLocalPart,
		InboundDomain:    cfg.Support.InboundDomain,
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "token:    %s\n", tok)
	fmt.Fprintf(out, "reply-to: %s\n", mailCfg.ReplyAddress(tok))
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	_, signer, err := loadSigner()
	if err != nil {
		return err
	}

	claims, ok := signer.OpenReplyToken(args[0])
	if !ok {
		return errors.New("token is invalid or was signed with a different secret")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ticket: %s\n", claims.TicketID)
	if claims.UserID != "" {
		fmt.Fprintf(out, "user:   %s\n", claims.UserID)
	}
	return nil
}
