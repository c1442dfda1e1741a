package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/market-v/storefront/internal/assistant"
	"github.com/market-v/storefront/internal/domain"
)

// newChatCmd creates the chat subcommand.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the shopping assistant",
		Long: `chat starts an interactive session with the assistant. Type a message
and press enter; an empty line or "exit" ends the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			s := a.Sessions.Create()
			name := cfg.Assistant.StoreName
			ui.Bot(name, a.Chat.WelcomeText())

			return runChat(ctx, cmd, a.Chat, s, name)
		},
	}
	return cmd
}

type chatSender interface {
	Send(ctx context.Context, s *assistant.Session, text string) (assistant.ChatMessage, error)
}

func runChat(ctx context.Context, cmd *cobra.Command, ctrl chatSender, s *assistant.Session, name string) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.EqualFold(text, "exit") {
			return nil
		}

		stop := ui.Typing("thinking...")
		reply, err := ctrl.Send(ctx, s, text)
		stop()
		if err != nil {
			if domain.IsKind(err, domain.KindValidation) || errors.Is(err, assistant.ErrTurnInProgress) {
				ui.Warning("%v", err)
				continue
			}
			return err
		}

		ui.Bot(name, reply.Text)
		for i, p := range reply.ProductSuggestions {
			fmt.Fprintf(out, "  %d. %s (%s) $%.2f  [%s]\n", i+1, p.Name, p.Brand, p.Price, p.ID)
		}
	}
}
