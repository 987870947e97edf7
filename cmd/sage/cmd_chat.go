package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sage/internal/advisor"
	"github.com/ajitpratap0/sage/internal/session"
)

func chatCmd() *cobra.Command {
	var resumeID string
	var hint string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive advice conversation",
		Long: `Starts a multi-turn conversation. Each answer sees the prior turns of the
conversation, so follow-up questions keep their context. Turns are persisted;
use --resume with a conversation ID to continue a previous conversation.
Type "exit" or press Ctrl-D to end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			users, err := newUserStore(logger)
			if err != nil {
				return fmt.Errorf("chat: opening user store: %w", err)
			}
			defer func() { _ = users.Close() }()

			emb := newEmbedder(logger)
			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("chat: connecting to store: %w", err)
			}
			defer func() { _ = st.Close() }()

			adv, err := newAdvisor(users, emb, st, logger)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			var sess *session.Session
			if resumeID != "" {
				turns, err := users.Turns(ctx, resumeID)
				if err != nil {
					return fmt.Errorf("chat: loading conversation %s: %w", resumeID, err)
				}
				sess, err = session.Load(resumeID, turns)
				if err != nil {
					return fmt.Errorf("chat: %w", err)
				}
				fmt.Printf("Resumed conversation %s (%d prior turns)\n", resumeID, sess.Len())
			} else {
				sess = session.New(uuid.New().String())
				fmt.Printf("Conversation %s\n", sess.ID())
			}
			fmt.Println(`Ask away. Type "exit" to end.`)

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

			for {
				fmt.Print("\nyou> ")
				if !scanner.Scan() {
					break
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					break
				}

				result, err := adv.Answer(ctx, sess, question, hint)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					if errors.Is(err, advisor.ErrAdviceUnavailable) {
						fmt.Println("Advice is temporarily unavailable, try again in a moment.")
						continue
					}
					return fmt.Errorf("chat: %w", err)
				}

				fmt.Printf("\ncharlie> %s\n", result.Text)
			}

			if scanErr := scanner.Err(); scanErr != nil {
				return fmt.Errorf("chat: reading input: %w", scanErr)
			}
			fmt.Printf("\nConversation saved as %s\n", sess.ID())
			return nil
		},
	}

	cmd.Flags().StringVar(&resumeID, "resume", "", "conversation ID to resume")
	cmd.Flags().StringVar(&hint, "hint", "", "topic hint applied to every question in the conversation")
	return cmd
}
