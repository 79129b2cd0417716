package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"valles-rodes/internal/booking"
	"valles-rodes/internal/chat"
	"valles-rodes/internal/content"
	"valles-rodes/internal/services"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <size>",
	Short: "Show the three tire options for a size such as 205/55R16",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		size, ok := booking.ParseTireSize(text)
		if !ok {
			return fmt.Errorf("not a tire size: %q", text)
		}
		log.Debug("parsed tire size", zap.Int("width", size.Width), zap.Int("aspect", size.Aspect), zap.Int("rim", size.Rim))

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Medida: %s\n", booking.FormatTireSize(size))
		for _, opt := range booking.QuoteOptions(size) {
			fmt.Fprintf(out, "  %-10s %4d €/rueda  %s  %s\n", booking.TierLabel(opt.Tier), opt.Price, opt.ETA, opt.Notes)
		}
		return nil
	},
}

var windowCmd = &cobra.Command{
	Use:   "window <start> <end>",
	Short: "Check a pick-up window given as HH:MM HH:MM",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !booking.ValidWindow(args[0], args[1]) {
			fmt.Fprintln(cmd.OutOrStdout(), booking.WindowTooShortMessage)
			return errors.New("window rejected")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %s-%s\n", args[0], args[1])
		return nil
	},
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Print the phone and WhatsApp links rendered on the page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Teléfono: %s\n", content.PhoneURL(cfg.PhoneNumber))
		fmt.Fprintf(out, "WhatsApp: %s\n", content.WhatsAppURL(cfg.PhoneNumber, cfg.WhatsAppText))
		return nil
	},
}

var askTimeout time.Duration

// askCmd sends one message through a chat session, the same way the widget
// does, and prints the reply as it streams.
var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message to the chat assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cred *chat.Credential
		if cfg.GeminiAPIKey != "" {
			cred = &chat.Credential{APIKey: cfg.GeminiAPIKey}
		}
		gemini := services.NewGeminiService(cfg.GeminiModel, 1, log)
		defer gemini.Close()

		out := cmd.OutOrStdout()
		var printed int
		session := chat.NewSession(chat.Config{Credential: cred, Logger: log}, gemini)
		session.OnChange(func(ev chat.Event) {
			if ev.Kind != chat.EventTrailing {
				return
			}
			text := ev.Update.Message.Content
			fmt.Fprint(out, text[printed:])
			printed = len(text)
		})

		if session.Open() == chat.StateUnavailable {
			return errors.New(chat.UnavailableError)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, askTimeout)
		defer cancel()

		err := session.Send(ctx, strings.Join(args, " "))
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("ask: %w", err)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 60*time.Second, "how long to wait for the reply")
}
