package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/config"
	"github.com/garyjia/event-approval/internal/infrastructure/external/email"
)

// Isolated test for email delivery through Resend.
// Sends one message without touching the database or the workflow.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	to := flag.String("to", "", "recipient address")
	flag.Parse()

	fmt.Println("=== Email Notification Test ===")
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *to == "" {
		log.Fatal("Usage: test-notification -to someone@example.org")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Step 1: Pick the sender
	var sender port.EmailSender
	if cfg.Notification.ResendAPIKey == "" {
		fmt.Println("[Step 1] No Resend API key configured, the message will only be logged")
		sender = email.NewLogSender(logger)
	} else {
		key := cfg.Notification.ResendAPIKey
		fmt.Printf("[Step 1] Using Resend key %s... from %s\n", key[:min(6, len(key))], cfg.Notification.FromEmail)
		sender = email.NewResendSender(resend.NewClient(key), cfg.Notification.FromEmail, logger)
	}

	// Step 2: Send
	fmt.Printf("\n[Step 2] Sending test message to %s...\n", *to)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = sender.Send(ctx, &port.EmailMessage{
		To:      []string{*to},
		Subject: "Event approval: test notification",
		HTML: fmt.Sprintf("<p>This is a test notification sent at %s.</p><p><a href=%q>Open the event approval app</a></p>",
			time.Now().Format(time.RFC1123), cfg.Notification.AppBaseURL),
	})
	if err != nil {
		log.Fatalf("✗ Failed to send: %v", err)
	}
	fmt.Println("✓ Message accepted")

	fmt.Println("\n=== Test Complete ===")
}
