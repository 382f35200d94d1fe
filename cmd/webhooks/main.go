// Package main provisions Helius webhooks from the watch list: one webhook
// per configured channel, pointed at the sniper's intake endpoint.
// Subcommands: setup (default), list, delete.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"token-sniper/internal/config"
	"token-sniper/internal/helius"
)

func main() {
	loadEnvFile()

	apiKey := flag.String("api-key", os.Getenv("HELIUS_API_KEY"), "Helius API key")
	configPath := flag.String("config", os.Getenv("SNIPER_CONFIG"), "Path to YAML configuration file")
	webhookBase := flag.String("webhook-base", os.Getenv("WEBHOOK_BASE_URL"), "Public base URL of the sniper service (e.g. https://sniper.example.com)")
	webhookID := flag.String("webhook-id", "", "Webhook ID (for delete)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall operation timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[webhooks] ", log.LstdFlags)

	if *apiKey == "" {
		logger.Fatal("--api-key is required")
	}

	client := helius.NewClient(*apiKey)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	command := "setup"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch command {
	case "setup":
		if *webhookBase == "" {
			logger.Fatal("--webhook-base is required for setup")
		}
		if err := runSetup(ctx, client, logger, *configPath, *webhookBase); err != nil {
			logger.Fatalf("Setup failed: %v", err)
		}
	case "list":
		if err := runList(ctx, client); err != nil {
			logger.Fatalf("List failed: %v", err)
		}
	case "delete":
		if *webhookID == "" {
			logger.Fatal("--webhook-id is required for delete")
		}
		if err := client.DeleteWebhook(ctx, *webhookID); err != nil {
			logger.Fatalf("Delete failed: %v", err)
		}
		logger.Printf("Deleted webhook %s", *webhookID)
	default:
		logger.Fatalf("Unknown command %q (expected setup, list, or delete)", command)
	}
}

// runSetup groups watch entries by channel and provisions one webhook per
// channel, skipping URLs that already exist.
func runSetup(ctx context.Context, client *helius.Client, logger *log.Logger, configPath, webhookBase string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Watch) == 0 {
		return fmt.Errorf("watch list is empty, nothing to provision")
	}

	configs := webhookConfigs(cfg, webhookBase)
	logger.Printf("Provisioning %d webhooks", len(configs))

	webhooks, err := client.EnsureWebhooks(ctx, configs)
	if err != nil {
		return err
	}
	for _, wh := range webhooks {
		logger.Printf("Webhook %s -> %s (%d addresses, types %v)",
			wh.WebhookID, wh.WebhookURL, len(wh.AccountAddresses), wh.TransactionTypes)
	}
	return nil
}

// webhookConfigs merges watch entries per channel: one webhook carries all
// addresses and transaction types of its channel.
func webhookConfigs(cfg *config.Config, webhookBase string) []helius.WebhookConfig {
	type group struct {
		addresses map[string]bool
		txTypes   map[string]bool
	}
	groups := make(map[string]*group)
	var channels []string
	for _, entry := range cfg.Watch {
		channel := entry.Channel
		if channel == "" {
			channel = "default"
		}
		g, ok := groups[channel]
		if !ok {
			g = &group{addresses: make(map[string]bool), txTypes: make(map[string]bool)}
			groups[channel] = g
			channels = append(channels, channel)
		}
		g.addresses[entry.Address] = true
		for _, tt := range entry.TransactionTypes {
			g.txTypes[tt] = true
		}
	}

	configs := make([]helius.WebhookConfig, 0, len(channels))
	for _, channel := range channels {
		g := groups[channel]
		configs = append(configs, helius.WebhookConfig{
			Name:             channel,
			WebhookURL:       strings.TrimRight(webhookBase, "/") + "/webhooks/helius/" + channel,
			AccountAddresses: sortedKeys(g.addresses),
			TransactionTypes: sortedKeys(g.txTypes),
		})
	}
	return configs
}

func runList(ctx context.Context, client *helius.Client) error {
	webhooks, err := client.ListWebhooks(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(webhooks)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
