// Command rsajwt issues, verifies and relays per-byte RSA tokens.
//
// Usage:
//
//	rsajwt [-config file] [-log-level level] <command> [arguments]
//
// Commands:
//
//	chat [listen peer_url username]  relay stdin lines to a peer and print received messages
//	issue [json]                      sign a JSON payload (argument or stdin)
//	verify <token>                    print the canonical payload of a valid token
//	encrypt [text]                    encrypt bytes with the public exponent
//	decrypt [-o name] <ciphertext>    decrypt with the private exponent
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/cybergodev/rsajwt"
	"github.com/cybergodev/rsajwt/internal/blacklist"
	"github.com/cybergodev/rsajwt/internal/relay"
)

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if errors.Is(err, rsajwt.ErrKeyLoad) {
			logrus.WithError(err).Fatal("Cannot load keys")
		}
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("rsajwt", flag.ContinueOnError)
	configPath := fs.String("config", getEnv("RSAJWT_CONFIG", defaultConfigPath), "Path to the TOML config file")
	envFile := fs.String("env-file", ".env", "Path to a dotenv file")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	config, err := loadConfig(*configPath, *envFile, explicit)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	if err := config.validate(); err != nil {
		return fmt.Errorf("%w: %v", rsajwt.ErrInvalidConfig, err)
	}

	level, _ := logrus.ParseLevel(config.LogLevel)
	logrus.SetLevel(level)

	if fs.NArg() == 0 {
		return fmt.Errorf("%w: missing command (chat, issue, verify, encrypt, decrypt)", errUsage)
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "chat", "issue", "verify", "encrypt", "decrypt":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	keys, err := rsajwt.LoadKeyFile(config.KeyFile)
	if err != nil {
		return err
	}

	processor, err := rsajwt.NewWithRevocation(keys, config.Revocation, config.Processor)
	if err != nil {
		return err
	}
	defer processor.Close()

	switch cmd {
	case "chat":
		return runChat(ctx, processor, config, cmdArgs, stdin, stdout)
	case "issue":
		return runIssue(processor, cmdArgs, stdin, stdout)
	case "verify":
		return runVerify(processor, cmdArgs, stdout)
	case "encrypt":
		return runEncrypt(processor, cmdArgs, stdin, stdout)
	default:
		return runDecrypt(processor, config, cmdArgs, stdout)
	}
}

func runChat(ctx context.Context, processor *rsajwt.Processor, config appConfig, args []string, stdin io.Reader, stdout io.Writer) error {
	switch len(args) {
	case 0:
	case 3:
		config.ListenAddr, config.PeerURL, config.Username = listenAddr(args[0]), args[1], args[2]
	default:
		return fmt.Errorf("%w: chat takes no arguments or <listen> <peer_url> <username>", errUsage)
	}
	if config.PeerURL == "" || config.Username == "" {
		return fmt.Errorf("%w: chat needs peer_url and username", errUsage)
	}

	replays, err := blacklist.NewStore(blacklist.Config{
		StoreType: config.Revocation.StoreType,
		RedisURL:  config.Revocation.RedisURL,
		MaxSize:   config.Revocation.MaxSize,
		KeyPrefix: "rsajwt:replay:",
	})
	if err != nil {
		return fmt.Errorf("failed to open replay store: %w", err)
	}
	defer replays.Close()

	var limiter *rsajwt.RateLimiter
	if config.RateLimit.Requests > 0 {
		limiter = rsajwt.NewRateLimiter(config.RateLimit.Requests, config.RateLimit.Window)
		defer limiter.Close()
	}

	server := relay.NewServer(processor, replays, relay.ServerOptions{
		ReplayWindow: config.RateLimit.ReplayWindow,
		Limiter:      limiter,
		OnMessage: func(msg relay.ChatMessage) {
			fmt.Fprintln(stdout, msg.String())
		},
	})
	client := relay.NewClient(processor, config.PeerURL, nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe(ctx, config.ListenAddr)
	}()

	logrus.WithFields(logrus.Fields{
		"function": "runChat",
		"listen":   config.ListenAddr,
		"peer":     config.PeerURL,
		"username": config.Username,
	}).Info("Chat started")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return <-serveErr
		case err := <-serveErr:
			return err
		case text, ok := <-lines:
			if !ok {
				cancel()
				return <-serveErr
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			msg := relay.NewChatMessage(config.Username, text, time.Now())
			if err := client.Send(ctx, msg); err != nil {
				logrus.WithFields(logrus.Fields{
					"function":   "runChat",
					"message_id": msg.ID,
				}).WithError(err).Warn("Failed to deliver message")
			}
		}
	}
}

// listenAddr accepts a bare port and binds it on loopback.
func listenAddr(arg string) string {
	if arg != "" && strings.Trim(arg, "0123456789") == "" {
		return "127.0.0.1:" + arg
	}
	return arg
}

func runIssue(processor *rsajwt.Processor, args []string, stdin io.Reader, stdout io.Writer) error {
	input, err := argOrStdin(args, stdin)
	if err != nil {
		return err
	}
	input = strings.TrimSpace(input)
	if !json.Valid([]byte(input)) {
		return fmt.Errorf("%w: payload is not valid JSON", rsajwt.ErrInvalidJSON)
	}

	token, err := processor.Issue(json.RawMessage(input))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func runVerify(processor *rsajwt.Processor, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: verify <token>", errUsage)
	}

	payload, err := processor.Verify(strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(payload))
	return err
}

func runEncrypt(processor *rsajwt.Processor, args []string, stdin io.Reader, stdout io.Writer) error {
	var data []byte
	if len(args) > 0 {
		data = []byte(strings.Join(args, " "))
	} else {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		data = raw
	}

	ciphertext, err := processor.Encrypt(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, ciphertext)
	return err
}

func runDecrypt(processor *rsajwt.Processor, config appConfig, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decrypt", flag.ContinueOnError)
	outName := fs.String("o", "", "Write the raw bytes to this file inside output_dir")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: decrypt [-o name] <ciphertext>", errUsage)
	}

	plain, err := processor.Decrypt(strings.TrimSpace(fs.Arg(0)))
	if err != nil {
		return err
	}

	if *outName == "" {
		if !utf8.Valid(plain) {
			return fmt.Errorf("%w: decrypted bytes are not UTF-8, use -o to write a file", rsajwt.ErrInvalidEncoding)
		}
		_, err = fmt.Fprintln(stdout, string(plain))
		return err
	}

	name := filepath.Base(*outName)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("%w: invalid output name %q", errUsage, *outName)
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(config.OutputDir, name)
	if err := os.WriteFile(path, plain, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, err = fmt.Fprintf(stdout, "wrote %d bytes to %s\n", len(plain), path)
	return err
}

func argOrStdin(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(raw), nil
}
