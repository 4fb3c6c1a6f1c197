// ABOUTME: Interactive terminal client for the sensus-chat backend
// ABOUTME: Drives the metered conversation flow: login, history merge, optimistic submit, balance display

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/sensustec/sensus-chat/internal/client"
	"github.com/sensustec/sensus-chat/internal/controller"
	"github.com/sensustec/sensus-chat/internal/credit"
	"github.com/sensustec/sensus-chat/internal/history"
	"github.com/sensustec/sensus-chat/internal/ledger"
	"github.com/sensustec/sensus-chat/internal/widget"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "sensus-chat server URL")
		username  = flag.String("username", "", "username to log in as")
		widgetURL = flag.String("widget", "", "optional widget channel URL for identity announcements")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "Error: -username is required")
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *serverURL, *username, *widgetURL, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, serverURL, username, widgetURL string, logger *slog.Logger) error {
	cl, err := client.New(serverURL)
	if err != nil {
		return err
	}

	password := os.Getenv("SENSUS_CHAT_PASSWORD")
	if password == "" {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	sess, err := cl.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	color.Green("Logged in as %s (balance: %d)", sess.Username, sess.Balance)

	led := ledger.New(sess.UserID, logger)
	reconciler := history.New(cl, history.DefaultPerPage, logger)
	ctrl := controller.New(led, cl, credit.New(sess.Balance), logger)

	// The transcript starts empty if the fetch fails; /reload retries.
	if err := reconciler.Reconcile(ctx, led); err != nil {
		color.Yellow("Could not load history: %v", err)
	}
	printTranscript(led)

	// The widget handshake is cosmetic and runs detached; the conversation
	// never waits on it.
	if widgetURL != "" {
		bridge := widget.New(&widget.HTTPPoster{URL: widgetURL}, sess.Username, sess.UserID, logger)
		bridge.WidgetLoaded()
	}

	fmt.Println("Type a question, or /help for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	prompt := color.New(color.FgCyan, color.Bold)

	for {
		prompt.Printf("%s> ", sess.Username)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, line, cl, ctrl, reconciler, led); quit {
				break
			}
			continue
		}

		submit(ctx, ctrl, line)
	}

	if err := cl.Logout(context.Background()); err != nil {
		logger.Debug("logout failed", "error", err)
	}
	fmt.Println("Bye.")
	return scanner.Err()
}

func submit(ctx context.Context, ctrl *controller.Controller, question string) {
	res, err := ctrl.Submit(ctx, question)
	if err != nil {
		switch {
		case errors.Is(err, controller.ErrInsufficientBalance):
			color.Red("You have no messages left. Ask an administrator for a top-up.")
		case errors.Is(err, controller.ErrSubmissionInFlight):
			color.Yellow("Still waiting for the previous answer.")
		default:
			// Server rejections carry their own user-facing message;
			// transport errors collapse to a generic one.
			color.Red("%v", err)
		}
		return
	}

	fmt.Println(res.Answer)
	color.HiBlack("(%d messages remaining)", res.RemainingBalance)
}

// runCommand handles slash commands; returns true when the session should end.
func runCommand(ctx context.Context, line string, cl *client.Client, ctrl *controller.Controller, reconciler *history.Reconciler, led *ledger.Ledger) bool {
	switch line {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println("  /history   show the transcript")
		fmt.Println("  /balance   show the message balance")
		fmt.Println("  /stats     refresh usage stats from the server")
		fmt.Println("  /reload    reload history from the server")
		fmt.Println("  /quit      exit")
	case "/history":
		printTranscript(led)
	case "/balance":
		bal := ctrl.Balance()
		if bal.Known {
			fmt.Printf("Balance: %d\n", bal.Display())
		} else {
			fmt.Printf("Balance: %d (unconfirmed)\n", bal.Display())
		}
	case "/stats":
		stats, err := cl.UsageStats(ctx)
		if err != nil {
			color.Red("Could not fetch stats: %v", err)
			return false
		}
		ctrl.SetAuthoritativeBalance(stats.RemainingBalance)
		fmt.Printf("Messages sent: %d, remaining: %d\n", stats.TotalSent, stats.RemainingBalance)
	case "/reload":
		if err := reconciler.Reconcile(ctx, led); err != nil {
			color.Red("Could not load history: %v", err)
			return false
		}
		printTranscript(led)
	default:
		fmt.Println("Unknown command. Try /help.")
	}
	return false
}

func printTranscript(led *ledger.Ledger) {
	exchanges := led.Exchanges()
	if len(exchanges) == 0 {
		color.HiBlack("(no conversation yet)")
		return
	}
	q := color.New(color.FgCyan)
	for _, ex := range exchanges {
		q.Printf("Q: %s\n", ex.Question)
		if ex.Status == ledger.StatusPending {
			color.HiBlack("   ...")
			continue
		}
		fmt.Printf("A: %s\n", ex.Answer)
	}
}
