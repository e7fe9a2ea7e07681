package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tg-clicker/internal/gameclient"
	"tg-clicker/internal/syncer"
)

const (
	defaultAPI          = "http://localhost:3000/api"
	defaultFlushTimeout = 5 * time.Second
	leaderboardSize     = 10
)

type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Info(msg string)  { fmt.Fprintln(n.out, "info:", msg) }
func (n consoleNotifier) Error(msg string) { fmt.Fprintln(n.out, "error:", msg) }

func main() {
	var (
		apiURL     = flag.String("api", defaultAPI, "Base URL of the clicker API")
		telegramID = flag.String("telegram-id", "", "Telegram user id to play as")
		username   = flag.String("username", "", "Display name stored with the progress")
		initData   = flag.String("init-data", "", "Mini-App init data; exchanged for a session token and identity")
		debounce   = flag.Duration("debounce", syncer.DefaultDebounce, "Delay before a save is sent")
		cooldown   = flag.Duration("cooldown", syncer.DefaultCooldown, "Minimum time between saves")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := gameclient.New(*apiURL)

	if *initData != "" {
		auth, err := client.Authenticate(ctx, *initData)
		if err != nil {
			os.Stderr.WriteString("Authentication failed: " + err.Error() + "\n")
			os.Exit(1)
		}
		client.SetToken(auth.Token)
		*telegramID = auth.TelegramID
		if *username == "" {
			*username = auth.Username
		}
	}

	if *telegramID == "" {
		os.Stderr.WriteString("-telegram-id or -init-data is required\n")
		os.Exit(2)
	}

	if err := client.Probe(ctx); err != nil {
		log.Warn("API is not reachable, progress may not be saved", slog.String("error", err.Error()))
	}

	notifier := consoleNotifier{out: os.Stdout}
	controller := syncer.New(log, client, *telegramID, *username,
		syncer.WithNotifier(notifier),
		syncer.WithDebounce(*debounce),
		syncer.WithCooldown(*cooldown),
	)

	outcome := controller.Load(ctx)
	log.Info("session started", slog.String("telegram_id", *telegramID), slog.String("load", outcome.String()))

	go controller.Run(ctx)

	printHelp(os.Stdout)
	printState(os.Stdout, controller)

	play(ctx, os.Stdin, os.Stdout, controller, client)

	flushCtx, cancel := context.WithTimeout(context.Background(), defaultFlushTimeout)
	defer cancel()

	if err := controller.Flush(flushCtx); err != nil {
		log.Error("final save failed", slog.String("error", err.Error()))
	}
}

func play(ctx context.Context, in io.Reader, out io.Writer, c *syncer.Controller, client *gameclient.Client) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}

			switch strings.TrimSpace(line) {
			case "c", "":
				c.Click()
				printState(out, c)
			case "a":
				if _, ok := c.BuyAutoClicker(); !ok {
					fmt.Fprintln(out, "not enough score for the auto clicker")
				}
				printState(out, c)
			case "p":
				if _, ok := c.BuyClickPower(); !ok {
					fmt.Fprintln(out, "not enough score for click power")
				}
				printState(out, c)
			case "s":
				printState(out, c)
			case "l":
				printLeaderboard(ctx, out, client)
			case "q":
				return
			default:
				printHelp(out)
			}
		}
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "commands: c (or enter) click, a buy auto clicker, p buy click power, s state, l leaderboard, q quit")
}

func printState(out io.Writer, c *syncer.Controller) {
	p := c.State()
	ac := p.Upgrades.AutoClicker
	cp := p.Upgrades.ClickPower
	fmt.Fprintf(out, "score %.0f | auto clicker lvl %d (%.1f/s, next %.0f) | click power lvl %d (x%.2f, next %.0f)\n",
		math.Floor(p.Score), ac.Level, ac.ClicksPerSecond, ac.Cost, cp.Level, cp.Power, cp.Cost)
}

func printLeaderboard(ctx context.Context, out io.Writer, client *gameclient.Client) {
	entries, err := client.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		fmt.Fprintln(out, "error: leaderboard unavailable:", err)
		return
	}

	for i, e := range entries {
		fmt.Fprintf(out, "%2d. %-20s %.0f\n", i+1, e.Username, math.Floor(e.Score))
	}
}
