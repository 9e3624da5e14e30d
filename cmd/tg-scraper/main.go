// Command tg-scraper extracts members and message history from a Telegram
// group into CSV files. Authentication is handled separately: run tg-auth
// once to obtain the session string this tool consumes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/myrsple/telegram-scraper/internal/config"
	"github.com/myrsple/telegram-scraper/internal/export"
	"github.com/myrsple/telegram-scraper/internal/logger"
	"github.com/myrsple/telegram-scraper/internal/scraper"
	"github.com/myrsple/telegram-scraper/internal/telegram"
)

// Exit codes are part of the command contract.
const (
	exitOK            = 0
	exitFailure       = 1
	exitBadIdentifier = 2
	exitNoAccess      = 3
	exitAuth          = 4
	exitRateExhausted = 5
	exitNetwork       = 6
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return exitFailure
	}

	switch args[0] {
	case "help", "-h", "--help":
		usage()
		return exitOK
	case "examples":
		printExamples()
		return exitOK
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		return exitFailure
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: init logger: %v\n", err)
		return exitFailure
	}
	log := runLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "info":
		err = cmdInfo(ctx, cfg, log, args[1:])
	case "members":
		err = cmdMembers(ctx, cfg, log, args[1:])
	case "messages":
		err = cmdMessages(ctx, cfg, log, args[1:])
	case "combined":
		err = cmdCombined(ctx, cfg, log, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		usage()
		return exitFailure
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted, no output written")
			return exitFailure
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// runLogger tags every log line of this invocation with a run id.
func runLogger() *logger.Logger {
	l := logger.Get().With().Str("run_id", uuid.NewString()).Logger()
	return &logger.Logger{Logger: l}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, telegram.ErrAuth):
		return exitAuth
	case errors.Is(err, telegram.ErrRateExhausted):
		return exitRateExhausted
	case errors.Is(err, telegram.ErrNetwork):
		return exitNetwork
	case errors.Is(err, telegram.ErrBanned), errors.Is(err, telegram.ErrAccessDenied):
		return exitNoAccess
	case errors.Is(err, telegram.ErrNotFound):
		return exitBadIdentifier
	}
	return exitFailure
}

// connect builds the authorized client wrapper.
func connect(cfg *config.Config) (*telegram.Client, error) {
	proto, err := telegram.NewSessionClient(cfg)
	if err != nil {
		return nil, err
	}
	return telegram.NewClient(proto), nil
}

func newLimiter(cfg *config.Config) *telegram.RateLimiter {
	return telegram.NewRateLimiter(
		cfg.RateRPS,
		1,
		time.Duration(cfg.DelayMinMs)*time.Millisecond,
		time.Duration(cfg.DelayMaxMs)*time.Millisecond,
	)
}

// groupArg pulls the positional group identifier off the front of the
// argument list; remaining args are flags.
func groupArg(name string, args []string) (string, []string, error) {
	if len(args) < 1 || args[0] == "" {
		return "", nil, fmt.Errorf("usage: tg-scraper %s <group> [flags]", name)
	}
	return args[0], args[1:], nil
}

func cmdInfo(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	group, _, err := groupArg("info", args)
	if err != nil {
		return err
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	g, err := client.ResolveGroup(ctx, group)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", g.Title)
	fmt.Printf("  type:    %s\n", g.Kind)
	fmt.Printf("  id:      %d\n", g.ID)
	if g.Username != "" {
		fmt.Printf("  username: @%s\n", g.Username)
	}
	if g.MemberCount > 0 {
		fmt.Printf("  members: %d\n", g.MemberCount)
	}
	return nil
}

func cmdMembers(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	group, rest, err := groupArg("members", args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("members", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "max members to fetch (0 = all)")
	output := fs.String("output", cfg.OutputDir, "output directory")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	g, err := client.ResolveGroup(ctx, group)
	if err != nil {
		return err
	}
	log.Info().Str("group", g.Title).Int("limit", *limit).Msg("scraping members")

	fetcher := scraper.NewFetcher(client, newLimiter(cfg), log)
	members, err := fetcher.FetchMembers(ctx, g, *limit)
	if err != nil {
		return err
	}

	path, err := export.Members(members, g.Title, *output)
	if err != nil {
		return err
	}
	log.Info().Int("count", len(members)).Str("path", path).Msg("members exported")
	fmt.Println(path)
	return nil
}

// messageFlags are the shared knobs of the messages and combined commands.
type messageFlags struct {
	limit    int
	since    time.Time
	until    time.Time
	keywords []string
	output   string
}

func parseMessageFlags(fs *flag.FlagSet, cfg *config.Config, rest []string) (*messageFlags, error) {
	limit := fs.Int("limit", 0, "max messages to fetch (0 = all)")
	sinceStr := fs.String("since", "", "start date, inclusive (YYYY-MM-DD)")
	untilStr := fs.String("until", "", "end date, inclusive (YYYY-MM-DD)")
	keywordsStr := fs.String("keywords", "", "comma-separated keywords, any match keeps a message")
	output := fs.String("output", cfg.OutputDir, "output directory")
	if err := fs.Parse(rest); err != nil {
		return nil, err
	}

	mf := &messageFlags{limit: *limit, output: *output}
	var err error
	if mf.since, err = parseDate(*sinceStr); err != nil {
		return nil, err
	}
	if mf.until, err = parseDate(*untilStr); err != nil {
		return nil, err
	}
	if *keywordsStr != "" {
		mf.keywords = splitKeywords(*keywordsStr)
	}
	return mf, nil
}

func cmdMessages(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	group, rest, err := groupArg("messages", args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("messages", flag.ContinueOnError)
	chronological := fs.Bool("chronological", false, "sort by time instead of grouping by sender")
	mf, err := parseMessageFlags(fs, cfg, rest)
	if err != nil {
		return err
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	g, err := client.ResolveGroup(ctx, group)
	if err != nil {
		return err
	}
	log.Info().Str("group", g.Title).Int("limit", mf.limit).Msg("scraping messages")

	fetcher := scraper.NewFetcher(client, newLimiter(cfg), log)
	messages, err := fetcher.FetchMessages(ctx, g, mf.limit, mf.until)
	if err != nil {
		return err
	}

	messages = scraper.FilterByDate(messages, mf.since, mf.until)
	messages = scraper.FilterByKeywords(messages, mf.keywords)

	mode := scraper.SortGroupedBySender
	if *chronological {
		mode = scraper.SortChronological
	}
	messages = scraper.Order(messages, mode)

	path, err := export.Messages(messages, g.Title, mf.output)
	if err != nil {
		return err
	}
	log.Info().Int("count", len(messages)).Str("path", path).Msg("messages exported")
	fmt.Println(path)
	return nil
}

func cmdCombined(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	group, rest, err := groupArg("combined", args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("combined", flag.ContinueOnError)
	mf, err := parseMessageFlags(fs, cfg, rest)
	if err != nil {
		return err
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	g, err := client.ResolveGroup(ctx, group)
	if err != nil {
		return err
	}
	log.Info().Str("group", g.Title).Msg("scraping combined view")

	// the remote throttles per request stream, so each fetch gets its own
	// rate budget
	members, err := scraper.NewFetcher(client, newLimiter(cfg), log).FetchMembers(ctx, g, 0)
	if err != nil {
		return err
	}
	messages, err := scraper.NewFetcher(client, newLimiter(cfg), log).FetchMessages(ctx, g, mf.limit, mf.until)
	if err != nil {
		return err
	}

	messages = scraper.FilterByDate(messages, mf.since, mf.until)
	messages = scraper.FilterByKeywords(messages, mf.keywords)

	combined := scraper.Combine(members, messages)

	path, err := export.Combined(combined, g.Title, mf.output)
	if err != nil {
		return err
	}
	log.Info().Int("count", len(combined)).Str("path", path).Msg("combined view exported")
	fmt.Println(path)
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return t, nil
}

func splitKeywords(s string) []string {
	var out []string
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func usage() {
	fmt.Println(`tg-scraper - export Telegram group members and messages to CSV

usage: tg-scraper <command> [arguments]

commands:
  info <group>                     show group details without scraping
  members <group> [flags]          export the member list
  messages <group> [flags]         export message history
  combined <group> [flags]         export a per-member activity profile
  examples                         show usage recipes

common flags:
  --limit N          stop after N items
  --output DIR       output directory (default: output)

messages/combined flags:
  --since DATE       keep messages on or after DATE (YYYY-MM-DD)
  --until DATE       keep messages on or before DATE (YYYY-MM-DD)
  --keywords a,b,c   keep messages containing any keyword
  --chronological    sort by time instead of grouping by sender (messages only)

environment: TG_API_ID, TG_API_HASH, TG_SESSION_STRING (see tg-auth)`)
}

func printExamples() {
	fmt.Println(`common usage examples:

FIRST-TIME SETUP
  1. get api credentials at https://my.telegram.org/apps
  2. run tg-auth to generate a session string
  3. put TG_API_ID, TG_API_HASH, TG_SESSION_STRING in .env

SCRAPE MEMBERS
  tg-scraper members @groupname               # all members
  tg-scraper members @groupname --limit 100   # first 100 only

SCRAPE MESSAGES
  tg-scraper messages @groupname                          # all, grouped by sender
  tg-scraper messages @groupname --limit 500              # last 500 messages
  tg-scraper messages @groupname --since 2024-06-01       # from date onwards
  tg-scraper messages @groupname --chronological          # time order

COMBINED VIEW
  tg-scraper combined @groupname              # one row per member with activity

GROUP FORMATS (all work)
  @username                    # public group username
  https://t.me/username        # public link
  https://t.me/+AbCdEfG123     # private invite link
  -100123456789                # numeric group id

WORKFLOW: find active users and their contact info
  1. tg-scraper messages @target --limit 1000   # see who's talking
  2. tg-scraper members @target                 # get their details
  3. cross-reference sender_id with user_id in both CSVs`)
}
