// Command tg-auth produces the TG_SESSION_STRING that tg-scraper needs.
// It can import an existing Telegram Desktop session or log in fresh with
// a phone number and confirmation code.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session/tdesktop"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	phone := flag.String("phone", "", "phone number for fresh login (skips Telegram Desktop import)")
	tdataPath := flag.String("tdata", "", "Telegram Desktop tdata directory to import a session from")
	flag.Parse()

	_ = godotenv.Load()

	fmt.Println("tg-auth: generate a session string for tg-scraper")
	fmt.Println()

	in := bufio.NewReader(os.Stdin)

	apiID, apiHash, err := apiCredentials(in)
	if err != nil {
		return err
	}

	var client *gotgproto.Client
	switch {
	case *phone != "":
		client, err = loginWithPhone(apiID, apiHash, *phone)
	default:
		client, err = loginInteractive(apiID, apiHash, *tdataPath, in)
	}
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	defer client.Stop()

	sessionString, err := client.ExportStringSession()
	if err != nil {
		return fmt.Errorf("export session: %w", err)
	}

	fmt.Println()
	fmt.Printf("logged in as @%s\n", client.Self.Username)
	fmt.Println()
	fmt.Println("session string (add to .env as TG_SESSION_STRING):")
	fmt.Println(sessionString)
	fmt.Println()
	fmt.Println("keep it secret: it grants full access to your account")
	return nil
}

// loginInteractive picks between a Telegram Desktop import and a phone
// login, preferring an importable desktop session when one exists.
func loginInteractive(apiID int, apiHash, tdataPath string, in *bufio.Reader) (*gotgproto.Client, error) {
	accounts := findDesktopAccounts(tdataPath)
	if len(accounts) == 0 {
		fmt.Println("no Telegram Desktop session found, falling back to phone login")
		p, err := prompt(in, "phone number (with country code, e.g. +1234567890)")
		if err != nil {
			return nil, err
		}
		return loginWithPhone(apiID, apiHash, p)
	}

	fmt.Printf("found %d Telegram Desktop session(s)\n", len(accounts))
	answer, err := prompt(in, "import desktop session? [Y/n]")
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(answer, "n") {
		p, err := prompt(in, "phone number (with country code, e.g. +1234567890)")
		if err != nil {
			return nil, err
		}
		return loginWithPhone(apiID, apiHash, p)
	}

	account, err := pickAccount(accounts, in)
	if err != nil {
		return nil, err
	}

	return gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(""), // empty phone, the imported session carries auth
		&gotgproto.ClientOpts{
			Session:          sessionMaker.TdataSession(account).Name("tdata_session"),
			DisableCopyright: true,
		},
	)
}

func loginWithPhone(apiID int, apiHash, phone string) (*gotgproto.Client, error) {
	fmt.Println("check your Telegram app for the confirmation code")
	client, err := gotgproto.NewClient(
		apiID,
		apiHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open("tg_session")),
			DisableCopyright: true,
		},
	)
	if err == nil {
		fmt.Println("tg_session.db holds temporary login state, safe to delete after copying the string")
	}
	return client, err
}

// findDesktopAccounts reads Telegram Desktop session data from the given
// path, or from the platform default when none is given.
func findDesktopAccounts(path string) []tdesktop.Account {
	if path == "" {
		path = defaultTdataPath()
	} else if !strings.HasSuffix(path, "tdata") {
		path = filepath.Join(path, "tdata")
	}
	accounts, err := tdesktop.Read(path, nil)
	if err != nil {
		return nil
	}
	return accounts
}

func defaultTdataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Telegram Desktop", "tdata")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Telegram Desktop", "tdata")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "TelegramDesktop", "tdata")
	}
}

func pickAccount(accounts []tdesktop.Account, in *bufio.Reader) (tdesktop.Account, error) {
	if len(accounts) == 1 {
		return accounts[0], nil
	}
	fmt.Printf("%d accounts available\n", len(accounts))
	answer, err := prompt(in, fmt.Sprintf("account number [1-%d]", len(accounts)))
	if err != nil {
		return tdesktop.Account{}, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(accounts) {
		return accounts[0], nil
	}
	return accounts[n-1], nil
}

// apiCredentials reads the api_id / api_hash pair from the environment,
// prompting for whatever is missing.
func apiCredentials(in *bufio.Reader) (int, string, error) {
	apiIDStr := os.Getenv("TG_API_ID")
	apiHash := os.Getenv("TG_API_HASH")

	var err error
	if apiIDStr == "" {
		if apiIDStr, err = prompt(in, "api_id (from https://my.telegram.org/apps)"); err != nil {
			return 0, "", err
		}
	}
	if apiHash == "" {
		if apiHash, err = prompt(in, "api_hash"); err != nil {
			return 0, "", err
		}
	}

	apiID, err := strconv.Atoi(apiIDStr)
	if err != nil {
		return 0, "", fmt.Errorf("invalid api_id %q", apiIDStr)
	}
	return apiID, apiHash, nil
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
