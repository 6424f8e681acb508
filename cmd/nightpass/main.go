package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nightpass/nightpass/internal/config"
	"github.com/nightpass/nightpass/internal/logging"
	"github.com/nightpass/nightpass/pkg/keystore"
	"github.com/nightpass/nightpass/pkg/sdk"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	// a missing .env is fine
	_ = godotenv.Load()

	log, err := logging.New(logging.ConfigFromEnv(), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	creds, err := keystore.Open(cfg.KeystoreOptions(), log)
	if err != nil {
		log.Fatal("failed to open credential store", zap.Error(err))
	}

	client, err := sdk.New(cfg.ClientOptions(log), creds)
	if err != nil {
		log.Fatal("failed to build API client", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	c := newCLI(cfg, client, creds, log, os.Stdout)
	err = c.run(ctx, strings.ToLower(os.Args[1]), os.Args[2:])
	stop()

	if closer, ok := creds.(io.Closer); ok {
		closer.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		log.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("nightpass - venue entry passes from the command line")
	fmt.Println("\nUsage:")
	fmt.Println("  nightpass register <phone> <first> <last>")
	fmt.Println("  nightpass confirm-register <phone> <code>")
	fmt.Println("  nightpass login <phone>")
	fmt.Println("  nightpass confirm-login <phone> <code> [device]")
	fmt.Println("  nightpass logout")
	fmt.Println("  nightpass status")
	fmt.Println("  nightpass profile")
	fmt.Println("  nightpass update-profile [first=..] [last=..] [facebook=..] [instagram=..] [linkedin=..]")
	fmt.Println("  nightpass upload-photo <file>")
	fmt.Println("  nightpass upload-id <file>")
	fmt.Println("  nightpass venues")
	fmt.Println("  nightpass venue <venueID>")
	fmt.Println("  nightpass events <venueID>")
	fmt.Println("  nightpass approvals [--active]")
	fmt.Println("  nightpass approval <approvalID>")
	fmt.Println("  nightpass request <venueID> [eventID]")
	fmt.Println("  nightpass qr <approvalID>")
	fmt.Println("  nightpass admin-venues")
	fmt.Println("  nightpass admin-venue <venueID>")
	fmt.Println("  nightpass admin-approvals <venueID> [--pending]")
	fmt.Println("  nightpass admin-approval <venueID> <approvalID>")
	fmt.Println("  nightpass approve <venueID> <approvalID>")
	fmt.Println("  nightpass reject <venueID> <approvalID>")
	fmt.Println("  nightpass migrate-store <from> <to>       (backends: file, sqlite, memory)")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  NIGHTPASS_API_URL          API base URL (default: http://localhost:3000)")
	fmt.Println("  NIGHTPASS_API_PREFIX       API version prefix (default: /api)")
	fmt.Println("  NIGHTPASS_HTTP_TIMEOUT     Request timeout (default: 30s)")
	fmt.Println("  NIGHTPASS_KEYSTORE         Credential backend: file, sqlite, memory (default: file)")
	fmt.Println("  NIGHTPASS_DATA_DIR         Credential directory (default: ~/.nightpass)")
	fmt.Println("  NIGHTPASS_KEYSTORE_SECRET  Passphrase sealing stored credentials")
	fmt.Println("  LOG_LEVEL, LOG_DEV         Logging (written to stderr)")
}

func printJSON(w io.Writer, v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(w, v)
		return
	}
	fmt.Fprintln(w, string(bytes))
}
