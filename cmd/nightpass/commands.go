package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nightpass/nightpass/internal/config"
	"github.com/nightpass/nightpass/pkg/admin"
	"github.com/nightpass/nightpass/pkg/approval"
	"github.com/nightpass/nightpass/pkg/keystore"
	"github.com/nightpass/nightpass/pkg/schema"
	"github.com/nightpass/nightpass/pkg/sdk"
	"github.com/nightpass/nightpass/pkg/session"
	"github.com/nightpass/nightpass/pkg/venue"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage")

type cli struct {
	cfg   *config.Config
	creds keystore.Store
	log   *zap.Logger
	out   io.Writer

	session   *session.Manager
	venues    *venue.Manager
	approvals *approval.Manager
	admin     *admin.Manager
}

func newCLI(cfg *config.Config, client *sdk.Client, creds keystore.Store, log *zap.Logger, out io.Writer) *cli {
	return &cli{
		cfg:       cfg,
		creds:     creds,
		log:       log,
		out:       out,
		session:   session.New(client, creds, log),
		venues:    venue.New(client, log),
		approvals: approval.New(client, log),
		admin:     admin.New(client, log),
	}
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	err := c.dispatch(ctx, command, args)
	if errors.Is(err, errUsage) {
		printUsage()
	}
	if errors.Is(err, sdk.ErrUnauthorized) {
		return fmt.Errorf("%w (run: nightpass login <phone>)", err)
	}
	return err
}

func (c *cli) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		if len(args) < 3 {
			return usage("register <phone> <first> <last>")
		}
		if err := c.session.Register(ctx, args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Verification code sent. Run: nightpass confirm-register", args[0], "<code>")

	case "confirm-register":
		if len(args) < 2 {
			return usage("confirm-register <phone> <code>")
		}
		if err := c.session.ConfirmRegistration(ctx, args[0], args[1]); err != nil {
			return err
		}
		c.printSignedIn()

	case "login":
		if len(args) < 1 {
			return usage("login <phone>")
		}
		if err := c.session.Login(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Verification code sent. Run: nightpass confirm-login", args[0], "<code>")

	case "confirm-login":
		if len(args) < 2 {
			return usage("confirm-login <phone> <code> [device]")
		}
		var device *string
		if len(args) > 2 {
			device = &args[2]
		}
		if err := c.session.ConfirmLogin(ctx, args[0], args[1], device); err != nil {
			return err
		}
		c.printSignedIn()

	case "logout":
		c.session.Logout(ctx)
		fmt.Fprintln(c.out, "OK")

	case "status":
		return c.status()

	case "profile":
		if err := c.session.FetchProfile(ctx); err != nil {
			return err
		}
		st := c.session.State()
		if !st.Authenticated || st.CurrentUser == nil {
			return sdk.ErrUnauthorized
		}
		printJSON(c.out, st.CurrentUser)

	case "update-profile":
		update, err := parseProfileUpdate(args)
		if err != nil {
			return err
		}
		if err := c.session.UpdateProfile(ctx, update); err != nil {
			return err
		}
		printJSON(c.out, c.session.State().CurrentUser)

	case "upload-photo", "upload-id":
		if len(args) < 1 {
			return usage(command + " <file>")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if command == "upload-photo" {
			err = c.session.UploadProfilePhoto(ctx, data)
		} else {
			err = c.session.UploadIDCard(ctx, data)
		}
		if err != nil {
			return err
		}
		printJSON(c.out, c.session.State().CurrentUser)

	case "venues":
		if err := c.venues.FetchVenues(ctx); err != nil {
			return err
		}
		printJSON(c.out, c.venues.State().Venues)

	case "venue":
		id, err := idArg(args, 0, "venue <venueID>")
		if err != nil {
			return err
		}
		v, err := c.venues.FetchVenue(ctx, id)
		if err != nil {
			return err
		}
		printJSON(c.out, v)

	case "events":
		id, err := idArg(args, 0, "events <venueID>")
		if err != nil {
			return err
		}
		events, err := c.venues.FetchEvents(ctx, id)
		if err != nil {
			return err
		}
		printJSON(c.out, events)

	case "approvals":
		if err := c.approvals.FetchApprovals(ctx); err != nil {
			return err
		}
		st := c.approvals.State()
		if hasFlag(args, "--active") {
			printJSON(c.out, st.ActiveApprovals)
		} else {
			printJSON(c.out, st.Approvals)
		}

	case "approval":
		id, err := idArg(args, 0, "approval <approvalID>")
		if err != nil {
			return err
		}
		a, err := c.approvals.FetchApproval(ctx, id)
		if err != nil {
			return err
		}
		printJSON(c.out, a)

	case "request":
		venueID, err := idArg(args, 0, "request <venueID> [eventID]")
		if err != nil {
			return err
		}
		typ := schema.ApprovalGlobal
		var eventID *int64
		if len(args) > 1 {
			id, err := idArg(args, 1, "request <venueID> [eventID]")
			if err != nil {
				return err
			}
			eventID, typ = &id, schema.ApprovalEventSpecific
		}
		a, err := c.approvals.RequestApproval(ctx, venueID, eventID, typ)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Requested %s for %s (approval %d, %s)\n", typ.Label(), a.Venue.Name, a.ID, a.Status.Label())

	case "qr":
		id, err := idArg(args, 0, "qr <approvalID>")
		if err != nil {
			return err
		}
		data, ok, err := c.approvals.GetQRCode(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "No pass available for this approval.")
			return nil
		}
		fmt.Fprintln(c.out, data)

	case "admin-venues":
		if err := c.admin.FetchVenues(ctx); err != nil {
			return err
		}
		printJSON(c.out, c.admin.State().Venues)

	case "admin-venue":
		id, err := idArg(args, 0, "admin-venue <venueID>")
		if err != nil {
			return err
		}
		v, err := c.admin.FetchVenueDetail(ctx, id)
		if err != nil {
			return err
		}
		printJSON(c.out, v)

	case "admin-approvals":
		id, err := idArg(args, 0, "admin-approvals <venueID> [--pending]")
		if err != nil {
			return err
		}
		if err := c.admin.FetchApprovals(ctx, id, hasFlag(args, "--pending")); err != nil {
			return err
		}
		printJSON(c.out, c.admin.State().Approvals)

	case "admin-approval", "approve", "reject":
		venueID, err := idArg(args, 0, command+" <venueID> <approvalID>")
		if err != nil {
			return err
		}
		id, err := idArg(args, 1, command+" <venueID> <approvalID>")
		if err != nil {
			return err
		}
		var a schema.AdminApproval
		switch command {
		case "approve":
			a, err = c.admin.ApproveApproval(ctx, venueID, id)
		case "reject":
			a, err = c.admin.RejectApproval(ctx, venueID, id)
		default:
			a, err = c.admin.FetchApproval(ctx, venueID, id)
		}
		if err != nil {
			return err
		}
		printJSON(c.out, a)

	case "migrate-store":
		if len(args) < 2 {
			return usage("migrate-store <from> <to>")
		}
		return c.migrate(keystore.Backend(args[0]), keystore.Backend(args[1]))

	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n", command)
		return errUsage
	}
	return nil
}

func (c *cli) printSignedIn() {
	st := c.session.State()
	if st.CurrentUser != nil {
		fmt.Fprintf(c.out, "Signed in as %s (%s)\n", st.CurrentUser.FullName(), st.CurrentUser.PhoneNumber)
		return
	}
	fmt.Fprintln(c.out, "Signed in")
}

func (c *cli) status() error {
	info, ok, err := c.session.AccessToken()
	if !ok {
		fmt.Fprintln(c.out, "Not signed in")
		return nil
	}
	fmt.Fprintln(c.out, "Signed in")
	if err != nil {
		fmt.Fprintln(c.out, "  token: opaque")
		return nil
	}
	if info.Subject != "" {
		fmt.Fprintln(c.out, "  user:", info.Subject)
	}
	if !info.ExpiresAt.IsZero() {
		state := "valid"
		if info.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(c.out, "  token %s until %s\n", state, info.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// migrate copies stored credentials between backends under the configured directory.
func (c *cli) migrate(from, to keystore.Backend) error {
	if from == to {
		return fmt.Errorf("source and destination backend are both %q", from)
	}
	open := func(b keystore.Backend) (keystore.Store, error) {
		opts := c.cfg.KeystoreOptions()
		opts.Backend = b
		return keystore.Open(opts, c.log)
	}

	src, err := open(from)
	if err != nil {
		return fmt.Errorf("open %s store: %w", from, err)
	}
	defer closeStore(src)
	dst, err := open(to)
	if err != nil {
		return fmt.Errorf("open %s store: %w", to, err)
	}
	defer closeStore(dst)

	n := keystore.Migrate(src, dst)
	fmt.Fprintf(c.out, "Migrated %d credential(s) from %s to %s\n", n, from, to)
	return nil
}

func closeStore(s keystore.Store) {
	if closer, ok := s.(io.Closer); ok {
		closer.Close()
	}
}

func parseProfileUpdate(args []string) (session.ProfileUpdate, error) {
	var u session.ProfileUpdate
	if len(args) == 0 {
		return u, usage("update-profile [first=..] [last=..] [facebook=..] [instagram=..] [linkedin=..]")
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return u, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch key {
		case "first":
			u.FirstName = &value
		case "last":
			u.LastName = &value
		case "facebook", "instagram", "linkedin":
			if u.SocialLinks == nil {
				u.SocialLinks = make(map[string]string)
			}
			u.SocialLinks[key] = value
		default:
			return u, fmt.Errorf("unknown profile field %q", key)
		}
	}
	return u, nil
}

func idArg(args []string, i int, help string) (int64, error) {
	if len(args) <= i {
		return 0, usage(help)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[i])
	}
	return id, nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func usage(help string) error {
	return fmt.Errorf("%w: nightpass %s", errUsage, help)
}
