package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"trustpay-sync/config"
	"trustpay-sync/internal/adapter/rest"
	"trustpay-sync/internal/adapter/ws"
	"trustpay-sync/internal/core/ports"
	"trustpay-sync/internal/service"
	"trustpay-sync/pkg/logger"
)

const usage = `escrowctl - TrustPay escrow client

Usage:
  escrowctl <command> [flags]

Commands:
  register   create an account
  login      authenticate and print the access token
  create     open an escrow and print its join code
  join       claim an escrow by join code
  confirm    confirm release of an escrow
  dispute    raise a dispute on an escrow
  status     print the payment status of an escrow
  watch      follow an escrow's status changes live

The access token for authenticated commands is read from TPS_TOKEN.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	api := rest.NewClient(log, cfg.API.BaseURL, cfg.API.Timeout)
	if tok := os.Getenv("TPS_TOKEN"); tok != "" {
		api.SetToken(tok)
	}

	a := &app{cfg: cfg, log: log, api: api}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch cmd := os.Args[1]; cmd {
	case "register":
		runErr = a.register(ctx, os.Args[2:])
	case "login":
		runErr = a.login(ctx, os.Args[2:])
	case "create":
		runErr = a.create(ctx, os.Args[2:])
	case "join":
		runErr = a.join(ctx, os.Args[2:])
	case "confirm":
		runErr = a.confirm(ctx, os.Args[2:])
	case "dispute":
		runErr = a.dispute(ctx, os.Args[2:])
	case "status":
		runErr = a.status(ctx, os.Args[2:])
	case "watch":
		runErr = a.watch(ctx, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

type app struct {
	cfg *config.Config
	log zerolog.Logger
	api *rest.Client
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email (required)")
	password := fs.String("password", "", "account password (required)")
	name := fs.String("name", "", "full name")
	vpa := fs.String("vpa", "", "UPI VPA for payouts")
	_ = fs.Parse(args)
	if *email == "" || *password == "" {
		return fmt.Errorf("-email and -password are required")
	}

	u, err := a.api.Register(ctx, *email, *password, *name, *vpa)
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", u.Email, u.ID)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email (required)")
	password := fs.String("password", "", "account password (required)")
	_ = fs.Parse(args)
	if *email == "" || *password == "" {
		return fmt.Errorf("-email and -password are required")
	}

	res, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("export TPS_TOKEN=%s\n", res.AccessToken)
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	amount := fs.Int64("amount", 0, "amount in paise (required)")
	payeeVPA := fs.String("payee-vpa", "", "payee UPI VPA")
	desc := fs.String("desc", "", "escrow description")
	wait := fs.Bool("wait", false, "stay connected until the payee joins")
	_ = fs.Parse(args)

	sess, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	result, err := sess.matchmaking.CreateWithCode(ctx, ports.CreateEscrowRequest{
		Amount:      *amount,
		PayeeVPA:    *payeeVPA,
		Description: *desc,
	})
	if err != nil {
		return err
	}
	esc := result.Escrow
	fmt.Printf("escrow %s (%s) opened\n", esc.EscrowName, esc.ID)
	fmt.Printf("join code: %s\n", esc.EscrowCode)
	fmt.Printf("payment order: %s\n", result.PaymentOrder.OrderID)

	if !*wait {
		return nil
	}
	fmt.Println("waiting for the payee to join...")
	p, err := sess.matchmaking.AwaitParticipant(ctx, &esc)
	if err != nil {
		return err
	}
	fmt.Printf("payee %s joined\n", p.UserID)
	return nil
}

func (a *app) join(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	code := fs.String("code", "", "6 character join code (required)")
	_ = fs.Parse(args)
	if *code == "" {
		return fmt.Errorf("-code is required")
	}

	sess, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	esc, err := sess.matchmaking.JoinByCode(ctx, *code)
	if err != nil {
		return err
	}
	fmt.Printf("joined escrow %s (%s), status %s\n", esc.EscrowName, esc.ID, esc.Status)
	return nil
}

func (a *app) confirm(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("confirm", flag.ExitOnError)
	id := fs.String("id", "", "escrow id (required)")
	_ = fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	sess, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer sess.close()
	if err := a.track(ctx, sess, *id); err != nil {
		return err
	}

	res, err := sess.lifecycle.Confirm(ctx, *id)
	if err != nil {
		return err
	}
	if res.Status != "" {
		fmt.Printf("escrow %s is now %s\n", *id, res.Status)
	} else {
		fmt.Printf("confirmation recorded, waiting on the other party\n")
	}
	return nil
}

func (a *app) dispute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dispute", flag.ExitOnError)
	id := fs.String("id", "", "escrow id (required)")
	reason := fs.String("reason", "", "dispute reason")
	_ = fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	sess, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer sess.close()
	if err := a.track(ctx, sess, *id); err != nil {
		return err
	}

	res, err := sess.lifecycle.Dispute(ctx, *id, *reason)
	if err != nil {
		return err
	}
	fmt.Printf("escrow %s is now %s\n", *id, res.Status)
	return nil
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.String("id", "", "escrow id (required)")
	_ = fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	res, err := a.api.GetPaymentStatus(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("status: %s\n", res.Status)
	printLeg("payment", res.Payment)
	printLeg("payout", res.Payout)
	printLeg("refund", res.Refund)
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	id := fs.String("id", "", "escrow id (required)")
	_ = fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("-id is required")
	}

	sess, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer sess.close()
	if err := a.track(ctx, sess, *id); err != nil {
		return err
	}

	off := sess.lifecycle.OnTransition(*id, func(tr service.Transition) {
		mark := ""
		if tr.Disputed {
			mark = " [disputed]"
		}
		fmt.Printf("%s: %s -> %s%s\n", tr.EscrowID, tr.From, tr.To, mark)
	})
	defer off()

	m, err := sess.lifecycle.Status(*id)
	if err != nil {
		return err
	}
	fmt.Printf("watching %s, currently %s\n", *id, m.Status)
	<-ctx.Done()
	return nil
}

// session wires the live sync stack: one websocket connection, the event
// bus it feeds, the subscription registry replayed over reconnects, and
// the services on top.
type session struct {
	client      *ws.Client
	lifecycle   *service.LifecycleService
	matchmaking *service.MatchmakingService
}

func (a *app) connect(ctx context.Context) (*session, error) {
	bus := ws.NewDispatcher(a.log)

	var registry *ws.Registry
	client, err := ws.NewClient(a.log, bus, ws.ClientOptions{
		BaseURL:      a.cfg.API.BaseURL,
		Token:        a.api.Token,
		MaxAttempts:  a.cfg.WS.MaxReconnectAttempts,
		Delay:        a.cfg.WS.ReconnectDelay,
		PingInterval: a.cfg.WS.PingInterval,
		OnConnect:    func() { registry.Replay() },
		OnDrop:       func() { registry.Reset() },
	})
	if err != nil {
		return nil, err
	}
	registry = ws.NewRegistry(a.log, client)

	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	return &session{
		client:      client,
		lifecycle:   service.NewLifecycleService(a.log, a.api, bus, registry),
		matchmaking: service.NewMatchmakingService(a.log, a.api, bus, registry),
	}, nil
}

// track fetches the escrow's current status and registers it with the
// state machine so pushes and acks apply on top of a live snapshot.
func (a *app) track(ctx context.Context, sess *session, escrowID string) error {
	esc, err := a.api.GetEscrow(ctx, escrowID)
	if err != nil {
		return err
	}
	sess.lifecycle.Track(escrowID, esc.Status)
	return nil
}

func (s *session) close() {
	s.client.Disconnect()
}

func printLeg(name string, leg *ports.PaymentLeg) {
	if leg == nil {
		return
	}
	fmt.Printf("%s: %s (%s)\n", name, leg.State, leg.Reference)
}
