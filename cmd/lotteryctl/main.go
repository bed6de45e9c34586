// Command lotteryctl imports rosters and plays draws against a running API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/exp/slog"
	"gopkg.in/urfave/cli.v1"

	"github.com/MarioJames/super-lotto/internal/config"
	"github.com/MarioJames/super-lotto/internal/logging"
	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/presentation"
	"github.com/MarioJames/super-lotto/pkg/lotteryclient"
)

func main() {
	app := cli.NewApp()
	app.Name = "lotteryctl"
	app.Usage = "operate multi-round draws"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "directory containing config.yaml"},
		cli.StringFlag{Name: "url", Usage: "API base URL", EnvVar: "CLIENT_BASEURL"},
		cli.StringFlag{Name: "token", Usage: "bearer token", EnvVar: "CLIENT_TOKEN"},
		cli.StringFlag{Name: "email", Usage: "log in as this admin before running the command"},
		cli.StringFlag{Name: "password", Usage: "admin password", EnvVar: "LOTTERYCTL_PASSWORD"},
		cli.StringFlag{Name: "log-level", Value: "warn"},
	}
	app.Commands = []cli.Command{
		{
			Name:      "import",
			Usage:     "import a roster CSV into an activity",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{cli.Int64Flag{Name: "activity"}},
			Action:    importRoster,
		},
		{
			Name:   "status",
			Usage:  "show rounds and the available pool of an activity",
			Flags:  []cli.Flag{cli.Int64Flag{Name: "activity"}},
			Action: status,
		},
		{
			Name:  "present",
			Usage: "play every pending round of an activity in order",
			Flags: []cli.Flag{
				cli.Int64Flag{Name: "activity"},
				cli.BoolFlag{Name: "skip-short", Usage: "skip rounds without enough participants instead of stopping"},
			},
			Action: present,
		},
		{
			Name:   "redraw",
			Usage:  "discard the winners of a round",
			Flags:  []cli.Flag{cli.Int64Flag{Name: "round"}},
			Action: redraw,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup builds an API client from config, flags and an optional login.
func setup(c *cli.Context) (*lotteryclient.Client, *config.Config, error) {
	logging.SetupWriter(os.Stderr, c.GlobalString("log-level"))

	var paths []string
	if dir := c.GlobalString("config"); dir != "" {
		paths = append(paths, dir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, nil, err
	}
	baseURL := cfg.Client.BaseURL
	if u := c.GlobalString("url"); u != "" {
		baseURL = u
	}
	token := cfg.Client.Token
	if t := c.GlobalString("token"); t != "" {
		token = t
	}
	client := lotteryclient.NewClient(baseURL, token, cfg.Client.Timeout())

	if email := c.GlobalString("email"); email != "" {
		if _, err := client.Login(context.Background(), email, c.GlobalString("password")); err != nil {
			return nil, nil, fmt.Errorf("login failed: %w", err)
		}
		slog.Debug("Logged in", "email", email)
	}
	return client, cfg, nil
}

func requireID(c *cli.Context, flag string) (int64, error) {
	id := c.Int64(flag)
	if id <= 0 {
		return 0, cli.NewExitError(fmt.Sprintf("--%s is required", flag), 2)
	}
	return id, nil
}

func importRoster(c *cli.Context) error {
	activityID, err := requireID(c, "activity")
	if err != nil {
		return err
	}
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("a CSV file is required", 2)
	}
	client, _, err := setup(c)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := client.ImportParticipants(context.Background(), activityID, f)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d of %d rows\n", res.Created, res.TotalRows)
	for _, issue := range res.Errors {
		fmt.Printf("  row %d: %s\n", issue.Row, issue.Message)
	}
	return nil
}

func status(c *cli.Context) error {
	activityID, err := requireID(c, "activity")
	if err != nil {
		return err
	}
	client, _, err := setup(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	detail, err := client.GetActivity(ctx, activityID)
	if err != nil {
		return err
	}
	available, err := client.ListAvailableParticipants(ctx, activityID)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d participants, %d available, %d winner slots\n",
		detail.Activity.Name, detail.ParticipantCount, len(available), detail.TotalWinnerSlots)
	if detail.CapacityWarning {
		fmt.Println("warning: more winner slots than participants")
	}
	for _, r := range detail.Rounds {
		state := "pending"
		if r.IsDrawn {
			state = "drawn"
		}
		fmt.Printf("  #%d %-20s x%d  %-12s %s\n", r.OrderIndex, r.PrizeName, r.WinnerCount, r.LotteryMode, state)
	}
	return nil
}

func redraw(c *cli.Context) error {
	roundID, err := requireID(c, "round")
	if err != nil {
		return err
	}
	client, _, err := setup(c)
	if err != nil {
		return err
	}
	n, err := client.Redraw(context.Background(), roundID)
	if err != nil {
		return err
	}
	fmt.Printf("round %d reset, %d winners removed\n", roundID, n)
	return nil
}

func present(c *cli.Context) error {
	activityID, err := requireID(c, "activity")
	if err != nil {
		return err
	}
	client, cfg, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := presentation.NewMachine(client, activityID,
		presentation.WithRevealFraction(cfg.Lottery.RevealFraction),
		presentation.WithObserver(func(s presentation.State) { printPhase(os.Stdout, s) }),
	)
	return play(ctx, m, c.Bool("skip-short"))
}

// play drives the machine until every round is drawn or it cannot go on.
func play(ctx context.Context, m *presentation.Machine, skipShort bool) error {
	if err := m.Load(ctx); err != nil {
		return err
	}
	for {
		s := m.State()
		switch s.Phase {
		case presentation.PhaseCompleted:
			return nil
		case presentation.PhaseError:
			return s.LastError
		case presentation.PhaseInsufficient:
			if !skipShort {
				return fmt.Errorf("round %d needs %d more participants", s.Round.OrderIndex, s.Shortage)
			}
			if err := m.Skip(ctx); err != nil {
				return err
			}
		case presentation.PhaseReady:
			if !s.CanDraw {
				return fmt.Errorf("round %d is blocked by pending round %d", s.Round.ID, s.BlockingRoundID)
			}
			if _, err := m.Draw(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// stop instead of retrying the same round forever
				var short *lottery.InsufficientParticipantsError
				after := m.State()
				if !errors.As(err, &short) && after.Phase == presentation.PhaseReady && after.Round.ID == s.Round.ID {
					return err
				}
			}
		case presentation.PhaseResults:
			if err := m.Next(ctx); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected phase %s", s.Phase)
		}
	}
}

func printPhase(w io.Writer, s presentation.State) {
	switch s.Phase {
	case presentation.PhaseReady:
		fmt.Fprintf(w, "round #%d %s: %d winners from %d available\n",
			s.Round.OrderIndex, s.Round.PrizeName, s.Round.WinnerCount, s.AvailableCount)
	case presentation.PhaseDrawing:
		fmt.Fprintf(w, "  drawing (%s)...\n", s.Round.LotteryMode)
	case presentation.PhaseResults:
		names := make([]string, 0, len(s.Result.Winners))
		for _, wd := range s.Result.Winners {
			if wd.Participant != nil {
				names = append(names, wd.Participant.Name)
			}
		}
		fmt.Fprintf(w, "  winners: %s\n", strings.Join(names, ", "))
	case presentation.PhaseInsufficient:
		fmt.Fprintf(w, "round #%d %s: short by %d (%d available)\n",
			s.Round.OrderIndex, s.Round.PrizeName, s.Shortage, s.AvailableCount)
	case presentation.PhaseCompleted:
		fmt.Fprintln(w, "all rounds drawn")
	case presentation.PhaseError:
		fmt.Fprintf(w, "error: %v\n", s.LastError)
	}
	if s.LastError != nil && s.Phase != presentation.PhaseError {
		slog.Warn("Previous action failed", "error", s.LastError)
	}
}
