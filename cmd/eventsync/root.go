package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eventregistry/internal/adapters/observer"
	"eventregistry/internal/domain"
)

// dateLayout is accepted by the --date flag in addition to RFC 3339.
const dateLayout = "2006-01-02 15:04"

func newRootCommand(boot bootstrapFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "eventsync",
		Short: "Manage conferences and concerts persisted as JSON and XML",
		Long: `eventsync keeps a registry of conferences and concerts in sync with
its JSON and XML files, takes periodic backups and mails a notice for every
new event.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newListCommand(boot),
		newUpcomingCommand(boot),
		newVenueCommand(boot),
		newStatsCommand(boot),
		newBackupCommand(boot),
		newRunCommand(boot),
		newCreateCommand(boot),
		newDeleteCommand(boot),
		newCapacityCommand(boot),
		newRegisterCommand(boot),
		newUnregisterCommand(boot),
		newSignupCommand(boot),
		newLoginCommand(boot),
	)
	return root
}

// withApp boots the app, runs fn and always shuts the app down.
func withApp(cmd *cobra.Command, boot bootstrapFunc, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := boot(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.shutdown(context.WithoutCancel(ctx)))
	}()
	return fn(ctx, a)
}

func printEvents(w io.Writer, events []*domain.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	for _, e := range events {
		fmt.Fprintln(w, e.Describe())
	}
}

func newListCommand(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				printEvents(cmd.OutOrStdout(), a.sync.Events())
				return nil
			})
		},
	}
}

func newUpcomingCommand(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "upcoming",
		Short: "List events that have not happened yet, soonest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				printEvents(cmd.OutOrStdout(), a.sync.Upcoming())
				return nil
			})
		},
	}
}

func newVenueCommand(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "venue <query>",
		Short: "List events whose venue contains the query, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				printEvents(cmd.OutOrStdout(), a.sync.FindByVenue(args[0]))
				return nil
			})
		},
	}
}

func newStatsCommand(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print registry statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(a.sync.Stats())
			})
		},
	}
}

func newBackupCommand(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write timestamped backups of the events and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				paths, err := a.sync.Backup(ctx)
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return err
			})
		},
	}
}

// statusWriter prints the latest notification on its own line.
type statusWriter struct {
	w io.Writer
}

func (s statusWriter) SetStatus(text string) {
	fmt.Fprintf(s.w, "%s %s\n", time.Now().Format(time.TimeOnly), text)
}

func newRunCommand(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Keep the registry loaded with autosave and backups until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				refresh := observer.NewRefresh(func() {
					st := a.sync.Stats()
					a.logger.Debug("registry refreshed", "events", st.TotalEvents, "registrations", st.TotalRegistrations)
				}, statusWriter{w: cmd.OutOrStdout()})
				a.sync.AddGlobalObserver(refresh)
				defer a.sync.RemoveGlobalObserver(refresh)

				a.logger.Info("running, press Ctrl+C to stop", "events", len(a.sync.Events()))
				<-ctx.Done()
				a.logger.Info("shutting down")
				return nil
			})
		},
	}
}

func newCreateCommand(boot bootstrapFunc) *cobra.Command {
	var (
		id, name, venue, date string
		capacity              int
		theme, artist, genre  string
		speakers              []string
	)
	cmd := &cobra.Command{
		Use:       "create <conference|concert>",
		Short:     "Create a conference or a concert",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(domain.KindConference), string(domain.KindConcert)},
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseDate(date)
			if err != nil {
				return err
			}
			var e *domain.Event
			switch domain.EventKind(args[0]) {
			case domain.KindConference:
				e = domain.NewConference(id, name, when, venue, capacity, theme, parseSpeakers(speakers))
			case domain.KindConcert:
				e = domain.NewConcert(id, name, when, venue, capacity, artist, genre)
			}
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				if err := a.sync.CreateEvent(ctx, e); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), e.ID())
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&id, "id", "", "event id (generated when empty)")
	f.StringVar(&name, "name", "", "event name")
	f.StringVar(&venue, "venue", "", "venue")
	f.StringVar(&date, "date", "", `date, RFC 3339 or "2006-01-02 15:04"`)
	f.IntVar(&capacity, "capacity", 0, "maximum number of participants")
	f.StringVar(&theme, "theme", "", "conference theme")
	f.StringSliceVar(&speakers, "speaker", nil, `conference speaker as "name:specialty", repeatable`)
	f.StringVar(&artist, "artist", "", "concert artist")
	f.StringVar(&genre, "genre", "", "concert genre")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("capacity")
	return cmd
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func parseSpeakers(values []string) []domain.Speaker {
	var out []domain.Speaker
	for _, v := range values {
		name, specialty, _ := strings.Cut(v, ":")
		out = append(out, domain.Speaker{Name: strings.TrimSpace(name), Specialty: strings.TrimSpace(specialty)})
	}
	return out
}

func newDeleteCommand(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event and notify its participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				return a.sync.DeleteEvent(ctx, args[0])
			})
		},
	}
}

func newCapacityCommand(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "capacity <event-id> <n>",
		Short: "Change an event's capacity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid capacity %q", args[1])
			}
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				return a.sync.SetCapacity(ctx, args[0], n)
			})
		},
	}
}

func newRegisterCommand(boot bootstrapFunc) *cobra.Command {
	var participantID string
	cmd := &cobra.Command{
		Use:   "register <event-id> <name> [email]",
		Short: "Register a participant for an event",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mail string
			if len(args) == 3 {
				mail = args[2]
			}
			p := domain.NewParticipant(participantID, args[1], mail)
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				if err := a.sync.AddParticipant(ctx, args[0], p); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&participantID, "id", "", "participant id (generated when empty)")
	return cmd
}

func newUnregisterCommand(boot bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "unregister <event-id> <participant-id>",
		Short: "Remove a participant from an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				e, ok := a.sync.Find(args[0])
				if !ok {
					return fmt.Errorf("event %q: %w", args[0], domain.ErrNotFound)
				}
				for _, p := range e.Participants() {
					if p.ID == args[1] {
						return a.sync.RemoveParticipant(ctx, args[0], p)
					}
				}
				return fmt.Errorf("participant %q: %w", args[1], domain.ErrNotFound)
			})
		},
	}
}

func newSignupCommand(boot bootstrapFunc) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "signup <email> <name>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				u, err := a.auth.SignUp(ctx, args[0], password, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCommand(boot bootstrapFunc) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Check credentials and print a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, boot, func(ctx context.Context, a *app) error {
				token, err := a.auth.Login(ctx, args[0], password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
