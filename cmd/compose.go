package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-typing/core/config"
	"github.com/AzielCF/az-typing/pkg/clock"
	"github.com/AzielCF/az-typing/pkg/msgworker"
	"github.com/AzielCF/az-typing/presence/application"
	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/AzielCF/az-typing/presence/infrastructure"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Simulate a compose box that sends typing notifications",
	Long: `Reads compose box activity from stdin. Plain lines are the current draft;
commands switch the recipient or close the box:

  /pm 3,7          address a private message group
  /stream 5 topic  address a stream topic
  /send            the message was sent
  /cancel          the compose box was closed
  /status          show what is being signalled
  /quit            exit`,
	Run: composeClient,
}

func init() {
	composeCmd.Flags().String("server-url", "", "typing server base url | example: --server-url=http://localhost:3000")
	composeCmd.Flags().Int64("user-id", 0, "id of the user typing | example: --user-id=4")
	composeCmd.Flags().Bool("dry-run", false, "log notifications instead of sending them")
	rootCmd.AddCommand(composeCmd)
}

type composeAction int

const (
	actionDraft composeAction = iota
	actionRecipient
	actionSend
	actionCancel
	actionStatus
	actionQuit
	actionInvalid
)

type composeCommand struct {
	action    composeAction
	recipient conversation.Recipient
	content   string
	err       error
}

func parseComposeLine(line string) composeCommand {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return composeCommand{action: actionDraft, content: line}
	}

	name, rest, _ := strings.Cut(trimmed, " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "/pm":
		var ids []int64
		for _, raw := range strings.Split(rest, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return composeCommand{action: actionInvalid, err: fmt.Errorf("bad user id %q", raw)}
			}
			ids = append(ids, id)
		}
		return composeCommand{action: actionRecipient, recipient: conversation.Recipient{UserIDs: ids}}
	case "/stream":
		rawID, topic, _ := strings.Cut(rest, " ")
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return composeCommand{action: actionInvalid, err: fmt.Errorf("bad stream id %q", rawID)}
		}
		return composeCommand{action: actionRecipient, recipient: conversation.Recipient{StreamID: id, Topic: topic}}
	case "/send":
		return composeCommand{action: actionSend}
	case "/cancel":
		return composeCommand{action: actionCancel}
	case "/status":
		return composeCommand{action: actionStatus}
	case "/quit", "/exit":
		return composeCommand{action: actionQuit}
	}
	return composeCommand{action: actionInvalid, err: fmt.Errorf("unknown command %s", name)}
}

// composeSession feeds compose box activity into a Notifier.
type composeSession struct {
	id        string
	notifier  *application.Notifier
	clock     clock.Clock
	recipient conversation.Recipient
	draft     string
	since     time.Time
	out       io.Writer
}

func newComposeSession(notifier *application.Notifier, clk clock.Clock, out io.Writer) *composeSession {
	return &composeSession{
		id:       uuid.NewString(),
		notifier: notifier,
		clock:    clk,
		out:      out,
	}
}

// handle applies one line and reports whether the session should end.
func (s *composeSession) handle(ctx context.Context, line string) bool {
	cmd := parseComposeLine(line)
	switch cmd.action {
	case actionDraft:
		s.draft = cmd.content
		s.input(ctx)
	case actionRecipient:
		s.recipient = cmd.recipient
		s.input(ctx)
	case actionSend:
		s.notifier.Finish(ctx)
		s.draft = ""
		fmt.Fprintln(s.out, "sent")
	case actionCancel:
		s.notifier.Cancel(ctx)
		s.draft = ""
		fmt.Fprintln(s.out, "compose box closed")
	case actionStatus:
		fmt.Fprintln(s.out, s.status())
	case actionQuit:
		s.notifier.Close(ctx)
		return true
	case actionInvalid:
		fmt.Fprintf(s.out, "error: %v\n", cmd.err)
	}
	return false
}

func (s *composeSession) input(ctx context.Context) {
	before, wasActive := s.notifier.Current()
	s.notifier.HandleInput(ctx, s.recipient, s.draft)
	after, active := s.notifier.Current()
	if active && (!wasActive || before != after) {
		s.since = s.clock.Now()
	}
}

func (s *composeSession) status() string {
	key, active := s.notifier.Current()
	if !active {
		return "idle"
	}
	return fmt.Sprintf("typing in %s since %s", key, humanize.RelTime(s.since, s.clock.Now(), "ago", "from now"))
}

func composeTransport(cfg *coreconfig.Config, dryRun bool) typing.Transport {
	if dryRun {
		return infrastructure.LogTransport{}
	}
	sender := infrastructure.NewHTTPTransport(infrastructure.HTTPTransportConfig{
		BaseURL:   cfg.Compose.ServerURL,
		SenderID:  cfg.Compose.UserID,
		BasicAuth: cfg.Compose.BasicAuth,
	}, nil)
	return infrastructure.NewPooledTransport(sender, msgworker.GetGlobalPool(), 0)
}

func composeClient(cmd *cobra.Command, _ []string) {
	cfg := coreconfig.Global
	if v, _ := cmd.Flags().GetString("server-url"); v != "" {
		cfg.Compose.ServerURL = v
	}
	if v, _ := cmd.Flags().GetInt64("user-id"); v != 0 {
		cfg.Compose.UserID = v
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if cfg.Compose.UserID <= 0 && !dryRun {
		logrus.Fatalln("COMPOSE_USER_ID (or --user-id) is required")
	}
	defer msgworker.StopGlobalPool()

	clk := clock.Real()
	resolver := conversation.Resolver{FoldTopicCase: cfg.Typing.TopicCaseFold}
	notifier := application.NewNotifier(composeTransport(cfg, dryRun), clk, cfg.Typing.IdleTimeout(), resolver)
	notifier.RefreshInterval = cfg.Typing.RefreshInterval()

	session := newComposeSession(notifier, clk, os.Stdout)
	logrus.Infof("[COMPOSE] Session %s for user %d against %s", session.id, cfg.Compose.UserID, cfg.Compose.ServerURL)

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if session.handle(ctx, scanner.Text()) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logrus.Errorf("[COMPOSE] Failed to read stdin: %v", err)
	}
	notifier.Close(ctx)
}
