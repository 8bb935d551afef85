// Package app assembles the Nimbus application: storage, the Matrix
// transport, the NLU provider, the Azure client and the conversation
// orchestrator.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/nimbusbot/nimbus/common/retry"
	"github.com/nimbusbot/nimbus/internal/nimbus/azure"
	"github.com/nimbusbot/nimbus/internal/nimbus/dialog"
	"github.com/nimbusbot/nimbus/internal/nimbus/matrix"
	"github.com/nimbusbot/nimbus/internal/nimbus/nlu"
	"github.com/nimbusbot/nimbus/internal/nimbus/session"
	"github.com/nimbusbot/nimbus/internal/nimbus/store"
)

// App is the running Nimbus application.
type App struct {
	config       *Config
	store        *store.Store
	matrix       *matrix.Client
	orchestrator *dialog.Orchestrator
}

// New wires the application together. The database is opened and migrated
// here; the Matrix connection is established by Run.
func New(config *Config) (*App, error) {
	slog.Info("opening database", "path", config.DatabasePath)
	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	matrixCfg := config.Matrix
	matrixCfg.DB = st.DB()
	slog.Info("connecting to Matrix", "homeserver", matrixCfg.Homeserver)
	matrixClient, err := matrix.New(&matrixCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("initialize matrix client: %w", err)
	}

	sessions := session.NewStore(st.DB())
	provider := nlu.New(config.NLU)
	cloud := azure.New(config.Azure)
	handlers := dialog.NewHandlers(cloud)
	orchestrator := dialog.NewOrchestrator(sessions, provider, handlers, st, slog.Default())

	return &App{
		config:       config,
		store:        st,
		matrix:       matrixClient,
		orchestrator: orchestrator,
	}, nil
}

// Run starts the Matrix sync loop and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("start matrix client: %w", err)
	}

	for _, roomID := range a.config.Matrix.AllowedRooms {
		if err := a.matrix.SendNotice(ctx, roomID, "Nimbus is online. Say \"help\" to see what I can do."); err != nil {
			slog.Warn("startup notice failed", "room", roomID, "err", err)
		}
	}

	slog.Info("Nimbus is running; press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop shuts the transport and storage down.
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.matrix.Stop()
	slog.Info("closing database")
	a.store.Close()
}

// handleMessage feeds one inbound Matrix message through the orchestrator
// and sends the rendered reply back to the room.
func (a *App) handleMessage(ctx context.Context, evt *event.Event) {
	msgContent := evt.Content.AsMessage()
	if msgContent == nil {
		return
	}

	roomID := evt.RoomID.String()
	if err := a.matrix.SetTyping(ctx, roomID, true, 30*time.Second); err != nil {
		slog.Debug("set typing failed", "room", roomID, "err", err)
	}

	reply := a.orchestrator.HandleTurn(ctx, roomID, evt.Sender.String(), msgContent.Body)

	if err := a.matrix.SetTyping(ctx, roomID, false, 0); err != nil {
		slog.Debug("clear typing failed", "room", roomID, "err", err)
	}

	text := renderReply(reply)
	if text == "" {
		return
	}

	// Send with retry so a transient homeserver hiccup does not eat an
	// answer the user is waiting on.
	html := markdownToHTML(text)
	err := retry.Do(ctx, retry.DefaultConfig, func() error {
		return a.matrix.SendFormattedMessage(ctx, roomID, html, text)
	})
	if err != nil {
		slog.Error("send reply failed", "room", roomID, "err", err)
	}
}

// renderReply flattens a dialog reply into one Markdown message. Choice
// prompts are rendered as a numbered list so the user can answer with a
// number or a name.
func renderReply(reply *dialog.Reply) string {
	if reply == nil || len(reply.Messages) == 0 {
		return ""
	}

	var b strings.Builder
	for i, msg := range reply.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(msg)
	}

	if reply.Expect == dialog.ExpectChoice {
		for i, choice := range reply.Choices {
			b.WriteString(fmt.Sprintf("\n%d. %s", i+1, choice))
		}
	}

	return b.String()
}
