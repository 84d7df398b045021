package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	chatModels "parley/internal/domain/models/chat"
	chatSvc "parley/internal/domain/services/chat"
	"parley/internal/service/chat/session"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// CLI is a terminal chat client. It drives the same session state machine the
// web client uses, against a running server.
type CLI struct {
	baseURL string
	client  *http.Client
	scanner *bufio.Scanner

	session *session.Session
	profile *chatModels.Profile
}

func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("SERVER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	cli := &CLI{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: generation streams are long-lived.
		client:  &http.Client{},
		scanner: bufio.NewScanner(os.Stdin),
	}

	fmt.Printf("\n%s╔══════════════════════════════════════╗%s\n", colorCyan, colorReset)
	fmt.Printf("%s║           parley chat CLI            ║%s\n", colorCyan, colorReset)
	fmt.Printf("%s╚══════════════════════════════════════╝%s\n", colorCyan, colorReset)
	fmt.Printf("%sServer: %s%s\n", colorBlue, cli.baseURL, colorReset)

	if err := cli.loadProfile(); err != nil {
		fmt.Printf("%s❌ %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	cli.newConversation()
	cli.run()
}

// loadProfile fetches the profile list and picks the default. With zero
// profiles configured the server is in its onboarding state and a starter
// profile is created against the offline lorem provider.
func (cli *CLI) loadProfile() error {
	var profiles []chatModels.Profile
	if err := cli.getJSON("/api/profiles", &profiles); err != nil {
		return fmt.Errorf("fetch profiles (is the server running?): %w", err)
	}

	if len(profiles) == 0 {
		fmt.Printf("%s⚠ No profiles configured, creating a starter profile%s\n", colorYellow, colorReset)
		var created chatModels.Profile
		err := cli.postJSON("/api/profiles", &chatSvc.UpsertProfileRequest{
			ModelID:   "lorem-fast",
			Name:      "Starter",
			IsDefault: true,
		}, &created)
		if err != nil {
			return fmt.Errorf("create starter profile: %w", err)
		}
		cli.profile = &created
		return nil
	}

	for i := range profiles {
		if profiles[i].IsDefault {
			cli.profile = &profiles[i]
			return nil
		}
	}
	cli.profile = &profiles[0]
	return nil
}

func (cli *CLI) newConversation() {
	id := uuid.Must(uuid.NewV7()).String()
	cli.session = session.New(id, nil)
	fmt.Printf("%s✓ New conversation %s (model %s)%s\n", colorGreen, id[:8], cli.profile.ModelID, colorReset)
}

func (cli *CLI) run() {
	fmt.Printf("%sType a message, or /new, /retry, /quit%s\n\n", colorGray, colorReset)

	for {
		fmt.Print("> ")
		if !cli.scanner.Scan() {
			return
		}
		line := strings.TrimSpace(cli.scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			fmt.Printf("%s✓ Goodbye!%s\n", colorGreen, colorReset)
			return

		case line == "/new":
			cli.newConversation()

		case line == "/retry":
			cli.retry()

		case strings.HasPrefix(line, "/"):
			fmt.Printf("%s⚠ Unknown command %s%s\n", colorYellow, line, colorReset)

		default:
			cli.send(line)
		}
	}
}

// send submits one user message and streams the reply.
func (cli *CLI) send(content string) {
	msg := chatModels.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: cli.session.ConversationID(),
		ProfileID:      cli.profile.ID,
		Role:           chatModels.RoleUser,
		Content:        content,
		Model:          cli.profile.ModelID,
		CreatedAt:      time.Now(),
	}
	if err := cli.session.Submit(msg); err != nil {
		fmt.Printf("%s⚠ %v%s\n", colorYellow, err, colorReset)
		return
	}

	cli.stream(&chatSvc.IncomingMessage{
		ID:             msg.ID,
		Content:        msg.Content,
		Role:           msg.Role,
		ModelID:        cli.profile.ModelID,
		ProfileID:      cli.profile.ID,
		ConversationID: msg.ConversationID,
		Instruction:    cli.profile.SystemMessage,
		Temperature:    &cli.profile.Temperature,
	})
}

// retry resubmits the failed message, by id, through the session reducer.
func (cli *CLI) retry() {
	failedID := cli.session.FailedMessageID()
	if failedID == "" {
		fmt.Printf("%s⚠ Nothing to retry%s\n", colorYellow, colorReset)
		return
	}

	var content string
	for _, m := range cli.session.Messages() {
		if m.ID == failedID {
			content = m.Content
		}
	}

	id, err := cli.session.Retry()
	if err != nil {
		fmt.Printf("%s⚠ %v%s\n", colorYellow, err, colorReset)
		return
	}

	cli.stream(&chatSvc.IncomingMessage{
		ID:             id,
		Content:        content,
		Role:           chatModels.RoleUser,
		ModelID:        cli.profile.ModelID,
		ProfileID:      cli.profile.ID,
		ConversationID: cli.session.ConversationID(),
		Instruction:    cli.profile.SystemMessage,
		Temperature:    &cli.profile.Temperature,
	})
}

// stream posts the message to the chat endpoint and relays SSE frames into
// the session until a terminal frame arrives.
func (cli *CLI) stream(msg *chatSvc.IncomingMessage) {
	payload, err := json.Marshal(chatSvc.GenerateRequest{Message: msg})
	if err != nil {
		cli.fail(msg.ID, err)
		return
	}

	resp, err := cli.client.Post(cli.baseURL+"/api/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		cli.fail(msg.ID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		cli.fail(msg.ID, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		return
	}

	fmt.Printf("%s⏳ thinking...%s", colorGray, colorReset)

	var (
		eventType string
		inText    bool
	)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if terminal := cli.handleFrame(eventType, data, &inText); terminal {
				return
			}
		}
	}

	// Stream ended without done or failed: connection dropped.
	fmt.Println()
	cli.fail(msg.ID, fmt.Errorf("stream dropped"))
}

// handleFrame applies one SSE frame to the session. Returns true on a
// terminal frame.
func (cli *CLI) handleFrame(eventType, data string, inText *bool) bool {
	switch eventType {
	case chatModels.SSEEventStatus:
		var status chatModels.StatusEvent
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			return false
		}

		switch status.Status {
		case chatModels.StatusThinking:
			_ = cli.session.StreamOpened()

		case chatModels.StatusReasoning:
			fmt.Printf("\r%s⚙ reasoning...%s\n", colorGray, colorReset)

		case chatModels.StatusDone:
			var done chatModels.DoneEvent
			_ = json.Unmarshal([]byte(data), &done)
			assistant := chatModels.Message{
				ID:      done.MessageID,
				Role:    chatModels.RoleAssistant,
				Content: cli.session.PendingText(),
				Model:   done.Model,
			}
			fmt.Printf("\n%s✓ done (%d tokens, %dms)%s\n", colorGreen, done.TotalTokens, done.DurationMs, colorReset)
			_ = cli.session.Complete(assistant)
			return true

		case chatModels.StatusFailed:
			var failed chatModels.FailedEvent
			_ = json.Unmarshal([]byte(data), &failed)
			fmt.Printf("\n%s❌ generation failed: %s%s\n", colorRed, failed.Error, colorReset)
			fmt.Printf("%s  use /retry to resend%s\n", colorGray, colorReset)
			_ = cli.session.Fail(failed.MessageID)
			return true
		}

	case chatModels.SSEEventTextDelta:
		var delta chatModels.DeltaEvent
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			return false
		}
		if !*inText {
			fmt.Print("\r\033[K")
			*inText = true
		}
		fmt.Print(delta.Text)
		_ = cli.session.ApplyTextDelta(delta.Text)

	case chatModels.SSEEventReasoningDelta:
		var delta chatModels.DeltaEvent
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			return false
		}
		fmt.Printf("%s%s%s", colorGray, delta.Text, colorReset)
		_ = cli.session.ApplyReasoningDelta(delta.Text)
	}

	return false
}

// fail records a pre-stream or transport failure in the session.
func (cli *CLI) fail(messageID string, err error) {
	fmt.Printf("%s❌ %v%s\n", colorRed, err, colorReset)
	if ferr := cli.session.Fail(messageID); ferr == nil {
		fmt.Printf("%s  use /retry to resend%s\n", colorGray, colorReset)
	}
}

func (cli *CLI) getJSON(path string, dest interface{}) error {
	resp, err := cli.client.Get(cli.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (cli *CLI) postJSON(path string, body, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := cli.client.Post(cli.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
