package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/Alia5/PadBridge/command"
)

// Send is a minimal controller: it connects over WebSocket, identifies and
// sends actions given as arguments or read line by line from stdin.
type Send struct {
	URL     string        `help:"Server WebSocket URL" default:"ws://127.0.0.1:8080/" env:"PADBRIDGE_SEND_URL"`
	ID      string        `help:"controllerId to identify with" default:"cli" env:"PADBRIDGE_SEND_ID"`
	Name    string        `help:"controllerName to identify with" default:"padbridge-cli" env:"PADBRIDGE_SEND_NAME"`
	Delay   time.Duration `help:"Pause between actions given as arguments" default:"100ms"`
	Actions []string      `arg:"" optional:"" help:"Actions (e.g. short_pass_pressed) or raw JSON messages; stdin when omitted"`
}

func (s *Send) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	prompt := len(s.Actions) == 0 && term.IsTerminal(int(os.Stdin.Fd()))
	return s.run(ctx, os.Stdin, prompt, logger)
}

func (s *Send) run(ctx context.Context, in io.Reader, prompt bool, logger *slog.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.URL, err)
	}
	defer conn.Close()

	if err := s.write(conn, command.Message{Action: command.ActionConnect, ControllerID: s.ID, ControllerName: s.Name}); err != nil {
		return err
	}
	logger.Info("connected", "url", s.URL, "controllerId", s.ID)

	if len(s.Actions) > 0 {
		for i, a := range s.Actions {
			if i > 0 && s.Delay > 0 {
				select {
				case <-ctx.Done():
					return s.close(conn)
				case <-time.After(s.Delay):
				}
			}
			if err := s.send(conn, a); err != nil {
				return err
			}
		}
		return s.close(conn)
	}

	sc := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(os.Stderr, "> ")
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := s.send(conn, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return s.close(conn)
}

// send writes a raw JSON message as is and wraps anything else as an action.
func (s *Send) send(conn *websocket.Conn, action string) error {
	if strings.HasPrefix(action, "{") {
		return conn.WriteMessage(websocket.TextMessage, []byte(action))
	}
	return s.write(conn, command.Message{Action: action, Timestamp: time.Now().UnixMilli()})
}

func (s *Send) write(conn *websocket.Conn, m command.Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Send) close(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		return err
	}
	// wait for the server's close frame so queued messages are not cut off
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
