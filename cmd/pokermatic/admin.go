package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/pokermatic/internal/server"
)

const adminReplyTimeout = 10 * time.Second

// AdminFlags reach a running server's admin endpoint
type AdminFlags struct {
	URL   string `default:"ws://localhost:8080/admin" help:"Admin websocket URL"`
	Token string `env:"POKERMATIC_ADMIN_TOKEN" required:"" help:"Admin bearer token"`
}

// CreateTournamentCmd schedules a tournament
type CreateTournamentCmd struct {
	AdminFlags

	Name          string        `arg:"" optional:"" help:"Tournament name"`
	StartIn       time.Duration `default:"10m" help:"How long until the tournament starts"`
	StartingBlind int           `default:"25" help:"Small blind at level zero"`
	BlindTimer    time.Duration `default:"5m" help:"Length of each blind level"`
	StartingChips int           `default:"5000" help:"Chips handed to every player"`
}

func (c *CreateTournamentCmd) Run() error {
	var created server.TournamentCreated
	err := c.send(server.Command{
		Command:           server.CommandCreateTournament,
		Name:              c.Name,
		StartTime:         time.Now().Add(c.StartIn).Unix(),
		StartingBlind:     c.StartingBlind,
		BlindTimerSeconds: int(c.BlindTimer / time.Second),
		StartingChips:     c.StartingChips,
	}, &created)
	if err != nil {
		return err
	}
	fmt.Printf("Created tournament %d %q starting %s\n",
		created.ID, created.Name, time.Unix(created.StartingTime, 0).Format(time.Kitchen))
	return nil
}

// CreateTableCmd opens a cash table
type CreateTableCmd struct {
	AdminFlags

	Name       string `arg:"" help:"Table name"`
	Blinds     int    `default:"1" help:"Small blind"`
	MinPlayers int    `default:"2" help:"Players needed before the first hand"`
}

func (c *CreateTableCmd) Run() error {
	var created server.TableCreated
	err := c.send(server.Command{
		Command:    server.CommandCreateTable,
		Name:       c.Name,
		Blinds:     c.Blinds,
		MinPlayers: c.MinPlayers,
	}, &created)
	if err != nil {
		return err
	}
	fmt.Printf("Created table %d %q (blinds %d/%d)\n", created.ID, created.Name, created.Blinds, created.Blinds*2)
	return nil
}

// send issues one admin command and decodes the matching reply into out
func (f AdminFlags) send(cmd server.Command, out any) error {
	header := http.Header{"Authorization": []string{"Bearer " + f.Token}}
	conn, resp, err := websocket.DefaultDialer.Dial(f.URL, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("admin token rejected by %s", f.URL)
		}
		return fmt.Errorf("connect %s: %w", f.URL, err)
	}
	defer func() { _ = conn.Close() }()

	cmd.CommandID = fmt.Sprintf("cli-%d", time.Now().UnixNano())
	if err := conn.WriteJSON(cmd); err != nil {
		return err
	}

	_ = conn.SetReadDeadline(time.Now().Add(adminReplyTimeout))
	for {
		var reply struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("waiting for reply: %w", err)
		}
		if reply.Type == "error" {
			var notice struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(reply.Data, &notice)
			return fmt.Errorf("server: %s", notice.Message)
		}
		if strings.HasSuffix(reply.Type, "_created") {
			return json.Unmarshal(reply.Data, out)
		}
	}
}
