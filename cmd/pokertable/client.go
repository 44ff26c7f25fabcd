package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lox/pokertable/internal/client"
	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/internal/server"
	"github.com/lox/pokertable/poker"
)

// ClientCmd is a line-oriented player client
type ClientCmd struct {
	Config   string `short:"c" default:"pokertable-client.hcl" help:"Path to HCL configuration file"`
	Server   string `short:"s" help:"Server URL to connect to (overrides config)"`
	Player   string `short:"p" help:"Player name (overrides config)"`
	Address  string `help:"Custodial wallet address (overrides config)"`
	Table    string `short:"t" help:"Table to join on connect (overrides config)"`
	BuyIn    int    `short:"b" help:"Buy-in (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
}

func (c *ClientCmd) Run() error {
	cfg, err := client.LoadClientConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply command line overrides
	if c.Server != "" {
		cfg.Server.URL = c.Server
	}
	if c.Player != "" {
		cfg.Player.Name = c.Player
	}
	if c.Address != "" {
		cfg.Player.Address = c.Address
	}
	if c.Table != "" {
		cfg.Player.Table = c.Table
	}
	if c.BuyIn > 0 {
		cfg.Player.DefaultBuyIn = c.BuyIn
	}
	if c.LogLevel != "" {
		cfg.Player.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Player.LogLevel)
	ws := client.NewClient(cfg.Server.URL, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ConnectTimeout)*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = ws.Disconnect() }()

	view := &tableView{out: os.Stdout, me: cfg.Player.Name}
	view.register(ws)

	if err := ws.Auth(cfg.Player.Name, cfg.Player.Address); err != nil {
		return err
	}
	if cfg.Player.Table != "" {
		if err := ws.JoinTable(cfg.Player.Table, cfg.Player.DefaultBuyIn); err != nil {
			return err
		}
	}

	fmt.Fprintln(os.Stdout, "Commands: list, join <table> [buy-in], leave, sitout, sitin, state,")
	fmt.Fprintln(os.Stdout, "          fold, check, call, bet <to>, raise <to>, allin, quit")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ws.Done():
			return fmt.Errorf("connection to server lost")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := runCommand(ws, line, cfg.Player.DefaultBuyIn)
			if err != nil {
				fmt.Fprintln(os.Stdout, "error:", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// runCommand executes one input line.
func runCommand(ws *client.Client, line string, defaultBuyIn int) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	amount := func() (int, error) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("%s needs an amount", fields[0])
		}
		return strconv.Atoi(fields[1])
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "quit", "exit":
		return true, nil
	case "list":
		return false, ws.ListTables()
	case "join":
		if len(fields) < 2 {
			return false, fmt.Errorf("join needs a table")
		}
		buyIn := defaultBuyIn
		if len(fields) > 2 {
			if buyIn, err = strconv.Atoi(fields[2]); err != nil {
				return false, err
			}
		}
		return false, ws.JoinTable(fields[1], buyIn)
	case "leave":
		return false, ws.LeaveTable()
	case "sitout":
		return false, ws.SitOut()
	case "sitin":
		return false, ws.SitIn()
	case "state":
		return false, ws.RequestState()
	case "bet", "raise":
		n, err := amount()
		if err != nil {
			return false, err
		}
		return false, ws.SendDecision(cmd, n)
	default:
		if _, err := game.ParseAction(cmd); err != nil {
			return false, fmt.Errorf("unknown command %q", cmd)
		}
		return false, ws.SendDecision(cmd, 0)
	}
}

// tableView prints server events as plain text.
type tableView struct {
	out io.Writer
	me  string
}

func (v *tableView) register(ws *client.Client) {
	on := func(t server.MessageType, fn func(json.RawMessage)) {
		ws.AddEventHandler(t, func(msg *server.Message) { fn(msg.Data) })
	}

	on(server.MessageTypeAuthResponse, func(raw json.RawMessage) {
		var d server.AuthResponseData
		if decode(raw, &d) && d.Success {
			fmt.Fprintf(v.out, "Logged in as %s\n", d.PlayerID)
		}
	})
	on(server.MessageTypeError, func(raw json.RawMessage) {
		var d server.ErrorData
		if decode(raw, &d) {
			fmt.Fprintf(v.out, "! %s: %s\n", d.Code, d.Message)
		}
	})
	on(server.MessageTypeTableList, func(raw json.RawMessage) {
		var d server.TableListData
		if !decode(raw, &d) {
			return
		}
		for _, t := range d.Tables {
			fmt.Fprintf(v.out, "  %-12s %d/%d  players %d/%d  buy-in %d-%d\n",
				t.ID, t.SmallBlind, t.BigBlind, t.PlayerCount, t.MaxPlayers, t.BuyInMin, t.BuyInMax)
		}
	})
	on(server.MessageTypeTableJoined, func(raw json.RawMessage) {
		var d server.TableJoinedData
		if decode(raw, &d) {
			fmt.Fprintf(v.out, "Joined %s in seat %d\n", d.TableID, d.SeatNumber)
		}
	})
	on(server.MessageTypeTableLeft, func(raw json.RawMessage) {
		var d server.TableRequestData
		if decode(raw, &d) {
			fmt.Fprintf(v.out, "Left %s\n", d.TableID)
		}
	})
	on(server.MessageTypeTableState, func(raw json.RawMessage) {
		var d server.TableStateData
		if decode(raw, &d) {
			v.printState(d.State)
			if len(d.HoleCards) > 0 {
				fmt.Fprintf(v.out, "Your cards: %s\n", strings.Join(d.HoleCards, " "))
			}
		}
	})
	on(server.MessageTypeHandStart, func(raw json.RawMessage) {
		var d server.HandStartData
		if !decode(raw, &d) {
			return
		}
		fmt.Fprintf(v.out, "\n=== Hand %d (%s) ===\n", d.State.HandNumber, d.State.HandID)
		v.printState(d.State)
		if len(d.HoleCards) > 0 {
			fmt.Fprintf(v.out, "Your cards: %s\n", poker.FormatCards(d.HoleCards))
		}
	})
	on(server.MessageTypePlayerAction, func(raw json.RawMessage) {
		var d server.ActionEvent
		if !decode(raw, &d) {
			return
		}
		suffix := ""
		if d.Timeout {
			suffix = " (timed out)"
		}
		switch d.Action {
		case game.Fold, game.Check:
			fmt.Fprintf(v.out, "%s %s%s\n", d.PlayerID, d.Action, suffix)
		default:
			fmt.Fprintf(v.out, "%s %s %d (pot %d)%s\n", d.PlayerID, d.Action, d.BetTo, d.Pot, suffix)
		}
	})
	on(server.MessageTypeStreetChange, func(raw json.RawMessage) {
		var d server.StreetChangeData
		if decode(raw, &d) {
			fmt.Fprintf(v.out, "--- %s: %s\n", d.Stage, poker.FormatCards(d.Board))
		}
	})
	on(server.MessageTypeTurnChanged, func(raw json.RawMessage) {
		var d server.TurnNotice
		if decode(raw, &d) && d.PlayerID != v.me {
			fmt.Fprintf(v.out, "Waiting on %s\n", d.PlayerID)
		}
	})
	on(server.MessageTypeActionRequired, func(raw json.RawMessage) {
		var d server.ActionRequiredData
		if !decode(raw, &d) {
			return
		}
		names := make([]string, 0, len(d.Options.Actions))
		for _, a := range d.Options.Actions {
			names = append(names, a.String())
		}
		fmt.Fprintf(v.out, "Your turn (%ds): %s", d.TimeRemainingSeconds, strings.Join(names, ", "))
		if d.Options.CallAmount > 0 {
			fmt.Fprintf(v.out, "  call %d", d.Options.CallAmount)
		}
		if d.Options.Allows(game.Raise) {
			fmt.Fprintf(v.out, "  raise %d-%d", d.Options.MinRaise, d.Options.MaxRaise)
		} else if d.Options.Allows(game.Bet) {
			fmt.Fprintf(v.out, "  bet %d-%d", d.Options.MinBet, d.Options.MaxRaise)
		}
		fmt.Fprintln(v.out)
	})
	on(server.MessageTypeHandEnd, func(raw json.RawMessage) {
		var d game.HandResult
		if !decode(raw, &d) {
			return
		}
		for _, r := range d.Reveals {
			fmt.Fprintf(v.out, "%s shows %s: %s\n", r.PlayerID, poker.FormatCards(r.HoleCards), r.Hand)
		}
		for _, w := range d.Winners {
			fmt.Fprintf(v.out, "%s wins %d\n", w.PlayerID, w.Amount)
		}
	})
}

func (v *tableView) printState(s game.Snapshot) {
	if len(s.Community) > 0 {
		fmt.Fprintf(v.out, "Board: %s  Pot: %d\n", poker.FormatCards(s.Community), s.Pot)
	}
	for _, seat := range s.Seats {
		marker := " "
		if seat.Seat == s.DealerSeat {
			marker = "D"
		}
		fmt.Fprintf(v.out, " %s %d %-12s %6d  %s\n", marker, seat.Seat, seat.PlayerID, seat.Stack, seat.Status)
	}
}

func decode(raw json.RawMessage, v any) bool {
	return json.Unmarshal(raw, v) == nil
}
