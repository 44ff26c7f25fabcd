package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lox/pokertable/internal/fileutil"
	"github.com/lox/pokertable/internal/phh"
	"github.com/lox/pokertable/internal/server"
	"github.com/lox/pokertable/internal/store"
)

// HistoryCmd lists recorded hands and optionally exports them as PHH files
type HistoryCmd struct {
	Config string `short:"c" default:"pokertable.hcl" help:"Path to HCL configuration file"`
	Table  string `arg:"" help:"Table ID"`
	Limit  int    `short:"n" default:"20" help:"Number of recent hands (0 for all)"`
	Export string `short:"o" help:"Write each hand to DIR/<hand>.phh" placeholder:"DIR"`
}

func (c *HistoryCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Store.Driver == "memory" {
		return errors.New("the memory store keeps no history between runs")
	}

	ctx := context.Background()
	hands, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = hands.Close() }()

	return c.run(ctx, os.Stdout, hands)
}

func (c *HistoryCmd) run(ctx context.Context, w io.Writer, hands store.Store) error {
	recorded, err := hands.ListHands(ctx, c.Table, c.Limit)
	if err != nil {
		return err
	}
	for _, h := range recorded {
		fmt.Fprintln(w, summarize(h))
		if c.Export == "" {
			continue
		}
		if err := exportHand(c.Export, h); err != nil {
			return err
		}
	}
	if len(recorded) == 0 {
		fmt.Fprintf(w, "No hands recorded for table %s\n", c.Table)
	}
	return nil
}

func summarize(h store.Hand) string {
	winners := make([]string, 0, len(h.Winners))
	for _, win := range h.Winners {
		winners = append(winners, fmt.Sprintf("%s +%d", win.PlayerID, win.Amount))
	}
	board := make([]string, 0, len(h.Board))
	for _, c := range h.Board {
		board = append(board, c.String())
	}
	return fmt.Sprintf("%s #%d %s pot=%d board=[%s] winners=[%s]",
		h.ID, h.Number, h.EndedAt.Format("2006-01-02 15:04:05"), h.Pot,
		strings.Join(board, " "), strings.Join(winners, ", "))
}

func exportHand(dir string, h store.Hand) error {
	history, err := phh.FromHand(h)
	if err != nil {
		return err
	}
	data, err := phh.EncodeToBytes(history)
	if err != nil {
		return fmt.Errorf("encode %s: %w", h.ID, err)
	}
	path, err := fileutil.ExportPath(dir, h.ID+".phh")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
