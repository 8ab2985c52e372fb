package ws

import (
	"time"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/tcriess/lightspeed-queue/filter"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/room"
	"github.com/tcriess/lightspeed-queue/types"
)

type filterProgram struct {
	source string
	prog   *vm.Program
}

// SetFilter compiles and installs an entry filter for this client. An empty
// source clears the filter.
func (c *Client) SetFilter(source string) error {
	if source == "" {
		c.filterLock.Lock()
		c.filterProg = nil
		c.filterLock.Unlock()
		return nil
	}
	prog, err := expr.Compile(source, expr.Env(filter.Env{}))
	if err != nil {
		return err
	}
	c.filterLock.Lock()
	c.filterProg = &filterProgram{source: source, prog: prog}
	c.filterLock.Unlock()
	return nil
}

// FilterEntries applies the client's filter to a snapshot. Without a filter
// the snapshot passes through unchanged. A filter that errors or yields a
// non-bool drops the entry.
func (c *Client) FilterEntries(r *room.Room, entries []types.QueueEntry) []types.QueueEntry {
	c.filterLock.RLock()
	fp := c.filterProg
	c.filterLock.RUnlock()
	if fp == nil {
		return entries
	}
	now := time.Now()
	passed := make([]types.QueueEntry, 0, len(entries))
	for _, entry := range entries {
		env := filter.Env{
			Room: filter.Room{
				Code: r.Code,
				Name: r.Name,
			},
			Entry: filter.Entry{
				DisplayName:   entry.Entrant.DisplayName,
				Topic:         entry.Entrant.Topic,
				Position:      entry.Position,
				NotifyConsent: entry.Entrant.NotifyConsent,
				WaitSeconds:   int64(now.Sub(entry.Entrant.JoinedAt) / time.Second),
			},
			QueueLength: len(entries),
		}
		res, err := expr.Run(fp.prog, env)
		if err != nil {
			globals.AppLogger.Debug("could not run watch filter", "error", err)
			continue
		}
		if bRes, ok := res.(bool); ok && bRes {
			passed = append(passed, entry)
		}
	}
	return passed
}
