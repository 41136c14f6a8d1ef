package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/integrity"
	"github.com/bft-labs/fimsync/internal/metrics"
	"github.com/bft-labs/fimsync/internal/ports"
	"github.com/bft-labs/fimsync/internal/protocol"
	"github.com/bft-labs/fimsync/pkg/log"
)

// Dispatcher handles one inbound collector message at a time.
type Dispatcher struct {
	engine  *integrity.Engine
	sender  ports.MessageSender
	encoder protocol.Encoder
	clock   clockwork.Clock
	logger  log.Logger
}

// NewDispatcher creates a dispatcher that answers through sender.
func NewDispatcher(
	engine *integrity.Engine,
	sender ports.MessageSender,
	encoder protocol.Encoder,
	clock clockwork.Clock,
	logger log.Logger,
) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Dispatcher{
		engine:  engine,
		sender:  sender,
		encoder: encoder,
		clock:   clock,
		logger:  logger,
	}
}

// Dispatch parses raw and runs the command it carries.
//
// A message is validated in full before the session is touched. A valid
// message refreshes s.LastMessageTime; an id below s.CurrentID lowers it
// and an id above it drops the message with domain.ErrStaleMessage.
// Returned errors are informational: the message has been consumed.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, raw string) error {
	cmd, err := protocol.ParseCommand(raw)
	if err != nil {
		metrics.CommandReceived("", metrics.OutcomeMalformed)
		return err
	}

	s.LastMessageTime = d.clock.Now()

	switch {
	case cmd.ID < s.CurrentID:
		d.logger.Info("collector lowered sync id",
			log.Int64("from", s.CurrentID),
			log.Int64("to", cmd.ID),
		)
		metrics.IDCorrected()
		s.CurrentID = cmd.ID
	case cmd.ID > s.CurrentID:
		metrics.CommandReceived(cmd.Name, metrics.OutcomeStale)
		return fmt.Errorf("%w: %d > %d", domain.ErrStaleMessage, cmd.ID, s.CurrentID)
	}

	switch cmd.Name {
	case protocol.CommandChecksumFail:
		err = d.checksumFail(ctx, cmd)
	case protocol.CommandNoData:
		err = d.noData(ctx, cmd)
	default:
		metrics.CommandReceived(cmd.Name, metrics.OutcomeUnknown)
		return fmt.Errorf("%w: %q", domain.ErrUnknownCommand, cmd.Name)
	}
	metrics.CommandReceived(cmd.Name, metrics.OutcomeHandled)
	return err
}

func (d *Dispatcher) checksumFail(ctx context.Context, cmd protocol.Command) error {
	split := d.engine.Split(cmd.Begin, cmd.End)

	switch split.Count {
	case 0:
		d.logger.Debug("checksum_fail on empty range",
			log.String("begin", cmd.Begin),
			log.String("end", cmd.End),
		)
		return nil
	case 1:
		return d.sendState(ctx, *split.Entry)
	}

	l, r := split.Left, split.Right
	left, err := d.encoder.Left(cmd.ID, l.Begin, l.End, l.Tail, l.Checksum)
	if err != nil {
		return err
	}
	right, err := d.encoder.Right(cmd.ID, r.Begin, r.End, r.Checksum)
	if err != nil {
		return err
	}
	if err := d.send(ctx, protocol.TypeLeft, left); err != nil {
		return err
	}
	return d.send(ctx, protocol.TypeRight, right)
}

func (d *Dispatcher) noData(ctx context.Context, cmd protocol.Command) error {
	entries := d.engine.List(cmd.Begin, cmd.End)
	d.logger.Debug("resending range",
		log.String("begin", cmd.Begin),
		log.String("end", cmd.End),
		log.Int("entries", len(entries)),
	)
	for _, e := range entries {
		if err := d.sendState(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) sendState(ctx context.Context, e domain.Entry) error {
	msg, err := d.encoder.State(e)
	if err != nil {
		return err
	}
	return d.send(ctx, protocol.TypeState, msg)
}

func (d *Dispatcher) send(ctx context.Context, t protocol.MessageType, msg string) error {
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	metrics.MessageSent(string(t))
	return nil
}

// isMalformed reports whether err came from an unparseable message.
func isMalformed(err error) bool {
	return errors.Is(err, domain.ErrNoArgument) || errors.Is(err, domain.ErrInvalidArgument)
}
