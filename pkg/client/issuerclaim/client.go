/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuerclaim is a blocking client over the asynchronous issuer claim command.
//
// Every call allocates a command handle, starts the command and waits for the callback that carries the
// same command handle. Optionally every claim is persisted, and its new state published, after each
// lifecycle step.
package issuerclaim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-claim-issuer/pkg/controller/command"
	cmd "github.com/hyperledger/aries-claim-issuer/pkg/controller/command/issuerclaim"
	"github.com/hyperledger/aries-claim-issuer/pkg/handle"
	"github.com/hyperledger/aries-claim-issuer/pkg/issuerclaim"
	claimstore "github.com/hyperledger/aries-claim-issuer/pkg/store/issuerclaim"
)

var logger = log.New("aries-framework/client/issuerclaim")

// StateTopic is the topic claim state changes are published under.
const StateTopic = "issuerclaim_states"

// Command is the asynchronous issuer claim API.
type Command interface {
	Create(cmdHandle uint32, sourceID string, schemaSeqNo int32, issuerDID, claimData string,
		cb cmd.HandleCallback) command.Code
	SendOffer(cmdHandle, h, conn uint32, cb cmd.StatusCallback) command.Code
	UpdateState(cmdHandle, h uint32, cb cmd.StateCallback) command.Code
	SendClaim(cmdHandle, h, conn uint32, cb cmd.StatusCallback) command.Code
	Serialize(cmdHandle, h uint32, cb cmd.StringCallback) command.Code
	Deserialize(cmdHandle uint32, data string, cb cmd.HandleCallback) command.Code
	Release(h uint32) command.Code
}

// Notifier publishes a message under a topic.
type Notifier interface {
	Notify(topic string, message []byte) error
}

// StateMsg is published under StateTopic after each lifecycle step.
type StateMsg struct {
	Handle   uint32 `json:"handle"`
	SourceID string `json:"source_id"`
	State    uint32 `json:"state"`
	Name     string `json:"name"`
}

type result struct {
	code   command.Code
	handle uint32
	state  uint32
	str    string
}

// Opt configures a Client.
type Opt func(c *Client)

// WithStore persists every claim in s after each successful lifecycle step.
func WithStore(s *claimstore.Store) Opt {
	return func(c *Client) {
		c.store = s
	}
}

// WithNotifier publishes the state of every claim to n after each successful lifecycle step.
func WithNotifier(n Notifier) Opt {
	return func(c *Client) {
		c.notifier = n
	}
}

// Client gives blocking access to issuer claims.
type Client struct {
	command  Command
	futures  *handle.Registry[chan result]
	store    *claimstore.Store
	notifier Notifier
	// claim handle -> store key
	keys sync.Map
}

// New returns a client over c.
func New(c Command, opts ...Opt) *Client {
	client := &Client{
		command: c,
		futures: handle.New[chan result](),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Create registers a new claim and returns its handle.
func (c *Client) Create(ctx context.Context, sourceID string, schemaSeqNo int32,
	issuerDID, claimData string) (uint32, error) {
	r, err := c.call(ctx, cmd.Create, func(cmdHandle uint32) command.Code {
		return c.command.Create(cmdHandle, sourceID, schemaSeqNo, issuerDID, claimData, c.onHandle)
	})
	if err != nil {
		return 0, err
	}

	c.record(ctx, r.handle, sourceID)

	return r.handle, nil
}

// SendOffer sends the offer of claim h on connection conn.
func (c *Client) SendOffer(ctx context.Context, h, conn uint32) error {
	_, err := c.call(ctx, cmd.SendOffer, func(cmdHandle uint32) command.Code {
		return c.command.SendOffer(cmdHandle, h, conn, c.onStatus)
	})
	if err != nil {
		return err
	}

	c.record(ctx, h, "")

	return nil
}

// UpdateState polls for the holder's request and returns the state of claim h.
func (c *Client) UpdateState(ctx context.Context, h uint32) (issuerclaim.State, error) {
	r, err := c.call(ctx, cmd.UpdateState, func(cmdHandle uint32) command.Code {
		return c.command.UpdateState(cmdHandle, h, c.onState)
	})
	if err != nil {
		return 0, err
	}

	c.record(ctx, h, "")

	return issuerclaim.State(r.state), nil
}

// SendClaim delivers the signed claim h on connection conn.
func (c *Client) SendClaim(ctx context.Context, h, conn uint32) error {
	_, err := c.call(ctx, cmd.SendClaim, func(cmdHandle uint32) command.Code {
		return c.command.SendClaim(cmdHandle, h, conn, c.onStatus)
	})
	if err != nil {
		return err
	}

	c.record(ctx, h, "")

	return nil
}

// Serialize returns the serialized claim h.
func (c *Client) Serialize(ctx context.Context, h uint32) (string, error) {
	r, err := c.call(ctx, cmd.Serialize, func(cmdHandle uint32) command.Code {
		return c.command.Serialize(cmdHandle, h, c.onString)
	})
	if err != nil {
		return "", err
	}

	return r.str, nil
}

// Deserialize registers a serialized claim and returns its new handle.
func (c *Client) Deserialize(ctx context.Context, data string) (uint32, error) {
	h, err := c.deserialize(ctx, data)
	if err != nil {
		return 0, err
	}

	sourceID := ""
	if rec, e := issuerclaim.ParseRecord(data); e == nil {
		sourceID = rec.SourceID
	}

	c.record(ctx, h, sourceID)

	return h, nil
}

func (c *Client) deserialize(ctx context.Context, data string) (uint32, error) {
	r, err := c.call(ctx, cmd.Deserialize, func(cmdHandle uint32) command.Code {
		return c.command.Deserialize(cmdHandle, data, c.onHandle)
	})
	if err != nil {
		return 0, err
	}

	return r.handle, nil
}

// Release removes claim h and its persisted copy.
func (c *Client) Release(h uint32) error {
	if code := c.command.Release(h); code != command.Success {
		return command.NewValidationError(code, fmt.Errorf("%s: %s", cmd.Release, cmd.ErrorMessage(code)))
	}

	key, ok := c.keys.LoadAndDelete(h)
	if !ok || c.store == nil {
		return nil
	}

	if err := c.store.Delete(key.(string)); err != nil { //nolint:forcetypeassert
		logger.Errorf("claim %d released but its stored copy was kept: %s", h, err)
	}

	return nil
}

// Restore registers every persisted claim and returns the new handles.
// Claims that no longer deserialize are skipped.
func (c *Client) Restore(ctx context.Context) ([]uint32, error) {
	if c.store == nil {
		return nil, errors.New("restore: client has no store")
	}

	entries, err := c.store.All()
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	handles := make([]uint32, 0, len(entries))

	for _, e := range entries {
		h, err := c.deserialize(ctx, e.Serialized)
		if err != nil {
			logger.Warnf("restore: skip claim [%s]: %s", e.Key, err)

			continue
		}

		c.keys.Store(h, e.Key)
		handles = append(handles, h)
	}

	logger.Infof("restored %d of %d stored claims", len(handles), len(entries))

	return handles, nil
}

func (c *Client) call(ctx context.Context, action string, start func(cmdHandle uint32) command.Code) (result, error) {
	ch := make(chan result, 1)

	cmdHandle, err := c.futures.Add(ch)
	if err != nil {
		return result{}, command.NewExecuteError(cmd.UnknownErrorCode, fmt.Errorf("%s: %w", action, err))
	}

	defer func() {
		if e := c.futures.Release(cmdHandle); e != nil {
			logger.Debugf("release command %d: %s", cmdHandle, e)
		}
	}()

	if code := start(cmdHandle); code != command.Success {
		return result{}, command.NewValidationError(code, fmt.Errorf("%s: %s", action, cmd.ErrorMessage(code)))
	}

	select {
	case r := <-ch:
		if r.code != command.Success {
			return r, command.NewExecuteError(r.code, fmt.Errorf("%s: %s", action, cmd.ErrorMessage(r.code)))
		}

		return r, nil
	case <-ctx.Done():
		return result{}, fmt.Errorf("%s: %w", action, ctx.Err())
	}
}

func (c *Client) complete(cmdHandle uint32, r result) {
	ch, err := c.futures.Get(cmdHandle)
	if err != nil {
		logger.Warnf("dropping callback for command %d: %s", cmdHandle, err)

		return
	}

	ch <- r
}

func (c *Client) onHandle(cmdHandle uint32, code command.Code, h uint32) {
	c.complete(cmdHandle, result{code: code, handle: h})
}

func (c *Client) onStatus(cmdHandle uint32, code command.Code) {
	c.complete(cmdHandle, result{code: code})
}

func (c *Client) onState(cmdHandle uint32, code command.Code, st uint32) {
	c.complete(cmdHandle, result{code: code, state: st})
}

func (c *Client) onString(cmdHandle uint32, code command.Code, s string) {
	c.complete(cmdHandle, result{code: code, str: s})
}

// record persists and publishes claim h. Failures are logged, the lifecycle step already happened.
func (c *Client) record(ctx context.Context, h uint32, sourceID string) {
	if c.store == nil && c.notifier == nil {
		return
	}

	serialized, err := c.Serialize(ctx, h)
	if err != nil {
		logger.Errorf("record claim %d: %s", h, err)

		return
	}

	c.persist(h, sourceID, serialized)
	c.notify(h, serialized)
}

func (c *Client) persist(h uint32, sourceID, serialized string) {
	if c.store == nil {
		return
	}

	key, ok := c.keys.Load(h)
	if !ok {
		key, _ = c.keys.LoadOrStore(h, c.store.NewKey(sourceID))
	}

	if err := c.store.Put(key.(string), serialized); err != nil { //nolint:forcetypeassert
		logger.Errorf("persist claim %d: %s", h, err)
	}
}

func (c *Client) notify(h uint32, serialized string) {
	if c.notifier == nil {
		return
	}

	rec, err := issuerclaim.ParseRecord(serialized)
	if err != nil {
		logger.Errorf("notify claim %d: %s", h, err)

		return
	}

	msg, err := json.Marshal(&StateMsg{
		Handle:   h,
		SourceID: rec.SourceID,
		State:    uint32(rec.State),
		Name:     rec.State.Name(),
	})
	if err != nil {
		logger.Errorf("notify claim %d: %s", h, err)

		return
	}

	if err = c.notifier.Notify(StateTopic, msg); err != nil {
		logger.Warnf("notify claim %d: %s", h, err)
	}
}
