/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuerclaim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-claim-issuer/pkg/agency"
	"github.com/hyperledger/aries-claim-issuer/pkg/controller/command"
	cmd "github.com/hyperledger/aries-claim-issuer/pkg/controller/command/issuerclaim"
	"github.com/hyperledger/aries-claim-issuer/pkg/doc/claimsigner"
	"github.com/hyperledger/aries-claim-issuer/pkg/issuerclaim"
	claimstore "github.com/hyperledger/aries-claim-issuer/pkg/store/issuerclaim"
	"github.com/hyperledger/aries-claim-issuer/pkg/store/connection"
)

const (
	issuerDID = "8XFh8yBzrpJQmNyZzgoTqB"
	proverDID = "V4SGRU86Z58d6TV7PBUe6f"
	pwDID     = "6vkhW3L28AophhA68SSzRS"
	attrs     = `{"name":"Alice","age":32}`
)

type provider struct {
	messenger issuerclaim.Messenger
	conns     issuerclaim.ConnectionLookup
	signer    issuerclaim.Signer
	url       string
}

func (p *provider) Messenger() issuerclaim.Messenger { return p.messenger }

func (p *provider) Connections() issuerclaim.ConnectionLookup { return p.conns }

func (p *provider) Signer() issuerclaim.Signer { return p.signer }

func (p *provider) AgencyURL() string { return p.url }

// mockAgency acknowledges every message and answers polls with a claim request for the last offer.
func mockAgency(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		envelope := struct {
			Type agency.MsgType `json:"@type"`
			UID  string         `json:"uid"`
		}{}
		require.NoError(t, json.Unmarshal(body, &envelope))

		var resp interface{}

		switch envelope.Type.Name {
		case agency.SendMsgType:
			resp = &agency.SendResponse{UID: "uid-" + time.Now().Format("150405.000000"), StatusCode: "MS-101"}
		case agency.GetMsgsType:
			resp = &agency.MessagesResponse{Msgs: []agency.Message{{
				UID:      "req",
				Typ:      issuerclaim.RequestMsgType,
				RefMsgID: envelope.UID,
				Payload: map[string]interface{}{
					"blinded_ms":    map[string]interface{}{"prover_did": proverDID, "u": "1"},
					"issuer_did":    issuerDID,
					"schema_seq_no": 32,
				},
			}}}
		default:
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))

	t.Cleanup(srv.Close)

	return srv
}

type stack struct {
	client *Client
	svc    *issuerclaim.Service
	conns  *connection.Lookup
	cmd    *cmd.Command
}

func newStack(t *testing.T, agencyURL string, opts ...Opt) *stack {
	t.Helper()

	signer, err := claimsigner.New([]byte("000000000000000000000000Issuer01"))
	require.NoError(t, err)

	conns := connection.NewLookup()

	svc, err := issuerclaim.New(&provider{
		messenger: agency.NewMessenger(agency.NewClient()),
		conns:     conns,
		signer:    signer,
		url:       agencyURL,
	})
	require.NoError(t, err)

	c := cmd.New(svc, conns)
	t.Cleanup(c.Close)

	return &stack{client: New(c, opts...), svc: svc, conns: conns, cmd: c}
}

func TestClient_Lifecycle(t *testing.T) {
	srv := mockAgency(t)
	s := newStack(t, srv.URL)
	ctx := context.Background()

	conn, err := s.conns.Create("conn", pwDID, "")
	require.NoError(t, err)

	h, err := s.client.Create(ctx, "claim-1", 32, issuerDID, attrs)
	require.NoError(t, err)
	require.True(t, s.svc.IsValidHandle(h))

	require.NoError(t, s.client.SendOffer(ctx, h, conn))

	st, err := s.client.UpdateState(ctx, h)
	require.NoError(t, err)
	require.Equal(t, issuerclaim.StateRequestReceived, st)

	require.NoError(t, s.client.SendClaim(ctx, h, conn))

	serialized, err := s.client.Serialize(ctx, h)
	require.NoError(t, err)

	rec, err := issuerclaim.ParseRecord(serialized)
	require.NoError(t, err)
	require.Equal(t, issuerclaim.StateClaimSent, rec.State)
	require.Equal(t, proverDID, rec.IssuedDID)

	h2, err := s.client.Deserialize(ctx, serialized)
	require.NoError(t, err)
	require.NotEqual(t, h, h2)

	require.NoError(t, s.client.Release(h))
	require.NoError(t, s.client.Release(h2))
}

func TestClient_Errors(t *testing.T) {
	s := newStack(t, "http://localhost")
	ctx := context.Background()

	t.Run("rejected synchronously", func(t *testing.T) {
		_, err := s.client.Create(ctx, "c", 32, "", attrs)

		var cmdErr command.Error

		require.True(t, errors.As(err, &cmdErr))
		require.Equal(t, command.ValidationError, cmdErr.Type())
		require.Equal(t, cmd.InvalidOptionErrorCode, cmdErr.Code())
	})

	t.Run("failed in the callback", func(t *testing.T) {
		h, err := s.client.Create(ctx, "c", 32, issuerDID, attrs)
		require.NoError(t, err)

		err = s.client.SendClaim(ctx, h, 0)

		var cmdErr command.Error

		require.True(t, errors.As(err, &cmdErr))
		require.Equal(t, command.ValidationError, cmdErr.Type())
		require.Equal(t, cmd.InvalidConnectionHandleErrorCode, cmdErr.Code())

		conn, err := s.conns.Create("conn", pwDID, "")
		require.NoError(t, err)

		err = s.client.SendClaim(ctx, h, conn)
		require.True(t, errors.As(err, &cmdErr))
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Equal(t, cmd.PreconditionFailedErrorCode, cmdErr.Code())
		require.Contains(t, err.Error(), "SendClaim")
	})

	t.Run("unknown handle", func(t *testing.T) {
		_, err := s.client.Serialize(ctx, 0)
		require.Error(t, err)

		var cmdErr command.Error

		require.ErrorAs(t, s.client.Release(0), &cmdErr)
		require.Equal(t, cmd.InvalidClaimHandleErrorCode, cmdErr.Code())
	})

	t.Run("restore without store", func(t *testing.T) {
		_, err := s.client.Restore(ctx)
		require.EqualError(t, err, "restore: client has no store")
	})
}

// blockingCommand accepts operations but never calls back.
type blockingCommand struct {
	Command
}

func (blockingCommand) UpdateState(uint32, uint32, cmd.StateCallback) command.Code {
	return command.Success
}

func TestClient_ContextCancelled(t *testing.T) {
	c := New(blockingCommand{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.UpdateState(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, c.futures.Len())

	// a late callback is dropped
	c.onState(12345, command.Success, 2)
}

func TestClient_Persistence(t *testing.T) {
	srv := mockAgency(t)
	ctx := context.Background()
	provider := mem.NewProvider()

	store, err := claimstore.New(provider)
	require.NoError(t, err)

	s := newStack(t, srv.URL, WithStore(store))

	conn, err := s.conns.Create("conn", pwDID, "")
	require.NoError(t, err)

	h, err := s.client.Create(ctx, "persisted", 32, issuerDID, attrs)
	require.NoError(t, err)

	stored, err := store.Get("persisted")
	require.NoError(t, err)

	rec, err := issuerclaim.ParseRecord(stored)
	require.NoError(t, err)
	require.Equal(t, issuerclaim.StateInitialized, rec.State)

	require.NoError(t, s.client.SendOffer(ctx, h, conn))

	offered, err := store.ByState(issuerclaim.StateOfferSent)
	require.NoError(t, err)
	require.Len(t, offered, 1)
	require.Equal(t, "persisted", offered[0].Key)

	unnamed, err := s.client.Create(ctx, "", 32, issuerDID, attrs)
	require.NoError(t, err)

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 2)

	t.Run("restore into a fresh process", func(t *testing.T) {
		store2, err := claimstore.New(provider)
		require.NoError(t, err)

		s2 := newStack(t, srv.URL, WithStore(store2))

		handles, err := s2.client.Restore(ctx)
		require.NoError(t, err)
		require.Len(t, handles, 2)

		states := map[issuerclaim.State]int{}

		for _, rh := range handles {
			st, err := s2.svc.GetState(rh)
			require.NoError(t, err)

			states[st]++
		}

		require.Equal(t, map[issuerclaim.State]int{
			issuerclaim.StateInitialized: 1,
			issuerclaim.StateOfferSent:   1,
		}, states)
	})

	t.Run("release deletes the stored copy", func(t *testing.T) {
		require.NoError(t, s.client.Release(h))

		_, err := store.Get("persisted")
		require.ErrorIs(t, err, claimstore.ErrNotFound)

		require.NoError(t, s.client.Release(unnamed))

		all, err := store.All()
		require.NoError(t, err)
		require.Empty(t, all)
	})
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []StateMsg
	err  error
}

func (n *recordingNotifier) Notify(topic string, message []byte) error {
	if topic != StateTopic {
		return errors.New("unexpected topic " + topic)
	}

	var msg StateMsg
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}

	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()

	return n.err
}

func TestClient_Notifications(t *testing.T) {
	srv := mockAgency(t)
	ctx := context.Background()
	notifier := &recordingNotifier{}

	s := newStack(t, srv.URL, WithNotifier(notifier))

	conn, err := s.conns.Create("conn", pwDID, "")
	require.NoError(t, err)

	h, err := s.client.Create(ctx, "notified", 32, issuerDID, attrs)
	require.NoError(t, err)

	require.NoError(t, s.client.SendOffer(ctx, h, conn))

	_, err = s.client.UpdateState(ctx, h)
	require.NoError(t, err)

	// a publishing failure does not fail the step
	notifier.err = errors.New("subscriber gone")

	require.NoError(t, s.client.SendClaim(ctx, h, conn))

	_, err = s.client.Serialize(ctx, h)
	require.NoError(t, err)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	require.Len(t, notifier.msgs, 4)

	names := make([]string, 0, len(notifier.msgs))

	for _, msg := range notifier.msgs {
		require.Equal(t, h, msg.Handle)
		require.Equal(t, "notified", msg.SourceID)

		names = append(names, msg.Name)
	}

	require.Equal(t, []string{
		issuerclaim.StateInitialized.Name(),
		issuerclaim.StateOfferSent.Name(),
		issuerclaim.StateRequestReceived.Name(),
		issuerclaim.StateClaimSent.Name(),
	}, names)
	require.Equal(t, uint32(issuerclaim.StateClaimSent), notifier.msgs[3].State)
}
