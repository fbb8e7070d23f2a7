/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	claimclient "github.com/hyperledger/aries-claim-issuer/pkg/client/issuerclaim"
	claimcmd "github.com/hyperledger/aries-claim-issuer/pkg/controller/command/issuerclaim"
	"github.com/hyperledger/aries-claim-issuer/pkg/controller/rest"
	restclaim "github.com/hyperledger/aries-claim-issuer/pkg/controller/rest/issuerclaim"
	"github.com/hyperledger/aries-claim-issuer/pkg/controller/webnotifier"
	"github.com/hyperledger/aries-claim-issuer/pkg/issuerclaim"
	"github.com/hyperledger/aries-claim-issuer/pkg/store/connection"
	claimstore "github.com/hyperledger/aries-claim-issuer/pkg/store/issuerclaim"
)

type allOpts struct {
	webhookURLs []string
	notifier    webnotifier.Notifier
	store       *claimstore.Store
	cmdOpts     []claimcmd.Opt
}

// WSPath is where websocket clients subscribe to claim state notifications.
const WSPath = "/ws"

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithWebhookURLs is an option for setting up a webhook dispatcher which will notify clients of events
func WithWebhookURLs(webhookURLs ...string) Opt {
	return func(opts *allOpts) {
		opts.webhookURLs = webhookURLs
	}
}

// WithNotifier is an option for setting up a notifier which will notify clients of events
func WithNotifier(notifier webnotifier.Notifier) Opt {
	return func(opts *allOpts) {
		opts.notifier = notifier
	}
}

// WithStore is an option for persisting claims after each lifecycle step.
func WithStore(store *claimstore.Store) Opt {
	return func(opts *allOpts) {
		opts.store = store
	}
}

// WithCommandOpts passes options to the issuer claim command.
func WithCommandOpts(cmdOpts ...claimcmd.Opt) Opt {
	return func(opts *allOpts) {
		opts.cmdOpts = cmdOpts
	}
}

type handlerProvider interface {
	GetRESTHandlers() []rest.Handler
}

// Controller owns the issuer claim command and the handlers exposing it.
type Controller struct {
	command  *claimcmd.Command
	client   *claimclient.Client
	handlers []rest.Handler
}

// New assembles the issuer claim command, its client and REST handlers around svc.
func New(svc *issuerclaim.Service, conns *connection.Lookup, opts ...Opt) *Controller {
	ctrlOpts := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(ctrlOpts)
	}

	notifier := ctrlOpts.notifier
	if notifier == nil {
		notifier = webnotifier.New(WSPath, ctrlOpts.webhookURLs, webnotifier.WithCrossOrigin())
	}

	clientOpts := []claimclient.Opt{claimclient.WithNotifier(notifier)}
	if ctrlOpts.store != nil {
		clientOpts = append(clientOpts, claimclient.WithStore(ctrlOpts.store))
	}

	command := claimcmd.New(svc, conns, ctrlOpts.cmdOpts...)
	client := claimclient.New(command, clientOpts...)

	var allHandlers []rest.Handler
	allHandlers = append(allHandlers, restclaim.New(client, conns).GetRESTHandlers()...)

	if nhp, ok := notifier.(handlerProvider); ok {
		allHandlers = append(allHandlers, nhp.GetRESTHandlers()...)
	}

	return &Controller{
		command:  command,
		client:   client,
		handlers: allHandlers,
	}
}

// GetRESTHandlers returns all REST handlers provided by controller.
func (c *Controller) GetRESTHandlers() []rest.Handler {
	return c.handlers
}

// Client returns the blocking claim client the handlers use.
func (c *Controller) Client() *claimclient.Client {
	return c.client
}

// Close releases every claim and waits for running operations.
func (c *Controller) Close() {
	c.command.ReleaseAll()
	c.command.Close()
}
