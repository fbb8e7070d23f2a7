/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package claimissuer lets an issuer offer claims to a holder, receive the holder's claim request
// through an agency and send back the signed claim.
//
// Packages for end developer usage
//
// pkg/issuerclaim: The claim lifecycle service. Claims are addressed by numeric handles and move through
// the initialized, offer sent, request received and claim sent states.
//
// pkg/controller/command/issuerclaim: Asynchronous API over the service. Every operation returns a status
// code right away and reports its outcome through a callback.
//
// pkg/client/issuerclaim: Blocking client over the command, with optional persistence and state notifications.
//
// cmd/issuer-agent-rest: REST agent exposing the client.
//
// Basic workflow
//
//      1) Register a connection to the holder.
//      2) Create a claim from its attributes.
//      3) Send the offer on the connection.
//      4) Update the state until the holder's request is received.
//      5) Send the claim and release the handle.
package claimissuer
