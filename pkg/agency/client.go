/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package agency

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
)

const contentType = "application/json"

var logger = log.New("aries-framework/agency")

var (
	// ErrConnect is returned when the agency endpoint could not be reached.
	ErrConnect = errors.New("could not connect")
	// ErrStatus is returned when the agency endpoint answered with a non-success status.
	ErrStatus = errors.New("POST failed")
	// ErrRead is returned when the response body could not be fully received.
	ErrRead = errors.New("could not read response")
)

// StatusError carries the HTTP status of a rejected POST. It matches ErrStatus with errors.Is.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: received status %d from agency at [%s]", ErrStatus, e.StatusCode, e.URL)
}

// Is makes errors.Is(err, ErrStatus) hold for every StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

type clientOpts struct {
	client    *http.Client
	timeout   time.Duration
	tlsConfig *tls.Config
}

// Opt configures a Client.
type Opt func(opts *clientOpts)

// WithHTTPClient sets the http.Client used for every POST. WithTimeout and WithTLSConfig do not apply to it.
func WithHTTPClient(client *http.Client) Opt {
	return func(opts *clientOpts) {
		opts.client = client
	}
}

// WithTimeout sets the overall timeout of a single POST round trip.
func WithTimeout(timeout time.Duration) Opt {
	return func(opts *clientOpts) {
		opts.timeout = timeout
	}
}

// WithTLSConfig sets the TLS configuration used to reach the agency.
func WithTLSConfig(tlsConfig *tls.Config) Opt {
	return func(opts *clientOpts) {
		opts.tlsConfig = tlsConfig
	}
}

// Client posts serialized agency messages and returns the raw response body.
// Every call is independent: there is no caching and keep-alive connections are disabled by default.
type Client struct {
	client *http.Client
}

// NewClient creates a Client. Without options it uses an http.Client that does not reuse connections.
func NewClient(opts ...Opt) *Client {
	clOpts := &clientOpts{}

	for _, opt := range opts {
		opt(clOpts)
	}

	if clOpts.client != nil {
		return &Client{client: clOpts.client}
	}

	return &Client{client: &http.Client{
		Timeout: clOpts.timeout,
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			TLSClientConfig:   clOpts.tlsConfig,
			DisableKeepAlives: true,
		},
	}}
}

// Post sends body to url and returns the response body.
// Failures are classified as ErrConnect, ErrStatus (a *StatusError) or ErrRead.
func (c *Client) Post(ctx context.Context, body []byte, url string) ([]byte, error) {
	logger.Debugf("posting %d bytes to [%s]", len(body), url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request for [%s]: %v", ErrConnect, url, err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Errorf("agency - error posting message to [%s]: %v", url, err)

		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	defer func() {
		if e := resp.Body.Close(); e != nil {
			logger.Errorf("agency - error closing response body: %v", e)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}

	logger.Debugf("agency - response from [%s]: status %d, %d bytes", url, resp.StatusCode, len(respData))

	return respData, nil
}
