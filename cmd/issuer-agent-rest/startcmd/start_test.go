/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go/component/log"
	spi "github.com/hyperledger/aries-framework-go/spi/log"
)

const (
	testSeed      = "000000000000000000000000Issuer01"
	testAgencyURL = "http://localhost:8080"
	issuerDID     = "8XFh8yBzrpJQmNyZzgoTqB"
	pwDID         = "6vkhW3L28AophhA68SSzRS"
)

// mockServer runs serve, if set, against the handler it is started with.
type mockServer struct {
	serve func(h http.Handler)
	err   error
}

func (s *mockServer) ListenAndServe(host string, handler http.Handler, certFile, keyFile string) error {
	if s.serve != nil {
		s.serve(handler)
	}

	return s.err
}

func TestStartCmdContents(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	require.Equal(t, "start", startCmd.Use)
	require.Equal(t, "Start an issuer agent", startCmd.Short)
	require.Equal(t, "Start the issuer claim REST controller", startCmd.Long)

	checkFlagPropertiesCorrect(t, startCmd, agentHostFlagName, agentHostFlagShorthand, agentHostFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, agencyURLFlagName, agencyURLFlagShorthand, agencyURLFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, signingSeedFlagName, signingSeedFlagShorthand, signingSeedFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, databaseTypeFlagName, databaseTypeFlagShorthand, databaseTypeFlagUsage)
}

func checkFlagPropertiesCorrect(t *testing.T, cmd *cobra.Command, flagName, flagShorthand, flagUsage string) {
	t.Helper()

	flag := cmd.Flag(flagName)

	require.NotNil(t, flag)
	require.Equal(t, flagName, flag.Name)
	require.Equal(t, flagShorthand, flag.Shorthand)
	require.Equal(t, flagUsage, flag.Usage)
	require.Equal(t, "", flag.Value.String())
	require.Nil(t, flag.Annotations)
}

func validArgs() map[string]string {
	return map[string]string{
		agentHostFlagName:    "localhost:8090",
		agencyURLFlagName:    testAgencyURL,
		signingSeedFlagName:  testSeed,
		databaseTypeFlagName: databaseTypeMemOption,
	}
}

func toArgs(m map[string]string) []string {
	args := make([]string, 0, 2*len(m))

	for k, v := range m {
		args = append(args, "--"+k, v)
	}

	return args
}

func TestStartCmdValidArgs(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	args := validArgs()
	args[agentTokenFlagName] = "secret"
	args[agencyTimeoutFlagName] = "5"
	args[databaseTimeoutFlagName] = "1"
	args[agentLogLevelFlagName] = "DEBUG"
	args[agentWebhookFlagName] = "http://localhost:8082"

	startCmd.SetArgs(toArgs(args))

	require.NoError(t, startCmd.Execute())
	require.Equal(t, spi.DEBUG, log.GetLevel(""))

	log.SetLevel("", spi.INFO)
}

func TestStartCmdValidArgsEnvVar(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	t.Setenv(agentHostEnvKey, "localhost:8090")
	t.Setenv(agencyURLEnvKey, testAgencyURL)
	t.Setenv(signingSeedEnvKey, testSeed)
	t.Setenv(databaseTypeEnvKey, databaseTypeMemOption)
	t.Setenv(agentWebhookEnvKey, "http://localhost:8082,http://localhost:8083")

	startCmd.SetArgs([]string{})

	require.NoError(t, startCmd.Execute())
}

func TestGetUserSetVars(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	t.Run("from flags", func(t *testing.T) {
		require.NoError(t, startCmd.ParseFlags([]string{
			"--" + agentWebhookFlagName, "http://a", "-" + agentWebhookFlagShorthand, "http://b",
		}))

		urls, err := getUserSetVars(startCmd, agentWebhookFlagName, agentWebhookEnvKey, true)
		require.NoError(t, err)
		require.Equal(t, []string{"http://a", "http://b"}, urls)
	})

	t.Run("from env", func(t *testing.T) {
		cmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		t.Setenv(agentWebhookEnvKey, "http://a,http://b")

		urls, err := getUserSetVars(cmd, agentWebhookFlagName, agentWebhookEnvKey, false)
		require.NoError(t, err)
		require.Equal(t, []string{"http://a", "http://b"}, urls)
	})

	t.Run("required and unset", func(t *testing.T) {
		cmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		_, err = getUserSetVars(cmd, agentWebhookFlagName, agentWebhookEnvKey, false)
		require.EqualError(t, err,
			" webhook-url not set. It must be set via either command line or environment variable")
	})

	t.Run("optional and unset", func(t *testing.T) {
		cmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		urls, err := getUserSetVars(cmd, agentWebhookFlagName, agentWebhookEnvKey, true)
		require.NoError(t, err)
		require.Empty(t, urls)
	})
}

func TestStartCmdWithLevelDB(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	args := validArgs()
	args[databaseTypeFlagName] = databaseTypeLevelDBOption
	args[databaseURLFlagName] = t.TempDir()

	startCmd.SetArgs(toArgs(args))

	require.NoError(t, startCmd.Execute())
}

func TestStartCmdErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(args map[string]string)
		errMsg string
	}{
		{
			name:   "missing host",
			modify: func(args map[string]string) { delete(args, agentHostFlagName) },
			errMsg: "Neither api-host (command line flag) nor ARIESD_API_HOST (environment variable) have been set.",
		},
		{
			name:   "blank host",
			modify: func(args map[string]string) { args[agentHostFlagName] = "" },
			errMsg: errMissingHost.Error(),
		},
		{
			name:   "missing agency url",
			modify: func(args map[string]string) { delete(args, agencyURLFlagName) },
			errMsg: "Neither agency-url (command line flag) nor ARIESD_AGENCY_URL",
		},
		{
			name:   "blank agency url",
			modify: func(args map[string]string) { args[agencyURLFlagName] = "" },
			errMsg: errMissingAgencyURL.Error(),
		},
		{
			name:   "missing signing seed",
			modify: func(args map[string]string) { delete(args, signingSeedFlagName) },
			errMsg: "Neither signing-seed (command line flag)",
		},
		{
			name:   "short signing seed",
			modify: func(args map[string]string) { args[signingSeedFlagName] = "short" },
			errMsg: "claim signer",
		},
		{
			name:   "missing database type",
			modify: func(args map[string]string) { delete(args, databaseTypeFlagName) },
			errMsg: "Neither database-type (command line flag)",
		},
		{
			name:   "unsupported database type",
			modify: func(args map[string]string) { args[databaseTypeFlagName] = "couchdb" },
			errMsg: "database type not set to a valid type",
		},
		{
			name:   "invalid database timeout",
			modify: func(args map[string]string) { args[databaseTimeoutFlagName] = "soon" },
			errMsg: "failed to parse database-timeout soon",
		},
		{
			name:   "invalid agency timeout",
			modify: func(args map[string]string) { args[agencyTimeoutFlagName] = "never" },
			errMsg: "failed to parse agency-timeout never",
		},
		{
			name:   "invalid log level",
			modify: func(args map[string]string) { args[agentLogLevelFlagName] = "loud" },
			errMsg: "failed to parse log level 'loud'",
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			startCmd, err := Cmd(&mockServer{})
			require.NoError(t, err)

			args := validArgs()
			tc.modify(args)
			startCmd.SetArgs(toArgs(args))

			err = startCmd.Execute()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestStartAgentServerFailure(t *testing.T) {
	err := startAgent(&agentParameters{
		server:      &mockServer{err: errors.New("address in use")},
		host:        "localhost:8090",
		agencyURL:   testAgencyURL,
		signingSeed: testSeed,
		dbParam:     &dbParam{dbType: databaseTypeMemOption},
	})
	require.EqualError(t, err, "failed to start issuer agent rest on port [localhost:8090], cause:  address in use")
}

func TestStartAgentRequests(t *testing.T) {
	const token = "secret"

	var (
		served   bool
		notified = make(chan string, 10)
	)

	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msg := struct {
			Topic   string `json:"topic"`
			Message struct {
				Name string `json:"name"`
			} `json:"message"`
		}{}

		if err := json.NewDecoder(r.Body).Decode(&msg); err == nil {
			notified <- msg.Topic + ":" + msg.Message.Name
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	server := &mockServer{serve: func(h http.Handler) {
		served = true

		t.Run("unauthorized", func(t *testing.T) {
			rr := doRequest(h, http.MethodPost, "/connections/create", "", `{}`)
			require.Equal(t, http.StatusUnauthorized, rr.Code)
		})

		t.Run("issue flow", func(t *testing.T) {
			rr := doRequest(h, http.MethodPost, "/connections/create", token,
				fmt.Sprintf(`{"source_id":"holder","pw_did":%q}`, pwDID))
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			rr = doRequest(h, http.MethodPost, "/issuerclaim/create", token,
				fmt.Sprintf(`{"source_id":"c1","schema_seq_no":32,"issuer_did":%q,"claim_data":"{\"age\":32}"}`,
					issuerDID))
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			created := struct {
				Handle uint32 `json:"handle"`
			}{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

			rr = doRequest(h, http.MethodGet, fmt.Sprintf("/issuerclaim/%d", created.Handle), token, "")
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			require.Contains(t, rr.Body.String(), `"state":1`)

			rr = doRequest(h, http.MethodPost, fmt.Sprintf("/issuerclaim/%d/update-state", created.Handle), token, "")
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			require.JSONEq(t, `{"state":1,"name":"initialized"}`, rr.Body.String())

			require.Equal(t, "issuerclaim_states:initialized", <-notified)
		})

		t.Run("cors preflight", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/issuerclaim/create", nil)
			req.Header.Set("Origin", "http://example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}}

	err := startAgent(&agentParameters{
		server:      server,
		host:        "localhost:8090",
		token:       token,
		agencyURL:   testAgencyURL,
		signingSeed: testSeed,
		webhookURLs: []string{webhook.URL},
		dbParam:     &dbParam{dbType: databaseTypeMemOption},
	})
	require.NoError(t, err)
	require.True(t, served)
}

func doRequest(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}
