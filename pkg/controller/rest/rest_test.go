/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-claim-issuer/pkg/controller/command"
)

const (
	sampleErr1 = iota + command.Code(command.IssuerClaim)
	sampleErr2
)

func TestNewHandler(t *testing.T) {
	var called bool

	h := NewHandler("/issuerclaim/{handle}", http.MethodDelete, func(http.ResponseWriter, *http.Request) {
		called = true
	})

	require.Equal(t, "/issuerclaim/{handle}", h.Path())
	require.Equal(t, http.MethodDelete, h.Method())

	h.Handle()(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/issuerclaim/1", nil))
	require.True(t, called)
}

func TestSendError(t *testing.T) {
	const errMsg = "claim 7 is not registered"

	tests := []struct {
		name       string
		err        command.Error
		statusCode int
	}{
		{
			name:       "validation error",
			err:        command.NewValidationError(sampleErr1, errors.New(errMsg)),
			statusCode: http.StatusBadRequest,
		},
		{
			name:       "execute error",
			err:        command.NewExecuteError(sampleErr2, errors.New(errMsg)),
			statusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			SendError(rr, tc.err)

			response := genericErrorBody{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))

			require.Equal(t, tc.statusCode, rr.Code)
			require.Equal(t, genericErrorBody{Code: tc.err.Code(), Message: errMsg}, response)
		})
	}
}

func TestSendHTTPStatusError(t *testing.T) {
	rr := httptest.NewRecorder()

	SendHTTPStatusError(rr, http.StatusNotFound, sampleErr1, fmt.Errorf("unknown handle"))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"code":8000,"message":"unknown handle"}`, rr.Body.String())

	t.Run("body write fails", func(t *testing.T) {
		rw := &mockRWriter{}
		SendHTTPStatusError(rw, http.StatusBadRequest, command.Success, fmt.Errorf("sample error"))
		require.Equal(t, http.StatusBadRequest, rw.status)
	})
}

func TestExecute(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rr := httptest.NewRecorder()

		Execute(func(rw io.Writer, req io.Reader) command.Error {
			body, err := io.ReadAll(req)
			require.NoError(t, err)

			_, err = rw.Write(body)
			require.NoError(t, err)

			return nil
		}, rr, strings.NewReader(`{"handle":3}`))

		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		require.JSONEq(t, `{"handle":3}`, rr.Body.String())
	})

	t.Run("failure", func(t *testing.T) {
		rr := httptest.NewRecorder()

		Execute(func(io.Writer, io.Reader) command.Error {
			return command.NewValidationError(1, fmt.Errorf("sample"))
		}, rr, nil)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.Contains(t, rr.Body.String(), `{"code":1,"message":"sample"}`)
	})
}

// mockRWriter to recreate response writer error scenario.
type mockRWriter struct {
	status int
}

func (m *mockRWriter) Header() http.Header {
	return make(map[string][]string)
}

func (m *mockRWriter) Write([]byte) (int, error) {
	return 0, fmt.Errorf("failed to write body")
}

func (m *mockRWriter) WriteHeader(statusCode int) { m.status = statusCode }
