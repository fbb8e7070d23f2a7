/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-claim-issuer/pkg/agency"
	"github.com/hyperledger/aries-claim-issuer/pkg/controller"
	"github.com/hyperledger/aries-claim-issuer/pkg/doc/claimsigner"
	"github.com/hyperledger/aries-claim-issuer/pkg/issuerclaim"
	"github.com/hyperledger/aries-claim-issuer/pkg/store/connection"
	claimstore "github.com/hyperledger/aries-claim-issuer/pkg/store/issuerclaim"
)

const (
	// api host flag.
	agentHostFlagName      = "api-host"
	agentHostEnvKey        = "ARIESD_API_HOST"
	agentHostFlagShorthand = "a"
	agentHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + agentHostEnvKey

	// api token flag.
	agentTokenFlagName      = "api-token"
	agentTokenEnvKey        = "ARIESD_API_TOKEN" // nolint:gosec
	agentTokenFlagShorthand = "t"
	agentTokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + agentTokenEnvKey

	// agency url flag.
	agencyURLFlagName      = "agency-url"
	agencyURLEnvKey        = "ARIESD_AGENCY_URL"
	agencyURLFlagShorthand = "g"
	agencyURLFlagUsage     = "Base URL of the agency claim messages are routed through." +
		" Connections without an endpoint of their own use it." +
		" Alternatively, this can be set with the following environment variable: " + agencyURLEnvKey

	agencyTimeoutFlagName  = "agency-timeout"
	agencyTimeoutEnvKey    = "ARIESD_AGENCY_TIMEOUT"
	agencyTimeoutFlagUsage = "Timeout in seconds of a single request to the agency." +
		" Default: " + agencyTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + agencyTimeoutEnvKey
	agencyTimeoutDefault = "30"

	// signing seed flag.
	signingSeedFlagName      = "signing-seed"
	signingSeedEnvKey        = "ARIESD_SIGNING_SEED" // nolint:gosec
	signingSeedFlagShorthand = "s"
	signingSeedFlagUsage     = "Secret seed of at least 16 bytes the claim signing key is derived from." +
		" Alternatively, this can be set with the following environment variable: " + signingSeedEnvKey

	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "ARIESD_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database issued claims are persisted in. " +
		"Supported options: mem, leveldb. " +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	databaseURLFlagName      = "database-url"
	databaseURLEnvKey        = "ARIESD_DATABASE_URL"
	databaseURLFlagShorthand = "v"
	databaseURLFlagUsage     = "The URL of the database. Not needed if using memstore." +
		" For LevelDB, this is the path of the database directory. " +
		" Alternatively, this can be set with the following environment variable: " + databaseURLEnvKey

	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey
	databaseTimeoutEnvKey  = "ARIESD_DATABASE_TIMEOUT"
	databaseTimeoutDefault = "30"

	// webhook url flag.
	agentWebhookFlagName      = "webhook-url"
	agentWebhookEnvKey        = "ARIESD_WEBHOOK_URL"
	agentWebhookFlagShorthand = "w"
	agentWebhookFlagUsage     = "URL to send claim state notifications to." +
		" This flag can be repeated, allowing for multiple listeners." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " +
		agentWebhookEnvKey

	// log level.
	agentLogLevelFlagName  = "log-level"
	agentLogLevelEnvKey    = "ARIESD_LOG_LEVEL"
	agentLogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentLogLevelEnvKey

	agentTLSCertFileFlagName      = "tls-cert-file"
	agentTLSCertFileEnvKey        = "TLS_CERT_FILE"
	agentTLSCertFileFlagShorthand = "c"
	agentTLSCertFileFlagUsage     = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSCertFileEnvKey

	agentTLSKeyFileFlagName      = "tls-key-file"
	agentTLSKeyFileEnvKey        = "TLS_KEY_FILE"
	agentTLSKeyFileFlagShorthand = "k"
	agentTLSKeyFileFlagUsage     = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSKeyFileEnvKey

	databaseTypeMemOption     = "mem"
	databaseTypeLevelDBOption = "leveldb"
)

var (
	errMissingHost      = errors.New("host not provided")
	errMissingAgencyURL = errors.New("agency url not provided")
	logger              = log.New("aries-framework/issuer-agent-rest")
)

type agentParameters struct {
	server                  server
	host, token             string
	agencyURL               string
	agencyTimeout           time.Duration
	signingSeed             string
	webhookURLs             []string
	tlsCertFile, tlsKeyFile string
	dbParam                 *dbParam
}

type dbParam struct {
	dbType  string
	url     string
	timeout uint64
}

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func(url string) (storage.Provider, error){
	databaseTypeMemOption: func(_ string) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	databaseTypeLevelDBOption: func(path string) (storage.Provider, error) { // nolint:unparam
		return leveldb.NewProvider(path), nil
	},
}

type server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router) // nolint:gosec
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start an issuer agent",
		Long:  `Start the issuer claim REST controller`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getAgentParameters(cmd, server)
			if err != nil {
				return err
			}

			return startAgent(parameters)
		},
	}
}

func getAgentParameters(cmd *cobra.Command, server server) (*agentParameters, error) { //nolint:funlen
	logLevel, err := getUserSetVar(cmd, agentLogLevelFlagName, agentLogLevelEnvKey, true)
	if err != nil {
		return nil, err
	}

	err = setLogLevel(logLevel)
	if err != nil {
		return nil, err
	}

	host, err := getUserSetVar(cmd, agentHostFlagName, agentHostEnvKey, false)
	if err != nil {
		return nil, err
	}

	token, err := getUserSetVar(cmd, agentTokenFlagName, agentTokenEnvKey, true)
	if err != nil {
		return nil, err
	}

	agencyURL, err := getUserSetVar(cmd, agencyURLFlagName, agencyURLEnvKey, false)
	if err != nil {
		return nil, err
	}

	agencyTimeout, err := getSeconds(cmd, agencyTimeoutFlagName, agencyTimeoutEnvKey, agencyTimeoutDefault)
	if err != nil {
		return nil, err
	}

	signingSeed, err := getUserSetVar(cmd, signingSeedFlagName, signingSeedEnvKey, false)
	if err != nil {
		return nil, err
	}

	webhookURLs, err := getUserSetVars(cmd, agentWebhookFlagName, agentWebhookEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbParam, err := getDBParam(cmd)
	if err != nil {
		return nil, err
	}

	tlsCertFile, err := getUserSetVar(cmd, agentTLSCertFileFlagName, agentTLSCertFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	tlsKeyFile, err := getUserSetVar(cmd, agentTLSKeyFileFlagName, agentTLSKeyFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	return &agentParameters{
		server:        server,
		host:          host,
		token:         token,
		agencyURL:     agencyURL,
		agencyTimeout: time.Duration(agencyTimeout) * time.Second,
		signingSeed:   signingSeed,
		webhookURLs:   webhookURLs,
		tlsCertFile:   tlsCertFile,
		tlsKeyFile:    tlsKeyFile,
		dbParam:       dbParam,
	}, nil
}

func getDBParam(cmd *cobra.Command) (*dbParam, error) {
	dbParam := &dbParam{}

	var err error

	dbParam.dbType, err = getUserSetVar(cmd, databaseTypeFlagName, databaseTypeEnvKey, false)
	if err != nil {
		return nil, err
	}

	dbParam.url, err = getUserSetVar(cmd, databaseURLFlagName, databaseURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbParam.timeout, err = getSeconds(cmd, databaseTimeoutFlagName, databaseTimeoutEnvKey, databaseTimeoutDefault)
	if err != nil {
		return nil, err
	}

	return dbParam, nil
}

func getSeconds(cmd *cobra.Command, flagName, envKey, defaultValue string) (uint64, error) {
	v, err := getUserSetVar(cmd, flagName, envKey, true)
	if err != nil {
		return 0, err
	}

	if v == "" || v == "0" {
		v = defaultValue
	}

	t, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %s: %w", flagName, v, err)
	}

	return t, nil
}

func createFlags(startCmd *cobra.Command) {
	// agent host flag
	startCmd.Flags().StringP(agentHostFlagName, agentHostFlagShorthand, "", agentHostFlagUsage)

	// agent token flag
	startCmd.Flags().StringP(agentTokenFlagName, agentTokenFlagShorthand, "", agentTokenFlagUsage)

	// agency
	startCmd.Flags().StringP(agencyURLFlagName, agencyURLFlagShorthand, "", agencyURLFlagUsage)
	startCmd.Flags().StringP(agencyTimeoutFlagName, "", "", agencyTimeoutFlagUsage)

	// signing seed
	startCmd.Flags().StringP(signingSeedFlagName, signingSeedFlagShorthand, "", signingSeedFlagUsage)

	// db type
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)

	// db url
	startCmd.Flags().StringP(databaseURLFlagName, databaseURLFlagShorthand, "", databaseURLFlagUsage)

	// db timeout
	startCmd.Flags().StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)

	// webhook url flag
	startCmd.Flags().StringSliceP(agentWebhookFlagName, agentWebhookFlagShorthand, []string{},
		agentWebhookFlagUsage)

	// log level
	startCmd.Flags().StringP(agentLogLevelFlagName, "", "", agentLogLevelFlagUsage)

	// tls cert file
	startCmd.Flags().StringP(agentTLSCertFileFlagName,
		agentTLSCertFileFlagShorthand, "", agentTLSCertFileFlagUsage)

	// tls key file
	startCmd.Flags().StringP(agentTLSKeyFileFlagName,
		agentTLSKeyFileFlagShorthand, "", agentTLSKeyFileFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}

	return middleware
}

func startAgent(parameters *agentParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	router, closeAgent, err := createRouter(parameters)
	if err != nil {
		return fmt.Errorf("failed to start issuer agent rest on port [%s], cause:  %w", parameters.host, err)
	}

	defer closeAgent()

	logger.Infof("Starting issuer agent rest on host [%s]", parameters.host)
	// start server on given port and serve using given handlers
	handler := cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start issuer agent rest on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

// agentProvider supplies the claim service with its collaborators.
type agentProvider struct {
	messenger *agency.Messenger
	conns     *connection.Lookup
	signer    *claimsigner.Signer
	agencyURL string
}

func (p *agentProvider) Messenger() issuerclaim.Messenger { return p.messenger }

func (p *agentProvider) Connections() issuerclaim.ConnectionLookup { return p.conns }

func (p *agentProvider) Signer() issuerclaim.Signer { return p.signer }

func (p *agentProvider) AgencyURL() string { return p.agencyURL }

// createRouter wires the issuer claim stack and returns its router and a function releasing it.
func createRouter(parameters *agentParameters) (*mux.Router, func(), error) {
	if parameters.agencyURL == "" {
		return nil, nil, errMissingAgencyURL
	}

	signer, err := claimsigner.New([]byte(parameters.signingSeed))
	if err != nil {
		return nil, nil, fmt.Errorf("claim signer: %w", err)
	}

	storeProvider, err := createStoreProvider(parameters)
	if err != nil {
		return nil, nil, err
	}

	store, err := claimstore.New(storeProvider)
	if err != nil {
		closeStoreProvider(storeProvider)

		return nil, nil, err
	}

	var agencyOpts []agency.Opt
	if parameters.agencyTimeout > 0 {
		agencyOpts = append(agencyOpts, agency.WithTimeout(parameters.agencyTimeout))
	}

	conns := connection.NewLookup()

	svc, err := issuerclaim.New(&agentProvider{
		messenger: agency.NewMessenger(agency.NewClient(agencyOpts...)),
		conns:     conns,
		signer:    signer,
		agencyURL: strings.TrimSpace(parameters.agencyURL),
	})
	if err != nil {
		closeStoreProvider(storeProvider)

		return nil, nil, err
	}

	ctrl := controller.New(svc, conns,
		controller.WithStore(store),
		controller.WithWebhookURLs(parameters.webhookURLs...))

	if _, err = ctrl.Client().Restore(context.Background()); err != nil {
		logger.Warnf("failed to restore stored claims: %s", err)
	}

	logger.Infof("claims are signed with key [%s]", signer.KeyID())

	router := mux.NewRouter()

	if parameters.token != "" {
		router.Use(authorizationMiddleware(parameters.token))
	}

	for _, handler := range ctrl.GetRESTHandlers() {
		router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	closeAgent := func() {
		ctrl.Close()
		closeStoreProvider(storeProvider)
	}

	return router, closeAgent, nil
}

func closeStoreProvider(p storage.Provider) {
	if err := p.Close(); err != nil {
		logger.Warnf("failed to close storage provider: %s", err)
	}
}

func createStoreProvider(parameters *agentParameters) (storage.Provider, error) {
	provider, supported := supportedStorageProviders[parameters.dbParam.dbType]
	if !supported {
		return nil, fmt.Errorf("database type not set to a valid type." +
			" run start --help to see the available options")
	}

	var store storage.Provider

	err := backoff.RetryNotify(
		func() error {
			var openErr error
			store, openErr = provider(parameters.dbParam.url)
			return openErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), parameters.dbParam.timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"failed to connect to storage, will sleep for %s before trying again : %s\n",
				t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage at %s : %w", parameters.dbParam.url, err)
	}

	return store, nil
}
