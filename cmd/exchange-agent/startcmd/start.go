/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
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
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-framework-go-exchange/component/log"
	"github.com/hyperledger/aries-framework-go-exchange/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/controller"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/presentproof"
	arieshttp "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/transport/http"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/framework/aries"
	"github.com/hyperledger/aries-framework-go-exchange/spi/storage"
)

const (
	// api host flag.
	agentHostFlagName      = "api-host"
	agentHostEnvKey        = "EXCHANGE_API_HOST"
	agentHostFlagShorthand = "a"
	agentHostFlagUsage     = "Host Name:Port. Serves the controller API and the DIDComm inbound endpoint." +
		" Alternatively, this can be set with the following environment variable: " + agentHostEnvKey

	// api token flag.
	agentTokenFlagName      = "api-token"
	agentTokenEnvKey        = "EXCHANGE_API_TOKEN" // nolint:gosec
	agentTokenFlagShorthand = "t"
	agentTokenFlagUsage     = "Check for bearer token in the authorization header of controller API calls (optional)." +
		" Alternatively, this can be set with the following environment variable: " + agentTokenEnvKey

	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "EXCHANGE_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database to use. Supported options: mem, leveldb." +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	databasePathFlagName      = "database-path"
	databasePathEnvKey        = "EXCHANGE_DATABASE_PATH"
	databasePathFlagShorthand = "p"
	databasePathFlagUsage     = "The directory of the leveldb database. Not needed if using memstore." +
		" Alternatively, this can be set with the following environment variable: " + databasePathEnvKey

	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey
	databaseTimeoutEnvKey  = "EXCHANGE_DATABASE_TIMEOUT"
	databaseTimeoutDefault = "30"

	storeCacheFlagName  = "store-cache-size"
	storeCacheEnvKey    = "EXCHANGE_STORE_CACHE_SIZE"
	storeCacheFlagUsage = "Number of records kept in the in-memory read cache of each store. Disabled if not set." +
		" Alternatively, this can be set with the following environment variable: " + storeCacheEnvKey

	// webhook url flag.
	agentWebhookFlagName      = "webhook-url"
	agentWebhookEnvKey        = "EXCHANGE_WEBHOOK_URL"
	agentWebhookFlagShorthand = "w"
	agentWebhookFlagUsage     = "URL to send notifications to." +
		" This flag can be repeated, allowing for multiple listeners." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + agentWebhookEnvKey

	// log level.
	agentLogLevelFlagName  = "log-level"
	agentLogLevelEnvKey    = "EXCHANGE_LOG_LEVEL"
	agentLogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentLogLevelEnvKey

	// auto accept flags.
	autoAcceptCredentialsFlagName  = "auto-accept-credentials"
	autoAcceptCredentialsEnvKey    = "EXCHANGE_AUTO_ACCEPT_CREDENTIALS"
	autoAcceptCredentialsFlagUsage = "Default auto accept policy of credential exchanges." +
		" Possible values [always] [contentApproved] [never]. Defaults to never if not set." +
		" Alternatively, this can be set with the following environment variable: " + autoAcceptCredentialsEnvKey

	autoAcceptProofsFlagName  = "auto-accept-proofs"
	autoAcceptProofsEnvKey    = "EXCHANGE_AUTO_ACCEPT_PROOFS"
	autoAcceptProofsFlagUsage = "Default auto accept policy of proof exchanges." +
		" Possible values [always] [contentApproved] [never]. Defaults to never if not set." +
		" Alternatively, this can be set with the following environment variable: " + autoAcceptProofsEnvKey

	// outbound retry flag.
	outboundRetriesFlagName  = "outbound-retries"
	outboundRetriesEnvKey    = "EXCHANGE_OUTBOUND_RETRIES"
	outboundRetriesFlagUsage = "Number of times a failed outbound message is sent again. Defaults to 0." +
		" Alternatively, this can be set with the following environment variable: " + outboundRetriesEnvKey

	// exchange timeout flag.
	exchangeTimeoutFlagName  = "exchange-timeout"
	exchangeTimeoutEnvKey    = "EXCHANGE_TIMEOUT"
	exchangeTimeoutFlagUsage = "Exchanges not updated for this long (Go duration, e.g. 24h) are abandoned." +
		" Stale exchanges are kept if not set." +
		" Alternatively, this can be set with the following environment variable: " + exchangeTimeoutEnvKey

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

	// InboundPath is the DIDComm endpoint. Peers post to it with the ID of their connection to this agent.
	InboundPath = "/didcomm/{connectionID}"

	connectionIDVar = "connectionID"
	outboundBackoff = time.Second
)

var (
	errMissingHost   = errors.New("host not provided")
	errMissingDBPath = errors.New("database path not provided for leveldb")
	logger           = log.New("aries-framework/exchange-agent")
)

type agentParameters struct {
	server                  server
	host                    string
	tlsCertFile, tlsKeyFile string
	token                   string
	webhookURLs             []string
	autoAcceptCredentials   string
	autoAcceptProofs        string
	outboundRetries         uint64
	exchangeTimeout         time.Duration
	dbParam                 *dbParam
}

type dbParam struct {
	dbType    string
	path      string
	timeout   uint64
	cacheSize int
}

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func(path string) (storage.Provider, error){
	databaseTypeMemOption: func(_ string) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	databaseTypeLevelDBOption: func(path string) (storage.Provider, error) {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, err
		}

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
		Short: "Start an agent",
		Long:  `Start a credential and proof exchange agent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getAgentParameters(cmd, server)
			if err != nil {
				return err
			}

			return startAgent(parameters)
		},
	}
}

func getAgentParameters(cmd *cobra.Command, server server) (*agentParameters, error) { //nolint:funlen,gocyclo
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

	dbParam, err := getDBParam(cmd)
	if err != nil {
		return nil, err
	}

	webhookURLs, err := getUserSetVars(cmd, agentWebhookFlagName, agentWebhookEnvKey, true)
	if err != nil {
		return nil, err
	}

	autoAcceptCredentials, err := getUserSetVar(cmd, autoAcceptCredentialsFlagName, autoAcceptCredentialsEnvKey,
		true)
	if err != nil {
		return nil, err
	}

	autoAcceptProofs, err := getUserSetVar(cmd, autoAcceptProofsFlagName, autoAcceptProofsEnvKey, true)
	if err != nil {
		return nil, err
	}

	outboundRetries, err := getOutboundRetries(cmd)
	if err != nil {
		return nil, err
	}

	exchangeTimeout, err := getExchangeTimeout(cmd)
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
		server:                server,
		host:                  host,
		token:                 token,
		dbParam:               dbParam,
		webhookURLs:           webhookURLs,
		autoAcceptCredentials: autoAcceptCredentials,
		autoAcceptProofs:      autoAcceptProofs,
		outboundRetries:       outboundRetries,
		exchangeTimeout:       exchangeTimeout,
		tlsCertFile:           tlsCertFile,
		tlsKeyFile:            tlsKeyFile,
	}, nil
}

func getDBParam(cmd *cobra.Command) (*dbParam, error) {
	dbParam := &dbParam{}

	var err error

	dbParam.dbType, err = getUserSetVar(cmd, databaseTypeFlagName, databaseTypeEnvKey, false)
	if err != nil {
		return nil, err
	}

	dbParam.path, err = getUserSetVar(cmd, databasePathFlagName, databasePathEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbTimeout, err := getUserSetVar(cmd, databaseTimeoutFlagName, databaseTimeoutEnvKey, true)
	if err != nil {
		return nil, err
	}

	if dbTimeout == "" || dbTimeout == "0" {
		dbTimeout = databaseTimeoutDefault
	}

	t, err := strconv.Atoi(dbTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db timeout %s: %w", dbTimeout, err)
	}

	dbParam.timeout = uint64(t)

	cacheSize, err := getUserSetVar(cmd, storeCacheFlagName, storeCacheEnvKey, true)
	if err != nil {
		return nil, err
	}

	if cacheSize != "" {
		dbParam.cacheSize, err = strconv.Atoi(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to parse store cache size %s: %w", cacheSize, err)
		}
	}

	return dbParam, nil
}

func getOutboundRetries(cmd *cobra.Command) (uint64, error) {
	v, err := getUserSetVar(cmd, outboundRetriesFlagName, outboundRetriesEnvKey, true)
	if err != nil {
		return 0, err
	}

	if v == "" {
		return 0, nil
	}

	retries, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse outbound retries %s: %w", v, err)
	}

	return retries, nil
}

func getExchangeTimeout(cmd *cobra.Command) (time.Duration, error) {
	v, err := getUserSetVar(cmd, exchangeTimeoutFlagName, exchangeTimeoutEnvKey, true)
	if err != nil {
		return 0, err
	}

	if v == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse exchange timeout %s: %w", v, err)
	}

	if timeout < 0 {
		return 0, fmt.Errorf("exchange timeout %s is negative", v)
	}

	return timeout, nil
}

func createFlags(startCmd *cobra.Command) {
	// agent host flag
	startCmd.Flags().StringP(agentHostFlagName, agentHostFlagShorthand, "", agentHostFlagUsage)

	// agent token flag
	startCmd.Flags().StringP(agentTokenFlagName, agentTokenFlagShorthand, "", agentTokenFlagUsage)

	// db type
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)

	// db path
	startCmd.Flags().StringP(databasePathFlagName, databasePathFlagShorthand, "", databasePathFlagUsage)

	// db timeout
	startCmd.Flags().StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)

	// store cache
	startCmd.Flags().StringP(storeCacheFlagName, "", "", storeCacheFlagUsage)

	// webhook url flag
	startCmd.Flags().StringSliceP(agentWebhookFlagName, agentWebhookFlagShorthand, []string{}, agentWebhookFlagUsage)

	// log level
	startCmd.Flags().StringP(agentLogLevelFlagName, "", "", agentLogLevelFlagUsage)

	// auto accept flags
	startCmd.Flags().StringP(autoAcceptCredentialsFlagName, "", "", autoAcceptCredentialsFlagUsage)
	startCmd.Flags().StringP(autoAcceptProofsFlagName, "", "", autoAcceptProofsFlagUsage)

	// outbound retries
	startCmd.Flags().StringP(outboundRetriesFlagName, "", "", outboundRetriesFlagUsage)

	// exchange timeout
	startCmd.Flags().StringP(exchangeTimeoutFlagName, "", "", exchangeTimeoutFlagUsage)

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

type agent struct {
	framework *aries.Aries
	router    *mux.Router
	sweeper   *sweeper
}

func (a *agent) close() {
	if a.sweeper != nil {
		a.sweeper.stop()
	}

	if err := a.framework.Close(); err != nil {
		logger.Warnf("failed to close the framework: %s", err)
	}
}

func startAgent(parameters *agentParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	a, err := createAgent(parameters)
	if err != nil {
		return err
	}

	defer a.close()

	logger.Infof("Starting exchange agent on host [%s]", parameters.host)
	// start server on given port and serve using given handlers
	handler := cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(a.router)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start exchange agent on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

func createAgent(parameters *agentParameters) (*agent, error) {
	framework, err := createFramework(parameters)
	if err != nil {
		return nil, err
	}

	a := &agent{framework: framework}

	a.router, err = createRouter(framework, parameters)
	if err != nil {
		a.close()

		return nil, err
	}

	if parameters.exchangeTimeout > 0 {
		a.sweeper, err = startSweeper(framework, parameters.exchangeTimeout)
		if err != nil {
			a.close()

			return nil, err
		}
	}

	return a, nil
}

func createFramework(parameters *agentParameters) (*aries.Aries, error) {
	storePro, err := createStoreProvider(parameters)
	if err != nil {
		return nil, err
	}

	opts := []aries.Option{
		aries.WithStoreProvider(storePro),
		aries.WithAutoAcceptCredentials(parameters.autoAcceptCredentials),
		aries.WithAutoAcceptProofs(parameters.autoAcceptProofs),
	}

	if parameters.dbParam.cacheSize > 0 {
		opts = append(opts, aries.WithStoreCache(parameters.dbParam.cacheSize))
	}

	if parameters.outboundRetries > 0 {
		opts = append(opts, aries.WithOutboundRetry(parameters.outboundRetries, outboundBackoff))
	}

	framework, err := aries.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start exchange agent on port [%s], failed to initialize framework :  %w",
			parameters.host, err)
	}

	return framework, nil
}

func createRouter(framework *aries.Aries, parameters *agentParameters) (*mux.Router, error) {
	ctx, err := framework.Context()
	if err != nil {
		return nil, fmt.Errorf("failed to start exchange agent on port [%s], failed to get context : %w",
			parameters.host, err)
	}

	// get all HTTP REST API handlers available for controller API
	handlers, err := controller.GetRESTHandlers(ctx, controller.WithWebhookURLs(parameters.webhookURLs...))
	if err != nil {
		return nil, fmt.Errorf("failed to start exchange agent on port [%s], failed to get rest service api :  %w",
			parameters.host, err)
	}

	inbound, err := arieshttp.NewInboundHandler(ctx.InboundMessageHandler(),
		arieshttp.WithConnectionIDResolver(func(r *http.Request) string {
			return mux.Vars(r)[connectionIDVar]
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to start exchange agent on port [%s], failed to create inbound handler : %w",
			parameters.host, err)
	}

	router := mux.NewRouter()

	// peers authenticate through their connection, not the controller token
	router.Handle(InboundPath, inbound).Methods(http.MethodPost)

	api := router.NewRoute().Subrouter()

	if parameters.token != "" {
		api.Use(authorizationMiddleware(parameters.token))
	}

	for _, handler := range handlers {
		api.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	return router, nil
}

func startSweeper(framework *aries.Aries, timeout time.Duration) (*sweeper, error) {
	ctx, err := framework.Context()
	if err != nil {
		return nil, fmt.Errorf("failed to get context : %w", err)
	}

	var exchanges []exchangeService

	for _, name := range []string{issuecredential.Name, presentproof.Name} {
		svc, lookupErr := ctx.Service(name)
		if lookupErr != nil {
			return nil, fmt.Errorf("look up %s service : %w", name, lookupErr)
		}

		es, ok := svc.(exchangeService)
		if !ok {
			return nil, fmt.Errorf("%s service does not manage exchanges", name)
		}

		exchanges = append(exchanges, es)
	}

	s := newSweeper(timeout, exchanges...)

	if err := s.start(); err != nil {
		return nil, err
	}

	return s, nil
}

func createStoreProvider(parameters *agentParameters) (storage.Provider, error) {
	provider, supported := supportedStorageProviders[parameters.dbParam.dbType]
	if !supported {
		return nil, fmt.Errorf("database type not set to a valid type." +
			" run start --help to see the available options")
	}

	if parameters.dbParam.dbType == databaseTypeLevelDBOption && parameters.dbParam.path == "" {
		return nil, errMissingDBPath
	}

	var store storage.Provider

	err := backoff.RetryNotify(
		func() error {
			var openErr error
			store, openErr = provider(parameters.dbParam.path)
			return openErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), parameters.dbParam.timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"failed to open storage, will sleep for %s before trying again : %s\n",
				t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage at %s : %w", parameters.dbParam.path, err)
	}

	return store, nil
}
