/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperledger/aries-framework-go/spi/log"
)

// LogError is a utility function to log a failed command action.
func LogError(logger log.Logger, command, action, errMsg string, data ...string) {
	logger.Errorf("command=[%s] action=[%s] %s errMsg=[%s]", command, action, strings.Join(data, " "), errMsg)
}

// LogDebug is a utility function to log debug messages.
func LogDebug(logger log.Logger, command, action, msg string, data ...string) {
	logger.Debugf("command=[%s] action=[%s] %s msg=[%s]", command, action, strings.Join(data, " "), msg)
}

// CreateKeyValueString creates a concatenated string.
func CreateKeyValueString(key, val string) string {
	return fmt.Sprintf("%s=[%s]", key, val)
}

// HandleKV formats handle h under key.
func HandleKV(key string, h uint32) string {
	return CreateKeyValueString(key, strconv.FormatUint(uint64(h), 10))
}
