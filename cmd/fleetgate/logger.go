// Copyright 2026 Siya Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"

	"github.com/syia/fleetgate/pkg/logger"
)

const (
	logFileEnvVar   = "LOG_FILE"
	logLevelEnvVar  = "LOG_LEVEL"
	logFormatEnvVar = "LOG_FORMAT"
)

// initLogger configures the process logger. CLI flags win over environment
// variables. Returns a cleanup function when logging to a file.
func initLogger(cliLevel, cliFile, cliFormat string) (func(), error) {
	level := cliLevel
	if level == "" {
		level = os.Getenv(logLevelEnvVar)
	}
	if level == "" {
		level = "info"
	}

	file := cliFile
	if file == "" {
		file = os.Getenv(logFileEnvVar)
	}

	format := cliFormat
	if format == "" {
		format = os.Getenv(logFormatEnvVar)
	}
	if format == "" {
		format = "simple"
	}

	parsedLevel, err := logger.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	output := os.Stderr
	var cleanup func()
	if file != "" {
		f, c, err := logger.OpenLogFile(file)
		if err != nil {
			return nil, err
		}
		output, cleanup = f, c
	}

	logger.Init(parsedLevel, output, format)
	return cleanup, nil
}
