// Copyright 2025 Tom Barlow
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

package tracing

import (
	"io"
	"net"
	"strings"
)

// Exporter names accepted in Config.Exporter.
const (
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config holds observability configuration.
type Config struct {
	// Enabled controls whether spans are exported.
	Enabled bool

	// ServiceName identifies this service in traces.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// Exporter is one of ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC.
	Exporter string

	// Endpoint is the OTLP collector host:port. Empty uses the exporter default.
	Endpoint string

	// Writer receives stdout exporter output. Defaults to os.Stderr so the
	// report on stdout stays clean.
	Writer io.Writer
}

// insecureEndpoint reports whether endpoint points at a loopback collector,
// which is assumed to speak plaintext.
func insecureEndpoint(endpoint string) bool {
	if endpoint == "" {
		return true
	}
	host := endpoint
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
