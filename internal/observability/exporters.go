package observability

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

type otlpProtocol string

const (
	otlpProtocolGRPC otlpProtocol = "grpc"
	otlpProtocolHTTP otlpProtocol = "http/protobuf"
)

func parseOTLPProtocol(value string) (otlpProtocol, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(otlpProtocolGRPC):
		return otlpProtocolGRPC, nil
	case "http", string(otlpProtocolHTTP):
		return otlpProtocolHTTP, nil
	}
	return "", fmt.Errorf("unsupported OTLP protocol %q (use grpc or http/protobuf)", value)
}

// exportTarget is an OTLPExporterConfig resolved once and shared by the
// trace and log exporters.
type exportTarget struct {
	protocol otlpProtocol
	endpoint string
	// asURL is set when endpoint carries a scheme.
	asURL   bool
	headers map[string]string
	timeout time.Duration
	gzip    bool
	// tls is nil for plaintext collectors.
	tls *tls.Config
}

func resolveTarget(cfg OTLPExporterConfig) (exportTarget, error) {
	protocol, err := parseOTLPProtocol(cfg.Protocol)
	if err != nil {
		return exportTarget{}, err
	}
	t := exportTarget{
		protocol: protocol,
		endpoint: cfg.Endpoint,
		asURL:    strings.HasPrefix(cfg.Endpoint, "http://") || strings.HasPrefix(cfg.Endpoint, "https://"),
		headers:  cfg.Headers,
		timeout:  cfg.Timeout,
		gzip:     cfg.Compression == "gzip",
	}
	if !cfg.Insecure {
		if t.tls, err = buildTLSConfig(cfg); err != nil {
			return exportTarget{}, err
		}
	}
	return t, nil
}

func buildTLSConfig(cfg OTLPExporterConfig) (*tls.Config, error) {
	out := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.TLSCertFile != "" {
		pem, err := os.ReadFile(cfg.TLSCertFile)
		if err != nil {
			return nil, fmt.Errorf("read OTLP CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("OTLP CA file holds no PEM certificates")
		}
		out.RootCAs = pool
	}

	switch {
	case cfg.TLSClientCertFile == "" && cfg.TLSClientKeyFile == "":
	case cfg.TLSClientCertFile == "" || cfg.TLSClientKeyFile == "":
		return nil, errors.New("OTLP TLS client cert and key must both be set")
	default:
		pair, err := tls.LoadX509KeyPair(cfg.TLSClientCertFile, cfg.TLSClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load OTLP client certificate: %w", err)
		}
		out.Certificates = []tls.Certificate{pair}
	}
	return out, nil
}

func newTraceExporter(ctx context.Context, cfg OTLPExporterConfig) (sdktrace.SpanExporter, error) {
	t, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}

	if t.protocol == otlpProtocolGRPC {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.endpoint), otlptracegrpc.WithHeaders(t.headers)}
		if t.tls == nil {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(t.tls)))
		}
		if t.timeout > 0 {
			opts = append(opts, otlptracegrpc.WithTimeout(t.timeout))
		}
		if t.gzip {
			opts = append(opts, otlptracegrpc.WithCompressor("gzip"))
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithHeaders(t.headers)}
	if t.asURL {
		opts = append(opts, otlptracehttp.WithEndpointURL(t.endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(t.endpoint))
	}
	if t.tls == nil {
		opts = append(opts, otlptracehttp.WithInsecure())
	} else {
		opts = append(opts, otlptracehttp.WithTLSClientConfig(t.tls))
	}
	if t.timeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(t.timeout))
	}
	if t.gzip {
		opts = append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
	}
	return otlptracehttp.New(ctx, opts...)
}

func newLogExporter(ctx context.Context, cfg OTLPExporterConfig) (log.Exporter, error) {
	t, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}

	if t.protocol == otlpProtocolGRPC {
		opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(t.endpoint), otlploggrpc.WithHeaders(t.headers)}
		if t.tls == nil {
			opts = append(opts, otlploggrpc.WithInsecure())
		} else {
			opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewTLS(t.tls)))
		}
		if t.timeout > 0 {
			opts = append(opts, otlploggrpc.WithTimeout(t.timeout))
		}
		if t.gzip {
			opts = append(opts, otlploggrpc.WithCompressor("gzip"))
		}
		return otlploggrpc.New(ctx, opts...)
	}

	opts := []otlploghttp.Option{otlploghttp.WithHeaders(t.headers)}
	if t.asURL {
		opts = append(opts, otlploghttp.WithEndpointURL(t.endpoint))
	} else {
		opts = append(opts, otlploghttp.WithEndpoint(t.endpoint))
	}
	if t.tls == nil {
		opts = append(opts, otlploghttp.WithInsecure())
	} else {
		opts = append(opts, otlploghttp.WithTLSClientConfig(t.tls))
	}
	if t.timeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(t.timeout))
	}
	if t.gzip {
		opts = append(opts, otlploghttp.WithCompression(otlploghttp.GzipCompression))
	}
	return otlploghttp.New(ctx, opts...)
}
