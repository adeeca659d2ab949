// Package tlsconfig builds the mutual TLS configuration shared by the tsh
// control server and the tshctl client.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"google.golang.org/grpc/credentials"
)

var ErrNoCACerts = errors.New("no certificates found in CA file")

// Config points at the PEM files for one side of the connection.
type Config struct {
	CertPath   string
	KeyPath    string
	CACertPath string

	// Server selects the server side: client certificates are required and
	// verified against the CA. Otherwise the CA verifies the server.
	Server bool

	// ServerName is checked against the server certificate on the client side.
	ServerName string
}

func SetupTLS(config *Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(config.CertPath, config.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}

	pool, err := loadCAPool(config.CACertPath)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
	}

	if config.Server {
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConfig.ClientCAs = pool
	} else {
		tlsConfig.RootCAs = pool
		tlsConfig.ServerName = config.ServerName
	}

	return tlsConfig, nil
}

// Credentials wraps SetupTLS as gRPC transport credentials.
func Credentials(config *Config) (credentials.TransportCredentials, error) {
	tlsConfig, err := SetupTLS(config)
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(tlsConfig), nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("parse CA certificate %s: %w", path, ErrNoCACerts)
	}

	return pool, nil
}
