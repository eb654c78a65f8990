// transport.go - HTTP-клиент для обращений к Keycloak (Admin API и JWKS).
package keycloak

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"
)

// NewHTTPClient создаёт HTTP-клиент для Keycloak.
// caCertPath - опциональный PEM с CA, добавляется к системному пулу.
// skipVerify отключает проверку сертификата (только dev-среда).
func NewHTTPClient(caCertPath string, skipVerify bool, timeout time.Duration) (*http.Client, error) {
	if caCertPath == "" && !skipVerify {
		return &http.Client{Timeout: timeout}, nil
	}

	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: skipVerify, //nolint:gosec // управляется AC_KEYCLOAK_TLS_SKIP_VERIFY
	}

	if caCertPath != "" {
		caCert, err := os.ReadFile(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("чтение CA-сертификата %s: %w", caCertPath, err)
		}

		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("CA-сертификат %s не содержит PEM-сертификатов", caCertPath)
		}
		tlsCfg.RootCAs = pool
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{TLSClientConfig: tlsCfg},
	}, nil
}
